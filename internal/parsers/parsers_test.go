package parsers

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/comisiones-api/internal/extract"
	"github.com/sjperalta/comisiones-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type expectedRow struct {
	policy, client, code, section string
	amount                        string
}

func loadFixture(t *testing.T, name string) *extract.Document {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err)
	if strings.HasSuffix(name, ".csv") {
		doc, err := extract.NewCSVExtractor().Extract(context.Background(), data)
		require.NoError(t, err)
		return doc
	}
	return &extract.Document{Text: extract.Normalize(string(data))}
}

func TestCarrierFixtures(t *testing.T) {
	tests := []struct {
		carrier  string
		fixture  string
		declared string
		rows     []expectedRow
	}{
		{
			carrier: "assa", fixture: "assa.csv", declared: "1545.25",
			rows: []expectedRow{
				{code: "PJ75012", client: "CORREDORES UNIDOS", amount: "1250.5"},
				{code: "PJ75300", client: "MARTA SALAS", amount: "310"},
				{code: "PJ75045", client: "ROBERTO LIM", amount: "-15.25"},
			},
		},
		{
			carrier: "fedpa", fixture: "fedpa.csv", declared: "215",
			rows: []expectedRow{
				{policy: "05-01-0001234", client: "José Ramírez", amount: "200"},
				{policy: "05-01-0001235", client: "Comercial Díaz S.A.", amount: "75"},
				{policy: "05-02-0000999", client: "Ana Ruiz", amount: "-60"},
			},
		},
		{
			carrier: "sura", fixture: "sura.txt", declared: "1350",
			rows: []expectedRow{
				{policy: "AUTO-0012345", client: "JUAN CARLOS PEREZ", amount: "180"},
				{policy: "VIDA-0099812", client: "MARÍA DEL CARMEN RUIZ", amount: "-80"},
				{policy: "SALUD-00456789", client: "INVERSIONES EL PRADO, S.A.", amount: "1250"},
			},
		},
		{
			carrier: "mapfre", fixture: "mapfre.txt", declared: "1220.10",
			rows: []expectedRow{
				{policy: "1234-56-78901", client: "ROBERTO GOMEZ", amount: "250"},
				{policy: "1234-56-78902", client: "ANA LUCIA PINZON", amount: "1045.10"},
				{policy: "2001-10-00345", client: "EMPRESA LOS ANDES", amount: "-75"},
			},
		},
		{
			carrier: "ancon", fixture: "ancon.txt", declared: "62.50",
			rows: []expectedRow{
				{policy: "0201-00123", client: "LUIS ALBERTO CASTILLO", amount: "45"},
				{policy: "0201-00456", client: "ANA MARIA TORRES", amount: "-12.5"},
				{policy: "0305-00077", client: "PEDRO SOTO", amount: "30"},
			},
		},
		{
			carrier: "internacional", fixture: "internacional.txt", declared: "1205.25",
			rows: []expectedRow{
				{policy: "10-123456", client: "CARLOS MENDEZ", section: "new_business", amount: "150"},
				{policy: "10-123457", client: "LAURA VEGA DE LEON", section: "new_business", amount: "1075.25"},
				{policy: "10-099887", client: "ERNESTO DIAZ", section: "adjustments", amount: "-20"},
			},
		},
	}

	registry := Default()
	for _, tt := range tests {
		t.Run(tt.carrier, func(t *testing.T) {
			carrier, err := registry.Get(tt.carrier)
			require.NoError(t, err)

			res, err := Run(carrier, loadFixture(t, tt.fixture))
			require.NoError(t, err)
			require.Len(t, res.Rows, len(tt.rows))

			sum := decimal.Zero
			for i, want := range tt.rows {
				got := res.Rows[i]
				assert.Equal(t, want.policy, got.PolicyNumber, "row %d policy", i)
				assert.Equal(t, want.client, got.ClientName, "row %d client", i)
				assert.Equal(t, want.code, got.AgentCode, "row %d code", i)
				assert.Equal(t, want.section, got.Section, "row %d section", i)
				assert.True(t, decimal.RequireFromString(want.amount).Equal(got.Amount),
					"row %d amount: want %s got %s", i, want.amount, got.Amount)
				sum = sum.Add(got.Amount)
			}

			require.True(t, res.DeclaredTotal.Valid, "declared total")
			declared := decimal.RequireFromString(tt.declared)
			assert.True(t, declared.Equal(res.DeclaredTotal.Decimal))
			assert.True(t, declared.Equal(sum), "rows add up to the printed total")
		})
	}
}

func TestRegistry(t *testing.T) {
	r := Default()

	c, err := r.Get(" SURA ")
	require.NoError(t, err)
	assert.Equal(t, "sura", c.Key())

	_, err = r.Get("unknown")
	assert.ErrorIs(t, err, ErrUnknownInsurer)

	keys := []string{}
	for _, c := range r.Carriers() {
		keys = append(keys, c.Key())
	}
	assert.Equal(t, []string{"ancon", "assa", "fedpa", "internacional", "mapfre", "sura"}, keys)

	assa, _ := r.Get("assa")
	assert.True(t, assa.AgentCodes())
	assert.Equal(t, models.AmountBasisBrokerNet, assa.Basis())
}

func TestRun_ZeroRowsIsParseFailure(t *testing.T) {
	doc := &extract.Document{Text: "SEGUROS SURA\nFORMATO NUEVO SIN FILAS RECONOCIBLES"}
	sura, _ := Default().Get("sura")

	_, err := Run(sura, doc)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoRows))

	var pe *ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "sura", pe.Insurer)
	assert.Equal(t, 0, pe.Rows)
	assert.Contains(t, pe.Snippet, "FORMATO NUEVO")
}

func TestRun_WrongFormat(t *testing.T) {
	fedpa, _ := Default().Get("fedpa")
	_, err := Run(fedpa, &extract.Document{Text: "COMISIONES QUINCENA\nPOLIZA 05-01-0000100 100.00"})
	assert.ErrorIs(t, err, ErrWrongFormat)
	assert.NotErrorIs(t, err, ErrNoRows)

	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "fedpa", pe.Insurer)
	assert.Contains(t, pe.Snippet, "05-01-0000100")

	sura, _ := Default().Get("sura")
	_, err = Run(sura, &extract.Document{Rows: [][]string{{"POLIZA", "COMISION"}, {"AUTO-0012345", "180.00"}}})
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, ErrWrongFormat)
	assert.Equal(t, 2, pe.Rows)
	assert.Contains(t, pe.Snippet, "AUTO-0012345 | 180.00")
}

func TestAssa_AgentNamedTotalIsNotTheFooter(t *testing.T) {
	doc := &extract.Document{Rows: [][]string{
		{"No. Licencia", "Nombre del Agente", "Comisión Pagada"},
		{"PJ75012", "TOTAL PROTECCION CORREDORES", "100.00"},
		{"PJ75013", "ANA RUIZ", "200.00"},
		{"", "Total general", "300.00"},
		{"PJ75014", "DESPUES DEL PIE", "1.00"},
	}}

	res, err := Run(NewAssa(), doc)
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "TOTAL PROTECCION CORREDORES", res.Rows[0].ClientName)
	assert.Equal(t, "PJ75013", res.Rows[1].AgentCode)
	require.True(t, res.DeclaredTotal.Valid)
	assert.Equal(t, "300", res.DeclaredTotal.Decimal.String())
}

func TestSura_PremiumIsNotPartOfClientName(t *testing.T) {
	text := strings.Join([]string{
		"AUTO-0012345 JUAN PEREZ 1,200.00 15.00% 180.00",
		"VIDA-0099812 MARTA SALAS 10.00% 45.00",
		"HOGAR-0000777 LUIS CASTRO 600.00 30.00",
	}, "\n")

	res, err := NewSura().Parse(&extract.Document{Text: text})
	require.NoError(t, err)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, "JUAN PEREZ", res.Rows[0].ClientName)
	assert.Equal(t, "180", res.Rows[0].Amount.String())
	assert.Equal(t, "MARTA SALAS", res.Rows[1].ClientName)
	assert.Equal(t, "LUIS CASTRO", res.Rows[2].ClientName)
	assert.Equal(t, "30", res.Rows[2].Amount.String())
}

func TestAncon_TruncatesToShortestList(t *testing.T) {
	text := strings.Join([]string{
		"POLIZAS", "0201-00123", "0201-00456", "0305-00077",
		"ASEGURADOS", "LUIS CASTILLO", "ANA TORRES",
		"COMISIONES", "45.00", "12.50", "30.00",
	}, "\n")

	res, err := NewAncon().Parse(&extract.Document{Text: text})
	require.NoError(t, err)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "0201-00456", res.Rows[1].PolicyNumber)
	assert.Equal(t, "ANA TORRES", res.Rows[1].ClientName)
	require.NotEmpty(t, res.Diagnostics)
	assert.Contains(t, res.Diagnostics[0], "pólizas=3 asegurados=2 montos=3")
}

func TestAncon_AmountsAboveTotalWithoutLabel(t *testing.T) {
	text := strings.Join([]string{
		"POLIZAS", "0201-00123", "ASEGURADOS", "LUIS CASTILLO",
		"10.00", "TOTAL 10.00",
	}, "\n")

	res, err := NewAncon().Parse(&extract.Document{Text: text})
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.True(t, decimal.NewFromInt(10).Equal(res.Rows[0].Amount))
}

func TestInternacional_NoBleedAcrossSections(t *testing.T) {
	res, err := NewInternacional().Parse(loadFixture(t, "internacional.txt"))
	require.NoError(t, err)
	for _, r := range res.Rows {
		assert.NotEqual(t, "10-555555", r.PolicyNumber)
	}
	assert.Contains(t, strings.Join(res.Diagnostics, "\n"), "FILA FANTASMA")
}
