package parsers

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/comisiones-api/internal/extract"
	"github.com/sjperalta/comisiones-api/internal/models"
)

// Assa reads the agent-code distribution workbook: one row per agent code with
// the commission already paid to that code.
type Assa struct {
	base
}

func NewAssa() *Assa {
	return &Assa{base: base{
		key:    "assa",
		name:   "ASSA Compañía de Seguros",
		format: FormatRows,
		basis:  models.AmountBasisBrokerNet,
		codes:  true,
	}}
}

var assaColumns = []column{
	{field: "amount", alternatives: [][]string{{"COMISION", "PAGADA"}}, required: true},
	{field: "code", alternatives: [][]string{{"LICENCIA"}, {"CODIGO"}, {"COD"}}, required: true},
	{field: "name", alternatives: [][]string{{"NOMBRE"}, {"CORREDOR"}, {"AGENTE"}}},
}

func (a *Assa) Parse(doc *extract.Document) (*Result, error) {
	h, ok := findHeader(doc.Rows, assaColumns, 25)
	if !ok {
		return nil, noRows(a.key, doc, "no se encontró la fila de encabezado (código / comisión pagada)")
	}

	res := &Result{}
	for _, row := range doc.Rows[h.row+1:] {
		code := strings.ToUpper(h.cell(row, "code"))
		rawAmount := h.cell(row, "amount")

		if isFooter(code, row) {
			if total, err := ParseAmount(rawAmount); err == nil {
				res.DeclaredTotal = decimal.NewNullDecimal(total)
			}
			break
		}
		if code == "" || rawAmount == "" {
			continue
		}
		amount, err := ParseAmount(rawAmount)
		if err != nil {
			res.note("fila con monto ilegible omitida: %s", strings.Join(row, " | "))
			continue
		}
		if amount.IsZero() {
			continue
		}
		res.Rows = append(res.Rows, RawRow{
			AgentCode:  code,
			ClientName: h.cell(row, "name"),
			Amount:     amount,
			Line:       strings.Join(row, "\x1f"),
		})
	}
	return res, nil
}

// isFooter matches the totals row. Agent names may contain the word TOTAL, so only
// the code cell or, when it is blank, a cell holding nothing but the label counts.
func isFooter(code string, row []string) bool {
	if isTotalLabel(code) {
		return true
	}
	if code != "" {
		return false
	}
	for _, cell := range row {
		if isTotalLabel(cell) {
			return true
		}
	}
	return false
}

func isTotalLabel(cell string) bool {
	f := strings.TrimRight(Fold(collapse(cell)), ":")
	return f == "TOTAL" || f == "TOTALES" || f == "TOTAL GENERAL"
}
