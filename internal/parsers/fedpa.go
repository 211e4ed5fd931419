package parsers

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/comisiones-api/internal/extract"
)

// Fedpa exports a plain column table: policy, insured, line of business,
// premium, percentage and commission.
type Fedpa struct {
	base
}

func NewFedpa() *Fedpa {
	return &Fedpa{base: grossRows("fedpa", "Aseguradora Federal (FEDPA)")}
}

var fedpaColumns = []column{
	{field: "percent", alternatives: [][]string{{"%"}, {"PORC"}}},
	{field: "amount", alternatives: [][]string{{"COMISION"}}, required: true},
	{field: "policy", alternatives: [][]string{{"POLIZA"}, {"NO.", "POL"}}, required: true},
	{field: "client", alternatives: [][]string{{"ASEGURADO"}, {"CLIENTE"}, {"CONTRATANTE"}}},
	{field: "product", alternatives: [][]string{{"RAMO"}, {"PRODUCTO"}}},
}

func (f *Fedpa) Parse(doc *extract.Document) (*Result, error) {
	h, ok := findHeader(doc.Rows, fedpaColumns, 25)
	if !ok {
		return nil, noRows(f.key, doc, "no se encontró la fila de encabezado (póliza / comisión)")
	}

	res := &Result{}
	for _, row := range doc.Rows[h.row+1:] {
		policy := h.cell(row, "policy")
		rawAmount := h.cell(row, "amount")
		joined := Fold(strings.Join(row, " "))

		if strings.HasPrefix(joined, "TOTAL") || (policy == "" && strings.Contains(joined, "TOTAL")) {
			if total, err := ParseAmount(rawAmount); err == nil {
				res.DeclaredTotal = decimal.NewNullDecimal(total)
			}
			break
		}
		if policy == "" || rawAmount == "" {
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

		rr := RawRow{
			PolicyNumber: policy,
			ClientName:   collapse(h.cell(row, "client")),
			ProductCode:  strings.ToUpper(h.cell(row, "product")),
			Amount:       amount,
			Line:         strings.Join(row, "\x1f"),
		}
		if pct := h.cell(row, "percent"); pct != "" {
			if p, _, _ := parsePercent(strings.TrimSuffix(pct, "%") + "%"); p.Valid {
				rr.Percent = p
			}
		}
		res.Rows = append(res.Rows, rr)
	}
	return res, nil
}
