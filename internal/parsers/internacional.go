package parsers

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/comisiones-api/internal/extract"
	"github.com/sjperalta/comisiones-api/pkg/logger"
)

// Internacional splits its statement into named sections. Rows are only taken
// while a section is open; a section closes on its TOTAL line or on the
// "no commissions" notice, so rows never bleed into the next section.
type Internacional struct {
	base
}

func NewInternacional() *Internacional {
	return &Internacional{base: grossText("internacional", "Internacional de Seguros")}
}

// Section names as printed, mapped to the label stored on each row
var internacionalSections = map[string]string{
	"NUEVOS NEGOCIOS":   "new_business",
	"RENOVACIONES":      "renewals",
	"OTROS AJUSTES":     "adjustments",
	"AJUSTES":           "adjustments",
	"COMISIONES VARIAS": "other",
}

var internacionalRowRe = regexp.MustCompile(`^(\d{2}-\d{6})\s+(.+?)\s+(\(?-?[\d,]+\.\d{2}\)?-?)$`)

const noCommissionsMarker = "NO SE GENERARON COMISIONES"

func (p *Internacional) Parse(doc *extract.Document) (*Result, error) {
	log := logger.With("insurer", p.key)
	res := &Result{}
	section := ""
	seen := 0

	for _, raw := range doc.Lines() {
		line := collapse(raw)
		folded := Fold(line)

		if name, ok := internacionalSections[folded]; ok {
			section = name
			seen++
			log.Debug("Section opened", "section", name)
			continue
		}
		if strings.HasPrefix(folded, "TOTAL GENERAL") {
			if tok, ok := lastAmount(line); ok {
				res.DeclaredTotal = decimal.NewNullDecimal(tok.Value)
			}
			section = ""
			continue
		}
		if strings.HasPrefix(folded, "TOTAL") || strings.Contains(folded, noCommissionsMarker) {
			if section != "" {
				log.Debug("Section closed", "section", section)
			}
			section = ""
			continue
		}

		m := internacionalRowRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if section == "" {
			res.note("fila fuera de sección ignorada: %s", line)
			continue
		}
		amount, err := ParseAmount(m[3])
		if err != nil {
			res.note("monto ilegible: %s", line)
			continue
		}
		res.Rows = append(res.Rows, RawRow{
			PolicyNumber: m[1],
			ClientName:   m[2],
			Section:      section,
			Amount:       amount,
			Line:         raw,
		})
	}

	if seen == 0 {
		return nil, noRows(p.key, doc, "no se encontró ninguna sección conocida")
	}
	return res, nil
}
