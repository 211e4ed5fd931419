package parsers

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/comisiones-api/internal/extract"
)

// Mapfre statements use a symbol font: every character arrives shifted into the
// private-use area and adjacent columns lose their separating spaces. Lines are
// decoded and re-spaced before matching:
//
//	1234-56-78901ROBERTO GOMEZ250.00  →  1234-56-78901 ROBERTO GOMEZ 250.00
type Mapfre struct {
	base
}

func NewMapfre() *Mapfre {
	return &Mapfre{base: grossText("mapfre", "MAPFRE Panamá")}
}

var mapfrePolicyRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{5,6})\b`)

// MapfreHeader is the title every decoded statement starts with
const MapfreHeader = "ESTADO DE CUENTA DE COMISIONES"

func (m *Mapfre) Parse(doc *extract.Document) (*Result, error) {
	text := DecodeGlyphs(doc.Text)
	if !strings.Contains(Fold(text), MapfreHeader) {
		return nil, noRows(m.key, &extract.Document{Text: text}, "no se encontró el título del estado de cuenta tras decodificar la fuente")
	}

	res := &Result{}
	for _, raw := range strings.Split(text, "\n") {
		line := collapse(SplitDigitLetter(raw))
		if line == "" {
			continue
		}
		folded := Fold(line)

		if strings.HasPrefix(folded, "TOTAL") {
			if tok, ok := lastAmount(line); ok {
				res.DeclaredTotal = decimal.NewNullDecimal(tok.Value)
			}
			continue
		}

		pm := mapfrePolicyRe.FindStringSubmatchIndex(line)
		if pm == nil {
			continue
		}
		amount, ok := lastAmount(line)
		if !ok || amount.Start < pm[1] {
			res.note("póliza sin monto: %s", line)
			continue
		}

		// name is the last letter run before the first amount
		name := strings.TrimSpace(line[pm[1]:firstAmountStart(line, pm[1])])
		res.Rows = append(res.Rows, RawRow{
			PolicyNumber: line[pm[2]:pm[3]],
			ClientName:   name,
			Amount:       amount.Value,
			Line:         raw,
		})
	}
	return res, nil
}

func firstAmountStart(line string, from int) int {
	for _, tok := range findAmounts(line) {
		if tok.Start >= from {
			return tok.Start
		}
	}
	return len(line)
}
