package parsers

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/comisiones-api/internal/extract"
)

// Sura prints one line per policy with no reliable column alignment:
//
//	AUTO-0012345 JUAN CARLOS PEREZ 15.00% 180.00
//
// The client name is the text between the policy token and the first of the
// percentage or a printed premium; the commission is the last amount on the line.
type Sura struct {
	base
}

func NewSura() *Sura {
	return &Sura{base: grossText("sura", "Seguros SURA")}
}

var suraPolicyRe = regexp.MustCompile(`(?i)^([A-Z]{2,5})-(\d{5,9})\b`)

func (s *Sura) Parse(doc *extract.Document) (*Result, error) {
	res := &Result{}
	for _, raw := range doc.Lines() {
		line := collapse(raw)
		folded := Fold(line)

		if strings.HasPrefix(folded, "TOTAL") {
			if tok, ok := lastAmount(line); ok {
				res.DeclaredTotal = decimal.NewNullDecimal(tok.Value)
			}
			continue
		}

		m := suraPolicyRe.FindStringSubmatchIndex(line)
		if m == nil {
			continue
		}
		amount, ok := lastAmount(line)
		if !ok {
			res.note("póliza sin monto: %s", line)
			continue
		}

		pct, pctStart, pctEnd := parsePercent(line)
		nameEnd := amount.Start
		if pctStart > m[1] && pctStart < nameEnd {
			nameEnd = pctStart
		}
		// some statements also print the premium between the name and the percentage
		for _, tok := range findAmounts(line) {
			if tok.Start >= m[1] && tok.Start < nameEnd {
				nameEnd = tok.Start
				break
			}
		}
		// the amount must come after the percentage, otherwise the line is a header echo
		if pctEnd > amount.Start {
			continue
		}

		res.Rows = append(res.Rows, RawRow{
			PolicyNumber: strings.ToUpper(line[m[2]:m[3]]) + "-" + line[m[4]:m[5]],
			ProductCode:  strings.ToUpper(line[m[2]:m[3]]),
			ClientName:   strings.TrimSpace(line[m[1]:nameEnd]),
			Amount:       amount.Value,
			Percent:      pct,
			Line:         raw,
		})
	}
	return res, nil
}
