package parsers

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// moneyRe matches amounts with two decimals, thousands separators optional,
// with a leading or trailing minus or enclosing parentheses for reversals.
var moneyRe = regexp.MustCompile(`\(?-?\$?\s?(?:\d{1,3}(?:,\d{3})+|\d+)\.\d{2}\)?-?`)

var percentRe = regexp.MustCompile(`(\d{1,3}(?:\.\d{1,4})?)\s?%`)

// ParseAmount reads a printed amount. Parenthesized or minus-signed values are negative.
func ParseAmount(s string) (decimal.Decimal, error) {
	raw := strings.TrimSpace(s)
	neg := false
	if strings.HasPrefix(raw, "(") && strings.HasSuffix(raw, ")") {
		neg = true
		raw = raw[1 : len(raw)-1]
	}
	if strings.HasSuffix(raw, "-") {
		neg = true
		raw = strings.TrimSuffix(raw, "-")
	}
	raw = strings.NewReplacer("B/.", "", "$", "", ",", "", " ", "").Replace(raw)
	if strings.HasPrefix(raw, "-") {
		neg = true
		raw = strings.TrimPrefix(raw, "-")
	}
	if raw == "" {
		return decimal.Zero, fmt.Errorf("monto vacío")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("monto inválido %q: %w", s, err)
	}
	if neg {
		d = d.Neg()
	}
	return d, nil
}

// moneyToken is one amount found in a line
type moneyToken struct {
	Value      decimal.Decimal
	Start, End int
}

// findAmounts returns every amount in line, left to right
func findAmounts(line string) []moneyToken {
	var out []moneyToken
	for _, loc := range moneyRe.FindAllStringIndex(line, -1) {
		if strings.HasPrefix(strings.TrimLeft(line[loc[1]:], " "), "%") {
			continue
		}
		tok := line[loc[0]:loc[1]]
		// an opening parenthesis without its closing pair belongs to the text
		if strings.HasPrefix(tok, "(") != strings.HasSuffix(tok, ")") {
			if strings.HasPrefix(tok, "(") {
				tok, loc[0] = tok[1:], loc[0]+1
			} else {
				tok, loc[1] = tok[:len(tok)-1], loc[1]-1
			}
		}
		v, err := ParseAmount(tok)
		if err != nil {
			continue
		}
		out = append(out, moneyToken{Value: v, Start: loc[0], End: loc[1]})
	}
	return out
}

// lastAmount returns the right-most amount of a line
func lastAmount(line string) (moneyToken, bool) {
	toks := findAmounts(line)
	if len(toks) == 0 {
		return moneyToken{}, false
	}
	return toks[len(toks)-1], true
}

// isMoneyLine is true when the trimmed line is exactly one amount
func isMoneyLine(line string) bool {
	t := strings.TrimSpace(line)
	loc := moneyRe.FindStringIndex(t)
	return loc != nil && loc[0] == 0 && loc[1] == len(t)
}

// parsePercent returns the first percentage token of a line as a fraction
func parsePercent(line string) (decimal.NullDecimal, int, int) {
	m := percentRe.FindStringSubmatchIndex(line)
	if m == nil {
		return decimal.NullDecimal{}, -1, -1
	}
	v, err := decimal.NewFromString(line[m[2]:m[3]])
	if err != nil {
		return decimal.NullDecimal{}, -1, -1
	}
	return decimal.NewNullDecimal(v.Div(decimal.NewFromInt(100))), m[0], m[1]
}
