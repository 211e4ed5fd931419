package parsers

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/comisiones-api/internal/extract"
	"github.com/sjperalta/comisiones-api/pkg/logger"
)

// Ancon lays each column out as its own list: every policy number, then every
// insured name, then every amount. Lists are read from labeled anchor lines,
// aligned by position and cut to the shortest one.
type Ancon struct {
	base
}

func NewAncon() *Ancon {
	return &Ancon{base: grossText("ancon", "Aseguradora Ancón")}
}

var anconPolicyRe = regexp.MustCompile(`^\d{4}-\d{5,6}$`)

var (
	anconPolicyAnchors = []string{"POLIZAS", "POLIZA"}
	anconNameAnchors   = []string{"ASEGURADOS", "ASEGURADO", "CLIENTES"}
	anconAmountAnchors = []string{"COMISIONES", "COMISION"}
)

func (a *Ancon) Parse(doc *extract.Document) (*Result, error) {
	lines := doc.Lines()
	for i := range lines {
		lines[i] = collapse(lines[i])
	}

	isPolicy := func(s string) bool { return anconPolicyRe.MatchString(s) }
	isName := func(s string) bool { return isUpperName(s) && !isAnchor(s) }

	res := &Result{}
	totalIdx := -1
	for i, l := range lines {
		if strings.HasPrefix(Fold(l), "TOTAL") {
			totalIdx = i
			if tok, ok := lastAmount(l); ok {
				res.DeclaredTotal = decimal.NewNullDecimal(tok.Value)
			}
			break
		}
	}

	policies := scanForward(lines, findAnchor(lines, anconPolicyAnchors), isPolicy)
	names := scanForward(lines, findAnchor(lines, anconNameAnchors), isName)

	var amounts []string
	if idx := findAnchor(lines, anconAmountAnchors); idx >= 0 {
		amounts = scanForward(lines, idx, isMoneyLine)
	} else if totalIdx > 0 {
		// no amount label: the list sits right above the total line
		amounts = scanBackward(lines, totalIdx, isMoneyLine)
	}

	n := min(len(policies), len(names), len(amounts))
	log := logger.With("insurer", a.key)
	if len(policies) != len(names) || len(names) != len(amounts) {
		log.Warn("Parallel lists differ in length, truncating",
			"policies", len(policies), "names", len(names), "amounts", len(amounts), "rows", n)
		res.note("listas desalineadas: pólizas=%d asegurados=%d montos=%d, se usan %d filas",
			len(policies), len(names), len(amounts), n)
	} else {
		log.Debug("Parallel lists extracted", "rows", n)
	}

	for i := 0; i < n; i++ {
		amount, err := ParseAmount(amounts[i])
		if err != nil {
			res.note("monto ilegible en posición %d: %s", i+1, amounts[i])
			continue
		}
		res.Rows = append(res.Rows, RawRow{
			PolicyNumber: policies[i],
			ClientName:   names[i],
			Amount:       amount,
			Line:         policies[i] + " " + names[i] + " " + amounts[i],
		})
	}
	return res, nil
}

func isAnchor(s string) bool {
	f := Fold(s)
	for _, group := range [][]string{anconPolicyAnchors, anconNameAnchors, anconAmountAnchors} {
		for _, a := range group {
			if f == a {
				return true
			}
		}
	}
	return strings.HasPrefix(f, "TOTAL")
}

// findAnchor returns the index of the first line equal to one of the labels
func findAnchor(lines []string, labels []string) int {
	for i, l := range lines {
		f := Fold(l)
		for _, label := range labels {
			if f == label {
				return i
			}
		}
	}
	return -1
}

// scanForward collects consecutive matching lines after an anchor
func scanForward(lines []string, anchor int, match func(string) bool) []string {
	if anchor < 0 {
		return nil
	}
	var out []string
	for _, l := range lines[anchor+1:] {
		if !match(l) {
			break
		}
		out = append(out, strings.TrimSpace(l))
	}
	return out
}

// scanBackward collects consecutive matching lines above end, in document order
func scanBackward(lines []string, end int, match func(string) bool) []string {
	start := end
	for start > 0 && match(lines[start-1]) {
		start--
	}
	out := make([]string, 0, end-start)
	for _, l := range lines[start:end] {
		out = append(out, strings.TrimSpace(l))
	}
	return out
}
