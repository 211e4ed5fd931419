package parsers

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold uppercases and strips diacritics so that "Comisión" matches "COMISION"
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToUpper(strings.TrimSpace(out))
}

// collapse squeezes runs of whitespace into single spaces
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// isUpperName is true for lines made of letters and name punctuation only
func isUpperName(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) < 3 {
		return false
	}
	letters := 0
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			letters++
		case r == ' ' || r == '.' || r == ',' || r == '\'' || r == '-' || r == '&':
		default:
			return false
		}
	}
	return letters >= 2
}

// column describes one field to locate in a header row. Each alternative is a set
// of keywords that must all appear in the folded header cell.
type column struct {
	field        string
	alternatives [][]string
	required     bool
}

// header is a located header row
type header struct {
	row  int
	cols map[string]int
}

func (h header) cell(row []string, field string) string {
	idx, ok := h.cols[field]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// findHeader scans the first rows for one where every required column matches.
// Columns are claimed in declaration order so that a cell is never used twice.
func findHeader(rows [][]string, columns []column, maxScan int) (header, bool) {
	for i := 0; i < len(rows) && i < maxScan; i++ {
		cols := make(map[string]int)
		taken := make(map[int]bool)
		ok := true
		for _, c := range columns {
			idx := matchColumn(rows[i], c.alternatives, taken)
			if idx < 0 {
				if c.required {
					ok = false
					break
				}
				continue
			}
			cols[c.field] = idx
			taken[idx] = true
		}
		if ok {
			return header{row: i, cols: cols}, true
		}
	}
	return header{}, false
}

func matchColumn(row []string, alternatives [][]string, taken map[int]bool) int {
	for _, alt := range alternatives {
		for idx, cell := range row {
			if taken[idx] {
				continue
			}
			folded := Fold(cell)
			all := folded != ""
			for _, kw := range alt {
				if !strings.Contains(folded, kw) {
					all = false
					break
				}
			}
			if all {
				return idx
			}
		}
	}
	return -1
}
