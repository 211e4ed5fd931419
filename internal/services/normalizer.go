package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"github.com/sjperalta/comisiones-api/internal/parsers"
)

// NormalizedRow is a parsed row with canonical identifiers
type NormalizedRow struct {
	parsers.RawRow
	PolicyKey  string
	IsAssaCode bool
	Hash       string
}

// NormalizePolicyNumber converts a carrier policy number to the stored format:
// uppercase, no whitespace, no surrounding punctuation.
func NormalizePolicyNumber(s string) string {
	s = strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s))
	return strings.Trim(s, ".,;:-/#")
}

// NormalizeAgentCode uppercases a code and drops spaces
func NormalizeAgentCode(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}

// Normalize canonicalizes rows and drops the byte-identical repeats PDF extraction
// sometimes produces. It returns the kept rows and how many were dropped.
func Normalize(c parsers.Carrier, rows []parsers.RawRow) ([]NormalizedRow, int) {
	seen := make(map[string]bool, len(rows))
	out := make([]NormalizedRow, 0, len(rows))
	dupes := 0

	for _, r := range rows {
		h := rowHash(c.Key(), r)
		if seen[h] {
			dupes++
			continue
		}
		seen[h] = true

		r.PolicyNumber = strings.TrimSpace(r.PolicyNumber)
		r.ClientName = strings.Join(strings.Fields(strings.ToUpper(r.ClientName)), " ")
		r.ProductCode = strings.ToUpper(strings.TrimSpace(r.ProductCode))
		r.AgentCode = NormalizeAgentCode(r.AgentCode)
		r.Amount = r.Amount.Round(2)

		out = append(out, NormalizedRow{
			RawRow:     r,
			PolicyKey:  NormalizePolicyNumber(r.PolicyNumber),
			IsAssaCode: c.AgentCodes(),
			Hash:       h,
		})
	}
	return out, dupes
}

// RawIdentifier is what operators see for an unmatched row
func (r NormalizedRow) RawIdentifier() string {
	if r.IsAssaCode && r.AgentCode != "" {
		return r.AgentCode
	}
	if r.PolicyKey != "" {
		return r.PolicyKey
	}
	return strings.TrimSpace(r.ClientName)
}

func rowHash(insurer string, r parsers.RawRow) string {
	line := r.Line
	if line == "" {
		line = strings.Join([]string{r.PolicyNumber, r.ClientName, r.ProductCode, r.AgentCode, r.Section, r.Amount.String()}, "|")
	}
	sum := sha256.Sum256([]byte(insurer + "\x00" + r.Section + "\x00" + line))
	return hex.EncodeToString(sum[:])
}
