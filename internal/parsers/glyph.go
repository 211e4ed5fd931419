package parsers

import (
	"strings"
	"unicode"
)

// Symbol-encoded fonts place each byte c of the original text at U+F000+c.
const (
	glyphBase = 0xF000
	glyphLow  = 0xF020
	glyphHigh = 0xF0FF
)

// ligatures some PDF producers emit in place of letter pairs
var ligatures = map[rune]string{
	'\uFB00': "ff",
	'\uFB01': "fi",
	'\uFB02': "fl",
	'\uFB03': "ffi",
	'\uFB04': "ffl",
}

// DecodeGlyphs maps private-use code points back to the characters they stand for
func DecodeGlyphs(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= glyphLow && r <= glyphHigh:
			b.WriteRune(r - glyphBase)
		case ligatures[r] != "":
			b.WriteString(ligatures[r])
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// EncodeGlyphs is the inverse of DecodeGlyphs for printable Latin-1 text
func EncodeGlyphs(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 0x20 && r <= 0xFF {
			b.WriteRune(r + glyphBase)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// HasGlyphs reports whether s contains symbol-font code points
func HasGlyphs(s string) bool {
	for _, r := range s {
		if r >= glyphLow && r <= glyphHigh {
			return true
		}
	}
	return false
}

// SplitDigitLetter inserts a space wherever a digit touches a letter, undoing
// the column concatenation symbol fonts produce ("01ROBERTO" → "01 ROBERTO").
func SplitDigitLetter(s string) string {
	var b strings.Builder
	var prev rune
	for i, r := range s {
		if i > 0 && ((unicode.IsDigit(prev) && unicode.IsLetter(r)) || (unicode.IsLetter(prev) && (unicode.IsDigit(r) || r == '('))) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}
