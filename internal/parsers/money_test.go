package parsers

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1,234.56", "1234.56"},
		{"(1,234.56)", "-1234.56"},
		{"-80.00", "-80"},
		{"80.00-", "-80"},
		{"$ 12.00", "12"},
		{"B/. 1,000.00", "1000"},
		{"0.00", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			require.NoError(t, err)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}

	_, err := ParseAmount("abc")
	assert.Error(t, err)
}

func TestFindAmounts_SkipsPercentages(t *testing.T) {
	toks := findAmounts("AUTO-0012345 JUAN 15.00% 1,180.00 (20.00)")
	require.Len(t, toks, 2)
	assert.Equal(t, "1180", toks[0].Value.String())
	assert.Equal(t, "-20", toks[1].Value.String())
}

func TestFindAmounts_NoThousandsSeparator(t *testing.T) {
	toks := findAmounts("TOTAL 1234.56")
	require.Len(t, toks, 1)
	assert.Equal(t, "1234.56", toks[0].Value.String())
}

func TestParsePercent(t *testing.T) {
	p, _, _ := parsePercent("comision 12.5 %")
	require.True(t, p.Valid)
	assert.Equal(t, "0.125", p.Decimal.String())
}

func TestGlyphRoundTrip(t *testing.T) {
	encoded := EncodeGlyphs(MapfreHeader)
	assert.True(t, HasGlyphs(encoded))
	assert.NotContains(t, encoded, "COMISIONES")
	assert.Equal(t, MapfreHeader, DecodeGlyphs(encoded))
}

func TestDecodeGlyphs_Ligatures(t *testing.T) {
	assert.Equal(t, "beneficio", DecodeGlyphs("bene\uFB01cio"))
}

func TestSplitDigitLetter(t *testing.T) {
	assert.Equal(t, "1234-56-78901 ROBERTO GOMEZ 250.00", SplitDigitLetter("1234-56-78901ROBERTO GOMEZ250.00"))
	assert.Equal(t, "LOS ANDES (75.00)", SplitDigitLetter("LOS ANDES(75.00)"))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "COMISION PAGADA", Fold(" Comisión Pagada "))
}
