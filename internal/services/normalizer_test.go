package services

import (
	"errors"
	"testing"

	"github.com/sjperalta/comisiones-api/internal/parsers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePolicyNumber(t *testing.T) {
	cases := map[string]string{
		" 05-01-0001234 ": "05-01-0001234",
		"ab 123.":         "AB123",
		"#P-77/":          "P-77",
		"":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePolicyNumber(in), in)
	}
}

func TestNormalize_DropsRepeatedRows(t *testing.T) {
	carrier, err := parsers.Default().Get("sura")
	require.NoError(t, err)

	rows := []parsers.RawRow{
		{PolicyNumber: "1002-0001", ClientName: "ana  ruiz", Amount: dec("10.005"), Line: "1002-0001 ANA RUIZ 10.00"},
		{PolicyNumber: "1002-0001", ClientName: "ana  ruiz", Amount: dec("10.005"), Line: "1002-0001 ANA RUIZ 10.00"},
		{PolicyNumber: "1002-0002", ClientName: "luis paz", Amount: dec("5"), Line: "1002-0002 LUIS PAZ 5.00"},
	}
	out, dupes := Normalize(carrier, rows)

	assert.Equal(t, 1, dupes)
	require.Len(t, out, 2)
	assert.Equal(t, "ANA RUIZ", out[0].ClientName)
	assert.Equal(t, "10.01", out[0].Amount.StringFixed(2))
	assert.False(t, out[0].IsAssaCode)
	assert.NotEqual(t, out[0].Hash, out[1].Hash)
}

func TestNormalize_AgentCodeIdentifier(t *testing.T) {
	carrier, err := parsers.Default().Get("assa")
	require.NoError(t, err)

	out, _ := Normalize(carrier, []parsers.RawRow{{AgentCode: " pj75012", ClientName: "corredores unidos", Amount: dec("1")}})
	require.Len(t, out, 1)
	assert.True(t, out[0].IsAssaCode)
	assert.Equal(t, "PJ75012", out[0].RawIdentifier())
}

func TestCodeValidator(t *testing.T) {
	v := NewCodeValidator("PJ750", []string{"pj75999"})

	assert.NoError(t, v.Validate("PJ75012"))
	assert.NoError(t, v.Validate("pj7501"))

	for _, code := range []string{"", "PJ75999", "PJ75300", "XX75012", "PJ750", "PJ75012A", "PJ750012"} {
		err := v.Validate(code)
		assert.Error(t, err, code)
		assert.True(t, errors.Is(err, ErrInvalidAgentCode), code)
	}
}
