package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseCommand(t *testing.T) {
	out, err := run(t, "parse", "--insurer", "fedpa", "--file", "../../internal/parsers/testdata/fedpa.csv")
	require.NoError(t, err)
	assert.Contains(t, out, "carrier: fedpa")
	assert.Contains(t, out, "05-01-0001234")
	assert.Contains(t, out, "computed total:")
}

func TestParseCommand_UnknownCarrier(t *testing.T) {
	_, err := run(t, "parse", "--insurer", "nope", "--file", "../../internal/parsers/testdata/fedpa.csv")
	assert.Error(t, err)
}

func TestCarriersCommand(t *testing.T) {
	out, err := run(t, "carriers")
	require.NoError(t, err)
	for _, key := range []string{"assa", "fedpa", "sura", "mapfre", "ancon", "internacional"} {
		assert.Contains(t, out, key)
	}
}

func TestValidateCodeCommand(t *testing.T) {
	t.Setenv("ASSA_CODE_PREFIX", "PJ750")
	t.Setenv("ASSA_EXCLUDED_CODES", "PJ75999")

	out, err := run(t, "validate-code", "pj75012")
	require.NoError(t, err)
	assert.Contains(t, out, "PJ75012\tOK")

	out, err = run(t, "validate-code", "PJ75012", "PJ75999")
	assert.Error(t, err)
	assert.Contains(t, out, "PJ75999\tINVALID")
}
