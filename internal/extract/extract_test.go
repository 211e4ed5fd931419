package extract

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type fakeExtractor struct {
	name string
	text string
	err  error
}

func (f *fakeExtractor) Name() string                { return f.name }
func (f *fakeExtractor) Accepts(string, []byte) bool { return true }
func (f *fakeExtractor) Extract(context.Context, []byte) (*Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &Document{Text: f.text}, nil
}

func TestChain_FallsBackToNextBackend(t *testing.T) {
	chain := NewChain(
		&fakeExtractor{name: "broken", err: errors.New("boom")},
		&fakeExtractor{name: "blank", text: "   \n "},
		&fakeExtractor{name: "good", text: "POLIZA 123"},
	)

	doc, err := chain.Extract(context.Background(), "a.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, "good", doc.Backend)
	assert.Equal(t, "a.pdf", doc.FileName)
	assert.Equal(t, "POLIZA 123", doc.Text)
}

func TestChain_AllBackendsFail(t *testing.T) {
	chain := NewChain(&fakeExtractor{name: "broken", err: errors.New("boom")})

	_, err := chain.Extract(context.Background(), "a.pdf", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExtractionFailed))

	var exErr *Error
	require.True(t, errors.As(err, &exErr))
	assert.Equal(t, "boom", exErr.Attempts["broken"])
}

func TestExcelExtractor_FirstSheetRows(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"CODIGO", "COMISION PAGADA"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"PJ75012", "1,250.50"}))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	chain := NewChain(NewExcelExtractor())
	doc, err := chain.Extract(context.Background(), "codes.xlsx", buf.Bytes())
	require.NoError(t, err)
	require.True(t, doc.IsTabular())
	assert.Equal(t, [][]string{{"CODIGO", "COMISION PAGADA"}, {"PJ75012", "1,250.50"}}, doc.Rows)
}

func TestCSVExtractor_Semicolons(t *testing.T) {
	data := []byte("POLIZA;ASEGURADO;COMISION\n01-002;ANA RUIZ;10.00\n")
	doc, err := NewCSVExtractor().Extract(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, []string{"01-002", "ANA RUIZ", "10.00"}, doc.Rows[1])
}

func TestNormalize(t *testing.T) {
	in := "HEADER  \r\nA\tB C\r\n\r\n"
	assert.Equal(t, "HEADER\nA B C", Normalize(in))
}

func TestSnippet(t *testing.T) {
	doc := &Document{Text: "0123456789"}
	assert.Equal(t, "01234…", doc.Snippet(5))
	rows := &Document{Rows: [][]string{{"A", "B"}, {"C"}}}
	assert.Equal(t, "A | B\nC", rows.Snippet(100))
}
