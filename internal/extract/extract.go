// Package extract turns uploaded statement bytes into text or spreadsheet rows.
// Backends are tried in order; the first that yields content wins.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/sjperalta/comisiones-api/pkg/logger"
)

// ErrExtractionFailed is wrapped by every error where no backend produced content
var ErrExtractionFailed = errors.New("no se pudo extraer texto del archivo")

// Document is the raw content of a statement
type Document struct {
	FileName string
	Backend  string
	Text     string     // normalized text for PDF statements
	Rows     [][]string // first sheet for spreadsheet statements
}

// IsTabular returns true when the document came from a spreadsheet
func (d *Document) IsTabular() bool {
	return len(d.Rows) > 0
}

// Lines returns the non-blank lines of the text
func (d *Document) Lines() []string {
	var out []string
	for _, l := range strings.Split(d.Text, "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

// Snippet returns the head of the content for diagnostics
func (d *Document) Snippet(max int) string {
	if d == nil {
		return ""
	}
	src := d.Text
	if src == "" && len(d.Rows) > 0 {
		var b strings.Builder
		for i, r := range d.Rows {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(strings.Join(r, " | "))
			if b.Len() > max*2 {
				break
			}
		}
		src = b.String()
	}
	return Truncate(src, max)
}

// Truncate cuts s to at most max runes
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "…"
}

// Extractor is one text backend
type Extractor interface {
	Name() string
	Accepts(fileName string, data []byte) bool
	Extract(ctx context.Context, data []byte) (*Document, error)
}

// Error lists what each backend reported when none succeeded
type Error struct {
	FileName string
	Attempts map[string]string
}

func (e *Error) Error() string {
	var parts []string
	for name, msg := range e.Attempts {
		parts = append(parts, name+": "+msg)
	}
	if len(parts) == 0 {
		return fmt.Sprintf("%s: %s (formato no soportado)", ErrExtractionFailed, e.FileName)
	}
	return fmt.Sprintf("%s: %s (%s)", ErrExtractionFailed, e.FileName, strings.Join(parts, "; "))
}

func (e *Error) Unwrap() error {
	return ErrExtractionFailed
}

// Chain tries extractors in order
type Chain struct {
	extractors []Extractor
}

// NewChain creates a chain from the given backends
func NewChain(extractors ...Extractor) *Chain {
	return &Chain{extractors: extractors}
}

// Options configure the default chain
type Options struct {
	PdfToTextPath string
	OCRCommand    string
}

// Default returns the production chain: spreadsheets, embedded PDF text,
// pdftotext, and OCR when configured.
func Default(opts Options) *Chain {
	chain := []Extractor{NewExcelExtractor(), NewCSVExtractor(), NewTextExtractor(), NewPDFExtractor()}
	if opts.PdfToTextPath != "" {
		chain = append(chain, NewCommandExtractor("pdftotext", isPDF, opts.PdfToTextPath, "-layout", "-enc", "UTF-8", "-", "-"))
	}
	if fields := strings.Fields(opts.OCRCommand); len(fields) > 0 {
		chain = append(chain, NewCommandExtractor("ocr", isPDF, fields[0], fields[1:]...))
	}
	return NewChain(chain...)
}

// Extract runs the chain. A backend that errors or yields blank content
// hands over to the next one.
func (c *Chain) Extract(ctx context.Context, fileName string, data []byte) (*Document, error) {
	failure := &Error{FileName: fileName, Attempts: map[string]string{}}
	for _, ex := range c.extractors {
		if !ex.Accepts(fileName, data) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc, err := ex.Extract(ctx, data)
		if err != nil {
			logger.Debug("Extractor failed", "backend", ex.Name(), "file", fileName, "error", err)
			failure.Attempts[ex.Name()] = err.Error()
			continue
		}
		if doc == nil || (strings.TrimSpace(doc.Text) == "" && len(doc.Rows) == 0) {
			failure.Attempts[ex.Name()] = "sin contenido"
			continue
		}
		doc.FileName = fileName
		doc.Backend = ex.Name()
		return doc, nil
	}
	return nil, failure
}

// TextExtractor reads text that was already extracted, e.g. a saved pdftotext output
type TextExtractor struct{}

func NewTextExtractor() *TextExtractor {
	return &TextExtractor{}
}

func (e *TextExtractor) Name() string { return "text" }

func (e *TextExtractor) Accepts(fileName string, _ []byte) bool {
	return hasExt(fileName, ".txt")
}

func (e *TextExtractor) Extract(_ context.Context, data []byte) (*Document, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("text is not valid UTF-8")
	}
	return &Document{Text: Normalize(string(data))}, nil
}

// Normalize unifies line endings and blank runes so that parsers can rely on
// "\n" separated lines and plain spaces.
func Normalize(s string) string {
	replacer := strings.NewReplacer("\r\n", "\n", "\r", "\n", "\t", " ", "\u00a0", " ", "\u200b", "", "\f", "\n")
	s = replacer.Replace(s)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}

func hasExt(fileName string, exts ...string) bool {
	ext := strings.ToLower(filepath.Ext(fileName))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

func isPDF(fileName string, data []byte) bool {
	return hasExt(fileName, ".pdf") || strings.HasPrefix(string(data[:min(len(data), 5)]), "%PDF")
}
