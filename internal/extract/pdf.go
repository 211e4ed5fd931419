package extract

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor reads the embedded text layer, one output line per text row
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

func (e *PDFExtractor) Name() string { return "pdf" }

func (e *PDFExtractor) Accepts(fileName string, data []byte) bool {
	return isPDF(fileName, data)
}

func (e *PDFExtractor) Extract(ctx context.Context, data []byte) (doc *Document, err error) {
	// the pdf package panics on some malformed xref tables
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		for _, row := range rows {
			b.WriteString(joinRow(row.Content))
			b.WriteByte('\n')
		}
	}
	return &Document{Text: Normalize(b.String())}, nil
}

// joinRow glues text runs of one row, inserting a space where the horizontal
// gap between runs is wider than a fraction of the font size.
func joinRow(words pdf.TextHorizontal) string {
	var b strings.Builder
	prevEnd := math.Inf(-1)
	for _, w := range words {
		if b.Len() > 0 && w.X-prevEnd > w.FontSize*0.2 {
			b.WriteByte(' ')
		}
		b.WriteString(w.S)
		prevEnd = w.X + w.W
	}
	return b.String()
}

// CommandExtractor pipes the file through an external program and reads text from stdout
type CommandExtractor struct {
	name    string
	accepts func(string, []byte) bool
	path    string
	args    []string
}

func NewCommandExtractor(name string, accepts func(string, []byte) bool, path string, args ...string) *CommandExtractor {
	return &CommandExtractor{name: name, accepts: accepts, path: path, args: args}
}

func (e *CommandExtractor) Name() string { return e.name }

func (e *CommandExtractor) Accepts(fileName string, data []byte) bool {
	if e.accepts == nil {
		return true
	}
	return e.accepts(fileName, data)
}

func (e *CommandExtractor) Extract(ctx context.Context, data []byte) (*Document, error) {
	cmd := exec.CommandContext(ctx, e.path, e.args...)
	cmd.Stdin = bytes.NewReader(data)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s failed: %w: %s", e.path, err, Truncate(strings.TrimSpace(stderr.String()), 200))
	}
	return &Document{Text: Normalize(stdout.String())}, nil
}
