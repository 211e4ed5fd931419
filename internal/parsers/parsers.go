// Package parsers holds one parsing strategy per insurance carrier. Each strategy
// is a pure function from extracted content to raw commission rows; carriers are
// looked up by key in a Registry.
package parsers

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/comisiones-api/internal/extract"
	"github.com/sjperalta/comisiones-api/internal/models"
)

// SnippetSize is how much normalized input a parse failure carries
const SnippetSize = 400

var (
	// ErrNoRows means the layout was not recognized; it is never "no commissions"
	ErrNoRows = errors.New("el parser no encontró filas de comisión")
	// ErrUnknownInsurer is returned for keys missing from the registry
	ErrUnknownInsurer = errors.New("aseguradora no soportada")
	// ErrWrongFormat is returned when a text parser receives a spreadsheet or vice versa
	ErrWrongFormat = errors.New("formato de archivo no corresponde a la aseguradora")
)

// Format tells which half of an extract.Document a carrier reads
type Format string

const (
	FormatRows Format = "rows"
	FormatText Format = "text"
)

// RawRow is one commission line as printed by the carrier
type RawRow struct {
	PolicyNumber string
	ClientName   string
	ProductCode  string
	AgentCode    string
	Section      string
	Amount       decimal.Decimal
	Percent      decimal.NullDecimal // carrier-printed percentage, informative
	Line         string              // source line or joined cells
}

// Result is the output of one parse
type Result struct {
	Rows []RawRow
	// DeclaredTotal is the statement total when the carrier prints one
	DeclaredTotal decimal.NullDecimal
	// Diagnostics are human-readable notes surfaced with the import
	Diagnostics []string
}

func (r *Result) note(format string, args ...any) {
	r.Diagnostics = append(r.Diagnostics, fmt.Sprintf(format, args...))
}

// Carrier is one carrier's parsing strategy
type Carrier interface {
	Key() string
	Name() string
	Format() Format
	// Basis is models.AmountBasisGross or models.AmountBasisBrokerNet
	Basis() string
	// AgentCodes is true for statements keyed by agent code instead of policy
	AgentCodes() bool
	Parse(doc *extract.Document) (*Result, error)
}

// ParseError reports a parser that could not match the layout. Kind is ErrNoRows or
// ErrWrongFormat; a nil Kind means ErrNoRows.
type ParseError struct {
	Insurer string
	Kind    error
	Rows    int
	Reason  string
	Snippet string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s [%s]: %s (filas=%d)", e.Unwrap(), e.Insurer, e.Reason, e.Rows)
}

func (e *ParseError) Unwrap() error {
	if e.Kind != nil {
		return e.Kind
	}
	return ErrNoRows
}

func noRows(insurer string, doc *extract.Document, reason string) *ParseError {
	return &ParseError{Insurer: insurer, Kind: ErrNoRows, Reason: reason, Snippet: doc.Snippet(SnippetSize)}
}

func wrongFormat(insurer string, doc *extract.Document, reason string) *ParseError {
	return &ParseError{Insurer: insurer, Kind: ErrWrongFormat, Rows: len(doc.Rows), Reason: reason, Snippet: doc.Snippet(SnippetSize)}
}

// Run parses doc with c and turns an empty result into a ParseError
func Run(c Carrier, doc *extract.Document) (*Result, error) {
	switch c.Format() {
	case FormatRows:
		if !doc.IsTabular() {
			return nil, wrongFormat(c.Key(), doc, "se esperaba una hoja de cálculo")
		}
	case FormatText:
		if doc.IsTabular() || strings.TrimSpace(doc.Text) == "" {
			return nil, wrongFormat(c.Key(), doc, "se esperaba un PDF con texto")
		}
	}

	res, err := c.Parse(doc)
	if err != nil {
		return nil, err
	}
	if len(res.Rows) == 0 {
		return nil, noRows(c.Key(), doc, "ninguna línea coincidió con el formato esperado")
	}
	return res, nil
}

// Registry maps carrier keys to strategies
type Registry struct {
	carriers map[string]Carrier
}

// NewRegistry creates a registry from the given carriers
func NewRegistry(carriers ...Carrier) *Registry {
	r := &Registry{carriers: make(map[string]Carrier, len(carriers))}
	for _, c := range carriers {
		r.Register(c)
	}
	return r
}

// Default returns every supported carrier
func Default() *Registry {
	return NewRegistry(
		NewAssa(),
		NewFedpa(),
		NewSura(),
		NewMapfre(),
		NewAncon(),
		NewInternacional(),
	)
}

// Register adds or replaces a carrier
func (r *Registry) Register(c Carrier) {
	r.carriers[strings.ToLower(c.Key())] = c
}

// Get looks a carrier up by key, case-insensitively
func (r *Registry) Get(key string) (Carrier, error) {
	c, ok := r.carriers[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownInsurer, key)
	}
	return c, nil
}

// Carriers returns all carriers sorted by key
func (r *Registry) Carriers() []Carrier {
	out := make([]Carrier, 0, len(r.carriers))
	for _, c := range r.carriers {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Keys returns the registered carrier keys, sorted
func (r *Registry) Keys() []string {
	carriers := r.Carriers()
	keys := make([]string, len(carriers))
	for i, c := range carriers {
		keys[i] = c.Key()
	}
	return keys
}

// base carries the descriptive half shared by every carrier
type base struct {
	key, name string
	format    Format
	basis     string
	codes     bool
}

func (b base) Key() string      { return b.key }
func (b base) Name() string     { return b.name }
func (b base) Format() Format   { return b.format }
func (b base) Basis() string    { return b.basis }
func (b base) AgentCodes() bool { return b.codes }

var (
	grossText = func(key, name string) base {
		return base{key: key, name: name, format: FormatText, basis: models.AmountBasisGross}
	}
	grossRows = func(key, name string) base {
		return base{key: key, name: name, format: FormatRows, basis: models.AmountBasisGross}
	}
)
