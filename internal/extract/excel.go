package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExcelExtractor reads the first sheet of an xlsx workbook
type ExcelExtractor struct{}

func NewExcelExtractor() *ExcelExtractor {
	return &ExcelExtractor{}
}

func (e *ExcelExtractor) Name() string { return "excel" }

func (e *ExcelExtractor) Accepts(fileName string, data []byte) bool {
	// xlsx is a zip container
	return hasExt(fileName, ".xlsx", ".xlsm") || bytes.HasPrefix(data, []byte("PK\x03\x04"))
}

func (e *ExcelExtractor) Extract(ctx context.Context, data []byte) (*Document, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return &Document{Rows: trimRows(rows)}, nil
}

// CSVExtractor reads comma or semicolon separated exports
type CSVExtractor struct{}

func NewCSVExtractor() *CSVExtractor {
	return &CSVExtractor{}
}

func (e *CSVExtractor) Name() string { return "csv" }

func (e *CSVExtractor) Accepts(fileName string, _ []byte) bool {
	return hasExt(fileName, ".csv")
}

func (e *CSVExtractor) Extract(ctx context.Context, data []byte) (*Document, error) {
	first, _, _ := strings.Cut(string(data), "\n")
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	if strings.Count(first, ";") > strings.Count(first, ",") {
		r.Comma = ';'
	}
	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		rows = append(rows, rec)
	}
	return &Document{Rows: trimRows(rows)}, nil
}

func trimRows(rows [][]string) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		blank := true
		for i := range r {
			r[i] = strings.TrimSpace(strings.ReplaceAll(r[i], "\u00a0", " "))
			if r[i] != "" {
				blank = false
			}
		}
		if !blank {
			out = append(out, r)
		}
	}
	return out
}
