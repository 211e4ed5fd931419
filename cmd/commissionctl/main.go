package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sjperalta/comisiones-api/internal/extract"
	"github.com/sjperalta/comisiones-api/internal/parsers"
	"github.com/sjperalta/comisiones-api/internal/services"
	"github.com/sjperalta/comisiones-api/pkg/logger"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var debug bool
	root := &cobra.Command{
		Use:           "commissionctl",
		Short:         "Offline tools for carrier commission statements",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Setup("development", logger.Options{Debug: debug})
		},
	}
	root.PersistentFlags().BoolVar(&debug, "debug", false, "log parser diagnostics")
	root.AddCommand(newParseCmd(), newCarriersCmd(), newValidateCodeCmd())
	return root
}

func newParseCmd() *cobra.Command {
	var insurer, file string
	var asJSON bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Parse a statement and print its rows, totals and diagnostics without touching the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			report, err := parseStatement(ctx, insurer, filepath.Base(file), data)
			if err != nil {
				var perr *parsers.ParseError
				if errors.As(err, &perr) {
					fmt.Fprintf(cmd.ErrOrStderr(), "--- snippet ---\n%s\n---------------\n", perr.Snippet)
				}
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return report.print(cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&insurer, "insurer", "", "carrier key, see the carriers command")
	cmd.Flags().StringVar(&file, "file", "", "statement file (pdf, xlsx, csv, txt)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Minute, "extraction and parse deadline")
	_ = cmd.MarkFlagRequired("insurer")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newCarriersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "carriers",
		Short: "List supported carriers",
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tNAME\tFORMAT\tBASIS\tAGENT CODES")
			for _, c := range parsers.Default().Carriers() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", c.Key(), c.Name(), c.Format(), c.Basis(), c.AgentCodes())
			}
			return tw.Flush()
		},
	}
}

func newValidateCodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-code CODE...",
		Short: "Check agent codes against ASSA_CODE_PREFIX and ASSA_EXCLUDED_CODES",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := codeValidatorFromEnv()
			invalid := 0
			for _, code := range args {
				if err := v.Validate(code); err != nil {
					invalid++
					fmt.Fprintf(cmd.OutOrStdout(), "%s\tINVALID\t%v\n", code, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tOK\n", services.NormalizeAgentCode(code))
			}
			if invalid > 0 {
				return fmt.Errorf("%d código(s) inválido(s)", invalid)
			}
			return nil
		},
	}
}

// codeValidatorFromEnv reads only the agent-code keys; config.Load would demand DATABASE_URL
func codeValidatorFromEnv() services.CodeValidator {
	prefix := os.Getenv("ASSA_CODE_PREFIX")
	if prefix == "" {
		prefix = "PJ750"
	}
	var excluded []string
	for _, c := range strings.Split(os.Getenv("ASSA_EXCLUDED_CODES"), ",") {
		if c = strings.TrimSpace(c); c != "" {
			excluded = append(excluded, c)
		}
	}
	return services.NewCodeValidator(prefix, excluded)
}

type parseReport struct {
	Insurer       string                   `json:"insurer"`
	Backend       string                   `json:"backend"`
	Rows          []services.NormalizedRow `json:"rows"`
	Duplicates    int                      `json:"duplicates"`
	ComputedTotal decimal.Decimal          `json:"computed_total"`
	DeclaredTotal decimal.NullDecimal      `json:"declared_total"`
	Diagnostics   []string                 `json:"diagnostics,omitempty"`
}

func parseStatement(ctx context.Context, insurer, fileName string, data []byte) (*parseReport, error) {
	carrier, err := parsers.Default().Get(insurer)
	if err != nil {
		return nil, err
	}
	opts := extract.Options{PdfToTextPath: os.Getenv("PDFTOTEXT_PATH"), OCRCommand: os.Getenv("OCR_COMMAND")}
	if opts.PdfToTextPath == "" {
		opts.PdfToTextPath = "pdftotext"
	}
	doc, err := extract.Default(opts).Extract(ctx, fileName, data)
	if err != nil {
		return nil, err
	}
	res, err := parsers.Run(carrier, doc)
	if err != nil {
		return nil, err
	}

	rows, dupes := services.Normalize(carrier, res.Rows)
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Amount)
	}
	return &parseReport{
		Insurer:       carrier.Key(),
		Backend:       doc.Backend,
		Rows:          rows,
		Duplicates:    dupes,
		ComputedTotal: total,
		DeclaredTotal: res.DeclaredTotal,
		Diagnostics:   res.Diagnostics,
	}, nil
}

func (r *parseReport) print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tIDENTIFIER\tCLIENT\tPRODUCT\tAMOUNT")
	for i, row := range r.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, row.RawIdentifier(), row.ClientName, row.ProductCode, row.Amount.StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\ncarrier: %s  backend: %s  rows: %d  duplicates dropped: %d\n", r.Insurer, r.Backend, len(r.Rows), r.Duplicates)
	fmt.Fprintf(w, "computed total: %s\n", r.ComputedTotal.StringFixed(2))
	if r.DeclaredTotal.Valid {
		variance := r.DeclaredTotal.Decimal.Sub(r.ComputedTotal)
		fmt.Fprintf(w, "declared total: %s  variance: %s\n", r.DeclaredTotal.Decimal.StringFixed(2), variance.StringFixed(2))
	}
	for _, d := range r.Diagnostics {
		fmt.Fprintf(w, "note: %s\n", d)
	}
	return nil
}
