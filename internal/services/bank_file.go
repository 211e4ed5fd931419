package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/comisiones-api/internal/models"
	"github.com/sjperalta/comisiones-api/internal/parsers"
)

// ACH account type codes
const (
	achSavings  = "04"
	achChecking = "03"
)

const (
	maxBeneficiaryLen = 60
	maxReferenceLen   = 80
)

// BankFileRow is one transfer of the payment file
type BankFileRow struct {
	BrokerID    uint            `json:"broker_id"`
	Name        string          `json:"name"`
	Routing     string          `json:"routing"`
	Account     string          `json:"account"`
	AccountType string          `json:"account_type"`
	Amount      decimal.Decimal `json:"amount"`
}

// BankFile is an emitted payment file
type BankFile struct {
	FileName string          `json:"file_name"`
	Batch    string          `json:"batch"`
	Rows     []BankFileRow   `json:"rows"`
	Total    decimal.Decimal `json:"total"`
	Content  []byte          `json:"-"`
}

// BankFileGenerator renders fortnight totals as a CSV transfer file, one row per
// payable broker: beneficiary, routing, account, account type, amount, credit flag
// and reference. An optional control line leads the file when an origin account is set.
type BankFileGenerator struct {
	originAccount string
	description   string
}

func NewBankFileGenerator(originAccount, description string) *BankFileGenerator {
	return &BankFileGenerator{originAccount: originAccount, description: description}
}

// Payable filters totals down to brokers paid by transfer this fortnight
func (g *BankFileGenerator) Payable(totals []models.FortnightBrokerTotal, brokers map[uint]models.Broker) []BankFileRow {
	rows := make([]BankFileRow, 0, len(totals))
	for _, t := range totals {
		if t.Retained || !t.NetAmount.IsPositive() {
			continue
		}
		b, ok := brokers[t.BrokerID]
		if !ok || !b.HasBankAccount() {
			continue
		}
		rows = append(rows, BankFileRow{
			BrokerID:    b.ID,
			Name:        beneficiaryName(b.Name),
			Routing:     strings.TrimSpace(b.BankRouting),
			Account:     strings.ReplaceAll(strings.TrimSpace(b.BankAccountNumber), "-", ""),
			AccountType: accountTypeCode(b.BankAccountType),
			Amount:      t.NetAmount.Round(2),
		})
	}
	return rows
}

// Generate builds the file for a fortnight
func (g *BankFileGenerator) Generate(f *models.Fortnight, batch string, totals []models.FortnightBrokerTotal, brokers map[uint]models.Broker) (*BankFile, error) {
	rows := g.Payable(totals, brokers)
	total := decimal.Zero
	for _, r := range rows {
		total = total.Add(r.Amount)
	}

	ref := truncate(strings.TrimSpace(g.description+" "+f.Label()), maxReferenceLen)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if g.originAccount != "" {
		if err := w.Write([]string{"H", g.originAccount, f.PeriodEnd.Format("20060102"), fmt.Sprint(len(rows)), total.StringFixed(2), batch}); err != nil {
			return nil, err
		}
	}
	for _, r := range rows {
		record := []string{r.Name, r.Routing, r.Account, r.AccountType, r.Amount.StringFixed(2), "C", ref}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to write bank file: %w", err)
	}

	return &BankFile{
		FileName: fmt.Sprintf("pago_comisiones_%s.csv", strings.ReplaceAll(f.Label(), " ", "_")),
		Batch:    batch,
		Rows:     rows,
		Total:    total,
		Content:  buf.Bytes(),
	}, nil
}

// beneficiaryName folds accents and keeps the characters banks accept
func beneficiaryName(name string) string {
	folded := parsers.Fold(name)
	out := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == ' ':
			return r
		default:
			return ' '
		}
	}, folded)
	return truncate(strings.Join(strings.Fields(out), " "), maxBeneficiaryLen)
}

func accountTypeCode(t string) string {
	if strings.EqualFold(t, models.AccountTypeChecking) {
		return achChecking
	}
	return achSavings
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
