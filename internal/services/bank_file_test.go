package services

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/sjperalta/comisiones-api/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bankFixture() (*models.Fortnight, []models.FortnightBrokerTotal, map[uint]models.Broker) {
	f := &models.Fortnight{
		ID:          4,
		PeriodStart: time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC),
		PeriodEnd:   time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Status:      models.FortnightStatusDraft,
	}
	brokers := map[uint]models.Broker{
		1: {ID: 1, Name: "José Núñez & Asociados", BankRouting: "71", BankAccountNumber: "04-12-345678", BankAccountType: models.AccountTypeChecking},
		2: {ID: 2, Name: "Ana Ruiz", BankRouting: "22", BankAccountNumber: "998877", BankAccountType: models.AccountTypeSavings},
		3: {ID: 3, Name: "Sin Cuenta"},
		4: {ID: 4, Name: "Retenido", BankRouting: "71", BankAccountNumber: "1"},
	}
	totals := []models.FortnightBrokerTotal{
		{BrokerID: 1, NetAmount: dec("1200.456")},
		{BrokerID: 2, NetAmount: dec("80")},
		{BrokerID: 3, NetAmount: dec("50")},
		{BrokerID: 4, NetAmount: dec("70"), Retained: true},
		{BrokerID: 5, NetAmount: dec("10")},
		{BrokerID: 6, NetAmount: dec("0")},
	}
	return f, totals, brokers
}

func TestBankFile_OnlyPayableBrokers(t *testing.T) {
	f, totals, brokers := bankFixture()
	gen := NewBankFileGenerator("", "PAGO COMISIONES")

	file, err := gen.Generate(f, "batch-1", totals, brokers)
	require.NoError(t, err)

	require.Len(t, file.Rows, 2)
	assert.Equal(t, "pago_comisiones_2024-03_Q2.csv", file.FileName)
	assert.Equal(t, "1280.46", file.Total.StringFixed(2))

	records, err := csv.NewReader(strings.NewReader(string(file.Content))).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"JOSE NUNEZ ASOCIADOS", "71", "0412345678", "03", "1200.46", "C", "PAGO COMISIONES 2024-03 Q2"}, records[0])
	assert.Equal(t, "04", records[1][3])
}

func TestBankFile_ControlLineWithOriginAccount(t *testing.T) {
	f, totals, brokers := bankFixture()
	gen := NewBankFileGenerator("0300112233", "PAGO")

	file, err := gen.Generate(f, "batch-2", totals, brokers)
	require.NoError(t, err)

	reader := csv.NewReader(strings.NewReader(string(file.Content)))
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"H", "0300112233", "20240331", "2", "1280.46", "batch-2"}, records[0])
}

func TestBankFile_EmptyWhenNothingPayable(t *testing.T) {
	f, _, brokers := bankFixture()
	gen := NewBankFileGenerator("", "PAGO")

	file, err := gen.Generate(f, "b", nil, brokers)
	require.NoError(t, err)
	assert.Empty(t, file.Rows)
	assert.True(t, file.Total.IsZero())
	assert.Empty(t, file.Content)
}

func TestBeneficiaryName_Truncates(t *testing.T) {
	name := beneficiaryName(strings.Repeat("Ñandú ", 20))
	assert.LessOrEqual(t, len(name), maxBeneficiaryLen)
	assert.True(t, strings.HasPrefix(name, "NANDU NANDU"))
}
