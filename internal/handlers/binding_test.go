package handlers

import (
	"bytes"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type resolveBody struct {
	BrokerID uint            `json:"broker_id"`
	Amount   decimal.Decimal `json:"amount"`
}

func TestBindNestedOrFlat(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name        string
		key         string
		body        string
		expected    resolveBody
		expectError bool
	}{
		{
			name:     "wrapped under key",
			key:      "resolution",
			body:     `{"resolution": {"broker_id": 7, "amount": "12.50"}}`,
			expected: resolveBody{BrokerID: 7, Amount: decimal.RequireFromString("12.50")},
		},
		{
			name:     "flat body",
			key:      "resolution",
			body:     `{"broker_id": 3, "amount": 80}`,
			expected: resolveBody{BrokerID: 3, Amount: decimal.NewFromInt(80)},
		},
		{
			name:     "other keys fall back to flat",
			key:      "resolution",
			body:     `{"note": "manual", "broker_id": 9, "amount": "1.00"}`,
			expected: resolveBody{BrokerID: 9, Amount: decimal.RequireFromString("1.00")},
		},
		{
			name:        "wrong type",
			key:         "resolution",
			body:        `{"broker_id": "B001"}`,
			expectError: true,
		},
		{
			name:        "wrapped with wrong type",
			key:         "resolution",
			body:        `{"resolution": {"broker_id": "B001"}}`,
			expectError: true,
		},
		{
			name:        "key holds a string",
			key:         "resolution",
			body:        `{"resolution": "B001"}`,
			expectError: true,
		},
		{
			name:        "bad amount",
			key:         "resolution",
			body:        `{"broker_id": 1, "amount": "uno"}`,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("POST", "/", bytes.NewBufferString(tt.body))
			c.Request.Header.Set("Content-Type", "application/json")

			var result resolveBody
			err := BindNestedOrFlat(c, tt.key, &result)

			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected.BrokerID, result.BrokerID)
			assert.True(t, tt.expected.Amount.Equal(result.Amount), "amount %s", result.Amount)
		})
	}
}
