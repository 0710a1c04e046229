package pdf

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Bodega-api/internal/application/dto"
)

func TestFormatMoney(t *testing.T) {
	tests := map[string]string{
		"0":        "0,00",
		"25000":    "25.000,00",
		"1234.5":   "1.234,50",
		"1000000":  "1.000.000,00",
		"-9876.25": "-9.876,25",
	}
	for in, want := range tests {
		assert.Equal(t, want, formatMoney(decimal.RequireFromString(in)), in)
	}
}

func TestGenerateIssuanceSlip(t *testing.T) {
	confirmed := time.Date(2025, 5, 12, 10, 30, 0, 0, time.UTC)
	slip := dto.IssuanceResponse{
		Number:      "BS-20250512-0001",
		Workshop:    "Atelier Mécanique",
		Reason:      "Maintenance presse",
		IssueDate:   confirmed,
		Status:      "CONFIRMED",
		ConfirmedAt: &confirmed,
		TotalAmount: decimal.NewFromInt(96),
		Lines: []dto.IssuanceLineResponse{
			{
				LineNo: 1, ProductID: "p1", ProductReference: "GANTS", ProductName: "Gants nitrile",
				Quantity: decimal.NewFromInt(7), Amount: decimal.NewFromInt(90),
				Draws: []dto.LotDraw{
					{LotNumber: "L1", Quantity: decimal.NewFromInt(5), UnitPrice: decimal.NewFromInt(10)},
					{LotNumber: "L2", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(20)},
				},
			},
		},
	}

	b, err := NewMarotoPDFGenerator("").GenerateIssuanceSlip(slip)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF")))
}
