package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"intellicourse/models"
)

func TestExportPaymentsWorkbook(t *testing.T) {
	now := time.Now()
	payments := []models.Payment{
		{
			ID: "pay-1",
			Request: models.PaymentRequest{
				CourseID: 1, Method: models.MethodBitcoin, Currency: "ZAR", UserID: "buyer@example.com",
			},
			Status:         models.StatusConfirmed,
			AmountZAR:      decimal.NewFromInt(1000),
			CryptoAmount:   decimal.RequireFromString("0.00285714"),
			CryptoCurrency: "BTC",
			DownloadID:     "dl-1",
			CreatedAt:      now,
			ConfirmedAt:    &now,
		},
	}
	payouts := []models.PayoutSplit{
		{
			PaymentID: "pay-1",
			Total:     decimal.NewFromInt(1000),
			Buckets: []models.PayoutBucket{
				{Label: "platform", Percentage: decimal.RequireFromString("0.4"), Amount: decimal.NewFromInt(400)},
			},
			DistributedAt: now,
		},
	}

	f, err := ExportPaymentsWorkbook(payments, payouts)
	if err != nil {
		t.Fatalf("ExportPaymentsWorkbook: %v", err)
	}
	defer f.Close()

	for _, sheet := range []string{"Payments", "Payouts"} {
		if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
			t.Errorf("missing sheet %q", sheet)
		}
	}

	rows, err := f.GetRows("Payments")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Payments rows = %d, want header + 1", len(rows))
	}
}
