package services

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"intellicourse/models"
)

// ExportPaymentsWorkbook builds an Excel workbook with one sheet of payments
// and one of payout distributions, for the admin dashboard export.
func ExportPaymentsWorkbook(payments []models.Payment, payouts []models.PayoutSplit) (*excelize.File, error) {
	f := excelize.NewFile()

	const paymentsSheet = "Payments"
	if err := f.SetSheetName("Sheet1", paymentsSheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}

	headers := []string{"ID", "Course", "Method", "Status", "Amount (ZAR)", "Currency", "Reference", "Download ID", "Created", "Confirmed"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(paymentsSheet, cell, h)
	}

	for row, p := range payments {
		confirmed := ""
		if p.ConfirmedAt != nil {
			confirmed = p.ConfirmedAt.Format(time.RFC3339)
		}
		values := []interface{}{
			p.ID,
			p.Request.CourseID,
			string(p.Request.Method),
			string(p.Status),
			p.AmountZAR.StringFixed(2),
			p.Request.Currency,
			p.Reference,
			p.DownloadID,
			p.CreatedAt.Format(time.RFC3339),
			confirmed,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(paymentsSheet, cell, v)
		}
	}

	const payoutsSheet = "Payouts"
	if _, err := f.NewSheet(payoutsSheet); err != nil {
		return nil, fmt.Errorf("failed to create payouts sheet: %w", err)
	}

	payoutHeaders := []string{"Payment ID", "Bucket", "Percentage", "Amount (ZAR)", "Distributed"}
	for i, h := range payoutHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(payoutsSheet, cell, h)
	}

	row := 2
	for _, split := range payouts {
		for _, bucket := range split.Buckets {
			values := []interface{}{
				split.PaymentID,
				bucket.Label,
				bucket.Percentage.String(),
				bucket.Amount.StringFixed(2),
				split.DistributedAt.Format(time.RFC3339),
			}
			for col, v := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				f.SetCellValue(payoutsSheet, cell, v)
			}
			row++
		}
	}

	return f, nil
}
