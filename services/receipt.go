package services

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jung-kurt/gofpdf"

	"intellicourse/models"
)

// GenerateReceipt creates a PDF receipt for a confirmed payment and returns
// the path of the generated file. The caller owns the file.
func GenerateReceipt(p *models.Payment) (string, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(40, 10, "IntelliCourse Academy - Payment Receipt")
	pdf.Ln(14)

	pdf.SetFont("Arial", "", 12)
	pdf.Cell(40, 10, fmt.Sprintf("Payment ID: %s", p.ID))
	pdf.Ln(8)
	pdf.Cell(40, 10, fmt.Sprintf("Reference: %s", p.Reference))
	pdf.Ln(8)
	pdf.Cell(40, 10, fmt.Sprintf("Method: %s", p.Request.Method))
	pdf.Ln(8)
	pdf.Cell(40, 10, fmt.Sprintf("Amount: R %s", p.AmountZAR.StringFixed(2)))
	pdf.Ln(8)
	if p.CryptoCurrency != "" {
		pdf.Cell(40, 10, fmt.Sprintf("Settled: %s %s", p.CryptoAmount.String(), p.CryptoCurrency))
		pdf.Ln(8)
	}
	if p.ConfirmedAt != nil {
		pdf.Cell(40, 10, fmt.Sprintf("Confirmed: %s", p.ConfirmedAt.Format(time.RFC1123)))
		pdf.Ln(8)
	}
	pdf.Cell(40, 10, fmt.Sprintf("Download ID: %s", p.DownloadID))
	pdf.Ln(14)
	pdf.Cell(40, 10, "Thank you for learning with us.")

	fileName := filepath.Join(os.TempDir(), fmt.Sprintf("receipt_%s.pdf", p.ID))
	if err := pdf.OutputFileAndClose(fileName); err != nil {
		return "", fmt.Errorf("error generating receipt PDF: %w", err)
	}

	return fileName, nil
}
