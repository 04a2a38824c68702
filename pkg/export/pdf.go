package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// BuildPDF renders a one-page statement with period totals followed by the daily table.
func BuildPDF(s *Summary) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	// Core fonts are cp1252, which has €
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	currency := tr(string(s.Currency))

	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Cost Breakdown")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s to %s", s.From.Format(time.DateOnly), s.To.Format(time.DateOnly)))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Quantity (%s): %s", s.QuantityUnit, s.Quantity.StringFixed(quantityPlaces)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(80, 6, "Component", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 6, fmt.Sprintf("Amount (%s)", currency), "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, name := range s.Components {
		pdf.CellFormat(80, 6, tr(name), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, s.Amounts[name].StringFixed(amountPlaces), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(80, 6, "Total", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 6, s.Total.StringFixed(amountPlaces), "1", 0, "R", false, 0, "")
	pdf.Ln(10)

	// Daily table
	pdf.CellFormat(30, 6, "Day", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, fmt.Sprintf("Quantity (%s)", s.QuantityUnit), "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, fmt.Sprintf("Total (%s)", currency), "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, day := range s.Days {
		pdf.CellFormat(30, 6, day.Date.Format(time.DateOnly), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, day.Quantity.StringFixed(quantityPlaces), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, day.Total.StringFixed(dailyPlaces), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
