package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

const (
	summarySheet = "summary"
	daysSheet    = "days"
)

// BuildXLSX renders a summary sheet with period totals and a days sheet with one row per day.
func BuildXLSX(s *Summary) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(daysSheet); err != nil {
		return nil, err
	}

	currency := string(s.Currency)
	_ = f.SetCellValue(summarySheet, "A1", "Cost Breakdown")
	_ = f.SetCellValue(summarySheet, "A3", "From")
	_ = f.SetCellValue(summarySheet, "B3", s.From.Format(time.DateOnly))
	_ = f.SetCellValue(summarySheet, "A4", "To")
	_ = f.SetCellValue(summarySheet, "B4", s.To.Format(time.DateOnly))
	_ = f.SetCellValue(summarySheet, "A5", fmt.Sprintf("Quantity (%s)", s.QuantityUnit))
	_ = f.SetCellValue(summarySheet, "B5", s.Quantity.InexactFloat64())

	row := 7
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Component")
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), fmt.Sprintf("Amount (%s)", currency))
	for _, name := range s.Components {
		row++
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), name)
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), s.Amounts[name].InexactFloat64())
	}
	row++
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", row), "Total")
	_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), s.Total.InexactFloat64())

	header := []any{"Day", fmt.Sprintf("Quantity (%s)", s.QuantityUnit)}
	for _, name := range s.Components {
		header = append(header, name)
	}
	header = append(header, "Total")
	if err := f.SetSheetRow(daysSheet, "A1", &header); err != nil {
		return nil, errors.Wrap(err, "writing header")
	}
	for i, day := range s.Days {
		values := []any{day.Date.Format(time.DateOnly), day.Quantity.InexactFloat64()}
		for _, c := range day.Costs {
			values = append(values, c.InexactFloat64())
		}
		values = append(values, day.Total.InexactFloat64())
		if err := f.SetSheetRow(daysSheet, fmt.Sprintf("A%d", i+2), &values); err != nil {
			return nil, errors.Wrapf(err, "writing %s", day.Date.Format(time.DateOnly))
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
