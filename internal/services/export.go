package services

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/codyseavey/bank-tracker/internal/models"
)

const (
	exportSheet     = "Valuation"
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// WriteValuationXLSX writes the per-item valuations of a bank to w as a workbook
// with one sheet and a totals row at the bottom
func WriteValuationXLSX(w io.Writer, valuation *models.BankValuation) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	header := []interface{}{"Name", "Quantity", "Low value", "Mean value", "High value"}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	row := 2
	for _, item := range valuation.Items {
		cell, _ := excelize.CoordinatesToCellName(1, row)
		values := []interface{}{
			item.Name,
			item.Quantity,
			item.LowValue,
			item.MeanValue.InexactFloat64(),
			item.HighValue,
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
		row++
	}

	totalsCell, _ := excelize.CoordinatesToCellName(1, row)
	totals := []interface{}{
		"Total",
		nil,
		valuation.Totals.Low,
		valuation.Totals.Mean.InexactFloat64(),
		valuation.Totals.High,
	}
	if err := f.SetSheetRow(exportSheet, totalsCell, &totals); err != nil {
		return fmt.Errorf("failed to write totals: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	numbers, err := f.NewStyle(&excelize.Style{NumFmt: 3}) // #,##0
	if err != nil {
		return err
	}
	boldNumbers, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: 3})
	if err != nil {
		return err
	}

	lastCell, _ := excelize.CoordinatesToCellName(len(header), row)
	if err := f.SetCellStyle(exportSheet, "A1", "E1", bold); err != nil {
		return err
	}
	if row > 2 {
		lastItemCell, _ := excelize.CoordinatesToCellName(len(header), row-1)
		if err := f.SetCellStyle(exportSheet, "B2", lastItemCell, numbers); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(exportSheet, totalsCell, lastCell, boldNumbers); err != nil {
		return err
	}
	_ = f.SetColWidth(exportSheet, "A", "A", 36)
	_ = f.SetColWidth(exportSheet, "B", "E", 16)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
