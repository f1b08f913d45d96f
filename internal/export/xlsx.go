// Package export renders the report archive as an Excel workbook.
package export

import (
	"fmt"
	"io"

	"github.com/atinyakov/teashop/internal/models"
	"github.com/xuri/excelize/v2"
)

const (
	// SummarySheet has one row per report.
	SummarySheet = "Reports"
	// ItemsSheet has one row per billed line item.
	ItemsSheet = "Items"
)

var (
	summaryHeader = []any{"Date", "Total Qty", "Total Amount"}
	itemsHeader   = []any{"Date", "ID", "Name", "Price", "Count", "Amount"}
)

// WriteReports writes reports, in the given order, as a two-sheet workbook.
func WriteReports(w io.Writer, reports []models.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(ItemsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	if err := setRow(f, SummarySheet, 1, summaryHeader); err != nil {
		return err
	}
	if err := setRow(f, ItemsSheet, 1, itemsHeader); err != nil {
		return err
	}

	itemRow := 2
	for i, r := range reports {
		summary := []any{r.Date, r.TotalQty, r.TotalAmount.InexactFloat64()}
		if err := setRow(f, SummarySheet, i+2, summary); err != nil {
			return err
		}
		for _, it := range r.Items {
			line := []any{r.Date, it.ID, it.Name, it.Price.InexactFloat64(), it.Count, it.Amount.InexactFloat64()}
			if err := setRow(f, ItemsSheet, itemRow, line); err != nil {
				return err
			}
			itemRow++
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
