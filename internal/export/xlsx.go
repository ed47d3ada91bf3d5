package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Simplici0/woodshop/internal/pricesheet"
)

// SheetName is the worksheet WriteXLSX fills.
const SheetName = "Price Sheet"

var xlsxHeader = []string{
	"Kind", "Item", "Cost", "Wholesale", "MSRP",
	"Labor", "Materials", "CNC", "Overhead", "Components", "Version", "Priced",
}

// WriteXLSX writes one row per item to w as an Excel workbook.
func WriteXLSX(w io.Writer, items []pricesheet.Item) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("rename worksheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return fmt.Errorf("create money style: %w", err)
	}

	for col, title := range xlsxHeader {
		if err := setCell(f, col+1, 1, title); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(SheetName, "A1", "L1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, item := range items {
		s := Summarize(item)
		row := i + 2
		values := []any{
			string(s.Kind),
			s.Label,
			Money(s.Cost).InexactFloat64(),
			Money(s.Prices.Wholesale).InexactFloat64(),
			Money(s.Prices.MSRP).InexactFloat64(),
			Money(s.LaborCost).InexactFloat64(),
			Money(s.Material).InexactFloat64(),
			Money(s.CNC.Cost.Float()).InexactFloat64(),
			Money(s.Overhead.Cost.Float()).InexactFloat64(),
			Money(s.Components).InexactFloat64(),
			s.Version,
			formatPriced(s.PricedAt),
		}
		for col, v := range values {
			if err := setCell(f, col+1, row, v); err != nil {
				return err
			}
		}
	}

	if len(items) > 0 {
		last := fmt.Sprintf("J%d", len(items)+1)
		if err := f.SetCellStyle(SheetName, "C2", last, money); err != nil {
			return fmt.Errorf("style amounts: %w", err)
		}
	}
	if err := f.SetColWidth(SheetName, "B", "B", 36); err != nil {
		return fmt.Errorf("size item column: %w", err)
	}
	if err := f.SetColWidth(SheetName, "L", "L", 22); err != nil {
		return fmt.Errorf("size priced column: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func setCell(f *excelize.File, col, row int, v any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("cell name: %w", err)
	}
	if err := f.SetCellValue(SheetName, cell, v); err != nil {
		return fmt.Errorf("set cell %s: %w", cell, err)
	}
	return nil
}

func formatPriced(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
