package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"salesdash/internal/models"
)

const (
	SheetSummary       = "Summary"
	SheetMonthly       = "Monthly"
	SheetCategories    = "Categories"
	SheetRegions       = "Regions"
	SheetSegments      = "Segments"
	SheetStates        = "States"
	SheetStateCategory = "StateCategory"
	SheetTopProducts   = "TopProducts"
)

// WriteWorkbook renders every dashboard series onto its own sheet.
func WriteWorkbook(w io.Writer, data *models.DashboardData) error {
	f, err := Workbook(data)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// Workbook builds the in-memory workbook. Callers own Close.
func Workbook(data *models.DashboardData) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, err
	}

	s := data.Stats
	summary := [][]any{
		{"Total", s.Total},
		{"Average", s.Average},
		{"Max", s.Max},
		{"Min", s.Min},
		{"Count", s.Count},
	}

	sheets := []struct {
		name    string
		headers []string
		rows    [][]any
	}{
		{SheetSummary, []string{"Metric", "Value"}, summary},
		{SheetMonthly, []string{"Month", "Sales"}, rowsOf(data.Monthly, func(m models.MonthlySales) []any { return []any{m.Date, m.Sales} })},
		{SheetCategories, []string{"Category", "Sales"}, rowsOf(data.Categories, func(c models.CategorySales) []any { return []any{c.Category, c.Sales} })},
		{SheetRegions, []string{"Region", "Sales"}, rowsOf(data.Regions, func(r models.RegionSales) []any { return []any{r.Region, r.Sales} })},
		{SheetSegments, []string{"Segment", "Sales"}, rowsOf(data.Segments, func(s models.SegmentSales) []any { return []any{s.Segment, s.Sales} })},
		{SheetStates, []string{"State", "Sales"}, rowsOf(data.States, func(s models.StateSales) []any { return []any{s.State, s.Sales} })},
		{SheetStateCategory, []string{"State", "Category", "Sales"}, rowsOf(data.StateCategory, func(s models.StateCategorySales) []any { return []any{s.State, s.Category, s.Sales} })},
		{SheetTopProducts, []string{"Product", "Sales"}, rowsOf(data.TopProducts, func(p models.ProductSales) []any { return []any{p.Name, p.Sales} })},
	}

	for _, sh := range sheets {
		if sh.name != SheetSummary {
			if _, err := f.NewSheet(sh.name); err != nil {
				f.Close()
				return nil, err
			}
		}
		if err := writeTable(f, sh.name, sh.headers, sh.rows); err != nil {
			f.Close()
			return nil, fmt.Errorf("sheet %s: %w", sh.name, err)
		}
	}
	return f, nil
}

func rowsOf[T any](items []T, row func(T) []any) [][]any {
	out := make([][]any, len(items))
	for i, it := range items {
		out[i] = row(it)
	}
	return out
}

func writeTable(f *excelize.File, sheet string, headers []string, rows [][]any) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	lastCol, err := excelize.ColumnNumberToName(len(headers))
	if err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", lastCol, 18)
}
