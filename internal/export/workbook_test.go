package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"salesdash/internal/models"
)

func sampleDashboard() *models.DashboardData {
	return &models.DashboardData{
		Stats:      models.SalesStats{Total: 2088.47, Average: 348.08, Max: 957.58, Min: 14.62, Count: 6},
		Monthly:    []models.MonthlySales{{Date: "2015-11", Sales: 979.95}, {Date: "2016-06", Sales: 114.62}},
		Categories: []models.CategorySales{{Category: "Technology", Sales: 1057.58}},
		Regions:    []models.RegionSales{{Region: "South", Sales: 1973.85}, {Region: "West", Sales: 14.62}},
		StateCategory: []models.StateCategorySales{
			{State: "Kentucky", Category: "Furniture", Sales: 993.9},
		},
		TopProducts: []models.ProductSales{{Name: "Apple Phone", Sales: 1057.58}},
	}
}

func TestWriteWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, sampleDashboard()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{
		SheetSummary, SheetMonthly, SheetCategories, SheetRegions,
		SheetSegments, SheetStates, SheetStateCategory, SheetTopProducts,
	}, f.GetSheetList())

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"Metric", "Value"},
		{"Total", "2088.47"},
		{"Average", "348.08"},
		{"Max", "957.58"},
		{"Min", "14.62"},
		{"Count", "6"},
	}, summary)

	monthly, err := f.GetRows(SheetMonthly)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Month", "Sales"}, {"2015-11", "979.95"}, {"2016-06", "114.62"}}, monthly)

	sc, err := f.GetRows(SheetStateCategory)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"State", "Category", "Sales"}, {"Kentucky", "Furniture", "993.9"}}, sc)
}

func TestWorkbook_EmptySeriesKeepHeaders(t *testing.T) {
	f, err := Workbook(&models.DashboardData{})
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetSegments)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Segment", "Sales"}}, rows)

	v, err := f.GetCellValue(SheetSummary, "B6")
	require.NoError(t, err)
	assert.Equal(t, "0", v)
}
