package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailinsight/backend-go/internal/domain"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func writeSnapshot(t *testing.T, dir string) {
	writeFile(t, dir, SalesFile,
		"date,product_id,quantity_sold,revenue,store_id\n"+
			"2023-01-02,P1,4,50.00,S1\n"+
			"2023-01-01,P1,3,37.50,S1\n"+
			"2023-01-01,P2,10,40.00,S1\n")
	writeFile(t, dir, ProductsFile,
		"product_id,product_name,category,cost,margin_percent\n"+
			"P1,Rice 5kg,Staples,10.0,20\n"+
			"P2,Tea Box,Beverages,3.2,25\n")
	writeFile(t, dir, CalendarFile,
		"date,is_holiday,season_tag,weekday\n"+
			"2023-01-01,true,newyear,0\n"+
			"2023-01-02,false,regular,1\n")
}

func TestLoadSnapshot(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir)

	snap, err := Load(dir)
	require.NoError(t, err)

	assert.Len(t, snap.Sales, 3)
	assert.Equal(t, []domain.ProductID{"P1", "P2"}, snap.ProductIDs())
	assert.Equal(t, []string{"Beverages", "Staples"}, snap.Categories())

	// Per-product sales come back date sorted regardless of file order.
	sales := snap.SalesFor("P1")
	require.Len(t, sales, 2)
	assert.True(t, sales[0].Date.Before(sales[1].Date))

	cal, ok := snap.CalendarFor(sales[0].Date)
	require.True(t, ok)
	assert.True(t, cal.IsHoliday)
	assert.Equal(t, "newyear", cal.SeasonTag)

	product, ok := snap.Product("P2")
	require.True(t, ok)
	assert.Equal(t, 25.0, product.MarginPercent)
}

func TestLoadReordersColumns(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir)
	// Same columns, different order.
	writeFile(t, dir, SalesFile,
		"revenue,quantity_sold,product_id,date\n"+
			"12.50,1,P1,2023-01-01\n")

	snap, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, snap.Sales, 1)
	assert.Equal(t, int64(1), snap.Sales[0].QuantitySold)
	assert.Equal(t, "12.5", snap.Sales[0].Revenue.String())
}

func TestLoadRejectsMissingColumn(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir)
	writeFile(t, dir, SalesFile,
		"date,product_id,revenue\n2023-01-01,P1,10.00\n")

	_, err := Load(dir)
	require.Error(t, err)
	var violation *domain.SchemaViolationError
	assert.ErrorAs(t, err, &violation)
}

func TestLoadRejectsSalesDateOutsideCalendar(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir)
	writeFile(t, dir, SalesFile,
		"date,product_id,quantity_sold,revenue\n2024-06-01,P1,2,20.00\n")

	_, err := Load(dir)
	require.Error(t, err)
	var violation *domain.SchemaViolationError
	require.ErrorAs(t, err, &violation)
	assert.Equal(t, "sales", violation.Table)
}

func TestDailySeriesAggregatesWithinDay(t *testing.T) {
	dir := t.TempDir()
	writeSnapshot(t, dir)
	writeFile(t, dir, SalesFile,
		"date,product_id,quantity_sold,revenue\n"+
			"2023-01-01,P1,3,30.00\n"+
			"2023-01-01,P1,4,40.00\n"+
			"2023-01-02,P1,5,50.00\n")

	snap, err := Load(dir)
	require.NoError(t, err)

	series := snap.DailySeries("P1")
	require.Len(t, series, 2)
	assert.Equal(t, int64(7), series[0].Quantity)
	assert.Equal(t, int64(5), series[1].Quantity)
}
