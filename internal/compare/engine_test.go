package compare

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailinsight/backend-go/internal/domain"
)

func record(productID domain.ProductID, date string, qty int64, revenue string) domain.SalesRecord {
	d, _ := time.Parse("2006-01-02", date)
	r, _ := decimal.NewFromString(revenue)
	return domain.SalesRecord{Date: d, ProductID: productID, QuantitySold: qty, Revenue: r}
}

func TestCompareReconcilesWithDirectSum(t *testing.T) {
	sales := []domain.SalesRecord{
		record("R1", "2022-01-05", 10, "100.50"),
		record("R1", "2022-07-20", 7, "70.35"),
		record("R1", "2023-02-14", 4, "44.00"),
		record("R2", "2022-03-03", 99, "990.00"), // other product, excluded
	}

	reports, err := NewEngine().Compare(sales, "R1", []int{2022, 2023})
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, 2022, reports[0].Year)
	assert.Equal(t, int64(17), reports[0].TotalQuantity)
	assert.True(t, reports[0].TotalRevenue.Equal(decimal.RequireFromString("170.85")),
		"revenue must reconcile exactly, got %s", reports[0].TotalRevenue)
	assert.Equal(t, int64(10), reports[0].MonthlyQuantity[0])
	assert.Equal(t, int64(7), reports[0].MonthlyQuantity[6])

	assert.Equal(t, 2023, reports[1].Year)
	assert.Equal(t, int64(4), reports[1].TotalQuantity)
}

func TestCompareZeroYearIsPresent(t *testing.T) {
	sales := []domain.SalesRecord{
		record("R1", "2022-05-01", 12, "120.00"),
	}

	reports, err := NewEngine().Compare(sales, "R1", []int{2022, 2023})
	require.NoError(t, err)
	require.Len(t, reports, 2, "a year with no records must still appear")

	assert.Equal(t, 2023, reports[1].Year)
	assert.Equal(t, int64(0), reports[1].TotalQuantity)
	assert.True(t, reports[1].TotalRevenue.IsZero())
	assert.Nil(t, reports[1].GrowthPct, "growth vs a year is defined, vs nothing sold it is not")
}

func TestCompareGrowthMetrics(t *testing.T) {
	sales := []domain.SalesRecord{
		record("R1", "2021-06-01", 50, "500.00"),
		record("R1", "2022-06-01", 75, "750.00"),
		record("R1", "2023-06-01", 60, "600.00"),
	}

	reports, err := NewEngine().Compare(sales, "R1", []int{2023, 2021, 2022})
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.Nil(t, reports[0].GrowthPct)
	require.NotNil(t, reports[1].GrowthPct)
	assert.InDelta(t, 50.0, *reports[1].GrowthPct, 1e-9)
	require.NotNil(t, reports[2].GrowthPct)
	assert.InDelta(t, -20.0, *reports[2].GrowthPct, 1e-9)
}

func TestCompareGrowthAfterZeroYearIsNil(t *testing.T) {
	sales := []domain.SalesRecord{
		record("R1", "2023-01-01", 30, "300.00"),
	}

	reports, err := NewEngine().Compare(sales, "R1", []int{2022, 2023})
	require.NoError(t, err)
	assert.Nil(t, reports[1].GrowthPct, "no growth pct against a zero base")
}

func TestCompareRejectsEmptyYears(t *testing.T) {
	_, err := NewEngine().Compare(nil, "R1", nil)
	require.Error(t, err)
}

func TestYears(t *testing.T) {
	sales := []domain.SalesRecord{
		record("R1", "2023-01-01", 1, "1"),
		record("R1", "2021-01-01", 1, "1"),
		record("R1", "2023-12-31", 1, "1"),
		record("R2", "2019-01-01", 1, "1"),
	}

	assert.Equal(t, []int{2021, 2023}, NewEngine().Years(sales, "R1"))
	assert.Empty(t, NewEngine().Years(sales, "R3"))
}
