package analytics

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailinsight/backend-go/internal/domain"
)

func sale(id domain.ProductID, date string, qty int64) domain.SalesRecord {
	d, _ := time.Parse("2006-01-02", date)
	return domain.SalesRecord{Date: d, ProductID: id, QuantitySold: qty, Revenue: decimal.Zero}
}

func TestSellingPrice(t *testing.T) {
	assert.InDelta(t, 12.5, SellingPrice(10, 20), 1e-9)
	assert.InDelta(t, 10.0, SellingPrice(10, 0), 1e-9)
	// Degenerate margin falls back to cost instead of dividing by zero.
	assert.InDelta(t, 10.0, SellingPrice(10, 100), 1e-9)
	assert.InDelta(t, 10.0, SellingPrice(10, 150), 1e-9)
}

func TestMonthlyAggregation(t *testing.T) {
	product := domain.Product{ID: "A1", Cost: 8, MarginPercent: 20} // price 10
	sales := []domain.SalesRecord{
		sale("A1", "2024-01-03", 5),
		sale("A1", "2024-01-20", 5),
		sale("A1", "2024-02-10", 20),
		sale("A1", "2024-03-01", 10),
		sale("B9", "2024-01-01", 99), // other product, excluded
	}

	s, err := NewProcessor().Monthly(sales, product)
	require.NoError(t, err)
	require.Len(t, s.Monthly, 3)

	assert.Equal(t, int64(10), s.Monthly[0].Quantity)
	assert.True(t, s.Monthly[0].Revenue.Equal(decimal.NewFromInt(100)),
		"got %s", s.Monthly[0].Revenue)
	assert.True(t, s.Monthly[0].Profit.Equal(decimal.NewFromInt(20)),
		"got %s", s.Monthly[0].Profit)

	assert.True(t, s.TotalRevenue.Equal(decimal.NewFromInt(400)))
	assert.True(t, s.TotalProfit.Equal(decimal.NewFromInt(80)))
	assert.InDelta(t, 20.0, s.AvgMarginPct, 1e-9)

	assert.Equal(t, int64(10), s.LastMonthQuantity)
	assert.Equal(t, int64(-10), s.MoMGrowth)
	assert.InDelta(t, -50.0, s.MoMGrowthPct, 1e-9)

	assert.Equal(t, time.February, s.PeakMonth.Month())
	assert.Equal(t, time.January, s.LowMonth.Month())
	assert.Greater(t, s.SeasonalityScore, 0.0)
}

func TestMonthlyNoSales(t *testing.T) {
	_, err := NewProcessor().Monthly(nil, domain.Product{ID: "A1"})
	require.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	points := []MonthlyPoint{
		{
			Month:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			Quantity: 10,
			Revenue:  decimal.NewFromInt(100),
			Profit:   decimal.NewFromInt(20),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, points))

	assert.Equal(t,
		"month,monthly_qty,monthly_revenue,monthly_profit\n2024-01,10,100.00,20.00\n",
		buf.String())
}
