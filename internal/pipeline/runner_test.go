package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailinsight/backend-go/internal/dataset"
	"github.com/retailinsight/backend-go/internal/domain"
	"github.com/retailinsight/backend-go/internal/encoder"
)

type memRecorder struct {
	runs []*Run
	recs []domain.StockRecommendation
}

func (m *memRecorder) CreateRun(_ context.Context, run *Run) error {
	run.ID = int64(len(m.runs) + 1)
	m.runs = append(m.runs, run)
	return nil
}

func (m *memRecorder) UpdateRun(_ context.Context, run *Run) error {
	return nil
}

func (m *memRecorder) SaveRecommendations(_ context.Context, _ int64, recs []domain.StockRecommendation) error {
	m.recs = append(m.recs, recs...)
	return nil
}

func day(offset int) time.Time {
	return time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
}

func batchSnapshot(t *testing.T) *dataset.Snapshot {
	t.Helper()

	products := []domain.Product{
		{ID: "P1", Name: "Rice 5kg", Category: "Staples", Cost: 10, MarginPercent: 20},
		{ID: "P2", Name: "Tea Box", Category: "Beverages", Cost: 4, MarginPercent: 25},
		{ID: "P3", Name: "New Snack", Category: "Snacks", Cost: 2, MarginPercent: 30},
	}

	var sales []domain.SalesRecord
	var calendar []domain.CalendarEntry
	for i := 0; i < 60; i++ {
		d := day(i)
		calendar = append(calendar, domain.CalendarEntry{
			Date: d, SeasonTag: "regular", Weekday: d.Weekday(),
		})
		sales = append(sales, domain.SalesRecord{
			Date: d, ProductID: "P1", QuantitySold: 10, Revenue: decimal.NewFromInt(125),
		})
		sales = append(sales, domain.SalesRecord{
			Date: d, ProductID: "P2", QuantitySold: int64(3 + i%4), Revenue: decimal.NewFromInt(20),
		})
	}
	// P3 has three days of history: cold-start.
	for i := 57; i < 60; i++ {
		sales = append(sales, domain.SalesRecord{
			Date: day(i), ProductID: "P3", QuantitySold: 2, Revenue: decimal.NewFromInt(6),
		})
	}

	snap, err := dataset.NewSnapshot(sales, products, calendar)
	require.NoError(t, err)
	return snap
}

func TestRunnerFullBatch(t *testing.T) {
	snap := batchSnapshot(t)
	enc := encoder.Fit(snap.Categories())
	rec := &memRecorder{}

	cfg := DefaultBatchConfig()
	cfg.Workers = 2
	cfg.HorizonDays = 14
	cfg.Recommend.LeadTimePeriods = 14

	result, err := NewRunner(cfg, rec).Run(context.Background(), snap, enc)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Stats.ProductsForecasted)
	assert.Len(t, result.Forecasts, 3)
	assert.Len(t, result.Recommendations, 3)
	require.Len(t, result.Forecasts["P1"], 14)

	// A flat 10/day series over 14 days with a 15% buffer lands near 161.
	p1 := result.Recommendations["P1"]
	assert.InDelta(t, 161, float64(p1.RecommendedQuantity), 8)
	assert.False(t, p1.ColdStart)

	// P3 lacks history and must fall back, flagged not silent.
	assert.Contains(t, result.Stats.ColdStartProducts, domain.ProductID("P3"))
	assert.True(t, result.Recommendations["P3"].ColdStart)

	require.Len(t, rec.runs, 1)
	assert.Equal(t, StatusCompleted, rec.runs[0].Status)
	assert.Equal(t, enc.Revision(), rec.runs[0].EncoderRevision)
	assert.Len(t, rec.recs, 3)
}

func TestRunnerNoForecastsNonNegative(t *testing.T) {
	snap := batchSnapshot(t)
	enc := encoder.Fit(snap.Categories())

	cfg := DefaultBatchConfig()
	cfg.HorizonDays = 30

	result, err := NewRunner(cfg, nil).Run(context.Background(), snap, enc)
	require.NoError(t, err)

	for id, forecasts := range result.Forecasts {
		for _, f := range forecasts {
			assert.GreaterOrEqual(t, f.PredictedQuantity, 0.0, "product %s", id)
			assert.GreaterOrEqual(t, f.LowerBound, 0.0, "product %s", id)
		}
	}
	for id, r := range result.Recommendations {
		assert.GreaterOrEqual(t, r.RecommendedQuantity, int64(0), "product %s", id)
	}
}

func TestRunnerWithoutRecorder(t *testing.T) {
	snap := batchSnapshot(t)
	enc := encoder.Fit(snap.Categories())

	result, err := NewRunner(DefaultBatchConfig(), nil).Run(context.Background(), snap, enc)
	require.NoError(t, err)
	assert.NotZero(t, result.Stats.ProductsForecasted)
}
