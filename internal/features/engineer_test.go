package features

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retailinsight/backend-go/internal/dataset"
	"github.com/retailinsight/backend-go/internal/domain"
	"github.com/retailinsight/backend-go/internal/encoder"
)

func day(offset int) time.Time {
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	return base.AddDate(0, 0, offset)
}

// testSnapshot builds a snapshot with n days of sales for product P1 with
// quantity qty(day index), plus calendar entries covering the range.
func testSnapshot(t *testing.T, n int, qty func(i int) int64) *dataset.Snapshot {
	t.Helper()

	var sales []domain.SalesRecord
	var calendar []domain.CalendarEntry
	for i := 0; i < n+60; i++ {
		d := day(i)
		calendar = append(calendar, domain.CalendarEntry{
			Date:      d,
			SeasonTag: "winter",
			Weekday:   d.Weekday(),
		})
	}
	for i := 0; i < n; i++ {
		q := qty(i)
		sales = append(sales, domain.SalesRecord{
			Date:         day(i),
			ProductID:    "P1",
			QuantitySold: q,
			Revenue:      decimal.NewFromInt(q * 10),
		})
	}
	products := []domain.Product{{ID: "P1", Name: "Widget", Category: "Snacks", Cost: 5, MarginPercent: 50}}

	snap, err := dataset.NewSnapshot(sales, products, calendar)
	require.NoError(t, err)
	return snap
}

func TestBuildLagsAndRollingWindows(t *testing.T) {
	snap := testSnapshot(t, 40, func(i int) int64 { return int64(i + 1) })
	enc := encoder.Fit([]string{"Snacks"})

	eng := NewEngineer(DefaultConfig())
	vectors, stats, err := eng.Build(snap, enc, time.Time{})
	require.NoError(t, err)
	require.Len(t, vectors["P1"], 40)
	assert.Equal(t, 1, stats.Products)

	// Day index 35 (quantity 36): lag_1 = 35, lag_7 = 29, lag_30 = 6.
	v := vectors["P1"][35]
	assert.Equal(t, day(35), v.AsOfDate)
	assert.Equal(t, 36.0, v.Observed)
	assert.Equal(t, 35.0, v.Lag1)
	assert.Equal(t, 29.0, v.Lag7)
	assert.Equal(t, 6.0, v.Lag30)

	// Trailing 7-day window covers quantities 29..35.
	assert.InDelta(t, 32.0, v.Rolling7Mean, 1e-9)
	assert.InDelta(t, 224.0, v.Rolling7Sum, 1e-9)
	assert.False(t, v.ColdStart)

	// The first 30 days cannot fill the 30-day trailing window.
	assert.True(t, vectors["P1"][0].ColdStart)
	assert.True(t, vectors["P1"][29].ColdStart)
	assert.False(t, vectors["P1"][30].ColdStart)
}

func TestBuildCausality(t *testing.T) {
	full := testSnapshot(t, 60, func(i int) int64 { return int64(i%7 + 1) })
	// Same history up to day 44, then wildly different future values.
	altered := testSnapshot(t, 60, func(i int) int64 {
		if i < 45 {
			return int64(i%7 + 1)
		}
		return 999
	})
	enc := encoder.Fit([]string{"Snacks"})
	eng := NewEngineer(DefaultConfig())
	cutoff := day(44)

	a, _, err := eng.Build(full, enc, cutoff)
	require.NoError(t, err)
	b, _, err := eng.Build(altered, enc, cutoff)
	require.NoError(t, err)

	// No feature may depend on records dated after the cutoff.
	require.Equal(t, len(a["P1"]), len(b["P1"]))
	for i := range a["P1"] {
		assert.Equal(t, a["P1"][i], b["P1"][i], "vector %d differs", i)
	}
	for _, v := range a["P1"] {
		assert.False(t, v.AsOfDate.After(cutoff))
	}
}

func TestBuildUnseenCategorySkipsProduct(t *testing.T) {
	snap := testSnapshot(t, 10, func(i int) int64 { return 5 })
	enc := encoder.Fit([]string{"Beverages"}) // Snacks never fitted

	eng := NewEngineer(DefaultConfig())
	vectors, stats, err := eng.Build(snap, enc, time.Time{})
	require.NoError(t, err)

	assert.Empty(t, vectors)
	assert.Equal(t, []string{"Snacks"}, stats.UnseenCategories)
	assert.Equal(t, []domain.ProductID{"P1"}, stats.SkippedProducts)
}

func TestBuildDropColdStart(t *testing.T) {
	snap := testSnapshot(t, 40, func(i int) int64 { return 3 })
	enc := encoder.Fit([]string{"Snacks"})

	cfg := DefaultConfig()
	cfg.DropColdStart = true
	vectors, stats, err := NewEngineer(cfg).Build(snap, enc, time.Time{})
	require.NoError(t, err)

	require.Len(t, vectors["P1"], 10)
	assert.Zero(t, stats.ColdStartRows)
	for _, v := range vectors["P1"] {
		assert.False(t, v.ColdStart)
	}
}

func TestBuildGapDaysCountAsZeroDemand(t *testing.T) {
	// Sales on days 0..9 and 12..20; days 10 and 11 have no records.
	var sales []domain.SalesRecord
	var calendar []domain.CalendarEntry
	for i := 0; i < 40; i++ {
		calendar = append(calendar, domain.CalendarEntry{Date: day(i), SeasonTag: "s", Weekday: day(i).Weekday()})
	}
	for i := 0; i < 21; i++ {
		if i == 10 || i == 11 {
			continue
		}
		sales = append(sales, domain.SalesRecord{
			Date: day(i), ProductID: "P1", QuantitySold: 4, Revenue: decimal.NewFromInt(40),
		})
	}
	snap, err := dataset.NewSnapshot(sales,
		[]domain.Product{{ID: "P1", Category: "Snacks"}}, calendar)
	require.NoError(t, err)

	vectors, _, err := NewEngineer(DefaultConfig()).Build(snap, encoder.Fit([]string{"Snacks"}), time.Time{})
	require.NoError(t, err)

	byDate := make(map[string]Vector)
	for _, v := range vectors["P1"] {
		byDate[v.AsOfDate.Format("2006-01-02")] = v
	}
	v, ok := byDate[day(12).Format("2006-01-02")]
	require.True(t, ok, "gap days inside the range must still produce rows")
	assert.Equal(t, 0.0, v.Lag1)
	assert.Equal(t, 4.0, v.Observed)
}

func TestBuildMissingCalendarEntryFails(t *testing.T) {
	sales := []domain.SalesRecord{{
		Date: day(0), ProductID: "P1", QuantitySold: 1, Revenue: decimal.NewFromInt(10),
	}}
	calendar := []domain.CalendarEntry{{Date: day(1), SeasonTag: "s"}}

	_, err := dataset.NewSnapshot(sales, []domain.Product{{ID: "P1", Category: "Snacks"}}, calendar)
	require.Error(t, err)

	var schema *domain.SchemaViolationError
	require.ErrorAs(t, err, &schema)
	assert.Contains(t, schema.Error(), fmt.Sprintf("date %s", day(0).Format("2006-01-02")))
}
