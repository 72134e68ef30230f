// backend-go/internal/features/engineer.go
package features

import (
	"errors"
	"sort"
	"time"

	"github.com/retailinsight/backend-go/internal/dataset"
	"github.com/retailinsight/backend-go/internal/domain"
	"github.com/retailinsight/backend-go/internal/encoder"
)

// Config controls feature construction.
type Config struct {
	// MinHistory is the number of daily observations below which a product
	// is treated as cold-start and left to the model's fallback policy.
	MinHistory int
	// DropColdStart removes rows whose trailing window extends before the
	// earliest known sale instead of flagging them.
	DropColdStart bool
}

// DefaultConfig mirrors the behavior of the reference pipeline.
func DefaultConfig() Config {
	return Config{MinHistory: 5, DropColdStart: false}
}

// Vector is the causal feature row for one (product, as-of date) pair.
// Lag and rolling features window strictly on days before the as-of date;
// calendar features describe the as-of date itself. Observed is the target
// quantity at the as-of date and is never part of the features.
type Vector struct {
	ProductID domain.ProductID
	AsOfDate  time.Time
	Observed  float64

	Lag1          float64
	Lag7          float64
	Lag30         float64
	Rolling7Mean  float64
	Rolling30Mean float64
	Rolling7Sum   float64
	IsHoliday     float64
	SeasonCode    float64
	Weekday       float64
	Month         float64
	CategoryCode  float64

	// ColdStart marks rows whose 30-day trailing window reaches before the
	// first known sale for the product.
	ColdStart bool
}

// BuildStats reports conditions handled locally during a build.
type BuildStats struct {
	Products         int
	Rows             int
	ColdStartRows    int
	UnseenCategories []string
	SkippedProducts  []domain.ProductID
}

// Engineer joins sales, product, and calendar data into feature vectors.
type Engineer struct {
	cfg Config
}

func NewEngineer(cfg Config) *Engineer {
	if cfg.MinHistory <= 0 {
		cfg.MinHistory = 5
	}
	return &Engineer{cfg: cfg}
}

// SeasonCodes assigns deterministic codes to the calendar's distinct season
// tags in sorted order.
func SeasonCodes(calendar []domain.CalendarEntry) map[string]int {
	seen := make(map[string]struct{})
	for _, c := range calendar {
		seen[c.SeasonTag] = struct{}{}
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)

	codes := make(map[string]int, len(tags))
	for i, t := range tags {
		codes[t] = i
	}
	return codes
}

// Build computes feature vectors for every product in the snapshot using
// sales strictly up to the cutoff date. Products whose category is absent
// from the encoder are skipped and reported, not fatal.
func (e *Engineer) Build(snap *dataset.Snapshot, enc *encoder.Encoder, cutoff time.Time) (map[domain.ProductID][]Vector, *BuildStats, error) {
	stats := &BuildStats{}
	seasons := SeasonCodes(snap.Calendar)
	out := make(map[domain.ProductID][]Vector)

	for _, id := range snap.ProductIDs() {
		if _, ok := snap.Product(id); !ok {
			// Sales for a product missing from the master cannot be encoded.
			stats.SkippedProducts = append(stats.SkippedProducts, id)
			continue
		}
		vectors, err := e.BuildProduct(snap, enc, seasons, id, cutoff)
		if err != nil {
			var unseen *domain.UnseenCategoryError
			if errors.As(err, &unseen) {
				stats.UnseenCategories = appendUnique(stats.UnseenCategories, unseen.Category)
				stats.SkippedProducts = append(stats.SkippedProducts, id)
				continue
			}
			return nil, nil, err
		}
		if len(vectors) == 0 {
			continue
		}
		out[id] = vectors
		stats.Products++
		stats.Rows += len(vectors)
		for _, v := range vectors {
			if v.ColdStart {
				stats.ColdStartRows++
			}
		}
	}

	return out, stats, nil
}

// BuildProduct computes the vectors for a single product. It is safe to call
// concurrently for distinct products over a shared read-only snapshot.
func (e *Engineer) BuildProduct(snap *dataset.Snapshot, enc *encoder.Encoder, seasons map[string]int, id domain.ProductID, cutoff time.Time) ([]Vector, error) {
	product, ok := snap.Product(id)
	if !ok {
		return nil, nil
	}
	categoryCode, err := enc.Encode(product.Category)
	if err != nil {
		return nil, err
	}

	series := snap.DailySeries(id)
	series = truncateSeries(series, cutoff)
	if len(series) == 0 {
		return nil, nil
	}

	first := series[0].Date
	last := series[len(series)-1].Date
	shortHistory := len(series) < e.cfg.MinHistory

	// Dense daily grid from first to last sale: a day with no record is
	// zero demand, which keeps lag offsets aligned to calendar days.
	quantities := make(map[string]float64, len(series))
	for _, p := range series {
		quantities[dayKey(p.Date)] = float64(p.Quantity)
	}

	days := int(last.Sub(first).Hours()/24) + 1
	vectors := make([]Vector, 0, days)
	for i := 0; i < days; i++ {
		asOf := first.AddDate(0, 0, i)
		cal, ok := snap.CalendarFor(asOf)
		if !ok {
			// Dates between sales must still exist in the calendar table.
			return nil, &domain.SchemaViolationError{
				Table:  "calendar",
				Detail: "date " + asOf.Format("2006-01-02") + " has no matching calendar entry",
			}
		}

		v := Vector{
			ProductID:    id,
			AsOfDate:     asOf,
			Observed:     quantities[dayKey(asOf)],
			Lag1:         lag(quantities, asOf, 1),
			Lag7:         lag(quantities, asOf, 7),
			Lag30:        lag(quantities, asOf, 30),
			SeasonCode:   float64(seasons[cal.SeasonTag]),
			Weekday:      float64(cal.Weekday),
			Month:        float64(asOf.Month()),
			CategoryCode: float64(categoryCode),
		}
		if cal.IsHoliday {
			v.IsHoliday = 1
		}
		v.Rolling7Mean, v.Rolling7Sum = trailing(quantities, asOf, first, 7)
		v.Rolling30Mean, _ = trailing(quantities, asOf, first, 30)
		v.ColdStart = shortHistory || asOf.AddDate(0, 0, -30).Before(first)

		if v.ColdStart && e.cfg.DropColdStart {
			continue
		}
		vectors = append(vectors, v)
	}

	return vectors, nil
}

// MinHistory exposes the configured cold-start threshold.
func (e *Engineer) MinHistory() int {
	return e.cfg.MinHistory
}

func truncateSeries(series []domain.HistoryPoint, cutoff time.Time) []domain.HistoryPoint {
	if cutoff.IsZero() {
		return series
	}
	n := sort.Search(len(series), func(i int) bool { return series[i].Date.After(cutoff) })
	return series[:n]
}

// lag returns the quantity k calendar days before asOf, zero when that day
// had no sales.
func lag(quantities map[string]float64, asOf time.Time, k int) float64 {
	return quantities[dayKey(asOf.AddDate(0, 0, -k))]
}

// trailing computes mean and sum over the window [asOf-w, asOf-1], clipped
// at the first known sale so the mean reflects only real history.
func trailing(quantities map[string]float64, asOf, first time.Time, w int) (mean, sum float64) {
	count := 0
	for i := 1; i <= w; i++ {
		day := asOf.AddDate(0, 0, -i)
		if day.Before(first) {
			break
		}
		sum += quantities[dayKey(day)]
		count++
	}
	if count == 0 {
		return 0, 0
	}
	return sum / float64(count), sum
}

func dayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}
