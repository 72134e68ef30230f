// backend-go/internal/forecast/model.go
package forecast

import (
	"math"
	"sort"
	"time"

	"github.com/retailinsight/backend-go/internal/domain"
	"github.com/retailinsight/backend-go/internal/features"
)

// TrainConfig controls model fitting.
type TrainConfig struct {
	// MinObservations is the history length below which a product is not
	// fitted and falls back to its category baseline at predict time.
	MinObservations int
	// TrendWindow caps how many trailing observations feed the linear
	// trend fit.
	TrendWindow int
	// Fusion weights for the trend, level+seasonality, and last-value
	// components. They should sum to 1.
	TrendWeight float64
	LevelWeight float64
	LastWeight  float64
}

// DefaultTrainConfig returns the reference fusion weights.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		MinObservations: 5,
		TrendWindow:     90,
		TrendWeight:     0.5,
		LevelWeight:     0.3,
		LastWeight:      0.2,
	}
}

// productState is the fitted per-product forecaster state: a linear trend, a
// day-of-week seasonal profile, a recent-level window, and the volatility
// used for clipping and the uncertainty band.
type productState struct {
	FirstDate      time.Time  `json:"first_date"`
	LastDate       time.Time  `json:"last_date"`
	Observations   int        `json:"observations"`
	TrendSlope     float64    `json:"trend_slope"`
	TrendIntercept float64    `json:"trend_intercept"`
	DowMeans       [7]float64 `json:"dow_means"`
	DowCounts      [7]int     `json:"dow_counts"`
	GlobalMean     float64    `json:"global_mean"`
	LevelWindow    []float64  `json:"level_window"`
	LastValue      float64    `json:"last_value"`
	Volatility     float64    `json:"volatility"`
	CategoryCode   int        `json:"category_code"`
}

// Model is a trained demand forecaster. It fuses a trend component, a
// day-of-week seasonal component, and a recent-level component per product,
// clips to the observed volatility range, and clamps at zero. Products
// without enough history fall back to a category-average daily baseline.
//
// A Model is immutable after training and safe for concurrent Predict calls.
type Model struct {
	cfg               TrainConfig
	encoderRevision   string
	trainedAt         time.Time
	products          map[domain.ProductID]*productState
	categoryBaselines map[int]float64
	overallBaseline   float64
}

// Train fits the model on feature vectors grouped by product. The encoder
// revision is embedded in the artifact so inference can detect skew.
func Train(vectors map[domain.ProductID][]features.Vector, encoderRevision string, cfg TrainConfig) (*Model, error) {
	if cfg.MinObservations <= 0 {
		cfg.MinObservations = 5
	}
	if cfg.TrendWindow <= 0 {
		cfg.TrendWindow = 90
	}
	if cfg.TrendWeight == 0 && cfg.LevelWeight == 0 && cfg.LastWeight == 0 {
		def := DefaultTrainConfig()
		cfg.TrendWeight, cfg.LevelWeight, cfg.LastWeight = def.TrendWeight, def.LevelWeight, def.LastWeight
	}

	m := &Model{
		cfg:               cfg,
		encoderRevision:   encoderRevision,
		trainedAt:         time.Now().UTC(),
		products:          make(map[domain.ProductID]*productState),
		categoryBaselines: make(map[int]float64),
	}

	categorySums := make(map[int]float64)
	categoryCounts := make(map[int]int)
	var overallSum float64
	var overallCount int

	ids := make([]domain.ProductID, 0, len(vectors))
	for id := range vectors {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		rows := vectors[id]
		if len(rows) == 0 {
			continue
		}
		code := int(rows[0].CategoryCode)
		for _, r := range rows {
			categorySums[code] += r.Observed
			categoryCounts[code]++
			overallSum += r.Observed
			overallCount++
		}
		if len(rows) < cfg.MinObservations {
			continue
		}
		m.products[id] = fitProduct(rows, cfg)
	}

	for code, sum := range categorySums {
		m.categoryBaselines[code] = sum / float64(categoryCounts[code])
	}
	if overallCount > 0 {
		m.overallBaseline = overallSum / float64(overallCount)
	}

	return m, nil
}

func fitProduct(rows []features.Vector, cfg TrainConfig) *productState {
	st := &productState{
		FirstDate:    rows[0].AsOfDate,
		LastDate:     rows[len(rows)-1].AsOfDate,
		Observations: len(rows),
		CategoryCode: int(rows[0].CategoryCode),
	}

	var sum float64
	for _, r := range rows {
		sum += r.Observed
		dow := int(r.AsOfDate.Weekday())
		st.DowMeans[dow] += r.Observed
		st.DowCounts[dow]++
	}
	st.GlobalMean = sum / float64(len(rows))
	for i := range st.DowMeans {
		if st.DowCounts[i] > 0 {
			st.DowMeans[i] /= float64(st.DowCounts[i])
		} else {
			st.DowMeans[i] = st.GlobalMean
		}
	}

	// Linear trend over the trailing window, least squares on day index.
	window := rows
	if len(window) > cfg.TrendWindow {
		window = window[len(window)-cfg.TrendWindow:]
	}
	st.TrendSlope, st.TrendIntercept = fitTrend(window, st.FirstDate)

	// Level window: last 30 observed values.
	levelN := 30
	if len(rows) < levelN {
		levelN = len(rows)
	}
	st.LevelWindow = make([]float64, 0, levelN)
	for _, r := range rows[len(rows)-levelN:] {
		st.LevelWindow = append(st.LevelWindow, r.Observed)
	}
	st.LastValue = rows[len(rows)-1].Observed

	// Population std over the full history, used for ±3σ clipping and the
	// uncertainty band.
	var sq float64
	for _, r := range rows {
		d := r.Observed - st.GlobalMean
		sq += d * d
	}
	st.Volatility = math.Sqrt(sq / float64(len(rows)))

	return st
}

// fitTrend runs least squares of observed quantity against the day index
// relative to the product's first date.
func fitTrend(rows []features.Vector, first time.Time) (slope, intercept float64) {
	n := float64(len(rows))
	if n < 2 {
		if n == 1 {
			return 0, rows[0].Observed
		}
		return 0, 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for _, r := range rows {
		x := r.AsOfDate.Sub(first).Hours() / 24
		y := r.Observed
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	den := n*sumXX - sumX*sumX
	if den == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / den
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// EncoderRevision returns the encoder revision this model was trained with.
func (m *Model) EncoderRevision() string {
	return m.encoderRevision
}

// TrainedProducts returns how many products have a fitted state.
func (m *Model) TrainedProducts() int {
	return len(m.products)
}

// IsColdStart reports whether a product will use the baseline fallback.
func (m *Model) IsColdStart(id domain.ProductID) bool {
	_, ok := m.products[id]
	return !ok
}

// zScore90 is the one-sided z for a 90% service level, used for the
// uncertainty band half-width.
const zScore90 = 1.28

// Predict produces forecasts for the given product over `horizon` days
// following the product's last observed date (or `from` when the product is
// cold-start). encoderRevision must match the training revision.
//
// negatives receives the count of pre-clamp negative outputs when non-nil.
func (m *Model) Predict(id domain.ProductID, categoryCode int, horizon int, from time.Time, encoderRevision string, negatives *int) ([]domain.ForecastResult, error) {
	if encoderRevision != m.encoderRevision {
		return nil, &domain.EncoderModelMismatchError{
			ModelRevision:   m.encoderRevision,
			EncoderRevision: encoderRevision,
		}
	}
	if horizon <= 0 {
		horizon = 30
	}

	st, ok := m.products[id]
	if !ok {
		return m.baselineForecast(id, categoryCode, horizon, from), nil
	}

	results := make([]domain.ForecastResult, 0, horizon)
	window := append([]float64(nil), st.LevelWindow...)
	lastVal := st.LastValue

	for step := 1; step <= horizon; step++ {
		futureDate := st.LastDate.AddDate(0, 0, step)
		t := futureDate.Sub(st.FirstDate).Hours() / 24

		trendPred := st.TrendSlope*t + st.TrendIntercept

		levelN := 7
		if len(window) < levelN {
			levelN = len(window)
		}
		var levelSum float64
		for _, v := range window[len(window)-levelN:] {
			levelSum += v
		}
		levelPred := levelSum / float64(levelN)

		dow := int(futureDate.Weekday())
		seasonalAdj := st.DowMeans[dow] - st.GlobalMean

		fused := m.cfg.TrendWeight*trendPred +
			m.cfg.LevelWeight*(levelPred+seasonalAdj) +
			m.cfg.LastWeight*lastVal

		// Clip runaway extrapolation to the observed volatility range.
		if st.Volatility > 0 {
			lower := st.GlobalMean - 3*st.Volatility
			upper := st.GlobalMean + 3*st.Volatility
			fused = math.Max(lower, math.Min(upper, fused))
		}

		if fused < 0 {
			if negatives != nil {
				*negatives++
			}
			fused = 0
		}

		band := zScore90 * st.Volatility
		results = append(results, domain.ForecastResult{
			ProductID:         id,
			HorizonDate:       futureDate,
			PredictedQuantity: fused,
			LowerBound:        math.Max(0, fused-band),
			UpperBound:        fused + band,
		})

		// Feed the prediction back so multi-step levels stay consistent.
		window = append(window, fused)
		if len(window) > 30 {
			window = window[1:]
		}
	}

	return results, nil
}

// baselineForecast is the cold-start fallback: a flat category-average daily
// demand, flagged so callers can distinguish it from a fitted forecast.
func (m *Model) baselineForecast(id domain.ProductID, categoryCode int, horizon int, from time.Time) []domain.ForecastResult {
	baseline, ok := m.categoryBaselines[categoryCode]
	if !ok {
		baseline = m.overallBaseline
	}
	if from.IsZero() {
		from = time.Now().UTC().Truncate(24 * time.Hour)
	}

	results := make([]domain.ForecastResult, 0, horizon)
	for step := 1; step <= horizon; step++ {
		results = append(results, domain.ForecastResult{
			ProductID:         id,
			HorizonDate:       from.AddDate(0, 0, step),
			PredictedQuantity: baseline,
			LowerBound:        0,
			UpperBound:        baseline * 2,
			ColdStart:         true,
		})
	}
	return results
}
