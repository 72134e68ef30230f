// backend-go/internal/recommend/recommender.go
package recommend

import (
	"fmt"
	"math"

	"github.com/retailinsight/backend-go/internal/domain"
)

// Config enumerates the recognized stock policy options and their defaults.
type Config struct {
	// SafetyFactor is the fractional buffer applied on top of forecast
	// demand, e.g. 0.15 for 15%.
	SafetyFactor float64
	// LeadTimePeriods is the number of horizon days the recommendation
	// must cover.
	LeadTimePeriods int
	// ServiceLevel selects how conservative the policy is; at 0.9 or
	// above the forecast's upper uncertainty bound is used instead of the
	// point estimate.
	ServiceLevel float64
	// MinOrderUnit is the product's minimum orderable unit; the result is
	// rounded up to a multiple of it.
	MinOrderUnit int64
}

// DefaultConfig matches the reference policy: 15% buffer over a 30-day
// window at the point estimate.
func DefaultConfig() Config {
	return Config{
		SafetyFactor:    0.15,
		LeadTimePeriods: 30,
		ServiceLevel:    0.5,
		MinOrderUnit:    1,
	}
}

func (c Config) validate() error {
	if c.SafetyFactor < 0 {
		return fmt.Errorf("safety factor must be non-negative, got %v", c.SafetyFactor)
	}
	if c.LeadTimePeriods <= 0 {
		return fmt.Errorf("lead time periods must be positive, got %d", c.LeadTimePeriods)
	}
	return nil
}

// upperBoundServiceLevel is the service level at which the policy switches
// from the point forecast to the upper uncertainty bound.
const upperBoundServiceLevel = 0.9

// Recommend converts a forecast into a stock recommendation: demand over the
// lead-time window, scaled by (1 + safety factor), rounded up to the minimum
// orderable unit, floored at zero.
//
// A negative pre-clamp quantity indicates a config or model bug; it is
// reported through negatives (when non-nil) while the clamped value is still
// returned.
func Recommend(forecasts []domain.ForecastResult, cfg Config, negatives *int) (domain.StockRecommendation, error) {
	if err := cfg.validate(); err != nil {
		return domain.StockRecommendation{}, err
	}
	if len(forecasts) == 0 {
		return domain.StockRecommendation{}, fmt.Errorf("no forecast results to recommend from")
	}

	window := forecasts
	if len(window) > cfg.LeadTimePeriods {
		window = window[:cfg.LeadTimePeriods]
	}

	useUpper := cfg.ServiceLevel >= upperBoundServiceLevel
	coldStart := false
	var demand float64
	for _, f := range window {
		q := f.PredictedQuantity
		if useUpper && f.UpperBound > q {
			q = f.UpperBound
		}
		demand += q
		coldStart = coldStart || f.ColdStart
	}

	raw := demand * (1 + cfg.SafetyFactor)
	if raw < 0 {
		if negatives != nil {
			*negatives++
		}
		raw = 0
	}

	unit := cfg.MinOrderUnit
	if unit <= 0 {
		unit = 1
	}
	qty := int64(math.Ceil(raw))
	if rem := qty % unit; rem != 0 {
		qty += unit - rem
	}

	return domain.StockRecommendation{
		ProductID:           window[0].ProductID,
		HorizonDate:         window[len(window)-1].HorizonDate,
		RecommendedQuantity: qty,
		ForecastDemand:      demand,
		SafetyFactor:        cfg.SafetyFactor,
		UsedUpperBound:      useUpper,
		ColdStart:           coldStart,
	}, nil
}
