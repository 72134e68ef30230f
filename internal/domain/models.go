// backend-go/internal/domain/models.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductID identifies a product across all datasets.
type ProductID string

// SalesRecord is a single historical sales fact. Records are immutable once
// ingested; all downstream computation treats them as read-only.
type SalesRecord struct {
	Date         time.Time       `json:"date" db:"date"`
	ProductID    ProductID       `json:"product_id" db:"product_id"`
	QuantitySold int64           `json:"quantity_sold" db:"quantity_sold"`
	Revenue      decimal.Decimal `json:"revenue" db:"revenue"`
	StoreID      string          `json:"store_id,omitempty" db:"store_id"`
}

// Product is reference data from the product master.
type Product struct {
	ID            ProductID `json:"product_id" db:"product_id"`
	Name          string    `json:"product_name" db:"product_name"`
	Category      string    `json:"category" db:"category"`
	Cost          float64   `json:"cost" db:"cost"`
	MarginPercent float64   `json:"margin_percent" db:"margin_percent"`
}

// CalendarEntry is reference data describing a single date. Every sales date
// must resolve to exactly one calendar entry.
type CalendarEntry struct {
	Date      time.Time    `json:"date" db:"date"`
	IsHoliday bool         `json:"is_holiday" db:"is_holiday"`
	SeasonTag string       `json:"season_tag" db:"season_tag"`
	Weekday   time.Weekday `json:"weekday" db:"weekday"`
}

// ForecastResult is a point demand forecast for one (product, horizon date)
// pair with an uncertainty band. PredictedQuantity is never negative.
type ForecastResult struct {
	ProductID         ProductID `json:"product_id"`
	HorizonDate       time.Time `json:"horizon_date"`
	PredictedQuantity float64   `json:"predicted_quantity"`
	LowerBound        float64   `json:"lower_bound"`
	UpperBound        float64   `json:"upper_bound"`
	ColdStart         bool      `json:"cold_start"`
}

// HistoryPoint is one observed daily quantity, returned alongside forecasts
// so callers can chart actuals against the horizon.
type HistoryPoint struct {
	Date     time.Time `json:"date"`
	Quantity int64     `json:"quantity"`
}

// StockRecommendation is the business output of the pipeline: how much stock
// to hold for a product over the lead-time window. Recomputed on demand,
// never persisted as a source of truth.
type StockRecommendation struct {
	ProductID           ProductID `json:"product_id"`
	HorizonDate         time.Time `json:"horizon_date"`
	RecommendedQuantity int64     `json:"recommended_quantity"`
	ForecastDemand      float64   `json:"forecast_demand"`
	SafetyFactor        float64   `json:"safety_factor"`
	UsedUpperBound      bool      `json:"used_upper_bound"`
	ColdStart           bool      `json:"cold_start"`
}

// ComparisonReport aggregates raw sales for one (product, year) pair.
// TotalQuantity and TotalRevenue reconcile exactly with a direct sum over
// the matching SalesRecords; a year with no records is present with zeros.
type ComparisonReport struct {
	ProductID       ProductID       `json:"product_id"`
	Year            int             `json:"year"`
	TotalQuantity   int64           `json:"total_quantity"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	MonthlyQuantity [12]int64       `json:"monthly_quantity"`
	// GrowthPct is quantity growth vs the prior year in the requested set,
	// nil when no prior year exists or the prior year sold nothing.
	GrowthPct *float64 `json:"growth_pct,omitempty"`
}

// BatchStats counts per-product conditions handled locally during a batch so
// callers can distinguish "no data" from "model says zero".
type BatchStats struct {
	ProductsForecasted int         `json:"products_forecasted"`
	ColdStartProducts  []ProductID `json:"cold_start_products,omitempty"`
	UnseenCategories   []string    `json:"unseen_categories,omitempty"`
	NegativeClamps     int         `json:"negative_clamps"`
}

// AddColdStart records a product that fell back to the baseline.
func (s *BatchStats) AddColdStart(id ProductID) {
	s.ColdStartProducts = append(s.ColdStartProducts, id)
}

// AddUnseenCategory records a category missing from the encoder, deduplicated.
func (s *BatchStats) AddUnseenCategory(category string) {
	for _, c := range s.UnseenCategories {
		if c == category {
			return
		}
	}
	s.UnseenCategories = append(s.UnseenCategories, category)
}

// Merge folds another stats block into this one. Used when parallel workers
// report per-partition stats.
func (s *BatchStats) Merge(other BatchStats) {
	s.ProductsForecasted += other.ProductsForecasted
	s.ColdStartProducts = append(s.ColdStartProducts, other.ColdStartProducts...)
	for _, c := range other.UnseenCategories {
		s.AddUnseenCategory(c)
	}
	s.NegativeClamps += other.NegativeClamps
}
