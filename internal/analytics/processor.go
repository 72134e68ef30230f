// backend-go/internal/analytics/processor.go
package analytics

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/retailinsight/backend-go/internal/domain"
)

// MonthlyPoint is one month of aggregated quantity, revenue and profit for a
// product.
type MonthlyPoint struct {
	Month    time.Time       `json:"month"`
	Quantity int64           `json:"quantity"`
	Revenue  decimal.Decimal `json:"revenue"`
	Profit   decimal.Decimal `json:"profit"`
}

// Summary holds the monthly KPI block for a product.
type Summary struct {
	ProductID    domain.ProductID `json:"product_id"`
	SellingPrice float64          `json:"selling_price"`
	TotalRevenue decimal.Decimal  `json:"total_revenue"`
	TotalProfit  decimal.Decimal  `json:"total_profit"`
	AvgMarginPct float64          `json:"avg_margin_pct"`

	LastMonthQuantity int64   `json:"last_month_quantity"`
	MoMGrowth         int64   `json:"mom_growth"`
	MoMGrowthPct      float64 `json:"mom_growth_pct"`
	// SeasonalityScore is std/mean of monthly quantities; 0 is stable,
	// above 1 is strongly seasonal.
	SeasonalityScore float64 `json:"seasonality_score"`

	PeakMonth time.Time `json:"peak_month"`
	LowMonth  time.Time `json:"low_month"`

	Monthly []MonthlyPoint `json:"monthly"`
}

// SellingPrice derives the unit price from cost and margin percent. A margin
// at or above 100% is treated as unpriceable and falls back to cost.
func SellingPrice(cost, marginPercent float64) float64 {
	if marginPercent < 100 {
		return cost / (1 - marginPercent/100)
	}
	return cost
}

// Processor aggregates sales into monthly analytics.
type Processor struct{}

func NewProcessor() *Processor {
	return &Processor{}
}

// Monthly aggregates the product's sales by calendar month and derives the
// KPI block. Returns an error when the product has no sales at all.
func (p *Processor) Monthly(sales []domain.SalesRecord, product domain.Product) (*Summary, error) {
	price := SellingPrice(product.Cost, product.MarginPercent)
	unitPrice := decimal.NewFromFloat(price)
	unitProfit := decimal.NewFromFloat(price - product.Cost)

	totals := make(map[string]*MonthlyPoint)
	for _, r := range sales {
		if r.ProductID != product.ID {
			continue
		}
		key := r.Date.Format("2006-01")
		point, ok := totals[key]
		if !ok {
			point = &MonthlyPoint{
				Month:   time.Date(r.Date.Year(), r.Date.Month(), 1, 0, 0, 0, 0, time.UTC),
				Revenue: decimal.Zero,
				Profit:  decimal.Zero,
			}
			totals[key] = point
		}
		qty := decimal.NewFromInt(r.QuantitySold)
		point.Quantity += r.QuantitySold
		point.Revenue = point.Revenue.Add(unitPrice.Mul(qty))
		point.Profit = point.Profit.Add(unitProfit.Mul(qty))
	}
	if len(totals) == 0 {
		return nil, fmt.Errorf("no sales history for product %s", product.ID)
	}

	monthly := make([]MonthlyPoint, 0, len(totals))
	for _, point := range totals {
		monthly = append(monthly, *point)
	}
	sort.Slice(monthly, func(i, j int) bool { return monthly[i].Month.Before(monthly[j].Month) })

	s := &Summary{
		ProductID:    product.ID,
		SellingPrice: price,
		TotalRevenue: decimal.Zero,
		TotalProfit:  decimal.Zero,
		Monthly:      monthly,
	}

	var sum, sq float64
	peak, low := 0, 0
	for i, point := range monthly {
		s.TotalRevenue = s.TotalRevenue.Add(point.Revenue)
		s.TotalProfit = s.TotalProfit.Add(point.Profit)
		sum += float64(point.Quantity)
		if point.Quantity > monthly[peak].Quantity {
			peak = i
		}
		if point.Quantity < monthly[low].Quantity {
			low = i
		}
	}
	mean := sum / float64(len(monthly))
	for _, point := range monthly {
		d := float64(point.Quantity) - mean
		sq += d * d
	}
	if mean != 0 {
		std := math.Sqrt(sq / float64(len(monthly)))
		s.SeasonalityScore = round2(std / mean)
	}
	s.PeakMonth = monthly[peak].Month
	s.LowMonth = monthly[low].Month

	last := monthly[len(monthly)-1]
	s.LastMonthQuantity = last.Quantity
	if len(monthly) > 1 {
		prev := monthly[len(monthly)-2]
		s.MoMGrowth = last.Quantity - prev.Quantity
		if prev.Quantity > 0 {
			s.MoMGrowthPct = float64(s.MoMGrowth) / float64(prev.Quantity) * 100
		}
	} else {
		s.MoMGrowth = last.Quantity
	}

	if s.TotalRevenue.IsPositive() {
		margin, _ := s.TotalProfit.Div(s.TotalRevenue).Float64()
		s.AvgMarginPct = round2(margin * 100)
	}

	return s, nil
}

// WriteCSV exports the monthly table in the download format:
// month, monthly_qty, monthly_revenue, monthly_profit.
func WriteCSV(w io.Writer, points []MonthlyPoint) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"month", "monthly_qty", "monthly_revenue", "monthly_profit"}); err != nil {
		return err
	}
	for _, p := range points {
		record := []string{
			p.Month.Format("2006-01"),
			fmt.Sprintf("%d", p.Quantity),
			p.Revenue.StringFixed(2),
			p.Profit.StringFixed(2),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
