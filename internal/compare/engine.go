// backend-go/internal/compare/engine.go
package compare

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/retailinsight/backend-go/internal/domain"
)

// Engine aggregates raw sales into multi-year comparison reports. It is a
// pure aggregation over SalesRecords and is independent of the model: the
// totals reconcile exactly with a direct sum over the matching records.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// Compare produces one report per requested year for the product, sorted by
// year. A year with no records is a present-but-zero entry so multi-year
// charts never silently skip it. Growth is quantity growth vs the previous
// requested year; it is nil for the first year and for years whose
// predecessor sold nothing.
func (e *Engine) Compare(sales []domain.SalesRecord, productID domain.ProductID, years []int) ([]domain.ComparisonReport, error) {
	if len(years) == 0 {
		return nil, fmt.Errorf("no years requested for comparison")
	}

	uniq := make(map[int]struct{}, len(years))
	sorted := make([]int, 0, len(years))
	for _, y := range years {
		if _, ok := uniq[y]; ok {
			continue
		}
		uniq[y] = struct{}{}
		sorted = append(sorted, y)
	}
	sort.Ints(sorted)

	reports := make(map[int]*domain.ComparisonReport, len(sorted))
	for _, y := range sorted {
		reports[y] = &domain.ComparisonReport{
			ProductID:    productID,
			Year:         y,
			TotalRevenue: decimal.Zero,
		}
	}

	for _, r := range sales {
		if r.ProductID != productID {
			continue
		}
		report, ok := reports[r.Date.Year()]
		if !ok {
			continue
		}
		report.TotalQuantity += r.QuantitySold
		report.TotalRevenue = report.TotalRevenue.Add(r.Revenue)
		report.MonthlyQuantity[int(r.Date.Month())-1] += r.QuantitySold
	}

	out := make([]domain.ComparisonReport, 0, len(sorted))
	for i, y := range sorted {
		report := reports[y]
		if i > 0 {
			prev := reports[sorted[i-1]]
			if prev.TotalQuantity > 0 {
				pct := (float64(report.TotalQuantity) - float64(prev.TotalQuantity)) /
					float64(prev.TotalQuantity) * 100
				report.GrowthPct = &pct
			}
		}
		out = append(out, *report)
	}

	return out, nil
}

// Years lists the distinct years present in the product's sales history,
// ascending. Useful for building a default comparison request.
func (e *Engine) Years(sales []domain.SalesRecord, productID domain.ProductID) []int {
	seen := make(map[int]struct{})
	for _, r := range sales {
		if r.ProductID == productID {
			seen[r.Date.Year()] = struct{}{}
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}
