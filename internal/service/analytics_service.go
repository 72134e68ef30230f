// backend-go/internal/service/analytics_service.go
package service

import (
	"io"

	"github.com/retailinsight/backend-go/internal/analytics"
	"github.com/retailinsight/backend-go/internal/domain"
)

// AnalyticsService serves monthly KPI summaries derived from the snapshot.
type AnalyticsService struct {
	snapshots *SnapshotStore
	processor *analytics.Processor
}

func NewAnalyticsService(snapshots *SnapshotStore) *AnalyticsService {
	return &AnalyticsService{
		snapshots: snapshots,
		processor: analytics.NewProcessor(),
	}
}

// Monthly computes the product's monthly KPI block.
func (s *AnalyticsService) Monthly(id domain.ProductID) (*analytics.Summary, error) {
	product, err := s.snapshots.Product(id)
	if err != nil {
		return nil, err
	}
	return s.processor.Monthly(s.snapshots.Get().SalesFor(id), product)
}

// ExportMonthlyCSV streams the product's monthly table as CSV.
func (s *AnalyticsService) ExportMonthlyCSV(id domain.ProductID, w io.Writer) error {
	summary, err := s.Monthly(id)
	if err != nil {
		return err
	}
	return analytics.WriteCSV(w, summary.Monthly)
}
