// backend-go/internal/service/comparison_service.go
package service

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/retailinsight/backend-go/internal/cache"
	"github.com/retailinsight/backend-go/internal/compare"
	"github.com/retailinsight/backend-go/internal/domain"
	"github.com/retailinsight/backend-go/pkg/logger"
)

// ComparisonService serves year-over-year comparison reports with a
// cache-aside layer. Cache failures degrade to recomputation, never errors.
type ComparisonService struct {
	snapshots *SnapshotStore
	engine    *compare.Engine
	cache     cache.ComparisonCache
	log       zerolog.Logger
}

func NewComparisonService(snapshots *SnapshotStore, cacheImpl cache.ComparisonCache) *ComparisonService {
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopComparisonCache()
	}
	return &ComparisonService{
		snapshots: snapshots,
		engine:    compare.NewEngine(),
		cache:     cacheImpl,
		log:       logger.Component("comparison-service"),
	}
}

// Compare returns one report per requested year. An empty year set defaults
// to every year present in the product's history.
func (s *ComparisonService) Compare(ctx context.Context, id domain.ProductID, years []int) ([]domain.ComparisonReport, error) {
	if _, err := s.snapshots.Product(id); err != nil {
		return nil, err
	}
	snap := s.snapshots.Get()

	if len(years) == 0 {
		years = s.engine.Years(snap.Sales, id)
	}
	sort.Ints(years)

	if reports, ok, err := s.cache.GetReports(ctx, id, years); err == nil && ok {
		return reports, nil
	} else if err != nil {
		s.log.Warn().Err(err).Msg("comparison cache get failed")
	}

	reports, err := s.engine.Compare(snap.Sales, id, years)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetReports(ctx, id, years, reports); err != nil {
		s.log.Warn().Err(err).Msg("comparison cache set failed")
	}

	return reports, nil
}

// Years lists the years with sales history for the product.
func (s *ComparisonService) Years(id domain.ProductID) ([]int, error) {
	if _, err := s.snapshots.Product(id); err != nil {
		return nil, err
	}
	return s.engine.Years(s.snapshots.Get().Sales, id), nil
}

// Invalidate drops all cached reports. Called after a snapshot reload.
func (s *ComparisonService) Invalidate(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.log.Warn().Err(err).Msg("comparison cache invalidation failed")
	}
}
