// backend-go/internal/pipeline/runner.go
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/retailinsight/backend-go/internal/dataset"
	"github.com/retailinsight/backend-go/internal/domain"
	"github.com/retailinsight/backend-go/internal/encoder"
	"github.com/retailinsight/backend-go/internal/features"
	"github.com/retailinsight/backend-go/internal/forecast"
	"github.com/retailinsight/backend-go/internal/recommend"
	"github.com/retailinsight/backend-go/pkg/logger"
)

// Runner executes the batch flow: build features, train the model, then
// forecast and recommend per product in parallel. Products partition the
// work, so workers share nothing mutable beyond the collected results.
type Runner struct {
	cfg      Config
	recorder RunRecorder
	log      zerolog.Logger
}

// NewRunner creates a batch runner. recorder may be nil to skip telemetry.
func NewRunner(cfg Config, recorder RunRecorder) *Runner {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 30
	}
	return &Runner{
		cfg:      cfg,
		recorder: recorder,
		log:      logger.Component("pipeline"),
	}
}

// Run executes one batch over the snapshot with the given encoder.
func (r *Runner) Run(ctx context.Context, snap *dataset.Snapshot, enc *encoder.Encoder) (*BatchResult, error) {
	run := &Run{
		StartedAt:       time.Now().UTC(),
		Status:          StatusProcessing,
		EncoderRevision: enc.Revision(),
	}
	if r.recorder != nil {
		if err := r.recorder.CreateRun(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to create run record: %w", err)
		}
	}

	result, err := r.execute(ctx, snap, enc)
	now := time.Now().UTC()
	run.CompletedAt = &now
	if err != nil {
		run.Status = StatusFailed
		run.ErrorMessage = err.Error()
		r.recordRun(ctx, run)
		return nil, err
	}

	run.Status = StatusCompleted
	run.Products = result.Stats.ProductsForecasted
	run.NegativeClamps = result.Stats.NegativeClamps
	for _, id := range result.Stats.ColdStartProducts {
		run.ColdStartIDs = append(run.ColdStartIDs, string(id))
	}
	r.recordRun(ctx, run)
	if r.recorder != nil {
		recs := make([]domain.StockRecommendation, 0, len(result.Recommendations))
		for _, rec := range result.Recommendations {
			recs = append(recs, rec)
		}
		if err := r.recorder.SaveRecommendations(ctx, run.ID, recs); err != nil {
			r.log.Error().Err(err).Int64("run_id", run.ID).Msg("failed to persist recommendations")
		}
	}

	r.log.Info().
		Int("products", run.Products).
		Int("cold_start", len(run.ColdStartIDs)).
		Int("negative_clamps", run.NegativeClamps).
		Str("encoder_revision", run.EncoderRevision).
		Msg("batch run completed")

	return result, nil
}

func (r *Runner) recordRun(ctx context.Context, run *Run) {
	if r.recorder == nil {
		return
	}
	if err := r.recorder.UpdateRun(ctx, run); err != nil {
		r.log.Error().Err(err).Int64("run_id", run.ID).Str("status", string(run.Status)).
			Msg("failed to update run record")
	}
}

func (r *Runner) execute(ctx context.Context, snap *dataset.Snapshot, enc *encoder.Encoder) (*BatchResult, error) {
	eng := features.NewEngineer(r.cfg.Features)
	vectors, buildStats, err := eng.Build(snap, enc, r.cfg.Cutoff)
	if err != nil {
		return nil, fmt.Errorf("feature build failed: %w", err)
	}

	model, err := forecast.Train(vectors, enc.Revision(), r.cfg.Train)
	if err != nil {
		return nil, fmt.Errorf("training failed: %w", err)
	}

	result := &BatchResult{
		Model:           model,
		Forecasts:       make(map[domain.ProductID][]domain.ForecastResult),
		Recommendations: make(map[domain.ProductID]domain.StockRecommendation),
	}
	for _, c := range buildStats.UnseenCategories {
		result.Stats.AddUnseenCategory(c)
	}

	skipped := make(map[domain.ProductID]struct{}, len(buildStats.SkippedProducts))
	for _, id := range buildStats.SkippedProducts {
		skipped[id] = struct{}{}
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for _, id := range snap.ProductIDs() {
		if _, ok := skipped[id]; ok {
			continue
		}
		product, ok := snap.Product(id)
		if !ok {
			continue
		}
		id, product := id, product

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			code, err := enc.Encode(product.Category)
			if err != nil {
				var unseen *domain.UnseenCategoryError
				if errors.As(err, &unseen) {
					mu.Lock()
					result.Stats.AddUnseenCategory(unseen.Category)
					mu.Unlock()
					return nil
				}
				return err
			}

			var negatives int
			forecasts, err := model.Predict(id, code, r.cfg.HorizonDays, r.cfg.Cutoff, enc.Revision(), &negatives)
			if err != nil {
				return fmt.Errorf("forecast for %s failed: %w", id, err)
			}
			rec, err := recommend.Recommend(forecasts, r.cfg.Recommend, &negatives)
			if err != nil {
				return fmt.Errorf("recommendation for %s failed: %w", id, err)
			}

			mu.Lock()
			defer mu.Unlock()
			result.Forecasts[id] = forecasts
			result.Recommendations[id] = rec
			result.Stats.ProductsForecasted++
			result.Stats.NegativeClamps += negatives
			if rec.ColdStart {
				result.Stats.AddColdStart(id)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return result, nil
}
