// backend-go/internal/service/forecast_service.go
package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/retailinsight/backend-go/internal/domain"
	"github.com/retailinsight/backend-go/internal/encoder"
	"github.com/retailinsight/backend-go/internal/forecast"
	"github.com/retailinsight/backend-go/internal/pipeline"
	"github.com/retailinsight/backend-go/internal/recommend"
	"github.com/retailinsight/backend-go/internal/storage"
	"github.com/retailinsight/backend-go/pkg/logger"
)

// historyDays is how much observed history accompanies a forecast response
// so clients can chart actuals against the horizon.
const historyDays = 120

// ForecastResponse pairs recent history with the forecast horizon.
type ForecastResponse struct {
	ProductID domain.ProductID        `json:"product_id"`
	History   []domain.HistoryPoint   `json:"history"`
	Forecasts []domain.ForecastResult `json:"forecasts"`
	ColdStart bool                    `json:"cold_start"`
}

// ForecastService owns the trained model and its paired encoder, and serves
// forecasts and stock recommendations from them. Training swaps both
// atomically so inference never sees a mismatched pair.
type ForecastService struct {
	snapshots *SnapshotStore
	store     storage.ArtifactStore
	recorder  pipeline.RunRecorder
	cfg       pipeline.Config
	log       zerolog.Logger

	mu    sync.RWMutex
	enc   *encoder.Encoder
	model *forecast.Model
	stats domain.BatchStats
	recs  map[domain.ProductID]domain.StockRecommendation
}

func NewForecastService(snapshots *SnapshotStore, store storage.ArtifactStore, recorder pipeline.RunRecorder, cfg pipeline.Config) *ForecastService {
	return &ForecastService{
		snapshots: snapshots,
		store:     store,
		recorder:  recorder,
		cfg:       cfg,
		log:       logger.Component("forecast-service"),
	}
}

// Train fits the encoder and model on the current snapshot and persists both
// artifacts. An existing encoder is extended, never refitted, so previously
// assigned category codes stay stable.
func (s *ForecastService) Train(ctx context.Context) (*pipeline.BatchResult, error) {
	snap := s.snapshots.Get()
	if snap == nil {
		return nil, ErrNoSnapshot
	}

	s.mu.RLock()
	enc := s.enc
	s.mu.RUnlock()
	if enc == nil {
		enc = encoder.Fit(snap.Categories())
	} else {
		enc.Extend(snap.Categories())
	}

	result, err := pipeline.NewRunner(s.cfg, s.recorder).Run(ctx, snap, enc)
	if err != nil {
		return nil, err
	}

	if err := s.persistArtifacts(ctx, enc, result.Model); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.enc = enc
	s.model = result.Model
	s.stats = result.Stats
	s.recs = result.Recommendations
	s.mu.Unlock()

	return result, nil
}

func (s *ForecastService) persistArtifacts(ctx context.Context, enc *encoder.Encoder, model *forecast.Model) error {
	encData, err := enc.Save()
	if err != nil {
		return fmt.Errorf("failed to serialize encoder: %w", err)
	}
	modelData, err := model.Save()
	if err != nil {
		return fmt.Errorf("failed to serialize model: %w", err)
	}

	if err := s.store.Put(ctx, storage.EncoderKey, encData); err != nil {
		return fmt.Errorf("failed to store encoder artifact: %w", err)
	}
	if err := s.store.Put(ctx, storage.ModelKey, modelData); err != nil {
		return fmt.Errorf("failed to store model artifact: %w", err)
	}
	return nil
}

// LoadArtifacts restores the encoder and model pair from the artifact store
// and rejects a pair whose revisions do not match.
func (s *ForecastService) LoadArtifacts(ctx context.Context) error {
	encData, err := s.store.Get(ctx, storage.EncoderKey)
	if err != nil {
		return fmt.Errorf("failed to read encoder artifact: %w", err)
	}
	enc, err := encoder.Load(encData)
	if err != nil {
		return fmt.Errorf("failed to load encoder: %w", err)
	}

	modelData, err := s.store.Get(ctx, storage.ModelKey)
	if err != nil {
		return fmt.Errorf("failed to read model artifact: %w", err)
	}
	model, err := forecast.Load(modelData)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}

	if model.EncoderRevision() != enc.Revision() {
		return &domain.EncoderModelMismatchError{
			ModelRevision:   model.EncoderRevision(),
			EncoderRevision: enc.Revision(),
		}
	}

	s.mu.Lock()
	s.enc = enc
	s.model = model
	s.mu.Unlock()

	s.log.Info().Str("encoder_revision", enc.Revision()).Msg("artifacts loaded")
	return nil
}

// Ready reports whether a trained model is available.
func (s *ForecastService) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model != nil && s.enc != nil
}

// Forecast predicts the product's demand over the horizon and attaches the
// recent observed history.
func (s *ForecastService) Forecast(ctx context.Context, id domain.ProductID, horizonDays int) (*ForecastResponse, error) {
	product, err := s.snapshots.Product(id)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	enc, model := s.enc, s.model
	s.mu.RUnlock()
	if enc == nil || model == nil {
		return nil, fmt.Errorf("no trained model available")
	}

	code, err := enc.Encode(product.Category)
	if err != nil {
		return nil, err
	}
	if horizonDays <= 0 {
		horizonDays = s.cfg.HorizonDays
	}

	forecasts, err := model.Predict(id, code, horizonDays, s.cfg.Cutoff, enc.Revision(), nil)
	if err != nil {
		return nil, err
	}

	resp := &ForecastResponse{
		ProductID: id,
		History:   s.recentHistory(id),
		Forecasts: forecasts,
	}
	if len(forecasts) > 0 {
		resp.ColdStart = forecasts[0].ColdStart
	}
	return resp, nil
}

func (s *ForecastService) recentHistory(id domain.ProductID) []domain.HistoryPoint {
	snap := s.snapshots.Get()
	if snap == nil {
		return nil
	}
	series := snap.DailySeries(id)
	if len(series) > historyDays {
		series = series[len(series)-historyDays:]
	}
	return series
}

// Recommend computes a stock recommendation for the product, with per-request
// policy overrides applied on top of the configured defaults.
func (s *ForecastService) Recommend(ctx context.Context, id domain.ProductID, cfg recommend.Config) (*domain.StockRecommendation, error) {
	horizon := cfg.LeadTimePeriods
	if horizon < s.cfg.HorizonDays {
		horizon = s.cfg.HorizonDays
	}

	resp, err := s.Forecast(ctx, id, horizon)
	if err != nil {
		return nil, err
	}
	if len(resp.Forecasts) == 0 {
		return nil, &domain.InsufficientHistoryError{ProductID: id, Observations: len(resp.History)}
	}

	var negatives int
	rec, err := recommend.Recommend(resp.Forecasts, cfg, &negatives)
	if err != nil {
		return nil, err
	}
	if negatives > 0 {
		s.log.Warn().Err(&domain.NegativeOutputError{
			ProductID: id,
			Stage:     "recommendation",
			Value:     rec.ForecastDemand * (1 + cfg.SafetyFactor),
		}).Msg("clamped negative recommendation")
	}
	return &rec, nil
}

// Recommendations returns the latest batch output sorted by product ID.
func (s *ForecastService) Recommendations() []domain.StockRecommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.StockRecommendation, 0, len(s.recs))
	for _, rec := range s.recs {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// Stats returns the latest batch statistics.
func (s *ForecastService) Stats() domain.BatchStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// EncoderRevision returns the active encoder revision, empty when untrained.
func (s *ForecastService) EncoderRevision() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.enc == nil {
		return ""
	}
	return s.enc.Revision()
}
