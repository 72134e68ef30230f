package pipeline

import (
	"context"
	"time"

	"github.com/retailinsight/backend-go/internal/domain"
	"github.com/retailinsight/backend-go/internal/features"
	"github.com/retailinsight/backend-go/internal/forecast"
	"github.com/retailinsight/backend-go/internal/recommend"
)

// RunStatus is the lifecycle state of a batch run.
type RunStatus string

const (
	StatusPending    RunStatus = "pending"
	StatusProcessing RunStatus = "processing"
	StatusCompleted  RunStatus = "completed"
	StatusFailed     RunStatus = "failed"
)

// Run is the telemetry record for one batch execution.
type Run struct {
	ID              int64      `db:"id"`
	StartedAt       time.Time  `db:"started_at"`
	CompletedAt     *time.Time `db:"completed_at"`
	Status          RunStatus  `db:"status"`
	EncoderRevision string     `db:"encoder_revision"`
	Products        int        `db:"products"`
	ColdStartIDs    []string   `db:"cold_start_ids"`
	NegativeClamps  int        `db:"negative_clamps"`
	ErrorMessage    string     `db:"error_message"`
}

// RunRecorder persists run telemetry and batch outputs. A nil recorder is
// valid; the runner then keeps everything in memory.
type RunRecorder interface {
	CreateRun(ctx context.Context, run *Run) error
	UpdateRun(ctx context.Context, run *Run) error
	SaveRecommendations(ctx context.Context, runID int64, recs []domain.StockRecommendation) error
}

// Config controls one batch execution end to end.
type Config struct {
	// Workers caps how many products are forecast concurrently.
	Workers int
	// HorizonDays is the forecast horizon per product.
	HorizonDays int
	// Cutoff limits training data to sales at or before this date; zero
	// means use everything.
	Cutoff time.Time

	Features  features.Config
	Train     forecast.TrainConfig
	Recommend recommend.Config
}

// DefaultBatchConfig returns the reference batch parameters.
func DefaultBatchConfig() Config {
	return Config{
		Workers:     4,
		HorizonDays: 30,
		Features:    features.DefaultConfig(),
		Train:       forecast.DefaultTrainConfig(),
		Recommend:   recommend.DefaultConfig(),
	}
}

// BatchResult holds everything a batch run produced.
type BatchResult struct {
	Model           *forecast.Model
	Forecasts       map[domain.ProductID][]domain.ForecastResult
	Recommendations map[domain.ProductID]domain.StockRecommendation
	Stats           domain.BatchStats
}
