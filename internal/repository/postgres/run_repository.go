// backend-go/internal/repository/postgres/run_repository.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/retailinsight/backend-go/internal/domain"
	"github.com/retailinsight/backend-go/internal/pipeline"
)

// runRepository persists batch run telemetry and the recommendations each
// run produced. It implements pipeline.RunRecorder.
type runRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *runRepository {
	return &runRepository{db: db}
}

func (r *runRepository) CreateRun(ctx context.Context, run *pipeline.Run) error {
	query := `
		INSERT INTO forecast_runs (started_at, status, encoder_revision)
		VALUES ($1, $2, $3)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query, run.StartedAt, run.Status, run.EncoderRevision).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

func (r *runRepository) UpdateRun(ctx context.Context, run *pipeline.Run) error {
	query := `
		UPDATE forecast_runs
		SET completed_at = $2,
			status = $3,
			products = $4,
			cold_start_ids = $5,
			negative_clamps = $6,
			error_message = $7
		WHERE id = $1
	`
	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		run.CompletedAt,
		run.Status,
		run.Products,
		pq.Array(run.ColdStartIDs),
		run.NegativeClamps,
		run.ErrorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to update run %d: %w", run.ID, err)
	}
	return nil
}

func (r *runRepository) SaveRecommendations(ctx context.Context, runID int64, recs []domain.StockRecommendation) error {
	return r.db.WithTx(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO stock_recommendations (
				run_id, product_id, horizon_date, recommended_quantity,
				forecast_demand, safety_factor, used_upper_bound, cold_start
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (run_id, product_id)
			DO UPDATE SET
				horizon_date = EXCLUDED.horizon_date,
				recommended_quantity = EXCLUDED.recommended_quantity,
				forecast_demand = EXCLUDED.forecast_demand,
				safety_factor = EXCLUDED.safety_factor,
				used_upper_bound = EXCLUDED.used_upper_bound,
				cold_start = EXCLUDED.cold_start
		`

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, rec := range recs {
			_, err := stmt.ExecContext(
				ctx,
				runID,
				rec.ProductID,
				rec.HorizonDate,
				rec.RecommendedQuantity,
				rec.ForecastDemand,
				rec.SafetyFactor,
				rec.UsedUpperBound,
				rec.ColdStart,
			)
			if err != nil {
				return fmt.Errorf("failed to insert recommendation for %s: %w", rec.ProductID, err)
			}
		}

		return nil
	})
}

// LatestRuns returns the most recent runs, newest first.
func (r *runRepository) LatestRuns(ctx context.Context, limit int) ([]pipeline.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `
		SELECT id, started_at, completed_at, status, encoder_revision,
			products, negative_clamps, error_message
		FROM forecast_runs
		ORDER BY started_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get runs: %w", err)
	}
	defer rows.Close()

	var runs []pipeline.Run
	for rows.Next() {
		var run pipeline.Run
		if err := rows.Scan(
			&run.ID,
			&run.StartedAt,
			&run.CompletedAt,
			&run.Status,
			&run.EncoderRevision,
			&run.Products,
			&run.NegativeClamps,
			&run.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

var _ pipeline.RunRecorder = (*runRepository)(nil)
