// backend-go/internal/repository/run_store.go
package repository

import (
	"context"

	"github.com/retailinsight/backend-go/internal/pipeline"
)

// RunStore reads back batch run telemetry for the ops surface. Writing goes
// through pipeline.RunRecorder, which the postgres implementation also
// satisfies.
type RunStore interface {
	pipeline.RunRecorder
	LatestRuns(ctx context.Context, limit int) ([]pipeline.Run, error)
}
