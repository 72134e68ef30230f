// backend-go/internal/forecast/artifact.go
package forecast

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/retailinsight/backend-go/internal/domain"
)

const artifactVersion = 1

// artifact is the persisted shape of a trained model. It is bound to the
// encoder revision it was trained against; loading is an explicit step and
// the handle is passed into callers rather than held as ambient state.
type artifact struct {
	Version           int                               `json:"version"`
	EncoderRevision   string                            `json:"encoder_revision"`
	TrainedAt         time.Time                         `json:"trained_at"`
	Config            TrainConfig                       `json:"config"`
	Products          map[domain.ProductID]*productState `json:"products"`
	CategoryBaselines map[int]float64                   `json:"category_baselines"`
	OverallBaseline   float64                           `json:"overall_baseline"`
}

// Save serializes the trained model.
func (m *Model) Save() ([]byte, error) {
	return json.MarshalIndent(artifact{
		Version:           artifactVersion,
		EncoderRevision:   m.encoderRevision,
		TrainedAt:         m.trainedAt,
		Config:            m.cfg,
		Products:          m.products,
		CategoryBaselines: m.categoryBaselines,
		OverallBaseline:   m.overallBaseline,
	}, "", "  ")
}

// Load restores a model from Save output.
func Load(data []byte) (*Model, error) {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to decode model artifact: %w", err)
	}
	if a.Version != artifactVersion {
		return nil, fmt.Errorf("unsupported model artifact version %d", a.Version)
	}
	if a.EncoderRevision == "" {
		return nil, fmt.Errorf("model artifact carries no encoder revision")
	}
	if a.Products == nil {
		a.Products = make(map[domain.ProductID]*productState)
	}
	if a.CategoryBaselines == nil {
		a.CategoryBaselines = make(map[int]float64)
	}

	return &Model{
		cfg:               a.Config,
		encoderRevision:   a.EncoderRevision,
		trainedAt:         a.TrainedAt,
		products:          a.Products,
		categoryBaselines: a.CategoryBaselines,
		overallBaseline:   a.OverallBaseline,
	}, nil
}
