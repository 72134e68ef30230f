package storage

import "context"

// ObjectInfo represents metadata for a stored artifact object.
type ObjectInfo struct {
	Key  string
	Size int64
}

// ArtifactStore captures the operations needed to persist and retrieve model
// artifacts: the trained model JSON and its paired encoder table.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// Well-known artifact keys. The encoder always travels with the model so the
// revision pairing survives restarts.
const (
	ModelKey   = "model/model.json"
	EncoderKey = "model/encoder.json"
)
