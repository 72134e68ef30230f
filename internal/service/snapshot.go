// backend-go/internal/service/snapshot.go
package service

import (
	"errors"
	"fmt"
	"sync"

	"github.com/retailinsight/backend-go/internal/dataset"
	"github.com/retailinsight/backend-go/internal/domain"
)

// ErrUnknownProduct marks lookups for products absent from the master table.
var ErrUnknownProduct = errors.New("unknown product")

// ErrNoSnapshot marks operations attempted before any dataset has loaded.
var ErrNoSnapshot = errors.New("no dataset snapshot loaded")

// SnapshotStore holds the current dataset snapshot and swaps it atomically on
// reload, so readers always see a consistent sales/master/calendar triple.
type SnapshotStore struct {
	mu      sync.RWMutex
	snap    *dataset.Snapshot
	dataDir string
}

func NewSnapshotStore(dataDir string) *SnapshotStore {
	return &SnapshotStore{dataDir: dataDir}
}

// Reload loads the snapshot CSVs from the data directory and swaps them in.
// On failure the previous snapshot stays active.
func (s *SnapshotStore) Reload() error {
	snap, err := dataset.Load(s.dataDir)
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}

	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
	return nil
}

// Set replaces the current snapshot directly. Used by tests and by callers
// that assemble snapshots from already-parsed tables.
func (s *SnapshotStore) Set(snap *dataset.Snapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

// Get returns the current snapshot, or nil before the first load.
func (s *SnapshotStore) Get() *dataset.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Product resolves a product from the current snapshot.
func (s *SnapshotStore) Product(id domain.ProductID) (domain.Product, error) {
	snap := s.Get()
	if snap == nil {
		return domain.Product{}, ErrNoSnapshot
	}
	product, ok := snap.Product(id)
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: %s", ErrUnknownProduct, id)
	}
	return product, nil
}
