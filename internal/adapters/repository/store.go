package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/okian/bikeflow/pkg/metrics"
)

// Store provides access to the current dataset snapshot.
type Store interface {
	// Snapshot returns the dataset currently being served. Never nil.
	Snapshot(ctx context.Context) *Dataset
	// Replace atomically publishes a new dataset.
	Replace(ctx context.Context, d *Dataset) error
	// Version counts successful Replace calls.
	Version() uint64
}

// MemStore publishes immutable datasets through an atomic pointer so that
// readers never wait on a reload.
type MemStore struct {
	current atomic.Pointer[Dataset]
	version atomic.Uint64

	onReplace func(*Dataset)
	now       func() time.Time
}

// NewMemStore returns a store serving an empty dataset.
func NewMemStore(opts ...Option) *MemStore {
	s := &MemStore{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(NewDataset(nil, nil, 0))
	return s
}

// Snapshot implements Store.
func (s *MemStore) Snapshot(_ context.Context) *Dataset {
	return s.current.Load()
}

// Replace implements Store.
func (s *MemStore) Replace(_ context.Context, d *Dataset) error {
	if d == nil {
		return ErrNilDataset
	}
	s.current.Store(d)
	s.version.Add(1)

	info := d.Info()
	metrics.UpdateDatasetRecords(info.Records)
	metrics.UpdateDatasetNTAs(info.NTAs)
	metrics.RecordSnapshotPublished(s.now())

	if s.onReplace != nil {
		s.onReplace(d)
	}
	return nil
}

// Version implements Store.
func (s *MemStore) Version() uint64 { return s.version.Load() }
