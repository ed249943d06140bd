package snapshot

import (
	"context"
	"time"

	"github.com/TimLuong/taskrecycler/internal/types"
)

// DisabledStore is a snapshot store that stores nothing. Used when the
// snapshot feature is disabled so the engine never branches on nil.
type DisabledStore struct{}

// NewDisabledStore creates a disabled snapshot store.
func NewDisabledStore() *DisabledStore {
	return &DisabledStore{}
}

// Name returns the store name.
func (s *DisabledStore) Name() string {
	return "snapshot-disabled"
}

// IsAvailable always returns false.
func (s *DisabledStore) IsAvailable() bool {
	return false
}

// Get always misses.
func (s *DisabledStore) Get(ctx context.Context, key string) ([]byte, error) {
	return nil, types.ErrSnapshotMiss
}

// Set silently discards the value.
func (s *DisabledStore) Set(ctx context.Context, key string, value []byte, deadline time.Time) error {
	return nil
}

// Delete does nothing.
func (s *DisabledStore) Delete(ctx context.Context, key string) error {
	return nil
}

// Clear does nothing.
func (s *DisabledStore) Clear(ctx context.Context) error {
	return nil
}

// Close does nothing.
func (s *DisabledStore) Close() error {
	return nil
}

// Stats returns zero statistics.
func (s *DisabledStore) Stats() types.SnapshotStats {
	return types.SnapshotStats{}
}

// EntryCount returns 0.
func (s *DisabledStore) EntryCount() int { return 0 }

// Size returns 0.
func (s *DisabledStore) Size() int64 { return 0 }

// MaxSize returns 0.
func (s *DisabledStore) MaxSize() int64 { return 0 }

// UsagePercentage returns 0.
func (s *DisabledStore) UsagePercentage() float64 { return 0 }

// HitRatio returns 0.
func (s *DisabledStore) HitRatio() float64 { return 0 }

var _ types.SnapshotStore = (*DisabledStore)(nil)
