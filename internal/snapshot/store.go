// Package snapshot provides a serialized result store used to answer
// submissions with per-caller decoded copies of completed results.
package snapshot

import (
	"context"
	"encoding/binary"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/allegro/bigcache/v3"

	"github.com/TimLuong/taskrecycler/internal/config"
	"github.com/TimLuong/taskrecycler/internal/types"
)

// deadlinePrefixLen is the size of the per-entry deadline header: a
// big-endian unix-nanosecond timestamp prepended to the serialized payload.
// BigCache's own life window is only a global upper bound; the header is
// what enforces each entry's retention exactly.
const deadlinePrefixLen = 8

// Store implements an in-memory snapshot store using BigCache.
type Store struct {
	cache  *bigcache.BigCache
	config config.SnapshotConfig
	logger *slog.Logger

	hits      atomic.Int64
	misses    atomic.Int64
	sets      atomic.Int64
	deletes   atomic.Int64
	evictions atomic.Int64

	closed atomic.Bool
}

// NewStore creates a new snapshot store with the given configuration.
func NewStore(cfg config.SnapshotConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		config: cfg,
		logger: logger.With("component", "snapshot-store"),
	}

	bcConfig := bigcache.Config{
		Shards:             cfg.Shards,
		LifeWindow:         cfg.Window,
		CleanWindow:        cfg.CleanupInterval,
		MaxEntriesInWindow: 1000 * 10 * 60, // Estimated entries in LifeWindow
		MaxEntrySize:       cfg.MaxEntrySize,
		HardMaxCacheSize:   cfg.MaxSizeMB,
		Verbose:            false,
		Logger:             &bigcacheLogger{logger: logger},
		OnRemoveWithReason: func(key string, entry []byte, reason bigcache.RemoveReason) {
			if reason == bigcache.NoSpace || reason == bigcache.Expired {
				s.evictions.Add(1)
			}
		},
	}

	bc, err := bigcache.New(context.Background(), bcConfig)
	if err != nil {
		return nil, err
	}

	s.cache = bc
	return s, nil
}

// Name returns the store name.
func (s *Store) Name() string {
	return "snapshot"
}

// IsAvailable returns true if the store is not closed.
func (s *Store) IsAvailable() bool {
	return !s.closed.Load()
}

// Get retrieves serialized result bytes. Entries past their deadline are
// dropped and reported as a miss.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, types.ErrClosed
	}

	data, err := s.cache.Get(key)
	if err != nil {
		if err == bigcache.ErrEntryNotFound {
			s.misses.Add(1)
			return nil, types.ErrSnapshotMiss
		}
		return nil, types.NewTaskError("snapshot-get", key, err)
	}

	if len(data) < deadlinePrefixLen {
		s.misses.Add(1)
		_ = s.cache.Delete(key)
		return nil, types.ErrSnapshotMiss
	}

	deadline := time.Unix(0, int64(binary.BigEndian.Uint64(data[:deadlinePrefixLen])))
	if time.Now().After(deadline) {
		s.misses.Add(1)
		_ = s.cache.Delete(key)
		return nil, types.ErrSnapshotMiss
	}

	s.hits.Add(1)
	return data[deadlinePrefixLen:], nil
}

// Set stores serialized result bytes with an absolute deadline.
func (s *Store) Set(ctx context.Context, key string, value []byte, deadline time.Time) error {
	if s.closed.Load() {
		return types.ErrClosed
	}

	entry := make([]byte, deadlinePrefixLen+len(value))
	binary.BigEndian.PutUint64(entry[:deadlinePrefixLen], uint64(deadline.UnixNano()))
	copy(entry[deadlinePrefixLen:], value)

	if err := s.cache.Set(key, entry); err != nil {
		return types.NewTaskError("snapshot-set", key, err)
	}

	s.sets.Add(1)
	return nil
}

// Delete removes an entry. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return types.ErrClosed
	}

	if err := s.cache.Delete(key); err != nil {
		if err != bigcache.ErrEntryNotFound {
			return types.NewTaskError("snapshot-delete", key, err)
		}
	}

	s.deletes.Add(1)
	return nil
}

// Clear removes all entries.
func (s *Store) Clear(ctx context.Context) error {
	if s.closed.Load() {
		return types.ErrClosed
	}

	return s.cache.Reset()
}

// Close closes the store and releases resources.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.cache.Close()
}

// Stats returns store statistics.
func (s *Store) Stats() types.SnapshotStats {
	return types.SnapshotStats{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Sets:      s.sets.Load(),
		Deletes:   s.deletes.Load(),
		Evictions: s.evictions.Load(),
	}
}

// EntryCount returns the number of entries in the store.
func (s *Store) EntryCount() int {
	return s.cache.Len()
}

// Size returns the current size of the store in bytes.
func (s *Store) Size() int64 {
	return int64(s.cache.Capacity())
}

// MaxSize returns the maximum size of the store in bytes.
func (s *Store) MaxSize() int64 {
	return int64(s.config.MaxSizeMB) * 1024 * 1024
}

// UsagePercentage returns the store usage as a percentage.
func (s *Store) UsagePercentage() float64 {
	maxBytes := s.MaxSize()
	if maxBytes == 0 {
		return 0
	}
	return float64(s.Size()) / float64(maxBytes) * 100
}

// HitRatio returns the store hit ratio.
func (s *Store) HitRatio() float64 {
	hits := s.hits.Load()
	misses := s.misses.Load()
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

type bigcacheLogger struct {
	logger *slog.Logger
}

func (l *bigcacheLogger) Printf(format string, args ...any) {
	l.logger.Debug("bigcache: "+format, args...)
}

var _ types.SnapshotStore = (*Store)(nil)
