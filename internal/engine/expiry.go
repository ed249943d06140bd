package engine

import (
	"log/slog"
	"sync"
	"time"
)

// expiryScheduler removes completed units from the registry after their
// retention window, measured from completion. Removal always runs off the
// caller's stack, only deletes the exact generation it was scheduled for,
// and logs its own failures instead of discarding them.
type expiryScheduler struct {
	logger *slog.Logger

	// remove deletes the unit from the registry if it is still the
	// registered generation for its key; it reports whether it deleted.
	remove func(u *Unit) bool

	// onExpired is invoked after a successful scheduled removal.
	onExpired func(u *Unit)

	mu     sync.Mutex
	timers map[*Unit]*time.Timer
	closed bool
}

func newExpiryScheduler(logger *slog.Logger, remove func(u *Unit) bool, onExpired func(u *Unit)) *expiryScheduler {
	return &expiryScheduler{
		logger:    logger.With("component", "expiry-scheduler"),
		remove:    remove,
		onExpired: onExpired,
		timers:    make(map[*Unit]*time.Timer),
	}
}

// Schedule arranges removal of a completed unit. A zero retention or a
// failed outcome removes it immediately; otherwise a tracked timer fires
// once the retention has elapsed from the completion timestamp. Failures
// are never retained, so the next submission for the key starts fresh.
func (s *expiryScheduler) Schedule(u *Unit) {
	if u.retention == 0 || u.Err() != nil {
		s.fire(u)
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		// Engine shut down between completion and scheduling; remove
		// synchronously so nothing lingers.
		s.fire(u)
		return
	}
	// Retention is measured from completion, not from scheduling; the
	// snapshot write and completion logging have already eaten into it.
	delay := time.Until(u.CompletedAt().Add(u.retention))
	timer := time.AfterFunc(delay, func() { s.fire(u) })
	s.timers[u] = timer
	u.setTimer(timer)
	s.mu.Unlock()

	s.logger.Debug("Scheduled removal",
		"key", u.key.String(),
		"retention", u.retention,
	)
}

// Cancel stops the pending removal for a unit, if any. Used by manual
// invalidation, which performs its own registry delete.
func (s *expiryScheduler) Cancel(u *Unit) {
	s.mu.Lock()
	delete(s.timers, u)
	s.mu.Unlock()
	u.stopTimer()
}

func (s *expiryScheduler) fire(u *Unit) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Recovered from panic during scheduled removal",
				"key", u.key.String(),
				"panic", r,
			)
		}
	}()

	s.mu.Lock()
	delete(s.timers, u)
	s.mu.Unlock()

	if s.remove(u) {
		s.onExpired(u)
		s.logger.Debug("Removed expired unit", "key", u.key.String())
		return
	}

	// The key was invalidated, or already maps to a newer generation
	// that this stale removal must not clobber.
	s.logger.Debug("Skipped stale removal", "key", u.key.String())
}

// Close stops all pending timers. Units still registered stay registered;
// the engine discards the whole registry on close anyway.
func (s *expiryScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for u, timer := range s.timers {
		timer.Stop()
		delete(s.timers, u)
	}
}

// PendingCount returns the number of scheduled removals, for tests and
// introspection.
func (s *expiryScheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}
