package keyword

import (
	"log/slog"
	"sync"
	"time"

	"github.com/keydex/keydex/internal/store"
)

// generations tracks the current readable snapshot and retires superseded
// ones after the grace delay.
//
// The refresh decision runs under a mutex so concurrent searches cannot race
// to schedule duplicate retirements, but a resolved snapshot is searched
// without any lock: snapshots are immutable and refcounted.
type generations struct {
	mu        sync.Mutex
	current   *store.Snapshot
	grace     time.Duration
	scheduler Scheduler
	logger    *slog.Logger
	closed    bool
}

func newGenerations(grace time.Duration, scheduler Scheduler, logger *slog.Logger) *generations {
	return &generations{
		grace:     grace,
		scheduler: scheduler,
		logger:    logger,
	}
}

// lease returns the current snapshot with a reference held for one search;
// the caller must Release it. When the writer has committed past the current
// snapshot's epoch, a fresh snapshot is installed first and the old one is
// handed to the scheduler for delayed release, exactly once.
func (g *generations) lease(st *store.Store) (*store.Snapshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil, store.ErrIndexClosed
	}

	// Idle reads stay on the current generation for free.
	if g.current != nil && g.current.Epoch() == st.Epoch() && g.current.Acquire() {
		return g.current, nil
	}

	fresh, err := st.OpenSnapshot()
	if err != nil {
		return nil, err
	}

	if old := g.current; old != nil {
		g.logger.Debug("generation_superseded",
			slog.Uint64("generation", old.Ordinal()),
			slog.Uint64("by", fresh.Ordinal()),
			slog.Duration("grace", g.grace))
		g.scheduler.After(g.grace, old.Release)
	}
	g.current = fresh

	// The opener reference stays with the manager; the search takes its own.
	fresh.Acquire()
	return fresh, nil
}

// close drops the manager's reference on the current generation. Pending
// retirements of older generations fire on their own schedule.
func (g *generations) close() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return
	}
	g.closed = true

	if g.current != nil {
		g.current.Release()
		g.current = nil
	}
}
