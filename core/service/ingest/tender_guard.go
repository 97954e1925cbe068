package ingest

import (
	"sync"
	"time"

	"tender_server/pkg/apperr"
)

// RunGuard is the process-wide mutual exclusion for pipeline runs. Ingestion
// and reprocessing share one guard: whichever acquires it first wins, the
// other gets ALREADY_RUNNING. The guard is injected, never a package global,
// so tests can hold their own.
type RunGuard struct {
	mu      sync.Mutex
	held    bool
	kind    string
	started time.Time
}

// NewRunGuard creates an unheld guard.
func NewRunGuard() *RunGuard {
	return &RunGuard{}
}

// TryAcquire takes the guard or returns ALREADY_RUNNING naming the holder.
func (g *RunGuard) TryAcquire(kind string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		return apperr.AlreadyRunning(g.kind)
	}
	g.held = true
	g.kind = kind
	g.started = time.Now()
	return nil
}

// Release frees the guard. Safe to call via defer even after a failed
// acquire would have returned early.
func (g *RunGuard) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.held = false
	g.kind = ""
}

// State reports whether a run is in flight and what kind.
func (g *RunGuard) State() (held bool, kind string, since time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.held, g.kind, g.started
}
