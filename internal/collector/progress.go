package collector

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Progress is a single-writer snapshot of a running backfill or
// incremental-update operation (spec.md §9). Readers load an atomic
// pointer rather than locking, accepting a slightly stale snapshot.
type Progress struct {
	RunID        string    `json:"run_id"`
	Operation    string    `json:"operation"` // "full_backfill" | "incremental_update" | "sync_stock_names"
	Total        int       `json:"total"`
	Current      int       `json:"current"`
	CurrentStock string    `json:"current_stock,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at,omitempty"`
	Done         bool      `json:"done"`
	Failed       []string  `json:"failed,omitempty"`
}

// ProgressHandle is the single writer's handle on one run's Progress. The
// HTTP adapter reads through Tracker.Snapshot instead of holding this.
type ProgressHandle struct {
	tracker *Tracker
}

// Advance publishes an updated current/currentStock.
func (h *ProgressHandle) Advance(currentStock string) {
	h.tracker.mutate(func(p *Progress) {
		p.Current++
		p.CurrentStock = currentStock
	})
}

// Fail records an instrument that could not be collected, without
// advancing current (the caller still calls Advance separately).
func (h *ProgressHandle) Fail(instrument string) {
	h.tracker.mutate(func(p *Progress) {
		p.Failed = append(p.Failed, instrument)
	})
}

// Complete marks the run finished.
func (h *ProgressHandle) Complete(now time.Time) {
	h.tracker.mutate(func(p *Progress) {
		p.Done = true
		p.CompletedAt = now
	})
}

// Tracker holds the process-wide progress record. The zero value is ready
// to use; there is exactly one Tracker per process, shared by the
// collector and the HTTP adapter.
type Tracker struct {
	current atomic.Pointer[Progress]
}

// Start begins a new run, replacing any previous snapshot wholesale.
func (t *Tracker) Start(operation string, total int, now time.Time) *ProgressHandle {
	p := &Progress{
		RunID:     uuid.NewString(),
		Operation: operation,
		Total:     total,
		StartedAt: now,
	}
	t.current.Store(p)
	return &ProgressHandle{tracker: t}
}

// Snapshot returns a copy of the current progress record, or the zero
// value if no run has ever started.
func (t *Tracker) Snapshot() Progress {
	p := t.current.Load()
	if p == nil {
		return Progress{}
	}
	return *p
}

// mutate atomically replaces the stored record with a modified copy, so
// concurrent readers of Snapshot never observe a partially updated value.
func (t *Tracker) mutate(fn func(*Progress)) {
	for {
		old := t.current.Load()
		if old == nil {
			return
		}
		next := *old
		fn(&next)
		if t.current.CompareAndSwap(old, &next) {
			return
		}
	}
}
