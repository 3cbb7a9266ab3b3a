package service

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/correction-api/internal/models"
)

// Batch is the live progress handle of one submitted batch.
type Batch struct {
	id        string
	projectID string
	started   time.Time

	mu       sync.Mutex
	states   map[string]models.FileState
	outcomes map[string]models.FileOutcome
	pending  int
	finished *time.Time
	done     chan struct{}
}

func newBatch(id, projectID string, names []string, now time.Time) *Batch {
	states := make(map[string]models.FileState, len(names))
	for _, name := range names {
		states[name] = models.FileStateQueued
	}
	return &Batch{
		id:        id,
		projectID: projectID,
		started:   now,
		states:    states,
		outcomes:  make(map[string]models.FileOutcome, len(names)),
		pending:   len(names),
		done:      make(chan struct{}),
	}
}

// ID returns the batch id.
func (b *Batch) ID() string { return b.id }

// ProjectID returns the id of the project the batch writes into.
func (b *Batch) ProjectID() string { return b.projectID }

// Done is closed once every file has settled.
func (b *Batch) Done() <-chan struct{} { return b.done }

// FinishedAt returns when the last file settled, or nil.
func (b *Batch) FinishedAt() *time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.finished
}

// Wait blocks until the batch settles or ctx ends, and returns the latest snapshot.
func (b *Batch) Wait(ctx context.Context) (models.BatchSnapshot, error) {
	select {
	case <-b.done:
		return b.Snapshot(), nil
	case <-ctx.Done():
		return b.Snapshot(), ctx.Err()
	}
}

// Snapshot copies the current state of the batch.
func (b *Batch) Snapshot() models.BatchSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	states := make(map[string]models.FileState, len(b.states))
	for name, state := range b.states {
		states[name] = state
	}
	outcomes := make(map[string]models.FileOutcome, len(b.outcomes))
	for name, outcome := range b.outcomes {
		outcomes[name] = outcome
	}
	snapshot := models.BatchSnapshot{
		ID:        b.id,
		ProjectID: b.projectID,
		States:    states,
		Outcomes:  outcomes,
		Settled:   b.pending == 0,
		StartedAt: b.started,
	}
	if b.finished != nil {
		finished := *b.finished
		snapshot.FinishedAt = &finished
	}
	return snapshot
}

// unsettled lists the files that have no outcome yet.
func (b *Batch) unsettled() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var names []string
	for name, state := range b.states {
		if !state.Terminal() {
			names = append(names, name)
		}
	}
	return names
}

// transition moves a file forward; it never re-enters an earlier or terminal state.
func (b *Batch) transition(name string, next models.FileState) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	current, ok := b.states[name]
	if !ok || current.Terminal() || stateOrder(next) <= stateOrder(current) {
		return false
	}
	b.states[name] = next
	return true
}

// settle records the outcome of a file and reports whether the batch is now complete.
func (b *Batch) settle(name string, outcome models.FileOutcome, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	current, ok := b.states[name]
	if !ok || current.Terminal() {
		return false
	}
	if outcome.Succeeded() {
		b.states[name] = models.FileStateSucceeded
	} else {
		b.states[name] = models.FileStateFailed
	}
	b.outcomes[name] = outcome
	b.pending--
	if b.pending > 0 {
		return false
	}
	b.finished = &now
	close(b.done)
	return true
}

func stateOrder(s models.FileState) int {
	switch s {
	case models.FileStateQueued:
		return 0
	case models.FileStateSizeChecked:
		return 1
	case models.FileStateSubmitted:
		return 2
	default:
		return 3
	}
}
