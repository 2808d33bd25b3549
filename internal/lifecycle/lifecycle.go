// Package lifecycle models the confirm/submit cycle of entity mutations as
// an explicit state machine keyed by entity id. The old client expressed the
// same thing as scattered isChanging/deletingId booleans; a tagged state
// makes "submitting twice" unrepresentable instead of ad-hoc guarded.
package lifecycle

import (
	"errors"
	"sync"
)

type State int

const (
	StateIdle State = iota
	StateConfirming
	StateSubmitting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfirming:
		return "confirming"
	case StateSubmitting:
		return "submitting"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

var (
	// ErrBusy means a mutation for the same entity is already in flight.
	// Callers treat it as a no-op, not a queueing request.
	ErrBusy = errors.New("mutation already in flight")

	ErrNotSubmitting = errors.New("no mutation in flight")
)

type Status struct {
	State  State
	Reason string
}

// Tracker serializes mutations per entity id. Two different ids may submit
// concurrently; the same id may not.
type Tracker struct {
	mu      sync.Mutex
	entries map[string]Status
}

func NewTracker() *Tracker {
	return &Tracker{entries: make(map[string]Status)}
}

func (t *Tracker) Status(id string) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.entries[id]
}

// Confirm opens the confirmation step. Confirming an id whose mutation is
// still submitting is rejected.
func (t *Tracker) Confirm(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entries[id].State == StateSubmitting {
		return ErrBusy
	}
	t.entries[id] = Status{State: StateConfirming}
	return nil
}

// Cancel abandons a pending confirmation. A submitting mutation cannot be
// canceled; in-flight requests are not abortable.
func (t *Tracker) Cancel(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entries[id].State == StateSubmitting {
		return ErrBusy
	}
	delete(t.entries, id)
	return nil
}

// Begin marks the mutation in flight. Exactly one submission per id is
// permitted; a second Begin while submitting returns ErrBusy.
func (t *Tracker) Begin(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entries[id].State == StateSubmitting {
		return ErrBusy
	}
	t.entries[id] = Status{State: StateSubmitting}
	return nil
}

// Succeed closes the cycle and returns the id to idle.
func (t *Tracker) Succeed(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entries[id].State != StateSubmitting {
		return ErrNotSubmitting
	}
	delete(t.entries, id)
	return nil
}

// Fail records the failure reason and clears the busy flag so the caller
// can retry.
func (t *Tracker) Fail(id, reason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.entries[id].State != StateSubmitting {
		return ErrNotSubmitting
	}
	t.entries[id] = Status{State: StateFailed, Reason: reason}
	return nil
}
