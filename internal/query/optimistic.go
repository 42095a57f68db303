package query

import (
	"errors"
	"fmt"
	"sync"
)

// ErrInvalidTransition is returned when an optimistic update is driven out of order.
var ErrInvalidTransition = errors.New("query: invalid optimistic transition")

// Phase is the state of an optimistic update.
//
//	Idle -> Optimistic -> Committed
//	                   -> RolledBack
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseOptimistic
	PhaseCommitted
	PhaseRolledBack
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseOptimistic:
		return "optimistic"
	case PhaseCommitted:
		return "committed"
	case PhaseRolledBack:
		return "rolled-back"
	}
	return "unknown"
}

// Optimistic applies a local change to a Query ahead of server confirmation and
// can put the exact previous value back if the server rejects it.
type Optimistic[T any] struct {
	q *Query[T]

	mu       sync.Mutex
	phase    Phase
	snapshot T
	hadData  bool
}

// NewOptimistic returns an idle optimistic update bound to q.
func NewOptimistic[T any](q *Query[T]) *Optimistic[T] {
	return &Optimistic[T]{q: q}
}

// Apply cancels any in-flight fetch of q so a stale response cannot overwrite the
// patch, snapshots the cached value and replaces it with patch(value).
// An empty cache is snapshotted as empty and left untouched.
func (o *Optimistic[T]) Apply(patch func(T) T) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase != PhaseIdle {
		return fmt.Errorf("%w: apply from %s", ErrInvalidTransition, o.phase)
	}
	o.q.Cancel()
	o.snapshot, o.hadData = o.q.update(func(old T, ok bool) (T, bool) {
		if !ok {
			return old, false
		}
		return patch(old), true
	})
	o.phase = PhaseOptimistic
	return nil
}

// Commit keeps the optimistic value.
func (o *Optimistic[T]) Commit() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase != PhaseOptimistic {
		return fmt.Errorf("%w: commit from %s", ErrInvalidTransition, o.phase)
	}
	o.phase = PhaseCommitted
	return nil
}

// Rollback restores the snapshot taken by Apply verbatim. When Apply found an
// empty cache there is nothing to undo, so data loaded since then is kept.
func (o *Optimistic[T]) Rollback() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.phase != PhaseOptimistic {
		return fmt.Errorf("%w: rollback from %s", ErrInvalidTransition, o.phase)
	}
	if o.hadData {
		snapshot := o.snapshot
		o.q.update(func(T, bool) (T, bool) {
			return snapshot, true
		})
	}
	o.phase = PhaseRolledBack
	return nil
}

// Phase returns the current phase.
func (o *Optimistic[T]) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// Snapshot returns a copy of the value captured by Apply.
func (o *Optimistic[T]) Snapshot() (T, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.q.clone(o.snapshot), o.hadData
}
