// Package query is a small client-side cache for one remote value: deduplicated
// fetches, cancellation, invalidation and optimistic updates with rollback.
package query

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCanceled is returned to waiters of a fetch that was canceled before it finished.
var ErrCanceled = errors.New("query: fetch canceled")

// Status is the lifecycle of the cached value.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// State is a point-in-time view of a Query.
type State[T any] struct {
	Key       string
	Status    Status
	Data      T
	HasData   bool
	Err       error
	Fetching  bool
	Stale     bool
	UpdatedAt time.Time
}

// FetchFunc loads the remote value.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Option configures a Query.
type Option[T any] func(*Query[T])

// WithClone sets the copy function used whenever a value enters or leaves the cache,
// so callers never alias cached state.
func WithClone[T any](clone func(T) T) Option[T] {
	return func(q *Query[T]) {
		if clone != nil {
			q.clone = clone
		}
	}
}

type call[T any] struct {
	cancel   context.CancelFunc
	done     chan struct{}
	val      T
	err      error
	canceled bool
}

// Query caches the value of one key. At most one fetch is in flight at a time.
type Query[T any] struct {
	key   string
	fetch FetchFunc[T]
	clone func(T) T

	mu        sync.Mutex
	data      T
	hasData   bool
	err       error
	status    Status
	stale     bool
	updatedAt time.Time
	inflight  *call[T]

	nextSub int
	subs    map[int]func(State[T])
}

// New returns an idle query for key.
func New[T any](key string, fetch FetchFunc[T], opts ...Option[T]) *Query[T] {
	q := &Query[T]{
		key:   key,
		fetch: fetch,
		clone: func(v T) T { return v },
		subs:  make(map[int]func(State[T])),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Key returns the cache key.
func (q *Query[T]) Key() string { return q.key }

// Fetch loads the value, joining the in-flight fetch if there is one.
// ctx bounds only this caller's wait; the shared fetch keeps running for others.
func (q *Query[T]) Fetch(ctx context.Context) (T, error) {
	q.mu.Lock()
	c := q.inflight
	started := false
	if c == nil {
		c = q.startLocked(ctx)
		started = true
	}
	q.mu.Unlock()
	if started {
		q.notify()
	}

	select {
	case <-c.done:
		if c.err != nil {
			var zero T
			return zero, c.err
		}
		return q.clone(c.val), nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (q *Query[T]) startLocked(ctx context.Context) *call[T] {
	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c := &call[T]{cancel: cancel, done: make(chan struct{})}
	q.inflight = c
	if !q.hasData {
		q.status = StatusLoading
	}
	go func() {
		val, err := q.fetch(fetchCtx)
		q.finish(c, val, err)
	}()
	return c
}

func (q *Query[T]) finish(c *call[T], val T, err error) {
	q.mu.Lock()
	if c.canceled {
		q.mu.Unlock()
		return
	}
	q.inflight = nil
	c.cancel()
	if err != nil {
		c.err = err
		q.err = err
		q.status = StatusError
	} else {
		c.val = q.clone(val)
		q.data = q.clone(val)
		q.hasData = true
		q.err = nil
		q.status = StatusSuccess
		q.stale = false
		q.updatedAt = time.Now()
	}
	q.mu.Unlock()
	close(c.done)
	q.notify()
}

// Cancel aborts the in-flight fetch, if any. Its result is discarded and the
// cached value stays as it was; waiters get ErrCanceled.
func (q *Query[T]) Cancel() bool {
	q.mu.Lock()
	c := q.inflight
	if c == nil {
		q.mu.Unlock()
		return false
	}
	q.inflight = nil
	c.canceled = true
	c.err = ErrCanceled
	c.cancel()
	if q.status == StatusLoading {
		q.status = StatusIdle
		if q.err != nil {
			q.status = StatusError
		}
	}
	q.mu.Unlock()
	close(c.done)
	q.notify()
	return true
}

// Invalidate marks the value stale, cancels any in-flight fetch and refetches.
func (q *Query[T]) Invalidate(ctx context.Context) error {
	q.mu.Lock()
	q.stale = true
	q.mu.Unlock()
	q.Cancel()
	_, err := q.Fetch(ctx)
	return err
}

// Data returns a copy of the cached value and whether there is one.
func (q *Query[T]) Data() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.clone(q.data), q.hasData
}

// SetData replaces the cached value with updater(old).
func (q *Query[T]) SetData(updater func(old T, ok bool) T) {
	q.update(func(old T, ok bool) (T, bool) {
		return updater(old, ok), true
	})
}

// update swaps the cached value under the lock and returns a copy of the previous one.
// When fn reports false the cache is left without data.
func (q *Query[T]) update(fn func(old T, ok bool) (T, bool)) (T, bool) {
	q.mu.Lock()
	prev, prevOK := q.clone(q.data), q.hasData
	next, ok := fn(q.clone(q.data), q.hasData)
	q.setLocked(next, ok)
	q.mu.Unlock()
	q.notify()
	return prev, prevOK
}

func (q *Query[T]) setLocked(v T, ok bool) {
	if !ok {
		var zero T
		q.data = zero
		q.hasData = false
		if q.status == StatusSuccess {
			q.status = StatusIdle
		}
		return
	}
	q.data = q.clone(v)
	q.hasData = true
	q.updatedAt = time.Now()
	if q.status != StatusError {
		q.status = StatusSuccess
	}
}

// State returns a snapshot of the query.
func (q *Query[T]) State() State[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stateLocked()
}

func (q *Query[T]) stateLocked() State[T] {
	return State[T]{
		Key:       q.key,
		Status:    q.status,
		Data:      q.clone(q.data),
		HasData:   q.hasData,
		Err:       q.err,
		Fetching:  q.inflight != nil,
		Stale:     q.stale,
		UpdatedAt: q.updatedAt,
	}
}

// Subscribe registers fn to receive the state after every change.
// fn runs on the goroutine that made the change and must not block.
func (q *Query[T]) Subscribe(fn func(State[T])) (unsubscribe func()) {
	q.mu.Lock()
	id := q.nextSub
	q.nextSub++
	q.subs[id] = fn
	q.mu.Unlock()
	return func() {
		q.mu.Lock()
		delete(q.subs, id)
		q.mu.Unlock()
	}
}

func (q *Query[T]) notify() {
	q.mu.Lock()
	if len(q.subs) == 0 {
		q.mu.Unlock()
		return
	}
	st := q.stateLocked()
	fns := make([]func(State[T]), 0, len(q.subs))
	for _, fn := range q.subs {
		fns = append(fns, fn)
	}
	q.mu.Unlock()
	for _, fn := range fns {
		fn(st)
	}
}
