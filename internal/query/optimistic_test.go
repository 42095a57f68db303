package query

import (
	"context"
	"errors"
	"reflect"
	"sync/atomic"
	"testing"
)

func seeded(t *testing.T, v []int) *Query[[]int] {
	t.Helper()
	q := New("nums", func(context.Context) ([]int, error) { return v, nil }, WithClone(cloneInts))
	if _, err := q.Fetch(context.Background()); err != nil {
		t.Fatal(err)
	}
	return q
}

func TestOptimisticRollbackRestoresExactSnapshot(t *testing.T) {
	q := seeded(t, []int{1, 2, 3})
	before, _ := q.Data()

	tx := NewOptimistic(q)
	if tx.Phase() != PhaseIdle {
		t.Fatalf("expected idle, got %s", tx.Phase())
	}
	if err := tx.Apply(func(v []int) []int {
		v[1] = 20
		return v
	}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if tx.Phase() != PhaseOptimistic {
		t.Fatalf("expected optimistic, got %s", tx.Phase())
	}
	if data, _ := q.Data(); !reflect.DeepEqual(data, []int{1, 20, 3}) {
		t.Fatalf("patch not applied: %v", data)
	}
	if snap, ok := tx.Snapshot(); !ok || !reflect.DeepEqual(snap, before) {
		t.Fatalf("snapshot %v, want %v", snap, before)
	}

	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	if tx.Phase() != PhaseRolledBack {
		t.Fatalf("expected rolled-back, got %s", tx.Phase())
	}
	after, ok := q.Data()
	if !ok || !reflect.DeepEqual(after, before) {
		t.Fatalf("after rollback %v, want %v", after, before)
	}
}

func TestOptimisticCommitKeepsPatch(t *testing.T) {
	q := seeded(t, []int{1})
	tx := NewOptimistic(q)
	_ = tx.Apply(func(v []int) []int { return append(v, 2) })
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if data, _ := q.Data(); !reflect.DeepEqual(data, []int{1, 2}) {
		t.Fatalf("unexpected data: %v", data)
	}
}

func TestOptimisticInvalidTransitions(t *testing.T) {
	q := seeded(t, []int{1})
	tx := NewOptimistic(q)
	if err := tx.Commit(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("commit from idle: %v", err)
	}
	if err := tx.Rollback(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("rollback from idle: %v", err)
	}
	_ = tx.Apply(func(v []int) []int { return v })
	if err := tx.Apply(func(v []int) []int { return v }); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("double apply: %v", err)
	}
	_ = tx.Commit()
	if err := tx.Rollback(); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("rollback after commit: %v", err)
	}
}

func TestOptimisticEmptyCache(t *testing.T) {
	q := New("nums", func(context.Context) ([]int, error) { return nil, nil }, WithClone(cloneInts))
	tx := NewOptimistic(q)
	called := false
	_ = tx.Apply(func(v []int) []int {
		called = true
		return v
	})
	if called {
		t.Fatal("patch must not run on an empty cache")
	}
	_ = tx.Rollback()
	if _, ok := q.Data(); ok {
		t.Fatal("rollback invented data")
	}

	// data that arrives between Apply and Rollback survives the rollback
	late := NewOptimistic(q)
	_ = late.Apply(func(v []int) []int { return append(v, 99) })
	q.SetData(func([]int, bool) []int { return []int{7, 8} })
	if err := late.Rollback(); err != nil {
		t.Fatal(err)
	}
	got, ok := q.Data()
	if !ok || len(got) != 2 || got[0] != 7 || got[1] != 8 {
		t.Fatalf("rollback clobbered loaded data: %v %v", got, ok)
	}
}

func TestOptimisticCancelsInFlightFetch(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	q := New("nums", func(context.Context) ([]int, error) {
		if calls.Add(1) == 1 {
			return []int{1}, nil
		}
		<-release
		return []int{0}, nil
	}, WithClone(cloneInts))
	if _, err := q.Fetch(context.Background()); err != nil {
		t.Fatal(err)
	}

	go func() { _, _ = q.Fetch(context.Background()) }()
	waitFor(t, func() bool { return q.State().Fetching })

	tx := NewOptimistic(q)
	_ = tx.Apply(func(v []int) []int { return []int{42} })
	if q.State().Fetching {
		t.Fatal("in-flight fetch should be canceled")
	}
	close(release)

	if data, _ := q.Data(); !reflect.DeepEqual(data, []int{42}) {
		t.Fatalf("optimistic state lost: %v", data)
	}
}
