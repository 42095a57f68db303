package client

import (
	"context"
	"strconv"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/query"
)

// TodosKey is the cache key of the todo list.
const TodosKey = "todos"

// Backend is the remote side of the data layer; *API implements it.
type Backend interface {
	FetchTodos(ctx context.Context) ([]model.Todo, error)
	CreateTodo(ctx context.Context, title string) (model.Todo, error)
	UpdateTodo(ctx context.Context, id int, p model.Patch) (model.Todo, error)
	DeleteTodo(ctx context.Context, id int) (model.Todo, error)
}

// MutationStatus is the lifecycle of one mutation.
type MutationStatus int

const (
	MutationIdle MutationStatus = iota
	MutationPending
	MutationSuccess
	MutationError
)

// MutationState is what a UI needs to render a mutation.
type MutationState struct {
	Status MutationStatus
	Err    error
	// Phase of the optimistic update; only updates have one.
	Phase query.Phase
}

func (s MutationState) Pending() bool { return s.Status == MutationPending }
func (s MutationState) Failed() bool  { return s.Status == MutationError }

// Mutation keys.
const CreateKey = "create"

func UpdateKey(id int) string { return "update:" + strconv.Itoa(id) }
func DeleteKey(id int) string { return "delete:" + strconv.Itoa(id) }

// Todos binds the todo list query to its mutations.
type Todos struct {
	backend Backend
	query   *query.Query[[]model.Todo]
	logger  log.FieldLogger

	mu        sync.Mutex
	mutations map[string]MutationState
}

// NewTodos returns a data layer over backend.
func NewTodos(backend Backend, logger log.FieldLogger) *Todos {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Todos{
		backend:   backend,
		query:     query.New(TodosKey, backend.FetchTodos, query.WithClone(model.CloneTodos)),
		logger:    logger,
		mutations: make(map[string]MutationState),
	}
}

// Query exposes the list query for rendering and subscriptions.
func (t *Todos) Query() *query.Query[[]model.Todo] { return t.query }

// List fetches the list, joining an in-flight fetch if there is one.
func (t *Todos) List(ctx context.Context) ([]model.Todo, error) {
	return t.query.Fetch(ctx)
}

// Cached returns the cached list without touching the network.
func (t *Todos) Cached() ([]model.Todo, bool) {
	return t.query.Data()
}

// Mutation returns the state of the mutation with the given key.
func (t *Todos) Mutation(key string) MutationState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mutations[key]
}

// Create posts a new todo and refetches the list on success. Nothing is inserted locally.
func (t *Todos) Create(ctx context.Context, title string) (model.Todo, error) {
	t.setMutation(CreateKey, MutationState{Status: MutationPending})
	todo, err := t.backend.CreateTodo(ctx, title)
	if err != nil {
		t.setMutation(CreateKey, MutationState{Status: MutationError, Err: err})
		return model.Todo{}, err
	}
	t.setMutation(CreateKey, MutationState{Status: MutationSuccess})
	t.invalidate(ctx)
	return todo, nil
}

// Update patches the cached list immediately, then sends the patch. A failed request
// restores the cached list exactly as it was; either way the list is refetched afterwards.
func (t *Todos) Update(ctx context.Context, id int, p model.Patch) (model.Todo, error) {
	key := UpdateKey(id)
	tx := query.NewOptimistic(t.query)
	if err := tx.Apply(func(list []model.Todo) []model.Todo {
		return model.ApplyToList(list, id, p)
	}); err != nil {
		return model.Todo{}, err
	}
	t.setMutation(key, MutationState{Status: MutationPending, Phase: tx.Phase()})

	todo, err := t.backend.UpdateTodo(ctx, id, p)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			t.logger.WithError(rbErr).Error("rollback optimistic update")
		}
		t.setMutation(key, MutationState{Status: MutationError, Err: err, Phase: tx.Phase()})
	} else {
		_ = tx.Commit()
		t.setMutation(key, MutationState{Status: MutationSuccess, Phase: tx.Phase()})
	}

	t.invalidate(ctx)
	return todo, err
}

// Delete removes a todo on the server and refetches the list on success.
func (t *Todos) Delete(ctx context.Context, id int) (model.Todo, error) {
	key := DeleteKey(id)
	t.setMutation(key, MutationState{Status: MutationPending})
	todo, err := t.backend.DeleteTodo(ctx, id)
	if err != nil {
		t.setMutation(key, MutationState{Status: MutationError, Err: err})
		return model.Todo{}, err
	}
	t.setMutation(key, MutationState{Status: MutationSuccess})
	t.invalidate(ctx)
	return todo, nil
}

// Refetch forces a fresh list from the server.
func (t *Todos) Refetch(ctx context.Context) error {
	return t.query.Invalidate(ctx)
}

// invalidate refetches; a failure is recorded on the query state, not returned.
func (t *Todos) invalidate(ctx context.Context) {
	if err := t.query.Invalidate(ctx); err != nil {
		t.logger.WithError(err).WithField("key", TodosKey).Debug("refetch after mutation failed")
	}
}

func (t *Todos) setMutation(key string, st MutationState) {
	t.mu.Lock()
	t.mutations[key] = st
	t.mu.Unlock()
}
