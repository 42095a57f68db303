// Package store holds the authoritative in-memory todo list of a server process.
package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/idilsaglam/tada/internal/model"
)

// ErrNotFound is returned when no todo has the requested id.
var ErrNotFound = errors.New("todo not found")

// ErrEmptyTitle is returned when a title is empty after trimming.
var ErrEmptyTitle = errors.New("title must not be empty")

// Store is a mutex-guarded list of todos plus a monotonically increasing id counter.
// Ids are never reused within the lifetime of a Store. Nothing is persisted.
type Store struct {
	mu     sync.RWMutex
	todos  []model.Todo
	nextID int
}

// New returns an empty store whose first id is 1.
func New() *Store {
	return &Store{todos: []model.Todo{}, nextID: 1}
}

// DefaultSeed returns the starter todos a fresh server shows.
func DefaultSeed() []model.Todo {
	return []model.Todo{
		{Title: "Learn the query cache"},
		{Title: "Build the todo app", Completed: true},
		{Title: "Write the docs"},
	}
}

// Seed appends todos in order, assigning fresh ids. Incoming ids are ignored.
func (s *Store) Seed(todos []model.Todo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range todos {
		title := model.NormalizeTitle(t.Title)
		if title == "" {
			return fmt.Errorf("seed entry %d: %w", i, ErrEmptyTitle)
		}
		s.appendLocked(title, t.Completed)
	}
	return nil
}

// List returns a copy of all todos in insertion order.
func (s *Store) List() []model.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Todo, len(s.todos))
	copy(out, s.todos)
	return out
}

// Len returns the number of stored todos.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.todos)
}

// FindIndex returns the position of the todo with the given id, or -1.
func (s *Store) FindIndex(id int) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findIndexLocked(id)
}

// Get returns the todo with the given id.
func (s *Store) Get(id int) (model.Todo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.findIndexLocked(id)
	if i < 0 {
		return model.Todo{}, ErrNotFound
	}
	return s.todos[i], nil
}

// Insert creates a todo with the next id and completed=false.
func (s *Store) Insert(title string) (model.Todo, error) {
	title = model.NormalizeTitle(title)
	if title == "" {
		return model.Todo{}, ErrEmptyTitle
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(title, false), nil
}

// Patch applies the set fields of p to the todo with the given id.
func (s *Store) Patch(id int, p model.Patch) (model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findIndexLocked(id)
	if i < 0 {
		return model.Todo{}, ErrNotFound
	}
	s.todos[i] = p.Apply(s.todos[i])
	return s.todos[i], nil
}

// Remove deletes the todo with the given id and returns it.
func (s *Store) Remove(id int) (model.Todo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.findIndexLocked(id)
	if i < 0 {
		return model.Todo{}, ErrNotFound
	}
	removed := s.todos[i]
	s.todos = append(s.todos[:i], s.todos[i+1:]...)
	return removed, nil
}

func (s *Store) appendLocked(title string, completed bool) model.Todo {
	t := model.Todo{ID: s.nextID, Title: title, Completed: completed}
	s.nextID++
	s.todos = append(s.todos, t)
	return t
}

// linear scan; lists are small
func (s *Store) findIndexLocked(id int) int {
	for i, t := range s.todos {
		if t.ID == id {
			return i
		}
	}
	return -1
}
