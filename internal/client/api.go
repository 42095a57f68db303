// Package client talks to the todo server and keeps a local, disposable copy of its list.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/idilsaglam/tada/internal/model"
)

// Per-operation failures. The server's own error body is never forwarded.
var (
	ErrFetchTodos = errors.New("failed to fetch todos")
	ErrCreateTodo = errors.New("failed to create todo")
	ErrUpdateTodo = errors.New("failed to update todo")
	ErrDeleteTodo = errors.New("failed to delete todo")
)

// API is a typed HTTP client for the todo endpoints.
type API struct {
	baseURL string
	http    *http.Client
	logger  log.FieldLogger
}

// NewAPI returns a client for the server at baseURL, e.g. http://localhost:8080.
func NewAPI(baseURL string, timeout time.Duration, logger log.FieldLogger) *API {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// FetchTodos returns the full list.
func (a *API) FetchTodos(ctx context.Context) ([]model.Todo, error) {
	var todos []model.Todo
	if err := a.do(ctx, http.MethodGet, "/todos", nil, &todos, ErrFetchTodos); err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	return todos, nil
}

// CreateTodo creates a todo with the given title.
func (a *API) CreateTodo(ctx context.Context, title string) (model.Todo, error) {
	var todo model.Todo
	body := map[string]string{"title": title}
	err := a.do(ctx, http.MethodPost, "/todos", body, &todo, ErrCreateTodo)
	return todo, err
}

// UpdateTodo sends only the fields set in p.
func (a *API) UpdateTodo(ctx context.Context, id int, p model.Patch) (model.Todo, error) {
	var todo model.Todo
	err := a.do(ctx, http.MethodPut, todoPath(id), p, &todo, ErrUpdateTodo)
	return todo, err
}

// DeleteTodo removes a todo and returns it.
func (a *API) DeleteTodo(ctx context.Context, id int) (model.Todo, error) {
	var todo model.Todo
	err := a.do(ctx, http.MethodDelete, todoPath(id), nil, &todo, ErrDeleteTodo)
	return todo, err
}

func todoPath(id int) string {
	return "/todos/" + strconv.Itoa(id)
}

func (a *API) do(ctx context.Context, method, path string, in, out any, opErr error) error {
	var body io.Reader
	if in != nil {
		b, err := sonic.ConfigStd.Marshal(in)
		if err != nil {
			return fmt.Errorf("%w: encode body: %v", opErr, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", opErr, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	entry := a.logger.WithFields(log.Fields{
		"component":  "api_client",
		"method":     method,
		"path":       path,
		"request_id": requestID,
	})
	start := time.Now()
	resp, err := a.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			// keep cancellation visible to callers that check errors.Is(err, context.Canceled)
			return fmt.Errorf("%w: %w", opErr, ctxErr)
		}
		entry.WithError(err).Debug("request failed")
		return fmt.Errorf("%w: %v", opErr, err)
	}
	defer resp.Body.Close()

	entry.WithFields(log.Fields{
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return opErr
	}
	if out == nil {
		return nil
	}
	if err := sonic.ConfigStd.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", opErr, err)
	}
	return nil
}
