package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/idilsaglam/tada/internal/model"
	"github.com/idilsaglam/tada/internal/store"
)

const maxBodySize = 64 << 10

// Store is the subset of *store.Store the handlers need.
type Store interface {
	List() []model.Todo
	Len() int
	Get(id int) (model.Todo, error)
	Insert(title string) (model.Todo, error)
	Patch(id int, p model.Patch) (model.Todo, error)
	Remove(id int) (model.Todo, error)
}

// Register wires the todo routes on e, both at the root and under /api.
func Register(e *echo.Echo, st Store, logger *log.Logger) {
	for _, prefix := range []string{"", "/api"} {
		g := e.Group(prefix)
		g.GET("/todos", listTodos(st))
		g.POST("/todos", createTodo(st, logger))
		g.PUT("/todos/:id", updateTodo(st, logger))
		g.DELETE("/todos/:id", deleteTodo(st, logger))
	}
	e.GET("/healthz", healthz(st))
}

type createRequest struct {
	Title any `json:"title"`
}

type healthResponse struct {
	Status string `json:"status"`
	Todos  int    `json:"todos"`
}

func healthz(st Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, healthResponse{Status: "ok", Todos: st.Len()})
	}
}

func listTodos(st Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, st.List())
	}
}

func createTodo(st Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req createRequest
		if err := decodeBody(c, &req); err != nil {
			return parseError(err)
		}
		title, ok := req.Title.(string)
		if !ok || model.NormalizeTitle(title) == "" {
			return validationError(msgTitleRequired)
		}

		todo, err := st.Insert(title)
		if errors.Is(err, store.ErrEmptyTitle) {
			return validationError(msgTitleRequired)
		}
		if err != nil {
			return err
		}

		handlerLog(c, logger, "createTodo").WithField("todo_id", todo.ID).Info("todo created")
		return c.JSON(http.StatusCreated, todo)
	}
}

func updateTodo(st Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := parseID(c.Param("id"))
		if !ok {
			return notFoundError()
		}
		// an unknown id wins over a bad body
		if _, err := st.Get(id); err != nil {
			return mapStoreError(err)
		}

		var patch model.Patch
		if err := decodeBody(c, &patch); err != nil {
			return parseError(err)
		}
		if patch.Title.Set && model.NormalizeTitle(patch.Title.Value) == "" {
			return validationError(msgTitleEmpty)
		}

		todo, err := st.Patch(id, patch)
		if err != nil {
			return mapStoreError(err)
		}

		handlerLog(c, logger, "updateTodo").WithFields(log.Fields{
			"todo_id":       id,
			"set_title":     patch.Title.Set,
			"set_completed": patch.Completed.Set,
		}).Info("todo updated")
		return c.JSON(http.StatusOK, todo)
	}
}

func deleteTodo(st Store, logger *log.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := parseID(c.Param("id"))
		if !ok {
			return notFoundError()
		}
		todo, err := st.Remove(id)
		if err != nil {
			return mapStoreError(err)
		}

		handlerLog(c, logger, "deleteTodo").WithField("todo_id", id).Info("todo deleted")
		return c.JSON(http.StatusOK, todo)
	}
}

// parseID accepts positive decimal ids only. Anything else cannot name a todo.
func parseID(raw string) (int, bool) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func decodeBody(c echo.Context, v any) error {
	req := c.Request()
	req.Body = http.MaxBytesReader(c.Response(), req.Body, maxBodySize)
	return c.Echo().JSONSerializer.Deserialize(c, v)
}

func mapStoreError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFoundError()
	}
	return err
}

func handlerLog(c echo.Context, logger *log.Logger, handler string) *log.Entry {
	return logger.WithFields(log.Fields{
		"component":  "http_handler",
		"handler":    handler,
		"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
	})
}
