package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// Kind classifies an API failure.
type Kind string

const (
	KindValidation Kind = "ValidationError"
	KindParse      Kind = "ParseError"
	KindNotFound   Kind = "NotFoundError"
)

// Wire messages. Clients see only these strings, never the kind.
const (
	msgTitleRequired = "Title is required and must be a string"
	msgTitleEmpty    = "Title must not be empty"
	msgInvalidJSON   = "Invalid JSON"
	msgNotFound      = "Todo not found"
)

// Error is a client-facing failure rendered as {"error": Message} with Status.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Status: http.StatusBadRequest, Message: msg}
}

func parseError(err error) *Error {
	return &Error{Kind: KindParse, Status: http.StatusBadRequest, Message: msgInvalidJSON, Err: err}
}

func notFoundError() *Error {
	return &Error{Kind: KindNotFound, Status: http.StatusNotFound, Message: msgNotFound}
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusAndMessage maps any handler error to a status code and wire message.
func statusAndMessage(err error) (int, string) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status, apiErr.Message
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if msg, ok := he.Message.(string); ok && msg != "" {
			return he.Code, msg
		}
		return he.Code, http.StatusText(he.Code)
	}
	return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
}

// errorHandler renders every error as {"error": message}.
func errorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		status, msg := statusAndMessage(err)

		entry := logger.WithFields(log.Fields{
			"component":  "http_error",
			"status":     status,
			"path":       c.Request().URL.Path,
			"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		}).WithError(err)
		if status >= http.StatusInternalServerError {
			entry.Error("request failed")
		} else {
			entry.Debug("request rejected")
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, errorResponse{Error: msg})
		}
		if werr != nil {
			logger.WithError(werr).Error("write error response")
		}
	}
}
