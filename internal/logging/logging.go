// Package logging builds the logrus loggers used by the server and the client.
package logging

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

// Output formats.
const (
	FormatJSON = "json"
	FormatText = "text"
)

// New returns a logger writing to w in the given format at the given level.
// DEBUG=1 in the environment forces debug level.
func New(level, format string, w io.Writer) (*log.Logger, error) {
	logger := log.New()
	if w == nil {
		w = os.Stdout
	}
	logger.SetOutput(w)

	switch strings.ToLower(format) {
	case "", FormatJSON:
		logger.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
			FieldMap: log.FieldMap{
				log.FieldKeyTime:  "ts",
				log.FieldKeyLevel: "level",
				log.FieldKeyMsg:   "message",
			},
		})
	case FormatText:
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	lvl := log.InfoLevel
	if level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		lvl = parsed
	}
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		lvl = log.DebugLevel
	}
	logger.SetLevel(lvl)
	return logger, nil
}

// Discard returns a logger that drops everything. Handy for tests and the TUI,
// which owns the terminal.
func Discard() *log.Logger {
	logger := log.New()
	logger.SetOutput(io.Discard)
	return logger
}
