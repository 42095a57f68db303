package api

import (
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
)

// RequestLogger logs one structured line per request once the response status is known.
// Handler errors are rendered here so the logged status matches what the client saw.
func RequestLogger(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			logger.Debugf("request started: %s %s", req.Method, req.URL.Path)

			if err := next(c); err != nil {
				c.Error(err)
			}

			logger.WithFields(log.Fields{
				"method":      req.Method,
				"path":        req.URL.Path,
				"route":       c.Path(),
				"status":      c.Response().Status,
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  c.Response().Header().Get(echo.HeaderXRequestID),
				"remote_ip":   c.RealIP(),
				"user_agent":  req.UserAgent(),
			}).Info("request completed")
			return nil
		}
	}
}
