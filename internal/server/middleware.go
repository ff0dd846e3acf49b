package server

import (
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/rendis/leadtap/internal/config"
)

const (
	headerRequestID     = "X-Request-ID"
	contextKeyRequestID = "request_id"
)

// RequestID injects an identifier for traceability if the caller did not
// provide one.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(headerRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Set(contextKeyRequestID, rid)
			c.Response().Header().Set(headerRequestID, rid)
			return next(c)
		}
	}
}

// RequestIDFromContext extracts the request identifier if available.
func RequestIDFromContext(c echo.Context) string {
	if val, ok := c.Get(contextKeyRequestID).(string); ok {
		return val
	}
	return ""
}

// Logging writes one line per request.
func Logging(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			logger.Info("request",
				"request_id", RequestIDFromContext(c),
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"latency", time.Since(start),
			)
			return err
		}
	}
}

// CollectRateLimiter applies a token bucket to the routes it wraps.
func CollectRateLimiter(cfg config.RateLimitConfig) echo.MiddlewareFunc {
	limiter := cfg.Limiter()
	if limiter == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	limiter.SetBurst(cfg.Requests)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !limiter.Allow() {
				return Error(c, http.StatusTooManyRequests, "collect rate limit exceeded")
			}
			return next(c)
		}
	}
}
