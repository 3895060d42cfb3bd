// Package correlation replaces the course-specific
// go-event-driven/common/log context helpers with a small, self-contained
// equivalent: a correlation id carried on context.Context, an echo
// middleware that adopts or mints one per request, and a logrus entry
// pre-populated with it for every downstream log call.
package correlation

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

// HeaderName is the HTTP header carrying the correlation id across service
// boundaries in both directions.
const HeaderName = "X-Correlation-ID"

type contextKey struct{}

// WithID returns a context carrying id as the active correlation id.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the correlation id stored in ctx, or "" if none was
// set.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}

// New mints a fresh correlation id.
func New() string {
	return uuid.NewString()
}

// Logger returns a logrus entry tagged with ctx's correlation id, so every
// log line a request or saga step produces can be grepped back to it.
func Logger(ctx context.Context) *logrus.Entry {
	entry := logrus.WithContext(ctx)
	if id := FromContext(ctx); id != "" {
		entry = entry.WithField("correlation_id", id)
	}
	return entry
}

// EchoMiddleware adopts the inbound X-Correlation-ID header if present,
// otherwise mints one, stores it on the request context, and echoes it back
// on the response so callers without their own id still get one to log.
func EchoMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id := c.Request().Header.Get(HeaderName)
		if id == "" {
			id = New()
		}
		ctx := WithID(c.Request().Context(), id)
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(HeaderName, id)
		return next(c)
	}
}
