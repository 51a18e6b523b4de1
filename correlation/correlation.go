// Package correlation derives and propagates request/action identifiers.
//
// A requestId is generated for every inbound request unless the client (or a
// reverse proxy in front of the gateway) already supplied one via the
// X-Request-Id header. An actionId is always caller-supplied and groups the
// several HTTP calls that make up one user action (e.g. a registration
// submit). Both are forwarded to the upstream backend and attached to every
// error and log line.
package correlation

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

const (
	HeaderRequestID = "X-Request-Id"
	HeaderActionID  = "X-Action-Id"
)

// Correlation carries the identifiers for one inbound request.
type Correlation struct {
	RequestID string
	ActionID  string
}

type contextKey struct{}

// NewID generates a fresh random request identifier.
func NewID() string {
	return uuid.NewString()
}

// FromHeaders derives the correlation ids from inbound request headers.
// An existing X-Request-Id is reused so tracing survives a reverse proxy;
// otherwise a new id is generated. The actionId passes through unchanged
// and stays empty when absent.
func FromHeaders(h http.Header) Correlation {
	requestID := h.Get(HeaderRequestID)
	if requestID == "" {
		requestID = NewID()
	}
	return Correlation{
		RequestID: requestID,
		ActionID:  h.Get(HeaderActionID),
	}
}

// WithContext stores the correlation in ctx.
func WithContext(ctx context.Context, c Correlation) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext extracts the correlation from ctx. Returns the zero value
// when none is present.
func FromContext(ctx context.Context) Correlation {
	c, ok := ctx.Value(contextKey{}).(Correlation)
	if !ok {
		return Correlation{}
	}
	return c
}

// Apply stamps the correlation headers onto an outbound header set.
func (c Correlation) Apply(h http.Header) {
	if c.RequestID != "" {
		h.Set(HeaderRequestID, c.RequestID)
	}
	if c.ActionID != "" {
		h.Set(HeaderActionID, c.ActionID)
	}
}

// Middleware ensures every request carries a correlation, stores it on the
// request context and echoes the ids back on the response.
func Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := FromHeaders(r.Header)
		c.Apply(w.Header())
		next(w, r.WithContext(WithContext(r.Context(), c)))
	}
}
