// Package apierror defines the single error shape used on every failure
// path of the gateway: transport failures, timeouts, malformed upstream
// bodies, backend error envelopes and refresh failures all surface as an
// *APIError carrying the correlation ids of the request that hit them.
package apierror

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/jalgoai/go-auth-gateway/correlation"
)

// Error codes surfaced to clients. Clients branch on these (e.g. show
// "session expired" on TOKEN_REFRESH_FAILED) without seeing upstream
// internals.
const (
	CodeAPIError           = "API_ERROR"
	CodeNetworkError       = "NETWORK_ERROR"
	CodeUpstreamTimeout    = "UPSTREAM_TIMEOUT"
	CodeInvalidJSON        = "INVALID_JSON"
	CodeInvalidContentType = "INVALID_CONTENT_TYPE"
	CodeNoContentError     = "NO_CONTENT_ERROR"
	CodeTokenRefreshFailed = "TOKEN_REFRESH_FAILED"
	CodeInvalidAccessToken = "INVALID_ACCESS_TOKEN"
	CodeInvalidResponse    = "INVALID_RESPONSE"
	CodeConfigError        = "CONFIG_ERROR"
	CodeInternalError      = "INTERNAL_ERROR"
)

// APIError is the uniform error for every failure path. Details and the
// wrapped cause are for logging only and are never serialized to clients.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    any
	RequestID  string
	ActionID   string

	cause error
}

// New builds an APIError tagged with the given correlation.
func New(statusCode int, message, code string, details any, corr correlation.Correlation) *APIError {
	if statusCode <= 0 {
		statusCode = 500
	}
	if code == "" {
		code = CodeAPIError
	}
	return &APIError{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Details:    details,
		RequestID:  corr.RequestID,
		ActionID:   corr.ActionID,
	}
}

// WithCause attaches the underlying error for logging and Unwrap.
func (e *APIError) WithCause(err error) *APIError {
	e.cause = err
	return e
}

func (e *APIError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s (%d %s): %v", e.Message, e.StatusCode, e.Code, e.cause)
	}
	return fmt.Sprintf("%s (%d %s)", e.Message, e.StatusCode, e.Code)
}

func (e *APIError) Unwrap() error {
	return e.cause
}

// Body is the minimal client-visible JSON shape. Details and cause stay
// server-side.
type Body struct {
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"requestId,omitempty"`
	ActionID   string `json:"actionId,omitempty"`
}

// Body returns the JSON error envelope sent to the caller.
func (e *APIError) Body() Body {
	return Body{
		Status:     "error",
		StatusCode: e.StatusCode,
		Code:       e.Code,
		Message:    e.Message,
		RequestID:  e.RequestID,
		ActionID:   e.ActionID,
	}
}

// FromTransport maps a failed upstream round trip to the right taxonomy
// entry: deadline/abort becomes UPSTREAM_TIMEOUT (504) so it never looks
// like an auth failure, anything else NETWORK_ERROR (503).
func FromTransport(err error, message string, corr correlation.Correlation) *APIError {
	if isTimeout(err) {
		return New(504, "Upstream timeout", CodeUpstreamTimeout, nil, corr).WithCause(err)
	}
	return New(503, message, CodeNetworkError, nil, corr).WithCause(err)
}

// FromUnknown normalizes any error at the request-handling boundary.
// Existing APIErrors pass through with missing correlation ids filled in.
func FromUnknown(err error, corr correlation.Correlation) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.RequestID == "" {
			apiErr.RequestID = corr.RequestID
		}
		if apiErr.ActionID == "" {
			apiErr.ActionID = corr.ActionID
		}
		return apiErr
	}
	if isTimeout(err) {
		return New(504, "Upstream timeout", CodeUpstreamTimeout, nil, corr).WithCause(err)
	}
	return New(500, "Unexpected error", CodeInternalError, nil, corr).WithCause(err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
