// Package upstream implements the gateway's core: the backend response
// normalizer, the token refresh invoker, and the auto-auth fetch
// orchestrator that composes them.
package upstream

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jalgoai/go-auth-gateway/apierror"
	"github.com/jalgoai/go-auth-gateway/correlation"
	"github.com/jalgoai/go-auth-gateway/internal/redact"
)

// previewLimit caps how much of an unexpected body is kept for logging.
const previewLimit = 2000

// Payload is the normalized form of every backend response. Exactly one of
// Data and Text is meaningful: Data for JSON envelopes (nil after a
// no-content status), Text for the plain-text bodies some endpoints
// legitimately return.
type Payload struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"statusCode"`
	Code       string          `json:"code,omitempty"`
	Message    string          `json:"message"`
	RequestID  string          `json:"requestId,omitempty"`
	ActionID   string          `json:"actionId,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Text       string          `json:"-"`

	raw json.RawMessage
}

// Raw returns the entire JSON body when the backend did not wrap its
// payload in a data field.
func (p *Payload) Raw() json.RawMessage {
	if len(p.Data) > 0 {
		return p.Data
	}
	return p.raw
}

// envelopeBody is the tolerant decode target for backend JSON. Unknown
// shapes simply leave fields zero.
type envelopeBody struct {
	Status     string          `json:"status"`
	StatusCode int             `json:"statusCode"`
	Code       string          `json:"code"`
	ErrorCode  string          `json:"errorCode"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
}

// Normalize coerces a raw backend response into a Payload or an *APIError.
// The response body is consumed and closed. Classification order:
// no-content statuses, then content-type, then JSON validity, then HTTP
// status, then the body's own envelope status.
func Normalize(resp *http.Response, fallbackMessage string, corr correlation.Correlation, log zerolog.Logger) (*Payload, error) {
	defer resp.Body.Close()

	// Prefer the backend's echoed ids so multi-hop traces line up.
	if rid := resp.Header.Get(correlation.HeaderRequestID); rid != "" {
		corr.RequestID = rid
	}
	if aid := resp.Header.Get(correlation.HeaderActionID); aid != "" {
		corr.ActionID = aid
	}

	status := resp.StatusCode
	ok := status >= 200 && status <= 299

	if status == http.StatusNoContent || status == http.StatusResetContent || status == http.StatusNotModified {
		log.Debug().Int("status", status).Str("requestId", corr.RequestID).Msg("backend response: no content")
		if !ok {
			return nil, apierror.New(status, fallbackMessage, apierror.CodeNoContentError, map[string]any{"status": status}, corr)
		}
		return &Payload{
			Status:     "success",
			StatusCode: status,
			Message:    "OK",
			RequestID:  corr.RequestID,
			ActionID:   corr.ActionID,
		}, nil
	}

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		body = []byte("<unreadable>")
	}

	if !isJSONContentType(resp.Header.Get("Content-Type")) {
		text := string(body)
		if !ok {
			log.Error().Int("status", status).
				Str("contentType", resp.Header.Get("Content-Type")).
				Str("bodyPreview", preview(text)).
				Str("requestId", corr.RequestID).
				Msg("backend non-JSON error response")
			return nil, apierror.New(status, fallbackMessage, apierror.CodeInvalidContentType, map[string]any{
				"status":      status,
				"contentType": resp.Header.Get("Content-Type"),
				"bodyPreview": preview(text),
			}, corr)
		}
		return &Payload{
			Status:     "success",
			StatusCode: status,
			Message:    "OK",
			RequestID:  corr.RequestID,
			ActionID:   corr.ActionID,
			Text:       text,
		}, nil
	}

	// The backend claims JSON; guard against HTML error pages and
	// truncated bodies behind that claim.
	if readErr != nil || !json.Valid(body) {
		log.Error().Int("status", status).
			Str("bodyPreview", preview(string(body))).
			Str("requestId", corr.RequestID).
			Msg("backend sent invalid JSON")
		return nil, apierror.New(status, fallbackMessage, apierror.CodeInvalidJSON, map[string]any{
			"status":      status,
			"bodyPreview": preview(string(body)),
		}, corr)
	}

	var env envelopeBody
	_ = json.Unmarshal(body, &env) // non-object JSON leaves the envelope zero

	code := env.Code
	if code == "" {
		code = env.ErrorCode
	}

	if !ok {
		log.Error().Int("status", status).
			Interface("response", redactedBody(body)).
			Str("requestId", corr.RequestID).
			Msg("backend error response")
		return nil, apierror.New(
			firstNonZero(env.StatusCode, status),
			firstNonEmpty(env.Message, fallbackMessage),
			firstNonEmpty(code, apierror.CodeAPIError),
			map[string]any{"details": redactedBody(body)},
			corr,
		)
	}

	// Some backend endpoints return HTTP 200 with an application-level
	// error envelope.
	if env.Status == "error" {
		log.Error().Int("status", status).
			Interface("response", redactedBody(body)).
			Str("requestId", corr.RequestID).
			Msg("backend envelope indicates error")
		return nil, apierror.New(
			firstNonZero(env.StatusCode, 500),
			firstNonEmpty(env.Message, fallbackMessage),
			firstNonEmpty(code, apierror.CodeAPIError),
			map[string]any{"details": redactedBody(body)},
			corr,
		)
	}

	log.Debug().Int("status", status).Str("requestId", corr.RequestID).Msg("backend JSON response parsed")

	return &Payload{
		Status:     "success",
		StatusCode: firstNonZero(env.StatusCode, status),
		Code:       code,
		Message:    firstNonEmpty(env.Message, "OK"),
		RequestID:  corr.RequestID,
		ActionID:   corr.ActionID,
		Data:       env.Data,
		raw:        body,
	}, nil
}

func isJSONContentType(ct string) bool {
	return strings.Contains(ct, "application/json") ||
		strings.Contains(ct, "application/problem+json") ||
		strings.Contains(ct, "application/vnd.api+json")
}

func preview(s string) string {
	if len(s) > previewLimit {
		return s[:previewLimit]
	}
	return s
}

func redactedBody(body []byte) any {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return preview(string(body))
	}
	return redact.Value(v)
}

func firstNonZero(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
