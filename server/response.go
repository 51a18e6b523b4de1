package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/jalgoai/go-auth-gateway/apierror"
	"github.com/jalgoai/go-auth-gateway/correlation"
	"github.com/jalgoai/go-auth-gateway/internal/redact"
)

const contentTypeJSON = "application/json; charset=utf-8"

// apiResponse is the envelope for responses the gateway authors itself
// (as opposed to upstream passthroughs).
type apiResponse struct {
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
	RequestID  string `json:"requestId,omitempty"`
	ActionID   string `json:"actionId,omitempty"`
	Data       any    `json:"data,omitempty"`
}

func setCorrelationHeaders(w http.ResponseWriter, corr correlation.Correlation) {
	corr.Apply(w.Header())
	// let browsers read the ids
	w.Header().Set("Access-Control-Expose-Headers", "X-Request-Id, X-Action-Id")
}

func (s *Server) writeSuccess(w http.ResponseWriter, corr correlation.Correlation, code, message string, data any) {
	setCorrelationHeaders(w, corr)
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(apiResponse{
		Status:     "success",
		StatusCode: http.StatusOK,
		Code:       code,
		Message:    message,
		RequestID:  corr.RequestID,
		ActionID:   corr.ActionID,
		Data:       data,
	})
}

// writeError logs the failure in full (details redacted) and sends the
// minimal client-visible error body. Internal details and causes never
// reach the browser.
func (s *Server) writeError(w http.ResponseWriter, log zerolog.Logger, apiErr *apierror.APIError) {
	log.Error().
		Int("statusCode", apiErr.StatusCode).
		Str("code", apiErr.Code).
		Str("message", apiErr.Message).
		Interface("details", redact.Value(apiErr.Details)).
		AnErr("cause", apiErr.Unwrap()).
		Msg("api.error")

	setCorrelationHeaders(w, correlation.Correlation{RequestID: apiErr.RequestID, ActionID: apiErr.ActionID})
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(apiErr.StatusCode)
	_ = json.NewEncoder(w).Encode(apiErr.Body())
}

// writeUpstream streams a proxied response through, re-staging cookie
// mutations separately (Set-Cookie is excluded from the direct header copy
// so mutations are not duplicated).
func (s *Server) writeUpstream(w http.ResponseWriter, resp *http.Response, setCookies []string, corr correlation.Correlation) {
	defer resp.Body.Close()

	for k, vals := range resp.Header {
		switch k {
		case "Set-Cookie", "Content-Length", "Connection", "Transfer-Encoding":
			continue
		}
		for _, v := range vals {
			w.Header().Add(k, v)
		}
	}
	for _, c := range setCookies {
		w.Header().Add("Set-Cookie", c)
	}
	setCorrelationHeaders(w, corr)

	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, resp.Body)
}
