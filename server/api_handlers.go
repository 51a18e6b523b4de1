package server

import (
	"io"
	"net/http"

	"github.com/jalgoai/go-auth-gateway/apierror"
	"github.com/jalgoai/go-auth-gateway/correlation"
	"github.com/jalgoai/go-auth-gateway/upstream"
)

// maxProxyBody bounds how much request body the gateway buffers for a
// proxied call (the body must be replayable for the post-refresh retry).
const maxProxyBody = 10 << 20 // 10 MiB

// proxyFunc performs one upstream exchange on behalf of the inbound
// request and returns the result to stream back.
type proxyFunc func(r *http.Request, corr correlation.Correlation) (*upstream.Result, error)

// apiHandler is the request-handling boundary: it fails fast on missing
// configuration, forwards staged cookie mutations even on failure, and
// turns any error into the minimal JSON error body exactly once.
func (s *Server) apiHandler(h proxyFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		corr := correlation.FromContext(r.Context())
		if corr.RequestID == "" {
			corr = correlation.FromHeaders(r.Header)
		}
		log := s.requestLogger(r, corr)

		if s.config.GetAPIBaseURL() == "" {
			s.writeError(w, log, apierror.New(500, "Server misconfiguration: API_BASE_URL is not set",
				apierror.CodeConfigError, nil, corr))
			return
		}

		res, err := h(r, corr)
		if res != nil {
			for _, c := range res.SetCookies {
				w.Header().Add("Set-Cookie", c)
			}
		}
		if err != nil {
			s.writeError(w, log, apierror.FromUnknown(err, corr))
			return
		}

		s.writeUpstream(w, res.Response, nil, corr)
	}
}

// proxyTo builds the standard pass-through handler for an upstream path.
func (s *Server) proxyTo(method, upstreamPath string) http.HandlerFunc {
	return s.apiHandler(func(r *http.Request, corr correlation.Correlation) (*upstream.Result, error) {
		var body []byte
		if r.Body != nil {
			var err error
			body, err = io.ReadAll(io.LimitReader(r.Body, maxProxyBody))
			if err != nil {
				return nil, apierror.New(400, "Failed to read request body", apierror.CodeAPIError, nil, corr).WithCause(err)
			}
		}
		return s.fetcher.Do(r.Context(), &upstream.Request{
			Method: method,
			URL:    s.config.GetAPIBaseURL() + upstreamPath,
			Header: r.Header,
			Body:   body,
		})
	})
}
