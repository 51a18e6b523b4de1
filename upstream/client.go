package upstream

import (
	"net/http"
	"time"
)

// NewClient builds the HTTP client shared by the fetcher and the
// refresher. Redirects are surfaced to the caller rather than followed, so
// a backend redirect (with its Set-Cookie headers) passes through intact,
// and every round trip is bounded by the timeout.
func NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
