package correlation_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jalgoai/go-auth-gateway/correlation"
	"github.com/stretchr/testify/require"
)

func TestFromHeaders(t *testing.T) {
	t.Run("reuses inbound request id", func(t *testing.T) {
		h := http.Header{}
		h.Set("X-Request-Id", "req-123")
		h.Set("X-Action-Id", "act-7")

		c := correlation.FromHeaders(h)
		require.Equal(t, "req-123", c.RequestID)
		require.Equal(t, "act-7", c.ActionID)
	})

	t.Run("generates request id when absent", func(t *testing.T) {
		c := correlation.FromHeaders(http.Header{})
		require.NotEmpty(t, c.RequestID)
		require.Empty(t, c.ActionID)
	})

	t.Run("generated ids differ between calls", func(t *testing.T) {
		a := correlation.FromHeaders(http.Header{})
		b := correlation.FromHeaders(http.Header{})
		require.NotEqual(t, a.RequestID, b.RequestID)
	})
}

func TestApply(t *testing.T) {
	t.Run("sets both headers", func(t *testing.T) {
		c := correlation.Correlation{RequestID: "rid", ActionID: "aid"}
		h := http.Header{}
		c.Apply(h)
		require.Equal(t, "rid", h.Get("X-Request-Id"))
		require.Equal(t, "aid", h.Get("X-Action-Id"))
	})

	t.Run("omits empty action id", func(t *testing.T) {
		c := correlation.Correlation{RequestID: "rid"}
		h := http.Header{}
		c.Apply(h)
		require.Empty(t, h.Values("X-Action-Id"))
	})
}

func TestContextRoundTrip(t *testing.T) {
	c := correlation.Correlation{RequestID: "rid", ActionID: "aid"}
	ctx := correlation.WithContext(t.Context(), c)
	require.Equal(t, c, correlation.FromContext(ctx))
	require.Equal(t, correlation.Correlation{}, correlation.FromContext(t.Context()))
}

func TestMiddleware(t *testing.T) {
	var seen correlation.Correlation
	handler := correlation.Middleware(func(w http.ResponseWriter, r *http.Request) {
		seen = correlation.FromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "rid-1")
	rec := httptest.NewRecorder()
	handler(rec, req)

	require.Equal(t, "rid-1", seen.RequestID)
	require.Equal(t, "rid-1", rec.Header().Get("X-Request-Id"))
}
