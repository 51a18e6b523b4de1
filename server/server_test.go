package server_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/jalgoai/go-auth-gateway/internal/config"
	"github.com/jalgoai/go-auth-gateway/server"
)

// testConfig overrides the backend base URL; everything else keeps the
// env-var defaults.
type testConfig struct {
	config.EnvVars
	config.Upstream
	config.Cookies
	config.Cors
	baseURL string
}

func (c testConfig) GetAPIBaseURL() string { return c.baseURL }

var _ config.Config = testConfig{}

type fakeBackend struct {
	mux          *http.ServeMux
	srv          *httptest.Server
	profileCalls atomic.Int32
	refreshCalls atomic.Int32
}

// newFakeBackend stands in for the Express service: a profile endpoint
// that rejects stale tokens and a refresh endpoint that rotates cookies.
func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{mux: http.NewServeMux()}

	b.mux.HandleFunc("GET /ipa/v1/users/profile", func(w http.ResponseWriter, r *http.Request) {
		b.profileCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if r.Header.Get("Authorization") != "Bearer fresh-at" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"status":"error","statusCode":401,"message":"expired"}`)
			return
		}
		io.WriteString(w, `{"status":"success","data":{"user_name":"alice"}}`)
	})

	b.mux.HandleFunc("POST /ipa/v1/auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		b.refreshCalls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if !strings.Contains(r.Header.Get("Cookie"), "__Host-rt=good-rt") {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"status":"error","statusCode":401,"code":"REFRESH_EXPIRED","message":"refresh token expired"}`)
			return
		}
		w.Header().Set("Set-Cookie", "__Host-rt=rotated-rt; Path=/; HttpOnly")
		fmt.Fprint(w, `{"status":"success","data":{"accessToken":"fresh-at","user":{"user_id":"u1","user_name":"alice"}}}`)
	})

	b.srv = httptest.NewServer(b.mux)
	t.Cleanup(b.srv.Close)
	return b
}

func newGateway(t *testing.T, baseURL string) *httptest.Server {
	t.Helper()
	s := server.New(testConfig{baseURL: baseURL}, nil, zerolog.Nop())
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, method, url, cookie string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func TestHealthz(t *testing.T) {
	gw := newGateway(t, "http://unused.invalid")
	resp := doRequest(t, http.MethodGet, gw.URL+"/healthz", "")
	require.Equal(t, 200, resp.StatusCode)
	require.Equal(t, map[string]any{"status": "ok"}, decodeBody(t, resp))
}

func TestRefreshRoute(t *testing.T) {
	t.Run("mints token and sets cookies", func(t *testing.T) {
		backend := newFakeBackend(t)
		gw := newGateway(t, backend.srv.URL)

		resp := doRequest(t, http.MethodPost, gw.URL+"/api/auth/refresh", "__Host-rt=good-rt")
		require.Equal(t, 200, resp.StatusCode)

		body := decodeBody(t, resp)
		require.Equal(t, "success", body["status"])
		require.Equal(t, "TOKEN_REFRESHED", body["code"])
		data := body["data"].(map[string]any)
		require.Equal(t, "fresh-at", data["accessToken"])
		require.Equal(t, "u1", data["user"].(map[string]any)["user_id"])

		var names []string
		for _, c := range resp.Cookies() {
			names = append(names, c.Name)
			if c.Name == "__Host-at" {
				require.Equal(t, "fresh-at", c.Value)
				require.True(t, c.HttpOnly)
			}
		}
		require.Contains(t, names, "__Host-at", "access cookie set by the gateway")
		require.Contains(t, names, "__Host-rt", "rotated refresh cookie forwarded")
	})

	t.Run("no refresh cookie yields TOKEN_REFRESH_FAILED", func(t *testing.T) {
		backend := newFakeBackend(t)
		gw := newGateway(t, backend.srv.URL)

		resp := doRequest(t, http.MethodPost, gw.URL+"/api/auth/refresh", "")
		require.Equal(t, 401, resp.StatusCode)

		body := decodeBody(t, resp)
		require.Equal(t, "error", body["status"])
		require.Equal(t, "TOKEN_REFRESH_FAILED", body["code"])
		require.NotEmpty(t, body["requestId"])
		require.NotContains(t, body, "details")
		require.Equal(t, int32(0), backend.refreshCalls.Load())
	})

	t.Run("backend rejection passes its code through", func(t *testing.T) {
		backend := newFakeBackend(t)
		gw := newGateway(t, backend.srv.URL)

		resp := doRequest(t, http.MethodPost, gw.URL+"/api/auth/refresh", "__Host-rt=stale-rt")
		require.Equal(t, 401, resp.StatusCode)
		body := decodeBody(t, resp)
		require.Equal(t, "REFRESH_EXPIRED", body["code"])
	})
}

func TestProxyRoutes(t *testing.T) {
	t.Run("valid token passes straight through", func(t *testing.T) {
		backend := newFakeBackend(t)
		gw := newGateway(t, backend.srv.URL)

		resp := doRequest(t, http.MethodGet, gw.URL+"/api/dashboard/profile", "__Host-at=fresh-at")
		require.Equal(t, 200, resp.StatusCode)
		body := decodeBody(t, resp)
		require.Equal(t, "success", body["status"])
		require.Equal(t, int32(1), backend.profileCalls.Load())
		require.Equal(t, int32(0), backend.refreshCalls.Load())
	})

	t.Run("stale token refreshes silently and retries", func(t *testing.T) {
		backend := newFakeBackend(t)
		gw := newGateway(t, backend.srv.URL)

		resp := doRequest(t, http.MethodGet, gw.URL+"/api/dashboard/profile", "__Host-at=stale; __Host-rt=good-rt")
		require.Equal(t, 200, resp.StatusCode)

		body := decodeBody(t, resp)
		require.Equal(t, "success", body["status"])
		require.Equal(t, int32(2), backend.profileCalls.Load())
		require.Equal(t, int32(1), backend.refreshCalls.Load())

		// rotated refresh cookie from the silent refresh reaches the browser
		var names []string
		for _, c := range resp.Cookies() {
			names = append(names, c.Name)
		}
		require.Contains(t, names, "__Host-rt")
	})

	t.Run("stale token without refresh cookie fails closed", func(t *testing.T) {
		backend := newFakeBackend(t)
		gw := newGateway(t, backend.srv.URL)

		resp := doRequest(t, http.MethodGet, gw.URL+"/api/dashboard/profile", "__Host-at=stale")
		require.Equal(t, 401, resp.StatusCode)
		body := decodeBody(t, resp)
		require.Equal(t, "TOKEN_REFRESH_FAILED", body["code"])
		require.Equal(t, int32(0), backend.refreshCalls.Load())
	})

	t.Run("correlation id is echoed on the response", func(t *testing.T) {
		backend := newFakeBackend(t)
		gw := newGateway(t, backend.srv.URL)

		req, err := http.NewRequest(http.MethodGet, gw.URL+"/api/dashboard/profile", nil)
		require.NoError(t, err)
		req.Header.Set("Cookie", "__Host-at=fresh-at")
		req.Header.Set("X-Request-Id", "rid-e2e")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, "rid-e2e", resp.Header.Get("X-Request-Id"))
	})
}

func TestConfigError(t *testing.T) {
	gw := newGateway(t, "")

	resp := doRequest(t, http.MethodGet, gw.URL+"/api/dashboard/profile", "__Host-at=tok")
	require.Equal(t, 500, resp.StatusCode)
	body := decodeBody(t, resp)
	require.Equal(t, "CONFIG_ERROR", body["code"])
	require.NotEmpty(t, body["requestId"])
}
