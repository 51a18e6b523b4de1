package server

import (
	"encoding/json"
	"net/http"
)

// Upstream paths on the Express backend.
const (
	upstreamProfilePath   = "/ipa/v1/users/profile"
	upstreamDashboardPath = "/ipa/v1/users/dashboard"
)

func (s *Server) initRoutes() {
	api := s.APIMiddleware()

	s.RegisterRouteFunc("GET /healthz", s.HealthHandler())

	s.RegisterRouteFunc("POST /api/auth/refresh", ChainMiddleware(s.RefreshHandler(), api...))

	s.RegisterRouteFunc("GET /api/dashboard/profile", ChainMiddleware(s.proxyTo(http.MethodGet, upstreamProfilePath), api...))
	s.RegisterRouteFunc("PUT /api/dashboard/profile", ChainMiddleware(s.proxyTo(http.MethodPut, upstreamProfilePath), api...))
	s.RegisterRouteFunc("GET /api/dashboard/load", ChainMiddleware(s.proxyTo(http.MethodGet, upstreamDashboardPath), api...))
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentTypeJSON)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
