package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/jalgoai/go-auth-gateway/correlation"
	"github.com/jalgoai/go-auth-gateway/internal/config"
	"github.com/jalgoai/go-auth-gateway/upstream"
)

type Server struct {
	env       string // Environment (e.g. "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	fetcher   *upstream.Fetcher
	refresher *upstream.Refresher
	log       zerolog.Logger
}

func New(cfg config.Config, tracer trace.Tracer, logger zerolog.Logger) *Server {
	client := upstream.NewClient(cfg.GetUpstreamTimeout())
	refresher := upstream.NewRefresher(client, cfg.GetAPIBaseURL(), cfg.GetRefreshPath(), logger)

	s := &Server{
		env:       cfg.GetEnv(),
		mux:       http.NewServeMux(),
		config:    cfg,
		fetcher:   upstream.NewFetcher(client, refresher, tracer, logger),
		refresher: refresher,
		log:       logger,
	}

	if cfg.GetAPIBaseURL() == "" {
		// Routes still come up; API handlers answer CONFIG_ERROR until
		// the base URL is set.
		logger.Warn().Msg("API_BASE_URL is not set")
	}

	s.initRoutes()
	s.logRoutes()

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}

// requestLogger builds the request-scoped logger every handler logs with.
func (s *Server) requestLogger(r *http.Request, corr correlation.Correlation) zerolog.Logger {
	return s.log.With().
		Str("requestId", corr.RequestID).
		Str("actionId", corr.ActionID).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Str("clientIp", clientIP(r)).
		Logger()
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.SplitN(xff, ",", 2)[0])
	}
	if rip := r.Header.Get("X-Real-Ip"); rip != "" {
		return rip
	}
	return r.RemoteAddr
}
