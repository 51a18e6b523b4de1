package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/jalgoai/go-auth-gateway/internal/config"
	"github.com/jalgoai/go-auth-gateway/internal/telemetry"
	"github.com/jalgoai/go-auth-gateway/server"
)

func main() {
	for {
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error running server: %s\n", err)
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
}

func run() (returnError error) {
	logger := newLogger()

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	ctx := context.Background()
	tracer, shutdownTracing, err := telemetry.Setup(ctx, c.GetServiceName(), c.GetEnv(), c.GetOTLPEndpoint())
	if err != nil {
		return fmt.Errorf("telemetry.Setup: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn().Err(err).Msg("tracing shutdown")
		}
	}()

	httpServer := &http.Server{Addr: c.GetPort(), Handler: server.New(c, tracer, logger)}
	go listenAndServe(httpServer, logger)
	waitForStopSignal()
	returnError = shutdown(httpServer)
	logger.Info().Msg("server stopped")
	return returnError
}

// newLogger builds the process logger: human-readable console output in
// DEV, JSON elsewhere.
func newLogger() zerolog.Logger {
	if os.Getenv("ENV") == "DEV" || os.Getenv("ENV") == "" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
			With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func listenAndServe(srv *http.Server, logger zerolog.Logger) {
	logger.Info().Str("addr", srv.Addr).Msg("server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
