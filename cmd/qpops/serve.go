package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quantumproof-labs/qpops/pkg/api"
	"github.com/quantumproof-labs/qpops/pkg/config"
	"github.com/quantumproof-labs/qpops/pkg/observability"
)

// runServer starts the HTTP API and blocks until shutdown.
func runServer(stderr io.Writer) int {
	cfg := config.Load()
	logger := newLogger(stderr, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	obsCfg := observability.DefaultConfig()
	obsCfg.Enabled = cfg.OTLPEndpoint != ""
	if obsCfg.Enabled {
		obsCfg.OTLPEndpoint = cfg.OTLPEndpoint
	}
	obs, err := observability.New(ctx, obsCfg)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "observability setup failed: %v\n", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = obs.Shutdown(shutdownCtx)
	}()

	pipeline, engine, secCtx, err := buildComponents(cfg, logger, obs)
	if err != nil {
		_, _ = fmt.Fprintf(stderr, "setup failed: %v\n", err)
		return 1
	}

	service := api.NewService(logger, pipeline, engine, secCtx)
	limiter := api.NewRateLimiter(cfg.RateLimitPerMinute)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           limiter.Middleware(service.Routes()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "port", cfg.Port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			_, _ = fmt.Fprintf(stderr, "server failed: %v\n", err)
			return 1
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			_, _ = fmt.Fprintf(stderr, "shutdown failed: %v\n", err)
			return 1
		}
	}
	return 0
}
