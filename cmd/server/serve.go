// Hydroengine - Hydrological Geo-Compute REST Facade
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/hydroengine

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/tomtom215/hydroengine/internal/api"
	"github.com/tomtom215/hydroengine/internal/auth"
	"github.com/tomtom215/hydroengine/internal/cache"
	"github.com/tomtom215/hydroengine/internal/catalog"
	"github.com/tomtom215/hydroengine/internal/config"
	"github.com/tomtom215/hydroengine/internal/earthengine"
	"github.com/tomtom215/hydroengine/internal/hydro"
	"github.com/tomtom215/hydroengine/internal/logging"
	"github.com/tomtom215/hydroengine/internal/supervisor"
	"github.com/tomtom215/hydroengine/internal/supervisor/services"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}
	cmd.Flags().IntVar(&opts.port, "port", 0, "HTTP port (overrides HTTP_PORT)")
	return cmd
}

//nolint:gocyclo // sequential startup
func runServe(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("addr", cfg.Server.Addr()).
		Str("environment", cfg.Server.Environment).
		Str("auth_mode", cfg.Security.AuthMode).
		Str("project", cfg.Backend.Project).
		Msg("Starting hydroengine")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Backend: credentials -> REST client -> circuit breaker.
	var ts oauth2.TokenSource
	if cfg.Backend.Anonymous {
		logging.Warn().Msg("Backend credentials disabled (EE_ANONYMOUS); only use against a local fake")
	} else {
		ts, err = earthengine.NewTokenSource(ctx, &cfg.Backend)
		if err != nil {
			return fmt.Errorf("failed to load backend credentials: %w", err)
		}
	}
	backend := earthengine.NewCircuitBreakerBackend(earthengine.NewClient(&cfg.Backend, ts))

	pingCtx, cancelPing := context.WithTimeout(ctx, 10*time.Second)
	if err := backend.Ping(pingCtx); err != nil {
		logging.Warn().Err(err).Msg("Backend not reachable yet (readiness will report it)")
	} else {
		logging.Info().Str("endpoint", cfg.Backend.Endpoint).Msg("Backend credentials verified")
	}
	cancelPing()

	store, err := cache.OpenStore(cfg.Cache.Path)
	if err != nil {
		return fmt.Errorf("failed to open map cache: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing map cache")
		}
	}()
	maps := cache.NewMapCache(store, cfg.Cache.TTL, cfg.Cache.MaxEntries)
	defer maps.Close()
	if cfg.Cache.Path == "" {
		logging.Info().Msg("Map cache kept in memory")
	} else {
		logging.Info().Str("path", cfg.Cache.Path).Dur("ttl", cfg.Cache.TTL).Msg("Map cache opened")
	}

	svc := hydro.NewService(backend, maps, catalog.Default(), cfg)
	watcher := services.NewTaskWatcher(backend, cfg.Tasks)
	svc.SetTaskTracker(watcher)

	authMW, err := newAuthMiddleware(&cfg.Security)
	if err != nil {
		return err
	}

	router := api.NewRouter(
		api.NewHandler(svc, version),
		authMW,
		api.NewChiMiddlewareFromConfig(&cfg.Security),
	)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Exports and large compute graphs can take a while on the backend.
		WriteTimeout: cfg.Server.Timeout + 10*time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create supervisor tree: %w", err)
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	tree.AddBackgroundService(watcher)

	logging.Info().Str("addr", server.Addr).Msg("HTTP server starting")

	err = tree.Serve(ctx)
	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, u := range report {
			logging.Warn().Str("service", u.Name).Msg("Service did not stop in time")
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree stopped: %w", err)
	}

	logging.Info().Msg("Server stopped")
	return nil
}

func newAuthMiddleware(sec *config.SecurityConfig) (*auth.Middleware, error) {
	if sec.AuthMode != config.AuthModeJWT {
		logging.Warn().Msg("Authentication is disabled (AUTH_MODE=none); export endpoints are public")
		return auth.NewMiddleware(nil, sec.AuthMode), nil
	}
	jwtManager, err := auth.NewJWTManager(sec)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT manager: %w", err)
	}
	logging.Info().Msg("JWT authentication enabled for export endpoints")
	return auth.NewMiddleware(jwtManager, sec.AuthMode), nil
}
