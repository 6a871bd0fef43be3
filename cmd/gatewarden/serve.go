// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatewarden/gatewarden/internal/auth"
	"github.com/gatewarden/gatewarden/internal/auth/memory"
	"github.com/gatewarden/gatewarden/internal/auth/postgres"
	"github.com/gatewarden/gatewarden/internal/config"
	"github.com/gatewarden/gatewarden/internal/httpapi"
	"github.com/gatewarden/gatewarden/internal/logging"
	"github.com/gatewarden/gatewarden/internal/observability"
	"github.com/gatewarden/gatewarden/internal/store"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long: `Start the HTTP API server with the configured authentication
strategy gating every route not on the exclusion list.`,
		RunE: runServe,
	}

	// Flag names mirror config keys so they layer over file and env.
	cmd.Flags().String("server.addr", "", "API listen address")
	cmd.Flags().String("auth.strategy", "", "auth strategy (none, basic, session, session-with-expiry)")
	cmd.Flags().Duration("auth.session_ttl", 0, "session lifetime for session-with-expiry")
	cmd.Flags().String("database.url", "", "PostgreSQL connection string (empty = in-memory store)")
	cmd.Flags().String("metrics.addr", "", "observability listen address")
	cmd.Flags().String("log.format", "", "log format (json or text)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	logging.SetDefault("gatewarden", version, cfg.Log.Format)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var users auth.UserRepository
	if cfg.Database.URL != "" {
		pool, connErr := store.Connect(ctx, cfg.Database.URL)
		if connErr != nil {
			return connErr
		}
		defer pool.Close()
		users = postgres.NewUserRepository(pool)
	} else {
		logger.Warn("no database configured, using in-memory store")
		users = memory.NewUserRepository()
	}

	hasher := auth.NewArgon2idHasher()

	ttl := time.Duration(0)
	if cfg.Auth.Strategy == string(httpapi.KindSessionExpiry) {
		ttl = cfg.Auth.SessionTTL
	}

	sessions, err := auth.NewSessionServiceWithLogger(users, hasher, ttl, logger)
	if err != nil {
		return err
	}
	accounts, err := auth.NewAccountServiceWithLogger(users, hasher, logger)
	if err != nil {
		return err
	}
	resets, err := auth.NewResetServiceWithLogger(users, hasher, logger)
	if err != nil {
		return err
	}

	excluded, err := httpapi.NewExclusionList(cfg.Auth.ExcludedPaths)
	if err != nil {
		return err
	}

	kind, err := httpapi.ParseKind(cfg.Auth.Strategy)
	if err != nil {
		return err
	}
	strategy, err := httpapi.NewStrategy(kind, httpapi.StrategyDeps{
		Users:      users,
		Hasher:     hasher,
		Sessions:   sessions,
		CookieName: cfg.Server.CookieName,
		Excluded:   excluded,
	})
	if err != nil {
		return err
	}

	obs := observability.NewServer(cfg.Metrics.Addr, nil)
	obsErrCh, err := obs.Start()
	if err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if stopErr := obs.Stop(stopCtx); stopErr != nil {
			logger.Error("failed to stop observability server", "error", stopErr)
		}
	}()

	handlers := httpapi.NewHandlers(accounts, sessions, resets, cfg.Server.CookieName, obs.Metrics(), logger)
	gate := httpapi.RequireAuth(strategy, logger, obs.Metrics())
	server := httpapi.NewServer(cfg.Server.Addr, handlers, gate, logger)

	logger.Info("starting gatewarden",
		"strategy", cfg.Auth.Strategy,
		"addr", cfg.Server.Addr,
	)

	serveErrCh := make(chan error, 1)
	go func() {
		serveErrCh <- server.Start(ctx)
	}()

	select {
	case serveErr := <-serveErrCh:
		return serveErr
	case obsErr, ok := <-obsErrCh:
		if ok && obsErr != nil {
			stop()
			<-serveErrCh
			return oops.Code("OBSERVABILITY_FAILED").Wrap(obsErr)
		}
		return <-serveErrCh
	}
}
