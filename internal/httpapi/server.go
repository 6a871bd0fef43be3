// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

// Package httpapi provides the HTTP surface: the request
// authentication gate, the account/session lifecycle handlers, and
// the server that hosts them.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/samber/oops"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Server hosts the authenticated HTTP API.
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer builds the route table, wraps it in the auth gate, and
// returns a server listening on addr once started.
func NewServer(addr string, handlers *Handlers, gate func(http.Handler) http.Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mux := http.NewServeMux()
	handlers.Register(mux)

	var root http.Handler = mux
	if gate != nil {
		root = gate(mux)
	}

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           root,
			ReadHeaderTimeout: readHeaderTimeout,
		},
		logger: logger,
	}
}

// Start runs the server until ctx is canceled, then shuts down
// gracefully. Blocks until shutdown completes.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("http server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return oops.Code("HTTP_SERVER_FAILED").
				With("addr", s.srv.Addr).
				Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return oops.Code("HTTP_SERVER_SHUTDOWN_FAILED").Wrap(err)
	}
	// Wait for the serve goroutine to wind down.
	<-errCh
	return nil
}
