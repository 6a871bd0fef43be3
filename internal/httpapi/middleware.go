// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// AuthMetrics records gate outcomes. Implemented by
// observability.Metrics; nil disables recording.
type AuthMetrics interface {
	ObserveAuthOutcome(outcome string)
}

// Gate outcomes reported to metrics.
const (
	outcomeExcluded     = "excluded"
	outcomeAuthorized   = "authorized"
	outcomeUnauthorized = "unauthorized"
	outcomeForbidden    = "forbidden"
)

// RequireAuth gates every request through the configured strategy.
// Excluded paths pass untouched. A missing credential answers 401, a
// credential that does not resolve answers 403, and a resolved user is
// attached to the request context for handlers downstream.
func RequireAuth(strategy Strategy, logger *slog.Logger, metrics AuthMetrics) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	observe := func(outcome string) {
		if metrics != nil {
			metrics.ObserveAuthOutcome(outcome)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strategy.RequiresAuth(r.URL.Path) {
				observe(outcomeExcluded)
				next.ServeHTTP(w, r)
				return
			}

			credential, ok := strategy.Credential(r)
			if !ok {
				observe(outcomeUnauthorized)
				logger.DebugContext(r.Context(), "request rejected: no credential",
					slog.String("path", r.URL.Path))
				writeError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}

			user, err := strategy.Resolve(r.Context(), credential)
			if err != nil {
				observe(outcomeForbidden)
				logger.ErrorContext(r.Context(), "credential resolution failed",
					slog.String("path", r.URL.Path),
					slog.Any("error", err))
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}
			if user == nil {
				observe(outcomeForbidden)
				logger.DebugContext(r.Context(), "request rejected: credential did not resolve",
					slog.String("path", r.URL.Path))
				writeError(w, http.StatusForbidden, "Forbidden")
				return
			}

			observe(outcomeAuthorized)
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// writeError renders the uniform JSON error body.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
