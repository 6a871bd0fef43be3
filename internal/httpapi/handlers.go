// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatewarden Contributors

package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gatewarden/gatewarden/internal/auth"
)

// LifecycleMetrics records login and reset token events. Implemented
// by observability.Metrics; nil disables recording.
type LifecycleMetrics interface {
	ObserveLogin(status string)
	ObserveResetToken(kind string)
}

// Lifecycle events reported to metrics.
const (
	loginSucceeded = "success"
	loginFailed    = "failure"
	resetIssued    = "issued"
	resetRedeemed  = "redeemed"
)

// Handlers exposes the account and session lifecycle over HTTP. All
// request bodies are form-encoded; all responses are JSON.
type Handlers struct {
	accounts   *auth.AccountService
	sessions   *auth.SessionService
	resets     *auth.ResetService
	cookieName string
	metrics    LifecycleMetrics
	logger     *slog.Logger
}

// NewHandlers wires the lifecycle services into an HTTP surface.
func NewHandlers(accounts *auth.AccountService, sessions *auth.SessionService, resets *auth.ResetService, cookieName string, metrics LifecycleMetrics, logger *slog.Logger) *Handlers {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{
		accounts:   accounts,
		sessions:   sessions,
		resets:     resets,
		cookieName: cookieName,
		metrics:    metrics,
		logger:     logger,
	}
}

// observeLogin records a login attempt when metrics are configured.
func (h *Handlers) observeLogin(status string) {
	if h.metrics != nil {
		h.metrics.ObserveLogin(status)
	}
}

// observeResetToken records a reset token event when metrics are configured.
func (h *Handlers) observeResetToken(kind string) {
	if h.metrics != nil {
		h.metrics.ObserveResetToken(kind)
	}
}

// Register adds all routes to the mux. Each route is registered with
// and without a trailing slash so both spellings resolve.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.Welcome)

	handle := func(method, path string, fn http.HandlerFunc) {
		mux.HandleFunc(method+" "+path, fn)
		mux.HandleFunc(method+" "+path+"/", fn)
	}

	handle("POST", "/users", h.CreateUser)
	handle("POST", "/sessions", h.CreateSession)
	handle("DELETE", "/sessions", h.DestroySession)
	handle("GET", "/profile", h.Profile)
	handle("POST", "/reset_password", h.IssueResetToken)
	handle("PUT", "/reset_password", h.UpdatePassword)

	mux.HandleFunc("/", h.NotFound)
}

// Welcome answers the landing route.
func (h *Handlers) Welcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Bienvenue"})
}

// NotFound answers unmatched routes with the uniform error body.
func (h *Handlers) NotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "Not found")
}

// CreateUser registers a new account from form-encoded email and
// password fields.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")
	if email == "" || password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "email and password are required"})
		return
	}

	user, err := h.accounts.Register(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, auth.ErrUserExists) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"message": "email already registered"})
			return
		}
		h.logger.ErrorContext(r.Context(), "registration failed", slog.Any("error", err))
		writeError(w, http.StatusBadRequest, "invalid registration")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"email":   user.Email,
		"message": "user created",
	})
}

// CreateSession logs a user in and sets the session cookie.
func (h *Handlers) CreateSession(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")

	user, token, err := h.sessions.Login(r.Context(), email, password)
	if err != nil {
		h.observeLogin(loginFailed)
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	h.observeLogin(loginSucceeded)

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{
		"email":   user.Email,
		"message": "logged in",
	})
}

// DestroySession logs the requesting user out. The session is located
// from the request itself so logout works regardless of which auth
// strategy gates the route.
func (h *Handlers) DestroySession(w http.ResponseWriter, r *http.Request) {
	user := h.sessionUser(r)
	if user == nil {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}

	if err := h.sessions.DestroySession(r.Context(), user.ID); err != nil {
		h.logger.ErrorContext(r.Context(), "logout failed",
			slog.String("user_id", user.ID.String()),
			slog.Any("error", err))
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

// Profile returns the requesting user's email.
func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	user := h.sessionUser(r)
	if user == nil {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": user.Email})
}

// IssueResetToken generates a password-reset token for the given
// email. The token is returned in the response body; a real deployment
// would deliver it out of band instead.
func (h *Handlers) IssueResetToken(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")

	token, err := h.resets.Issue(r.Context(), email)
	if err != nil {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	h.observeResetToken(resetIssued)

	writeJSON(w, http.StatusOK, map[string]string{
		"email":       email,
		"reset_token": token,
	})
}

// UpdatePassword redeems a reset token and installs the new password.
// The token alone authorizes the change; the email field is echoed
// from the matched user, not trusted from the request.
func (h *Handlers) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	token := r.FormValue("reset_token")
	newPassword := r.FormValue("new_password")

	user, err := h.resets.Consume(r.Context(), token, newPassword)
	if err != nil {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}
	h.observeResetToken(resetRedeemed)

	writeJSON(w, http.StatusOK, map[string]string{
		"email":   user.Email,
		"message": "Password updated",
	})
}

// sessionUser resolves the requesting user, preferring the identity
// the auth middleware attached, falling back to the session cookie so
// session-bound routes work under any gating strategy.
func (h *Handlers) sessionUser(r *http.Request) *auth.User {
	if user := CurrentUser(r.Context()); user != nil {
		return user
	}

	cookie, err := r.Cookie(h.cookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	user, err := h.sessions.ResolveUser(r.Context(), cookie.Value)
	if err != nil {
		return nil
	}
	return user
}

// writeJSON renders v as a JSON response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
