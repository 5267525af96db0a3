// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/gate"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// Handler carries the API route handlers and their dependencies.
type Handler struct {
	auth       *auth.Service
	reset      *auth.PasswordResetService
	cookieName string
	logger     *slog.Logger
}

// NewHandler creates the API handler set.
func NewHandler(authService *auth.Service, resetService *auth.PasswordResetService, cookieName string) (*Handler, error) {
	return NewHandlerWithLogger(authService, resetService, cookieName, slog.New(slog.DiscardHandler))
}

// NewHandlerWithLogger creates the API handler set with a custom logger.
func NewHandlerWithLogger(authService *auth.Service, resetService *auth.PasswordResetService, cookieName string, logger *slog.Logger) (*Handler, error) {
	if authService == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if resetService == nil {
		return nil, oops.Errorf("password reset service is required")
	}
	if cookieName == "" {
		return nil, oops.Errorf("cookie name is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Handler{
		auth:       authService,
		reset:      resetService,
		cookieName: cookieName,
		logger:     logger,
	}, nil
}

// Routes returns the API mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", h.handleWelcome)
	mux.HandleFunc("GET /status", h.handleStatus)
	mux.HandleFunc("POST /users", h.handleRegister)
	mux.HandleFunc("POST /sessions", h.handleLogin)
	mux.HandleFunc("DELETE /sessions", h.handleLogout)
	mux.HandleFunc("GET /profile", h.handleProfile)
	mux.HandleFunc("POST /reset_password", h.handleRequestReset)
	mux.HandleFunc("PUT /reset_password", h.handleConsumeReset)
	return mux
}

func (h *Handler) handleWelcome(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, "/", http.StatusOK, map[string]string{"message": "Bienvenue"})
}

func (h *Handler) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, "/status", http.StatusOK, map[string]string{"status": "OK"})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")

	user, err := h.auth.Register(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateUser) {
			writeJSON(w, "/users", http.StatusBadRequest,
				map[string]string{"message": "email already registered"})
			return
		}
		if oopsErr, ok := oops.AsOops(err); ok && oopsErr.Code() == "USER_INVALID_EMAIL" {
			writeJSON(w, "/users", http.StatusBadRequest,
				map[string]string{"message": "invalid email"})
			return
		}
		h.serverError(w, r, "/users", err)
		return
	}

	writeJSON(w, "/users", http.StatusOK,
		map[string]string{"email": user.Email, "message": "user created"})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	password := r.FormValue("password")

	token, err := h.auth.Login(r.Context(), email, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			Logins.WithLabelValues("rejected").Inc()
			writeJSON(w, "/sessions", http.StatusUnauthorized,
				map[string]string{"error": "Unauthorized"})
			return
		}
		Logins.WithLabelValues("error").Inc()
		h.serverError(w, r, "/sessions", err)
		return
	}

	Logins.WithLabelValues("ok").Inc()
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, "/sessions", http.StatusOK,
		map[string]string{"email": email, "message": "logged in"})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(h.cookieName)
	if err != nil || cookie.Value == "" {
		writeJSON(w, "/sessions", http.StatusForbidden,
			map[string]string{"error": "Forbidden"})
		return
	}

	destroyed, err := h.auth.Logout(r.Context(), cookie.Value)
	if err != nil {
		h.serverError(w, r, "/sessions", err)
		return
	}
	if !destroyed {
		writeJSON(w, "/sessions", http.StatusForbidden,
			map[string]string{"error": "Forbidden"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	Requests.WithLabelValues("/sessions", strconv.Itoa(http.StatusFound)).Inc()
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := gate.PrincipalFromContext(r.Context())
	if !ok {
		// Reached without a gate-resolved principal: fall back to the
		// session cookie so the route works under the basic strategy too.
		cookie, err := r.Cookie(h.cookieName)
		if err != nil || cookie.Value == "" {
			writeJSON(w, "/profile", http.StatusForbidden,
				map[string]string{"error": "Forbidden"})
			return
		}
		user, err = h.auth.ResolveSession(r.Context(), cookie.Value)
		if err != nil {
			writeJSON(w, "/profile", http.StatusForbidden,
				map[string]string{"error": "Forbidden"})
			return
		}
	}

	writeJSON(w, "/profile", http.StatusOK, map[string]string{"email": user.Email})
}

func (h *Handler) handleRequestReset(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")

	token, err := h.reset.RequestReset(r.Context(), email)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			writeJSON(w, "/reset_password", http.StatusForbidden,
				map[string]string{"error": "Forbidden"})
			return
		}
		h.serverError(w, r, "/reset_password", err)
		return
	}

	writeJSON(w, "/reset_password", http.StatusOK,
		map[string]string{"email": email, "reset_token": token})
}

func (h *Handler) handleConsumeReset(w http.ResponseWriter, r *http.Request) {
	email := r.FormValue("email")
	token := r.FormValue("reset_token")
	newPassword := r.FormValue("new_password")

	if err := h.reset.ConsumeReset(r.Context(), token, newPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidToken) {
			writeJSON(w, "/reset_password", http.StatusForbidden,
				map[string]string{"error": "Forbidden"})
			return
		}
		h.serverError(w, r, "/reset_password", err)
		return
	}

	writeJSON(w, "/reset_password", http.StatusOK,
		map[string]string{"email": email, "message": "Password updated"})
}

func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, route string, err error) {
	errutil.LogError(h.logger.With("path", r.URL.Path), "request failed", err)
	writeJSON(w, route, http.StatusInternalServerError,
		map[string]string{"error": "Internal Server Error"})
}

func writeJSON(w http.ResponseWriter, route string, status int, body any) {
	Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // response write errors mean the client went away
	json.NewEncoder(w).Encode(body)
}
