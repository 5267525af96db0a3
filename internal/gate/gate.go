// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package gate

import (
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/pkg/errutil"
)

// Gate is an HTTP middleware that enforces authentication on every
// request whose path is not exempt. A nil strategy disables enforcement
// entirely: every request passes, with no principal attached.
type Gate struct {
	strategy    Strategy
	exemptPaths []string
	logger      *slog.Logger
}

// New creates a Gate using the given strategy and exemption list.
// strategy may be nil to disable enforcement.
func New(strategy Strategy, exemptPaths []string) (*Gate, error) {
	return NewWithLogger(strategy, exemptPaths, slog.New(slog.DiscardHandler))
}

// NewWithLogger creates a Gate with a custom logger.
func NewWithLogger(strategy Strategy, exemptPaths []string, logger *slog.Logger) (*Gate, error) {
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	return &Gate{
		strategy:    strategy,
		exemptPaths: exemptPaths,
		logger:      logger,
	}, nil
}

// Wrap returns next guarded by the gate.
func (g *Gate) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.strategy == nil || !RequireAuth(r.URL.Path, g.exemptPaths) {
			Decisions.WithLabelValues(outcomeExempt).Inc()
			next.ServeHTTP(w, r)
			return
		}

		credential, presented := g.strategy.Credential(r)
		if !presented {
			Decisions.WithLabelValues(outcomeUnauthenticated).Inc()
			writeJSONError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		user, err := g.strategy.Resolve(r.Context(), credential)
		if err != nil || user == nil {
			if err != nil {
				errutil.LogError(g.logger.With("path", r.URL.Path), "credential rejected", err)
			}
			Decisions.WithLabelValues(outcomeForbidden).Inc()
			writeJSONError(w, http.StatusForbidden, "Forbidden")
			return
		}

		Decisions.WithLabelValues(outcomeOK).Inc()
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), user)))
	})
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The body shape is part of the API contract.
	w.Write([]byte(`{"error":"` + message + `"}` + "\n")) //nolint:errcheck
}
