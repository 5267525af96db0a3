// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package gate

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Decisions counts gate outcomes per request.
	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gatehouse",
			Subsystem: "gate",
			Name:      "decisions_total",
			Help:      "Authorization gate decisions by outcome.",
		},
		[]string{"outcome"},
	)
)

// Outcome label values for Decisions.
const (
	outcomeExempt          = "exempt"
	outcomeOK              = "ok"
	outcomeUnauthenticated = "unauthenticated"
	outcomeForbidden       = "forbidden"
)

// RegisterMetrics registers gate metrics with the given registerer.
func RegisterMetrics(reg prometheus.Registerer) error {
	return reg.Register(Decisions)
}
