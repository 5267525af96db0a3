// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Requests counts API requests by route and status code.
	Requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gatehouse",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "API requests by route and status.",
		},
		[]string{"route", "status"},
	)

	// Logins counts login attempts by result.
	Logins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gatehouse",
			Subsystem: "api",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		},
		[]string{"result"},
	)
)

// RegisterMetrics registers web metrics with the given registerer.
func RegisterMetrics(reg prometheus.Registerer) error {
	return errors.Join(reg.Register(Requests), reg.Register(Logins))
}
