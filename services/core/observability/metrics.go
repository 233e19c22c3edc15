// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the core: request
// counters, cognition latency, loop cycle counters and the daily token
// gauge. Metrics are exposed via the /metrics endpoint.
package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "avatarcore"

// CoreMetrics holds all Prometheus metrics of the core service. All methods
// are safe on a nil receiver so tests can run without a registry.
type CoreMetrics struct {
	// RequestsTotal counts HTTP requests by endpoint and status.
	RequestsTotal *prometheus.CounterVec

	// CognitionSeconds measures cognition call latency by stage.
	CognitionSeconds *prometheus.HistogramVec

	// CognitionErrorsTotal counts cognition failures by kind
	// (timeout, contract, transport).
	CognitionErrorsTotal *prometheus.CounterVec

	// LoopCyclesTotal counts autonomous loop cycles by outcome.
	LoopCyclesTotal *prometheus.CounterVec

	// TokensUsedToday tracks the persisted daily token counter.
	TokensUsedToday prometheus.Gauge

	// SessionsLive tracks the session store size.
	SessionsLive prometheus.Gauge
}

var (
	defaultMetrics *CoreMetrics
	initOnce       sync.Once
)

// InitMetrics registers the default metrics exactly once and returns them.
func InitMetrics() *CoreMetrics {
	initOnce.Do(func() {
		defaultMetrics = &CoreMetrics{
			RequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricsNamespace,
					Name:      "requests_total",
					Help:      "HTTP requests by endpoint and status",
				},
				[]string{"endpoint", "status"},
			),
			CognitionSeconds: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: metricsNamespace,
					Name:      "cognition_seconds",
					Help:      "Cognition call latency by stage",
					Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 30},
				},
				[]string{"stage"},
			),
			CognitionErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricsNamespace,
					Name:      "cognition_errors_total",
					Help:      "Cognition failures by kind",
				},
				[]string{"kind"},
			),
			LoopCyclesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: metricsNamespace,
					Name:      "loop_cycles_total",
					Help:      "Autonomous loop cycles by outcome",
				},
				[]string{"outcome"},
			),
			TokensUsedToday: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: metricsNamespace,
					Name:      "tokens_used_today",
					Help:      "Cognition tokens used since the daily reset",
				},
			),
			SessionsLive: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: metricsNamespace,
					Name:      "sessions_live",
					Help:      "Live sessions in the TTL store",
				},
			),
		}
	})
	return defaultMetrics
}

// RecordRequest records one handled HTTP request.
func (m *CoreMetrics) RecordRequest(endpoint string, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(endpoint, status).Inc()
}

// RecordCognition records a completed cognition call.
func (m *CoreMetrics) RecordCognition(stage string, seconds float64) {
	if m == nil {
		return
	}
	m.CognitionSeconds.WithLabelValues(stage).Observe(seconds)
}

// RecordCognitionError records a failed cognition call.
func (m *CoreMetrics) RecordCognitionError(kind string) {
	if m == nil {
		return
	}
	m.CognitionErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordCycle records one autonomous loop cycle.
func (m *CoreMetrics) RecordCycle(outcome string) {
	if m == nil {
		return
	}
	m.LoopCyclesTotal.WithLabelValues(outcome).Inc()
}

// SetTokensUsed mirrors the persisted daily counter into the gauge.
func (m *CoreMetrics) SetTokensUsed(used int) {
	if m == nil {
		return
	}
	m.TokensUsedToday.Set(float64(used))
}

// SetSessionsLive mirrors the session store size into the gauge.
func (m *CoreMetrics) SetSessionsLive(n int) {
	if m == nil {
		return
	}
	m.SessionsLive.Set(float64(n))
}
