// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Natours Contributors

package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/natours/natours/internal/auth"
)

// Metrics contains the custom Prometheus metrics for natours.
type Metrics struct {
	AuthEventsTotal     *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	RateLimitedTotal    prometheus.Counter
}

// NewMetrics creates and registers the natours metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AuthEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "natours_auth_events_total",
				Help: "Total number of authentication events by event and outcome",
			},
			[]string{"event", "outcome"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "natours_http_requests_total",
				Help: "Total number of HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "natours_http_request_duration_seconds",
				Help:    "HTTP request latency by method and route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		RateLimitedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "natours_http_rate_limited_total",
				Help: "Total number of requests rejected by the rate limiter",
			},
		),
	}

	reg.MustRegister(m.AuthEventsTotal, m.HTTPRequestsTotal, m.HTTPRequestDuration, m.RateLimitedTotal)
	return m
}

// RecordAuthEvent implements auth.EventRecorder.
func (m *Metrics) RecordAuthEvent(event, outcome string) {
	m.AuthEventsTotal.WithLabelValues(event, outcome).Inc()
}

// ObserveRequest records one completed HTTP request. route is the matched
// route template, not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordRateLimited counts a request rejected by the rate limiter.
func (m *Metrics) RecordRateLimited() {
	m.RateLimitedTotal.Inc()
}

var _ auth.EventRecorder = (*Metrics)(nil)
