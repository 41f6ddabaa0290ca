// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package metrics collects and exposes Prometheus metrics for the site.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds every metric the site records.
type Collector struct {
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
	sessionDecisions *prometheus.CounterVec
	mutations        *prometheus.CounterVec
	uploads          *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mknursery_http_requests_total",
			Help: "HTTP requests by route pattern, method and status code.",
		}, []string{"route", "method", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mknursery_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		sessionDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mknursery_session_decisions_total",
			Help: "Route guard decisions for admin requests.",
		}, []string{"decision"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mknursery_mutations_total",
			Help: "Admin form submissions by resource and outcome.",
		}, []string{"resource", "outcome"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mknursery_uploads_total",
			Help: "Asset uploads by outcome.",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.httpRequests,
		c.httpLatency,
		c.sessionDecisions,
		c.mutations,
		c.uploads,
	)

	return c
}

// RecordRequest records one finished HTTP request.
func (c *Collector) RecordRequest(route, method string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(route, method, strconv.Itoa(statusCode)).Inc()
	c.httpLatency.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordSessionDecision records a route guard outcome.
func (c *Collector) RecordSessionDecision(decision string) {
	c.sessionDecisions.WithLabelValues(decision).Inc()
}

// RecordMutation records an admin form submission outcome.
func (c *Collector) RecordMutation(resource, outcome string) {
	c.mutations.WithLabelValues(resource, outcome).Inc()
}

// RecordUpload records an asset upload outcome.
func (c *Collector) RecordUpload(outcome string) {
	c.uploads.WithLabelValues(outcome).Inc()
}

// Middleware records every request under its chi route pattern, so ids in the
// path do not explode label cardinality.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}

		next.ServeHTTP(recorder, request)

		route := "unmatched"
		if routeContext := chi.RouteContext(request.Context()); routeContext != nil {
			if pattern := routeContext.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		c.RecordRequest(route, request.Method, recorder.status, time.Since(start))
	})
}

// Handler returns the HTTP handler serving the Prometheus scrape endpoint.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(code int) {
	recorder.status = code
	recorder.ResponseWriter.WriteHeader(code)
}

// Flush keeps streaming responses working through the recorder.
func (recorder *statusRecorder) Flush() {
	if flusher, ok := recorder.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}
