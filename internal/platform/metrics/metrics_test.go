// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/mknursery/internal/platform/metrics"
)

/*
TestMiddleware_UsesRoutePattern verifies requests are labelled by pattern, not path.
*/
func TestMiddleware_UsesRoutePattern(t *testing.T) {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	router := chi.NewRouter()
	router.Use(collector.Middleware)
	router.Get("/catalog/{id}", func(writer http.ResponseWriter, request *http.Request) {
		writer.WriteHeader(http.StatusNotFound)
	})
	router.Handle("/metrics", metrics.Handler(registry))

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/catalog/abc", nil))
	collector.RecordSessionDecision("unauthorized")
	collector.RecordMutation("plants", "succeeded")
	collector.RecordUpload("failed")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := recorder.Body.String()
	assert.Contains(t, body, `mknursery_http_requests_total{method="GET",route="/catalog/{id}",status_code="404"} 1`)
	assert.Contains(t, body, `mknursery_session_decisions_total{decision="unauthorized"} 1`)
	assert.Contains(t, body, `mknursery_mutations_total{outcome="succeeded",resource="plants"} 1`)
	assert.Contains(t, body, `mknursery_uploads_total{outcome="failed"} 1`)
}
