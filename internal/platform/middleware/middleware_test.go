// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/mknursery/internal/platform/constants"
	"github.com/taibuivan/mknursery/internal/platform/ctxutil"
	"github.com/taibuivan/mknursery/internal/platform/middleware"
)

var okHandler = http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
	writer.WriteHeader(http.StatusOK)
})

/*
TestRequestID_GeneratesAndPropagates covers both the generated and the forwarded id.
*/
func TestRequestID_GeneratesAndPropagates(t *testing.T) {
	var seen string
	handler := middleware.RequestID()(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		seen = ctxutil.GetRequestID(request.Context())
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, seen)
	assert.Equal(t, seen, recorder.Header().Get(constants.HeaderXRequestID))

	request := httptest.NewRequest(http.MethodGet, "/", nil)
	request.Header.Set(constants.HeaderXRequestID, "upstream-id")
	handler.ServeHTTP(httptest.NewRecorder(), request)
	assert.Equal(t, "upstream-id", seen)
}

/*
TestStructuredLogger_LogsStatusAndUser checks the access log line.
*/
func TestStructuredLogger_LogsStatusAndUser(t *testing.T) {
	var buffer bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buffer, nil))

	handler := middleware.StructuredLogger(logger)(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		middleware.NoteUser(request.Context(), "user-1")
		writer.WriteHeader(http.StatusNotFound)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/catalog/x", nil))

	var record map[string]any
	require.NoError(t, json.Unmarshal(buffer.Bytes(), &record))
	assert.Equal(t, "http_request_finished", record["msg"])
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, float64(http.StatusNotFound), record["status"])
	assert.Equal(t, "user-1", record["user_id"])
}

/*
TestRateLimit_RejectsAfterBurst verifies the per-IP bucket.
*/
func TestRateLimit_RejectsAfterBurst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handler := middleware.RateLimit(ctx, 0.01, 2)(okHandler)

	codes := make([]int, 0, 3)
	for range 3 {
		recorder := httptest.NewRecorder()
		request := httptest.NewRequest(http.MethodPost, "/login", nil)
		request.RemoteAddr = "10.0.0.1:5555"
		handler.ServeHTTP(recorder, request)
		codes = append(codes, recorder.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	other := httptest.NewRequest(http.MethodPost, "/login", nil)
	other.RemoteAddr = "10.0.0.2:5555"
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, other)
	assert.Equal(t, http.StatusOK, recorder.Code)
}

/*
TestPanicRecovery_Returns500 keeps the server alive after a handler panic.
*/
func TestPanicRecovery_Returns500(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	handler := middleware.PanicRecovery(logger)(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		panic("boom")
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}

/*
TestSecurityHeaders_Set verifies the defensive headers.
*/
func TestSecurityHeaders_Set(t *testing.T) {
	recorder := httptest.NewRecorder()
	middleware.SecurityHeaders(okHandler).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", recorder.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", recorder.Header().Get("X-Frame-Options"))
	assert.Contains(t, recorder.Header().Get("Content-Security-Policy"), "default-src 'self'")
}

/*
TestRealIP_Precedence checks the proxy header order.
*/
func TestRealIP_Precedence(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"real_ip", map[string]string{constants.HeaderXRealIP: "1.1.1.1", constants.HeaderXForwardedFor: "2.2.2.2"}, "1.1.1.1"},
		{"forwarded_first_hop", map[string]string{constants.HeaderXForwardedFor: "2.2.2.2, 3.3.3.3"}, "2.2.2.2"},
		{"remote_addr", nil, "192.0.2.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			for key, value := range tt.headers {
				request.Header.Set(key, value)
			}
			assert.Equal(t, tt.want, middleware.RealIP(request))
		})
	}
}

/*
TestCSRF_SafeMethodIssuesCookie exposes the token to templates on GET.
*/
func TestCSRF_SafeMethodIssuesCookie(t *testing.T) {
	var token string
	handler := middleware.CSRF(middleware.CSRFConfig{})(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		token = ctxutil.GetCSRFToken(request.Context())
	}))

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/admin/plants/new", nil))

	cookies := recorder.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, constants.CSRFCookieName, cookies[0].Name)
	assert.Equal(t, cookies[0].Value, token)
}

/*
TestCSRF_UnsafeMethods lists accepted and rejected submissions.
*/
func TestCSRF_UnsafeMethods(t *testing.T) {
	tests := []struct {
		name   string
		cookie string
		field  string
		header string
		want   int
	}{
		{"form_field_matches", "abc", "abc", "", http.StatusOK},
		{"header_matches", "abc", "", "abc", http.StatusOK},
		{"missing_cookie", "", "abc", "", http.StatusForbidden},
		{"missing_token", "abc", "", "", http.StatusForbidden},
		{"mismatch", "abc", "xyz", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := url.Values{}
			if tt.field != "" {
				form.Set(constants.CSRFFormField, tt.field)
			}
			request := httptest.NewRequest(http.MethodPost, "/admin/plants/new", strings.NewReader(form.Encode()))
			request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.cookie != "" {
				request.AddCookie(&http.Cookie{Name: constants.CSRFCookieName, Value: tt.cookie})
			}
			if tt.header != "" {
				request.Header.Set(constants.CSRFHeaderName, tt.header)
			}

			recorder := httptest.NewRecorder()
			middleware.CSRF(middleware.CSRFConfig{})(okHandler).ServeHTTP(recorder, request)
			assert.Equal(t, tt.want, recorder.Code)
		})
	}
}
