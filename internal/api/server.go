// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api wires the router, the middleware chain and the site handlers into
a runnable [http.Server].

Architecture:

  - This package is the composition root of the HTTP transport (chi router).
  - The storefront and admin pages come from package web; this package only
    decides which middleware runs in front of them.
  - The admin session stream is long-lived, so it is mounted outside the
    request timeout.
*/
package api

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/mknursery/internal/platform/config"
	"github.com/taibuivan/mknursery/internal/platform/constants"
	"github.com/taibuivan/mknursery/internal/platform/middleware"
)

// # Server Definitions

// Server wraps the chi router and the [http.Server].
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	log        *slog.Logger
}

// # Handler Registry

// Handlers groups the HTTP handler sets the server mounts.
type Handlers struct {
	// Liveness is the /health handler. It answers 200 while the process runs.
	Liveness http.HandlerFunc

	// Readiness is the /ready handler. It answers 200 when every dependency is healthy.
	Readiness http.HandlerFunc

	// Site serves the storefront, the auth pages and the admin panel.
	Site http.Handler

	// SessionStream pushes session state to open admin pages.
	SessionStream http.HandlerFunc

	// Metrics serves the Prometheus scrape endpoint. Optional.
	Metrics http.Handler

	// RequestMetrics records every request. Optional.
	RequestMetrics func(http.Handler) http.Handler

	// Storage serves uploaded files when the local driver is in use. Optional.
	Storage http.Handler
}

// # Server Initialization

// NewServer constructs the chi router with the full middleware chain and
// registers all route groups.
func NewServer(ctx context.Context, cfg *config.Config, log *slog.Logger, h Handlers) *Server {
	r := chi.NewRouter()

	// # Middleware Chain
	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(log))
	if h.RequestMetrics != nil {
		r.Use(h.RequestMetrics)
	}
	r.Use(middleware.RateLimit(ctx, constants.DefaultRateLimitRPS, constants.DefaultRateLimitBurst))
	r.Use(middleware.PanicRecovery(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimw.CleanPath)

	// # Infrastructure Endpoints
	r.Get("/health", h.Liveness)
	r.Get("/ready", h.Readiness)
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics)
	}
	if h.Storage != nil {
		r.Handle("/storage/*", http.StripPrefix("/storage", h.Storage))
	}

	// # Session Stream
	if h.SessionStream != nil {
		r.Get("/admin/session/stream", h.SessionStream)
	}

	// # Site
	r.Group(func(site chi.Router) {
		site.Use(chimw.Timeout(constants.GlobalRequestTimeout))
		site.Use(middleware.CSRF(middleware.CSRFConfig{CookieSecure: cfg.CookieSecure}))
		site.Mount("/", h.Site)
	})

	return &Server{
		router: r,
		log:    log,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
			// Requests inherit the root context, so open streams end on shutdown.
			BaseContext: func(net.Listener) context.Context { return ctx },
		},
	}
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler { return s.router }

// # Server Lifecycle

// ListenAndServe starts the HTTP server.
//
// It blocks until the server is closed or an error occurs.
func (s *Server) ListenAndServe() error {
	s.log.Info("server_starting", slog.String("addr", s.httpServer.Addr))
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	context, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.httpServer.Shutdown(context)
}
