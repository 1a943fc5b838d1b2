// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package api is the HTTP composition root of the auth service.

It assembles the middleware chain, mounts the health endpoints and the versioned API,
and owns the [http.Server] lifecycle. Domain packages only expose routers.
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/taibuivan/yomira-auth/internal/platform/config"
	"github.com/taibuivan/yomira-auth/internal/platform/constants"
	"github.com/taibuivan/yomira-auth/internal/platform/middleware"
	"github.com/taibuivan/yomira-auth/internal/users/account"
	"github.com/taibuivan/yomira-auth/internal/users/auth"
)

const apiPrefix = "/api/v1"

// Handlers is everything [NewServer] mounts. Nil members are not mounted.
type Handlers struct {
	Liveness  http.HandlerFunc
	Readiness http.HandlerFunc

	// Metrics serves the Prometheus exposition format.
	Metrics http.Handler

	Auth    *auth.Handler
	Account *account.Handler
}

// Server owns the router and the listening [http.Server].
type Server struct {
	router     chi.Router
	httpServer *http.Server
	logger     *slog.Logger
}

/*
NewServer builds the router for cfg.

Description: Middleware order matters. The request id and logger come first
so every later failure is attributed; the limiter runs before recovery and
authentication so rejected floods never reach token validation.

Parameters:
  - context: stops the rate limiter janitor when done
  - verifier: validates bearer tokens for [middleware.Authenticate]

Returns:
  - *Server: ready for [Server.ListenAndServe]
*/
func NewServer(context context.Context, cfg *config.Config, logger *slog.Logger, verifier middleware.TokenVerifier, handlers Handlers) *Server {
	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	go limiter.Janitor(context)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID(),
		middleware.StructuredLogger(logger),
		chimw.Timeout(constants.GlobalRequestTimeout),
		limiter.Middleware(),
		middleware.PanicRecovery(logger),
		middleware.CORS(cfg, cfg.ExtraOrigins),
		middleware.Authenticate(verifier),
		chimw.CleanPath,
	)

	mountHealthRoutes(router, handlers)
	router.Route(apiPrefix, func(group chi.Router) {
		if handlers.Auth != nil {
			group.Mount("/auth", handlers.Auth.Routes())
		}
		if handlers.Account != nil {
			group.Mount("/users", handlers.Account.UserRoutes())
			group.Mount("/roles", handlers.Account.RoleRoutes())
		}
	})

	return &Server{
		router: router,
		logger: logger,
		httpServer: &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           router,
			ReadHeaderTimeout: constants.DefaultReadHeaderTimeout,
			ReadTimeout:       constants.DefaultReadTimeout,
			WriteTimeout:      constants.DefaultWriteTimeout,
			IdleTimeout:       constants.DefaultIdleTimeout,
		},
	}
}

// Health endpoints stay outside the versioned prefix for orchestrators.
func mountHealthRoutes(router chi.Router, handlers Handlers) {
	if handlers.Liveness != nil {
		router.Get("/health", handlers.Liveness)
	}
	if handlers.Readiness != nil {
		router.Get("/ready", handlers.Readiness)
	}
	if handlers.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", handlers.Metrics)
	}
}

// Handler returns the root router.
func (server *Server) Handler() http.Handler {
	return server.router
}

// ListenAndServe blocks until the server stops. After [Server.Shutdown] it
// returns [http.ErrServerClosed].
func (server *Server) ListenAndServe() error {
	server.logger.Info("server_starting", slog.String("addr", server.httpServer.Addr))
	return server.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests for at most timeout.
func (server *Server) Shutdown(timeout time.Duration) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return server.httpServer.Shutdown(shutdownCtx)
}
