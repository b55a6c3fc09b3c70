// TasksManager - Personal Task Management Backend
// Copyright 2026 Cristina Milas (milascristina)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/milascristina/TasksManager

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/milascristina/TasksManager/internal/auth"
	"github.com/milascristina/TasksManager/internal/middleware"
)

// Per-endpoint rate limits. Login is the strictest, it is the brute
// force target.
var (
	rateLimitLogin  = rateLimit{requests: 5, window: 5 * time.Minute}
	rateLimitAuth   = rateLimit{requests: 5, window: time.Minute}
	rateLimitAPI    = rateLimit{requests: 100, window: time.Minute}
	rateLimitWS     = rateLimit{requests: 30, window: time.Minute}
	rateLimitHealth = rateLimit{requests: 1000, window: time.Minute}
)

type rateLimit struct {
	requests int
	window   time.Duration
}

// NewRouter builds the Chi router with the full middleware stack and
// all routes. Authentication and rate limits are applied per route
// group rather than globally.
func NewRouter(h *Handler, authMW *auth.Middleware) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))

	limit := h.limiter()

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Group(func(r chi.Router) {
			r.Use(limit(rateLimitLogin))
			r.Post("/login", h.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(limit(rateLimitAuth))
			r.Post("/register", h.Register)
		})

		r.Group(func(r chi.Router) {
			r.Use(limit(rateLimitHealth))
			r.Get("/health", h.Health)
		})

		// Authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(limit(rateLimitAPI))
			r.Use(authMW.Authenticate)

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", h.ListTasks)
				r.Post("/", h.CreateTask)
				r.Get("/{id}", h.GetTask)
				r.Put("/{id}", h.UpdateTask)
				r.Delete("/{id}", h.DeleteTask)
			})
		})

		// WebSocket upgrade: authenticated, but with its own rate limit
		// tuned to handshake frequency rather than request volume.
		r.Group(func(r chi.Router) {
			r.Use(limit(rateLimitWS))
			r.Use(authMW.Authenticate)
			r.Get("/ws", h.WebSocket)
		})
	})

	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

// limiter returns a rate limit middleware factory, or a no-op factory
// when rate limiting is disabled (tests, local development).
func (h *Handler) limiter() func(rateLimit) func(http.Handler) http.Handler {
	if h.cfg.Security.RateLimitDisabled {
		return func(rateLimit) func(http.Handler) http.Handler {
			return func(next http.Handler) http.Handler {
				return next
			}
		}
	}

	return func(rl rateLimit) func(http.Handler) http.Handler {
		return httprate.LimitByIP(rl.requests, rl.window)
	}
}
