// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/fintrack-guard/internal/auth"
	"github.com/tomtom215/fintrack-guard/internal/middleware"
)

// RouterConfig holds the cross-cutting HTTP settings.
type RouterConfig struct {
	CORSOrigins []string

	// Per-account limit on authenticated routes.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Per-IP limit on register and login. Zero uses 10 per minute.
	AuthRateLimit int
}

func (c RouterConfig) withDefaults() RouterConfig {
	if c.RateLimitRequests <= 0 {
		c.RateLimitRequests = 100
	}
	if c.RateLimitWindow <= 0 {
		c.RateLimitWindow = time.Minute
	}
	if c.AuthRateLimit <= 0 {
		c.AuthRateLimit = 10
	}
	return c
}

// NewRouter builds the chi route tree.
func NewRouter(h *Handler, authn *auth.Middleware, cfg RouterConfig) http.Handler {
	cfg = cfg.withDefaults()
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.HeaderRequestID},
		ExposedHeaders:   []string{middleware.HeaderRequestID},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(httprate.LimitByIP(cfg.AuthRateLimit, time.Minute)).Post("/register", h.Register)
			r.With(httprate.LimitByIP(cfg.AuthRateLimit, time.Minute)).Post("/login", h.Login)
			r.With(authn.Authenticate).Post("/logout", h.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(authn.Authenticate)
			r.Use(httprate.Limit(cfg.RateLimitRequests, cfg.RateLimitWindow,
				httprate.WithKeyFuncs(keyByAccount)))

			r.Post("/tracking/start", h.StartTracking)
			r.Post("/tracking/stop", h.StopTracking)

			r.Get("/locations", h.ListLocations)
			r.Post("/locations", h.RecordLocation)
			r.Post("/locations/batch", h.RecordLocationBatch)

			r.Get("/transactions", h.ListTransactions)
			r.Post("/transactions", h.SubmitTransaction)
			r.Get("/account", h.GetAccount)

			r.Get("/challenges", h.ListChallenges)
			r.Post("/challenges/{id}/resolve", h.ResolveChallenge)

			r.Get("/alerts", h.ListAlerts)
			r.Get("/device/integrity", h.DeviceIntegrity)
			r.Get("/ws", h.WebSocket)
		})
	})

	return r
}

// keyByAccount buckets authenticated requests by token subject.
func keyByAccount(r *http.Request) (string, error) {
	if id, ok := auth.AccountFromContext(r.Context()); ok {
		return "account:" + id, nil
	}
	return httprate.KeyByIP(r)
}
