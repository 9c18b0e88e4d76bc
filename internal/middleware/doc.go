// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard

/*
Package middleware holds the HTTP middleware shared by every API route.

  - RequestID: propagates or generates X-Request-ID and seeds the logging
    context with request and correlation ids
  - PrometheusMetrics: request latency by method, chi route pattern and
    status, plus an in-flight gauge

Both are plain func(http.Handler) http.Handler and plug into chi's r.Use:

	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)

Authentication lives in package auth, rate limiting and CORS come from
go-chi/httprate and go-chi/cors.
*/
package middleware
