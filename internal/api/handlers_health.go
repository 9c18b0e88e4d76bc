// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard

package api

import (
	"context"
	"net/http"
	"time"
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status           string  `json:"status"`
	StoreConnected   bool    `json:"store_connected"`
	WindowBreaker    string  `json:"window_breaker"`
	WebSocketClients int     `json:"websocket_clients"`
	UptimeSeconds    float64 `json:"uptime_seconds"`
}

// Health answers 200 when the store responds and 503 otherwise. An open
// window breaker is reported but only degrades burst detection.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := HealthStatus{
		Status:         "healthy",
		StoreConnected: h.Store.Ping(ctx) == nil,
		WindowBreaker:  h.Engine.BreakerState(),
		UptimeSeconds:  time.Since(h.startTime).Seconds(),
	}
	if h.Hub != nil {
		status.WebSocketClients = h.Hub.GetClientCount()
	}

	code := http.StatusOK
	switch {
	case !status.StoreConnected:
		status.Status = "unhealthy"
		code = http.StatusServiceUnavailable
	case status.WindowBreaker != "closed":
		status.Status = "degraded"
	}
	respondSuccess(w, r, code, status)
}
