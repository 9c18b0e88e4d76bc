// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/fintrack-guard/internal/auth"
	"github.com/tomtom215/fintrack-guard/internal/models"
)

// ListChallenges returns the caller's pending step-up challenges.
func (h *Handler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	acct, ok := accountID(w, r)
	if !ok {
		return
	}
	respondSuccess(w, r, http.StatusOK, h.Challenges.List(acct))
}

// ResolveChallenge answers a challenge with {"approved": bool} or
// {"password": "..."}. A wrong password is reported as approved=false.
func (h *Handler) ResolveChallenge(w http.ResponseWriter, r *http.Request) {
	acct, ok := accountID(w, r)
	if !ok {
		return
	}
	var res auth.Resolution
	if !decodeJSON(w, r, &res) {
		return
	}

	id := chi.URLParam(r, "id")
	approved, err := h.Challenges.Resolve(r.Context(), id, acct, res)
	switch {
	case errors.Is(err, auth.ErrChallengeNotFound):
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "Challenge not found", nil)
		return
	case errors.Is(err, auth.ErrInvalidResolution):
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "Resolution does not match the challenge method", nil)
		return
	case errors.Is(err, auth.ErrChallengeAbandoned):
		respondError(w, r, http.StatusGone, "GONE", "Challenge already finished", nil)
		return
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to resolve challenge", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, map[string]interface{}{"id": id, "approved": approved})
}

// ListAlerts returns persisted alerts, newest first.
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	acct, ok := accountID(w, r)
	if !ok {
		return
	}
	limit, ok := parseLimit(r)
	if !ok {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be between 1 and 500", nil)
		return
	}

	alerts, err := h.Store.ListAlerts(r.Context(), acct, limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load alerts", err)
		return
	}
	if alerts == nil {
		alerts = []*models.Alert{}
	}
	respondSuccess(w, r, http.StatusOK, alerts)
}

// DeviceIntegrity runs the advisory integrity assessment. An insecure
// result is still a 200.
func (h *Handler) DeviceIntegrity(w http.ResponseWriter, r *http.Request) {
	if h.Integrity == nil {
		respondError(w, r, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Integrity check not configured", nil)
		return
	}
	respondSuccess(w, r, http.StatusOK, h.Integrity.Assess(r.Context()))
}
