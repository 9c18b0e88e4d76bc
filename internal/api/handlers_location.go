// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard

package api

import (
	"net/http"

	"github.com/tomtom215/fintrack-guard/internal/logging"
	"github.com/tomtom215/fintrack-guard/internal/models"
)

func (h *Handler) StartTracking(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.StartTracking(r.Context()); err != nil {
		respondEngineError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]bool{"tracking": true})
}

func (h *Handler) StopTracking(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.StopTracking(r.Context()); err != nil {
		respondEngineError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]bool{"tracking": false})
}

// RecordLocation evaluates one sample and returns the outcome. A blocked
// outcome is still a 200: the sample was judged, not refused.
func (h *Handler) RecordLocation(w http.ResponseWriter, r *http.Request) {
	var sample models.GeoSample
	if !decodeAndValidate(w, r, &sample) {
		return
	}

	out, err := h.Engine.RecordLocation(r.Context(), sample)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, out)
}

// RecordLocationBatch enqueues samples for asynchronous evaluation in order.
func (h *Handler) RecordLocationBatch(w http.ResponseWriter, r *http.Request) {
	acct, ok := accountID(w, r)
	if !ok {
		return
	}
	if h.Ingest == nil {
		respondError(w, r, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Batch ingestion unavailable", nil)
		return
	}

	var req models.LocationBatchRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !h.Engine.IsTracking(acct) {
		respondError(w, r, http.StatusConflict, "TRACKING_INACTIVE", "Location tracking is not active", nil)
		return
	}

	if err := h.Ingest.PublishLocations(r.Context(), acct, req.Samples); err != nil {
		respondError(w, r, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Could not enqueue samples", err)
		return
	}
	logging.Ctx(r.Context()).Debug().Int("samples", len(req.Samples)).Msg("Location batch enqueued")
	respondSuccess(w, r, http.StatusAccepted, map[string]int{"accepted": len(req.Samples)})
}

// ListLocations returns persisted samples, newest first.
func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	acct, ok := accountID(w, r)
	if !ok {
		return
	}
	limit, ok := parseLimit(r)
	if !ok {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be between 1 and 500", nil)
		return
	}

	locations, err := h.Store.ListLocations(r.Context(), acct, limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load locations", err)
		return
	}
	if locations == nil {
		locations = []models.StoredLocation{}
	}
	respondSuccess(w, r, http.StatusOK, locations)
}
