// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package detection

import (
	"time"

	"github.com/tomtom215/fintrack-guard/internal/models"
)

// LocationHistory holds the admitted samples of one account in arrival
// order. It is not safe for concurrent use; the owning account context
// serializes access.
type LocationHistory struct {
	window  time.Duration
	clock   func() time.Time
	samples []models.GeoSample
}

// NewLocationHistory creates an empty history using LocationWindow. A nil
// clock defaults to time.Now.
func NewLocationHistory(clock func() time.Time) *LocationHistory {
	if clock == nil {
		clock = time.Now
	}
	return &LocationHistory{window: LocationWindow, clock: clock}
}

// Record admits sample and evicts everything further than the window from
// the current clock, in either direction. Samples with negative or NaN
// horizontal accuracy are rejected without touching the history.
func (h *LocationHistory) Record(sample models.GeoSample) bool {
	if !(sample.HorizontalAccuracy >= 0) {
		return false
	}
	h.samples = append(h.samples, sample)
	h.evict(h.clock())
	return true
}

// evict drops samples with |now - timestamp| > window, so future-dated
// samples age out like past ones. Order is preserved.
func (h *LocationHistory) evict(now time.Time) {
	kept := h.samples[:0]
	for _, s := range h.samples {
		if d := now.Sub(s.Timestamp); d <= h.window && d >= -h.window {
			kept = append(kept, s)
		}
	}
	// Clear the tail so evicted samples can be collected.
	for i := len(kept); i < len(h.samples); i++ {
		h.samples[i] = models.GeoSample{}
	}
	h.samples = kept
}

// LatestPair returns the two most recently inserted samples. ok is false
// when fewer than two samples are retained.
func (h *LocationHistory) LatestPair() (previous, current models.GeoSample, ok bool) {
	n := len(h.samples)
	if n < 2 {
		return models.GeoSample{}, models.GeoSample{}, false
	}
	return h.samples[n-2], h.samples[n-1], true
}

// Len returns the number of retained samples.
func (h *LocationHistory) Len() int {
	return len(h.samples)
}

// Samples returns a copy of the retained samples, oldest insert first.
func (h *LocationHistory) Samples() []models.GeoSample {
	out := make([]models.GeoSample, len(h.samples))
	copy(out, h.samples)
	return out
}
