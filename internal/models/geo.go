// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard

package models

import "time"

// GeoSample is one location fix for an account.
//
// Altitude is optional: a nil pointer means the device did not report a
// vertical fix and altitude-based rules are skipped. HorizontalAccuracy is
// the radius of uncertainty in metres; a negative value means the fix is
// invalid and must not be admitted into a location history.
type GeoSample struct {
	Latitude           float64   `json:"latitude" validate:"latitude"`
	Longitude          float64   `json:"longitude" validate:"longitude"`
	Altitude           *float64  `json:"altitude,omitempty"`
	HorizontalAccuracy float64   `json:"horizontal_accuracy"`
	Timestamp          time.Time `json:"timestamp" validate:"required"`
}

// HasAltitude reports whether the sample carries a vertical fix.
func (s GeoSample) HasAltitude() bool {
	return s.Altitude != nil
}

// StoredLocation is a GeoSample as persisted by the durable store.
type StoredLocation struct {
	AccountID string    `json:"account_id"`
	Sample    GeoSample `json:"sample"`
	StoredAt  time.Time `json:"stored_at"`
}

// MaxLocationBatch bounds one asynchronous upload.
const MaxLocationBatch = 500

// LocationBatchRequest is the payload of an asynchronous location upload,
// oldest sample first.
type LocationBatchRequest struct {
	Samples []GeoSample `json:"samples" validate:"required,min=1,max=500,dive"`
}
