// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package detection

import (
	"math"

	"github.com/tomtom215/fintrack-guard/internal/models"
)

const earthRadiusMeters = 6371000.0

// TravelAnomalyDetector flags location pairs that imply impossible travel.
type TravelAnomalyDetector struct{}

// NewTravelAnomalyDetector returns a detector using the package thresholds.
func NewTravelAnomalyDetector() *TravelAnomalyDetector {
	return &TravelAnomalyDetector{}
}

// Evaluate classifies the latest pair in history. Histories with fewer than
// two samples are Clear.
func (d *TravelAnomalyDetector) Evaluate(history *LocationHistory) Verdict {
	previous, current, ok := history.LatestPair()
	if !ok {
		return Clear()
	}
	return d.EvaluatePair(previous, current)
}

// EvaluatePair applies the rules in order: speed, jump, altitude. The first
// match wins.
func (d *TravelAnomalyDetector) EvaluatePair(previous, current models.GeoSample) Verdict {
	distance := DistanceMeters(previous.Latitude, previous.Longitude, current.Latitude, current.Longitude)
	elapsed := current.Timestamp.Sub(previous.Timestamp).Seconds()

	// A non-positive interval is a clock anomaly; only the jump rule can
	// judge it.
	if elapsed > 0 {
		speed := distance / elapsed
		if speed > MaxSpeedMetersPerSecond {
			return SuspiciousSpeed(speed * 3.6)
		}
	}

	withinJumpInterval := elapsed < JumpInterval.Seconds()

	if distance > JumpDistanceMeters && withinJumpInterval {
		return SuspiciousJump(distance, elapsed)
	}

	if previous.HasAltitude() && current.HasAltitude() && withinJumpInterval {
		delta := math.Abs(*current.Altitude - *previous.Altitude)
		if delta > AltitudeDeltaMeters {
			return SuspiciousAltitude(delta)
		}
	}

	return Clear()
}

// DistanceMeters returns the great-circle distance between two coordinates
// using the haversine formula.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	dLat := lat2Rad - lat1Rad
	dLon := (lon2 - lon1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}
