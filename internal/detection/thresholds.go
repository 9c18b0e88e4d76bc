// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package detection

import "time"

const (
	// LocationWindow bounds how long an admitted sample is retained.
	LocationWindow = 10 * time.Minute

	// MaxSpeedMetersPerSecond is roughly 1080 km/h, beyond any consumer
	// transport.
	MaxSpeedMetersPerSecond = 300.0

	// JumpDistanceMeters and JumpInterval define a near-teleport.
	JumpDistanceMeters = 1000.0
	JumpInterval       = 60 * time.Second

	// AltitudeDeltaMeters is the vertical change that is implausible within
	// JumpInterval.
	AltitudeDeltaMeters = 1000.0

	// BurstWindow and BurstLimit: more than BurstLimit transactions inside
	// BurstWindow is a burst.
	BurstWindow = 5 * time.Minute
	BurstLimit  = 5

	// HighValueAmount is in the account's currency units.
	HighValueAmount = 10000.0
)
