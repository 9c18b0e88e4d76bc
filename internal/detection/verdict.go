// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package detection

import (
	"fmt"
	"math"
)

// VerdictKind identifies which rule produced a Verdict.
type VerdictKind string

const (
	VerdictClear              VerdictKind = "clear"
	VerdictSuspiciousSpeed    VerdictKind = "suspicious_speed"
	VerdictSuspiciousJump     VerdictKind = "suspicious_jump"
	VerdictSuspiciousAltitude VerdictKind = "suspicious_altitude"
	VerdictBurstRate          VerdictKind = "burst_rate"
	VerdictHighValue          VerdictKind = "high_value"
)

// Verdict is the result of one evaluation. Only the fields relevant to Kind
// are set; it is produced fresh per evaluation and never mutated.
type Verdict struct {
	Kind VerdictKind `json:"kind"`

	SpeedKmh  float64 `json:"speed_kmh,omitempty"`
	DistanceM float64 `json:"distance_m,omitempty"`
	Seconds   float64 `json:"seconds,omitempty"`
	DeltaM    float64 `json:"delta_m,omitempty"`
	Count     int     `json:"count,omitempty"`
	Amount    float64 `json:"amount,omitempty"`
}

// Clear is the verdict for behaviour that matched no rule.
func Clear() Verdict { return Verdict{Kind: VerdictClear} }

func SuspiciousSpeed(speedKmh float64) Verdict {
	return Verdict{Kind: VerdictSuspiciousSpeed, SpeedKmh: speedKmh}
}

func SuspiciousJump(distanceM, seconds float64) Verdict {
	return Verdict{Kind: VerdictSuspiciousJump, DistanceM: distanceM, Seconds: seconds}
}

func SuspiciousAltitude(deltaM float64) Verdict {
	return Verdict{Kind: VerdictSuspiciousAltitude, DeltaM: deltaM}
}

func BurstRate(count int) Verdict {
	return Verdict{Kind: VerdictBurstRate, Count: count}
}

func HighValue(amount float64) Verdict {
	return Verdict{Kind: VerdictHighValue, Amount: amount}
}

// IsClear reports whether no rule matched.
func (v Verdict) IsClear() bool {
	return v.Kind == VerdictClear || v.Kind == ""
}

// Message renders the user-facing alert text for the verdict.
func (v Verdict) Message() string {
	switch v.Kind {
	case VerdictSuspiciousSpeed:
		return fmt.Sprintf("suspicious speed detected: %d km/h, possible unauthorised use", int(v.SpeedKmh))
	case VerdictSuspiciousJump:
		return fmt.Sprintf("suspicious location change: %dm in %ds, possible device cloning",
			int(v.DistanceM), int(math.Trunc(v.Seconds)))
	case VerdictSuspiciousAltitude:
		return fmt.Sprintf("suspicious altitude change detected (%dm), security verification required", int(v.DeltaM))
	case VerdictBurstRate:
		return fmt.Sprintf("multiple transactions detected in a short time (%d in the last %s)", v.Count, BurstWindow)
	case VerdictHighValue:
		return fmt.Sprintf("high-value transaction detected: %.2f", v.Amount)
	default:
		return "no anomaly detected"
	}
}

func (v Verdict) String() string {
	return string(v.Kind)
}
