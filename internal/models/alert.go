// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard

package models

import "time"

// Severity indicates how urgently an alert needs attention.
type Severity string

const (
	// SeverityInfo covers balance updates and pending step-up challenges.
	SeverityInfo Severity = "info"

	// SeverityCritical covers anomalies, blocked transactions and
	// compromised devices.
	SeverityCritical Severity = "critical"
)

// AlertKind groups alerts by the signal that produced them.
type AlertKind string

const (
	AlertKindLocation    AlertKind = "location"
	AlertKindTransaction AlertKind = "transaction"
	AlertKindIntegrity   AlertKind = "integrity"
	AlertKindChallenge   AlertKind = "challenge"
	AlertKindBalance     AlertKind = "balance"
)

// Alert is a single notification emitted by the security core.
type Alert struct {
	ID        string         `json:"id"`
	AccountID string         `json:"account_id,omitempty"`
	Kind      AlertKind      `json:"kind"`
	Severity  Severity       `json:"severity"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Verdict   string         `json:"verdict,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}
