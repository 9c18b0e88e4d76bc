// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package security

import (
	"github.com/tomtom215/fintrack-guard/internal/detection"
	"github.com/tomtom215/fintrack-guard/internal/models"
)

// Signal names the kind of event evaluated.
type Signal string

const (
	SignalLocation    Signal = "location"
	SignalTransaction Signal = "transaction"
)

// State is a step of the per-event state machine.
type State string

const (
	StateReceived   State = "received"
	StateClassified State = "classified"
	StateAllowed    State = "allowed"
	StateBlocked    State = "blocked"
	StateEscalated  State = "escalated"
)

// Action is the engine's decision for the event.
type Action string

const (
	ActionAllowed Action = "allowed"
	ActionBlocked Action = "blocked"
)

// Outcome describes one finished evaluation.
type Outcome struct {
	Signal    Signal            `json:"signal"`
	AccountID string            `json:"account_id"`
	Verdict   detection.Verdict `json:"verdict"`
	Action    Action            `json:"action"`
	Trail     []State           `json:"trail"`

	// Admitted is false when a location sample was not stored in history.
	Admitted bool `json:"admitted"`

	// Degraded is set when the recent-transaction window could not be
	// fetched and the burst rule was skipped.
	Degraded       bool   `json:"degraded"`
	DegradedReason string `json:"degraded_reason,omitempty"`

	// Escalated is set when a step-up challenge was issued.
	Escalated       bool   `json:"escalated"`
	ChallengeResult string `json:"challenge_result,omitempty"`

	// Transaction and Balance are populated for committed transactions.
	Transaction *models.TransactionEvent `json:"transaction,omitempty"`
	Balance     *float64                 `json:"balance,omitempty"`
	Committed   bool                     `json:"committed"`
}

func (o *Outcome) enter(s State) {
	o.Trail = append(o.Trail, s)
	switch s {
	case StateAllowed:
		o.Action = ActionAllowed
	case StateBlocked:
		o.Action = ActionBlocked
	case StateEscalated:
		o.Escalated = true
	}
}

// Final returns the last state reached.
func (o *Outcome) Final() State {
	if len(o.Trail) == 0 {
		return ""
	}
	return o.Trail[len(o.Trail)-1]
}
