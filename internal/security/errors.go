// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package security

import "errors"

var (
	// ErrInputRejected marks a signal that failed admission, such as a sample
	// with negative accuracy or a transaction with a negative amount.
	ErrInputRejected = errors.New("input rejected")

	// ErrCollaboratorUnavailable marks a store or identity call that failed.
	ErrCollaboratorUnavailable = errors.New("collaborator unavailable")

	// ErrChallengeFailed marks a step-up challenge that was denied, cancelled
	// or timed out.
	ErrChallengeFailed = errors.New("step-up challenge failed")

	// ErrIntegrityCompromised is advisory; see package integrity.
	ErrIntegrityCompromised = errors.New("device integrity compromised")

	// ErrNoIdentity is returned when the context carries no account.
	ErrNoIdentity = errors.New("no authenticated account")

	// ErrTrackingInactive is returned for location samples of an account
	// whose tracking has not been started.
	ErrTrackingInactive = errors.New("location tracking not active")

	// ErrBusy is returned when the account lock could not be acquired before
	// the caller's deadline.
	ErrBusy = errors.New("account evaluation in progress")
)
