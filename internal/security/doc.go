// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
/*
Package security contains the SecurityDecisionEngine, which turns detector
verdicts into actions for one account at a time.

Every signal moves through Received, then Classified, and ends in Allowed,
Blocked or Escalated. Escalation (a high-value transaction) invokes the
step-up challenge and then settles in Allowed or Blocked within the same
call.

Per-account state lives in an account context created by StartTracking and
torn down by StopTracking. Location evaluations for one account are
serialized under that account's location lock, and transaction evaluations
under its transaction lock, so both are processed in arrival order.
Different accounts never wait on each other.

The engine talks to the outside world only through the interfaces in
collaborators.go. Collaborator failures never escape as errors from an
evaluation: an unavailable recent-transaction window degrades to an empty
window (Outcome.Degraded is set, logged and counted) and a failed challenge
blocks the transaction.
*/
package security
