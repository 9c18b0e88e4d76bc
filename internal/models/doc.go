// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard

/*
Package models defines the value records shared by every FinTrack Guard
component.

Key Components:

  - GeoSample: a single location fix reported by a tracked device
  - TransactionEvent: a candidate or persisted balance movement
  - Account: the account owning transactions, balance and credentials
  - Alert: a security or balance notification handed to the notifier
  - APIResponse: the standard HTTP response envelope

Records are treated as immutable once constructed. Components pass them by
value (GeoSample, TransactionEvent) or share read-only pointers (Alert).
Validation tags are evaluated by the validation package; the detection core
additionally enforces its own admission rules (for example, negative
horizontal accuracy is never admitted into a location history).
*/
package models
