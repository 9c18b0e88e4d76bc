// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
/*
Package detection implements the per-account anomaly classifiers.

The package is pure: it performs no I/O, holds no locks and emits no
alerts. Callers own synchronization (one LocationHistory per account,
mutated under that account's lock) and act on the returned Verdict.

Components:

  - LocationHistory: time-windowed sequence of admitted GeoSamples
  - TravelAnomalyDetector: classifies the latest pair of samples using
    speed, jump and altitude rules, first match wins
  - TransactionRiskEvaluator: classifies a candidate transaction against the
    account's recent transactions using burst and high-value rules

Thresholds are fixed constants (see thresholds.go). They are not
configurable per deployment or per account.
*/
package detection
