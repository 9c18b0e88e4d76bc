// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package detection

import (
	"time"

	"github.com/tomtom215/fintrack-guard/internal/models"
)

// TransactionRiskEvaluator classifies a candidate transaction against the
// account's recent transactions.
type TransactionRiskEvaluator struct {
	clock func() time.Time
}

// NewTransactionRiskEvaluator returns an evaluator. A nil clock defaults to
// time.Now.
func NewTransactionRiskEvaluator(clock func() time.Time) *TransactionRiskEvaluator {
	if clock == nil {
		clock = time.Now
	}
	return &TransactionRiskEvaluator{clock: clock}
}

// Evaluate runs the burst rule first; a burst blocks regardless of amount.
// recent may contain transactions of any age; only those younger than
// BurstWindow are counted.
func (e *TransactionRiskEvaluator) Evaluate(candidate models.TransactionEvent, recent []models.TransactionEvent) Verdict {
	if count := RecentCount(recent, e.clock()); count > BurstLimit {
		return BurstRate(count)
	}
	if candidate.Amount > HighValueAmount {
		return HighValue(candidate.Amount)
	}
	return Clear()
}

// RecentCount counts transactions with now - timestamp < BurstWindow.
func RecentCount(recent []models.TransactionEvent, now time.Time) int {
	count := 0
	for i := range recent {
		if now.Sub(recent[i].Timestamp) < BurstWindow {
			count++
		}
	}
	return count
}
