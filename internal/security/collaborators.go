// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package security

import (
	"context"
	"time"

	"github.com/tomtom215/fintrack-guard/internal/models"
)

// IdentityProvider resolves the acting account and runs step-up challenges.
type IdentityProvider interface {
	// CurrentAccountID returns the account bound to ctx, if any.
	CurrentAccountID(ctx context.Context) (string, bool)

	// ChallengeStepUp blocks until the account confirms or rejects the
	// challenge, or ctx ends. Anything other than (true, nil) is a failure.
	ChallengeStepUp(ctx context.Context, accountID, reason string) (bool, error)
}

// Store is the durable store of transactions, balances and locations.
type Store interface {
	// RecentTransactions returns the account's transactions, optionally only
	// those at or after since.
	RecentTransactions(ctx context.Context, accountID string, since *time.Time) ([]models.TransactionEvent, error)
	PersistTransaction(ctx context.Context, event models.TransactionEvent) error
	Balance(ctx context.Context, accountID string) (float64, error)
	UpdateBalance(ctx context.Context, accountID string, newBalance float64) error
	SaveLocation(ctx context.Context, accountID string, sample models.GeoSample) error
}

// Notifier delivers alerts. Alert must return as soon as the alert is
// queued; delivery failures are the notifier's concern.
type Notifier interface {
	Alert(alert *models.Alert)
}
