// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package auth

import (
	"context"

	"github.com/tomtom215/fintrack-guard/internal/logging"
)

type contextKey string

const accountContextKey contextKey = "account_id"

// WithAccount binds accountID to ctx for ContextIdentity and for logging.
func WithAccount(ctx context.Context, accountID string) context.Context {
	ctx = context.WithValue(ctx, accountContextKey, accountID)
	return logging.ContextWithAccountID(ctx, accountID)
}

// AccountFromContext returns the account bound by WithAccount.
func AccountFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountContextKey).(string)
	return id, ok && id != ""
}

// ContextIdentity answers CurrentAccountID from the request context.
type ContextIdentity struct{}

func (ContextIdentity) CurrentAccountID(ctx context.Context) (string, bool) {
	return AccountFromContext(ctx)
}

// Provider combines ContextIdentity with a ChallengeBroker.
type Provider struct {
	ContextIdentity
	*ChallengeBroker
}

// NewProvider returns the engine's identity collaborator.
func NewProvider(broker *ChallengeBroker) *Provider {
	return &Provider{ChallengeBroker: broker}
}
