// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
// Package store provides the durable store behind FinTrack Guard: accounts
// and balances, transactions, location samples and the alert audit trail.
//
// Backends:
//   - MemoryStore: process memory, for tests and local runs
//   - BadgerStore: embedded key/value store (badger v4)
//   - DuckDBStore: embedded SQL store (duckdb), convenient for ad-hoc analysis
//
// RedisWindowCache decorates any backend with a redis sorted-set cache of
// recent transactions, which is what the decision engine reads on every
// transaction.
package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/tomtom215/fintrack-guard/internal/metrics"
	"github.com/tomtom215/fintrack-guard/internal/models"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAccountExists = errors.New("account already exists")
)

// Store is implemented by every backend.
type Store interface {
	CreateAccount(ctx context.Context, account models.Account) error
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	Balance(ctx context.Context, accountID string) (float64, error)
	UpdateBalance(ctx context.Context, accountID string, newBalance float64) error

	PersistTransaction(ctx context.Context, event models.TransactionEvent) error
	// RecentTransactions returns transactions at or after since (all when
	// since is nil), oldest first.
	RecentTransactions(ctx context.Context, accountID string, since *time.Time) ([]models.TransactionEvent, error)
	// ListTransactions returns up to limit transactions, newest first.
	ListTransactions(ctx context.Context, accountID string, limit int) ([]models.TransactionEvent, error)

	SaveLocation(ctx context.Context, accountID string, sample models.GeoSample) error
	ListLocations(ctx context.Context, accountID string, limit int) ([]models.StoredLocation, error)

	SaveAlert(ctx context.Context, alert *models.Alert) error
	ListAlerts(ctx context.Context, accountID string, limit int) ([]*models.Alert, error)

	Ping(ctx context.Context) error
	Close() error
}

// DefaultListLimit applies when a caller passes a non-positive limit.
const DefaultListLimit = 50

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	return limit
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// observe records a store call; pass &err from a named result so the
// deferred call sees the final error.
func observe(backend, operation string, start time.Time, err *error) {
	metrics.RecordStoreOperation(backend, operation, start, *err)
}
