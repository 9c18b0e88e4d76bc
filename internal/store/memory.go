// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tomtom215/fintrack-guard/internal/models"
)

// MemoryStore keeps everything in maps guarded by one mutex.
type MemoryStore struct {
	mu           sync.RWMutex
	accounts     map[string]models.Account
	emails       map[string]string
	transactions map[string][]models.TransactionEvent
	locations    map[string][]models.StoredLocation
	alerts       map[string][]*models.Alert
	now          func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:     make(map[string]models.Account),
		emails:       make(map[string]string),
		transactions: make(map[string][]models.TransactionEvent),
		locations:    make(map[string][]models.StoredLocation),
		alerts:       make(map[string][]*models.Alert),
		now:          time.Now,
	}
}

func (s *MemoryStore) CreateAccount(_ context.Context, account models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := normalizeEmail(account.Email)
	if _, ok := s.accounts[account.ID]; ok {
		return ErrAccountExists
	}
	if _, ok := s.emails[email]; ok {
		return ErrAccountExists
	}
	s.accounts[account.ID] = account
	s.emails[email] = account.ID
	return nil
}

func (s *MemoryStore) GetAccount(_ context.Context, accountID string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (s *MemoryStore) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	id, ok := s.emails[normalizeEmail(email)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.GetAccount(ctx, id)
}

func (s *MemoryStore) Balance(_ context.Context, accountID string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return 0, ErrNotFound
	}
	return a.Balance, nil
}

func (s *MemoryStore) UpdateBalance(_ context.Context, accountID string, newBalance float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[accountID]
	if !ok {
		return ErrNotFound
	}
	a.Balance = newBalance
	s.accounts[accountID] = a
	return nil
}

func (s *MemoryStore) PersistTransaction(_ context.Context, event models.TransactionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txs := append(s.transactions[event.AccountID], event)
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].Timestamp.Before(txs[j].Timestamp) })
	s.transactions[event.AccountID] = txs
	return nil
}

func (s *MemoryStore) RecentTransactions(_ context.Context, accountID string, since *time.Time) ([]models.TransactionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.TransactionEvent
	for _, tx := range s.transactions[accountID] {
		if since == nil || !tx.Timestamp.Before(*since) {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, accountID string, limit int) ([]models.TransactionEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	txs := s.transactions[accountID]
	limit = normalizeLimit(limit)
	out := make([]models.TransactionEvent, 0, min(limit, len(txs)))
	for i := len(txs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, txs[i])
	}
	return out, nil
}

func (s *MemoryStore) SaveLocation(_ context.Context, accountID string, sample models.GeoSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[accountID] = append(s.locations[accountID], models.StoredLocation{
		AccountID: accountID,
		Sample:    sample,
		StoredAt:  s.now(),
	})
	return nil
}

func (s *MemoryStore) ListLocations(_ context.Context, accountID string, limit int) ([]models.StoredLocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	locs := s.locations[accountID]
	limit = normalizeLimit(limit)
	out := make([]models.StoredLocation, 0, min(limit, len(locs)))
	for i := len(locs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, locs[i])
	}
	return out, nil
}

func (s *MemoryStore) SaveAlert(_ context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *alert
	s.alerts[alert.AccountID] = append(s.alerts[alert.AccountID], &cp)
	return nil
}

func (s *MemoryStore) ListAlerts(_ context.Context, accountID string, limit int) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alerts := s.alerts[accountID]
	limit = normalizeLimit(limit)
	out := make([]*models.Alert, 0, min(limit, len(alerts)))
	for i := len(alerts) - 1; i >= 0 && len(out) < limit; i-- {
		cp := *alerts[i]
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
func (s *MemoryStore) Close() error               { return nil }
