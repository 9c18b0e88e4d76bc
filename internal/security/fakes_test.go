// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package security

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/fintrack-guard/internal/models"
)

var baseTime = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return baseTime }

type accountKey struct{}

func withAccount(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, accountKey{}, id)
}

// fakeIdentity reads the account from the context and answers challenges
// with onChallenge.
type fakeIdentity struct {
	mu          sync.Mutex
	calls       int
	onChallenge func(ctx context.Context) (bool, error)
}

func (f *fakeIdentity) CurrentAccountID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountKey{}).(string)
	return id, ok
}

func (f *fakeIdentity) ChallengeStepUp(ctx context.Context, accountID, reason string) (bool, error) {
	f.mu.Lock()
	f.calls++
	fn := f.onChallenge
	f.mu.Unlock()
	if fn == nil {
		return false, errors.New("no challenge handler")
	}
	return fn(ctx)
}

func (f *fakeIdentity) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeStore is an in-memory Store with injectable failures.
type fakeStore struct {
	mu           sync.Mutex
	transactions []models.TransactionEvent
	balances     map[string]float64
	locations    []models.GeoSample

	fetchErr   error
	fetchBlock bool // block until ctx ends
	persistErr error
	fetchCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{balances: make(map[string]float64)}
}

func (s *fakeStore) RecentTransactions(ctx context.Context, accountID string, since *time.Time) ([]models.TransactionEvent, error) {
	s.mu.Lock()
	s.fetchCalls++
	block, fetchErr := s.fetchBlock, s.fetchErr
	s.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if fetchErr != nil {
		return nil, fetchErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.TransactionEvent
	for _, tx := range s.transactions {
		if tx.AccountID != accountID {
			continue
		}
		if since != nil && tx.Timestamp.Before(*since) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (s *fakeStore) PersistTransaction(_ context.Context, event models.TransactionEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.persistErr != nil {
		return s.persistErr
	}
	s.transactions = append(s.transactions, event)
	return nil
}

func (s *fakeStore) Balance(_ context.Context, accountID string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[accountID], nil
}

func (s *fakeStore) UpdateBalance(_ context.Context, accountID string, newBalance float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[accountID] = newBalance
	return nil
}

func (s *fakeStore) SaveLocation(_ context.Context, _ string, sample models.GeoSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations = append(s.locations, sample)
	return nil
}

func (s *fakeStore) seed(accountID string, n int, age time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.transactions = append(s.transactions, models.TransactionEvent{
			ID:        accountID + "-seed-" + string(rune('a'+i)),
			AccountID: accountID,
			Amount:    10,
			Kind:      models.KindExpense,
			Category:  models.CategoryFood,
			Timestamp: baseTime.Add(-age),
		})
	}
}

func (s *fakeStore) count(accountID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, tx := range s.transactions {
		if tx.AccountID == accountID {
			n++
		}
	}
	return n
}

// recordingNotifier collects alerts.
type recordingNotifier struct {
	mu     sync.Mutex
	alerts []*models.Alert
}

func (n *recordingNotifier) Alert(a *models.Alert) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
}

func (n *recordingNotifier) Alerts() []*models.Alert {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*models.Alert, len(n.alerts))
	copy(out, n.alerts)
	return out
}

type panickingNotifier struct{}

func (panickingNotifier) Alert(*models.Alert) { panic("delivery exploded") }
