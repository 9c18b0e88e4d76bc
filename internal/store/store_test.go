// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/fintrack-guard/internal/config"
	"github.com/tomtom215/fintrack-guard/internal/models"
	"github.com/tomtom215/fintrack-guard/internal/security"
)

var (
	_ security.Store = (*MemoryStore)(nil)
	_ security.Store = (*BadgerStore)(nil)
	_ security.Store = (*DuckDBStore)(nil)
	_ Store          = (*RedisWindowCache)(nil)
)

// base is truncated to microseconds since duckdb stores TIMESTAMP at that
// precision.
var base = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func backends(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store { return NewMemoryStore() },
		"badger": func(t *testing.T) Store {
			s, err := NewBadgerStore("")
			if err != nil {
				t.Fatalf("NewBadgerStore: %v", err)
			}
			return s
		},
		"duckdb": func(t *testing.T) Store {
			s, err := NewDuckDBStore(context.Background(), "")
			if err != nil {
				t.Fatalf("NewDuckDBStore: %v", err)
			}
			return s
		},
	}
}

func newAccount(id, email string) models.Account {
	return models.Account{
		ID:           id,
		Name:         "Test " + id,
		Email:        email,
		Balance:      100,
		CreatedAt:    base,
		PasswordHash: []byte("hash-" + id),
	}
}

func tx(id, account string, at time.Time, amount float64) models.TransactionEvent {
	return models.TransactionEvent{
		ID:          id,
		AccountID:   account,
		Amount:      amount,
		Kind:        models.KindExpense,
		Category:    models.CategoryFood,
		Description: "lunch",
		Timestamp:   at,
	}
}

func TestStoreAccounts(t *testing.T) {
	t.Parallel()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := open(t)
			defer s.Close()

			if err := s.CreateAccount(ctx, newAccount("acct-1", "alice@example.com")); err != nil {
				t.Fatalf("CreateAccount: %v", err)
			}
			if err := s.CreateAccount(ctx, newAccount("acct-1", "other@example.com")); !errors.Is(err, ErrAccountExists) {
				t.Errorf("duplicate id: got %v, want ErrAccountExists", err)
			}
			if err := s.CreateAccount(ctx, newAccount("acct-2", "Alice@Example.com")); !errors.Is(err, ErrAccountExists) {
				t.Errorf("duplicate email: got %v, want ErrAccountExists", err)
			}

			got, err := s.GetAccountByEmail(ctx, " ALICE@example.com")
			if err != nil {
				t.Fatalf("GetAccountByEmail: %v", err)
			}
			if got.ID != "acct-1" || string(got.PasswordHash) != "hash-acct-1" {
				t.Errorf("GetAccountByEmail = %+v", got)
			}
			if !got.CreatedAt.Equal(base) {
				t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, base)
			}

			if _, err := s.GetAccount(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("GetAccount(missing) = %v, want ErrNotFound", err)
			}
			if err := s.UpdateBalance(ctx, "missing", 1); !errors.Is(err, ErrNotFound) {
				t.Errorf("UpdateBalance(missing) = %v, want ErrNotFound", err)
			}

			if err := s.UpdateBalance(ctx, "acct-1", 42.5); err != nil {
				t.Fatalf("UpdateBalance: %v", err)
			}
			bal, err := s.Balance(ctx, "acct-1")
			if err != nil || bal != 42.5 {
				t.Errorf("Balance = %v, %v; want 42.5", bal, err)
			}
			// The password hash survives a balance update.
			got, err = s.GetAccount(ctx, "acct-1")
			if err != nil || string(got.PasswordHash) != "hash-acct-1" {
				t.Errorf("GetAccount after update = %+v, %v", got, err)
			}
		})
	}
}

func TestStoreTransactions(t *testing.T) {
	t.Parallel()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := open(t)
			defer s.Close()

			// Persisted out of order on purpose.
			for _, e := range []models.TransactionEvent{
				tx("t3", "a", base.Add(3*time.Minute), 30),
				tx("t1", "a", base.Add(1*time.Minute), 10),
				tx("t2", "a", base.Add(2*time.Minute), 20),
				tx("x1", "b", base.Add(2*time.Minute), 99),
			} {
				if err := s.PersistTransaction(ctx, e); err != nil {
					t.Fatalf("PersistTransaction(%s): %v", e.ID, err)
				}
			}

			all, err := s.RecentTransactions(ctx, "a", nil)
			if err != nil {
				t.Fatalf("RecentTransactions(nil): %v", err)
			}
			if ids := txIDs(all); ids != "t1,t2,t3" {
				t.Errorf("RecentTransactions(nil) = %s, want t1,t2,t3", ids)
			}

			since := base.Add(2 * time.Minute)
			recent, err := s.RecentTransactions(ctx, "a", &since)
			if err != nil {
				t.Fatalf("RecentTransactions(since): %v", err)
			}
			if ids := txIDs(recent); ids != "t2,t3" {
				t.Errorf("RecentTransactions(since) = %s, want t2,t3 (inclusive bound)", ids)
			}

			listed, err := s.ListTransactions(ctx, "a", 2)
			if err != nil {
				t.Fatalf("ListTransactions: %v", err)
			}
			if ids := txIDs(listed); ids != "t3,t2" {
				t.Errorf("ListTransactions = %s, want t3,t2", ids)
			}
			if listed[0].Category != models.CategoryFood || listed[0].Kind != models.KindExpense || listed[0].Amount != 30 {
				t.Errorf("round trip lost fields: %+v", listed[0])
			}

			none, err := s.RecentTransactions(ctx, "nobody", nil)
			if err != nil || len(none) != 0 {
				t.Errorf("RecentTransactions(nobody) = %v, %v", none, err)
			}
		})
	}
}

func TestStoreLocationsAndAlerts(t *testing.T) {
	t.Parallel()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			s := open(t)
			defer s.Close()

			alt := 120.0
			samples := []models.GeoSample{
				{Latitude: 51.5, Longitude: -0.12, HorizontalAccuracy: 5, Timestamp: base},
				{Latitude: 51.6, Longitude: -0.13, Altitude: &alt, HorizontalAccuracy: 8, Timestamp: base.Add(time.Second)},
			}
			for _, smp := range samples {
				if err := s.SaveLocation(ctx, "a", smp); err != nil {
					t.Fatalf("SaveLocation: %v", err)
				}
				time.Sleep(time.Millisecond)
			}
			locs, err := s.ListLocations(ctx, "a", 10)
			if err != nil {
				t.Fatalf("ListLocations: %v", err)
			}
			if len(locs) != 2 {
				t.Fatalf("ListLocations len = %d, want 2", len(locs))
			}
			if locs[0].Sample.Altitude == nil || *locs[0].Sample.Altitude != alt {
				t.Errorf("newest location altitude = %v, want %v", locs[0].Sample.Altitude, alt)
			}
			if locs[1].Sample.Altitude != nil {
				t.Errorf("oldest location altitude = %v, want nil", *locs[1].Sample.Altitude)
			}

			for i, title := range []string{"first", "second"} {
				a := &models.Alert{
					ID:        title,
					AccountID: "a",
					Kind:      models.AlertKindTransaction,
					Severity:  models.SeverityCritical,
					Title:     title,
					Message:   "msg",
					Verdict:   "high_value",
					Metadata:  map[string]any{"amount": 15000.0},
					CreatedAt: base.Add(time.Duration(i) * time.Minute),
				}
				if err := s.SaveAlert(ctx, a); err != nil {
					t.Fatalf("SaveAlert: %v", err)
				}
			}
			alerts, err := s.ListAlerts(ctx, "a", 0)
			if err != nil {
				t.Fatalf("ListAlerts: %v", err)
			}
			if len(alerts) != 2 || alerts[0].Title != "second" {
				t.Fatalf("ListAlerts = %+v, want newest first", alerts)
			}
			if alerts[0].Metadata["amount"] != 15000.0 {
				t.Errorf("metadata = %v", alerts[0].Metadata)
			}

			if err := s.Ping(ctx); err != nil {
				t.Errorf("Ping: %v", err)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	for _, driver := range []string{"memory", "Badger", "duckdb"} {
		s, rdb, err := Open(ctx, configFor(driver))
		if err != nil {
			t.Fatalf("Open(%s): %v", driver, err)
		}
		if rdb != nil {
			t.Errorf("Open(%s) returned a redis client without redis_addr", driver)
		}
		_ = s.Close()
	}

	if _, _, err := Open(ctx, configFor("sqlite")); err == nil {
		t.Error("Open(sqlite) succeeded, want error")
	}
}

func configFor(driver string) config.StoreConfig {
	return config.StoreConfig{Driver: driver, WindowTTL: time.Minute}
}

func txIDs(txs []models.TransactionEvent) string {
	out := ""
	for i, e := range txs {
		if i > 0 {
			out += ","
		}
		out += e.ID
	}
	return out
}
