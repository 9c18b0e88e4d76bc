// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package store

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/fintrack-guard/internal/logging"
	"github.com/tomtom215/fintrack-guard/internal/models"
)

// Key layout:
//
//	acct:{id}                          account record
//	email:{email}                      account id
//	tx:{account}:{unixnano}:{id}       transaction
//	loc:{account}:{unixnano}:{seq}     location sample (expires after LocationTTL)
//	alert:{account}:{unixnano}:{id}    alert
//
// Timestamps are zero-padded so lexical order is chronological order.
const (
	prefixAccount  = "acct:"
	prefixEmail    = "email:"
	prefixTx       = "tx:"
	prefixLocation = "loc:"
	prefixAlert    = "alert:"

	backendBadger = "badger"
)

// LocationTTL bounds how long raw location samples are retained.
const LocationTTL = 30 * 24 * time.Hour

// accountRecord carries the password hash, which models.Account hides from JSON.
type accountRecord struct {
	models.Account
	PasswordHash []byte `json:"password_hash"`
}

// BadgerStore persists everything in a badger database.
type BadgerStore struct {
	db          *badger.DB
	locationTTL time.Duration
	now         func() time.Time
	seq         atomic.Uint64
}

// NewBadgerStore opens (or creates) a database at path. An empty path runs
// badger in memory.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	logging.Info().Str("path", path).Bool("in_memory", path == "").Msg("Badger store opened")
	return &BadgerStore{db: db, locationTTL: LocationTTL, now: time.Now}, nil
}

func tsKey(t time.Time) string {
	return fmt.Sprintf("%020d", t.UnixNano())
}

func txPrefix(accountID string) []byte {
	return []byte(prefixTx + accountID + ":")
}

func (s *BadgerStore) CreateAccount(_ context.Context, account models.Account) (err error) {
	defer observe(backendBadger, "create_account", time.Now(), &err)

	rec := accountRecord{Account: account, PasswordHash: account.PasswordHash}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal account: %w", err)
	}
	emailKey := []byte(prefixEmail + normalizeEmail(account.Email))
	acctKey := []byte(prefixAccount + account.ID)

	return s.db.Update(func(txn *badger.Txn) error {
		for _, key := range [][]byte{acctKey, emailKey} {
			_, getErr := txn.Get(key)
			if getErr == nil {
				return ErrAccountExists
			}
			if !errors.Is(getErr, badger.ErrKeyNotFound) {
				return getErr
			}
		}
		if err := txn.Set(acctKey, data); err != nil {
			return err
		}
		return txn.Set(emailKey, []byte(account.ID))
	})
}

func (s *BadgerStore) getAccount(txn *badger.Txn, accountID string) (*accountRecord, error) {
	item, err := txn.Get([]byte(prefixAccount + accountID))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var rec accountRecord
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	}); err != nil {
		return nil, fmt.Errorf("decode account %s: %w", accountID, err)
	}
	rec.Account.PasswordHash = rec.PasswordHash
	return &rec, nil
}

func (s *BadgerStore) GetAccount(_ context.Context, accountID string) (*models.Account, error) {
	var out *models.Account
	err := s.db.View(func(txn *badger.Txn) error {
		rec, err := s.getAccount(txn, accountID)
		if err != nil {
			return err
		}
		out = &rec.Account
		return nil
	})
	return out, err
}

func (s *BadgerStore) GetAccountByEmail(_ context.Context, email string) (*models.Account, error) {
	var out *models.Account
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixEmail + normalizeEmail(email)))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		rec, err := s.getAccount(txn, string(id))
		if err != nil {
			return err
		}
		out = &rec.Account
		return nil
	})
	return out, err
}

func (s *BadgerStore) Balance(ctx context.Context, accountID string) (float64, error) {
	acct, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return acct.Balance, nil
}

func (s *BadgerStore) UpdateBalance(_ context.Context, accountID string, newBalance float64) (err error) {
	defer observe(backendBadger, "update_balance", time.Now(), &err)

	return s.db.Update(func(txn *badger.Txn) error {
		rec, err := s.getAccount(txn, accountID)
		if err != nil {
			return err
		}
		rec.Balance = newBalance
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.Set([]byte(prefixAccount+accountID), data)
	})
}

func (s *BadgerStore) PersistTransaction(_ context.Context, event models.TransactionEvent) (err error) {
	defer observe(backendBadger, "persist_transaction", time.Now(), &err)

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal transaction: %w", err)
	}
	key := append(txPrefix(event.AccountID), []byte(tsKey(event.Timestamp)+":"+event.ID)...)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

func (s *BadgerStore) RecentTransactions(_ context.Context, accountID string, since *time.Time) (out []models.TransactionEvent, err error) {
	defer observe(backendBadger, "recent_transactions", time.Now(), &err)

	prefix := txPrefix(accountID)
	start := prefix
	if since != nil {
		start = append(append([]byte{}, prefix...), []byte(tsKey(*since))...)
	}
	err = s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
			var tx models.TransactionEvent
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &tx)
			}); err != nil {
				return err
			}
			out = append(out, tx)
		}
		return nil
	})
	return out, err
}

// scanNewest walks keys under prefix newest first, decoding up to limit values.
func scanNewest[T any](db *badger.DB, prefix []byte, limit int) ([]T, error) {
	limit = normalizeLimit(limit)
	var out []T
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(out) < limit; it.Next() {
			var v T
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &v)
			}); err != nil {
				return err
			}
			out = append(out, v)
		}
		return nil
	})
	return out, err
}

func (s *BadgerStore) ListTransactions(_ context.Context, accountID string, limit int) ([]models.TransactionEvent, error) {
	return scanNewest[models.TransactionEvent](s.db, txPrefix(accountID), limit)
}

func (s *BadgerStore) SaveLocation(_ context.Context, accountID string, sample models.GeoSample) (err error) {
	defer observe(backendBadger, "save_location", time.Now(), &err)

	loc := models.StoredLocation{AccountID: accountID, Sample: sample, StoredAt: s.now()}
	data, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("marshal location: %w", err)
	}
	key := []byte(fmt.Sprintf("%s%s:%s:%08d", prefixLocation, accountID, tsKey(loc.StoredAt), s.seq.Add(1)%100_000_000))
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, data).WithTTL(s.locationTTL))
	})
}

func (s *BadgerStore) ListLocations(_ context.Context, accountID string, limit int) ([]models.StoredLocation, error) {
	return scanNewest[models.StoredLocation](s.db, []byte(prefixLocation+accountID+":"), limit)
}

func (s *BadgerStore) SaveAlert(_ context.Context, alert *models.Alert) (err error) {
	defer observe(backendBadger, "save_alert", time.Now(), &err)

	data, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	key := []byte(prefixAlert + alert.AccountID + ":" + tsKey(alert.CreatedAt) + ":" + alert.ID)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

func (s *BadgerStore) ListAlerts(_ context.Context, accountID string, limit int) ([]*models.Alert, error) {
	return scanNewest[*models.Alert](s.db, []byte(prefixAlert+accountID+":"), limit)
}

func (s *BadgerStore) Ping(context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger: database closed")
	}
	return nil
}

// Close flushes and closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
