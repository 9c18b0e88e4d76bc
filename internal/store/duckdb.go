// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" driver
	"github.com/goccy/go-json"

	"github.com/tomtom215/fintrack-guard/internal/logging"
	"github.com/tomtom215/fintrack-guard/internal/models"
)

const backendDuckDB = "duckdb"

// Timestamps are stored as UTC TIMESTAMP columns; TIMESTAMPTZ would need the
// ICU extension, which is not auto-loaded.
var duckdbSchema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id VARCHAR PRIMARY KEY,
		name VARCHAR NOT NULL,
		email VARCHAR NOT NULL UNIQUE,
		balance DOUBLE NOT NULL DEFAULT 0,
		password_hash BLOB,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id VARCHAR NOT NULL,
		account_id VARCHAR NOT NULL,
		amount DOUBLE NOT NULL,
		kind VARCHAR NOT NULL,
		category VARCHAR NOT NULL,
		description VARCHAR,
		ts TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_transactions_account_ts ON transactions(account_id, ts)`,
	`CREATE TABLE IF NOT EXISTS locations (
		account_id VARCHAR NOT NULL,
		latitude DOUBLE NOT NULL,
		longitude DOUBLE NOT NULL,
		altitude DOUBLE,
		accuracy DOUBLE NOT NULL,
		ts TIMESTAMP NOT NULL,
		stored_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS alerts (
		id VARCHAR NOT NULL,
		account_id VARCHAR,
		kind VARCHAR NOT NULL,
		severity VARCHAR NOT NULL,
		title VARCHAR NOT NULL,
		message VARCHAR NOT NULL,
		verdict VARCHAR,
		metadata VARCHAR,
		created_at TIMESTAMP NOT NULL
	)`,
}

// DuckDBStore keeps accounts, transactions, locations and alerts in DuckDB
// tables.
type DuckDBStore struct {
	conn *sql.DB
	now  func() time.Time
}

// NewDuckDBStore opens the database file at path (":memory:" or "" for an
// in-memory database) and creates the schema.
func NewDuckDBStore(ctx context.Context, path string) (*DuckDBStore, error) {
	if path == "" {
		path = ":memory:"
	}
	connStr := path + "?access_mode=read_write&autoinstall_known_extensions=false&autoload_known_extensions=false"
	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	for _, stmt := range duckdbSchema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			closeQuietly(conn)
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}
	logging.Info().Str("path", path).Msg("DuckDB store opened")
	return &DuckDBStore{conn: conn, now: time.Now}, nil
}

func closeQuietly(conn *sql.DB) {
	if err := conn.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close duckdb connection")
	}
}

func utc(t time.Time) time.Time { return t.UTC() }

func (s *DuckDBStore) CreateAccount(ctx context.Context, account models.Account) (err error) {
	defer observe(backendDuckDB, "create_account", time.Now(), &err)

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var n int
	if err = tx.QueryRowContext(ctx,
		`SELECT count(*) FROM accounts WHERE id = ? OR email = ?`,
		account.ID, normalizeEmail(account.Email)).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		err = ErrAccountExists
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO accounts (id, name, email, balance, password_hash, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		account.ID, account.Name, normalizeEmail(account.Email), account.Balance, account.PasswordHash, utc(account.CreatedAt)); err != nil {
		return err
	}
	return tx.Commit()
}

const accountColumns = `id, name, email, balance, password_hash, created_at`

func scanAccount(row *sql.Row) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.Balance, &a.PasswordHash, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *DuckDBStore) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	return scanAccount(s.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, accountID))
}

func (s *DuckDBStore) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return scanAccount(s.conn.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE email = ?`, normalizeEmail(email)))
}

func (s *DuckDBStore) Balance(ctx context.Context, accountID string) (float64, error) {
	var balance float64
	err := s.conn.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, accountID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return balance, err
}

func (s *DuckDBStore) UpdateBalance(ctx context.Context, accountID string, newBalance float64) (err error) {
	defer observe(backendDuckDB, "update_balance", time.Now(), &err)

	res, err := s.conn.ExecContext(ctx, `UPDATE accounts SET balance = ? WHERE id = ?`, newBalance, accountID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *DuckDBStore) PersistTransaction(ctx context.Context, event models.TransactionEvent) (err error) {
	defer observe(backendDuckDB, "persist_transaction", time.Now(), &err)

	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO transactions (id, account_id, amount, kind, category, description, ts) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.AccountID, event.Amount, string(event.Kind), string(event.Category), event.Description, utc(event.Timestamp))
	return err
}

func (s *DuckDBStore) queryTransactions(ctx context.Context, query string, args ...any) ([]models.TransactionEvent, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TransactionEvent
	for rows.Next() {
		var (
			tx          models.TransactionEvent
			kind, cat   string
			description sql.NullString
		)
		if err := rows.Scan(&tx.ID, &tx.AccountID, &tx.Amount, &kind, &cat, &description, &tx.Timestamp); err != nil {
			return nil, err
		}
		tx.Kind = models.TransactionKind(kind)
		tx.Category = models.Category(cat)
		tx.Description = description.String
		out = append(out, tx)
	}
	return out, rows.Err()
}

const txColumns = `id, account_id, amount, kind, category, description, ts`

func (s *DuckDBStore) RecentTransactions(ctx context.Context, accountID string, since *time.Time) (out []models.TransactionEvent, err error) {
	defer observe(backendDuckDB, "recent_transactions", time.Now(), &err)

	if since == nil {
		return s.queryTransactions(ctx,
			`SELECT `+txColumns+` FROM transactions WHERE account_id = ? ORDER BY ts`, accountID)
	}
	return s.queryTransactions(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE account_id = ? AND ts >= ? ORDER BY ts`, accountID, utc(*since))
}

func (s *DuckDBStore) ListTransactions(ctx context.Context, accountID string, limit int) ([]models.TransactionEvent, error) {
	return s.queryTransactions(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE account_id = ? ORDER BY ts DESC LIMIT ?`, accountID, normalizeLimit(limit))
}

func (s *DuckDBStore) SaveLocation(ctx context.Context, accountID string, sample models.GeoSample) (err error) {
	defer observe(backendDuckDB, "save_location", time.Now(), &err)

	var altitude sql.NullFloat64
	if sample.Altitude != nil {
		altitude = sql.NullFloat64{Float64: *sample.Altitude, Valid: true}
	}
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO locations (account_id, latitude, longitude, altitude, accuracy, ts, stored_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		accountID, sample.Latitude, sample.Longitude, altitude, sample.HorizontalAccuracy, utc(sample.Timestamp), utc(s.now()))
	return err
}

func (s *DuckDBStore) ListLocations(ctx context.Context, accountID string, limit int) ([]models.StoredLocation, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT latitude, longitude, altitude, accuracy, ts, stored_at FROM locations
		 WHERE account_id = ? ORDER BY stored_at DESC LIMIT ?`, accountID, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.StoredLocation
	for rows.Next() {
		loc := models.StoredLocation{AccountID: accountID}
		var altitude sql.NullFloat64
		if err := rows.Scan(&loc.Sample.Latitude, &loc.Sample.Longitude, &altitude,
			&loc.Sample.HorizontalAccuracy, &loc.Sample.Timestamp, &loc.StoredAt); err != nil {
			return nil, err
		}
		if altitude.Valid {
			v := altitude.Float64
			loc.Sample.Altitude = &v
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

func (s *DuckDBStore) SaveAlert(ctx context.Context, alert *models.Alert) (err error) {
	defer observe(backendDuckDB, "save_alert", time.Now(), &err)

	var metadata sql.NullString
	if len(alert.Metadata) > 0 {
		data, err := json.Marshal(alert.Metadata)
		if err != nil {
			return fmt.Errorf("marshal alert metadata: %w", err)
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO alerts (id, account_id, kind, severity, title, message, verdict, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.ID, alert.AccountID, string(alert.Kind), string(alert.Severity), alert.Title, alert.Message,
		alert.Verdict, metadata, utc(alert.CreatedAt))
	return err
}

func (s *DuckDBStore) ListAlerts(ctx context.Context, accountID string, limit int) ([]*models.Alert, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, account_id, kind, severity, title, message, verdict, metadata, created_at FROM alerts
		 WHERE account_id = ? ORDER BY created_at DESC LIMIT ?`, accountID, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Alert
	for rows.Next() {
		var (
			a                 models.Alert
			acct, verdict, md sql.NullString
			kind, severity    string
		)
		if err := rows.Scan(&a.ID, &acct, &kind, &severity, &a.Title, &a.Message, &verdict, &md, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.AccountID = acct.String
		a.Kind = models.AlertKind(kind)
		a.Severity = models.Severity(severity)
		a.Verdict = verdict.String
		if md.Valid {
			if err := json.Unmarshal([]byte(md.String), &a.Metadata); err != nil {
				return nil, fmt.Errorf("decode alert metadata: %w", err)
			}
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (s *DuckDBStore) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

func (s *DuckDBStore) Close() error {
	return s.conn.Close()
}
