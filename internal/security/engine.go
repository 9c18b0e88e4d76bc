// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package security

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/fintrack-guard/internal/detection"
	"github.com/tomtom215/fintrack-guard/internal/logging"
	"github.com/tomtom215/fintrack-guard/internal/metrics"
	"github.com/tomtom215/fintrack-guard/internal/models"
	"github.com/tomtom215/fintrack-guard/internal/syncutil"
)

// Config bounds the engine's suspension points.
type Config struct {
	// WindowFetchTimeout limits the recent-transaction fetch. On expiry the
	// evaluation continues with an empty window.
	WindowFetchTimeout time.Duration

	// ChallengeTimeout limits the step-up challenge. On expiry the
	// transaction is blocked.
	ChallengeTimeout time.Duration

	// LockTimeout limits how long a signal waits behind earlier signals of
	// the same account.
	LockTimeout time.Duration

	// StoreTimeout limits persistence calls after a decision.
	StoreTimeout time.Duration

	BreakerMaxFailures uint32
	BreakerOpenTimeout time.Duration

	// Clock defaults to time.Now.
	Clock func() time.Time
}

// DefaultConfig returns production timeouts.
func DefaultConfig() Config {
	return Config{
		WindowFetchTimeout: 2 * time.Second,
		ChallengeTimeout:   60 * time.Second,
		LockTimeout:        75 * time.Second,
		StoreTimeout:       5 * time.Second,
		BreakerMaxFailures: 5,
		BreakerOpenTimeout: 30 * time.Second,
	}
}

// accountContext is the per-account evaluation state. history is only
// touched while holding the account's location lock.
type accountContext struct {
	accountID string
	startedAt time.Time
	history   *detection.LocationHistory
}

// Engine is the SecurityDecisionEngine.
type Engine struct {
	cfg      Config
	identity IdentityProvider
	store    Store
	notifier Notifier

	// balanceNotifier receives balance updates for committed transactions.
	// It is separate from notifier, which only carries security alerts.
	balanceNotifier Notifier

	travel *detection.TravelAnomalyDetector
	risk   *detection.TransactionRiskEvaluator

	locks   *syncutil.KeyedMutex
	breaker *gobreaker.CircuitBreaker[[]models.TransactionEvent]

	mu       sync.RWMutex
	accounts map[string]*accountContext
}

// NewEngine wires an engine to its collaborators. Zero Config fields take
// their DefaultConfig values.
func NewEngine(cfg Config, identity IdentityProvider, store Store, notifier Notifier) *Engine {
	def := DefaultConfig()
	if cfg.WindowFetchTimeout <= 0 {
		cfg.WindowFetchTimeout = def.WindowFetchTimeout
	}
	if cfg.ChallengeTimeout <= 0 {
		cfg.ChallengeTimeout = def.ChallengeTimeout
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = def.LockTimeout
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = def.StoreTimeout
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = def.BreakerMaxFailures
	}
	if cfg.BreakerOpenTimeout <= 0 {
		cfg.BreakerOpenTimeout = def.BreakerOpenTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Engine{
		cfg:      cfg,
		identity: identity,
		store:    store,
		notifier: notifier,
		travel:   detection.NewTravelAnomalyDetector(),
		risk:     detection.NewTransactionRiskEvaluator(cfg.Clock),
		locks:    syncutil.NewKeyedMutex(),
		breaker:  newWindowBreaker(cfg.BreakerMaxFailures, cfg.BreakerOpenTimeout),
		accounts: make(map[string]*accountContext),
	}
}

// SetBalanceNotifier registers a notifier for balance updates after
// committed transactions. Must be called before the engine is used.
func (e *Engine) SetBalanceNotifier(n Notifier) {
	e.balanceNotifier = n
}

func newWindowBreaker(maxFailures uint32, openTimeout time.Duration) *gobreaker.CircuitBreaker[[]models.TransactionEvent] {
	return gobreaker.NewCircuitBreaker[[]models.TransactionEvent](gobreaker.Settings{
		Name:        "recent-window",
		MaxRequests: 1,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// A caller giving up is not a store failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.WindowBreakerState.Set(float64(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	})
}

// accountFromContext resolves the acting account through the identity
// provider.
func (e *Engine) accountFromContext(ctx context.Context) (string, error) {
	id, ok := e.identity.CurrentAccountID(ctx)
	if !ok || id == "" {
		return "", ErrNoIdentity
	}
	return id, nil
}

// StartTracking creates the account's location history. Calling it again
// while tracking is active keeps the existing history.
func (e *Engine) StartTracking(ctx context.Context) error {
	accountID, err := e.accountFromContext(ctx)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.accounts[accountID]; ok {
		return nil
	}
	e.accounts[accountID] = &accountContext{
		accountID: accountID,
		startedAt: e.cfg.Clock(),
		history:   detection.NewLocationHistory(e.cfg.Clock),
	}
	metrics.TrackedAccounts.Set(float64(len(e.accounts)))
	logging.Ctx(ctx).Info().Str("account_id", accountID).Msg("location tracking started")
	return nil
}

// StopTracking discards the account's location history. It is used for both
// explicit stops and sign out.
func (e *Engine) StopTracking(ctx context.Context) error {
	accountID, err := e.accountFromContext(ctx)
	if err != nil {
		return err
	}
	e.StopTrackingAccount(accountID)
	logging.Ctx(ctx).Info().Str("account_id", accountID).Msg("location tracking stopped")
	return nil
}

// StopTrackingAccount discards the history of accountID.
func (e *Engine) StopTrackingAccount(accountID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.accounts, accountID)
	metrics.TrackedAccounts.Set(float64(len(e.accounts)))
}

// IsTracking reports whether accountID has an active location history.
func (e *Engine) IsTracking(accountID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.accounts[accountID]
	return ok
}

func (e *Engine) accountContext(accountID string) (*accountContext, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ac, ok := e.accounts[accountID]
	return ac, ok
}

// lockAccount serializes signals of one kind for one account.
func (e *Engine) lockAccount(ctx context.Context, signal Signal, accountID string) (func(), error) {
	lockCtx, cancel := context.WithTimeout(ctx, e.cfg.LockTimeout)
	defer cancel()

	unlock, err := e.locks.LockContext(lockCtx, string(signal)+":"+accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBusy, err)
	}
	return unlock, nil
}

// alert hands an alert to the notifier. The notifier only enqueues, but a
// misbehaving implementation must still not fail the evaluation.
func (e *Engine) alert(ctx context.Context, a *models.Alert) {
	if e.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logging.Ctx(ctx).Error().Interface("panic", r).Str("alert_id", a.ID).Msg("notifier panicked")
		}
	}()
	e.notifier.Alert(a)
}

func (e *Engine) newAlert(accountID string, kind models.AlertKind, severity models.Severity, title, message string, verdict detection.Verdict) *models.Alert {
	a := &models.Alert{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Kind:      kind,
		Severity:  severity,
		Title:     title,
		Message:   message,
		CreatedAt: e.cfg.Clock(),
	}
	if !verdict.IsClear() {
		a.Verdict = string(verdict.Kind)
	}
	return a
}
