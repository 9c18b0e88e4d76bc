// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package auth

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/fintrack-guard/internal/logging"
	"github.com/tomtom215/fintrack-guard/internal/metrics"
	"github.com/tomtom215/fintrack-guard/internal/models"
	"github.com/tomtom215/fintrack-guard/internal/security"
)

// Method is how the device proves presence for a challenge.
type Method string

const (
	// MethodBiometric accepts a relayed biometric confirmation, or the
	// account password as the fallback credential.
	MethodBiometric Method = "biometric"
	// MethodPassword accepts only the account password.
	MethodPassword Method = "password"
)

var (
	ErrChallengeNotFound  = errors.New("challenge not found")
	ErrInvalidResolution  = errors.New("resolution does not satisfy challenge method")
	ErrChallengeAbandoned = errors.New("challenge abandoned")
)

// Challenge is a pending step-up request.
type Challenge struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Method    Method    `json:"method"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Resolution is the client's answer to a challenge.
type Resolution struct {
	Approved *bool  `json:"approved,omitempty"`
	Password string `json:"password,omitempty"`
}

// CredentialVerifier checks an account's primary credential.
type CredentialVerifier interface {
	VerifyPassword(ctx context.Context, accountID, password string) error
}

type pendingChallenge struct {
	Challenge
	result chan bool
	once   sync.Once
}

func (p *pendingChallenge) deliver(approved bool) bool {
	delivered := false
	p.once.Do(func() {
		p.result <- approved
		delivered = true
	})
	return delivered
}

// ChallengeBroker runs step-up challenges that the client resolves through
// the API.
type ChallengeBroker struct {
	mu       sync.Mutex
	pending  map[string]*pendingChallenge
	method   Method
	timeout  time.Duration
	verifier CredentialVerifier
	notifier security.Notifier
	now      func() time.Time
}

// NewChallengeBroker issues challenges of the given method that expire
// after timeout. notifier may be nil.
func NewChallengeBroker(method Method, timeout time.Duration, verifier CredentialVerifier, notifier security.Notifier) *ChallengeBroker {
	return &ChallengeBroker{
		pending:  make(map[string]*pendingChallenge),
		method:   method,
		timeout:  timeout,
		verifier: verifier,
		notifier: notifier,
		now:      time.Now,
	}
}

// ChallengeStepUp registers a challenge for accountID and waits for it to
// be resolved. On timeout or cancellation it returns false with the
// context error.
func (b *ChallengeBroker) ChallengeStepUp(ctx context.Context, accountID, reason string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	now := b.now()
	p := &pendingChallenge{
		Challenge: Challenge{
			ID:        uuid.NewString(),
			AccountID: accountID,
			Method:    b.method,
			Reason:    reason,
			CreatedAt: now,
			ExpiresAt: now.Add(b.timeout),
		},
		result: make(chan bool, 1),
	}
	if deadline, ok := ctx.Deadline(); ok && deadline.Before(p.ExpiresAt) {
		p.ExpiresAt = deadline
	}

	b.mu.Lock()
	b.pending[p.ID] = p
	b.mu.Unlock()
	metrics.PendingChallenges.Inc()
	defer b.remove(p.ID)

	logging.Ctx(ctx).Info().
		Str("challenge_id", p.ID).
		Str("method", string(p.Method)).
		Time("expires_at", p.ExpiresAt).
		Msg("Step-up challenge issued")
	b.announce(ctx, p.Challenge)

	select {
	case approved := <-p.result:
		return approved, nil
	case <-ctx.Done():
		if !p.deliver(false) {
			// Resolve got there first and the client was told the outcome.
			return <-p.result, nil
		}
		return false, ctx.Err()
	}
}

func (b *ChallengeBroker) remove(id string) {
	b.mu.Lock()
	_, ok := b.pending[id]
	delete(b.pending, id)
	b.mu.Unlock()
	if ok {
		metrics.PendingChallenges.Dec()
	}
}

func (b *ChallengeBroker) announce(ctx context.Context, c Challenge) {
	if b.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logging.Ctx(ctx).Error().Interface("panic", r).Msg("notifier panicked")
		}
	}()
	b.notifier.Alert(&models.Alert{
		ID:        uuid.NewString(),
		AccountID: c.AccountID,
		Kind:      models.AlertKindChallenge,
		Severity:  models.SeverityInfo,
		Title:     "Verification required",
		Message:   c.Reason,
		Metadata: map[string]any{
			"challenge_id": c.ID,
			"method":       string(c.Method),
			"expires_at":   c.ExpiresAt,
		},
		CreatedAt: c.CreatedAt,
	})
}

// Resolve answers challenge id on behalf of accountID and reports whether it
// was approved. Only the owning account can see or resolve a challenge. A
// wrong password is a denial, not an error.
func (b *ChallengeBroker) Resolve(ctx context.Context, id, accountID string, res Resolution) (bool, error) {
	b.mu.Lock()
	p, ok := b.pending[id]
	b.mu.Unlock()
	if !ok || p.AccountID != accountID {
		return false, ErrChallengeNotFound
	}

	var approved bool
	switch {
	case res.Password != "":
		if b.verifier == nil {
			return false, ErrInvalidResolution
		}
		err := b.verifier.VerifyPassword(ctx, accountID, res.Password)
		if err != nil && !errors.Is(err, ErrInvalidCredentials) {
			return false, err
		}
		approved = err == nil
	case res.Approved != nil && p.Method == MethodBiometric:
		approved = *res.Approved
	default:
		return false, ErrInvalidResolution
	}

	if !p.deliver(approved) {
		return false, ErrChallengeAbandoned
	}
	logging.Ctx(ctx).Info().Str("challenge_id", id).Bool("approved", approved).Msg("Step-up challenge resolved")
	return approved, nil
}

// List returns accountID's pending challenges, oldest first.
func (b *ChallengeBroker) List(accountID string) []Challenge {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Challenge, 0)
	for _, p := range b.pending {
		if p.AccountID == accountID {
			out = append(out, p.Challenge)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
