// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/fintrack-guard/internal/logging"
	"github.com/tomtom215/fintrack-guard/internal/models"
	"github.com/tomtom215/fintrack-guard/internal/store"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrLockedOut          = errors.New("too many failed attempts")
)

// AccountStore is the slice of store.Store the service needs.
type AccountStore interface {
	CreateAccount(ctx context.Context, account models.Account) error
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
}

// Service registers accounts and logs them in.
type Service struct {
	accounts   AccountStore
	tokens     *TokenManager
	lockout    *Lockout
	bcryptCost int
	now        func() time.Time
}

// NewService wires the service. lockout may be nil.
func NewService(accounts AccountStore, tokens *TokenManager, lockout *Lockout, bcryptCost int) *Service {
	if lockout == nil {
		lockout = NewLockout(0, 0)
	}
	return &Service{
		accounts:   accounts,
		tokens:     tokens,
		lockout:    lockout,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// Register creates an account with a zero balance and returns a token for it.
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.Account, *models.TokenResponse, error) {
	hash, err := HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, nil, err
	}
	account := models.Account{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		CreatedAt:    s.now().UTC(),
		PasswordHash: hash,
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, store.ErrAccountExists) {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, fmt.Errorf("create account: %w", err)
	}

	logging.Ctx(ctx).Info().Str("account_id", account.ID).Msg("Account registered")
	tok, err := s.issue(account.ID)
	if err != nil {
		return nil, nil, err
	}
	return &account, tok, nil
}

// Login checks credentials and returns a token.
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error) {
	subject := strings.ToLower(strings.TrimSpace(req.Email))
	if locked, _ := s.lockout.Locked(subject); locked {
		return nil, ErrLockedOut
	}

	account, err := s.accounts.GetAccountByEmail(ctx, subject)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if account == nil || !CheckPassword(account.PasswordHash, req.Password) {
		if s.lockout.Failure(subject) {
			return nil, ErrLockedOut
		}
		logging.Ctx(ctx).Info().Str("email", subject).Msg("Login failed")
		return nil, ErrInvalidCredentials
	}

	s.lockout.Success(subject)
	return s.issue(account.ID)
}

// VerifyPassword implements CredentialVerifier.
func (s *Service) VerifyPassword(ctx context.Context, accountID, password string) error {
	account, err := s.accounts.GetAccount(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrInvalidCredentials
	}
	if err != nil {
		return fmt.Errorf("lookup account: %w", err)
	}
	if !CheckPassword(account.PasswordHash, password) {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *Service) issue(accountID string) (*models.TokenResponse, error) {
	token, expires, err := s.tokens.Issue(accountID)
	if err != nil {
		return nil, err
	}
	return &models.TokenResponse{Token: token, ExpiresAt: expires, AccountID: accountID}, nil
}
