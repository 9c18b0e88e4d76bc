// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/fintrack-guard/internal/models"
	"github.com/tomtom215/fintrack-guard/internal/store"
)

func newTestService(t *testing.T, lockout *Lockout) (*Service, *TokenManager) {
	t.Helper()
	tokens, err := NewTokenManager(testSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return NewService(store.NewMemoryStore(), tokens, lockout, bcrypt.MinCost), tokens
}

func TestService_RegisterAndLogin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, tokens := newTestService(t, nil)

	acct, tok, err := svc.Register(ctx, models.RegisterRequest{Name: " Ada ", Email: "Ada@Example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if acct.Email != "ada@example.com" || acct.Name != "Ada" || acct.Balance != 0 {
		t.Errorf("account = %+v", acct)
	}
	if claims, err := tokens.Validate(tok.Token); err != nil || claims.AccountID() != acct.ID {
		t.Errorf("register token: claims %v, err %v", claims, err)
	}

	if _, _, err := svc.Register(ctx, models.RegisterRequest{Name: "Other", Email: "ada@example.com", Password: "whatever-1"}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("duplicate Register err = %v, want ErrEmailTaken", err)
	}

	login, err := svc.Login(ctx, models.LoginRequest{Email: "ADA@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.AccountID != acct.ID {
		t.Errorf("login account = %s, want %s", login.AccountID, acct.ID)
	}

	if _, err := svc.Login(ctx, models.LoginRequest{Email: "ada@example.com", Password: "wrong"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password err = %v", err)
	}
	if _, err := svc.Login(ctx, models.LoginRequest{Email: "nobody@example.com", Password: "x"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email err = %v", err)
	}

	if err := svc.VerifyPassword(ctx, acct.ID, "correct-horse"); err != nil {
		t.Errorf("VerifyPassword: %v", err)
	}
	if err := svc.VerifyPassword(ctx, acct.ID, "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("VerifyPassword(wrong) = %v", err)
	}
	if err := svc.VerifyPassword(ctx, "missing", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("VerifyPassword(missing) = %v", err)
	}
}

func TestService_Lockout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _ := newTestService(t, NewLockout(3, time.Minute))

	if _, _, err := svc.Register(ctx, models.RegisterRequest{Name: "Bo", Email: "bo@example.com", Password: "right-password"}); err != nil {
		t.Fatal(err)
	}

	bad := models.LoginRequest{Email: "bo@example.com", Password: "wrong"}
	for i := 0; i < 2; i++ {
		if _, err := svc.Login(ctx, bad); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d err = %v", i+1, err)
		}
	}
	if _, err := svc.Login(ctx, bad); !errors.Is(err, ErrLockedOut) {
		t.Fatalf("third failure err = %v, want ErrLockedOut", err)
	}
	if _, err := svc.Login(ctx, models.LoginRequest{Email: "bo@example.com", Password: "right-password"}); !errors.Is(err, ErrLockedOut) {
		t.Errorf("correct password during lockout err = %v, want ErrLockedOut", err)
	}
}
