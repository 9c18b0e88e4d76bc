// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard

package api

import (
	"context"
	"time"

	"github.com/tomtom215/fintrack-guard/internal/auth"
	"github.com/tomtom215/fintrack-guard/internal/integrity"
	"github.com/tomtom215/fintrack-guard/internal/models"
	"github.com/tomtom215/fintrack-guard/internal/security"
	"github.com/tomtom215/fintrack-guard/internal/websocket"
)

// Engine is the decision engine surface used by the handlers.
type Engine interface {
	StartTracking(ctx context.Context) error
	StopTracking(ctx context.Context) error
	IsTracking(accountID string) bool
	RecordLocation(ctx context.Context, sample models.GeoSample) (security.Outcome, error)
	SubmitTransaction(ctx context.Context, event models.TransactionEvent) (security.Outcome, error)
	BreakerState() string
}

type AccountService interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.Account, *models.TokenResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.TokenResponse, error)
}

type ChallengeService interface {
	List(accountID string) []auth.Challenge
	Resolve(ctx context.Context, id, accountID string, res auth.Resolution) (bool, error)
}

// Store is the read side the handlers query directly.
type Store interface {
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
	ListTransactions(ctx context.Context, accountID string, limit int) ([]models.TransactionEvent, error)
	ListLocations(ctx context.Context, accountID string, limit int) ([]models.StoredLocation, error)
	ListAlerts(ctx context.Context, accountID string, limit int) ([]*models.Alert, error)
	Ping(ctx context.Context) error
}

type LocationPublisher interface {
	PublishLocations(ctx context.Context, accountID string, samples []models.GeoSample) error
}

type IntegrityAssessor interface {
	Assess(ctx context.Context) integrity.Assessment
}

// Deps are the collaborators of a Handler. Ingest, Integrity and Hub may
// be nil; their endpoints then answer 503.
type Deps struct {
	Engine     Engine
	Accounts   AccountService
	Challenges ChallengeService
	Store      Store
	Ingest     LocationPublisher
	Integrity  IntegrityAssessor
	Hub        *websocket.Hub

	// AllowedOrigins for browser websocket clients. "*" allows any.
	AllowedOrigins []string
}

// Handler implements the HTTP endpoints.
type Handler struct {
	Deps
	startTime time.Time
}

func NewHandler(deps Deps) *Handler {
	return &Handler{Deps: deps, startTime: time.Now()}
}
