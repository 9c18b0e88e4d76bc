// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard

// Package main is the FinTrack Guard server.
//
// Startup order:
//
//  1. Configuration (koanf: defaults, config.yaml, .env, environment)
//  2. Logging
//  3. Store (memory, badger or duckdb, optionally behind the redis window cache)
//  4. Alert dispatcher and its channels (log, store, websocket, webhook, redis)
//  5. Accounts, tokens and the step-up challenge broker
//  6. Security decision engine
//  7. Device integrity assessment (advisory, logged once)
//  8. Location ingest, websocket hub, HTTP server under the supervisor tree
//
// SIGINT and SIGTERM cancel the tree; each layer drains within the server
// shutdown timeout.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/fintrack-guard/internal/api"
	"github.com/tomtom215/fintrack-guard/internal/auth"
	"github.com/tomtom215/fintrack-guard/internal/config"
	"github.com/tomtom215/fintrack-guard/internal/ingest"
	"github.com/tomtom215/fintrack-guard/internal/integrity"
	"github.com/tomtom215/fintrack-guard/internal/logging"
	"github.com/tomtom215/fintrack-guard/internal/notify"
	"github.com/tomtom215/fintrack-guard/internal/security"
	"github.com/tomtom215/fintrack-guard/internal/store"
	"github.com/tomtom215/fintrack-guard/internal/supervisor"
	"github.com/tomtom215/fintrack-guard/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("FinTrack Guard stopped with an error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("store", cfg.Store.Driver).
		Bool("redis", cfg.Store.RedisAddr != "").
		Str("challenge_method", cfg.Security.ChallengeMethod).
		Msg("Starting FinTrack Guard")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, rdb, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing store")
		}
		if rdb != nil {
			if err := rdb.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing redis client")
			}
		}
	}()

	hub := websocket.NewHub()
	dispatcher, err := newDispatcher(cfg, st, hub, rdb)
	if err != nil {
		return err
	}

	tokens, err := auth.NewTokenManager(cfg.Security.JWTSecret, cfg.Security.TokenTTL)
	if err != nil {
		return fmt.Errorf("token manager: %w", err)
	}
	accounts := auth.NewService(st, tokens,
		auth.NewLockout(cfg.Security.LockoutAttempts, cfg.Security.LockoutDuration),
		cfg.Security.BcryptCost)
	broker := auth.NewChallengeBroker(auth.Method(cfg.Security.ChallengeMethod),
		cfg.Engine.ChallengeTimeout, accounts, dispatcher)

	engine := security.NewEngine(security.Config{
		WindowFetchTimeout: cfg.Engine.WindowFetchTimeout,
		ChallengeTimeout:   cfg.Engine.ChallengeTimeout,
		LockTimeout:        cfg.Engine.LockTimeout,
		BreakerMaxFailures: cfg.Engine.BreakerMaxFailures,
		BreakerOpenTimeout: cfg.Engine.BreakerOpenTimeout,
	}, auth.NewProvider(broker), st, dispatcher)
	engine.SetBalanceNotifier(dispatcher)

	checker := integrity.FromConfig(cfg.Integrity, dispatcher)
	if assessment := checker.Assess(ctx); assessment.Secure {
		logging.Info().Msg("Device integrity assessment passed")
	}

	ingestSvc := ingest.NewService(engine, cfg.Engine.IngestBuffer)
	defer func() {
		if err := ingestSvc.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing ingest pub/sub")
		}
	}()

	handler := api.NewHandler(api.Deps{
		Engine:         engine,
		Accounts:       accounts,
		Challenges:     broker,
		Store:          st,
		Ingest:         ingestSvc,
		Integrity:      checker,
		Hub:            hub,
		AllowedOrigins: cfg.Security.CORSOrigins,
	})
	server := &http.Server{
		Addr: net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler: api.NewRouter(handler, auth.NewMiddleware(tokens), api.RouterConfig{
			CORSOrigins:       cfg.Security.CORSOrigins,
			RateLimitRequests: cfg.Security.RateLimitReqs,
			RateLimitWindow:   cfg.Security.RateLimitWindow,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddCoreService(supervisor.NewNamedService("location-ingest", ingestSvc))
	tree.AddDeliveryService(supervisor.NewNamedService("websocket-hub", hub))
	tree.AddDeliveryService(supervisor.NewNamedService("alert-dispatcher", dispatcher))
	tree.AddAPIService(supervisor.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	logging.Info().Str("addr", server.Addr).Strs("alert_channels", dispatcher.Channels()).Msg("Supervisor tree starting")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}
	logging.Info().Msg("FinTrack Guard stopped")
	return nil
}

// newDispatcher builds the alert fan-out. Log, store and websocket are
// always on; webhook and redis follow configuration.
func newDispatcher(cfg *config.Config, st store.Store, hub *websocket.Hub, rdb *redis.Client) (*notify.Dispatcher, error) {
	d := notify.NewDispatcher(cfg.Notify.QueueSize,
		notify.NewLogChannel(),
		notify.NewStoreChannel(st),
		notify.NewHubChannel(hub),
	)
	if cfg.Notify.WebhookURL != "" {
		webhook, err := notify.NewWebhookChannel(cfg.Notify.WebhookURL, cfg.Notify.WebhookRatePerMinute)
		if err != nil {
			return nil, fmt.Errorf("webhook channel: %w", err)
		}
		d.AddChannel(webhook)
	}
	if rdb != nil && cfg.Notify.RedisChannel != "" {
		d.AddChannel(notify.NewRedisChannel(rdb, cfg.Notify.RedisChannel))
	}
	return d, nil
}
