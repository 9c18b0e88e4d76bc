// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/tomtom215/fintrack-guard/internal/logging"
	"github.com/tomtom215/fintrack-guard/internal/models"
	"github.com/tomtom215/fintrack-guard/internal/websocket"
)

var (
	errChannelPanic = errors.New("channel panicked")
	errHubBacklog   = errors.New("websocket backlog full")
)

// LogChannel writes every alert to the structured log.
type LogChannel struct {
	logger zerolog.Logger
}

func NewLogChannel() *LogChannel {
	return &LogChannel{logger: logging.WithComponent("alerts")}
}

func (c *LogChannel) Name() string { return "log" }

func (c *LogChannel) Send(_ context.Context, a *models.Alert) error {
	ev := c.logger.Info()
	if a.Severity == models.SeverityCritical {
		ev = c.logger.Warn()
	}
	ev.Str("alert_id", a.ID).
		Str("account_id", a.AccountID).
		Str("kind", string(a.Kind)).
		Str("severity", string(a.Severity)).
		Str("verdict", a.Verdict).
		Msg(a.Title + ": " + a.Message)
	return nil
}

// AlertSaver is the part of the store that records alerts.
type AlertSaver interface {
	SaveAlert(ctx context.Context, alert *models.Alert) error
}

// StoreChannel persists alerts as the audit trail.
type StoreChannel struct {
	store AlertSaver
}

func NewStoreChannel(s AlertSaver) *StoreChannel { return &StoreChannel{store: s} }

func (c *StoreChannel) Name() string { return "store" }

func (c *StoreChannel) Send(ctx context.Context, a *models.Alert) error {
	return c.store.SaveAlert(ctx, a)
}

// HubChannel pushes alerts to the account's websocket clients.
type HubChannel struct {
	hub *websocket.Hub
}

func NewHubChannel(hub *websocket.Hub) *HubChannel { return &HubChannel{hub: hub} }

func (c *HubChannel) Name() string { return "websocket" }

func (c *HubChannel) Send(_ context.Context, a *models.Alert) error {
	if a.AccountID == "" {
		return nil
	}
	if !c.hub.SendAlert(a) {
		return errHubBacklog
	}
	return nil
}

// RedisChannel publishes alerts as JSON on a redis pub/sub channel.
type RedisChannel struct {
	rdb     *redis.Client
	channel string
}

func NewRedisChannel(rdb *redis.Client, channel string) *RedisChannel {
	return &RedisChannel{rdb: rdb, channel: channel}
}

func (c *RedisChannel) Name() string { return "redis" }

func (c *RedisChannel) Send(ctx context.Context, a *models.Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	return c.rdb.Publish(ctx, c.channel, data).Err()
}
