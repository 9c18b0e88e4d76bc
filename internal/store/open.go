// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/fintrack-guard/internal/config"
	"github.com/tomtom215/fintrack-guard/internal/logging"
)

// Open builds the configured backend. When RedisAddr is set the backend is
// wrapped in a RedisWindowCache and the client is returned so other
// components can share it; otherwise the client is nil. The caller closes
// both.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, *redis.Client, error) {
	var (
		s   Store
		err error
	)
	switch strings.ToLower(cfg.Driver) {
	case "memory":
		s = NewMemoryStore()
	case "badger":
		s, err = NewBadgerStore(cfg.Path)
	case "duckdb":
		s, err = NewDuckDBStore(ctx, cfg.Path)
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, nil, err
	}

	if cfg.RedisAddr == "" {
		return s, nil, nil
	}
	rdb, err := NewRedisClient(ctx, RedisOptions{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		_ = s.Close()
		return nil, nil, err
	}
	logging.Info().Str("addr", cfg.RedisAddr).Dur("ttl", cfg.WindowTTL).Msg("Redis window cache enabled")
	return NewRedisWindowCache(s, rdb, cfg.WindowTTL), rdb, nil
}
