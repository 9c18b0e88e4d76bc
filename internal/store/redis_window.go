// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"github.com/tomtom215/fintrack-guard/internal/logging"
	"github.com/tomtom215/fintrack-guard/internal/metrics"
	"github.com/tomtom215/fintrack-guard/internal/models"
)

const backendRedis = "redis"

// RedisOptions configures NewRedisClient.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// NewRedisClient connects and pings redis.
func NewRedisClient(ctx context.Context, opts RedisOptions) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	return rdb, nil
}

// RedisWindowCache serves RecentTransactions from a per-account sorted set
// scored by transaction time (unix microseconds). A companion "from" key
// records the earliest instant the set is complete from; reads that start
// before it fall through to the wrapped store and repopulate the set.
//
// Redis failures never fail a call: reads fall back to the wrapped store and
// a failed write invalidates the account's cache.
type RedisWindowCache struct {
	Store
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisWindowCache wraps inner. Entries expire ttl after the last write.
func NewRedisWindowCache(inner Store, rdb *redis.Client, ttl time.Duration) *RedisWindowCache {
	return &RedisWindowCache{Store: inner, rdb: rdb, ttl: ttl}
}

func windowKey(accountID string) string     { return "fintrack:window:" + accountID }
func windowFromKey(accountID string) string { return "fintrack:window:" + accountID + ":from" }

func score(t time.Time) float64 { return float64(t.UnixMicro()) }

func (c *RedisWindowCache) RecentTransactions(ctx context.Context, accountID string, since *time.Time) ([]models.TransactionEvent, error) {
	if since == nil {
		return c.Store.RecentTransactions(ctx, accountID, nil)
	}

	txs, hit, err := c.read(ctx, accountID, *since)
	switch {
	case err != nil:
		metrics.WindowCacheResults.WithLabelValues("error").Inc()
		logging.Ctx(ctx).Warn().Err(err).Str("account_id", accountID).Msg("Window cache read failed, using store")
	case hit:
		metrics.WindowCacheResults.WithLabelValues("hit").Inc()
		return txs, nil
	default:
		metrics.WindowCacheResults.WithLabelValues("miss").Inc()
	}

	txs, err = c.Store.RecentTransactions(ctx, accountID, since)
	if err != nil {
		return nil, err
	}
	if err := c.populate(ctx, accountID, *since, txs); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("account_id", accountID).Msg("Window cache populate failed")
	}
	return txs, nil
}

func (c *RedisWindowCache) read(ctx context.Context, accountID string, since time.Time) (_ []models.TransactionEvent, hit bool, err error) {
	defer observe(backendRedis, "window_read", time.Now(), &err)

	from, err := c.rdb.Get(ctx, windowFromKey(accountID)).Int64()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if from > since.UnixMicro() {
		return nil, false, nil
	}

	raw, err := c.rdb.ZRangeByScore(ctx, windowKey(accountID), &redis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMicro(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, false, err
	}
	txs := make([]models.TransactionEvent, 0, len(raw))
	for _, r := range raw {
		var tx models.TransactionEvent
		if err := json.Unmarshal([]byte(r), &tx); err != nil {
			return nil, false, fmt.Errorf("decode cached transaction: %w", err)
		}
		if tx.Timestamp.Before(since) {
			continue
		}
		txs = append(txs, tx)
	}
	return txs, true, nil
}

func (c *RedisWindowCache) populate(ctx context.Context, accountID string, since time.Time, txs []models.TransactionEvent) (err error) {
	defer observe(backendRedis, "window_populate", time.Now(), &err)

	members := make([]redis.Z, 0, len(txs))
	for _, tx := range txs {
		data, err := json.Marshal(tx)
		if err != nil {
			return err
		}
		members = append(members, redis.Z{Score: score(tx.Timestamp), Member: data})
	}
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		key := windowKey(accountID)
		pipe.Del(ctx, key)
		if len(members) > 0 {
			pipe.ZAdd(ctx, key, members...)
			pipe.Expire(ctx, key, c.ttl)
		}
		pipe.Set(ctx, windowFromKey(accountID), since.UnixMicro(), c.ttl)
		return nil
	})
	return err
}

// PersistTransaction writes through to the wrapped store, then appends to
// the cached window if one exists.
func (c *RedisWindowCache) PersistTransaction(ctx context.Context, event models.TransactionEvent) error {
	if err := c.Store.PersistTransaction(ctx, event); err != nil {
		return err
	}
	if err := c.append(ctx, event); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("account_id", event.AccountID).Msg("Window cache append failed, invalidating")
		c.Invalidate(ctx, event.AccountID)
	}
	return nil
}

func (c *RedisWindowCache) append(ctx context.Context, event models.TransactionEvent) (err error) {
	defer observe(backendRedis, "window_append", time.Now(), &err)

	fromKey := windowFromKey(event.AccountID)
	exists, err := c.rdb.Exists(ctx, fromKey).Result()
	if err != nil || exists == 0 {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		key := windowKey(event.AccountID)
		pipe.ZAdd(ctx, key, redis.Z{Score: score(event.Timestamp), Member: data})
		pipe.Expire(ctx, key, c.ttl)
		pipe.Expire(ctx, fromKey, c.ttl)
		return nil
	})
	return err
}

// Invalidate drops the cached window for accountID.
func (c *RedisWindowCache) Invalidate(ctx context.Context, accountID string) {
	if err := c.rdb.Del(ctx, windowKey(accountID), windowFromKey(accountID)).Err(); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("account_id", accountID).Msg("Window cache invalidation failed")
	}
}

// Ping checks both redis and the wrapped store.
func (c *RedisWindowCache) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return c.Store.Ping(ctx)
}

// Close closes the wrapped store. The redis client is owned by the caller.
func (c *RedisWindowCache) Close() error {
	return c.Store.Close()
}
