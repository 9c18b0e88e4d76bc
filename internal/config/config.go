// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
// Package config loads FinTrack Guard settings with koanf.
//
// Precedence, lowest to highest: struct defaults, an optional YAML file,
// an optional .env file, then process environment variables. Detection
// thresholds are compile-time constants in package detection and are not
// configurable here.
package config

import "time"

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Store     StoreConfig     `koanf:"store"`
	Engine    EngineConfig    `koanf:"engine"`
	Notify    NotifyConfig    `koanf:"notify"`
	Security  SecurityConfig  `koanf:"security"`
	Integrity IntegrityConfig `koanf:"integrity"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// StoreConfig selects the durable store backend.
type StoreConfig struct {
	// Driver is memory, badger or duckdb.
	Driver string `koanf:"driver"`

	// Path is the badger directory or duckdb file. Empty means in-memory.
	Path string `koanf:"path"`

	// RedisAddr enables the redis recent-window cache when set.
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	WindowTTL     time.Duration `koanf:"window_ttl"`
}

// EngineConfig bounds the suspension points of an evaluation.
type EngineConfig struct {
	WindowFetchTimeout time.Duration `koanf:"window_fetch_timeout"`
	ChallengeTimeout   time.Duration `koanf:"challenge_timeout"`
	LockTimeout        time.Duration `koanf:"lock_timeout"`

	// Circuit breaker around the recent-window fetch.
	BreakerMaxFailures uint32        `koanf:"breaker_max_failures"`
	BreakerOpenTimeout time.Duration `koanf:"breaker_open_timeout"`

	// IngestBuffer is how many asynchronous location batches may be queued.
	IngestBuffer int64 `koanf:"ingest_buffer"`
}

type NotifyConfig struct {
	QueueSize            int    `koanf:"queue_size"`
	WebhookURL           string `koanf:"webhook_url"`
	WebhookRatePerMinute int    `koanf:"webhook_rate_per_minute"`
	RedisChannel         string `koanf:"redis_channel"`
}

type SecurityConfig struct {
	JWTSecret       string        `koanf:"jwt_secret"`
	TokenTTL        time.Duration `koanf:"token_ttl"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	CORSOrigins     []string      `koanf:"cors_origins"`

	// ChallengeMethod is biometric or password.
	ChallengeMethod string `koanf:"challenge_method"`
	BcryptCost      int    `koanf:"bcrypt_cost"`

	// Failed logins per email before a lockout.
	LockoutAttempts int           `koanf:"lockout_attempts"`
	LockoutDuration time.Duration `koanf:"lockout_duration"`
}

// IntegrityConfig describes the host platform for the device integrity check.
type IntegrityConfig struct {
	// Root is the filesystem the denylist is checked under, e.g. a mounted
	// device image.
	Root               string   `koanf:"root"`
	BiometricCapable   bool     `koanf:"biometric_capable"`
	CompromisePaths    []string `koanf:"compromise_paths"`
	AttestationEnabled bool     `koanf:"attestation_enabled"`
	AttestationFile    string   `koanf:"attestation_file"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8750,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    90 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Driver:    "badger",
			Path:      "/data/fintrack",
			WindowTTL: 10 * time.Minute,
		},
		Engine: EngineConfig{
			WindowFetchTimeout: 2 * time.Second,
			ChallengeTimeout:   60 * time.Second,
			LockTimeout:        75 * time.Second,
			BreakerMaxFailures: 5,
			BreakerOpenTimeout: 30 * time.Second,
			IngestBuffer:       256,
		},
		Notify: NotifyConfig{
			QueueSize:            1024,
			WebhookRatePerMinute: 60,
			RedisChannel:         "fintrack.alerts",
		},
		Security: SecurityConfig{
			TokenTTL:        24 * time.Hour,
			RateLimitReqs:   120,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
			ChallengeMethod: "biometric",
			BcryptCost:      12,
			LockoutAttempts: 5,
			LockoutDuration: 15 * time.Minute,
		},
		Integrity: IntegrityConfig{
			Root:             "/",
			BiometricCapable: true,
		},
	}
}
