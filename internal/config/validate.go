// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package config

import (
	"errors"
	"fmt"
	"strings"
)

const minJWTSecretLength = 32

// Validate checks the settings that would otherwise fail at runtime.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	switch strings.ToLower(c.Store.Driver) {
	case "memory", "badger", "duckdb":
	default:
		errs = append(errs, fmt.Errorf("store.driver %q must be memory, badger or duckdb", c.Store.Driver))
	}

	if c.Engine.WindowFetchTimeout <= 0 {
		errs = append(errs, errors.New("engine.window_fetch_timeout must be positive"))
	}
	if c.Engine.ChallengeTimeout <= 0 {
		errs = append(errs, errors.New("engine.challenge_timeout must be positive"))
	}
	if c.Engine.LockTimeout < c.Engine.ChallengeTimeout {
		errs = append(errs, errors.New("engine.lock_timeout must not be shorter than engine.challenge_timeout"))
	}
	if c.Engine.BreakerMaxFailures == 0 {
		errs = append(errs, errors.New("engine.breaker_max_failures must be at least 1"))
	}

	if c.Notify.QueueSize <= 0 {
		errs = append(errs, errors.New("notify.queue_size must be positive"))
	}

	if len(c.Security.JWTSecret) < minJWTSecretLength {
		errs = append(errs, fmt.Errorf("security.jwt_secret must be at least %d characters", minJWTSecretLength))
	}
	if c.Security.TokenTTL <= 0 {
		errs = append(errs, errors.New("security.token_ttl must be positive"))
	}

	switch c.Security.ChallengeMethod {
	case "biometric", "password":
	default:
		errs = append(errs, fmt.Errorf("security.challenge_method %q must be biometric or password", c.Security.ChallengeMethod))
	}
	if c.Security.BcryptCost < 4 || c.Security.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("security.bcrypt_cost %d must be between 4 and 31", c.Security.BcryptCost))
	}

	if c.Integrity.AttestationEnabled && c.Integrity.AttestationFile == "" {
		errs = append(errs, errors.New("integrity.attestation_file is required when attestation is enabled"))
	}

	return errors.Join(errs...)
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
