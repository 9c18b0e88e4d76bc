// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/fintrack-guard/config.yaml",
}

// ConfigPathEnvVar overrides the config file search.
const ConfigPathEnvVar = "FINTRACK_CONFIG_PATH"

// DotEnvPath is loaded, when present, before environment variables are read.
// Variables already set in the process environment take precedence.
var DotEnvPath = ".env"

// sliceConfigPaths accept comma-separated values from the environment.
var sliceConfigPaths = []string{
	"security.cors_origins",
	"integrity.compromise_paths",
}

// envMappings maps lower-cased environment names to koanf paths. Unmapped
// variables are ignored.
var envMappings = map[string]string{
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"store_driver":   "store.driver",
	"store_path":     "store.path",
	"redis_addr":     "store.redis_addr",
	"redis_password": "store.redis_password",
	"redis_db":       "store.redis_db",
	"window_ttl":     "store.window_ttl",

	"window_fetch_timeout": "engine.window_fetch_timeout",
	"challenge_timeout":    "engine.challenge_timeout",
	"lock_timeout":         "engine.lock_timeout",
	"breaker_max_failures": "engine.breaker_max_failures",
	"breaker_open_timeout": "engine.breaker_open_timeout",
	"ingest_buffer":        "engine.ingest_buffer",

	"alert_queue_size":        "notify.queue_size",
	"webhook_url":             "notify.webhook_url",
	"webhook_rate_per_minute": "notify.webhook_rate_per_minute",
	"alert_redis_channel":     "notify.redis_channel",

	"jwt_secret":        "security.jwt_secret",
	"token_ttl":         "security.token_ttl",
	"rate_limit_reqs":   "security.rate_limit_reqs",
	"rate_limit_window": "security.rate_limit_window",
	"cors_origins":      "security.cors_origins",
	"challenge_method":  "security.challenge_method",
	"bcrypt_cost":       "security.bcrypt_cost",
	"lockout_attempts":  "security.lockout_attempts",
	"lockout_duration":  "security.lockout_duration",

	"integrity_root":      "integrity.root",
	"biometric_capable":   "integrity.biometric_capable",
	"compromise_paths":    "integrity.compromise_paths",
	"attestation_enabled": "integrity.attestation_enabled",
	"attestation_file":    "integrity.attestation_file",
}

// Load reads the configuration for the server and simulator.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// LoadWithKoanf builds the configuration from every layer and validates it.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// godotenv.Load never overrides variables that are already set.
	if err := godotenv.Load(DotEnvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load %s: %w", DotEnvPath, err)
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		raw, ok := k.Get(path).(string)
		if !ok {
			continue
		}
		parts := strings.Split(raw, ",")
		values := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				values = append(values, p)
			}
		}
		if err := k.Set(path, values); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envTransformFunc maps HTTP_PORT to server.port and so on. Returning an
// empty key makes koanf skip the variable.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
