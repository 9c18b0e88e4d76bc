// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// isolate points every file lookup at an empty temp dir so host files do
// not leak into the test. Not parallel: it uses t.Setenv and globals.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	prevPaths, prevDotEnv := DefaultConfigPaths, DotEnvPath
	DefaultConfigPaths = []string{filepath.Join(dir, "config.yaml")}
	DotEnvPath = filepath.Join(dir, ".env")
	t.Cleanup(func() {
		DefaultConfigPaths, DotEnvPath = prevPaths, prevDotEnv
	})
	t.Setenv(ConfigPathEnvVar, "")
	return dir
}

func TestLoadWithKoanf_DefaultsNeedSecret(t *testing.T) {
	isolate(t)
	t.Setenv("JWT_SECRET", "")

	_, err := LoadWithKoanf()
	if err == nil || !strings.Contains(err.Error(), "jwt_secret") {
		t.Fatalf("LoadWithKoanf() error = %v, want jwt_secret failure", err)
	}
}

func TestLoadWithKoanf_Layers(t *testing.T) {
	dir := isolate(t)

	yamlBody := "server:\n  port: 9000\nstore:\n  driver: duckdb\n  path: \"\"\nengine:\n  challenge_timeout: 30s\n"
	if err := os.WriteFile(DefaultConfigPaths[0], []byte(yamlBody), 0o600); err != nil {
		t.Fatal(err)
	}
	dotenv := "JWT_SECRET=" + testSecret + "\nLOG_LEVEL=debug\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0o600); err != nil {
		t.Fatal(err)
	}
	// Register cleanup for the variables godotenv will set, then unset them
	// so the .env layer is what provides them.
	for _, key := range []string{"JWT_SECRET", "LOG_LEVEL"} {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatal(err)
		}
	}
	t.Setenv("HTTP_PORT", "9100")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("COMPROMISE_PATHS", "/bin/su,/sbin/su")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9100 {
		t.Errorf("Server.Port = %d, want env override 9100", cfg.Server.Port)
	}
	if cfg.Store.Driver != "duckdb" {
		t.Errorf("Store.Driver = %q, want duckdb from file", cfg.Store.Driver)
	}
	if cfg.Engine.ChallengeTimeout != 30*time.Second {
		t.Errorf("ChallengeTimeout = %v, want 30s", cfg.Engine.ChallengeTimeout)
	}
	if cfg.Engine.WindowFetchTimeout != 2*time.Second {
		t.Errorf("WindowFetchTimeout = %v, want default 2s", cfg.Engine.WindowFetchTimeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug from .env", cfg.Logging.Level)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v, want two trimmed origins", cfg.Security.CORSOrigins)
	}
	if len(cfg.Integrity.CompromisePaths) != 2 {
		t.Errorf("CompromisePaths = %v, want 2 entries", cfg.Integrity.CompromisePaths)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad driver", mutate: func(c *Config) { c.Store.Driver = "postgres" }, wantErr: "store.driver"},
		{name: "zero fetch timeout", mutate: func(c *Config) { c.Engine.WindowFetchTimeout = 0 }, wantErr: "window_fetch_timeout"},
		{name: "lock shorter than challenge", mutate: func(c *Config) { c.Engine.LockTimeout = time.Second }, wantErr: "lock_timeout"},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "server.port"},
		{name: "short secret", mutate: func(c *Config) { c.Security.JWTSecret = "short" }, wantErr: "jwt_secret"},
		{name: "unknown challenge method", mutate: func(c *Config) { c.Security.ChallengeMethod = "sms" }, wantErr: "challenge_method"},
		{name: "bcrypt cost too low", mutate: func(c *Config) { c.Security.BcryptCost = 2 }, wantErr: "bcrypt_cost"},
		{name: "attestation without file", mutate: func(c *Config) { c.Integrity.AttestationEnabled = true }, wantErr: "attestation_file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := defaultConfig()
			cfg.Security.JWTSecret = testSecret
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	if got := envTransformFunc("HTTP_PORT"); got != "server.port" {
		t.Errorf("HTTP_PORT -> %q, want server.port", got)
	}
	if got := envTransformFunc("PATH"); got != "" {
		t.Errorf("PATH -> %q, want empty (ignored)", got)
	}
}
