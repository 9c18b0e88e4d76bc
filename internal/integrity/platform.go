// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package integrity

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fintrack-guard/internal/config"
	"github.com/tomtom215/fintrack-guard/internal/security"
)

// DefaultCompromisePaths lists jailbreak (iOS) and root (Android) artifacts.
var DefaultCompromisePaths = []string{
	"/Applications/Cydia.app",
	"/Library/MobileSubstrate/MobileSubstrate.dylib",
	"/bin/bash",
	"/usr/sbin/sshd",
	"/etc/apt",

	"/system/app/Superuser.apk",
	"/system/xbin/su",
	"/system/bin/su",
	"/sbin/su",
	"/data/local/xbin/su",
	"/data/local/bin/su",
}

// ConfigPlatform answers Platform from configuration.
type ConfigPlatform struct {
	Biometric bool
	Paths     []string
}

func (p ConfigPlatform) HasBiometricCapability() bool { return p.Biometric }

// KnownCompromisePaths returns Paths, or DefaultCompromisePaths when empty.
func (p ConfigPlatform) KnownCompromisePaths() []string {
	if len(p.Paths) == 0 {
		return DefaultCompromisePaths
	}
	return p.Paths
}

// FileAttester reads an attestation verdict written by a platform agent:
//
//	{"passed": true, "detail": "basic integrity"}
type FileAttester struct {
	Path string
}

type attestationFile struct {
	Passed bool   `json:"passed"`
	Detail string `json:"detail"`
}

func (a FileAttester) Attest(ctx context.Context) (bool, string, error) {
	if err := ctx.Err(); err != nil {
		return false, "", err
	}
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return false, "", fmt.Errorf("read attestation: %w", err)
	}
	var v attestationFile
	if err := json.Unmarshal(data, &v); err != nil {
		return false, "", fmt.Errorf("decode attestation %s: %w", a.Path, err)
	}
	return v.Passed, v.Detail, nil
}

// FromConfig builds a Checker for the configured platform.
func FromConfig(cfg config.IntegrityConfig, notifier security.Notifier) *Checker {
	root := cfg.Root
	if root == "" {
		root = "/"
	}
	opts := []Option{WithNotifier(notifier)}
	if cfg.AttestationEnabled {
		opts = append(opts, WithAttester(FileAttester{Path: cfg.AttestationFile}))
	}
	return NewChecker(ConfigPlatform{
		Biometric: cfg.BiometricCapable,
		Paths:     cfg.CompromisePaths,
	}, os.DirFS(root), opts...)
}
