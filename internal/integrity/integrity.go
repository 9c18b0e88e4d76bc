// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
// Package integrity implements the one-shot device integrity assessment.
//
// The assessment is advisory. An insecure result raises a critical alert
// and is returned to the caller, who decides the consequences; nothing here
// stops the process or the decision engine.
package integrity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/fintrack-guard/internal/logging"
	"github.com/tomtom215/fintrack-guard/internal/metrics"
	"github.com/tomtom215/fintrack-guard/internal/models"
	"github.com/tomtom215/fintrack-guard/internal/security"
)

// Platform reports static facts about the device.
type Platform interface {
	HasBiometricCapability() bool
	// KnownCompromisePaths is the denylist of paths whose presence
	// indicates a jailbroken or rooted OS.
	KnownCompromisePaths() []string
}

// Attester is an optional platform attestation hook.
type Attester interface {
	Attest(ctx context.Context) (passed bool, detail string, err error)
}

// Assessment is the result of one Assess call.
type Assessment struct {
	Secure    bool      `json:"secure"`
	Reasons   []string  `json:"reasons"`
	CheckedAt time.Time `json:"checked_at"`
}

// Err returns nil for a secure assessment and an error wrapping
// security.ErrIntegrityCompromised otherwise.
func (a Assessment) Err() error {
	if a.Secure {
		return nil
	}
	return fmt.Errorf("%w: %s", security.ErrIntegrityCompromised, strings.Join(a.Reasons, "; "))
}

// Checker runs the assessment against a platform and a filesystem.
type Checker struct {
	platform Platform
	fsys     fs.FS
	attester Attester
	notifier security.Notifier
	clock    func() time.Time
}

// Option configures a Checker.
type Option func(*Checker)

// WithAttester enables the attestation hook.
func WithAttester(a Attester) Option {
	return func(c *Checker) { c.attester = a }
}

// WithNotifier sends a critical alert for every insecure assessment.
func WithNotifier(n security.Notifier) Option {
	return func(c *Checker) { c.notifier = n }
}

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option {
	return func(c *Checker) { c.clock = clock }
}

// NewChecker checks denylist paths inside fsys, so "/etc/apt" is looked up
// as "etc/apt".
func NewChecker(platform Platform, fsys fs.FS, opts ...Option) *Checker {
	c := &Checker{platform: platform, fsys: fsys, clock: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Assess runs every check. It always returns an assessment.
func (c *Checker) Assess(ctx context.Context) Assessment {
	result := Assessment{Secure: true, Reasons: []string{}, CheckedAt: c.clock()}
	fail := func(reason string) {
		result.Secure = false
		result.Reasons = append(result.Reasons, reason)
	}

	if !c.platform.HasBiometricCapability() {
		fail("biometric authentication unavailable")
	}

	for _, path := range c.platform.KnownCompromisePaths() {
		if c.exists(path) {
			fail("compromised OS indicator present: " + path)
		}
	}

	if c.attester != nil {
		passed, detail, err := c.attester.Attest(ctx)
		switch {
		case err != nil:
			fail("attestation unavailable: " + err.Error())
		case !passed:
			if detail == "" {
				detail = "no detail"
			}
			fail("attestation failed: " + detail)
		}
	}

	if result.Secure {
		metrics.IntegrityAssessments.WithLabelValues("secure").Inc()
		logging.Ctx(ctx).Info().Msg("Device integrity check passed")
		return result
	}

	metrics.IntegrityAssessments.WithLabelValues("compromised").Inc()
	logging.Ctx(ctx).Warn().Strs("reasons", result.Reasons).Msg("Device integrity check failed")
	c.alert(ctx, result)
	return result
}

func (c *Checker) exists(path string) bool {
	name := strings.TrimPrefix(path, "/")
	if !fs.ValidPath(name) {
		return false
	}
	_, err := fs.Stat(c.fsys, name)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		// Permission denied still means something is there.
		return errors.Is(err, fs.ErrPermission)
	}
	return err == nil
}

func (c *Checker) alert(ctx context.Context, result Assessment) {
	if c.notifier == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logging.Ctx(ctx).Error().Interface("panic", r).Msg("notifier panicked")
		}
	}()
	c.notifier.Alert(&models.Alert{
		ID:        uuid.NewString(),
		AccountID: logging.AccountIDFromContext(ctx),
		Kind:      models.AlertKindIntegrity,
		Severity:  models.SeverityCritical,
		Title:     "Device integrity compromised",
		Message:   "device security check failed: " + strings.Join(result.Reasons, "; "),
		Metadata:  map[string]any{"reasons": result.Reasons},
		CreatedAt: result.CheckedAt,
	})
}
