// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package auth

import (
	"sync"
	"time"

	"github.com/tomtom215/fintrack-guard/internal/logging"
)

// maxLockoutDuration caps exponential backoff.
const maxLockoutDuration = 24 * time.Hour

type lockoutEntry struct {
	failedAttempts int
	lockoutCount   int
	lockedUntil    time.Time
	lastAttempt    time.Time
}

// Lockout locks a login subject (the normalized email) after maxAttempts
// consecutive failures. Each further lockout doubles the duration.
type Lockout struct {
	mu          sync.Mutex
	entries     map[string]*lockoutEntry
	maxAttempts int
	duration    time.Duration
	now         func() time.Time
}

// NewLockout returns a lockout tracker. maxAttempts <= 0 disables it.
func NewLockout(maxAttempts int, duration time.Duration) *Lockout {
	return &Lockout{
		entries:     make(map[string]*lockoutEntry),
		maxAttempts: maxAttempts,
		duration:    duration,
		now:         time.Now,
	}
}

// Locked reports whether subject is locked and for how much longer.
func (l *Lockout) Locked(subject string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[subject]
	if !ok {
		return false, 0
	}
	remaining := e.lockedUntil.Sub(l.now())
	return remaining > 0, max(remaining, 0)
}

// Failure records a failed attempt and reports whether it triggered a lockout.
func (l *Lockout) Failure(subject string) bool {
	if l.maxAttempts <= 0 {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.entries[subject]
	if !ok {
		e = &lockoutEntry{}
		l.entries[subject] = e
	}
	e.failedAttempts++
	e.lastAttempt = now
	if e.failedAttempts < l.maxAttempts {
		return false
	}

	d := lockoutDuration(l.duration, e.lockoutCount)
	e.lockedUntil = now.Add(d)
	e.lockoutCount++
	e.failedAttempts = 0
	logging.Warn().
		Str("subject", subject).
		Int("lockout_count", e.lockoutCount).
		Dur("duration", d).
		Msg("Login locked out after repeated failures")
	return true
}

// Success clears the failure count but keeps the lockout history.
func (l *Lockout) Success(subject string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[subject]; ok {
		e.failedAttempts = 0
	}
}

func lockoutDuration(base time.Duration, lockoutCount int) time.Duration {
	if lockoutCount > 16 {
		return maxLockoutDuration
	}
	d := base * time.Duration(1<<lockoutCount)
	if d > maxLockoutDuration {
		return maxLockoutDuration
	}
	return d
}
