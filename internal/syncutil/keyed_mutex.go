// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
// Package syncutil provides locking primitives keyed by string.
package syncutil

import (
	"context"
	"sync"
)

// KeyedMutex is a set of channel-based mutexes, one per key, that support
// context cancellation. Different keys never contend. Entries are created on
// demand and released once no goroutine holds or waits on them.
//
// Waiters on the same key are woken in the order they started waiting.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	ch   chan struct{}
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

// LockContext acquires the mutex for key. On success it returns an unlock
// function that the caller must call exactly once. If ctx ends first it
// returns the context error and no lock is held.
func (m *KeyedMutex) LockContext(ctx context.Context, key string) (func(), error) {
	e := m.acquireEntry(key)

	select {
	case <-e.ch:
		var once sync.Once
		return func() {
			once.Do(func() {
				e.ch <- struct{}{}
				m.releaseEntry(key, e)
			})
		}, nil
	case <-ctx.Done():
		m.releaseEntry(key, e)
		return nil, ctx.Err()
	}
}

// Len returns the number of keys currently held or waited on.
func (m *KeyedMutex) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

// Waiting returns how many goroutines hold or wait on key.
func (m *KeyedMutex) Waiting(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.locks[key]; ok {
		return e.refs
	}
	return 0
}

func (m *KeyedMutex) acquireEntry(key string) *keyedEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.locks[key]
	if !ok {
		e = &keyedEntry{ch: make(chan struct{}, 1)}
		e.ch <- struct{}{} // start unlocked
		m.locks[key] = e
	}
	e.refs++
	return e
}

func (m *KeyedMutex) releaseEntry(key string, e *keyedEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
}
