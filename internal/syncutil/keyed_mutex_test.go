// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package syncutil

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestKeyedMutex_MutualExclusion(t *testing.T) {
	t.Parallel()

	m := NewKeyedMutex()
	var counter int64
	var wg sync.WaitGroup
	const n = 100

	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			unlock, err := m.LockContext(context.Background(), "acct")
			if err != nil {
				t.Errorf("LockContext() error = %v", err)
				return
			}
			defer unlock()
			// Non-atomic read-modify-write exposes broken exclusion.
			v := atomic.LoadInt64(&counter)
			atomic.StoreInt64(&counter, v+1)
		}()
	}
	wg.Wait()

	if got := atomic.LoadInt64(&counter); got != n {
		t.Fatalf("counter = %d, want %d", got, n)
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d after all unlocks, want 0", m.Len())
	}
}

func TestKeyedMutex_ContextCancelled(t *testing.T) {
	t.Parallel()

	m := NewKeyedMutex()
	unlock, err := m.LockContext(context.Background(), "acct")
	if err != nil {
		t.Fatalf("LockContext() error = %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := m.LockContext(ctx, "acct"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("LockContext() error = %v, want DeadlineExceeded", err)
	}
}

func TestKeyedMutex_DifferentKeysDoNotContend(t *testing.T) {
	t.Parallel()

	m := NewKeyedMutex()
	unlockA, err := m.LockContext(context.Background(), "a")
	if err != nil {
		t.Fatalf("LockContext(a) error = %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	unlockB, err := m.LockContext(ctx, "b")
	if err != nil {
		t.Fatalf("LockContext(b) blocked behind a: %v", err)
	}
	unlockB()
}

func TestKeyedMutex_UnlockIsIdempotent(t *testing.T) {
	t.Parallel()

	m := NewKeyedMutex()
	unlock, _ := m.LockContext(context.Background(), "k")
	unlock()
	unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	again, err := m.LockContext(ctx, "k")
	if err != nil {
		t.Fatalf("LockContext() after double unlock error = %v", err)
	}
	again()
}

func TestKeyedMutex_Waiting(t *testing.T) {
	t.Parallel()

	m := NewKeyedMutex()
	if got := m.Waiting("a"); got != 0 {
		t.Fatalf("Waiting on unused key = %d, want 0", got)
	}

	unlock, err := m.LockContext(context.Background(), "a")
	if err != nil {
		t.Fatal(err)
	}
	if got := m.Waiting("a"); got != 1 {
		t.Errorf("Waiting while held = %d, want 1", got)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := m.LockContext(ctx, "a"); err == nil {
		t.Fatal("second LockContext succeeded while held")
	}
	if got := m.Waiting("a"); got != 1 {
		t.Errorf("Waiting after cancelled waiter = %d, want 1", got)
	}

	unlock()
	if got := m.Waiting("a"); got != 0 {
		t.Errorf("Waiting after unlock = %d, want 0", got)
	}
}
