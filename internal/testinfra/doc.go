// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
// Package testinfra holds shared test fixtures.
//
// The container helpers (build tag "integration") start real dependencies
// with testcontainers-go:
//
//	func TestWindowCache(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    rc, err := testinfra.NewRedisContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, rc)
//	    rdb := redis.NewClient(&redis.Options{Addr: rc.Addr})
//	    // ...
//	}
//
// Run them with:
//
//	go test -tags integration ./...
//
// Tests skip when no docker daemon is reachable. The first run pulls images.
//
// MockWebhookServer is available to ordinary unit tests.
package testinfra
