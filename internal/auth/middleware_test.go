// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMiddleware_Authenticate(t *testing.T) {
	t.Parallel()
	tokens, _ := NewTokenManager(testSecret, time.Hour)
	valid, _, _ := tokens.Issue("acct-9")

	var seen string
	h := NewMiddleware(tokens).Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ContextIdentity{}.CurrentAccountID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name       string
		setup      func(r *http.Request)
		wantStatus int
		wantID     string
	}{
		{name: "bearer", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+valid) }, wantStatus: http.StatusNoContent, wantID: "acct-9"},
		{name: "lowercase scheme", setup: func(r *http.Request) { r.Header.Set("Authorization", "bearer "+valid) }, wantStatus: http.StatusNoContent, wantID: "acct-9"},
		{name: "missing", setup: func(*http.Request) {}, wantStatus: http.StatusUnauthorized},
		{name: "basic scheme", setup: func(r *http.Request) { r.Header.Set("Authorization", "Basic abc") }, wantStatus: http.StatusUnauthorized},
		{name: "bad token", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, wantStatus: http.StatusUnauthorized},
		{
			name: "websocket query token",
			setup: func(r *http.Request) {
				r.Header.Set("Upgrade", "websocket")
				q := r.URL.Query()
				q.Set("access_token", valid)
				r.URL.RawQuery = q.Encode()
			},
			wantStatus: http.StatusNoContent,
			wantID:     "acct-9",
		},
		{
			name: "query token without upgrade",
			setup: func(r *http.Request) {
				r.URL.RawQuery = "access_token=" + valid
			},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		seen = ""
		req := httptest.NewRequest(http.MethodGet, "/api/v1/account", nil)
		tt.setup(req)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != tt.wantStatus {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.wantStatus)
		}
		if seen != tt.wantID {
			t.Errorf("%s: account = %q, want %q", tt.name, seen, tt.wantID)
		}
		if tt.wantStatus == http.StatusUnauthorized && rec.Header().Get("WWW-Authenticate") == "" {
			t.Errorf("%s: missing WWW-Authenticate", tt.name)
		}
	}
}
