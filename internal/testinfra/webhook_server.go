// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package testinfra

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fintrack-guard/internal/models"
)

// WebhookCapture is one request received by MockWebhookServer.
type WebhookCapture struct {
	Method  string
	Path    string
	Headers http.Header
	Body    []byte
}

// Alert decodes the captured body as an alert.
func (c WebhookCapture) Alert() (*models.Alert, error) {
	var a models.Alert
	if err := json.Unmarshal(c.Body, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// MockWebhookServer records every request it receives. It is closed by
// t.Cleanup.
type MockWebhookServer struct {
	Server *httptest.Server

	mu       sync.Mutex
	captures []WebhookCapture
	status   int
}

// NewMockWebhookServer starts a server that answers 200 OK.
func NewMockWebhookServer(t *testing.T) *MockWebhookServer {
	t.Helper()

	m := &MockWebhookServer{status: http.StatusOK}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body) //nolint:errcheck
		r.Body.Close()

		m.mu.Lock()
		m.captures = append(m.captures, WebhookCapture{
			Method:  r.Method,
			Path:    r.URL.Path,
			Headers: r.Header.Clone(),
			Body:    body,
		})
		status := m.status
		m.mu.Unlock()

		w.WriteHeader(status)
	}))
	t.Cleanup(m.Server.Close)
	return m
}

// URL returns the server URL.
func (m *MockWebhookServer) URL() string {
	return m.Server.URL
}

// SetStatus changes the status code returned to subsequent requests.
func (m *MockWebhookServer) SetStatus(status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status = status
}

// Captures returns a copy of the requests received so far.
func (m *MockWebhookServer) Captures() []WebhookCapture {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]WebhookCapture, len(m.captures))
	copy(out, m.captures)
	return out
}

// WaitForCaptures polls until at least n requests arrived or timeout passes.
func (m *MockWebhookServer) WaitForCaptures(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(m.Captures()) >= n {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return len(m.Captures()) >= n
}
