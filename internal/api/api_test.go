// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/fintrack-guard/internal/auth"
	"github.com/tomtom215/fintrack-guard/internal/integrity"
	"github.com/tomtom215/fintrack-guard/internal/models"
	"github.com/tomtom215/fintrack-guard/internal/security"
	"github.com/tomtom215/fintrack-guard/internal/store"
	"github.com/tomtom215/fintrack-guard/internal/websocket"
)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []*models.Alert
}

func (n *recordingNotifier) Alert(a *models.Alert) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, a)
}

func (n *recordingNotifier) kinds() []models.AlertKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.AlertKind, 0, len(n.alerts))
	for _, a := range n.alerts {
		out = append(out, a.Kind)
	}
	return out
}

type fakePublisher struct {
	mu      sync.Mutex
	batches map[string][][]models.GeoSample
}

func (p *fakePublisher) PublishLocations(_ context.Context, accountID string, samples []models.GeoSample) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.batches == nil {
		p.batches = map[string][][]models.GeoSample{}
	}
	p.batches[accountID] = append(p.batches[accountID], samples)
	return nil
}

type fakeAssessor struct{ result integrity.Assessment }

func (f fakeAssessor) Assess(context.Context) integrity.Assessment { return f.result }

type testAPI struct {
	router    http.Handler
	store     *store.MemoryStore
	notifier  *recordingNotifier
	publisher *fakePublisher
	hub       *websocket.Hub
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	st := store.NewMemoryStore()
	tokens, err := auth.NewTokenManager(strings.Repeat("s", 32), time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	accounts := auth.NewService(st, tokens, auth.NewLockout(3, time.Minute), bcrypt.MinCost)
	notifier := &recordingNotifier{}
	broker := auth.NewChallengeBroker(auth.MethodBiometric, 5*time.Second, accounts, notifier)
	engine := security.NewEngine(security.Config{ChallengeTimeout: 5 * time.Second, LockTimeout: 10 * time.Second},
		auth.NewProvider(broker), st, notifier)

	hub := websocket.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Serve(ctx) }()
	t.Cleanup(cancel)

	publisher := &fakePublisher{}
	h := NewHandler(Deps{
		Engine:     engine,
		Accounts:   accounts,
		Challenges: broker,
		Store:      st,
		Ingest:     publisher,
		Integrity: fakeAssessor{result: integrity.Assessment{
			Secure: false, Reasons: []string{"biometric capability unavailable"},
		}},
		Hub: hub,
	})
	return &testAPI{
		router:    NewRouter(h, auth.NewMiddleware(tokens), RouterConfig{RateLimitRequests: 10000, AuthRateLimit: 1000}),
		store:     st,
		notifier:  notifier,
		publisher: publisher,
		hub:       hub,
	}
}

func (a *testAPI) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, *models.APIResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var resp models.APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("%s %s: decode response %q: %v", method, path, rec.Body.String(), err)
	}
	return rec, &resp
}

// register creates an account and returns its token and id.
func (a *testAPI) register(t *testing.T, email string) (string, string) {
	t.Helper()
	rec, resp := a.do(t, http.MethodPost, "/api/v1/auth/register", "", models.RegisterRequest{
		Name: "Ada Lovelace", Email: email, Password: "correct horse battery",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", rec.Code, rec.Body.String())
	}
	var data struct {
		Account models.Account       `json:"account"`
		Token   models.TokenResponse `json:"token"`
	}
	remarshal(t, resp.Data, &data)
	return data.Token.Token, data.Account.ID
}

func remarshal(t *testing.T, in, out interface{}) {
	t.Helper()
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
}

func errorCode(resp *models.APIResponse) string {
	if resp.Error == nil {
		return ""
	}
	return resp.Error.Code
}
