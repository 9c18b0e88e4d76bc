// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"

	"github.com/tomtom215/fintrack-guard/internal/models"
	"github.com/tomtom215/fintrack-guard/internal/security"
	"github.com/tomtom215/fintrack-guard/internal/websocket"
)

func TestAuthEndpoints(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)

	token, accountID := a.register(t, "ada@example.com")
	if token == "" || accountID == "" {
		t.Fatal("register returned empty token or account id")
	}

	tests := []struct {
		name     string
		path     string
		body     interface{}
		wantCode int
		wantErr  string
	}{
		{
			name:     "duplicate email",
			path:     "/api/v1/auth/register",
			body:     models.RegisterRequest{Name: "Ada", Email: "ADA@example.com", Password: "another password"},
			wantCode: http.StatusConflict,
			wantErr:  "CONFLICT",
		},
		{
			name:     "short password",
			path:     "/api/v1/auth/register",
			body:     models.RegisterRequest{Name: "Bob", Email: "bob@example.com", Password: "short"},
			wantCode: http.StatusBadRequest,
			wantErr:  "VALIDATION_ERROR",
		},
		{
			name:     "wrong password",
			path:     "/api/v1/auth/login",
			body:     models.LoginRequest{Email: "ada@example.com", Password: "wrong password"},
			wantCode: http.StatusUnauthorized,
			wantErr:  "UNAUTHORIZED",
		},
		{
			name:     "valid login",
			path:     "/api/v1/auth/login",
			body:     models.LoginRequest{Email: "ada@example.com", Password: "correct horse battery"},
			wantCode: http.StatusOK,
		},
	}

	for _, tt := range tests {
		rec, resp := a.do(t, http.MethodPost, tt.path, "", tt.body)
		if rec.Code != tt.wantCode {
			t.Errorf("%s: status = %d, want %d (%s)", tt.name, rec.Code, tt.wantCode, rec.Body.String())
		}
		if got := errorCode(resp); got != tt.wantErr {
			t.Errorf("%s: error code = %q, want %q", tt.name, got, tt.wantErr)
		}
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)

	for _, path := range []string{"/api/v1/account", "/api/v1/transactions", "/api/v1/alerts", "/api/v1/challenges"} {
		rec, resp := a.do(t, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusUnauthorized || errorCode(resp) != "UNAUTHORIZED" {
			t.Errorf("%s: status = %d code = %q, want 401 UNAUTHORIZED", path, rec.Code, errorCode(resp))
		}
	}

	rec, _ := a.do(t, http.MethodGet, "/api/v1/account", "not-a-jwt", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("garbage token: status = %d, want 401", rec.Code)
	}
}

func TestLocationEndpoints(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	token, accountID := a.register(t, "loc@example.com")

	now := time.Now().UTC()
	berlin := models.GeoSample{Latitude: 52.52, Longitude: 13.405, HorizontalAccuracy: 5, Timestamp: now.Add(-30 * time.Second)}

	rec, resp := a.do(t, http.MethodPost, "/api/v1/locations", token, berlin)
	if rec.Code != http.StatusConflict || errorCode(resp) != "TRACKING_INACTIVE" {
		t.Fatalf("before start: status = %d code = %q, want 409 TRACKING_INACTIVE", rec.Code, errorCode(resp))
	}

	if rec, _ := a.do(t, http.MethodPost, "/api/v1/tracking/start", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("start tracking: status = %d", rec.Code)
	}

	rec, resp = a.do(t, http.MethodPost, "/api/v1/locations", token, berlin)
	if rec.Code != http.StatusOK {
		t.Fatalf("first sample: status = %d (%s)", rec.Code, rec.Body.String())
	}
	var out security.Outcome
	remarshal(t, resp.Data, &out)
	if out.Action != security.ActionAllowed || !out.Admitted {
		t.Errorf("first sample outcome = %+v, want admitted and allowed", out)
	}

	// Paris 30 seconds later.
	paris := models.GeoSample{Latitude: 48.8566, Longitude: 2.3522, HorizontalAccuracy: 5, Timestamp: now}
	_, resp = a.do(t, http.MethodPost, "/api/v1/locations", token, paris)
	remarshal(t, resp.Data, &out)
	if out.Action != security.ActionBlocked {
		t.Errorf("teleport outcome action = %q, want blocked", out.Action)
	}
	if len(a.notifier.kinds()) == 0 {
		t.Error("teleport raised no alert")
	}

	rec, resp = a.do(t, http.MethodPost, "/api/v1/locations", token,
		models.GeoSample{Latitude: 123, Longitude: 0, Timestamp: now})
	if rec.Code != http.StatusBadRequest || errorCode(resp) != "VALIDATION_ERROR" {
		t.Errorf("invalid latitude: status = %d code = %q", rec.Code, errorCode(resp))
	}

	rec, resp = a.do(t, http.MethodGet, "/api/v1/locations?limit=10", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list locations: status = %d", rec.Code)
	}
	var stored []models.StoredLocation
	remarshal(t, resp.Data, &stored)
	if len(stored) != 2 {
		t.Errorf("stored locations = %d, want 2", len(stored))
	}

	rec, _ = a.do(t, http.MethodPost, "/api/v1/locations/batch", token, models.LocationBatchRequest{
		Samples: []models.GeoSample{berlin, paris},
	})
	if rec.Code != http.StatusAccepted {
		t.Errorf("batch: status = %d, want 202 (%s)", rec.Code, rec.Body.String())
	}
	a.publisher.mu.Lock()
	batches := len(a.publisher.batches[accountID])
	a.publisher.mu.Unlock()
	if batches != 1 {
		t.Errorf("published batches = %d, want 1", batches)
	}

	rec, _ = a.do(t, http.MethodPost, "/api/v1/locations/batch", token, models.LocationBatchRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty batch: status = %d, want 400", rec.Code)
	}

	if rec, _ := a.do(t, http.MethodPost, "/api/v1/auth/logout", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("logout: status = %d", rec.Code)
	}
	rec, _ = a.do(t, http.MethodPost, "/api/v1/locations/batch", token, models.LocationBatchRequest{
		Samples: []models.GeoSample{berlin},
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("batch after logout: status = %d, want 409", rec.Code)
	}
}

func TestTransactionEndpoints(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	token, _ := a.register(t, "tx@example.com")

	salary := models.TransactionRequest{Amount: 2500, Kind: models.KindIncome, Category: models.CategorySalary}
	rec, resp := a.do(t, http.MethodPost, "/api/v1/transactions", token, salary)
	if rec.Code != http.StatusCreated {
		t.Fatalf("salary: status = %d (%s)", rec.Code, rec.Body.String())
	}
	var out security.Outcome
	remarshal(t, resp.Data, &out)
	if !out.Committed || out.Balance == nil || *out.Balance != 2500 {
		t.Errorf("salary outcome = %+v, want committed with balance 2500", out)
	}

	coffee := models.TransactionRequest{Amount: 4.5, Kind: models.KindExpense, Category: models.CategoryFood, Description: "coffee"}
	for i := 0; i < 5; i++ {
		if rec, _ := a.do(t, http.MethodPost, "/api/v1/transactions", token, coffee); rec.Code != http.StatusCreated {
			t.Fatalf("coffee %d: status = %d", i, rec.Code)
		}
	}

	// Six in the window already: the seventh is a burst.
	rec, resp = a.do(t, http.MethodPost, "/api/v1/transactions", token, coffee)
	if rec.Code != http.StatusForbidden || errorCode(resp) != "TRANSACTION_BLOCKED" {
		t.Fatalf("burst: status = %d code = %q, want 403 TRANSACTION_BLOCKED", rec.Code, errorCode(resp))
	}
	if !strings.Contains(resp.Error.Message, "multiple transactions") {
		t.Errorf("burst message = %q", resp.Error.Message)
	}

	rec, resp = a.do(t, http.MethodGet, "/api/v1/account", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("account: status = %d", rec.Code)
	}
	var account models.Account
	remarshal(t, resp.Data, &account)
	if want := 2500 - 5*4.5; account.Balance != want {
		t.Errorf("balance = %v, want %v", account.Balance, want)
	}

	_, resp = a.do(t, http.MethodGet, "/api/v1/transactions?limit=3", token, nil)
	var txs []models.TransactionEvent
	remarshal(t, resp.Data, &txs)
	if len(txs) != 3 {
		t.Errorf("listed transactions = %d, want 3", len(txs))
	}

	rec, _ = a.do(t, http.MethodGet, "/api/v1/transactions?limit=0", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("limit=0: status = %d, want 400", rec.Code)
	}

	rec, resp = a.do(t, http.MethodPost, "/api/v1/transactions", token,
		models.TransactionRequest{Amount: 10, Kind: "refund", Category: models.CategoryOther})
	if rec.Code != http.StatusBadRequest || errorCode(resp) != "VALIDATION_ERROR" {
		t.Errorf("bad kind: status = %d code = %q", rec.Code, errorCode(resp))
	}
}

func TestHighValueTransactionChallenge(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		resolution map[string]interface{}
		wantCode   int
	}{
		{name: "biometric approval", resolution: map[string]interface{}{"approved": true}, wantCode: http.StatusCreated},
		{name: "biometric denial", resolution: map[string]interface{}{"approved": false}, wantCode: http.StatusForbidden},
		{name: "password fallback", resolution: map[string]interface{}{"password": "correct horse battery"}, wantCode: http.StatusCreated},
		{name: "wrong password", resolution: map[string]interface{}{"password": "guess"}, wantCode: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := newTestAPI(t)
			token, _ := a.register(t, "hv@example.com")

			body := `{"amount":15000,"kind":"income","category":"other"}`
			req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", strings.NewReader(body))
			req.Header.Set("Authorization", "Bearer "+token)
			done := make(chan int, 1)
			go func() {
				rec := httptest.NewRecorder()
				a.router.ServeHTTP(rec, req)
				done <- rec.Code
			}()

			challengeID := waitForChallenge(t, a, token)
			rec, resp := a.do(t, http.MethodPost, "/api/v1/challenges/"+challengeID+"/resolve", token, tt.resolution)
			if rec.Code != http.StatusOK {
				t.Fatalf("resolve: status = %d (%s)", rec.Code, rec.Body.String())
			}
			if resp.Status != "success" {
				t.Errorf("resolve status = %q", resp.Status)
			}

			select {
			case code := <-done:
				if code != tt.wantCode {
					t.Errorf("transaction status = %d, want %d", code, tt.wantCode)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("transaction did not finish after resolution")
			}
		})
	}
}

func waitForChallenge(t *testing.T, a *testAPI, token string) string {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		_, resp := a.do(t, http.MethodGet, "/api/v1/challenges", token, nil)
		var pending []struct {
			ID string `json:"id"`
		}
		remarshal(t, resp.Data, &pending)
		if len(pending) > 0 {
			return pending[0].ID
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no challenge was issued")
	return ""
}

func TestResolveChallenge_Errors(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	token, _ := a.register(t, "ch@example.com")

	rec, resp := a.do(t, http.MethodPost, "/api/v1/challenges/missing/resolve", token, map[string]bool{"approved": true})
	if rec.Code != http.StatusNotFound || errorCode(resp) != "NOT_FOUND" {
		t.Errorf("unknown challenge: status = %d code = %q", rec.Code, errorCode(resp))
	}
}

func TestAlertsAndIntegrity(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	token, accountID := a.register(t, "al@example.com")

	for i := 0; i < 3; i++ {
		err := a.store.SaveAlert(context.Background(), &models.Alert{
			ID: "alert-" + string(rune('a'+i)), AccountID: accountID, Kind: models.AlertKindLocation,
			Severity: models.SeverityCritical, Title: "Security alert", CreatedAt: time.Now().Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("SaveAlert: %v", err)
		}
	}

	rec, resp := a.do(t, http.MethodGet, "/api/v1/alerts?limit=2", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("alerts: status = %d", rec.Code)
	}
	var alerts []models.Alert
	remarshal(t, resp.Data, &alerts)
	if len(alerts) != 2 || alerts[0].ID != "alert-c" {
		t.Errorf("alerts = %+v, want newest two starting with alert-c", alerts)
	}

	rec, resp = a.do(t, http.MethodGet, "/api/v1/device/integrity", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("integrity: status = %d", rec.Code)
	}
	var assessment struct {
		Secure  bool     `json:"secure"`
		Reasons []string `json:"reasons"`
	}
	remarshal(t, resp.Data, &assessment)
	if assessment.Secure || len(assessment.Reasons) != 1 {
		t.Errorf("assessment = %+v, want insecure with one reason", assessment)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)

	rec, resp := a.do(t, http.MethodGet, "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: status = %d", rec.Code)
	}
	var status HealthStatus
	remarshal(t, resp.Data, &status)
	if status.Status != "healthy" || !status.StoreConnected || status.WindowBreaker != "closed" {
		t.Errorf("health = %+v", status)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestWebSocketStreamsOwnAlerts(t *testing.T) {
	t.Parallel()
	a := newTestAPI(t)
	token, accountID := a.register(t, "ws@example.com")

	srv := httptest.NewServer(a.router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?access_token=" + token
	conn, resp, err := gorilla.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer resp.Body.Close()
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for a.hub.AccountClientCount(accountID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered with the hub")
		}
		time.Sleep(10 * time.Millisecond)
	}

	a.hub.SendAlert(&models.Alert{ID: "other", AccountID: "someone-else", Title: "not yours"})
	a.hub.SendAlert(&models.Alert{ID: "mine", AccountID: accountID, Title: "yours"})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type string       `json:"type"`
		Data models.Alert `json:"data"`
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != websocket.MessageTypeAlert || msg.Data.ID != "mine" {
		t.Errorf("message = %+v, want own alert", msg)
	}
}
