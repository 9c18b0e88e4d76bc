// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/tomtom215/fintrack-guard/internal/auth"
	"github.com/tomtom215/fintrack-guard/internal/models"
	"github.com/tomtom215/fintrack-guard/internal/security"
)

// scenario plays traffic for one freshly registered account and returns one
// line per observed result.
type scenario func(ctx context.Context, s *simulator, sess *session) ([]string, error)

var scenarios = map[string]scenario{
	"normal":    playNormal,
	"teleport":  playTeleport,
	"burst":     playBurst,
	"highvalue": playHighValue,
}

func scenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Report is the result of one scenario run.
type Report struct {
	AccountID string
	Results   []string
}

type session struct {
	api       *client
	accountID string
	password  string
}

type simulator struct {
	api   *client
	faker *gofakeit.Faker
	now   func() time.Time

	denyChallenge bool
	pollInterval  time.Duration
}

func newSimulator(api *client, seed uint64) *simulator {
	return &simulator{
		api:          api,
		faker:        gofakeit.New(seed),
		now:          time.Now,
		pollInterval: 200 * time.Millisecond,
	}
}

// Run registers an account, starts tracking and plays the named scenario.
func (s *simulator) Run(ctx context.Context, name string) (Report, error) {
	play, ok := scenarios[name]
	if !ok {
		return Report{}, fmt.Errorf("unknown scenario %q", name)
	}
	sess, err := s.register(ctx)
	if err != nil {
		return Report{}, err
	}
	if _, err := sess.api.do(ctx, http.MethodPost, "/api/v1/tracking/start", nil, nil); err != nil {
		return Report{AccountID: sess.accountID}, fmt.Errorf("start tracking: %w", err)
	}
	results, err := play(ctx, s, sess)
	return Report{AccountID: sess.accountID, Results: results}, err
}

func (s *simulator) register(ctx context.Context) (*session, error) {
	req := models.RegisterRequest{
		Name:     s.faker.Name(),
		Email:    s.faker.Email(),
		Password: s.faker.Password(true, true, true, false, false, 16),
	}
	var out struct {
		Account models.Account       `json:"account"`
		Token   models.TokenResponse `json:"token"`
	}
	if _, err := s.api.do(ctx, http.MethodPost, "/api/v1/auth/register", req, &out); err != nil {
		return nil, fmt.Errorf("register %s: %w", req.Email, err)
	}
	return &session{
		api:       s.api.withToken(out.Token.Token),
		accountID: out.Account.ID,
		password:  req.Password,
	}, nil
}

func (s *simulator) sendLocation(ctx context.Context, sess *session, sample models.GeoSample) (security.Outcome, error) {
	var out security.Outcome
	_, err := sess.api.do(ctx, http.MethodPost, "/api/v1/locations", sample, &out)
	return out, err
}

// submit posts a transaction. A blocked transaction is not an error here:
// the outcome is returned with Action blocked.
func (s *simulator) submit(ctx context.Context, sess *session, req models.TransactionRequest) (security.Outcome, error) {
	var out security.Outcome
	_, err := sess.api.do(ctx, http.MethodPost, "/api/v1/transactions", req, &out)
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Code == "TRANSACTION_BLOCKED" {
		return out, nil
	}
	return out, err
}

func (s *simulator) smallExpense() models.TransactionRequest {
	return models.TransactionRequest{
		Amount:      s.faker.Price(2, 80),
		Kind:        models.KindExpense,
		Category:    models.CategoryFood,
		Description: s.faker.ProductName(),
	}
}

func describe(label string, out security.Outcome) string {
	return fmt.Sprintf("%s: %s (%s)", label, out.Action, out.Verdict.String())
}

func playNormal(ctx context.Context, s *simulator, sess *session) ([]string, error) {
	var results []string
	lat := s.faker.Float64Range(-50, 50)
	lon := s.faker.Float64Range(-120, 120)
	start := s.now().Add(-10 * time.Minute)
	for i := 0; i < 5; i++ {
		sample := models.GeoSample{
			Latitude:           lat + float64(i)*0.0005,
			Longitude:          lon + float64(i)*0.0005,
			HorizontalAccuracy: 10,
			Timestamp:          start.Add(time.Duration(i) * time.Minute),
		}
		out, err := s.sendLocation(ctx, sess, sample)
		if err != nil {
			return results, fmt.Errorf("location %d: %w", i, err)
		}
		results = append(results, describe(fmt.Sprintf("location %d", i), out))
	}

	income := models.TransactionRequest{Amount: 3000, Kind: models.KindIncome, Category: models.CategorySalary, Description: "salary"}
	out, err := s.submit(ctx, sess, income)
	if err != nil {
		return results, fmt.Errorf("income: %w", err)
	}
	results = append(results, describe("income", out))

	for i := 0; i < 2; i++ {
		out, err := s.submit(ctx, sess, s.smallExpense())
		if err != nil {
			return results, fmt.Errorf("expense %d: %w", i, err)
		}
		results = append(results, describe(fmt.Sprintf("expense %d", i), out))
	}
	return results, nil
}

func playTeleport(ctx context.Context, s *simulator, sess *session) ([]string, error) {
	start := s.now().Add(-2 * time.Minute)
	legs := []struct {
		label    string
		lat, lon float64
	}{
		{"berlin", 52.5200, 13.4050},
		{"new-york", 40.7128, -74.0060},
	}
	var results []string
	for i, leg := range legs {
		out, err := s.sendLocation(ctx, sess, models.GeoSample{
			Latitude:           leg.lat,
			Longitude:          leg.lon,
			HorizontalAccuracy: s.faker.Float64Range(5, 25),
			Timestamp:          start.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			return results, fmt.Errorf("%s: %w", leg.label, err)
		}
		results = append(results, describe(leg.label, out))
	}
	return results, nil
}

func playBurst(ctx context.Context, s *simulator, sess *session) ([]string, error) {
	var results []string
	for i := 0; i < 7; i++ {
		out, err := s.submit(ctx, sess, s.smallExpense())
		if err != nil {
			return results, fmt.Errorf("expense %d: %w", i, err)
		}
		results = append(results, describe(fmt.Sprintf("expense %d", i), out))
	}
	return results, nil
}

// playHighValue submits a high-value income in the background and resolves
// the step-up challenge it raises while the request is held open.
func playHighValue(ctx context.Context, s *simulator, sess *session) ([]string, error) {
	type submitResult struct {
		out security.Outcome
		err error
	}
	done := make(chan submitResult, 1)
	go func() {
		out, err := s.submit(ctx, sess, models.TransactionRequest{
			Amount:      s.faker.Float64Range(10001, 50000),
			Kind:        models.KindIncome,
			Category:    models.CategoryOther,
			Description: s.faker.Company(),
		})
		done <- submitResult{out, err}
	}()

	challenge, err := s.awaitChallenge(ctx, sess)
	if err != nil {
		return nil, err
	}

	res := auth.Resolution{Password: sess.password}
	if s.denyChallenge {
		res.Password = sess.password + "-wrong"
	}
	var resolved struct {
		Approved bool `json:"approved"`
	}
	path := "/api/v1/challenges/" + challenge.ID + "/resolve"
	if _, err := sess.api.do(ctx, http.MethodPost, path, res, &resolved); err != nil {
		return nil, fmt.Errorf("resolve challenge: %w", err)
	}
	results := []string{fmt.Sprintf("challenge %s: approved=%t", challenge.ID, resolved.Approved)}

	select {
	case r := <-done:
		if r.err != nil {
			return results, fmt.Errorf("high-value submit: %w", r.err)
		}
		return append(results, describe("high-value", r.out)), nil
	case <-ctx.Done():
		return results, ctx.Err()
	}
}

func (s *simulator) awaitChallenge(ctx context.Context, sess *session) (auth.Challenge, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		var pending []auth.Challenge
		if _, err := sess.api.do(ctx, http.MethodGet, "/api/v1/challenges", nil, &pending); err != nil {
			return auth.Challenge{}, fmt.Errorf("list challenges: %w", err)
		}
		if len(pending) > 0 {
			return pending[0], nil
		}
		select {
		case <-ctx.Done():
			return auth.Challenge{}, fmt.Errorf("waiting for challenge: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
