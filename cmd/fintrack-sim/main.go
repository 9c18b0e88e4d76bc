// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard

// Package main is fintrack-sim, a synthetic traffic generator for a running
// FinTrack Guard server.
//
// Each run registers a fresh account with gofakeit data, starts location
// tracking and plays one or more scenarios against the HTTP API:
//
//	normal     small moves and small amounts, nothing should fire
//	teleport   a distant jump between two fixes a minute apart
//	burst      seven expenses in quick succession, the last one is blocked
//	highvalue  an amount above the high-value threshold, challenge resolved
//	           approved or denied
//
// Usage:
//
//	fintrack-sim -url http://localhost:8750 -scenario all -seed 42
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/tomtom215/fintrack-guard/internal/logging"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8750", "FinTrack Guard base URL")
	scenarios := flag.String("scenario", "all", "comma separated scenarios: "+strings.Join(scenarioNames(), ", ")+" or all")
	seed := flag.Uint64("seed", 0, "gofakeit seed, 0 for random")
	deny := flag.Bool("deny", false, "deny the high-value challenge instead of approving it")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall run timeout")
	logLevel := flag.String("log-level", "info", "log level")
	flag.Parse()

	logging.Init(logging.Config{Level: *logLevel, Format: "console"})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx, cancelTimeout := context.WithTimeout(ctx, *timeout)
	defer cancelTimeout()

	selected, err := parseScenarios(*scenarios)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	sim := newSimulator(newClient(*baseURL), *seed)
	sim.denyChallenge = *deny

	failed := 0
	for _, name := range selected {
		report, err := sim.Run(ctx, name)
		if err != nil {
			failed++
			logging.Error().Err(err).Str("scenario", name).Msg("Scenario failed")
			continue
		}
		logging.Info().
			Str("scenario", name).
			Str("account_id", report.AccountID).
			Strs("results", report.Results).
			Msg("Scenario finished")
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func parseScenarios(raw string) ([]string, error) {
	if raw == "" || raw == "all" {
		return scenarioNames(), nil
	}
	var out []string
	for _, name := range strings.Split(raw, ",") {
		name = strings.TrimSpace(name)
		if _, ok := scenarios[name]; !ok {
			return nil, fmt.Errorf("unknown scenario %q", name)
		}
		out = append(out, name)
	}
	return out, nil
}
