// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
/*
Package websocket streams alerts to connected clients.

Each Client belongs to one account and only receives that account's alerts.
The Hub owns the client set: registration, unregistration and delivery all
happen on the hub goroutine (Serve), so clients never need their own locks.

# Message Format

	{"type": "alert", "data": {"id": "...", "kind": "transaction", ...}}

Clients may send {"type": "ping"} and receive {"type": "pong"}.

# Backpressure

A client whose send buffer is full is disconnected rather than allowed to
slow the hub; it can reconnect and page the alert history over REST.
*/
package websocket
