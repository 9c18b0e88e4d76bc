// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard

/*
Package supervisor runs FinTrack Guard's long-lived services under suture v4.

The tree has three layers so a failure in one does not restart the others:

	RootSupervisor ("fintrack-guard")
	├── CoreSupervisor ("core-layer")
	│   └── location ingest router
	├── DeliverySupervisor ("delivery-layer")
	│   ├── WebSocket hub
	│   └── alert dispatcher
	└── APISupervisor ("api-layer")
	    └── HTTP server

Supervisor events (restarts, backoff, timeouts) are logged through
sutureslog onto the zerolog-backed slog handler from package logging.
*/
package supervisor
