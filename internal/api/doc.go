// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard

/*
Package api exposes FinTrack Guard over HTTP with the chi router.

Every response uses the models.APIResponse envelope. Routes under /api/v1
other than register and login require a bearer token; the token subject is
the acting account and is the only account a request can read or act on.

	GET  /health                            store ping, breaker state, hub clients
	GET  /metrics                           Prometheus
	POST /api/v1/auth/register              create account, returns token
	POST /api/v1/auth/login                 returns token
	POST /api/v1/auth/logout                stops location tracking
	POST /api/v1/tracking/start|stop
	POST /api/v1/locations                  evaluate one sample synchronously
	POST /api/v1/locations/batch            enqueue samples, 202 Accepted
	GET  /api/v1/locations                  persisted samples, newest first
	POST /api/v1/transactions               full decision flow
	GET  /api/v1/transactions
	GET  /api/v1/account
	GET  /api/v1/challenges                 pending step-up challenges
	POST /api/v1/challenges/{id}/resolve
	GET  /api/v1/alerts
	GET  /api/v1/device/integrity
	GET  /api/v1/ws                         alert stream (websocket)
*/
package api
