// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
/*
Package auth provides account authentication and the identity collaborator
used by the security decision engine.

# Components

  - TokenManager: HS256 JWTs whose subject is the account id
  - HashPassword / CheckPassword: bcrypt credential hashing
  - Lockout: temporary lockout after repeated failed logins
  - Service: register and login against the account store
  - ContextIdentity: resolves the acting account from a request context
  - ChallengeBroker: step-up challenges resolved out of band by the client
  - Provider: ContextIdentity plus ChallengeBroker, satisfying
    security.IdentityProvider
  - Middleware: bearer-token authentication for the HTTP API

# Step-up Challenges

When the engine escalates a high-value transaction it calls
ChallengeStepUp, which registers a pending challenge, announces it through
the notifier and blocks. The device confirms with a biometric prompt (or
the account password) and posts the result to the API, which calls
Resolve. A challenge that is not resolved before its deadline, or whose
caller goes away, fails.
*/
package auth
