// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/fintrack-guard/internal/auth"
	"github.com/tomtom215/fintrack-guard/internal/models"
)

// Register creates an account and signs it in.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	account, token, err := h.Accounts.Register(r.Context(), req)
	switch {
	case errors.Is(err, auth.ErrEmailTaken):
		respondError(w, r, http.StatusConflict, "CONFLICT", "Email already registered", nil)
		return
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Registration failed", err)
		return
	}

	respondSuccess(w, r, http.StatusCreated, map[string]interface{}{
		"account": account,
		"token":   token,
	})
}

// Login exchanges the primary credential for a token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	token, err := h.Accounts.Login(r.Context(), req)
	switch {
	case errors.Is(err, auth.ErrLockedOut):
		respondError(w, r, http.StatusTooManyRequests, "LOCKED_OUT", "Too many failed attempts, try again later", nil)
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid email or password", nil)
		return
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Login failed", err)
		return
	}

	respondSuccess(w, r, http.StatusOK, token)
}

// Logout ends location tracking. Tokens are stateless and expire on their
// own.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Engine.StopTracking(r.Context()); err != nil {
		respondEngineError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, map[string]bool{"tracking": false})
}
