// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard

package api

import (
	"net/http"

	"github.com/tomtom215/fintrack-guard/internal/models"
	"github.com/tomtom215/fintrack-guard/internal/security"
)

// SubmitTransaction runs the decision flow. It answers 201 with the
// committed outcome, or 403 TRANSACTION_BLOCKED with the outcome as data.
// A high-value transaction holds the request open until the step-up
// challenge resolves or times out.
func (h *Handler) SubmitTransaction(w http.ResponseWriter, r *http.Request) {
	var req models.TransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	out, err := h.Engine.SubmitTransaction(r.Context(), req.Event())
	if err != nil {
		if out.Action == security.ActionAllowed {
			// Allowed but not persisted.
			respondJSON(w, r, http.StatusInternalServerError, &models.APIResponse{
				Status: "error",
				Data:   out,
				Error:  &models.APIError{Code: "INTERNAL_ERROR", Message: "Transaction could not be recorded"},
			})
			return
		}
		respondEngineError(w, r, err)
		return
	}

	if out.Action == security.ActionBlocked {
		respondJSON(w, r, http.StatusForbidden, &models.APIResponse{
			Status: "error",
			Data:   out,
			Error: &models.APIError{
				Code:    "TRANSACTION_BLOCKED",
				Message: out.Verdict.Message(),
				Details: map[string]interface{}{
					"verdict":          out.Verdict.String(),
					"challenge_result": out.ChallengeResult,
				},
			},
		})
		return
	}
	respondSuccess(w, r, http.StatusCreated, out)
}

// ListTransactions returns the account's transactions, newest first.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	acct, ok := accountID(w, r)
	if !ok {
		return
	}
	limit, ok := parseLimit(r)
	if !ok {
		respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be between 1 and 500", nil)
		return
	}

	txs, err := h.Store.ListTransactions(r.Context(), acct, limit)
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load transactions", err)
		return
	}
	if txs == nil {
		txs = []models.TransactionEvent{}
	}
	respondSuccess(w, r, http.StatusOK, txs)
}

func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	acct, ok := accountID(w, r)
	if !ok {
		return
	}
	account, err := h.Store.GetAccount(r.Context(), acct)
	if err != nil {
		respondEngineError(w, r, err)
		return
	}
	respondSuccess(w, r, http.StatusOK, account)
}
