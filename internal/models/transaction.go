// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard

package models

import (
	"fmt"
	"math"
	"time"
)

// TransactionKind carries the sign of a transaction. Amounts are always
// non-negative magnitudes.
type TransactionKind string

const (
	KindIncome  TransactionKind = "income"
	KindExpense TransactionKind = "expense"
)

// Category classifies a transaction for reporting.
type Category string

const (
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryEntertainment Category = "entertainment"
	CategoryHealth        Category = "health"
	CategorySalary        Category = "salary"
	CategoryOther         Category = "other"
)

// Categories lists every accepted category in display order.
var Categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryEntertainment,
	CategoryHealth,
	CategorySalary,
	CategoryOther,
}

// TransactionEvent is a balance movement for one account.
type TransactionEvent struct {
	ID          string          `json:"id" validate:"required"`
	AccountID   string          `json:"account_id" validate:"required"`
	Amount      float64         `json:"amount" validate:"finite,gte=0"`
	Kind        TransactionKind `json:"kind" validate:"required,oneof=income expense"`
	Category    Category        `json:"category" validate:"required,oneof=food transport entertainment health salary other"`
	Description string          `json:"description" validate:"max=500"`
	Timestamp   time.Time       `json:"timestamp" validate:"required"`
}

// SignedAmount returns the amount with the sign implied by Kind.
func (t TransactionEvent) SignedAmount() float64 {
	if t.Kind == KindExpense {
		return -t.Amount
	}
	return t.Amount
}

// CheckAmount verifies the amount is a finite, non-negative magnitude.
func (t TransactionEvent) CheckAmount() error {
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) {
		return fmt.Errorf("amount must be finite, got %v", t.Amount)
	}
	if t.Amount < 0 {
		return fmt.Errorf("amount must be non-negative, got %v", t.Amount)
	}
	return nil
}

// TransactionRequest is the API payload for submitting a transaction. The
// account, id and timestamp are assigned server side.
type TransactionRequest struct {
	Amount      float64         `json:"amount"`
	Kind        TransactionKind `json:"kind"`
	Category    Category        `json:"category"`
	Description string          `json:"description"`
}

// Event converts the request into an unvalidated TransactionEvent.
func (r TransactionRequest) Event() TransactionEvent {
	return TransactionEvent{
		Amount:      r.Amount,
		Kind:        r.Kind,
		Category:    r.Category,
		Description: r.Description,
	}
}
