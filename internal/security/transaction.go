// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/fintrack-guard/internal/detection"
	"github.com/tomtom215/fintrack-guard/internal/logging"
	"github.com/tomtom215/fintrack-guard/internal/metrics"
	"github.com/tomtom215/fintrack-guard/internal/models"
	"github.com/tomtom215/fintrack-guard/internal/validation"
)

// Degradation reasons reported in Outcome.DegradedReason.
const (
	DegradedTimeout     = "timeout"
	DegradedError       = "error"
	DegradedBreakerOpen = "breaker_open"
)

// SubmitTransaction evaluates event for the acting account and, when
// allowed, persists it and updates the balance.
//
// The account's transaction lock is held from the window fetch until the
// transaction is persisted, so concurrent submissions are counted against
// each other's results. A nil error with Action blocked is a normal
// decision; errors are reserved for rejected input, missing identity and
// failed persistence of an allowed transaction.
func (e *Engine) SubmitTransaction(ctx context.Context, event models.TransactionEvent) (Outcome, error) {
	start := e.cfg.Clock()
	accountID, err := e.accountFromContext(ctx)
	if err != nil {
		return Outcome{}, err
	}
	ctx = logging.ContextWithAccountID(ctx, accountID)

	out := Outcome{Signal: SignalTransaction, AccountID: accountID}
	out.enter(StateReceived)

	event.AccountID = accountID
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = start
	}
	if err := event.CheckAmount(); err != nil {
		return out, fmt.Errorf("%w: %w", ErrInputRejected, err)
	}
	if verr := validation.ValidateStruct(&event); verr != nil {
		return out, fmt.Errorf("%w: %s", ErrInputRejected, verr.Error())
	}

	unlock, err := e.lockAccount(ctx, SignalTransaction, accountID)
	if err != nil {
		return out, err
	}
	defer unlock()

	window, reason := e.fetchWindow(ctx, accountID)
	if reason != "" {
		out.Degraded = true
		out.DegradedReason = reason
		metrics.RecordDegraded(reason)
		logging.Ctx(ctx).Warn().
			Bool("degraded", true).
			Str("reason", reason).
			Msg("recent transaction window unavailable, burst check skipped")
	}

	out.Verdict = e.risk.Evaluate(event, window)
	out.enter(StateClassified)

	switch out.Verdict.Kind {
	case detection.VerdictBurstRate:
		out.enter(StateBlocked)
		e.alert(ctx, e.newAlert(accountID, models.AlertKindTransaction, models.SeverityCritical,
			"Transaction blocked", out.Verdict.Message(), out.Verdict))

	case detection.VerdictHighValue:
		// The alert goes out before the challenge so the owner hears about
		// the attempt even if the challenge never completes.
		e.alert(ctx, e.newAlert(accountID, models.AlertKindTransaction, models.SeverityCritical,
			"High-value transaction", out.Verdict.Message(), out.Verdict))
		out.enter(StateEscalated)

		approved, result := e.challenge(ctx, accountID, out.Verdict)
		out.ChallengeResult = result
		if approved {
			out.enter(StateAllowed)
		} else {
			out.enter(StateBlocked)
		}

	default:
		out.enter(StateAllowed)
	}

	var commitErr error
	if out.Action == ActionAllowed {
		commitErr = e.commit(ctx, &out, event)
	} else {
		logging.Ctx(ctx).Info().
			Str("verdict", out.Verdict.String()).
			Str("transaction_id", event.ID).
			Str("challenge", out.ChallengeResult).
			Msg("transaction blocked")
	}

	metrics.RecordEvaluation(string(SignalTransaction), string(out.Action), out.Verdict.String(), e.cfg.Clock().Sub(start))
	return out, commitErr
}

// fetchWindow loads the transactions of the last burst window. A non-empty
// reason means the fetch failed and the returned window is empty.
func (e *Engine) fetchWindow(ctx context.Context, accountID string) ([]models.TransactionEvent, string) {
	if e.store == nil {
		return nil, DegradedError
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.cfg.WindowFetchTimeout)
	defer cancel()

	since := e.cfg.Clock().Add(-detection.BurstWindow)
	window, err := e.breaker.Execute(func() ([]models.TransactionEvent, error) {
		return e.store.RecentTransactions(fetchCtx, accountID, &since)
	})
	if err == nil {
		return window, ""
	}

	reason := DegradedError
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		reason = DegradedBreakerOpen
	case errors.Is(err, context.DeadlineExceeded):
		reason = DegradedTimeout
	}
	logging.Ctx(ctx).Debug().Err(fmt.Errorf("%w: %w", ErrCollaboratorUnavailable, err)).Msg("recent window fetch failed")
	return nil, reason
}

// challenge runs the step-up challenge under ChallengeTimeout. Errors,
// denials, timeouts and cancellation all count as failure.
func (e *Engine) challenge(ctx context.Context, accountID string, verdict detection.Verdict) (approved bool, result string) {
	if e.identity == nil {
		metrics.RecordChallenge("error")
		return false, "error"
	}

	challengeCtx, cancel := context.WithTimeout(ctx, e.cfg.ChallengeTimeout)
	defer cancel()

	ok, err := e.identity.ChallengeStepUp(challengeCtx, accountID,
		"confirm your identity for this high-value transaction")

	switch {
	case err == nil && ok:
		result = "approved"
	case err == nil:
		result = "denied"
	case errors.Is(err, context.DeadlineExceeded):
		result = "timeout"
	case errors.Is(err, context.Canceled):
		result = "cancelled"
	default:
		result = "error"
	}
	metrics.RecordChallenge(result)

	if result != "approved" {
		logging.Ctx(ctx).Info().
			Err(errors.Join(ErrChallengeFailed, err)).
			Str("result", result).
			Float64("amount", verdict.Amount).
			Msg("step-up challenge failed")
		return false, result
	}
	return true, result
}

// commit persists an allowed transaction and applies it to the balance. It
// runs on a context detached from the caller so a client disconnect after
// the decision cannot leave a half-written transaction.
func (e *Engine) commit(ctx context.Context, out *Outcome, event models.TransactionEvent) error {
	if e.store == nil {
		return fmt.Errorf("%w: no store configured", ErrCollaboratorUnavailable)
	}

	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.StoreTimeout)
	defer cancel()

	if err := e.store.PersistTransaction(storeCtx, event); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("transaction_id", event.ID).Msg("failed to persist allowed transaction")
		return fmt.Errorf("%w: persist transaction: %w", ErrCollaboratorUnavailable, err)
	}

	oldBalance, err := e.store.Balance(storeCtx, event.AccountID)
	if err != nil {
		return fmt.Errorf("%w: read balance: %w", ErrCollaboratorUnavailable, err)
	}
	newBalance := oldBalance + event.SignedAmount()
	if err := e.store.UpdateBalance(storeCtx, event.AccountID, newBalance); err != nil {
		return fmt.Errorf("%w: update balance: %w", ErrCollaboratorUnavailable, err)
	}

	out.Committed = true
	out.Transaction = &event
	out.Balance = &newBalance

	if e.balanceNotifier != nil {
		e.balanceNotifier.Alert(e.newAlert(event.AccountID, models.AlertKindBalance, models.SeverityInfo,
			"Balance updated", balanceMessage(event, newBalance), detection.Clear()))
	}
	return nil
}

func balanceMessage(event models.TransactionEvent, newBalance float64) string {
	sign := "+"
	if event.Kind == models.KindExpense {
		sign = "-"
	}
	return fmt.Sprintf("%s%.2f %s, balance now %.2f", sign, event.Amount, event.Category, newBalance)
}

// BreakerState exposes the recent-window breaker state for health checks.
func (e *Engine) BreakerState() string {
	return e.breaker.State().String()
}

// Now returns the engine clock's current time.
func (e *Engine) Now() time.Time {
	return e.cfg.Clock()
}
