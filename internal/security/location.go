// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package security

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/fintrack-guard/internal/detection"
	"github.com/tomtom215/fintrack-guard/internal/logging"
	"github.com/tomtom215/fintrack-guard/internal/metrics"
	"github.com/tomtom215/fintrack-guard/internal/models"
	"github.com/tomtom215/fintrack-guard/internal/validation"
)

// RecordLocation admits sample into the acting account's history and
// evaluates the latest pair. Any anomaly blocks and raises a critical alert.
//
// Samples with negative or unknown accuracy, out-of-range coordinates, or a
// timestamp more than the location window ahead of the clock are not
// admitted; the returned error wraps ErrInputRejected and the history is
// left unchanged.
func (e *Engine) RecordLocation(ctx context.Context, sample models.GeoSample) (Outcome, error) {
	start := e.cfg.Clock()
	accountID, err := e.accountFromContext(ctx)
	if err != nil {
		return Outcome{}, err
	}
	ctx = logging.ContextWithAccountID(ctx, accountID)

	out := Outcome{Signal: SignalLocation, AccountID: accountID}
	out.enter(StateReceived)

	if verr := validation.ValidateStruct(&sample); verr != nil {
		metrics.RejectedSamples.Inc()
		return out, fmt.Errorf("%w: %s", ErrInputRejected, verr.Error())
	}

	if ahead := sample.Timestamp.Sub(start); ahead > detection.LocationWindow {
		metrics.RejectedSamples.Inc()
		return out, fmt.Errorf("%w: timestamp is %s ahead of the server clock", ErrInputRejected, ahead.Round(time.Second))
	}

	unlock, err := e.lockAccount(ctx, SignalLocation, accountID)
	if err != nil {
		return out, err
	}
	defer unlock()

	// Under the lock: a stop/start while waiting replaces the history.
	ac, ok := e.accountContext(accountID)
	if !ok {
		return out, ErrTrackingInactive
	}

	if !ac.history.Record(sample) {
		metrics.RejectedSamples.Inc()
		logging.Ctx(ctx).Debug().Float64("accuracy", sample.HorizontalAccuracy).Msg("location sample not admitted")
		return out, fmt.Errorf("%w: horizontal accuracy %v is not a non-negative number", ErrInputRejected, sample.HorizontalAccuracy)
	}
	out.Admitted = true

	out.Verdict = e.travel.Evaluate(ac.history)
	out.enter(StateClassified)

	e.saveLocation(ctx, accountID, sample)

	if out.Verdict.IsClear() {
		out.enter(StateAllowed)
	} else {
		out.enter(StateBlocked)
		e.alert(ctx, e.newAlert(accountID, models.AlertKindLocation, models.SeverityCritical,
			"Security alert", out.Verdict.Message(), out.Verdict))
		logging.Ctx(ctx).Info().
			Str("verdict", out.Verdict.String()).
			Int("history_len", ac.history.Len()).
			Msg("location anomaly blocked")
	}

	metrics.RecordEvaluation(string(SignalLocation), string(out.Action), out.Verdict.String(), e.cfg.Clock().Sub(start))
	return out, nil
}

// saveLocation persists the admitted sample. Failures are logged only; the
// verdict does not depend on persistence.
func (e *Engine) saveLocation(ctx context.Context, accountID string, sample models.GeoSample) {
	if e.store == nil {
		return
	}
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.StoreTimeout)
	defer cancel()
	if err := e.store.SaveLocation(storeCtx, accountID, sample); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to persist location sample")
	}
}
