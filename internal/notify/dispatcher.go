// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
// Package notify delivers alerts raised by the decision engine, the
// challenge broker and the integrity checker.
//
// Dispatcher implements security.Notifier: Alert only enqueues, and a
// supervised goroutine fans each alert out to every configured Channel.
// When the queue is full the alert is dropped and counted, so the engine
// never waits on delivery.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/fintrack-guard/internal/logging"
	"github.com/tomtom215/fintrack-guard/internal/metrics"
	"github.com/tomtom215/fintrack-guard/internal/models"
)

// Channel is one delivery target.
type Channel interface {
	Name() string
	Send(ctx context.Context, alert *models.Alert) error
}

const (
	defaultSendTimeout = 10 * time.Second
	drainTimeout       = 5 * time.Second
)

// Dispatcher queues alerts and fans them out.
type Dispatcher struct {
	queue       chan *models.Alert
	channels    []Channel
	sendTimeout time.Duration
}

// NewDispatcher buffers up to queueSize alerts.
func NewDispatcher(queueSize int, channels ...Channel) *Dispatcher {
	return &Dispatcher{
		queue:       make(chan *models.Alert, queueSize),
		channels:    channels,
		sendTimeout: defaultSendTimeout,
	}
}

// AddChannel registers another target. Call before Serve.
func (d *Dispatcher) AddChannel(c Channel) {
	d.channels = append(d.channels, c)
}

// Channels returns the names of the registered targets.
func (d *Dispatcher) Channels() []string {
	names := make([]string, len(d.channels))
	for i, c := range d.channels {
		names[i] = c.Name()
	}
	return names
}

// Alert enqueues a without blocking.
func (d *Dispatcher) Alert(a *models.Alert) {
	if a == nil {
		return
	}
	select {
	case d.queue <- a:
		metrics.AlertQueueDepth.Set(float64(len(d.queue)))
	default:
		metrics.AlertsDropped.Inc()
		logging.Warn().
			Str("alert_id", a.ID).
			Str("account_id", a.AccountID).
			Str("kind", string(a.Kind)).
			Msg("Alert queue full, dropping alert")
	}
}

// Serve delivers queued alerts until ctx ends, then makes one bounded pass
// over whatever is still queued. It implements suture.Service.
func (d *Dispatcher) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			d.drain()
			return ctx.Err()
		case a := <-d.queue:
			metrics.AlertQueueDepth.Set(float64(len(d.queue)))
			d.fanOut(ctx, a)
		}
	}
}

func (d *Dispatcher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case a := <-d.queue:
			d.fanOut(ctx, a)
		default:
			metrics.AlertQueueDepth.Set(0)
			return
		}
	}
}

// fanOut sends to every channel concurrently and waits, so each channel sees
// alerts in queue order.
func (d *Dispatcher) fanOut(ctx context.Context, a *models.Alert) {
	var wg sync.WaitGroup
	for _, ch := range d.channels {
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()
			d.send(ctx, ch, a)
		}(ch)
	}
	wg.Wait()
}

func (d *Dispatcher) send(ctx context.Context, ch Channel, a *models.Alert) {
	ctx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				logging.Error().Interface("panic", r).Str("channel", ch.Name()).Msg("alert channel panicked")
				err = errChannelPanic
			}
		}()
		err = ch.Send(ctx, a)
	}()

	metrics.RecordAlertDelivery(ch.Name(), err)
	if err != nil {
		logging.Warn().Err(err).
			Str("channel", ch.Name()).
			Str("alert_id", a.ID).
			Msg("Alert delivery failed")
	}
}
