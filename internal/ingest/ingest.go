// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
// Package ingest feeds batched location samples to the decision engine
// asynchronously.
//
// Batches are split into one Watermill message per sample and queued. A
// single forwarder publishes the queue on an in-process gochannel topic with
// BlockPublishUntilSubscriberAck set, so the next sample is only sent once
// the router handler has acked the previous one. Samples therefore reach the
// engine in the order they were queued, across batches and accounts.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/tomtom215/fintrack-guard/internal/auth"
	"github.com/tomtom215/fintrack-guard/internal/logging"
	"github.com/tomtom215/fintrack-guard/internal/metrics"
	"github.com/tomtom215/fintrack-guard/internal/models"
	"github.com/tomtom215/fintrack-guard/internal/security"
)

// TopicLocations carries LocationMessage payloads.
const TopicLocations = "locations"

const metadataAccountID = "account_id"

// LocationMessage is the payload of one sample.
type LocationMessage struct {
	AccountID     string           `json:"account_id"`
	Sample        models.GeoSample `json:"sample"`
	CorrelationID string           `json:"correlation_id,omitempty"`
}

// LocationRecorder is the engine entry point for a single sample.
type LocationRecorder interface {
	RecordLocation(ctx context.Context, sample models.GeoSample) (security.Outcome, error)
}

// ErrQueueClosed is returned by PublishLocations after Close.
var ErrQueueClosed = errors.New("location ingest queue closed")

// Service owns the queue, the pub/sub and the consuming router.
type Service struct {
	pubsub   *gochannel.GoChannel
	recorder LocationRecorder
	logger   watermill.LoggerAdapter

	queue   chan []*message.Message
	closing chan struct{}
	closeOnce sync.Once

	// pending is the unpublished tail of a batch interrupted by shutdown.
	// Only the forwarder touches it, and Serve calls never overlap.
	pending []*message.Message

	readyOnce sync.Once
	ready     chan struct{}
}

// NewService creates the pipeline. buffer is the number of batches that may
// wait in the queue before PublishLocations blocks.
func NewService(recorder LocationRecorder, buffer int64) *Service {
	if buffer < 1 {
		buffer = 1
	}
	logger := watermill.NewSlogLogger(logging.NewSlogLogger())
	return &Service{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			BlockPublishUntilSubscriberAck: true,
		}, logger),
		recorder: recorder,
		logger:   logger,
		queue:    make(chan []*message.Message, buffer),
		closing:  make(chan struct{}),
		ready:    make(chan struct{}),
	}
}

// Ready is closed once the consumer is subscribed for the first time.
// Batches queued before then wait for it.
func (s *Service) Ready() <-chan struct{} {
	return s.ready
}

// Serve runs the router until ctx ends. A router cannot be restarted, so
// each call builds a new one over the same pub/sub. It implements
// suture.Service.
func (s *Service) Serve(ctx context.Context) error {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 10 * time.Second}, s.logger)
	if err != nil {
		return fmt.Errorf("create watermill router: %w", err)
	}
	router.AddMiddleware(
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      2,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     time.Second,
			Multiplier:      2,
			Logger:          s.logger,
		}.Middleware,
	)
	router.AddNoPublisherHandler("location-ingest", TopicLocations, s.pubsub, s.handle)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		select {
		case <-router.Running():
			s.readyOnce.Do(func() { close(s.ready) })
			s.forward(runCtx)
		case <-runCtx.Done():
		}
	}()

	err = router.Run(runCtx)
	cancel()
	wg.Wait()
	if err != nil {
		return fmt.Errorf("location ingest router: %w", err)
	}
	return ctx.Err()
}

// forward publishes queued batches one message at a time until ctx ends.
// Each Publish returns only after the handler acked the message. The rest of
// an interrupted batch stays in pending for the next Serve; a message in
// flight when the router stops is discarded by gochannel.
func (s *Service) forward(ctx context.Context) {
	for {
		for len(s.pending) > 0 {
			if ctx.Err() != nil {
				return
			}
			msg := s.pending[0]
			if err := s.pubsub.Publish(TopicLocations, msg); err != nil {
				logging.Error().Err(err).Str("message_uuid", msg.UUID).Msg("Failed to publish location message")
				return
			}
			s.pending[0] = nil
			s.pending = s.pending[1:]
		}
		select {
		case <-ctx.Done():
			return
		case <-s.closing:
			return
		case batch := <-s.queue:
			s.pending = batch
		}
	}
}

func (s *Service) handle(msg *message.Message) error {
	var lm LocationMessage
	if err := json.Unmarshal(msg.Payload, &lm); err != nil {
		// Undecodable payloads will never succeed; ack and count.
		metrics.IngestedSamples.WithLabelValues("rejected").Inc()
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping undecodable location message")
		return nil
	}

	ctx := auth.WithAccount(msg.Context(), lm.AccountID)
	if lm.CorrelationID != "" {
		ctx = logging.ContextWithCorrelationID(ctx, lm.CorrelationID)
	}

	out, err := s.recorder.RecordLocation(ctx, lm.Sample)
	switch {
	case err == nil:
		metrics.IngestedSamples.WithLabelValues("processed").Inc()
		logging.Ctx(ctx).Debug().Str("action", string(out.Action)).Str("verdict", out.Verdict.String()).Msg("Ingested location sample")
		return nil
	case errors.Is(err, security.ErrInputRejected), errors.Is(err, security.ErrTrackingInactive), errors.Is(err, security.ErrNoIdentity):
		metrics.IngestedSamples.WithLabelValues("rejected").Inc()
		logging.Ctx(ctx).Info().Err(err).Msg("Ingested location sample rejected")
		return nil
	default:
		metrics.IngestedSamples.WithLabelValues("failed").Inc()
		return err
	}
}

// PublishLocations queues samples for accountID in order and returns without
// waiting for evaluation. It blocks only while the queue is full.
func (s *Service) PublishLocations(ctx context.Context, accountID string, samples []models.GeoSample) error {
	correlationID := logging.CorrelationIDFromContext(ctx)
	msgs := make([]*message.Message, 0, len(samples))
	for _, sample := range samples {
		payload, err := json.Marshal(LocationMessage{AccountID: accountID, Sample: sample, CorrelationID: correlationID})
		if err != nil {
			return fmt.Errorf("marshal location message: %w", err)
		}
		msg := message.NewMessage(watermill.NewUUID(), payload)
		msg.Metadata.Set(metadataAccountID, accountID)
		msgs = append(msgs, msg)
	}
	if len(msgs) == 0 {
		return nil
	}
	select {
	case <-s.closing:
		return ErrQueueClosed
	default:
	}
	select {
	case s.queue <- msgs:
		return nil
	case <-s.closing:
		return ErrQueueClosed
	case <-ctx.Done():
		return fmt.Errorf("queue locations: %w", ctx.Err())
	}
}

// Close stops accepting batches and closes the pub/sub; call after Serve
// has returned. Batches still queued are dropped.
func (s *Service) Close() error {
	s.closeOnce.Do(func() { close(s.closing) })
	return s.pubsub.Close()
}
