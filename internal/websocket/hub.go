// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package websocket

import (
	"context"
	"errors"
	"sync"

	"github.com/tomtom215/fintrack-guard/internal/logging"
	"github.com/tomtom215/fintrack-guard/internal/metrics"
	"github.com/tomtom215/fintrack-guard/internal/models"
)

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

const (
	MessageTypeAlert = "alert"
	MessageTypePing  = "ping"
	MessageTypePong  = "pong"
)

// Message is the wire envelope.
type Message struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type envelope struct {
	accountID string
	message   Message
}

// Hub tracks connected clients per account and routes alerts to them.
type Hub struct {
	accounts   map[string]map[*Client]struct{}
	total      int
	broadcast  chan envelope
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub returns a hub with a 256-message backlog.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan envelope, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		accounts:   make(map[string]map[*Client]struct{}),
	}
}

// Serve runs the hub until ctx ends, then closes every client. It
// implements suture.Service.
//
// Lifecycle events are drained before deliveries so an alert is never routed
// against a stale client set.
func (h *Hub) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		default:
		}

		select {
		case client := <-h.Register:
			h.add(client)
			continue
		case client := <-h.Unregister:
			h.remove(client)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			h.shutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.add(client)
		case client := <-h.Unregister:
			h.remove(client)
		case env := <-h.broadcast:
			h.deliver(env)
		}
	}
}

func (h *Hub) add(client *Client) {
	h.mu.Lock()
	set, ok := h.accounts[client.accountID]
	if !ok {
		set = make(map[*Client]struct{})
		h.accounts[client.accountID] = set
	}
	set[client] = struct{}{}
	h.total++
	n := h.total
	h.mu.Unlock()
	metrics.WebSocketClients.Set(float64(n))
	client.log.Info().Int("total_clients", n).Msg("alert stream connected")
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	h.drop(client, closeUnregistered)
	n := h.total
	h.mu.Unlock()
	metrics.WebSocketClients.Set(float64(n))
	client.log.Info().Int("total_clients", n).Msg("alert stream disconnected")
}

// drop closes client with reason. It is a no-op for a client that is no
// longer registered. Callers hold mu.
func (h *Hub) drop(client *Client, reason closeReason) {
	set := h.accounts[client.accountID]
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.accounts, client.accountID)
	}
	h.total--
	client.closed = reason
	close(client.send)
}

func (h *Hub) shutdown(ctx context.Context) {
	count := h.GetClientCount()
	h.closeAllClients()
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", count).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

func (h *Hub) deliver(env envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var slow []*Client
	for client := range h.accounts[env.accountID] {
		select {
		case client.send <- env.message:
		default:
			slow = append(slow, client)
		}
	}
	for _, client := range slow {
		client.log.Warn().Msg("alert stream client too slow, disconnecting")
		h.drop(client, closeSlowConsumer)
	}
	if len(slow) > 0 {
		metrics.WebSocketClients.Set(float64(h.total))
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.accounts {
		for client := range set {
			h.drop(client, closeShutdown)
		}
	}
	metrics.WebSocketClients.Set(0)
}

// SendAlert queues an alert for the owning account's clients. It never
// blocks and reports false when the backlog is full.
func (h *Hub) SendAlert(alert *models.Alert) bool {
	select {
	case h.broadcast <- envelope{accountID: alert.AccountID, message: Message{Type: MessageTypeAlert, Data: alert}}:
		return true
	default:
		logging.Warn().Str("alert_id", alert.ID).Msg("websocket backlog full, dropping alert")
		return false
	}
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.total
}

// AccountClientCount returns the number of clients connected for accountID.
func (h *Hub) AccountClientCount(accountID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.accounts[accountID])
}
