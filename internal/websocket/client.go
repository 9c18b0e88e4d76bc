// FinTrack Guard - Account Security and Fraud Detection Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fintrack-guard
package websocket

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/tomtom215/fintrack-guard/internal/logging"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// Clients only send pings; anything larger is a misbehaving peer.
	maxMessageSize = 512

	sendBuffer = 64
)

// closeReason is set by the hub before it closes a client's send channel
// and becomes the close frame the client receives.
type closeReason struct {
	code int
	text string
}

var (
	closeUnregistered = closeReason{websocket.CloseNormalClosure, ""}
	closeShutdown     = closeReason{websocket.CloseGoingAway, "server shutting down"}
	closeSlowConsumer = closeReason{websocket.ClosePolicyViolation, "alert stream backlog exceeded"}
)

// Client is one websocket connection of one account. The stream is
// server push only; inbound frames are limited to application pings.
type Client struct {
	id        string
	accountID string
	hub       *Hub
	conn      *websocket.Conn
	send      chan Message
	log       zerolog.Logger

	// closed is written by the hub before send is closed.
	closed closeReason
}

// NewClient binds conn to accountID.
func NewClient(hub *Hub, conn *websocket.Conn, accountID string) *Client {
	id := uuid.NewString()
	return &Client{
		id:        id,
		accountID: accountID,
		hub:       hub,
		conn:      conn,
		send:      make(chan Message, sendBuffer),
		log:       logging.With().Str("component", "alert-stream").Str("account_id", accountID).Str("conn_id", id).Logger(),
		closed:    closeUnregistered,
	}
}

// ID is the connection id used in logs.
func (c *Client) ID() string { return c.id }

func (c *Client) AccountID() string { return c.accountID }

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister <- c
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.log.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("alert stream closed unexpectedly")
			}
			return
		}
		if msg.Type != MessageTypePing {
			c.log.Debug().Str("type", msg.Type).Msg("ignoring inbound message")
			continue
		}
		select {
		case c.send <- Message{Type: MessageTypePong}:
		default:
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(c.closed.code, c.closed.text))
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.log.Warn().Err(err).Str("type", message.Type).Msg("failed to write to alert stream")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start registers with the hub and runs the pumps. It blocks until the hub
// accepts the registration, so no alert raised after Start returns is missed.
func (c *Client) Start() {
	c.hub.Register <- c
	go c.writePump()
	go c.readPump()
}
