// Package server manages individual WebSocket clients, handling read/write
// pumps, keepalive, and lifecycle control for each connection.
package server

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client represents a WebSocket client connection in the relay.
// It manages the connection state, the outbound frame channel, the hub
// reference, and the client's address.
type Client struct {
	id             string
	conn           *websocket.Conn
	send           chan []byte
	hub            *Hub
	addr           string
	closed         bool
	closeOnce      sync.Once
	maxMessageSize int64
	pongWait       time.Duration
	pingPeriod     time.Duration
	writeWait      time.Duration
	log            logrus.FieldLogger
}

// NewClient creates a Client with a fresh connection identifier for the
// given WebSocket connection. Limits and keepalive timings come from the
// hub's configuration.
func NewClient(conn *websocket.Conn, hub *Hub, addr string) *Client {
	cfg := hub.cfg
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	id := uuid.NewString()
	return &Client{
		id:             id,
		conn:           conn,
		send:           make(chan []byte, cfg.SendBufferSize),
		hub:            hub,
		addr:           addr,
		maxMessageSize: cfg.MaxMessageSize,
		pongWait:       cfg.PongWait,
		pingPeriod:     cfg.PingPeriod(),
		writeWait:      cfg.WriteWait,
		log: hub.log.WithFields(logrus.Fields{
			"conn_id":     id,
			"remote_addr": addr,
		}),
	}
}

// ID returns the connection identifier.
func (c *Client) ID() string {
	return c.id
}

// GetSendChan returns the client's send channel for reading outgoing frames.
// This channel is read-only from the caller's perspective.
func (c *Client) GetSendChan() <-chan []byte {
	return c.send
}

// close shuts the underlying connection once; the read pump then fails and
// unregisters the client.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		if c.conn == nil {
			return
		}
		if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
			c.log.WithError(err).Warn("Error closing client connection")
		}
	})
}

// setupReadConnection configures read deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
		c.log.WithError(err).Warn("Error setting initial read deadline")
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.pongWait)); err != nil {
			c.log.WithError(err).Warn("Error setting read deadline in pong handler")
		}
		return nil
	})
}

// logReadError logs why the read loop is stopping.
func (c *Client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.WithField("limit", c.maxMessageSize).Warn("Message exceeded maximum size")
	case websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure):
		c.log.WithError(err).Debug("Client disconnected")
	case errors.Is(err, io.EOF) || isExpectedCloseError(err):
		c.log.WithError(err).Debug("Client connection closed")
	case websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseAbnormalClosure,
		websocket.CloseMessageTooBig):
		c.log.WithError(err).Warn("Unexpected WebSocket close")
	default:
		c.log.WithError(err).Warn("WebSocket read error")
	}
}

// processMessage hands a raw inbound frame to the hub's handler. Rejected
// frames are logged and otherwise ignored.
func (c *Client) processMessage(rawMessage []byte) {
	if c.hub.handler == nil {
		return
	}
	if err := c.hub.handler.Dispatch(c.id, rawMessage); err != nil {
		c.log.WithError(err).Warn("Rejected inbound frame")
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		c.close()
	}()

	c.setupReadConnection()

	for {
		_, rawMessage, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		c.processMessage(rawMessage)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker *time.Ticker) bool {
	select {
	case message, ok := <-c.send:
		return c.handleMessage(message, ok)
	case <-ticker.C:
		return c.handlePing()
	case <-c.hub.ctx.Done():
		return false
	}
}

// handleMessage processes outgoing frames and returns false if the connection should be closed
func (c *Client) handleMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		c.log.WithError(err).Warn("Error setting write deadline")
		return false
	}

	if !ok {
		return c.writeCloseMessage()
	}

	return c.writeTextMessage(message)
}

// writeCloseMessage sends a close message to the client
func (c *Client) writeCloseMessage() bool {
	if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
		if !isExpectedCloseError(err) {
			c.log.WithError(err).Debug("Error writing close message")
		}
	}
	return false
}

// writeTextMessage writes one frame per outbound event
func (c *Client) writeTextMessage(message []byte) bool {
	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		if !isExpectedCloseError(err) {
			c.log.WithError(err).Warn("Error writing message")
		}
		return false
	}
	return true
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		c.log.WithError(err).Warn("Error setting write deadline for ping")
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log.WithError(err).Debug("Error writing ping message")
		return false
	}
	return true
}
