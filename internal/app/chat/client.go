/*
Package chat contains the core logic for tracking online users and broadcasting
chat traffic to every connected client.

This file defines the Client struct, representing an active WebSocket connection.
It manages the connection's read and write loops and dispatches inbound events
to the Hub.
*/
package chat

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/garyxuan/lan-chat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a message sent by the client.
	maxMessageSize = 8192
)

// Client couples a websocket connection with its hub-assigned connection id
// and outbox.
type Client struct {
	hub  *Hub
	conn *websocket.Conn

	// id is the ephemeral connection id issued at upgrade time.
	id string

	// out is the receive side of the hub outbox; closed by the hub on disconnect.
	out <-chan []byte

	logger zerolog.Logger
}

// NewClient constructs a Client around an upgraded connection. The caller is
// expected to have registered connID with the hub and to pass its outbox here.
func NewClient(hub *Hub, conn *websocket.Conn, connID string, out <-chan []byte) *Client {
	clientLogger := logx.Logger().With().
		Str("component", "Client").
		Str("conn_id", connID).
		Logger()

	return &Client{
		hub:    hub,
		conn:   conn,
		id:     connID,
		out:    out,
		logger: clientLogger,
	}
}

// ReadPump reads frames from the websocket until the connection fails or
// closes, dispatching each to the hub. It always ends in hub cleanup, so a
// connection dropping at any point (including mid-login) releases its state.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, frame, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (client close/going away)")
			}
			break
		}

		c.processInbound(frame)
	}
}

// cleanupOnDisconnect releases hub state and closes the underlying connection.
func (c *Client) cleanupOnDisconnect() {
	c.hub.Disconnect(c.id)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// processInbound parses one envelope and dispatches it. Malformed frames and
// unknown event types are logged and ignored; nothing a client sends can
// terminate its connection from inside the core.
func (c *Client) processInbound(frame []byte) {
	var envelope Envelope
	if err := json.Unmarshal(frame, &envelope); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid JSON")
		return
	}

	switch envelope.Type {
	case TypeLogin:
		var payload LoginPayload
		if !c.decodePayload(envelope, &payload) {
			return
		}
		if customErr := c.hub.Login(c.id, payload.Username, payload.UserID); customErr != nil {
			c.logger.Warn().Str("reason", customErr.Message).Msg("Login rejected")
		}

	case TypeMessage:
		var payload TextPayload
		if !c.decodePayload(envelope, &payload) {
			return
		}
		c.hub.RelayText(c.id, payload)

	case TypeImage:
		var payload ImagePayload
		if !c.decodePayload(envelope, &payload) {
			return
		}
		c.hub.RelayImage(c.id, payload)

	case TypeFile:
		var payload FilePayload
		if !c.decodePayload(envelope, &payload) {
			return
		}
		c.hub.RelayFile(c.id, payload)

	case TypeUpdateUsername:
		var payload RenamePayload
		if !c.decodePayload(envelope, &payload) {
			return
		}
		c.hub.Rename(c.id, payload.NewUsername)

	case TypeUpdateAvatar:
		var payload AvatarPayload
		if !c.decodePayload(envelope, &payload) {
			return
		}
		c.hub.SetAvatar(c.id, payload.AvatarURL)

	default:
		c.logger.Warn().Str("msg_type", string(envelope.Type)).Msg("Client sent unsupported message type")
	}
}

// decodePayload unmarshals the envelope payload, logging and reporting false
// on malformed input.
func (c *Client) decodePayload(envelope Envelope, dst any) bool {
	if err := json.Unmarshal(envelope.Payload, dst); err != nil {
		c.logger.Warn().Err(err).Str("msg_type", string(envelope.Type)).Msg("Client sent invalid payload")
		return false
	}
	return true
}

// WritePump moves frames from the hub outbox to the websocket and keeps the
// connection alive with periodic pings. It exits when the hub closes the
// outbox or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case frame, ok := <-c.out:
			if !c.writeQueuedFrame(frame, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePing() {
				return
			}
		}
	}
}

// writeQueuedFrame writes one frame pulled from the outbox.
// Returns false when the write loop should terminate.
func (c *Client) writeQueuedFrame(frame []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		// Hub closed the outbox; tell the client we are done.
		if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.logger.Info().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// writePing sends the heartbeat ping.
// Returns false when the write loop should terminate.
func (c *Client) writePing() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Info().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}
