/*
Package chat contains the core logic for tracking online users and broadcasting
chat traffic to every connected client.

This file defines the Hub, which owns the presence table and the per-connection
outboxes. All login, profile-update, relay, and disconnect events are serialized
behind a single mutex so every broadcast carries a consistent snapshot of the
online-user set. Durable identity writes happen off the hub lock inside the
identity service.
*/
package chat

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/garyxuan/lan-chat/internal/app/identity"
	"github.com/garyxuan/lan-chat/internal/pkg/errs"
	"github.com/garyxuan/lan-chat/internal/pkg/logx"
)

// outboxBuffer is the per-connection send queue depth. A client that cannot
// drain this many frames starts losing broadcasts rather than stalling the hub.
const outboxBuffer = 256

// Hub coordinates every connected client: it binds connections to identities,
// keeps the presence table, and fans events out to all outboxes.
type Hub struct {
	mu sync.Mutex

	// outboxes holds the send queue for every open connection, logged in or not.
	outboxes map[string]chan []byte

	presence *Presence
	identity *identity.Service

	// publicBaseURL is stripped from avatar URLs before they are stored, so
	// profiles keep host-relative paths.
	publicBaseURL string

	logger zerolog.Logger
}

// NewHub constructs a Hub bound to the given identity service.
func NewHub(ids *identity.Service, publicBaseURL string) *Hub {
	return &Hub{
		outboxes:      make(map[string]chan []byte),
		presence:      NewPresence(),
		identity:      ids,
		publicBaseURL: strings.TrimSuffix(publicBaseURL, "/"),
		logger:        logx.Logger().With().Str("component", "Hub").Logger(),
	}
}

// Register adds a connection's outbox and returns its receive side. The
// connection stays anonymous (no presence entry) until a login completes.
func (h *Hub) Register(connID string) <-chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(chan []byte, outboxBuffer)
	h.outboxes[connID] = out

	h.logger.Debug().Str("conn_id", connID).Msg("Connection registered.")

	return out
}

// Login binds the connection to a durable identity and announces the updated
// user list to everyone. The issued user id goes back to this connection only.
// An empty (post-trim) username is a validation failure: no state changes, no
// broadcast, and the connection stays anonymous.
func (h *Hub) Login(connID, username, userID string) *errs.CustomError {
	username = strings.TrimSpace(username)
	if username == "" {
		return errs.NewError(errs.ErrInvalidUsername)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, open := h.outboxes[connID]; !open {
		// Connection already gone; nothing to bind.
		return nil
	}

	profile := h.identity.Resolve(userID, username)
	h.presence.Add(connID, profile)

	h.sendTo(connID, TypeUserID, profile.ID)
	h.broadcastUserList()

	h.logger.Info().
		Str("conn_id", connID).
		Str("user_id", profile.ID).
		Str("username", profile.Username).
		Int("online", h.presence.Len()).
		Msg("User logged in.")

	return nil
}

// Rename changes the display name of the identity bound to connID, rewrites
// every presence entry sharing that identity, and announces the change with a
// system chat message. An empty name or one matching the caller's live entry
// is a no-op: no store write, no broadcast.
func (h *Hub) Rename(connID, newUsername string) {
	newUsername = strings.TrimSpace(newUsername)

	h.mu.Lock()
	defer h.mu.Unlock()

	live, ok := h.presence.Get(connID)
	if !ok {
		h.logger.Debug().Str("conn_id", connID).Msg("Rename from connection without login dropped.")
		return
	}

	if newUsername == "" || newUsername == live.Username {
		return
	}

	oldUsername := live.Username

	// The store may already carry the new name when another connection of the
	// same identity logged in with it; this connection's presence entry is
	// still stale, so the rewrite and broadcasts go out either way.
	profile, changed := h.identity.Update(live.ID, identity.Patch{Username: newUsername})
	if profile.ID == "" {
		return
	}

	h.presence.UpdateProfileForAll(live.ID, profile)
	h.broadcastUserList()
	h.broadcast(TypeMessage, TextBroadcast{
		Content:   oldUsername + " renamed to " + newUsername,
		From:      SystemSender,
		Timestamp: timestampNow(),
	})

	h.logger.Info().
		Str("user_id", live.ID).
		Str("old_username", oldUsername).
		Str("new_username", newUsername).
		Bool("store_updated", changed).
		Msg("User renamed.")
}

// SetAvatar updates the avatar of the identity bound to connID and broadcasts
// the refreshed user list. No system message accompanies avatar changes.
func (h *Hub) SetAvatar(connID, avatarURL string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	live, ok := h.presence.Get(connID)
	if !ok {
		h.logger.Debug().Str("conn_id", connID).Msg("Avatar update from connection without login dropped.")
		return
	}

	avatarPath := avatarURL
	if h.publicBaseURL != "" {
		avatarPath = strings.TrimPrefix(avatarPath, h.publicBaseURL)
	}
	if avatarPath == "" {
		return
	}

	profile, changed := h.identity.Update(live.ID, identity.Patch{Avatar: avatarPath})
	if !changed {
		return
	}

	h.presence.UpdateProfileForAll(live.ID, profile)
	h.broadcastUserList()

	h.logger.Info().
		Str("user_id", live.ID).
		Str("avatar", avatarPath).
		Msg("Avatar updated.")
}

// RelayText stamps an inbound chat message with the sender and current time
// and broadcasts it to every connection, including the sender. Messages from
// connections that never completed login are dropped silently.
func (h *Hub) RelayText(connID string, payload TextPayload) {
	h.mu.Lock()
	defer h.mu.Unlock()

	live, ok := h.presence.Get(connID)
	if !ok {
		return
	}

	h.broadcast(TypeMessage, TextBroadcast{
		Content:   payload.Content,
		From:      live.Username,
		Timestamp: timestampNow(),
	})
}

// RelayImage broadcasts an image message, stamped like RelayText.
func (h *Hub) RelayImage(connID string, payload ImagePayload) {
	h.mu.Lock()
	defer h.mu.Unlock()

	live, ok := h.presence.Get(connID)
	if !ok {
		return
	}

	h.broadcast(TypeImage, ImageBroadcast{
		ImageURL:  payload.ImageURL,
		From:      live.Username,
		Timestamp: timestampNow(),
	})
}

// RelayFile broadcasts a file message, stamped like RelayText.
func (h *Hub) RelayFile(connID string, payload FilePayload) {
	h.mu.Lock()
	defer h.mu.Unlock()

	live, ok := h.presence.Get(connID)
	if !ok {
		return
	}

	h.broadcast(TypeFile, FileBroadcast{
		FileURL:   payload.FileURL,
		FileName:  payload.FileName,
		FileSize:  payload.FileSize,
		From:      live.Username,
		Timestamp: timestampNow(),
	})
}

// Disconnect removes the connection's outbox and presence entry and, when the
// connection had completed a login, broadcasts the shrunken user list. Safe to
// call for connections that never logged in or are already gone.
func (h *Hub) Disconnect(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	out, open := h.outboxes[connID]
	if open {
		delete(h.outboxes, connID)
		close(out)
	}

	if _, hadPresence := h.presence.Get(connID); hadPresence {
		h.presence.Remove(connID)
		h.broadcastUserList()
	}

	if open {
		h.logger.Info().
			Str("conn_id", connID).
			Int("online", h.presence.Len()).
			Msg("Connection closed.")
	}
}

// OnlineCount returns the number of connections with a completed login.
func (h *Hub) OnlineCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.presence.Len()
}

// Shutdown closes every outbox, releasing all client write pumps.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for connID, out := range h.outboxes {
		delete(h.outboxes, connID)
		close(out)
	}

	h.logger.Info().Msg("Hub shut down.")
}

// broadcastUserList pushes the full presence snapshot to every connection.
// Called with the hub lock held, in the same critical section as the mutation
// that triggered it.
func (h *Hub) broadcastUserList() {
	h.broadcast(TypeUserList, h.presence.Snapshot())
}

// broadcast encodes one outbound frame and queues it on every outbox.
// Non-blocking: a full queue drops the frame for that client only.
func (h *Hub) broadcast(t MessageType, payload any) {
	frame, err := encodeOutbound(t, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("msg_type", string(t)).Msg("Failed to encode broadcast frame.")
		return
	}

	for connID, out := range h.outboxes {
		select {
		case out <- frame:
		default:
			h.logger.Warn().
				Str("conn_id", connID).
				Str("msg_type", string(t)).
				Msg("Client send queue full, dropping frame.")
		}
	}
}

// sendTo queues one outbound frame for a single connection.
// Called with the hub lock held.
func (h *Hub) sendTo(connID string, t MessageType, payload any) {
	out, ok := h.outboxes[connID]
	if !ok {
		return
	}

	frame, err := encodeOutbound(t, payload)
	if err != nil {
		h.logger.Error().Err(err).Str("msg_type", string(t)).Msg("Failed to encode frame.")
		return
	}

	select {
	case out <- frame:
	default:
		h.logger.Warn().
			Str("conn_id", connID).
			Str("msg_type", string(t)).
			Msg("Client send queue full, dropping frame.")
	}
}
