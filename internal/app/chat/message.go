/*
Package chat contains the core logic for tracking online users and broadcasting
chat traffic to every connected client.

This file defines the wire protocol: the JSON envelope exchanged over the
websocket and the tagged payload structs for each event type. Field names are
part of the client contract and must stay stable.
*/
package chat

import (
	"encoding/json"
	"time"
)

// MessageType tags an envelope with the event it carries.
type MessageType string

// Inbound event types.
const (
	TypeLogin          MessageType = "login"
	TypeMessage        MessageType = "message"
	TypeImage          MessageType = "image"
	TypeFile           MessageType = "file"
	TypeUpdateUsername MessageType = "updateUsername"
	TypeUpdateAvatar   MessageType = "updateAvatar"
)

// Outbound-only event types.
const (
	TypeUserID   MessageType = "userId"
	TypeUserList MessageType = "userList"
)

// SystemSender is the from-name on server-authored chat messages.
const SystemSender = "System"

// Envelope is the frame exchanged in both directions:
// {"type": "<event>", "payload": ...}.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// LoginPayload introduces a connection. UserID is the id issued on a previous
// visit; empty or unknown ids get a fresh identity.
type LoginPayload struct {
	Username string `json:"username"`
	UserID   string `json:"userId,omitempty"`
}

// TextPayload is an inbound chat message.
type TextPayload struct {
	Content string `json:"content"`
}

// ImagePayload is an inbound image message carrying an uploaded image URL.
type ImagePayload struct {
	ImageURL string `json:"imageUrl"`
}

// FilePayload is an inbound file message carrying an uploaded file URL.
type FilePayload struct {
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
}

// RenamePayload requests a display-name change.
type RenamePayload struct {
	OldUsername string `json:"oldUsername"`
	NewUsername string `json:"newUsername"`
}

// AvatarPayload requests an avatar change, carrying the uploaded avatar URL.
type AvatarPayload struct {
	AvatarURL string `json:"avatarUrl"`
}

// TextBroadcast is the outbound form of a chat message, stamped with the
// sender name and timestamp.
type TextBroadcast struct {
	Content   string `json:"content"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
}

// ImageBroadcast is the outbound form of an image message.
type ImageBroadcast struct {
	ImageURL  string `json:"imageUrl"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
}

// FileBroadcast is the outbound form of a file message.
type FileBroadcast struct {
	FileURL   string `json:"fileUrl"`
	FileName  string `json:"fileName"`
	FileSize  int64  `json:"fileSize"`
	From      string `json:"from"`
	Timestamp string `json:"timestamp"`
}

// encodeOutbound marshals an outbound envelope for the given event type.
func encodeOutbound(t MessageType, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return json.Marshal(Envelope{Type: t, Payload: raw})
}

// timestampNow returns the broadcast timestamp: RFC 3339 in UTC.
func timestampNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}
