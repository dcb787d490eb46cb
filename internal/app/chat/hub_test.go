package chat

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyxuan/lan-chat/internal/app/identity"
)

func newTestHub(t *testing.T) (*Hub, *identity.MemoryStore) {
	t.Helper()

	backend := identity.NewMemoryStore()
	ids, err := identity.NewService(context.Background(), backend)
	require.NoError(t, err)
	t.Cleanup(func() { ids.Close() })

	return NewHub(ids, "http://localhost:3000"), backend
}

// nextFrame pulls the next queued frame from an outbox, failing the test when
// none arrives promptly.
func nextFrame(t *testing.T, out <-chan []byte) Envelope {
	t.Helper()

	select {
	case frame, ok := <-out:
		require.True(t, ok, "outbox closed while a frame was expected")
		var envelope Envelope
		require.NoError(t, json.Unmarshal(frame, &envelope))
		return envelope
	case <-time.After(time.Second):
		t.Fatal("no frame queued on outbox")
		return Envelope{}
	}
}

func decodeUserList(t *testing.T, envelope Envelope) []LiveUser {
	t.Helper()

	require.Equal(t, TypeUserList, envelope.Type)
	var users []LiveUser
	require.NoError(t, json.Unmarshal(envelope.Payload, &users))
	return users
}

func decodeText(t *testing.T, envelope Envelope) TextBroadcast {
	t.Helper()

	require.Equal(t, TypeMessage, envelope.Type)
	var msg TextBroadcast
	require.NoError(t, json.Unmarshal(envelope.Payload, &msg))
	return msg
}

func assertNoFrame(t *testing.T, out <-chan []byte) {
	t.Helper()

	select {
	case frame := <-out:
		t.Fatalf("unexpected frame queued: %s", frame)
	default:
	}
}

func TestLoginIssuesIDAndBroadcastsUserList(t *testing.T) {
	hub, _ := newTestHub(t)

	aliceOut := hub.Register("conn-a")
	require.Nil(t, hub.Login("conn-a", "alice", ""))

	// The new user id goes to alice only, before the list broadcast.
	idEnvelope := nextFrame(t, aliceOut)
	require.Equal(t, TypeUserID, idEnvelope.Type)
	var aliceID string
	require.NoError(t, json.Unmarshal(idEnvelope.Payload, &aliceID))
	assert.NotEmpty(t, aliceID)

	users := decodeUserList(t, nextFrame(t, aliceOut))
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, aliceID, users[0].ID)
	assert.Equal(t, "conn-a", users[0].ConnectionID)
	assert.Equal(t, identity.DefaultAvatar, users[0].Avatar)

	// Second login reaches both clients with the full two-entry list.
	bobOut := hub.Register("conn-b")
	require.Nil(t, hub.Login("conn-b", "bob", ""))

	require.Equal(t, TypeUserID, nextFrame(t, bobOut).Type)
	for _, out := range []<-chan []byte{aliceOut, bobOut} {
		users := decodeUserList(t, nextFrame(t, out))
		require.Len(t, users, 2)
		assert.Equal(t, "alice", users[0].Username)
		assert.Equal(t, "bob", users[1].Username)
	}

	assert.Equal(t, 2, hub.OnlineCount())
}

func TestLoginWithEmptyUsernameIsRejected(t *testing.T) {
	hub, backend := newTestHub(t)

	out := hub.Register("conn-a")

	customErr := hub.Login("conn-a", "   ", "")
	require.NotNil(t, customErr)

	assertNoFrame(t, out)
	assert.Equal(t, 0, hub.OnlineCount())
	assert.Equal(t, 0, backend.SaveCount())
}

func TestRelayStampsSenderAndTimestamp(t *testing.T) {
	hub, _ := newTestHub(t)

	aliceOut := hub.Register("conn-a")
	bobOut := hub.Register("conn-b")
	require.Nil(t, hub.Login("conn-a", "alice", ""))
	require.Nil(t, hub.Login("conn-b", "bob", ""))

	// Drain login traffic.
	nextFrame(t, aliceOut) // userId
	nextFrame(t, aliceOut) // userList [alice]
	nextFrame(t, aliceOut) // userList [alice bob]
	nextFrame(t, bobOut)   // userId
	nextFrame(t, bobOut)   // userList [alice bob]

	hub.RelayText("conn-a", TextPayload{Content: "hi"})

	// Everyone receives the message, sender included.
	for _, out := range []<-chan []byte{aliceOut, bobOut} {
		msg := decodeText(t, nextFrame(t, out))
		assert.Equal(t, "hi", msg.Content)
		assert.Equal(t, "alice", msg.From)

		_, err := time.Parse(time.RFC3339, msg.Timestamp)
		assert.NoError(t, err)
	}
}

func TestRelayBeforeLoginIsDropped(t *testing.T) {
	hub, _ := newTestHub(t)

	aliceOut := hub.Register("conn-a")
	require.Nil(t, hub.Login("conn-a", "alice", ""))
	nextFrame(t, aliceOut)
	nextFrame(t, aliceOut)

	anonOut := hub.Register("conn-anon")
	hub.RelayText("conn-anon", TextPayload{Content: "sneaky"})
	hub.RelayImage("conn-anon", ImagePayload{ImageURL: "/uploads/x.png"})
	hub.RelayFile("conn-anon", FilePayload{FileURL: "/uploads/x.bin"})

	assertNoFrame(t, aliceOut)
	assertNoFrame(t, anonOut)
}

func TestRenameBroadcastsListAndSystemMessage(t *testing.T) {
	hub, _ := newTestHub(t)

	aliceOut := hub.Register("conn-a")
	bobOut := hub.Register("conn-b")
	require.Nil(t, hub.Login("conn-a", "alice", ""))
	require.Nil(t, hub.Login("conn-b", "bob", ""))

	nextFrame(t, aliceOut)
	nextFrame(t, aliceOut)
	nextFrame(t, aliceOut)
	nextFrame(t, bobOut)
	nextFrame(t, bobOut)

	hub.Rename("conn-b", "bobby")

	for _, out := range []<-chan []byte{aliceOut, bobOut} {
		users := decodeUserList(t, nextFrame(t, out))
		require.Len(t, users, 2)
		assert.Equal(t, "bobby", users[1].Username)

		msg := decodeText(t, nextFrame(t, out))
		assert.Equal(t, "bob renamed to bobby", msg.Content)
		assert.Equal(t, SystemSender, msg.From)
	}
}

func TestRenameNoopProducesNoBroadcastAndNoWrite(t *testing.T) {
	hub, backend := newTestHub(t)

	out := hub.Register("conn-a")
	require.Nil(t, hub.Login("conn-a", "alice", ""))
	nextFrame(t, out)
	nextFrame(t, out)

	writesAfterLogin := waitForSaves(t, backend, 1)

	hub.Rename("conn-a", "alice") // unchanged
	hub.Rename("conn-a", "")      // empty
	hub.Rename("conn-a", "   ")   // whitespace only

	assertNoFrame(t, out)
	assert.Equal(t, writesAfterLogin, backend.SaveCount())
}

func TestAvatarUpdateStripsBaseURLAndBroadcasts(t *testing.T) {
	hub, _ := newTestHub(t)

	out := hub.Register("conn-a")
	require.Nil(t, hub.Login("conn-a", "alice", ""))
	nextFrame(t, out)
	nextFrame(t, out)

	hub.SetAvatar("conn-a", "http://localhost:3000/public/avatars/123-abc-me.png")

	users := decodeUserList(t, nextFrame(t, out))
	require.Len(t, users, 1)
	assert.Equal(t, "/public/avatars/123-abc-me.png", users[0].Avatar)

	// No system message follows an avatar change.
	assertNoFrame(t, out)
}

func TestSameIdentityOnTwoConnections(t *testing.T) {
	hub, _ := newTestHub(t)

	firstOut := hub.Register("conn-1")
	require.Nil(t, hub.Login("conn-1", "alice", ""))

	idEnvelope := nextFrame(t, firstOut)
	require.Equal(t, TypeUserID, idEnvelope.Type)
	var aliceID string
	require.NoError(t, json.Unmarshal(idEnvelope.Payload, &aliceID))
	nextFrame(t, firstOut) // userList

	secondOut := hub.Register("conn-2")
	require.Nil(t, hub.Login("conn-2", "alice", aliceID))
	require.Equal(t, TypeUserID, nextFrame(t, secondOut).Type)

	users := decodeUserList(t, nextFrame(t, secondOut))
	require.Len(t, users, 2)
	assert.Equal(t, aliceID, users[0].ID)
	assert.Equal(t, aliceID, users[1].ID)
	assert.NotEqual(t, users[0].ConnectionID, users[1].ConnectionID)

	// A rename through one connection updates both presence entries.
	hub.Rename("conn-1", "alicia")
	nextFrame(t, firstOut) // userList on conn-1 (post-second-login)
	users = decodeUserList(t, nextFrame(t, firstOut))
	assert.Equal(t, "alicia", users[0].Username)
	assert.Equal(t, "alicia", users[1].Username)
}

func TestRenameAfterStoreNameDivergesStillBroadcasts(t *testing.T) {
	hub, _ := newTestHub(t)

	firstOut := hub.Register("conn-1")
	require.Nil(t, hub.Login("conn-1", "alice", ""))

	idEnvelope := nextFrame(t, firstOut)
	require.Equal(t, TypeUserID, idEnvelope.Type)
	var aliceID string
	require.NoError(t, json.Unmarshal(idEnvelope.Payload, &aliceID))
	nextFrame(t, firstOut) // userList [alice]

	// A second device logs in under the same identity with a newer name. The
	// store now says "alicia" while conn-1's presence entry still says "alice".
	secondOut := hub.Register("conn-2")
	require.Nil(t, hub.Login("conn-2", "alicia", aliceID))
	nextFrame(t, firstOut)  // userList [alice alicia]
	nextFrame(t, secondOut) // userId
	nextFrame(t, secondOut) // userList [alice alicia]

	hub.Rename("conn-1", "alicia")

	// The stale presence entry is rewritten and everyone hears about it even
	// though the store already held the new name.
	for _, out := range []<-chan []byte{firstOut, secondOut} {
		users := decodeUserList(t, nextFrame(t, out))
		require.Len(t, users, 2)
		assert.Equal(t, "alicia", users[0].Username)
		assert.Equal(t, "alicia", users[1].Username)

		msg := decodeText(t, nextFrame(t, out))
		assert.Equal(t, "alice renamed to alicia", msg.Content)
		assert.Equal(t, SystemSender, msg.From)
	}
}

func TestRelayImagePassesPayloadThrough(t *testing.T) {
	hub, _ := newTestHub(t)

	out := hub.Register("conn-a")
	require.Nil(t, hub.Login("conn-a", "alice", ""))
	nextFrame(t, out)
	nextFrame(t, out)

	hub.RelayImage("conn-a", ImagePayload{ImageURL: "/uploads/123-abc-cat.png"})

	envelope := nextFrame(t, out)
	require.Equal(t, TypeImage, envelope.Type)

	// Decode into a raw map so the wire field names are checked, not just the
	// struct round-trip.
	var img map[string]any
	require.NoError(t, json.Unmarshal(envelope.Payload, &img))
	assert.Equal(t, "/uploads/123-abc-cat.png", img["imageUrl"])
	assert.Equal(t, "alice", img["from"])

	ts, ok := img["timestamp"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339, ts)
	assert.NoError(t, err)
}

func TestRelayFilePassesPayloadThrough(t *testing.T) {
	hub, _ := newTestHub(t)

	out := hub.Register("conn-a")
	require.Nil(t, hub.Login("conn-a", "alice", ""))
	nextFrame(t, out)
	nextFrame(t, out)

	hub.RelayFile("conn-a", FilePayload{
		FileURL:  "/uploads/123-abc-notes.txt",
		FileName: "notes.txt",
		FileSize: 2048,
	})

	envelope := nextFrame(t, out)
	require.Equal(t, TypeFile, envelope.Type)

	var file map[string]any
	require.NoError(t, json.Unmarshal(envelope.Payload, &file))
	assert.Equal(t, "/uploads/123-abc-notes.txt", file["fileUrl"])
	assert.Equal(t, "notes.txt", file["fileName"])
	assert.Equal(t, float64(2048), file["fileSize"])
	assert.Equal(t, "alice", file["from"])

	ts, ok := file["timestamp"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339, ts)
	assert.NoError(t, err)
}

func TestDisconnectRemovesPresenceAndRebroadcasts(t *testing.T) {
	hub, _ := newTestHub(t)

	aliceOut := hub.Register("conn-a")
	bobOut := hub.Register("conn-b")
	require.Nil(t, hub.Login("conn-a", "alice", ""))
	require.Nil(t, hub.Login("conn-b", "bob", ""))

	nextFrame(t, aliceOut)
	nextFrame(t, aliceOut)
	nextFrame(t, aliceOut)
	nextFrame(t, bobOut)
	nextFrame(t, bobOut)

	hub.Disconnect("conn-b")

	users := decodeUserList(t, nextFrame(t, aliceOut))
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
	assert.Equal(t, 1, hub.OnlineCount())

	// Bob's outbox is closed.
	_, ok := <-bobOut
	assert.False(t, ok)
}

func TestDisconnectBeforeLoginIsSafe(t *testing.T) {
	hub, _ := newTestHub(t)

	aliceOut := hub.Register("conn-a")
	require.Nil(t, hub.Login("conn-a", "alice", ""))
	nextFrame(t, aliceOut)
	nextFrame(t, aliceOut)

	anonOut := hub.Register("conn-anon")
	hub.Disconnect("conn-anon")
	hub.Disconnect("conn-anon") // double disconnect

	// No list broadcast for a connection that never logged in.
	assertNoFrame(t, aliceOut)
	assert.Equal(t, 1, hub.OnlineCount())

	_, ok := <-anonOut
	assert.False(t, ok)
}

// waitForSaves blocks until the backend has seen at least n writes, returning
// the observed count. Persistence is asynchronous, so tests that compare write
// counts settle it first.
func waitForSaves(t *testing.T, backend *identity.MemoryStore, n int) int {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for backend.SaveCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("backend saw %d writes, want at least %d", backend.SaveCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}

	return backend.SaveCount()
}
