package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garyxuan/lan-chat/internal/app/identity"
)

func profile(id, name string) identity.Profile {
	return identity.Profile{ID: id, Username: name, Avatar: identity.DefaultAvatar}
}

func snapshotNames(p *Presence) []string {
	var names []string
	for _, live := range p.Snapshot() {
		names = append(names, live.Username)
	}
	return names
}

func TestPresenceSnapshotKeepsInsertionOrder(t *testing.T) {
	p := NewPresence()

	p.Add("c1", profile("u1", "alice"))
	p.Add("c2", profile("u2", "bob"))
	p.Add("c3", profile("u3", "carol"))

	assert.Equal(t, []string{"alice", "bob", "carol"}, snapshotNames(p))
	assert.Equal(t, 3, p.Len())
}

func TestPresenceAddIsIdempotentPerConnection(t *testing.T) {
	p := NewPresence()

	p.Add("c1", profile("u1", "alice"))
	p.Add("c2", profile("u2", "bob"))
	p.Add("c1", profile("u1", "alice2"))

	assert.Equal(t, 2, p.Len())
	// Replacing keeps c1 at its original position.
	assert.Equal(t, []string{"alice2", "bob"}, snapshotNames(p))
}

func TestPresenceRemoveMissingIsNoop(t *testing.T) {
	p := NewPresence()

	p.Add("c1", profile("u1", "alice"))
	p.Remove("ghost")
	p.Remove("c1")
	p.Remove("c1")

	assert.Equal(t, 0, p.Len())
	assert.Empty(t, p.Snapshot())
}

func TestPresenceUpdateProfileForAllConnections(t *testing.T) {
	p := NewPresence()

	// Same identity on two connections, another identity on a third.
	p.Add("c1", profile("u1", "alice"))
	p.Add("c2", profile("u1", "alice"))
	p.Add("c3", profile("u2", "bob"))

	p.UpdateProfileForAll("u1", profile("u1", "alicia"))

	assert.Equal(t, []string{"alicia", "alicia", "bob"}, snapshotNames(p))

	live, ok := p.Get("c3")
	assert.True(t, ok)
	assert.Equal(t, "bob", live.Username)
}
