/*
Package chat contains the core logic for tracking online users and broadcasting
chat traffic to every connected client.

This file defines the presence table: the in-memory mapping from an active
connection id to the identity currently bound to it. It is the live source of
truth for "who is online right now". The table is not self-locking; the Hub
serializes all access behind its own mutex.
*/
package chat

import "github.com/garyxuan/lan-chat/internal/app/identity"

// LiveUser pairs a connection with the profile snapshot bound to it. One
// LiveUser exists per active connection; the same identity logged in over
// several connections appears once per connection.
type LiveUser struct {
	identity.Profile
	ConnectionID string `json:"connectionId"`
}

// Presence maps connection ids to LiveUsers, preserving insertion order for
// deterministic snapshots.
type Presence struct {
	entries map[string]LiveUser
	order   []string
}

// NewPresence returns an empty presence table.
func NewPresence() *Presence {
	return &Presence{
		entries: make(map[string]LiveUser),
	}
}

// Add inserts or replaces the LiveUser for connID. Replacing keeps the
// connection's original position in the snapshot order.
func (p *Presence) Add(connID string, profile identity.Profile) {
	if _, exists := p.entries[connID]; !exists {
		p.order = append(p.order, connID)
	}

	p.entries[connID] = LiveUser{
		Profile:      profile,
		ConnectionID: connID,
	}
}

// Remove deletes the entry for connID; a no-op when absent.
func (p *Presence) Remove(connID string) {
	if _, exists := p.entries[connID]; !exists {
		return
	}

	delete(p.entries, connID)

	for i, id := range p.order {
		if id == connID {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Get returns the LiveUser bound to connID if one exists.
func (p *Presence) Get(connID string) (LiveUser, bool) {
	live, ok := p.entries[connID]
	return live, ok
}

// UpdateProfileForAll replaces the profile snapshot on every connection bound
// to userID, covering identities logged in from several devices at once.
func (p *Presence) UpdateProfileForAll(userID string, profile identity.Profile) {
	for connID, live := range p.entries {
		if live.ID == userID {
			live.Profile = profile
			p.entries[connID] = live
		}
	}
}

// Snapshot returns the current LiveUsers in insertion order.
func (p *Presence) Snapshot() []LiveUser {
	users := make([]LiveUser, 0, len(p.entries))
	for _, connID := range p.order {
		users = append(users, p.entries[connID])
	}
	return users
}

// Len returns the number of connections with a completed login.
func (p *Presence) Len() int {
	return len(p.entries)
}
