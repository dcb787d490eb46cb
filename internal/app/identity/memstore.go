package identity

import (
	"context"
	"sync"
)

// MemoryStore is a Backend that keeps profiles purely in memory. Nothing
// survives a restart; it backs tests and can serve as an explicit
// no-persistence mode.
type MemoryStore struct {
	mu       sync.Mutex
	profiles map[string]Profile
	saves    int
}

// NewMemoryStore returns an empty in-memory backend.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		profiles: make(map[string]Profile),
	}
}

// Load returns a copy of the current profile map.
func (m *MemoryStore) Load(ctx context.Context) (map[string]Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]Profile, len(m.profiles))
	for id, p := range m.profiles {
		out[id] = p
	}
	return out, nil
}

// Save stores the profile.
func (m *MemoryStore) Save(ctx context.Context, profile Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.profiles[profile.ID] = profile
	m.saves++
	return nil
}

// SaveCount reports how many Save calls the store has received.
func (m *MemoryStore) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.saves
}

// Close implements Backend.
func (m *MemoryStore) Close() error {
	return nil
}

var _ Backend = (*MemoryStore)(nil)
