package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore persists profiles to a single JSON file. The on-disk format is an
// array of [id, profile] pairs, the same shape the original relay kept in
// data/users.json, so an existing file round-trips unchanged.
type FileStore struct {
	mu       sync.Mutex
	path     string
	profiles map[string]Profile
}

// NewFileStore returns a FileStore writing to the given path. The file is not
// touched until Load or the first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:     path,
		profiles: make(map[string]Profile),
	}
}

// Load reads the backing file. A missing file is not an error: it yields an
// empty profile map, matching a first run.
func (f *FileStore) Load(ctx context.Context) (map[string]Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Profile{}, nil
		}
		return nil, fmt.Errorf("failed to read user data file %s: %w", f.path, err)
	}

	var entries [][2]json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse user data file %s: %w", f.path, err)
	}

	profiles := make(map[string]Profile, len(entries))
	for _, entry := range entries {
		var id string
		if err := json.Unmarshal(entry[0], &id); err != nil {
			return nil, fmt.Errorf("failed to parse user id in %s: %w", f.path, err)
		}

		var profile Profile
		if err := json.Unmarshal(entry[1], &profile); err != nil {
			return nil, fmt.Errorf("failed to parse profile for user %s: %w", id, err)
		}

		profiles[id] = profile
	}

	f.profiles = make(map[string]Profile, len(profiles))
	for id, p := range profiles {
		f.profiles[id] = p
	}

	return profiles, nil
}

// Save updates the given profile in the store's own copy and rewrites the whole
// file. Writes go through a temp file plus rename so a crash mid-write never
// leaves a truncated user data file.
func (f *FileStore) Save(ctx context.Context, profile Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.profiles[profile.ID] = profile

	entries := make([][2]any, 0, len(f.profiles))
	for id, p := range f.profiles {
		entries = append(entries, [2]any{id, p})
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode user data: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".users-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp user data file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write user data: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp user data file: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace user data file: %w", err)
	}

	return nil
}

// Close implements Backend. The file store holds no open resources.
func (f *FileStore) Close() error {
	return nil
}
