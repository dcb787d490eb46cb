/*
Package identity maintains the durable mapping from stable user ids to profiles
(display name, avatar path).

The in-memory map is authoritative for the running process. Every mutation is
persisted to the configured backend asynchronously with bounded retries, so a
slow or failing backend never blocks a login or profile update; durability is
best-effort and failures are logged.
*/
package identity

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/garyxuan/lan-chat/internal/pkg/logx"
	"github.com/garyxuan/lan-chat/internal/pkg/randx"
)

// DefaultAvatar is the avatar path assigned to newly created profiles.
const DefaultAvatar = "/public/images/default-avatar.png"

const (
	persistAttempts     = 3
	persistInitialDelay = 100 * time.Millisecond
)

// Profile is the durable record of a user identity. The id is assigned once
// and never reused; profiles are never deleted.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar"`
}

// Patch describes a partial profile update. Empty fields are left unchanged.
type Patch struct {
	Username string
	Avatar   string
}

// Backend is the persistence layer behind the Service. Load is called once at
// startup; Save receives one profile per mutation and may be retried.
type Backend interface {
	Load(ctx context.Context) (map[string]Profile, error)
	Save(ctx context.Context, profile Profile) error
	Close() error
}

// Service holds the authoritative in-memory profile table and drives
// best-effort persistence through its backend.
type Service struct {
	mu       sync.RWMutex
	profiles map[string]Profile

	backend Backend
	wg      sync.WaitGroup
	logger  zerolog.Logger
}

// NewService loads existing profiles from the backend and returns a ready Service.
// A backend with no prior data yields an empty store.
func NewService(ctx context.Context, backend Backend) (*Service, error) {
	profiles, err := backend.Load(ctx)
	if err != nil {
		return nil, err
	}

	if profiles == nil {
		profiles = make(map[string]Profile)
	}

	s := &Service{
		profiles: profiles,
		backend:  backend,
		logger:   logx.Logger().With().Str("component", "IdentityService").Logger(),
	}

	s.logger.Info().Int("profile_count", len(profiles)).Msg("Identity store loaded.")

	return s, nil
}

// Resolve returns the profile for userID, refreshing its display name from the
// login request. An unknown or empty userID allocates a fresh globally-unique
// id with the default avatar. The result is scheduled for persistence.
func (s *Service) Resolve(userID, username string) Profile {
	s.mu.Lock()

	profile, ok := s.profiles[userID]
	if ok {
		profile.Username = username
	} else {
		profile = Profile{
			ID:       randx.UserID(),
			Username: username,
			Avatar:   DefaultAvatar,
		}
	}
	s.profiles[profile.ID] = profile

	s.mu.Unlock()

	s.persist(profile)
	return profile
}

// Update applies a partial update to the profile for userID and schedules
// persistence. It reports false without touching the store when the id is
// unknown or the patch changes nothing.
func (s *Service) Update(userID string, patch Patch) (Profile, bool) {
	s.mu.Lock()

	profile, ok := s.profiles[userID]
	if !ok {
		s.mu.Unlock()
		return Profile{}, false
	}

	changed := false
	if patch.Username != "" && patch.Username != profile.Username {
		profile.Username = patch.Username
		changed = true
	}
	if patch.Avatar != "" && patch.Avatar != profile.Avatar {
		profile.Avatar = patch.Avatar
		changed = true
	}

	if changed {
		s.profiles[userID] = profile
	}

	s.mu.Unlock()

	if changed {
		s.persist(profile)
	}

	return profile, changed
}

// Get returns the profile for userID if it exists.
func (s *Service) Get(userID string) (Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, ok := s.profiles[userID]
	return profile, ok
}

// Count returns the number of known profiles.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.profiles)
}

// persist writes the profile to the backend on a separate goroutine with
// exponential-backoff retries. The in-memory state has already advanced;
// a write that keeps failing is logged and dropped.
func (s *Service) persist(profile Profile) {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		delay := persistInitialDelay

		var err error
		for attempt := 1; attempt <= persistAttempts; attempt++ {
			err = s.backend.Save(context.Background(), profile)
			if err == nil {
				return
			}

			if attempt < persistAttempts {
				time.Sleep(delay)
				delay *= 2
			}
		}

		s.logger.Error().
			Err(err).
			Str("user_id", profile.ID).
			Int("attempts", persistAttempts).
			Msg("Failed to persist profile; in-memory state remains authoritative.")
	}()
}

// Close waits for in-flight persistence writes to finish and closes the backend.
func (s *Service) Close() error {
	s.wg.Wait()
	return s.backend.Close()
}
