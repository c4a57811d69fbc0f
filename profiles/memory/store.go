// Package memory provides an in-memory profile store used by tests and by
// the server when no database path is configured.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/openprofiles/profiled/profiles"
)

// Store is an in-memory profiles.Store. Safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	byUser  map[string]profiles.Profile
	friends map[string]map[string]bool
	now     func() time.Time
}

// NewStore returns an empty in-memory store.
func NewStore() *Store {
	return &Store{
		byUser:  make(map[string]profiles.Profile),
		friends: make(map[string]map[string]bool),
		now:     time.Now,
	}
}

// SetNow overrides the clock, for tests.
func (s *Store) SetNow(now func() time.Time) {
	s.now = now
}

// GetByUsername loads a profile. Returns profiles.ErrNotFound when absent.
func (s *Store) GetByUsername(_ context.Context, username string) (profiles.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byUser[username]
	if !ok {
		return profiles.Profile{}, profiles.ErrNotFound
	}
	return p, nil
}

// List returns profiles ordered by username.
func (s *Store) List(_ context.Context, opts profiles.ListOptions) ([]profiles.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	usernames := make([]string, 0, len(s.byUser))
	for u := range s.byUser {
		usernames = append(usernames, u)
	}
	sort.Strings(usernames)

	if opts.Offset > len(usernames) {
		return nil, nil
	}
	usernames = usernames[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(usernames) {
		usernames = usernames[:opts.Limit]
	}

	out := make([]profiles.Profile, 0, len(usernames))
	for _, u := range usernames {
		out = append(out, s.byUser[u])
	}
	return out, nil
}

// Count returns the total number of profiles.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byUser), nil
}

// SearchUsernames returns up to limit usernames with the given prefix.
func (s *Store) SearchUsernames(_ context.Context, prefix string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return collectUsernames(s.byUser, prefix, limit, nil), nil
}

// FriendUsernames is SearchUsernames restricted to the friends of username.
func (s *Store) FriendUsernames(_ context.Context, username, prefix string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	edges := s.friends[username]
	if len(edges) == 0 {
		return nil, nil
	}
	return collectUsernames(s.byUser, prefix, limit, edges), nil
}

// Upsert creates or updates the profile keyed by username.
func (s *Store) Upsert(_ context.Context, p profiles.Profile) (profiles.Profile, error) {
	p.Normalize()
	if err := p.Validate(); err != nil {
		return profiles.Profile{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	if existing, ok := s.byUser[p.Username]; ok {
		p.ID = existing.ID
		p.CreatedAt = existing.CreatedAt
	} else {
		p.ID = uuid.New().String()
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	s.byUser[p.Username] = p
	return p, nil
}

// AddFriend records a directed friendship edge.
func (s *Store) AddFriend(_ context.Context, username, friend string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUser[username]; !ok {
		return profiles.ErrNotFound
	}
	if _, ok := s.byUser[friend]; !ok {
		return profiles.ErrNotFound
	}

	edges := s.friends[username]
	if edges == nil {
		edges = make(map[string]bool)
		s.friends[username] = edges
	}
	edges[friend] = true
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

// collectUsernames returns the sorted usernames matching prefix, optionally
// restricted to the allow set, capped at limit.
func collectUsernames(byUser map[string]profiles.Profile, prefix string, limit int, allow map[string]bool) []string {
	if limit <= 0 {
		limit = profiles.DefaultSearchLimit
	}

	var out []string
	for u := range byUser {
		if allow != nil && !allow[u] {
			continue
		}
		if strings.HasPrefix(u, prefix) {
			out = append(out, u)
		}
	}
	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
