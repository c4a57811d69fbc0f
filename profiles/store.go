package profiles

import (
	"context"
	"errors"
)

// ErrNotFound is returned when no profile exists for the requested username.
var ErrNotFound = errors.New("profile not found")

// ErrInvalidUsername is returned when a username fails validation.
var ErrInvalidUsername = errors.New("invalid username")

// DefaultSearchLimit bounds username completion results when the caller
// passes a non-positive limit.
const DefaultSearchLimit = 10

// ListOptions pages through profiles ordered by username.
type ListOptions struct {
	Offset int
	Limit  int
}

// Store persists profiles and the friendship edges behind the friends-only
// username completion.
type Store interface {
	// GetByUsername loads a profile. Returns ErrNotFound when absent.
	GetByUsername(ctx context.Context, username string) (Profile, error)

	// List returns profiles ordered by username. A non-positive limit
	// returns all remaining profiles.
	List(ctx context.Context, opts ListOptions) ([]Profile, error)

	// Count returns the total number of profiles.
	Count(ctx context.Context) (int, error)

	// SearchUsernames returns up to limit usernames with the given prefix,
	// ordered alphabetically. An empty prefix matches every username.
	SearchUsernames(ctx context.Context, prefix string, limit int) ([]string, error)

	// FriendUsernames is SearchUsernames restricted to the friends of
	// username.
	FriendUsernames(ctx context.Context, username, prefix string, limit int) ([]string, error)

	// Upsert creates or updates the profile keyed by username, assigning
	// the ID and timestamps on create. The stored profile is returned.
	Upsert(ctx context.Context, p Profile) (Profile, error)

	// AddFriend records a directed friendship edge. Both usernames must
	// have profiles.
	AddFriend(ctx context.Context, username, friend string) error

	// Close releases the store's resources.
	Close() error
}
