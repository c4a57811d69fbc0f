// Package profiles defines the user-profile domain: the Profile entity,
// username validation, and the storage contract implemented by the sqlite
// and memory backends.
package profiles

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// MaxUsernameLen is the maximum accepted username length.
const MaxUsernameLen = 30

// usernameRe is the accepted username alphabet: word characters, dots,
// underscores, and hyphens. It is the same character class the profile
// detail route captures, so any stored username is addressable.
var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidUsername reports whether s is a well-formed username.
func ValidUsername(s string) bool {
	return s != "" && len(s) <= MaxUsernameLen && usernameRe.MatchString(s)
}

// Profile is a user's public profile.
type Profile struct {
	ID        string
	Username  string
	Name      string
	About     string
	Location  string
	Website   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Normalize trims surrounding whitespace from all free-text fields.
func (p *Profile) Normalize() {
	p.Username = strings.TrimSpace(p.Username)
	p.Name = strings.TrimSpace(p.Name)
	p.About = strings.TrimSpace(p.About)
	p.Location = strings.TrimSpace(p.Location)
	p.Website = strings.TrimSpace(p.Website)
}

// Validate checks the profile's fields, returning the first violation.
func (p Profile) Validate() error {
	if !ValidUsername(p.Username) {
		return fmt.Errorf("%w: %q", ErrInvalidUsername, p.Username)
	}
	if p.Website != "" && !strings.HasPrefix(p.Website, "http://") && !strings.HasPrefix(p.Website, "https://") {
		return fmt.Errorf("website must be an http(s) URL, got %q", p.Website)
	}
	return nil
}

// DisplayName returns the profile's name, falling back to the username.
func (p Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Username
}
