// Package session issues and verifies the signed tokens that authenticate
// profile editing. Tokens are HS256 JWTs carrying the username as subject;
// issuing them is the job of the identity provider fronting this service,
// mirrored locally by the profiled-token command.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the cookie the web handlers read sessions from.
const CookieName = "profiled_session"

// ErrNoSession is returned when a request carries no session token.
var ErrNoSession = errors.New("no session")

// ErrInvalidSession is returned when a session token fails verification.
var ErrInvalidSession = errors.New("invalid session")

// Manager signs and verifies session tokens.
type Manager struct {
	key    []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewManager returns a Manager signing with the given HMAC key.
func NewManager(key, issuer string, ttl time.Duration) (*Manager, error) {
	if key == "" {
		return nil, errors.New("session: signing key is required")
	}
	if issuer == "" {
		return nil, errors.New("session: issuer is required")
	}
	if ttl <= 0 {
		return nil, errors.New("session: ttl must be positive")
	}
	return &Manager{
		key:    []byte(key),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// SetNow overrides the clock, for tests.
func (m *Manager) SetNow(now func() time.Time) {
	m.now = now
}

// Issue returns a signed session token for the given username.
func (m *Manager) Issue(username string) (string, error) {
	if username == "" {
		return "", errors.New("session: username is required")
	}

	now := m.now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    m.issuer,
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

// Verify checks a session token and returns the username it was issued for.
func (m *Manager) Verify(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(_ *jwt.Token) (any, error) {
		return m.key, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return m.now() }),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidSession)
	}
	return claims.Subject, nil
}

// Username resolves the requester's username from the session cookie or an
// Authorization bearer token. Returns ErrNoSession when neither is present.
func (m *Manager) Username(r *http.Request) (string, error) {
	token := ""
	if c, err := r.Cookie(CookieName); err == nil {
		token = c.Value
	}
	if token == "" {
		if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			token = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if token == "" {
		return "", ErrNoSession
	}
	return m.Verify(token)
}

// Cookie wraps a token in the session cookie.
func Cookie(token string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}
