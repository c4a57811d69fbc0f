package web

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openprofiles/profiled/config"
	"github.com/openprofiles/profiled/dispatch"
	"github.com/openprofiles/profiled/middleware"
	"github.com/openprofiles/profiled/profiles"
	"github.com/openprofiles/profiled/profiles/memory"
	"github.com/openprofiles/profiled/session"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.PageSize = 2
	cfg.Session.Key = "test-signing-key"
	return cfg
}

func newTestServer(t *testing.T, cfg config.Config) (*Server, *memory.Store) {
	t.Helper()

	store := memory.NewStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv, err := NewServer(cfg, store, logger)
	require.NoError(t, err)
	return srv, store
}

func seedProfiles(t *testing.T, store *memory.Store, usernames ...string) {
	t.Helper()
	for _, u := range usernames {
		_, err := store.Upsert(context.Background(), profiles.Profile{Username: u})
		require.NoError(t, err)
	}
}

func sessionCookie(t *testing.T, cfg config.Config, username string) *http.Cookie {
	t.Helper()

	mgr, err := session.NewManager(cfg.Session.Key, cfg.Session.Issuer, time.Duration(cfg.Session.TTL))
	require.NoError(t, err)
	token, err := mgr.Issue(username)
	require.NoError(t, err)
	return session.Cookie(token, time.Duration(cfg.Session.TTL))
}

func TestReverseLookup(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	cases := []struct {
		name  string
		pairs []string
		want  string
	}{
		{RouteProfileList, nil, "/"},
		{RouteProfileDetail, []string{"username", "alice"}, "/profile/alice/"},
		{RouteProfileEdit, nil, "/edit/"},
		{RouteUsernameAutocomplete, nil, "/username_autocomplete/"},
	}
	for _, tc := range cases {
		path, err := srv.Router().Reverse(tc.name, tc.pairs...)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.want, path, tc.name)
	}
}

func TestRouteResolution(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	cases := []struct {
		path     string
		wantName string
		wantVars map[string]string
	}{
		{"/", RouteProfileList, nil},
		{"/profile/john.doe/", RouteProfileDetail, map[string]string{"username": "john.doe"}},
		{"/edit/", RouteProfileEdit, nil},
		{"/username_autocomplete/", RouteUsernameAutocomplete, nil},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		var match dispatch.RouteMatch
		require.True(t, srv.Router().Match(req, &match), tc.path)
		assert.Equal(t, tc.wantName, match.Route.GetName(), tc.path)
		if tc.wantVars != nil {
			assert.Equal(t, tc.wantVars, match.Vars, tc.path)
		}
	}
}

func TestProfileList(t *testing.T) {
	srv, store := newTestServer(t, testConfig())
	seedProfiles(t, store, "alice", "bob")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "@alice")
	assert.Contains(t, body, "@bob")
	assert.Contains(t, body, `href="/profile/alice/"`)
}

func TestProfileListPaging(t *testing.T) {
	srv, store := newTestServer(t, testConfig())
	seedProfiles(t, store, "alice", "bob", "carol")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?page=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "@carol")
	assert.NotContains(t, body, "@alice")
	assert.Contains(t, body, "Page 2 of 2")

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?page=3", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?page=zero", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfileDetail(t *testing.T) {
	srv, store := newTestServer(t, testConfig())
	seedProfiles(t, store, "john.doe")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile/john.doe/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "@john.doe")
}

func TestProfileDetailNotFound(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile/nobody/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfileDetailRejectsBadUsername(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	for _, path := range []string{
		"/profile/bad!name/",
		"/profile/with%20space/",
	} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestProfileDetailSlashRedirect(t *testing.T) {
	srv, store := newTestServer(t, testConfig())
	seedProfiles(t, store, "alice")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/profile/alice", nil))

	require.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "/profile/alice/", rec.Header().Get("Location"))
}

func TestProfileListMethodNotAllowed(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/", nil))

	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET", rec.Header().Get("Allow"))
}

func TestProfileEditRequiresSession(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/edit/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/edit/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProfileEditForm(t *testing.T) {
	cfg := testConfig()
	srv, store := newTestServer(t, cfg)
	seedProfiles(t, store, "alice")

	req := httptest.NewRequest(http.MethodGet, "/edit/", nil)
	req.AddCookie(sessionCookie(t, cfg, "alice"))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "@alice")
	assert.Contains(t, body, `action="/edit/"`)
}

func TestProfileEditSaveCreatesProfile(t *testing.T) {
	cfg := testConfig()
	srv, store := newTestServer(t, cfg)

	form := url.Values{
		"name":     {"Alice Liddell"},
		"location": {"Wonderland"},
	}
	req := httptest.NewRequest(http.MethodPost, "/edit/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(sessionCookie(t, cfg, "alice"))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/profile/alice/", rec.Header().Get("Location"))

	p, err := store.GetByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alice Liddell", p.Name)
	assert.Equal(t, "Wonderland", p.Location)
}

func TestProfileEditRejectsBadWebsite(t *testing.T) {
	cfg := testConfig()
	srv, store := newTestServer(t, cfg)
	seedProfiles(t, store, "alice")

	form := url.Values{"website": {"javascript:alert(1)"}}
	req := httptest.NewRequest(http.MethodPost, "/edit/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(sessionCookie(t, cfg, "alice"))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func decodeAutocomplete(t *testing.T, rec *httptest.ResponseRecorder) autocompleteResponse {
	t.Helper()
	var resp autocompleteResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestAutocompleteAll(t *testing.T) {
	srv, store := newTestServer(t, testConfig())
	seedProfiles(t, store, "alice", "albert", "bob")

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/username_autocomplete/?q=al", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	resp := decodeAutocomplete(t, rec)
	assert.Equal(t, "al", resp.Query)
	assert.Equal(t, []string{"albert", "alice"}, resp.Usernames)
}

func TestAutocompleteAllEmptyResult(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/username_autocomplete/?q=zzz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeAutocomplete(t, rec)
	assert.NotNil(t, resp.Usernames)
	assert.Empty(t, resp.Usernames)
}

func TestAutocompleteFriendsScope(t *testing.T) {
	cfg := testConfig()
	cfg.Autocomplete.Scope = config.ScopeFriends
	srv, store := newTestServer(t, cfg)
	seedProfiles(t, store, "alice", "albert", "bob")
	require.NoError(t, store.AddFriend(context.Background(), "bob", "alice"))

	// no session
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/username_autocomplete/?q=al", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// bob's friends exclude albert
	req := httptest.NewRequest(http.MethodGet, "/username_autocomplete/?q=al", nil)
	req.AddCookie(sessionCookie(t, cfg, "bob"))
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeAutocomplete(t, rec)
	assert.Equal(t, []string{"alice"}, resp.Usernames)
}

// slowStore delays Count to simulate a wedged database.
type slowStore struct {
	*memory.Store
	delay time.Duration
}

func (s *slowStore) Count(ctx context.Context) (int, error) {
	select {
	case <-time.After(s.delay):
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	return s.Store.Count(ctx)
}

func TestRequestTimeout(t *testing.T) {
	cfg := testConfig()
	cfg.RequestTimeout = config.Duration(20 * time.Millisecond)

	store := &slowStore{Store: memory.NewStore(), delay: time.Second}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv, err := NewServer(cfg, store, logger)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, middleware.DefaultTimeoutMessage, rec.Body.String())
}

func TestServerRejectsBadSessionConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Session.Key = ""

	_, err := NewServer(cfg, memory.NewStore(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}

func TestRequestIDHeaderSet(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
}
