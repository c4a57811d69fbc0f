package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/openprofiles/profiled/dispatch"
	"github.com/openprofiles/profiled/profiles"
	"github.com/openprofiles/profiled/session"
)

// handleProfileList renders the paginated profile list at the site root.
func (s *Server) handleProfileList(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "invalid page", http.StatusBadRequest)
			return
		}
		page = n
	}

	total, err := s.store.Count(r.Context())
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	pageSize := s.cfg.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	totalPages := (total + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		http.NotFound(w, r)
		return
	}

	list, err := s.store.List(r.Context(), profiles.ListOptions{
		Offset: (page - 1) * pageSize,
		Limit:  pageSize,
	})
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	listPath := s.reverse(RouteProfileList)
	writePage(w, http.StatusOK, "Profiles", profileListPage{
		Profiles: list,
		DetailPath: func(username string) string {
			return s.reverse(RouteProfileDetail, "username", username)
		},
		Page:       page,
		TotalPages: totalPages,
		PagePath: func(n int) string {
			if n <= 1 {
				return listPath
			}
			return fmt.Sprintf("%s?page=%d", listPath, n)
		},
	})
}

// handleProfileDetail renders a single profile by username.
func (s *Server) handleProfileDetail(w http.ResponseWriter, r *http.Request) {
	username, ok := dispatch.VarGet(r, "username")
	if !ok {
		s.serverError(w, r, errors.New("missing username variable"))
		return
	}

	p, err := s.store.GetByUsername(r.Context(), username)
	if errors.Is(err, profiles.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	viewer, _ := s.sessions.Username(r)
	writePage(w, http.StatusOK, p.DisplayName(), profileDetailPage{
		Profile:  p,
		ListPath: s.reverse(RouteProfileList),
		EditPath: s.reverse(RouteProfileEdit),
		IsOwner:  viewer == p.Username,
	})
}

// handleProfileEdit shows and processes the edit form for the signed-in
// user's own profile. The first save creates the profile.
func (s *Server) handleProfileEdit(w http.ResponseWriter, r *http.Request) {
	username, err := s.sessions.Username(r)
	if err != nil {
		http.Error(w, "sign in required", http.StatusUnauthorized)
		return
	}

	if r.Method == http.MethodPost {
		s.saveProfile(w, r, username)
		return
	}

	p, err := s.store.GetByUsername(r.Context(), username)
	if errors.Is(err, profiles.ErrNotFound) {
		p = profiles.Profile{Username: username}
	} else if err != nil {
		s.serverError(w, r, err)
		return
	}

	writePage(w, http.StatusOK, "Edit profile", profileEditPage{
		Profile: p,
		Action:  s.reverse(RouteProfileEdit),
	})
}

func (s *Server) saveProfile(w http.ResponseWriter, r *http.Request, username string) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	p := profiles.Profile{
		Username: username,
		Name:     strings.TrimSpace(r.PostFormValue("name")),
		About:    strings.TrimSpace(r.PostFormValue("about")),
		Location: strings.TrimSpace(r.PostFormValue("location")),
		Website:  strings.TrimSpace(r.PostFormValue("website")),
	}
	if err := p.Validate(); err != nil {
		writePage(w, http.StatusUnprocessableEntity, "Edit profile", profileEditPage{
			Profile: p,
			Action:  s.reverse(RouteProfileEdit),
			Error:   err.Error(),
		})
		return
	}

	if _, err := s.store.Upsert(r.Context(), p); err != nil {
		s.serverError(w, r, err)
		return
	}

	http.Redirect(w, r, s.reverse(RouteProfileDetail, "username", username), http.StatusSeeOther)
}

// autocompleteResponse is the JSON body of the username completion endpoint.
type autocompleteResponse struct {
	Query     string   `json:"q"`
	Usernames []string `json:"usernames"`
}

// handleAutocompleteAll completes usernames across every profile.
func (s *Server) handleAutocompleteAll(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	names, err := s.store.SearchUsernames(r.Context(), q, s.cfg.Autocomplete.Limit)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.respondUsernames(w, q, names)
}

// handleAutocompleteFriends completes usernames across the requester's
// friends only, so it requires a session.
func (s *Server) handleAutocompleteFriends(w http.ResponseWriter, r *http.Request) {
	username, err := s.sessions.Username(r)
	if errors.Is(err, session.ErrNoSession) || errors.Is(err, session.ErrInvalidSession) {
		http.Error(w, "sign in required", http.StatusUnauthorized)
		return
	}
	if err != nil {
		s.serverError(w, r, err)
		return
	}

	q := r.URL.Query().Get("q")
	names, err := s.store.FriendUsernames(r.Context(), username, q, s.cfg.Autocomplete.Limit)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	s.respondUsernames(w, q, names)
}

func (s *Server) respondUsernames(w http.ResponseWriter, q string, names []string) {
	if names == nil {
		names = []string{}
	}
	dispatch.RespondJSON(w, http.StatusOK, autocompleteResponse{
		Query:     q,
		Usernames: names,
	})
}
