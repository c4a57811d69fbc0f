// Package web serves the profile pages: the profile list, per-user detail
// pages, the edit form, and username completion.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"

	"github.com/openprofiles/profiled/config"
	"github.com/openprofiles/profiled/dispatch"
	"github.com/openprofiles/profiled/middleware"
	"github.com/openprofiles/profiled/profiles"
	"github.com/openprofiles/profiled/session"
)

// Route names, usable with Router.Reverse.
const (
	RouteProfileList          = "profile_list"
	RouteProfileDetail        = "profile_detail"
	RouteProfileEdit          = "profile_edit"
	RouteUsernameAutocomplete = "profile_username_autocomplete"
)

// Server wires the store, session manager, and router into an HTTP service.
type Server struct {
	cfg      config.Config
	store    profiles.Store
	sessions *session.Manager
	router   *dispatch.Router
	logger   *slog.Logger
}

// NewServer builds the server and its route table. The route table is fixed
// after this call; registration errors surface here, not at request time.
func NewServer(cfg config.Config, store profiles.Store, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sessions, err := session.NewManager(cfg.Session.Key, cfg.Session.Issuer, time.Duration(cfg.Session.TTL))
	if err != nil {
		return nil, fmt.Errorf("session manager: %w", err)
	}

	s := &Server{
		cfg:      cfg,
		store:    store,
		sessions: sessions,
		logger:   logger,
	}
	if err := s.buildRouter(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) buildRouter() error {
	r := dispatch.NewRouter().StrictSlash(true)

	secure, err := middleware.SecurityHeaders(middleware.SecurityHeadersConfig{
		FrameOption: "SAMEORIGIN",
	})
	if err != nil {
		return fmt.Errorf("security headers: %w", err)
	}

	timeout, err := middleware.Timeout(middleware.TimeoutConfig{
		Duration: time.Duration(s.cfg.RequestTimeout),
	})
	if err != nil {
		return fmt.Errorf("request timeout: %w", err)
	}

	r.Use(
		middleware.Recovery(middleware.RecoveryConfig{Logger: s.logger}),
		middleware.RequestID(middleware.RequestIDConfig{}),
		secure,
		middleware.AccessLog(middleware.AccessLogConfig{Logger: s.logger}),
		timeout,
	)

	autocomplete := s.handleAutocompleteAll
	if s.cfg.Autocomplete.Scope == config.ScopeFriends {
		autocomplete = s.handleAutocompleteFriends
	}

	r.HandleFunc("/username_autocomplete/", autocomplete).
		Methods(http.MethodGet).
		Name(RouteUsernameAutocomplete)
	r.HandleFunc("/", s.handleProfileList).
		Methods(http.MethodGet).
		Name(RouteProfileList)
	r.HandleFunc("/profile/{username:username}/", s.handleProfileDetail).
		Methods(http.MethodGet).
		Name(RouteProfileDetail)
	r.HandleFunc("/edit/", s.handleProfileEdit).
		Methods(http.MethodGet, http.MethodPost).
		Name(RouteProfileEdit)

	if err := r.Err(); err != nil {
		return err
	}
	s.router = r
	return nil
}

// Handler exposes the route table for embedding in another server or in
// tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router exposes the underlying route table for reverse lookups.
func (s *Server) Router() *dispatch.Router {
	return s.router
}

// ListenAndServe runs the HTTP server until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddr, err)
	}
	if s.cfg.MaxConns > 0 {
		ln = netutil.LimitListener(ln, s.cfg.MaxConns)
	}

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("listening", "addr", ln.Addr().String())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// reverse builds a path for a named route. Registration already validated
// every name and variable, so a failure here is a programming error.
func (s *Server) reverse(name string, pairs ...string) string {
	path, err := s.router.Reverse(name, pairs...)
	if err != nil {
		s.logger.Error("reverse lookup failed", "route", name, "error", err)
		return "/"
	}
	return path
}

func (s *Server) serverError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Error("request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", middleware.RequestIDFromContext(r.Context()),
		"error", err,
	)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
