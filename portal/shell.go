// Package portal ties the portal together: the session, the router, the backend and the mounted dashboard.
package portal

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/certdesk/core"
	"github.com/trezcool/certdesk/core/user"
	"github.com/trezcool/certdesk/portal/backend"
	"github.com/trezcool/certdesk/portal/dashboard"
	"github.com/trezcool/certdesk/portal/router"
	"github.com/trezcool/certdesk/portal/session"
)

const (
	msgLoginFailed      = "Login failed"
	msgLoginUnavailable = "Server error. Please try again later."
)

var viewRoles = map[router.View]user.Role{
	router.Student:   user.RoleStudent,
	router.Teacher:   user.RoleTeacher,
	router.Organizer: user.RoleOrganizer,
	router.Admin:     user.RoleAdmin,
}

// Shell owns the portal state. It is the only place the session is cleared from.
type Shell struct {
	sessions *session.Store
	router   router.Router
	backend  backend.Backend
	logger   core.Logger

	mu         sync.Mutex
	location   string
	loader     *dashboard.Loader
	loaderView router.View
}

// NewShell returns a Shell located on the landing route of the stored session, if any.
func NewShell(sessions *session.Store, r router.Router, b backend.Backend, logger core.Logger) *Shell {
	s := &Shell{
		sessions: sessions,
		router:   r,
		backend:  b,
		logger:   logger,
		location: r.LoginRoute(),
	}
	if sess := sessions.Get(); sess != nil {
		s.location = r.RouteFor(sess.Role)
	}
	return s
}

func (s *Shell) Backend() backend.Backend { return s.backend }

func (s *Shell) Session() *session.Session {
	return s.sessions.Get()
}

func (s *Shell) Location() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.location
}

// View returns the view selected for the current location and session.
func (s *Shell) View() router.View {
	return s.router.Select(s.Location(), s.Session())
}

// Navigate moves to location and returns the view it selects.
func (s *Shell) Navigate(location string) router.View {
	s.mu.Lock()
	s.location = location
	s.mu.Unlock()
	return s.View()
}

// Login authenticates, stores the session and moves to the user's dashboard.
// The returned status is the message to display on failure.
func (s *Shell) Login(ctx context.Context, creds backend.Credentials) (router.View, string, error) {
	sess, err := s.backend.Login(ctx, creds)
	if err != nil {
		if backend.IsUnavailable(err) {
			return router.Login, msgLoginUnavailable, err
		}
		if _, ok := errors.Cause(err).(*backend.Error); !ok {
			s.logger.Error("logging in", err)
		}
		return router.Login, backend.MessageOf(err, msgLoginFailed), err
	}

	if err = s.sessions.Set(sess.Role, sess.ID); err != nil {
		s.logger.Error("storing session", err)
		return router.Login, msgLoginFailed, err
	}
	return s.Navigate(s.router.RouteFor(sess.Role)), "", nil
}

// Logout clears the session and moves to the login view.
func (s *Shell) Logout() error {
	err := s.sessions.Clear()

	s.mu.Lock()
	s.location = s.router.LoginRoute()
	s.unmountLoader()
	s.mu.Unlock()
	return err
}

// Dashboard mounts the loader of the current view, unmounting the previous one.
// It returns nil on the login view. done is closed once the loader's fetch is over.
func (s *Shell) Dashboard(ctx context.Context) (l *dashboard.Loader, done <-chan struct{}) {
	sess := s.Session()
	view := s.View()

	s.mu.Lock()
	defer s.mu.Unlock()

	role, ok := viewRoles[view]
	if !ok || sess == nil {
		s.unmountLoader()
		return nil, nil
	}
	if s.loader == nil || s.loaderView != view {
		s.unmountLoader()
		s.loader = dashboard.NewLoader(s.backend)
		s.loaderView = view
	}
	return s.loader, s.loader.Load(ctx, role, sess.ID)
}

// unmountLoader must be called with s.mu held.
func (s *Shell) unmountLoader() {
	if s.loader != nil {
		s.loader.Unmount()
		s.loader = nil
	}
}
