// Package router selects the portal view to show for a location and a session.
package router

import (
	"strings"

	"github.com/trezcool/certdesk/core/user"
	"github.com/trezcool/certdesk/portal/session"
)

type View int

// Views
const (
	Login View = iota
	Student
	Teacher
	Organizer
	Admin
)

func (v View) String() string {
	switch v {
	case Student:
		return "student"
	case Teacher:
		return "teacher"
	case Organizer:
		return "organizer"
	case Admin:
		return "admin"
	default:
		return "login"
	}
}

type Variant int

// Variants
const (
	PathRouting Variant = iota // /student, /teacher, /organizer, /admin
	HashRouting                // #/student, #/advisor, #/organizer
)

var (
	pathRoutes = map[string]View{
		"/student":   Student,
		"/teacher":   Teacher,
		"/organizer": Organizer,
		"/admin":     Admin,
	}

	hashRoutes = map[string]View{
		"#/student":   Student,
		"#/advisor":   Teacher,
		"#/organizer": Organizer,
	}
)

// Select returns the view for path. Any valid session opens any protected view.
func Select(path string, s *session.Session) View {
	return selectView(pathRoutes, normalizePath(path), s)
}

// SelectHash is Select for hash-routed locations such as "#/advisor".
func SelectHash(fragment string, s *session.Session) View {
	return selectView(hashRoutes, normalizeHash(fragment), s)
}

func selectView(routes map[string]View, route string, s *session.Session) View {
	if s == nil || !s.Role.Valid() {
		return Login
	}
	if v, ok := routes[route]; ok {
		return v
	}
	return Login
}

func normalizePath(path string) string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.TrimRight(strings.TrimSpace(path), "/")
	if path == "" {
		return "/"
	}
	return path
}

func normalizeHash(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if !strings.HasPrefix(fragment, "#") {
		fragment = "#" + fragment
	}
	if i := strings.Index(fragment, "?"); i >= 0 {
		fragment = fragment[:i]
	}
	return strings.TrimRight(fragment, "/")
}

// Router binds a routing variant.
type Router struct {
	Variant Variant
}

func (r Router) Select(location string, s *session.Session) View {
	if r.Variant == HashRouting {
		return SelectHash(location, s)
	}
	return Select(location, s)
}

// RouteFor returns where to go after a user with role logged in.
func (r Router) RouteFor(role user.Role) string {
	if r.Variant == HashRouting {
		switch role {
		case user.RoleStudent:
			return "#/student"
		case user.RoleTeacher:
			return "#/advisor"
		case user.RoleOrganizer:
			return "#/organizer"
		default:
			return "#/"
		}
	}
	if !role.Valid() {
		return "/"
	}
	return "/" + string(role)
}

// LoginRoute is the location of the login view.
func (r Router) LoginRoute() string {
	if r.Variant == HashRouting {
		return "#/"
	}
	return "/"
}
