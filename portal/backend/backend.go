// Package backend abstracts where the portal gets its data from: the API over HTTP (Live)
// or the core services in-process (Local, which also serves the demo data set).
package backend

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/certdesk/core/certificate"
	"github.com/trezcool/certdesk/core/event"
	"github.com/trezcool/certdesk/core/user"
	"github.com/trezcool/certdesk/portal/session"
)

// ErrUnavailable is returned when the backend cannot be reached or answers with something unreadable.
var ErrUnavailable = errors.New("backend unavailable")

// Error is a failure reported by the backend. Message may be empty.
type Error struct {
	Message string
}

func (err *Error) Error() string {
	if err.Message == "" {
		return "backend error"
	}
	return err.Message
}

// MessageOf returns the message reported by the backend for err, or fallback.
func MessageOf(err error, fallback string) string {
	if bErr, ok := errors.Cause(err).(*Error); ok && bErr.Message != "" {
		return bErr.Message
	}
	return fallback
}

func IsUnavailable(err error) bool {
	return errors.Cause(err) == ErrUnavailable
}

type (
	Backend interface {
		Login(ctx context.Context, creds Credentials) (session.Session, error)
		// FetchByRole returns everything the dashboard of the given role displays for user id.
		FetchByRole(ctx context.Context, role user.Role, id string) (DashboardData, error)
		CreateEvent(ctx context.Context, organizerID string, ne NewEvent) (event.Event, error)
		UploadCertificates(ctx context.Context, batch Batch) (UploadResult, error)
		CreateUser(ctx context.Context, na NewAccount) (user.User, error)
	}

	Credentials struct {
		Identifier string // username, email or ID
		Password   string
		Role       user.Role // informative only
	}

	NewEvent struct {
		Name string
		Date string // YYYY-MM-DD
	}

	// Batch is a set of certificate files for one event.
	Batch = certificate.Batch

	UploadResult struct {
		Event         event.Event
		Certificates  []certificate.Certificate
		CertsUploaded int
	}

	NewAccount struct {
		Role     user.Role
		Name     string
		Password string
		Username string
		Email    string
		ClassID  string
		Dept     string
		ClubName string
	}

	// StudentRecord is a student with the certificates issued to them.
	StudentRecord struct {
		Student      user.User
		Certificates []certificate.Certificate
	}

	// UsersOverview lists accounts per role.
	UsersOverview struct {
		Students   []user.User
		Teachers   []user.User
		Organizers []user.User
		Admins     []user.User
	}

	// DashboardData holds what one dashboard displays. Only the fields of Role are set.
	DashboardData struct {
		Role user.Role
		User user.User // whose dashboard it is

		Certificates []certificate.Certificate // student
		Students     []StudentRecord           // teacher
		Events       []event.Event             // organizer
		Users        UsersOverview             // admin
	}
)

func (na NewAccount) newUser() user.NewUser {
	return user.NewUser{
		Role:     string(na.Role),
		Name:     na.Name,
		Username: na.Username,
		Email:    na.Email,
		Password: na.Password,
		ClassID:  na.ClassID,
		Dept:     na.Dept,
		ClubName: na.ClubName,
	}
}

func newUsersOverview(users []user.User) UsersOverview {
	var o UsersOverview
	for _, usr := range users {
		switch usr.Role {
		case user.RoleStudent:
			o.Students = append(o.Students, usr)
		case user.RoleTeacher:
			o.Teachers = append(o.Teachers, usr)
		case user.RoleOrganizer:
			o.Organizers = append(o.Organizers, usr)
		case user.RoleAdmin:
			o.Admins = append(o.Admins, usr)
		}
	}
	return o
}

// Counts returns the number of accounts per role.
func (o UsersOverview) Counts() map[user.Role]int {
	return map[user.Role]int{
		user.RoleStudent:   len(o.Students),
		user.RoleTeacher:   len(o.Teachers),
		user.RoleOrganizer: len(o.Organizers),
		user.RoleAdmin:     len(o.Admins),
	}
}

// mergeStudents pairs every student with the certificates whose student_id is theirs.
func mergeStudents(students []user.User, certs []certificate.Certificate) []StudentRecord {
	records := make([]StudentRecord, 0, len(students))
	for _, st := range students {
		rec := StudentRecord{Student: st, Certificates: []certificate.Certificate{}}
		for _, c := range certs {
			if c.StudentID == st.ID {
				rec.Certificates = append(rec.Certificates, c)
			}
		}
		records = append(records, rec)
	}
	return records
}

func findUser(users []user.User, id string) (user.User, bool) {
	for _, usr := range users {
		if strings.EqualFold(usr.ID, id) {
			return usr, true
		}
	}
	return user.User{}, false
}

func nonNil(certs []certificate.Certificate) []certificate.Certificate {
	if certs == nil {
		return []certificate.Certificate{}
	}
	return certs
}

func notFound(role user.Role) error {
	switch role {
	case user.RoleStudent:
		return &Error{Message: "Student not found"}
	case user.RoleTeacher:
		return &Error{Message: "Teacher not found"}
	case user.RoleOrganizer:
		return &Error{Message: "Organizer not found"}
	case user.RoleAdmin:
		return &Error{Message: "Admin not found"}
	}
	return &Error{Message: "Unknown role"}
}
