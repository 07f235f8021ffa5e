package backend

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/certdesk/core/event"
	"github.com/trezcool/certdesk/core/user"
	"github.com/trezcool/certdesk/portal/api"
	"github.com/trezcool/certdesk/portal/session"
)

// Live talks to the API over HTTP.
type Live struct {
	client *api.Client
}

var _ Backend = (*Live)(nil)

func NewLive(client *api.Client) *Live {
	return &Live{client: client}
}

// translate turns API client errors into backend errors.
func translate(err error, msg string) error {
	if err == nil {
		return nil
	}
	switch e := errors.Cause(err).(type) {
	case *api.Error:
		return &Error{Message: e.Message}
	default:
		if api.IsServerError(err) {
			return errors.Wrap(ErrUnavailable, err.Error())
		}
		return errors.Wrap(err, msg)
	}
}

func (b *Live) Login(ctx context.Context, creds Credentials) (session.Session, error) {
	res, err := b.client.Login(ctx, creds.Identifier, creds.Password, creds.Role)
	if err != nil {
		return session.Session{}, translate(err, "logging in")
	}
	b.client.SetToken(res.Token)
	return session.Session{Role: res.User.Role, ID: res.User.ID}, nil
}

func (b *Live) FetchByRole(ctx context.Context, role user.Role, id string) (DashboardData, error) {
	data := DashboardData{Role: role}

	switch role {
	case user.RoleStudent:
		res, err := b.client.Student(ctx, id)
		if err != nil {
			return DashboardData{}, translate(err, "fetching student")
		}
		data.User = res.Student
		data.Certificates = nonNil(res.Certificates)

	case user.RoleTeacher:
		res, err := b.client.Teacher(ctx, id)
		if err != nil {
			return DashboardData{}, translate(err, "fetching teacher")
		}
		data.User = res.Teacher
		data.Students = mergeStudents(res.Students, res.Certificates)

	case user.RoleOrganizer:
		org, err := b.findUser(ctx, role, id)
		if err != nil {
			return DashboardData{}, err
		}
		events, err := b.client.Events(ctx, org.ID)
		if err != nil {
			return DashboardData{}, translate(err, "fetching events")
		}
		if events == nil {
			events = []event.Event{}
		}
		data.User = org
		data.Events = events

	case user.RoleAdmin:
		users, err := b.client.Users(ctx, "", "")
		if err != nil {
			return DashboardData{}, translate(err, "fetching users")
		}
		admin, ok := findUser(users, id)
		if !ok || !admin.IsAdmin() {
			return DashboardData{}, notFound(role)
		}
		data.User = admin
		data.Users = newUsersOverview(users)

	default:
		return DashboardData{}, notFound(role)
	}
	return data, nil
}

func (b *Live) findUser(ctx context.Context, role user.Role, id string) (user.User, error) {
	users, err := b.client.Users(ctx, role, "")
	if err != nil {
		return user.User{}, translate(err, "fetching users")
	}
	usr, ok := findUser(users, id)
	if !ok {
		return user.User{}, notFound(role)
	}
	return usr, nil
}

func (b *Live) CreateEvent(ctx context.Context, organizerID string, ne NewEvent) (event.Event, error) {
	evt, err := b.client.CreateEvent(ctx, event.NewEvent{Name: ne.Name, Date: ne.Date, OrganizerID: organizerID})
	return evt, translate(err, "creating event")
}

func (b *Live) UploadCertificates(ctx context.Context, batch Batch) (UploadResult, error) {
	res, err := b.client.UploadCertificates(ctx, batch)
	if err != nil {
		return UploadResult{}, translate(err, "uploading certificates")
	}
	return UploadResult{Event: res.Event, Certificates: res.Files, CertsUploaded: res.CertsUploaded}, nil
}

func (b *Live) CreateUser(ctx context.Context, na NewAccount) (user.User, error) {
	usr, err := b.client.CreateUser(ctx, na.newUser())
	return usr, translate(err, "creating user")
}
