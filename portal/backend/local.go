package backend

import (
	"context"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/certdesk/core"
	"github.com/trezcool/certdesk/core/certificate"
	"github.com/trezcool/certdesk/core/event"
	"github.com/trezcool/certdesk/core/user"
	"github.com/trezcool/certdesk/portal/session"
	emailsvc "github.com/trezcool/certdesk/services/email"
	"github.com/trezcool/certdesk/services/filestore"
	inmemdb "github.com/trezcool/certdesk/storage/database/inmem"
	"github.com/trezcool/certdesk/storage/database/seed"
)

// MockLoginError is what the demo backend reports for bad credentials.
const MockLoginError = "Invalid credentials. Please try again."

type LocalDeps struct {
	UserSvc    *user.Service
	EventSvc   *event.Service
	CertSvc    *certificate.Service
	Validate   *validator.Validate
	Translator ut.Translator
}

// Local calls the core services in-process.
type Local struct {
	deps LocalDeps
}

var _ Backend = (*Local)(nil)

func NewLocal(deps LocalDeps) *Local {
	return &Local{deps: deps}
}

// NewMock returns a Local backend over an in-memory database loaded with the demo data set.
// Uploaded files go to the store configured by conf.Storage; emails are dropped.
func NewMock(ctx context.Context, conf *core.Config, logger core.Logger) (*Local, error) {
	db := inmemdb.Open()
	usrRepo := inmemdb.NewUserRepository(db)
	evtRepo := inmemdb.NewEventRepository(db)
	certRepo := inmemdb.NewCertificateRepository(db)
	if err := seed.Load(ctx, usrRepo, evtRepo, certRepo); err != nil {
		return nil, errors.Wrap(err, "loading demo data")
	}

	files, err := filestore.New(ctx, conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening file store")
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	usrSvc := user.NewService(usrRepo)
	evtSvc := event.NewService(evtRepo)
	mailSvc := emailsvc.NewConsoleService(conf, logger, nil)

	return NewLocal(LocalDeps{
		UserSvc:    usrSvc,
		EventSvc:   evtSvc,
		CertSvc:    certificate.NewService(certRepo, files, usrSvc, evtSvc, mailSvc, logger, conf),
		Validate:   validate,
		Translator: translator,
	}), nil
}

// report turns the errors the API would report to its clients into backend errors.
func (b *Local) report(err error, msg string) error {
	if err == nil {
		return nil
	}
	origErr := errors.Cause(err)
	switch origErr {
	case user.ErrInvalidCredentials:
		return &Error{Message: MockLoginError}
	case event.ErrNotFound, event.ErrAlreadyDistributed, event.ErrNotOrganizer, certificate.ErrNoFiles:
		return &Error{Message: origErr.Error()}
	}

	switch e := origErr.(type) {
	case validator.ValidationErrors:
		return &Error{Message: firstFieldMessage(core.TranslateFields(e, b.deps.Translator))}
	case *core.ValidationError:
		if e.Err != nil {
			return &Error{Message: e.Err.Error()}
		}
		return &Error{Message: firstFieldMessage(e.Fields)}
	case certificate.FilenameError, certificate.UnknownStudentError:
		return &Error{Message: e.Error()}
	}
	return errors.Wrap(err, msg)
}

func firstFieldMessage(flds []core.FieldError) string {
	if len(flds) == 0 {
		return ""
	}
	return flds[0].Field + ": " + flds[0].Error
}

func (b *Local) Login(ctx context.Context, creds Credentials) (session.Session, error) {
	usr, err := b.deps.UserSvc.Authenticate(ctx, creds.Identifier, creds.Password)
	if err != nil {
		return session.Session{}, b.report(err, "authenticating")
	}
	return session.Session{Role: usr.Role, ID: usr.ID}, nil
}

func (b *Local) FetchByRole(ctx context.Context, role user.Role, id string) (DashboardData, error) {
	if !role.Valid() {
		return DashboardData{}, notFound(role)
	}
	usr, err := b.deps.UserSvc.GetWithRole(ctx, id, role)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return DashboardData{}, notFound(role)
		}
		return DashboardData{}, errors.Wrapf(err, "finding %s", role)
	}
	data := DashboardData{Role: role, User: usr}

	switch role {
	case user.RoleStudent:
		certs, err := b.deps.CertSvc.ListByStudent(ctx, usr.ID)
		if err != nil {
			return DashboardData{}, errors.Wrap(err, "querying certificates")
		}
		data.Certificates = nonNil(certs)

	case user.RoleTeacher:
		students, err := b.deps.UserSvc.StudentsOf(ctx, usr)
		if err != nil {
			return DashboardData{}, errors.Wrap(err, "querying students")
		}
		certs, err := b.deps.CertSvc.ListByStudents(ctx, students)
		if err != nil {
			return DashboardData{}, errors.Wrap(err, "querying certificates")
		}
		data.Students = mergeStudents(students, certs)

	case user.RoleOrganizer:
		events, err := b.deps.EventSvc.Query(ctx, usr.ID)
		if err != nil {
			return DashboardData{}, errors.Wrap(err, "querying events")
		}
		if events == nil {
			events = []event.Event{}
		}
		data.Events = events

	case user.RoleAdmin:
		users, err := b.deps.UserSvc.Query(ctx, user.QueryFilter{})
		if err != nil {
			return DashboardData{}, errors.Wrap(err, "querying users")
		}
		data.Users = newUsersOverview(users)
	}
	return data, nil
}

func (b *Local) CreateEvent(ctx context.Context, organizerID string, ne NewEvent) (event.Event, error) {
	data := event.NewEvent{Name: ne.Name, Date: ne.Date, OrganizerID: organizerID}
	if err := data.Validate(b.deps.Validate); err != nil {
		return event.Event{}, b.report(err, "validating event")
	}

	org, err := b.deps.UserSvc.GetWithRole(ctx, data.OrganizerID, user.RoleOrganizer)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return event.Event{}, notFound(user.RoleOrganizer)
		}
		return event.Event{}, errors.Wrap(err, "finding organizer")
	}
	orgName := org.ClubName
	if orgName == "" {
		orgName = org.Name
	}

	evt, err := b.deps.EventSvc.Create(ctx, data, orgName)
	return evt, b.report(err, "creating event")
}

func (b *Local) UploadCertificates(ctx context.Context, batch Batch) (UploadResult, error) {
	evt, certs, err := b.deps.CertSvc.Distribute(ctx, batch)
	if err != nil {
		return UploadResult{}, b.report(err, "distributing certificates")
	}
	return UploadResult{Event: evt, Certificates: certs, CertsUploaded: evt.CertsUploaded}, nil
}

func (b *Local) CreateUser(ctx context.Context, na NewAccount) (user.User, error) {
	nu := na.newUser()
	if err := nu.ValidateForAdmin(b.deps.Validate, b.deps.UserSvc); err != nil {
		return user.User{}, b.report(err, "validating user")
	}
	usr, err := b.deps.UserSvc.Create(ctx, nu)
	return usr, b.report(err, "creating user")
}
