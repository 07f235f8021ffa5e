package certificate

import (
	"context"
	"fmt"
	"net/mail"
	"path"
	texttmpl "text/template"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/certdesk/core"
	"github.com/trezcool/certdesk/core/event"
	"github.com/trezcool/certdesk/core/user"
)

var (
	// errors
	ErrNoFiles = errors.New("Select files and an event first.")

	todayFunc = core.Today // mockable

	distributedTmpl = texttmpl.Must(texttmpl.New("distributed").Parse(
		`Hello {{.Student.Name}},

Your certificate for "{{.Event.Name}}" ({{.Event.Date}}) organized by {{.Event.Organizer}} is now available:
{{.Certificate.FileURL}}

You can find all your certificates on your dashboard: {{.DashboardURL}}
`))
)

type (
	Repository interface {
		CreateCertificates(ctx context.Context, certs ...Certificate) ([]Certificate, error)
		// QueryCertificates returns the certificates of the given students ordered by ID.
		QueryCertificates(ctx context.Context, studentIDs ...string) ([]Certificate, error)
	}

	// FileStore hosts certificate files.
	FileStore interface {
		// Save stores the file content under key and returns the URL it can be downloaded from.
		Save(ctx context.Context, key string, file File) (string, error)
	}

	// UnknownStudentError names a certificate recipient that matches no student.
	UnknownStudentError struct {
		Filename  string
		StudentID string
	}

	Service struct {
		repo            Repository
		files           FileStore
		usrSvc          *user.Service
		evtSvc          *event.Service
		mailSvc         core.EmailService
		logger          core.Logger
		frontendBaseURL string
	}
)

func (err UnknownStudentError) Error() string {
	return fmt.Sprintf("%s: no student with ID %q", err.Filename, err.StudentID)
}

func NewService(
	repo Repository,
	files FileStore,
	usrSvc *user.Service,
	evtSvc *event.Service,
	mailSvc core.EmailService,
	logger core.Logger,
	conf *core.Config,
) *Service {
	return &Service{
		repo:            repo,
		files:           files,
		usrSvc:          usrSvc,
		evtSvc:          evtSvc,
		mailSvc:         mailSvc,
		logger:          logger,
		frontendBaseURL: conf.FrontendBaseURL,
	}
}

// Record stores a certificate whose file is hosted elsewhere.
func (svc *Service) Record(ctx context.Context, nc NewCertificate) (Certificate, error) {
	evt, err := svc.evtSvc.GetByID(ctx, nc.EventID)
	if err != nil {
		return Certificate{}, errors.Wrap(err, "finding event")
	}
	if _, err = svc.usrSvc.GetWithRole(ctx, nc.StudentID, user.RoleStudent); err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return Certificate{}, UnknownStudentError{Filename: nc.FileURL, StudentID: nc.StudentID}
		}
		return Certificate{}, errors.Wrap(err, "finding student")
	}

	certs, err := svc.repo.CreateCertificates(ctx, Certificate{
		StudentID: nc.StudentID,
		EventID:   evt.ID,
		EventName: evt.Name,
		Organizer: evt.Organizer,
		IssueDate: todayFunc(),
		FileURL:   nc.FileURL,
	})
	if err != nil {
		return Certificate{}, errors.Wrap(err, "creating certificate")
	}
	return certs[0], nil
}

// ListByStudent returns the certificates issued to a student.
func (svc *Service) ListByStudent(ctx context.Context, studentID string) ([]Certificate, error) {
	return svc.repo.QueryCertificates(ctx, core.CleanString(studentID))
}

// ListByStudents returns the certificates issued to any of the given students.
func (svc *Service) ListByStudents(ctx context.Context, students []user.User) ([]Certificate, error) {
	if len(students) == 0 {
		return []Certificate{}, nil
	}
	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.ID)
	}
	return svc.repo.QueryCertificates(ctx, ids...)
}

// Distribute issues one certificate per file of the batch and marks the event as Distributed.
//
// Every check (filenames, event status and ownership, students) runs before the first file is stored.
func (svc *Service) Distribute(ctx context.Context, batch Batch) (event.Event, []Certificate, error) {
	if len(batch.Files) == 0 {
		return event.Event{}, nil, ErrNoFiles
	}

	names := make([]string, 0, len(batch.Files))
	for _, f := range batch.Files {
		names = append(names, f.Name)
	}
	parsed, err := ParseFilenames(names)
	if err != nil {
		return event.Event{}, nil, err
	}

	evt, err := svc.evtSvc.GetPending(ctx, batch.EventID, batch.OrganizerID)
	if err != nil {
		return event.Event{}, nil, errors.Wrap(err, "finding pending event")
	}

	students := make(map[string]user.User, len(parsed))
	for i, p := range parsed {
		if _, ok := students[p.StudentID]; ok {
			continue
		}
		usr, err := svc.usrSvc.GetWithRole(ctx, p.StudentID, user.RoleStudent)
		if err != nil {
			if errors.Cause(err) == user.ErrNotFound {
				return event.Event{}, nil, UnknownStudentError{Filename: names[i], StudentID: p.StudentID}
			}
			return event.Event{}, nil, errors.Wrap(err, "finding student")
		}
		students[p.StudentID] = usr
	}

	issueDate := todayFunc()
	certs := make([]Certificate, 0, len(batch.Files))
	for i, f := range batch.Files {
		key := path.Join("events", fmt.Sprint(evt.ID), uuid.New().String()+"_"+path.Base(f.Name))
		url, err := svc.files.Save(ctx, key, f)
		if err != nil {
			return event.Event{}, nil, errors.Wrapf(err, "storing %s", f.Name)
		}
		certs = append(certs, Certificate{
			StudentID: parsed[i].StudentID,
			EventID:   evt.ID,
			EventName: evt.Name,
			Organizer: evt.Organizer,
			IssueDate: issueDate,
			FileURL:   url,
		})
	}

	// claim the event first: a concurrent batch for the same event fails here with ErrAlreadyDistributed
	if evt, err = svc.evtSvc.MarkDistributed(ctx, evt.ID, len(certs)); err != nil {
		return event.Event{}, nil, errors.Wrap(err, "marking event as distributed")
	}
	if certs, err = svc.repo.CreateCertificates(ctx, certs...); err != nil {
		msg := fmt.Sprintf("event %d marked as distributed but its certificates were not recorded", evt.ID)
		svc.logger.Error(msg, err)
		return event.Event{}, nil, errors.Wrap(err, "creating certificates")
	}

	svc.notify(evt, certs, students)
	return evt, certs, nil
}

func (svc *Service) notify(evt event.Event, certs []Certificate, students map[string]user.User) {
	messages := make([]*core.EmailMessage, 0, len(certs))
	for _, cert := range certs {
		student := students[cert.StudentID]
		if student.Email == "" {
			continue
		}
		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Name: student.Name, Address: student.Email}},
			Subject:      "Your certificate for " + evt.Name,
			TextTemplate: distributedTmpl,
			TemplateData: map[string]interface{}{
				"Student":      student,
				"Event":        evt,
				"Certificate":  cert,
				"DashboardURL": svc.frontendBaseURL + "/student",
			},
		})
	}
	if len(messages) > 0 {
		svc.logger.Info(fmt.Sprintf("notifying %d student(s) of event %d", len(messages), evt.ID))
		svc.mailSvc.SendMessages(messages...)
	}
}
