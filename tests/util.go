// Package testutil builds in-memory application stacks for tests.
package testutil

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/trezcool/certdesk/apps/api/echo"
	"github.com/trezcool/certdesk/core"
	"github.com/trezcool/certdesk/core/certificate"
	"github.com/trezcool/certdesk/core/event"
	"github.com/trezcool/certdesk/core/user"
	emailsvc "github.com/trezcool/certdesk/services/email"
	"github.com/trezcool/certdesk/services/filestore"
	logsvc "github.com/trezcool/certdesk/services/logger"
	inmemdb "github.com/trezcool/certdesk/storage/database/inmem"
	"github.com/trezcool/certdesk/storage/database/seed"
)

// MailOutbox is an EmailService keeping track of what it sent.
type MailOutbox interface {
	core.EmailService
	SentMessages() []core.EmailMessage
}

// Env is a complete application stack over the in-memory database.
type Env struct {
	Conf       *core.Config
	DB         *inmemdb.DB
	Logger     core.Logger
	Mail       MailOutbox
	Files      certificate.FileStore
	MediaDir   string
	Validate   *validator.Validate
	Translator ut.Translator

	UserRepo  user.Repository
	EventRepo event.Repository
	CertRepo  certificate.Repository

	UserSvc  *user.Service
	EventSvc *event.Service
	CertSvc  *certificate.Service
}

// NewEnv returns an empty Env; files are stored in a temporary directory.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	conf := core.NewTestConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "TEST : ", 0), conf)
	logger.Enable(false)

	env := &Env{
		Conf:       conf,
		DB:         inmemdb.Open(),
		Logger:     logger,
		Mail:       emailsvc.NewConsoleServiceMock(conf, logger),
		MediaDir:   t.TempDir(),
		Validate:   validator.New(),
		Translator: core.NewTranslator(),
	}
	core.InitValidators(env.Validate, env.Translator)
	user.InitValidators(env.Validate, env.Translator)

	env.Files = filestore.NewLocalStore(env.MediaDir, conf.Storage.BaseURL)
	env.UserRepo = inmemdb.NewUserRepository(env.DB)
	env.EventRepo = inmemdb.NewEventRepository(env.DB)
	env.CertRepo = inmemdb.NewCertificateRepository(env.DB)

	env.UserSvc = user.NewService(env.UserRepo)
	env.EventSvc = event.NewService(env.EventRepo)
	env.CertSvc = certificate.NewService(env.CertRepo, env.Files, env.UserSvc, env.EventSvc, env.Mail, logger, conf)
	return env
}

// NewSeededEnv returns an Env loaded with the demo data set.
func NewSeededEnv(t *testing.T) *Env {
	t.Helper()
	env := NewEnv(t)
	env.Seed(t)
	return env
}

// Seed empties the database and loads the demo data set.
func (env *Env) Seed(t *testing.T) {
	t.Helper()
	env.DB.Reset()
	if err := seed.Load(context.Background(), env.UserRepo, env.EventRepo, env.CertRepo); err != nil {
		t.Fatalf("seed.Load() failed: %v", err)
	}
}

// NewServer returns the API server over the Env's services.
func (env *Env) NewServer() *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:           env.Conf,
		Logger:         env.Logger,
		UserSvc:        env.UserSvc,
		EventSvc:       env.EventSvc,
		CertSvc:        env.CertSvc,
		Validate:       env.Validate,
		Translator:     env.Translator,
		DisableReqLogs: true,
		MediaDir:       env.MediaDir,
	})
}

// StartServer serves the API over HTTP until the test ends.
func (env *Env) StartServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(env.NewServer())
	t.Cleanup(srv.Close)
	return srv
}

// CreateUser stores a user with the given role; the ID is allocated when empty.
func CreateUser(t *testing.T, repo user.Repository, usr user.User, pwd string) user.User {
	t.Helper()
	if usr.CreatedAt.IsZero() {
		usr.CreatedAt = time.Now().UTC()
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// CreateEvent stores a Pending event for an organizer.
func CreateEvent(t *testing.T, repo event.Repository, name, date, organizerID string) event.Event {
	t.Helper()
	evt, err := repo.CreateEvent(context.Background(), event.Event{
		Name:        name,
		OrganizerID: organizerID,
		Date:        date,
		Status:      event.StatusPending,
	})
	if err != nil {
		t.Fatalf("CreateEvent() failed: %v", err)
	}
	return evt
}
