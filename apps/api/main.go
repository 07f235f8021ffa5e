package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/certdesk/apps/api/echo"
	"github.com/trezcool/certdesk/core"
	"github.com/trezcool/certdesk/core/certificate"
	"github.com/trezcool/certdesk/core/event"
	"github.com/trezcool/certdesk/core/user"
	emailsvc "github.com/trezcool/certdesk/services/email"
	"github.com/trezcool/certdesk/services/filestore"
	logsvc "github.com/trezcool/certdesk/services/logger"
	"github.com/trezcool/certdesk/storage/database"
	inmemdb "github.com/trezcool/certdesk/storage/database/inmem"
	"github.com/trezcool/certdesk/storage/database/seed"
	sqlxrepos "github.com/trezcool/certdesk/storage/database/sqlx"
)

type repositories struct {
	user        user.Repository
	event       event.Repository
	certificate certificate.Repository
	close       func() error
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	repos, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = repos.close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger, log.New(os.Stdout, "EMAIL : ", 0))
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	files, err := filestore.New(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up file store: %v", err), err)
	}
	var mediaDir string
	if conf.Storage.Driver != "s3" {
		mediaDir = filepath.Join(conf.WorkDir, conf.Storage.Dir)
	}

	usrSvc := user.NewService(repos.user)
	evtSvc := event.NewService(repos.event)
	certSvc := certificate.NewService(repos.certificate, files, usrSvc, evtSvc, mailSvc, logger, conf)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			UserSvc:    usrSvc,
			EventSvc:   evtSvc,
			CertSvc:    certSvc,
			Validate:   validate,
			Translator: translator,
			MediaDir:   mediaDir,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpDB opens the configured database. The in-memory database is loaded with the demo data set.
func setUpDB(conf *core.Config) (repositories, error) {
	if conf.Database.InMemory {
		db := inmemdb.Open()
		repos := repositories{
			user:        inmemdb.NewUserRepository(db),
			event:       inmemdb.NewEventRepository(db),
			certificate: inmemdb.NewCertificateRepository(db),
			close:       func() error { return nil },
		}
		if err := seed.Load(context.Background(), repos.user, repos.event, repos.certificate); err != nil {
			return repositories{}, err
		}
		return repos, nil
	}

	if err := database.CreateIfNotExist(conf); err != nil {
		return repositories{}, err
	}
	db, err := database.Open(conf)
	if err != nil {
		return repositories{}, err
	}
	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return repositories{}, err
	}
	return sqlRepositories(db), nil
}

func sqlRepositories(db *sqlx.DB) repositories {
	return repositories{
		user:        sqlxrepos.NewUserRepository(db),
		event:       sqlxrepos.NewEventRepository(db),
		certificate: sqlxrepos.NewCertificateRepository(db),
		close:       db.Close,
	}
}
