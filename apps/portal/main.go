package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/certdesk/core"
	"github.com/trezcool/certdesk/portal"
	"github.com/trezcool/certdesk/portal/api"
	"github.com/trezcool/certdesk/portal/backend"
	"github.com/trezcool/certdesk/portal/router"
	"github.com/trezcool/certdesk/portal/session"
	logsvc "github.com/trezcool/certdesk/services/logger"
)

func main() {
	conf := core.NewConfig()

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "PORTAL : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	storage, err := session.OpenBoltStorage(conf.Portal.SessionPath)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening session storage: %v", err), err)
	}

	ctx := context.Background()
	var b backend.Backend
	if conf.Portal.Mock {
		if b, err = backend.NewMock(ctx, conf, logger); err != nil {
			_ = storage.Close()
			logger.Fatal(fmt.Sprintf("setting up mock backend: %v", err), err)
		}
	} else {
		b = backend.NewLive(api.NewClient(conf.Portal.APIBaseURL, nil))
	}

	// start CLI
	cli := commandLine{
		shell: portal.NewShell(session.NewStore(storage), router.Router{Variant: router.PathRouting}, b, logger),
		out:   os.Stdout,
	}
	err = cli.run(ctx, os.Args)
	_ = storage.Close()
	if err != nil {
		if err != errHelp {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}
