package main

import (
	"context"
	"fmt"

	"github.com/trezcool/certdesk/storage/database/seed"
)

func (cli *commandLine) seed() error {
	if err := seed.Load(context.Background(), cli.usrRepo, cli.evtRepo, cli.certRepo); err != nil {
		return err
	}
	fmt.Printf("loaded %d users, %d events and %d certificates\n", len(seed.Users), len(seed.Events), len(seed.Certificates))
	return nil
}
