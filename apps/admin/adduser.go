package main

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/certdesk/core"
	"github.com/trezcool/certdesk/core/user"
)

// addUser creates a user the way an admin does: role-specific fields are required.
func (cli *commandLine) addUser(nu user.NewUser) error {
	if err := nu.ValidateForAdmin(cli.validate, cli.usrSvc); err != nil {
		if vErrs, ok := err.(validator.ValidationErrors); ok {
			return core.NewValidationError(nil, core.TranslateFields(vErrs, cli.translator)...)
		}
		return err
	}
	usr, err := cli.usrSvc.Create(context.Background(), nu)
	if err != nil {
		return err
	}
	fmt.Printf("created %s %s (%s)\n", usr.Role, usr.ID, usr.Name)
	return nil
}
