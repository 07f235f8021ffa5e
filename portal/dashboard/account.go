package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/certdesk/core/user"
	"github.com/trezcool/certdesk/portal/backend"
)

var (
	// errors
	ErrNameAndPasswordRequired = errors.New("Name and password are required")
	ErrClassAndDeptRequired    = errors.New("Class ID and Department are required for this role")
	ErrClubRequired            = errors.New("Club name is required for organizers")
)

const (
	msgCreateUserFailed      = "Failed to create user"
	msgCreateUserUnavailable = "Server error. Try again later."
)

// AccountForm is the admin's user creation form.
type AccountForm struct {
	Role     user.Role
	Name     string
	Password string
	ClassID  string
	Dept     string
	ClubName string
}

// Validate checks the form before anything is sent.
func (f AccountForm) Validate() error {
	if strings.TrimSpace(f.Name) == "" || f.Password == "" {
		return ErrNameAndPasswordRequired
	}
	role, _ := user.ParseRole(string(f.Role))
	switch role {
	case user.RoleStudent, user.RoleTeacher:
		if strings.TrimSpace(f.ClassID) == "" || strings.TrimSpace(f.Dept) == "" {
			return ErrClassAndDeptRequired
		}
	case user.RoleOrganizer:
		if strings.TrimSpace(f.ClubName) == "" {
			return ErrClubRequired
		}
	}
	return nil
}

// account keeps only the fields the role uses.
func (f AccountForm) account() backend.NewAccount {
	na := backend.NewAccount{Role: f.Role, Name: f.Name, Password: f.Password}
	role, _ := user.ParseRole(string(f.Role))
	switch role {
	case user.RoleStudent, user.RoleTeacher:
		na.ClassID, na.Dept = f.ClassID, f.Dept
	case user.RoleOrganizer:
		na.ClubName = f.ClubName
	}
	return na
}

// CreateAccount submits the form. The returned status is the message to display, whatever the outcome.
func CreateAccount(ctx context.Context, b backend.Backend, f AccountForm) (user.User, string, error) {
	if err := f.Validate(); err != nil {
		return user.User{}, err.Error(), err
	}

	usr, err := b.CreateUser(ctx, f.account())
	switch {
	case err != nil && backend.IsUnavailable(err):
		return user.User{}, msgCreateUserUnavailable, err
	case err != nil:
		return user.User{}, backend.MessageOf(err, msgCreateUserFailed), err
	}
	return usr, fmt.Sprintf("Successfully created %s: %s", f.Role, f.Name), nil
}
