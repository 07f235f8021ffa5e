package user

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/certdesk/core"
)

var (
	// errors
	ErrNotFound           = errors.New("user not found")
	ErrEmailExists        = errors.New("User already exists")
	ErrUsernameExists     = errors.New("a user with this username already exists")
	ErrIDExists           = errors.New("a user with this ID already exists")
	ErrInvalidCredentials = errors.New("Invalid credentials")

	nowFunc = time.Now // mockable
)

type (
	Repository interface {
		CheckUniqueness(ctx context.Context, username, email string) error
		// CreateUser stores usr, allocating the next ID for its role when usr.ID is empty.
		CreateUser(ctx context.Context, usr User) (User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		// GetUserByIdentifier finds a user by username, email or ID (case-insensitive).
		GetUserByIdentifier(ctx context.Context, identifier string) (User, error)
		// QueryUsers returns users ordered by ID, optionally restricted to a role and a department.
		QueryUsers(ctx context.Context, filter QueryFilter) ([]User, error)
	}

	QueryFilter struct {
		Role Role
		Dept string
		IDs  []string
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// FormatID builds the ID of the n-th user with the given role, eg: STU001.
func FormatID(role Role, n int) string {
	return fmt.Sprintf("%s%03d", role.IDPrefix(), n)
}

// NextID returns the ID following the highest ID of the given role among ids.
func NextID(role Role, ids []string) string {
	var max int
	prefix := role.IDPrefix()
	for _, id := range ids {
		if !strings.HasPrefix(id, prefix) {
			continue
		}
		if n, err := strconv.Atoi(strings.TrimPrefix(id, prefix)); err == nil && n > max {
			max = n
		}
	}
	return FormatID(role, max+1)
}

func (svc *Service) checkUniqueness(uname, email string) error {
	if err := svc.repo.CheckUniqueness(context.Background(), uname, email); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

// Create stores a new user from validated data.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	usr := User{
		Role:      Role(nu.Role),
		Name:      nu.Name,
		Username:  nu.Username,
		Email:     nu.Email,
		ClassID:   nu.ClassID,
		Dept:      nu.Dept,
		ClubName:  nu.ClubName,
		CreatedAt: nowFunc().UTC(),
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.CreateUser(ctx, usr)
}

// Authenticate checks the credentials of the user identified by username, email or ID.
func (svc *Service) Authenticate(ctx context.Context, identifier, pwd string) (User, error) {
	usr, err := svc.repo.GetUserByIdentifier(ctx, core.CleanString(identifier))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, errors.Wrap(err, "finding user by identifier")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}

	usr.LastLogin = nowFunc().UTC()
	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return User{}, errors.Wrap(err, "setting lastLogin")
	}
	return usr, nil
}

func (svc *Service) SetPassword(ctx context.Context, usr User, pwd string) (User, error) {
	if err := usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}
	return svc.repo.UpdateUser(ctx, usr)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, core.CleanString(id))
}

func (svc *Service) GetByIdentifier(ctx context.Context, identifier string) (User, error) {
	return svc.repo.GetUserByIdentifier(ctx, core.CleanString(identifier))
}

// GetWithRole returns the user with the given ID only if they have the given role.
func (svc *Service) GetWithRole(ctx context.Context, id string, role Role) (User, error) {
	usr, err := svc.GetByID(ctx, id)
	if err != nil {
		return User{}, err
	}
	if usr.Role != role {
		return User{}, ErrNotFound
	}
	return usr, nil
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]User, error) {
	return svc.repo.QueryUsers(ctx, filter)
}

// StudentsOf returns the students followed by a teacher: those of the teacher's department.
func (svc *Service) StudentsOf(ctx context.Context, teacher User) ([]User, error) {
	if teacher.Dept == "" {
		return []User{}, nil
	}
	return svc.repo.QueryUsers(ctx, QueryFilter{Role: RoleStudent, Dept: teacher.Dept})
}
