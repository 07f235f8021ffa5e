package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/certdesk/core"
)

type Role string

// Roles
const (
	RoleStudent   Role = "student"
	RoleTeacher   Role = "teacher"
	RoleOrganizer Role = "organizer"
	RoleAdmin     Role = "admin"
)

var (
	AllRoles = []Role{RoleStudent, RoleTeacher, RoleOrganizer, RoleAdmin}

	// roleAliases are alternative names used by clients for the same roles.
	roleAliases = map[string]Role{
		"advisor": RoleTeacher,
		"faculty": RoleTeacher,
	}

	idPrefixes = map[Role]string{
		RoleStudent:   "STU",
		RoleTeacher:   "FAC",
		RoleOrganizer: "ORG",
		RoleAdmin:     "ADM",
	}
)

// ParseRole returns the Role named by s (case-insensitive, aliases included).
func ParseRole(s string) (Role, bool) {
	s = core.CleanString(s, true /* lower */)
	if role, ok := roleAliases[s]; ok {
		return role, true
	}
	role := Role(s)
	return role, role.Valid()
}

func (r Role) Valid() bool {
	for _, role := range AllRoles {
		if r == role {
			return true
		}
	}
	return false
}

// IDPrefix is the prefix of the IDs allocated to users with this role.
func (r Role) IDPrefix() string {
	return idPrefixes[r]
}

type User struct {
	ID           string    `json:"id"`
	Role         Role      `json:"role"`
	Name         string    `json:"name"`
	Username     string    `json:"username,omitempty"`
	Email        string    `json:"email,omitempty"`
	ClassID      string    `json:"class_id,omitempty"`
	Dept         string    `json:"dept,omitempty"`
	ClubName     string    `json:"club_name,omitempty"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	LastLogin    time.Time `json:"last_login,omitempty"`
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

// Matches reports whether identifier is this user's username, email or ID (case-insensitive).
func (u *User) Matches(identifier string) bool {
	if identifier == "" {
		return false
	}
	return strings.EqualFold(u.Username, identifier) ||
		strings.EqualFold(u.Email, identifier) ||
		strings.EqualFold(u.ID, identifier)
}

func (u *User) IsStudent() bool   { return u.Role == RoleStudent }
func (u *User) IsTeacher() bool   { return u.Role == RoleTeacher }
func (u *User) IsOrganizer() bool { return u.Role == RoleOrganizer }
func (u *User) IsAdmin() bool     { return u.Role == RoleAdmin }

// NewUser contains information needed to create a new User.
// It is filled by self-registration, by admins and by the admin CLI.
type NewUser struct {
	Role     string `json:"role" validate:"required,role"`
	Name     string `json:"name" validate:"required"`
	Username string `json:"username" validate:"omitempty,min=3,alphanum_"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
	ClassID  string `json:"class_id"`
	Dept     string `json:"dept"`
	ClubName string `json:"club_name"`

	requireEmail bool
}

// Clean normalizes the NewUser fields.
func (nu *NewUser) Clean() {
	if role, ok := ParseRole(nu.Role); ok {
		nu.Role = string(role)
	} else {
		nu.Role = core.CleanString(nu.Role, true /* lower */)
	}
	nu.Name = core.CleanString(nu.Name)
	nu.Username = core.CleanString(nu.Username, true /* lower */)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.ClassID = core.CleanString(nu.ClassID)
	nu.Dept = core.CleanString(nu.Dept)
	nu.ClubName = core.CleanString(nu.ClubName)
}

// Validate checks a self-registration: an email address is required.
func (nu *NewUser) Validate(validate *validator.Validate, svc *Service) error {
	nu.requireEmail = true
	return nu.validate(validate, svc)
}

// ValidateForAdmin checks an account created by an admin: role-specific fields are required.
func (nu *NewUser) ValidateForAdmin(validate *validator.Validate, svc *Service) error {
	nu.requireEmail = false
	return nu.validate(validate, svc)
}

func (nu *NewUser) validate(validate *validator.Validate, svc *Service) error {
	nu.Clean()
	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.checkUniqueness(nu.Username, nu.Email)
}
