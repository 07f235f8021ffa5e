package user_test

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/certdesk/core"
	"github.com/trezcool/certdesk/core/user"
	testutil "github.com/trezcool/certdesk/tests"
)

const strongPwd = "Xq7#Lm9$zW"

func fieldErrors(t *testing.T, env *testutil.Env, err error) []core.FieldError {
	t.Helper()
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		return core.TranslateFields(vErrs, env.Translator)
	}
	var vErr *core.ValidationError
	require.True(t, errors.As(err, &vErr), "unexpected error: %v", err)
	return vErr.Fields
}

func TestNewUser_ValidateForAdmin(t *testing.T) {
	env := testutil.NewSeededEnv(t)

	tests := []struct {
		name       string
		nu         user.NewUser
		wantFields []core.FieldError
	}{
		{
			name: "student",
			nu:   user.NewUser{Role: "student", Name: " Mia Paul ", Password: strongPwd, ClassID: "S2", Dept: "CSE"},
		},
		{
			name: "advisor alias",
			nu:   user.NewUser{Role: "Advisor", Name: "Dr. Rose", Password: strongPwd, ClassID: "S4", Dept: "ECE"},
		},
		{
			name: "admin without extra fields",
			nu:   user.NewUser{Role: "admin", Name: "Root", Password: strongPwd},
		},
		{
			name: "student without class nor dept",
			nu:   user.NewUser{Role: "student", Name: "Mia Paul", Password: strongPwd},
			wantFields: []core.FieldError{
				{Field: "class_id", Error: "class_id is required for this role"},
				{Field: "dept", Error: "dept is required for this role"},
			},
		},
		{
			name:       "organizer without club",
			nu:         user.NewUser{Role: "organizer", Name: "Drama Club", Password: strongPwd},
			wantFields: []core.FieldError{{Field: "club_name", Error: "club_name is required for this role"}},
		},
		{
			name:       "unknown role",
			nu:         user.NewUser{Role: "dean", Name: "Dean", Password: strongPwd},
			wantFields: []core.FieldError{{Field: "role", Error: "role must be one of: student, teacher, organizer, admin"}},
		},
		{
			name: "missing name and password",
			nu:   user.NewUser{Role: "admin"},
			wantFields: []core.FieldError{
				{Field: "name", Error: "this field is required"},
				{Field: "password", Error: "this field is required"},
			},
		},
		{
			name:       "short password",
			nu:         user.NewUser{Role: "admin", Name: "Root", Password: "x7#"},
			wantFields: []core.FieldError{{Field: "password", Error: "password must contain at least 6 characters"}},
		},
		{
			name:       "password with whitespace",
			nu:         user.NewUser{Role: "admin", Name: "Root", Password: "Xq7# Lm9$zW"},
			wantFields: []core.FieldError{{Field: "password", Error: "password must not contain whitespace"}},
		},
		{
			name:       "password similar to name",
			nu:         user.NewUser{Role: "admin", Name: "Mia Paul", Password: "miapaul1"},
			wantFields: []core.FieldError{{Field: "password", Error: "password cannot be similar to user attributes"}},
		},
		{
			name:       "username taken",
			nu:         user.NewUser{Role: "admin", Name: "Root", Username: "Student", Password: strongPwd},
			wantFields: []core.FieldError{{Field: "username", Error: user.ErrUsernameExists.Error()}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nu := tt.nu
			err := nu.ValidateForAdmin(env.Validate, env.UserSvc)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ElementsMatch(t, tt.wantFields, fieldErrors(t, env, err))
		})
	}
}

func TestNewUser_Validate(t *testing.T) {
	env := testutil.NewSeededEnv(t)

	t.Run("email required", func(t *testing.T) {
		nu := user.NewUser{Role: "student", Name: "Mia Paul", Password: strongPwd}
		err := nu.Validate(env.Validate, env.UserSvc)
		require.Error(t, err)
		assert.Equal(t, []core.FieldError{{Field: "email", Error: "this field is required"}}, fieldErrors(t, env, err))
	})

	t.Run("role fields not required", func(t *testing.T) {
		nu := user.NewUser{Role: "STUDENT", Name: "Mia Paul", Email: " Mia@College.edu ", Password: strongPwd}
		require.NoError(t, nu.Validate(env.Validate, env.UserSvc))
		assert.Equal(t, "student", nu.Role)
		assert.Equal(t, "mia@college.edu", nu.Email)

		_, err := env.UserSvc.Create(ctx, nu)
		require.NoError(t, err)
	})

	t.Run("email taken", func(t *testing.T) {
		nu := user.NewUser{Role: "student", Name: "Mia Paulson", Email: "MIA@college.edu", Password: strongPwd}
		err := nu.Validate(env.Validate, env.UserSvc)
		require.Error(t, err)
		assert.Equal(t, []core.FieldError{{Field: "email", Error: user.ErrEmailExists.Error()}}, fieldErrors(t, env, err))
	})
}
