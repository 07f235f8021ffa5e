package user

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/certdesk/core"
)

var (
	roleTag  = "role"
	roleText = "{0} must be one of: student, teacher, organizer, admin"

	requiredForRoleTag  = "required_for_role"
	requiredForRoleText = "{0} is required for this role"

	// password policy
	pwdMinLen     = 6
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to user attributes"
)

// InitValidators registers the user validators and their translations.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)

	validate.RegisterStructValidation(userStructValidation, NewUser{})
	core.RegisterCustomTranslation(validate, translator, requiredForRoleTag, requiredForRoleText)
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// Custom Validators

func roleValidation(fl validator.FieldLevel) bool {
	_, ok := ParseRole(fl.Field().String())
	return ok
}

// userStructValidation does struct level validation on NewUser.
func userStructValidation(sl validator.StructLevel) {
	nu, ok := sl.Current().Interface().(NewUser)
	if !ok {
		return
	}
	if nu.requireEmail {
		if nu.Email == "" {
			sl.ReportError(nu.Email, "email", "Email", "required", "")
		}
	} else {
		validateRoleFields(nu, sl)
	}
	if nu.Password != "" {
		validatePassword(nu.Password, nu.Name, nu.Username, nu.Email, sl)
	}
}

// validateRoleFields checks the fields each role needs:
// students and teachers belong to a class and a department, organizers run a club.
func validateRoleFields(nu NewUser, sl validator.StructLevel) {
	switch Role(nu.Role) {
	case RoleStudent, RoleTeacher:
		if nu.ClassID == "" {
			sl.ReportError(nu.ClassID, "class_id", "ClassID", requiredForRoleTag, "")
		}
		if nu.Dept == "" {
			sl.ReportError(nu.Dept, "dept", "Dept", requiredForRoleTag, "")
		}
	case RoleOrganizer:
		if nu.ClubName == "" {
			sl.ReportError(nu.ClubName, "club_name", "ClubName", requiredForRoleTag, "")
		}
	}
}

// validatePassword applies the password policy to provided password:
// - minLen: 6
// - no whitespace
// - no user attrs similarity
func validatePassword(pwd, name, uname, email string, sl validator.StructLevel) {
	reportErr := func(tag string) {
		sl.ReportError(pwd, "password", "Password", tag, "")
	}

	if len(pwd) < pwdMinLen {
		reportErr(pwdMinLenTag)
		return
	}
	for _, char := range pwd {
		if unicode.IsSpace(char) {
			reportErr(pwdNoSpaceTag)
			return
		}
	}

	getRatio := func(pass, usrAttr string) float64 {
		if usrAttr == "" {
			return 0
		}
		return difflib.NewMatcher(strings.Split(strings.ToLower(pass), ""), strings.Split(strings.ToLower(usrAttr), "")).QuickRatio()
	}
	if getRatio(pwd, name) >= pwdMaxSim ||
		getRatio(pwd, uname) >= pwdMaxSim ||
		getRatio(pwd, email) >= pwdMaxSim {
		reportErr(pwdAttrSimTag)
	}
}
