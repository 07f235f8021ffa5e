package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/certdesk/core"
	"github.com/trezcool/certdesk/core/certificate"
	"github.com/trezcool/certdesk/core/user"
)

type userApi struct {
	conf       *core.Config
	svc        *user.Service
	certSvc    *certificate.Service
	validate   *validator.Validate
	translator ut.Translator
}

func registerUserAPI(g *echo.Group, deps ServerDeps) {
	api := userApi{
		conf:       deps.Conf,
		svc:        deps.UserSvc,
		certSvc:    deps.CertSvc,
		validate:   deps.Validate,
		translator: deps.Translator,
	}

	g.POST("/login", api.login)
	g.POST("/register", api.register)
	g.GET("/student/:id", api.student)
	g.GET("/teacher/:id", api.teacher)

	ag := g.Group("/admin")
	ag.POST("/create-user", api.create)
	ag.GET("/users", api.query)
}

// Handlers

func (api *userApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	usr, err := api.svc.Authenticate(ctx.Request().Context(), data.Identifier(), data.Password)
	if err != nil {
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(GetUserClaims(usr, api.conf), api.conf.SecretKey)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Success: true, User: usr, Token: token})
}

func (api *userApi) register(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, UserResponse{Success: true, User: usr})
}

func (api *userApi) create(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.ValidateForAdmin(api.validate, api.svc); err != nil {
		return err
	}

	usr, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	return ctx.JSON(http.StatusCreated, UserResponse{Success: true, User: usr})
}

func (api *userApi) query(ctx echo.Context) error {
	filter := user.QueryFilter{Dept: core.CleanString(ctx.QueryParam("dept"))}
	if r := ctx.QueryParam("role"); r != "" {
		role, ok := user.ParseRole(r)
		if !ok {
			return ctx.JSON(http.StatusOK, []user.User{})
		}
		filter.Role = role
	}

	users, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying users")
	}
	if users == nil {
		users = []user.User{}
	}
	return ctx.JSON(http.StatusOK, users)
}

func (api *userApi) student(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	student, err := api.svc.GetWithRole(reqCtx, ctx.Param("id"), user.RoleStudent)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errStudentNotFound
		}
		return errors.Wrap(err, "finding student")
	}

	certs, err := api.certSvc.ListByStudent(reqCtx, student.ID)
	if err != nil {
		return errors.Wrap(err, "querying certificates")
	}
	return ctx.JSON(http.StatusOK, StudentResponse{Success: true, Student: student, Certificates: nonNilCerts(certs)})
}

func (api *userApi) teacher(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()
	teacher, err := api.svc.GetWithRole(reqCtx, ctx.Param("id"), user.RoleTeacher)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errTeacherNotFound
		}
		return errors.Wrap(err, "finding teacher")
	}

	students, err := api.svc.StudentsOf(reqCtx, teacher)
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []user.User{}
	}
	certs, err := api.certSvc.ListByStudents(reqCtx, students)
	if err != nil {
		return errors.Wrap(err, "querying certificates")
	}
	return ctx.JSON(http.StatusOK, TeacherResponse{
		Success:      true,
		Teacher:      teacher,
		Students:     students,
		Certificates: nonNilCerts(certs),
	})
}

func nonNilCerts(certs []certificate.Certificate) []certificate.Certificate {
	if certs == nil {
		return []certificate.Certificate{}
	}
	return certs
}

type (
	LoginRequest struct {
		Username string `json:"username" validate:"required_without=Email"`
		Email    string `json:"email" validate:"omitempty"`
		Password string `json:"password" validate:"required"`
		Role     string `json:"role"` // ignored: the role comes from the account
	}

	LoginResponse struct {
		Success bool      `json:"success"`
		User    user.User `json:"user"`
		Token   string    `json:"token"`
	}

	UserResponse struct {
		Success bool      `json:"success"`
		User    user.User `json:"user"`
	}

	StudentResponse struct {
		Success      bool                      `json:"success"`
		Student      user.User                 `json:"student"`
		Certificates []certificate.Certificate `json:"certificates"`
	}

	TeacherResponse struct {
		Success      bool                      `json:"success"`
		Teacher      user.User                 `json:"teacher"`
		Students     []user.User               `json:"students"`
		Certificates []certificate.Certificate `json:"certificates"`
	}
)

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Username = core.CleanString(lr.Username, true /* lower */)
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

// Identifier is what the user logs in with: username (or ID) first, email otherwise.
func (lr *LoginRequest) Identifier() string {
	if lr.Username != "" {
		return lr.Username
	}
	return lr.Email
}
