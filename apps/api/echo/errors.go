package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/certdesk/core"
	"github.com/trezcool/certdesk/core/certificate"
	"github.com/trezcool/certdesk/core/event"
	"github.com/trezcool/certdesk/core/user"
)

var (
	errHttpNotFound      = echo.NewHTTPError(http.StatusNotFound, "not found")
	errStudentNotFound   = echo.NewHTTPError(http.StatusNotFound, "Student not found")
	errTeacherNotFound   = echo.NewHTTPError(http.StatusNotFound, "Teacher not found")
	errOrganizerNotFound = echo.NewHTTPError(http.StatusNotFound, "Organizer not found")
	errInvalidEventID    = echo.NewHTTPError(http.StatusBadRequest, "event_id must be a positive integer")
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Message string            `json:"message,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// withMessage marks errors whose response repeats the error under "message".
type withMessage struct {
	error
}

func (err withMessage) Cause() error { return err.error }

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		resp := ErrorResponse{Success: false}

		origErr := errors.Cause(err)
		switch origErr {
		case user.ErrInvalidCredentials:
			code = http.StatusUnauthorized
		case user.ErrNotFound, event.ErrNotFound:
			code = http.StatusNotFound
		case event.ErrAlreadyDistributed:
			code = http.StatusConflict
		case event.ErrNotOrganizer:
			code = http.StatusForbidden
		case certificate.ErrNoFiles:
			code = http.StatusBadRequest
		}
		if code != 0 {
			resp.Error = origErr.Error()
		}

		if code == 0 {
			switch e := origErr.(type) {
			case *echo.HTTPError:
				if e.Internal != nil {
					if herr, ok := e.Internal.(*echo.HTTPError); ok {
						e = herr
					}
				}
				code = e.Code
				if msg, ok := e.Message.(string); ok {
					resp.Error = msg
				} else {
					resp.Error = http.StatusText(code)
				}
			case validator.ValidationErrors:
				code = http.StatusBadRequest
				resp.Fields = fieldsMap(core.TranslateFields(e, translator))
				resp.Error = firstFieldMessage(core.TranslateFields(e, translator))
			case *core.ValidationError:
				code = http.StatusBadRequest
				resp.Fields = fieldsMap(e.Fields)
				if e.Err != nil {
					resp.Error = e.Err.Error()
				} else {
					resp.Error = firstFieldMessage(e.Fields)
				}
			case certificate.FilenameError, certificate.UnknownStudentError:
				code = http.StatusBadRequest
				resp.Error = e.Error()
			default: // any other error is a server error
				code = http.StatusInternalServerError
				resp.Error = http.StatusText(code)

				var usr user.User
				if claims, ok := getContextClaims(ctx); ok {
					usr.ID = claims.Subject
					usr.Username = claims.Username
					usr.Email = claims.Email
				}
				logger.Error(resp.Error, errors.Wrap(err, resp.Error), usr)

				// shutting down...
				if core.IsShutdown(err) {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
			resp.Error = err.Error()
		}
		if _, ok := err.(withMessage); ok {
			resp.Message = resp.Error
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, resp)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func fieldsMap(flds []core.FieldError) map[string]string {
	if len(flds) == 0 {
		return nil
	}
	m := make(map[string]string, len(flds))
	for _, f := range flds {
		m[f.Field] = f.Error
	}
	return m
}

func firstFieldMessage(flds []core.FieldError) string {
	if len(flds) == 0 {
		return http.StatusText(http.StatusBadRequest)
	}
	return flds[0].Field + ": " + flds[0].Error
}
