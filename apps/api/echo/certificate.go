package echoapi

import (
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/certdesk/core"
	"github.com/trezcool/certdesk/core/certificate"
	"github.com/trezcool/certdesk/core/event"
)

// multipart field names accepted for the uploaded files
var uploadFileFields = []string{"files", "files[]"}

type certificateApi struct {
	svc      *certificate.Service
	validate *validator.Validate
}

func registerCertificateAPI(g *echo.Group, deps ServerDeps) {
	api := certificateApi{
		svc:      deps.CertSvc,
		validate: deps.Validate,
	}

	g.POST("/upload-certificate", api.upload)

	cg := g.Group("/certificates")
	cg.GET("/:userId", api.queryByStudent)
	cg.POST("/upload", api.create)
}

// upload distributes a batch of certificate files for one event.
// Failures repeat their error under "message".
func (api *certificateApi) upload(ctx echo.Context) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		return withMessage{certificate.ErrNoFiles}
	}

	eventID, err := strconv.Atoi(core.CleanString(ctx.FormValue("event_id")))
	if err != nil || eventID < 1 {
		return withMessage{errInvalidEventID}
	}
	batch := certificate.Batch{
		EventID:     eventID,
		OrganizerID: core.CleanString(ctx.FormValue("organizer_id")),
	}

	var headers []*multipart.FileHeader
	for _, field := range uploadFileFields {
		headers = append(headers, form.File[field]...)
	}
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			return errors.Wrapf(err, "opening %s", fh.Filename)
		}
		defer f.Close()
		batch.Files = append(batch.Files, certificate.File{
			Name:        fh.Filename,
			ContentType: fh.Header.Get(echo.HeaderContentType),
			Content:     f,
		})
	}

	evt, certs, err := api.svc.Distribute(ctx.Request().Context(), batch)
	if err != nil {
		return withMessage{err}
	}
	return ctx.JSON(http.StatusOK, UploadResponse{
		Success:       true,
		Event:         evt,
		Files:         certs,
		CertsUploaded: evt.CertsUploaded,
	})
}

func (api *certificateApi) queryByStudent(ctx echo.Context) error {
	certs, err := api.svc.ListByStudent(ctx.Request().Context(), ctx.Param("userId"))
	if err != nil {
		return errors.Wrap(err, "querying certificates")
	}
	return ctx.JSON(http.StatusOK, nonNilCerts(certs))
}

func (api *certificateApi) create(ctx echo.Context) error {
	var data certificate.NewCertificate
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCertificate")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cert, err := api.svc.Record(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "recording certificate")
	}
	return ctx.JSON(http.StatusCreated, CertificateResponse{Success: true, Certificate: cert})
}

type (
	UploadResponse struct {
		Success       bool                      `json:"success"`
		Event         event.Event               `json:"event"`
		Files         []certificate.Certificate `json:"files"`
		CertsUploaded int                       `json:"certs_uploaded"`
	}

	CertificateResponse struct {
		Success     bool                    `json:"success"`
		Certificate certificate.Certificate `json:"certificate"`
	}
)
