// Package api is the HTTP client of the certdesk API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/certdesk/core/certificate"
	"github.com/trezcool/certdesk/core/event"
	"github.com/trezcool/certdesk/core/user"
)

// ErrServer is returned when the API cannot be reached or answers with something unreadable.
var ErrServer = errors.New("server error")

// Error is a failure reported by the API.
type Error struct {
	Status  int
	Message string            // may be empty
	Fields  map[string]string // per-field validation errors
}

func (err *Error) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("api error %d", err.Status)
	}
	return err.Message
}

// MessageOf returns the message reported by the API for err, or fallback.
func MessageOf(err error, fallback string) string {
	if apiErr, ok := errors.Cause(err).(*Error); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// IsServerError reports whether err is a transport or malformed-response error.
func IsServerError(err error) bool {
	return errors.Cause(err) == ErrServer
}

type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}

type Client struct {
	baseURL string
	rest    *rest.Client
	token   string
}

// NewClient returns a Client of the API rooted at baseURL (e.g. http://localhost:5000/api).
// The default http.Client is used when httpClient is nil.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		rest:    &rest.Client{HTTPClient: httpClient},
	}
}

// SetToken makes the Client identify itself with token.
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) newRequest(method rest.Method, path string) rest.Request {
	req := rest.Request{
		Method:  method,
		BaseURL: c.baseURL + path,
		Headers: map[string]string{"Accept": "application/json"},
	}
	if c.token != "" {
		req.Headers["Authorization"] = "Bearer " + c.token
	}
	return req
}

func (c *Client) get(ctx context.Context, path string, query map[string]string, out interface{}) error {
	req := c.newRequest(rest.Get, path)
	if len(query) > 0 {
		req.QueryParams = query
	}
	return c.do(ctx, req, out)
}

func (c *Client) post(ctx context.Context, path string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "encoding request")
	}
	req := c.newRequest(rest.Post, path)
	req.Headers["Content-Type"] = "application/json"
	req.Body = body
	return c.do(ctx, req, out)
}

func (c *Client) do(ctx context.Context, req rest.Request, out interface{}) error {
	httpReq, err := rest.BuildRequestObject(req)
	if err != nil {
		return errors.Wrapf(ErrServer, "%s %s: %v", req.Method, req.BaseURL, err)
	}
	hr, err := c.rest.MakeRequest(httpReq.WithContext(ctx))
	if err != nil {
		return errors.Wrapf(ErrServer, "%s %s: %v", req.Method, req.BaseURL, err)
	}
	resp, err := rest.BuildResponse(hr)
	if err != nil {
		return errors.Wrapf(ErrServer, "%s %s: reading response: %v", req.Method, req.BaseURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var body errorBody
		if err = json.Unmarshal([]byte(resp.Body), &body); err != nil {
			return &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		msg := body.Error
		if msg == "" {
			msg = body.Message
		}
		return &Error{Status: resp.StatusCode, Message: msg, Fields: body.Fields}
	}

	if out == nil {
		return nil
	}
	if err = json.Unmarshal([]byte(resp.Body), out); err != nil {
		return errors.Wrapf(ErrServer, "%s %s: decoding response: %v", req.Method, req.BaseURL, err)
	}
	return nil
}

// failure is the envelope flag of the API's {"success": ...} responses.
type failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (f failure) check() error {
	if f.Success {
		return nil
	}
	msg := f.Error
	if msg == "" {
		msg = f.Message
	}
	return &Error{Status: http.StatusOK, Message: msg}
}

// Users

type LoginResult struct {
	User  user.User `json:"user"`
	Token string    `json:"token"`
}

// Login authenticates by username, email or ID. The role is sent along but the account decides it.
func (c *Client) Login(ctx context.Context, identifier, password string, role user.Role) (LoginResult, error) {
	in := map[string]string{"username": identifier, "password": password}
	if role != "" {
		in["role"] = string(role)
	}
	var out struct {
		failure
		LoginResult
	}
	if err := c.post(ctx, "/login", in, &out); err != nil {
		return LoginResult{}, err
	}
	return out.LoginResult, out.check()
}

func (c *Client) Register(ctx context.Context, nu user.NewUser) (user.User, error) {
	return c.postUser(ctx, "/register", nu)
}

// CreateUser creates an account the way the admin dashboard does.
func (c *Client) CreateUser(ctx context.Context, nu user.NewUser) (user.User, error) {
	return c.postUser(ctx, "/admin/create-user", nu)
}

func (c *Client) postUser(ctx context.Context, path string, nu user.NewUser) (user.User, error) {
	var out struct {
		failure
		User user.User `json:"user"`
	}
	if err := c.post(ctx, path, nu, &out); err != nil {
		return user.User{}, err
	}
	return out.User, out.check()
}

// Users lists accounts, optionally filtered by role and department.
func (c *Client) Users(ctx context.Context, role user.Role, dept string) ([]user.User, error) {
	query := make(map[string]string)
	if role != "" {
		query["role"] = string(role)
	}
	if dept != "" {
		query["dept"] = dept
	}
	var users []user.User
	if err := c.get(ctx, "/admin/users", query, &users); err != nil {
		return nil, err
	}
	return users, nil
}

type StudentData struct {
	Student      user.User                 `json:"student"`
	Certificates []certificate.Certificate `json:"certificates"`
}

func (c *Client) Student(ctx context.Context, id string) (StudentData, error) {
	var out struct {
		failure
		StudentData
	}
	if err := c.get(ctx, "/student/"+id, nil, &out); err != nil {
		return StudentData{}, err
	}
	return out.StudentData, out.check()
}

type TeacherData struct {
	Teacher      user.User                 `json:"teacher"`
	Students     []user.User               `json:"students"`
	Certificates []certificate.Certificate `json:"certificates"`
}

func (c *Client) Teacher(ctx context.Context, id string) (TeacherData, error) {
	var out struct {
		failure
		TeacherData
	}
	if err := c.get(ctx, "/teacher/"+id, nil, &out); err != nil {
		return TeacherData{}, err
	}
	return out.TeacherData, out.check()
}

// Events

// Events lists the events of an organizer, or every event when organizerID is empty.
func (c *Client) Events(ctx context.Context, organizerID string) ([]event.Event, error) {
	var query map[string]string
	if organizerID != "" {
		query = map[string]string{"organizer_id": organizerID}
	}
	var events []event.Event
	if err := c.get(ctx, "/events", query, &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Client) CreateEvent(ctx context.Context, ne event.NewEvent) (event.Event, error) {
	var out struct {
		failure
		Event event.Event `json:"event"`
	}
	if err := c.post(ctx, "/events", ne, &out); err != nil {
		return event.Event{}, err
	}
	return out.Event, out.check()
}

// Certificates

type UploadResult struct {
	Event         event.Event               `json:"event"`
	Files         []certificate.Certificate `json:"files"`
	CertsUploaded int                       `json:"certs_uploaded"`
}

// UploadCertificates sends a batch of certificate files in one multipart request.
func (c *Client) UploadCertificates(ctx context.Context, batch certificate.Batch) (UploadResult, error) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, f := range batch.Files {
		if err := writeFile(w, "files", f); err != nil {
			return UploadResult{}, errors.Wrapf(err, "writing %s", f.Name)
		}
	}
	if err := w.WriteField("event_id", strconv.Itoa(batch.EventID)); err != nil {
		return UploadResult{}, errors.Wrap(err, "writing event_id")
	}
	if err := w.WriteField("organizer_id", batch.OrganizerID); err != nil {
		return UploadResult{}, errors.Wrap(err, "writing organizer_id")
	}
	if err := w.Close(); err != nil {
		return UploadResult{}, errors.Wrap(err, "closing multipart body")
	}

	req := c.newRequest(rest.Post, "/upload-certificate")
	req.Headers["Content-Type"] = w.FormDataContentType()
	req.Body = body.Bytes()

	var out struct {
		failure
		UploadResult
	}
	if err := c.do(ctx, req, &out); err != nil {
		return UploadResult{}, err
	}
	return out.UploadResult, out.check()
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func writeFile(w *multipart.Writer, field string, f certificate.File) error {
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
		quoteEscaper.Replace(field), quoteEscaper.Replace(f.Name)))
	h.Set("Content-Type", contentType)

	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	if f.Content == nil {
		return nil
	}
	_, err = io.Copy(part, f.Content)
	return err
}

// Certificates lists the certificates of a student.
func (c *Client) Certificates(ctx context.Context, studentID string) ([]certificate.Certificate, error) {
	var certs []certificate.Certificate
	if err := c.get(ctx, "/certificates/"+studentID, nil, &certs); err != nil {
		return nil, err
	}
	return certs, nil
}

// RecordCertificate registers a certificate whose file is hosted elsewhere.
func (c *Client) RecordCertificate(ctx context.Context, nc certificate.NewCertificate) (certificate.Certificate, error) {
	var out struct {
		failure
		Certificate certificate.Certificate `json:"certificate"`
	}
	if err := c.post(ctx, "/certificates/upload", nc, &out); err != nil {
		return certificate.Certificate{}, err
	}
	return out.Certificate, out.check()
}
