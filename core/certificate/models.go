package certificate

import (
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/certdesk/core"
)

// Certificate is issued to one student for one event. It is never modified once created.
type Certificate struct {
	ID        int    `json:"id" db:"id"`
	StudentID string `json:"student_id" db:"student_id"`
	EventID   int    `json:"event_id" db:"event_id"`
	EventName string `json:"event_name" db:"event_name"`
	Organizer string `json:"organizer" db:"organizer"`
	IssueDate string `json:"issue_date" db:"issue_date"`
	FileURL   string `json:"file_url" db:"file_url"`
}

// NewCertificate records a certificate whose file is already hosted somewhere.
type NewCertificate struct {
	EventID   int    `json:"event_id" validate:"required,min=1"`
	StudentID string `json:"student_id" validate:"required"`
	FileURL   string `json:"file_url" validate:"required,url"`
}

func (nc *NewCertificate) Validate(validate *validator.Validate) error {
	nc.StudentID = core.CleanString(nc.StudentID)
	nc.FileURL = core.CleanString(nc.FileURL)
	return validate.Struct(nc)
}

// File is one certificate file of an upload batch.
type File struct {
	Name        string
	ContentType string
	Content     io.Reader
}

// Batch is a set of certificate files distributed together for one event.
type Batch struct {
	EventID     int
	OrganizerID string
	Files       []File
}

// Parsed holds what a certificate filename tells about its recipient.
type Parsed struct {
	StudentID string
	ClassID   string
	Rest      []string
}

// FilenameError reports a certificate filename that does not follow the naming convention.
type FilenameError struct {
	Filename string
}

func (err FilenameError) Error() string {
	return `Filename "` + err.Filename + `" must be in format: studentId_classId_anything.pdf`
}

// ParseFilename reads the student and class IDs out of a certificate filename.
// Everything from the first "." on is dropped and the rest must hold at least 2 "_" separated segments.
func ParseFilename(name string) (Parsed, error) {
	base := strings.SplitN(name, ".", 2)[0]
	parts := strings.Split(base, "_")
	if len(parts) < 2 {
		return Parsed{}, FilenameError{Filename: name}
	}
	return Parsed{StudentID: parts[0], ClassID: parts[1], Rest: parts[2:]}, nil
}

// ParseFilenames parses every filename, stopping at the first invalid one.
func ParseFilenames(names []string) ([]Parsed, error) {
	parsed := make([]Parsed, 0, len(names))
	for _, name := range names {
		p, err := ParseFilename(name)
		if err != nil {
			return nil, err
		}
		parsed = append(parsed, p)
	}
	return parsed, nil
}

// IsFilenameError reports whether err was caused by an invalid certificate filename.
func IsFilenameError(err error) bool {
	_, ok := errors.Cause(err).(FilenameError)
	return ok
}
