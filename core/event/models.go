package event

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/certdesk/core"
)

type Status string

// Statuses: an event only ever moves from Pending to Distributed.
const (
	StatusPending     Status = "Pending"
	StatusDistributed Status = "Distributed"
)

type Event struct {
	ID            int    `json:"event_id" db:"id"`
	Name          string `json:"event_name" db:"name"`
	OrganizerID   string `json:"organizer_id" db:"organizer_id"`
	Organizer     string `json:"organizer,omitempty" db:"organizer"`
	Date          string `json:"date" db:"date"`
	Status        Status `json:"status" db:"status"`
	CertsUploaded int    `json:"certs_uploaded" db:"certs_uploaded"`
}

func (e Event) IsDistributed() bool { return e.Status == StatusDistributed }

// NewEvent contains information needed to create a new Event.
type NewEvent struct {
	Name        string `json:"event_name" validate:"required"`
	Date        string `json:"date" validate:"required,isodate"`
	OrganizerID string `json:"organizer_id" validate:"required"`
}

func (ne *NewEvent) Validate(validate *validator.Validate) error {
	ne.Name = core.CleanString(ne.Name)
	ne.Date = core.CleanString(ne.Date)
	ne.OrganizerID = core.CleanString(ne.OrganizerID)
	return validate.Struct(ne)
}

// NextID returns the ID following every ID of events.
func NextID(events []Event) int {
	var max int
	for _, evt := range events {
		if evt.ID > max {
			max = evt.ID
		}
	}
	return max + 1
}
