package event

import (
	"context"

	"github.com/pkg/errors"
)

var (
	// errors
	ErrNotFound           = errors.New("event not found")
	ErrAlreadyDistributed = errors.New("certificates already distributed for this event")
	ErrNotOrganizer       = errors.New("event does not belong to this organizer")
)

type (
	Repository interface {
		// CreateEvent stores evt with an ID strictly greater than every existing event ID.
		CreateEvent(ctx context.Context, evt Event) (Event, error)
		GetEventByID(ctx context.Context, id int) (Event, error)
		// QueryEvents returns events ordered by ID; an empty organizerID returns every event.
		QueryEvents(ctx context.Context, organizerID string) ([]Event, error)
		// MarkDistributed moves a Pending event to Distributed.
		// It returns ErrAlreadyDistributed when the event is not Pending anymore.
		MarkDistributed(ctx context.Context, id, certsUploaded int) (Event, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores a new Pending event for an organizer named organizerName.
func (svc *Service) Create(ctx context.Context, ne NewEvent, organizerName string) (Event, error) {
	return svc.repo.CreateEvent(ctx, Event{
		Name:        ne.Name,
		OrganizerID: ne.OrganizerID,
		Organizer:   organizerName,
		Date:        ne.Date,
		Status:      StatusPending,
	})
}

func (svc *Service) GetByID(ctx context.Context, id int) (Event, error) {
	return svc.repo.GetEventByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, organizerID string) ([]Event, error) {
	return svc.repo.QueryEvents(ctx, organizerID)
}

// GetPending returns the event only if organizerID runs it and its certificates were not distributed yet.
func (svc *Service) GetPending(ctx context.Context, id int, organizerID string) (Event, error) {
	evt, err := svc.repo.GetEventByID(ctx, id)
	if err != nil {
		return Event{}, err
	}
	if evt.OrganizerID != organizerID {
		return Event{}, ErrNotOrganizer
	}
	if evt.IsDistributed() {
		return Event{}, ErrAlreadyDistributed
	}
	return evt, nil
}

func (svc *Service) MarkDistributed(ctx context.Context, id, certsUploaded int) (Event, error) {
	return svc.repo.MarkDistributed(ctx, id, certsUploaded)
}
