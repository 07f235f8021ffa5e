package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/certdesk/core/event"
)

type eventRepository struct {
	db *eventTable
}

var _ event.Repository = (*eventRepository)(nil)

func NewEventRepository(db *DB) event.Repository {
	return &eventRepository{db: db.event}
}

// query returns every event ordered by ID. The caller must hold the lock.
func (repo *eventRepository) query() []event.Event {
	events := make([]event.Event, 0, len(repo.db.table))
	for _, e := range repo.db.table {
		events = append(events, *e)
	}
	sort.Slice(events, func(i, j int) bool { return events[i].ID < events[j].ID })
	return events
}

func (repo *eventRepository) CreateEvent(_ context.Context, evt event.Event) (event.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if evt.ID == 0 {
		evt.ID = event.NextID(repo.query())
	}
	repo.db.table[evt.ID] = &evt
	return evt, nil
}

func (repo *eventRepository) GetEventByID(_ context.Context, id int) (event.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if evt, ok := repo.db.table[id]; ok {
		return *evt, nil
	}
	return event.Event{}, event.ErrNotFound
}

func (repo *eventRepository) QueryEvents(_ context.Context, organizerID string) ([]event.Event, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	events := make([]event.Event, 0)
	for _, evt := range repo.query() {
		if organizerID == "" || evt.OrganizerID == organizerID {
			events = append(events, evt)
		}
	}
	return events, nil
}

func (repo *eventRepository) MarkDistributed(_ context.Context, id, certsUploaded int) (event.Event, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	evt, ok := repo.db.table[id]
	if !ok {
		return event.Event{}, event.ErrNotFound
	}
	if evt.IsDistributed() {
		return event.Event{}, event.ErrAlreadyDistributed
	}
	evt.Status = event.StatusDistributed
	evt.CertsUploaded = certsUploaded
	return *evt, nil
}
