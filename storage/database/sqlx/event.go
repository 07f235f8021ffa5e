package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/certdesk/core/event"
)

const eventColumns = `id, name, organizer_id, organizer, to_char(date, 'YYYY-MM-DD') AS date, status, certs_uploaded`

type eventRepository struct {
	db *sqlx.DB
}

var _ event.Repository = (*eventRepository)(nil)

func NewEventRepository(db *sqlx.DB) event.Repository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) CreateEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return event.Event{}, errors.Wrap(err, "beginning transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if evt.ID == 0 {
		// IDs follow the highest existing one
		if _, err = tx.ExecContext(ctx, `LOCK TABLE events IN SHARE ROW EXCLUSIVE MODE`); err != nil {
			return event.Event{}, errors.Wrap(err, "locking events")
		}
		if err = tx.GetContext(ctx, &evt.ID, `SELECT COALESCE(MAX(id), 0) + 1 FROM events`); err != nil {
			return event.Event{}, errors.Wrap(err, "allocating event ID")
		}
	}

	q := `INSERT INTO events (id, name, organizer_id, organizer, date, status, certs_uploaded)
		VALUES (:id, :name, :organizer_id, :organizer, :date, :status, :certs_uploaded)`
	if _, err = tx.NamedExecContext(ctx, q, evt); err != nil {
		return event.Event{}, errors.Wrap(err, "inserting event")
	}
	if err = tx.Commit(); err != nil {
		return event.Event{}, errors.Wrap(err, "committing event")
	}
	return evt, nil
}

func (repo *eventRepository) GetEventByID(ctx context.Context, id int) (event.Event, error) {
	var evt event.Event
	if err := repo.db.GetContext(ctx, &evt, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id); err != nil {
		if err == sql.ErrNoRows {
			return event.Event{}, event.ErrNotFound
		}
		return event.Event{}, errors.Wrap(err, "selecting event")
	}
	return evt, nil
}

func (repo *eventRepository) QueryEvents(ctx context.Context, organizerID string) ([]event.Event, error) {
	events := make([]event.Event, 0)
	q := `SELECT ` + eventColumns + ` FROM events WHERE ($1 = '' OR organizer_id = $1) ORDER BY id`
	if err := repo.db.SelectContext(ctx, &events, q, organizerID); err != nil {
		return nil, errors.Wrap(err, "selecting events")
	}
	return events, nil
}

func (repo *eventRepository) MarkDistributed(ctx context.Context, id, certsUploaded int) (event.Event, error) {
	var evt event.Event
	q := `UPDATE events SET status = $1, certs_uploaded = $2 WHERE id = $3 AND status = $4 RETURNING ` + eventColumns
	err := repo.db.GetContext(ctx, &evt, q, event.StatusDistributed, certsUploaded, id, event.StatusPending)
	if err == nil {
		return evt, nil
	}
	if err != sql.ErrNoRows {
		return event.Event{}, errors.Wrap(err, "updating event status")
	}

	// nothing updated: either unknown or not Pending anymore
	if _, err = repo.GetEventByID(ctx, id); err != nil {
		return event.Event{}, err
	}
	return event.Event{}, event.ErrAlreadyDistributed
}
