// Package upload runs the organizer's certificate distribution: pick an event, submit a batch of files.
package upload

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/certdesk/core/certificate"
	"github.com/trezcool/certdesk/core/event"
	"github.com/trezcool/certdesk/portal/backend"
)

var (
	// errors
	ErrNothingToUpload    = errors.New("Select files and an event first.")
	ErrAlreadyDistributed = errors.New("Certificates already distributed for this event.")
	ErrUploadInProgress   = errors.New("an upload is already in progress")
	ErrEventRequired      = errors.New("Event name and date are required.")
)

// Messages
const (
	msgUploadServerError = "Server error during upload."
	msgUnknownError      = "Server error"
)

// State is a snapshot of a Board.
type State struct {
	Events          []event.Event
	SelectedEventID *int
	Status          string
}

// Board is the organizer's event list and upload form.
// It is safe for concurrent use; results arriving after Unmount are dropped.
type Board struct {
	backend     backend.Backend
	organizerID string

	mu        sync.Mutex
	events    []event.Event
	selected  *int
	status    string
	inFlight  bool
	unmounted bool
}

func NewBoard(b backend.Backend, organizerID string, events []event.Event) *Board {
	return &Board{
		backend:     b,
		organizerID: organizerID,
		events:      append([]event.Event(nil), events...),
	}
}

func (b *Board) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	st := State{
		Events: append([]event.Event(nil), b.events...),
		Status: b.status,
	}
	if b.selected != nil {
		id := *b.selected
		st.SelectedEventID = &id
	}
	return st
}

// Select makes id the event the next batch is submitted for.
func (b *Board) Select(id int) {
	b.mu.Lock()
	b.selected = &id
	b.mu.Unlock()
}

// Unmount detaches the Board: pending results no longer change it.
func (b *Board) Unmount() {
	b.mu.Lock()
	b.unmounted = true
	b.mu.Unlock()
}

func (b *Board) setStatus(status string) {
	if !b.unmounted {
		b.status = status
	}
}

func (b *Board) findEvent(id int) (int, bool) {
	for i, evt := range b.events {
		if evt.ID == id {
			return i, true
		}
	}
	return -1, false
}

// CreateEvent creates a Pending event for the organizer, adds it to the Board and selects it.
func (b *Board) CreateEvent(ctx context.Context, name, date string) (event.Event, error) {
	name, date = strings.TrimSpace(name), strings.TrimSpace(date)
	if name == "" || date == "" {
		b.mu.Lock()
		b.setStatus(ErrEventRequired.Error())
		b.mu.Unlock()
		return event.Event{}, ErrEventRequired
	}

	evt, err := b.backend.CreateEvent(ctx, b.organizerID, backend.NewEvent{Name: name, Date: date})

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.setStatus(backend.MessageOf(err, "Failed to create event"))
		return event.Event{}, err
	}
	if !b.unmounted {
		b.events = append(b.events, evt)
		id := evt.ID
		b.selected = &id
		b.status = fmt.Sprintf("Event %q created.", evt.Name)
	}
	return evt, nil
}

// Submit sends files as one batch for the selected event.
// Every check runs before anything is sent; a failed check resolves the Task at once.
// ctx is not used to cancel the request.
func (b *Board) Submit(ctx context.Context, files []certificate.File) *Task {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(files) == 0 || b.selected == nil {
		b.setStatus(ErrNothingToUpload.Error())
		return failedTask(ErrNothingToUpload)
	}
	eventID := *b.selected
	i, ok := b.findEvent(eventID)
	if !ok {
		b.setStatus(ErrNothingToUpload.Error())
		return failedTask(ErrNothingToUpload)
	}
	if b.events[i].IsDistributed() {
		b.setStatus(ErrAlreadyDistributed.Error())
		return failedTask(ErrAlreadyDistributed)
	}
	for _, f := range files {
		if _, err := certificate.ParseFilename(f.Name); err != nil {
			b.setStatus(err.Error())
			return failedTask(err)
		}
	}
	if b.inFlight {
		return failedTask(ErrUploadInProgress)
	}

	b.inFlight = true
	b.setStatus(fmt.Sprintf("Uploading %d file(s)...", len(files)))

	task := newTask()
	task.start()
	batch := backend.Batch{EventID: eventID, OrganizerID: b.organizerID, Files: files}
	go b.upload(context.WithoutCancel(ctx), batch, task)
	return task
}

func (b *Board) upload(ctx context.Context, batch backend.Batch, task *Task) {
	res, err := b.backend.UploadCertificates(ctx, batch)

	b.mu.Lock()
	b.inFlight = false
	if err != nil {
		var status string
		if backend.IsUnavailable(err) {
			status = msgUploadServerError
		} else {
			status = "Error uploading certificates: " + backend.MessageOf(err, msgUnknownError)
		}
		b.setStatus(status)
		b.mu.Unlock()
		task.resolve(Result{Status: status}, err)
		return
	}

	status := fmt.Sprintf("Successfully uploaded %d file(s).", len(res.Certificates))
	if !b.unmounted {
		if i, ok := b.findEvent(batch.EventID); ok {
			b.events[i].Status = event.StatusDistributed
			b.events[i].CertsUploaded = res.CertsUploaded
		}
		if b.selected != nil && *b.selected == batch.EventID {
			b.selected = nil
		}
		b.status = status
	}
	b.mu.Unlock()
	task.resolve(Result{Event: res.Event, Certificates: res.Certificates, Status: status}, nil)
}
