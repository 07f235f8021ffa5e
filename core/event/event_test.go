package event_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/certdesk/core"
	"github.com/trezcool/certdesk/core/event"
	testutil "github.com/trezcool/certdesk/tests"
)

func TestNextID(t *testing.T) {
	tests := []struct {
		name   string
		events []event.Event
		want   int
	}{
		{name: "no events", want: 1},
		{name: "after the highest", events: []event.Event{{ID: 101}, {ID: 97}, {ID: 103}, {ID: 102}}, want: 104},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, event.NextID(tt.events))
		})
	}
}

func TestNewEvent_Validate(t *testing.T) {
	env := testutil.NewEnv(t)

	tests := []struct {
		name       string
		ne         event.NewEvent
		wantFields []core.FieldError
	}{
		{name: "valid", ne: event.NewEvent{Name: " Sports Day ", Date: "2026-01-10", OrganizerID: "ORG001"}},
		{
			name: "blank",
			ne:   event.NewEvent{Name: "  ", OrganizerID: "ORG001"},
			wantFields: []core.FieldError{
				{Field: "event_name", Error: "this field is required"},
				{Field: "date", Error: "this field is required"},
			},
		},
		{
			name:       "bad date",
			ne:         event.NewEvent{Name: "Sports Day", Date: "10/01/2026", OrganizerID: "ORG001"},
			wantFields: []core.FieldError{{Field: "date", Error: "date must be a date in the format YYYY-MM-DD"}},
		},
		{
			name:       "no organizer",
			ne:         event.NewEvent{Name: "Sports Day", Date: "2026-01-10"},
			wantFields: []core.FieldError{{Field: "organizer_id", Error: "this field is required"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ne := tt.ne
			err := ne.Validate(env.Validate)
			if tt.wantFields == nil {
				require.NoError(t, err)
				assert.Equal(t, "Sports Day", ne.Name)
				return
			}
			vErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "unexpected error: %v", err)
			assert.Equal(t, tt.wantFields, core.TranslateFields(vErrs, env.Translator))
		})
	}
}

func TestService(t *testing.T) {
	env := testutil.NewSeededEnv(t)
	ctx := context.Background()

	evt, err := env.EventSvc.Create(ctx, event.NewEvent{Name: "Sports Day", Date: "2026-01-10", OrganizerID: "ORG001"}, "Alumni Association")
	require.NoError(t, err)
	assert.Equal(t, event.Event{
		ID:          104,
		Name:        "Sports Day",
		OrganizerID: "ORG001",
		Organizer:   "Alumni Association",
		Date:        "2026-01-10",
		Status:      event.StatusPending,
	}, evt)

	t.Run("GetPending", func(t *testing.T) {
		tests := []struct {
			name        string
			id          int
			organizerID string
			wantErr     error
		}{
			{name: "pending", id: 104, organizerID: "ORG001"},
			{name: "distributed", id: 102, organizerID: "ORG001", wantErr: event.ErrAlreadyDistributed},
			{name: "someone else's", id: 101, organizerID: "ORG002", wantErr: event.ErrNotOrganizer},
			{name: "unknown", id: 42, organizerID: "ORG001", wantErr: event.ErrNotFound},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				evt, err := env.EventSvc.GetPending(ctx, tt.id, tt.organizerID)
				if tt.wantErr != nil {
					assert.Equal(t, tt.wantErr, err)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tt.id, evt.ID)
			})
		}
	})

	t.Run("MarkDistributed", func(t *testing.T) {
		evt, err := env.EventSvc.MarkDistributed(ctx, 104, 12)
		require.NoError(t, err)
		assert.Equal(t, event.StatusDistributed, evt.Status)
		assert.Equal(t, 12, evt.CertsUploaded)

		// never twice
		_, err = env.EventSvc.MarkDistributed(ctx, 104, 3)
		assert.Equal(t, event.ErrAlreadyDistributed, err)
		_, err = env.EventSvc.MarkDistributed(ctx, 42, 3)
		assert.Equal(t, event.ErrNotFound, err)

		stored, err := env.EventSvc.GetByID(ctx, 104)
		require.NoError(t, err)
		assert.Equal(t, 12, stored.CertsUploaded)
	})

	t.Run("Query", func(t *testing.T) {
		events, err := env.EventSvc.Query(ctx, "ORG001")
		require.NoError(t, err)
		ids := make([]int, 0, len(events))
		for _, e := range events {
			ids = append(ids, e.ID)
		}
		assert.Equal(t, []int{101, 102, 103, 104}, ids)
	})
}
