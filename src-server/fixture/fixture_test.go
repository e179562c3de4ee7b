package fixture_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"schedule/src-server/fixture"
	"schedule/src-server/model"
	"schedule/src-server/occurrence"
	"schedule/src-server/recurrence"
	"schedule/src-server/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const teamYAML = `
calendars:
  - id: team
    name: "  team calendar. "
    timezone: Europe/Paris
    events:
      - id: standup
        title: standup
        start: 2024-01-01T10:00:00Z
        end: 2024-01-01T10:15:00Z
        rrule: FREQ=WEEKLY;COUNT=4
        exdates: [2024-01-15T10:00:00Z]
        overrides:
          - slot: 2024-01-08T10:00:00Z
            start: 2024-01-09T14:00:00Z
          - slot: 2024-01-22T10:00:00Z
            cancelled: true
      - title: launch party
        start: 2024-01-20T18:00:00Z
        end: 2024-01-20T23:00:00Z
`

type target struct {
	*memory.Events
	calendars []*model.Calendar
}

func (t *target) SaveCalendar(_ context.Context, c *model.Calendar) error {
	t.calendars = append(t.calendars, c)
	return nil
}

func TestLoadAndImport(t *testing.T) {
	ctx := context.Background()
	f, err := fixture.Load(strings.NewReader(teamYAML))
	require.NoError(t, err)
	require.Len(t, f.Calendars, 1)
	assert.Equal(t, "Team Calendar", f.Calendars[0].Name)
	assert.Equal(t, "Standup", f.Calendars[0].Events[0].Title)
	assert.NotEmpty(t, f.Calendars[0].Events[1].ID, "missing ids are generated")

	tgt := &target{Events: memory.NewEvents()}
	store := occurrence.NewStore(memory.NewOverrides())
	res, err := fixture.Import(ctx, f, tgt, store)
	require.NoError(t, err)
	assert.Equal(t, fixture.Result{Calendars: 1, Events: 2, Overrides: 2}, res)
	assert.Equal(t, "Europe/Paris", tgt.calendars[0].Timezone)

	events, err := tgt.ListEvents(ctx, "team")
	require.NoError(t, err)
	require.Len(t, events, 2)

	window := recurrence.Window{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
	got, err := store.MaterializeAll(ctx, events, window)
	require.NoError(t, err)
	// Jan 1, Jan 9 (moved), launch on Jan 20, Jan 22 (cancelled), Jan 29
	require.Len(t, got, 5)
	assert.Equal(t, time.Date(2024, 1, 9, 14, 15, 0, 0, time.UTC), got[1].End)
	assert.Equal(t, "Launch Party", got[2].Title)
	assert.True(t, got[3].Cancelled)
	assert.Equal(t, time.Date(2024, 1, 29, 10, 0, 0, 0, time.UTC), got[4].Start)
}

func TestLoad_Rejects(t *testing.T) {
	_, err := fixture.Load(strings.NewReader("calendars:\n  - name: x\n    colour: red\n"))
	assert.Error(t, err, "unknown fields are rejected")

	f, err := fixture.Load(strings.NewReader(`
calendars:
  - name: x
    events:
      - title: bad
        start: 2024-01-01T10:00:00Z
        end: 2024-01-01T11:00:00Z
        rrule: FREQ=WEEKLY;BYDAY=MO
`))
	require.NoError(t, err)
	_, err = fixture.Import(context.Background(), f, &target{Events: memory.NewEvents()}, occurrence.NewStore(memory.NewOverrides()))
	assert.ErrorIs(t, err, recurrence.ErrInvalidRule)
}
