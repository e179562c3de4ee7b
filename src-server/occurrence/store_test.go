package occurrence_test

import (
	"context"
	"testing"
	"time"

	"schedule/src-server/occurrence"
	"schedule/src-server/recurrence"
	"schedule/src-server/storage/memory"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func weeklyStandup(count int) occurrence.Event {
	return occurrence.Event{
		ID:    "standup",
		Title: "Standup",
		Start: at(2024, 1, 1, 10, 0),
		End:   at(2024, 1, 1, 11, 0),
		Rule:  mo.Some(recurrence.MustRule(recurrence.Weekly, recurrence.WithCount(count))),
	}
}

func starts(occurrences []occurrence.Occurrence) []time.Time {
	out := make([]time.Time, 0, len(occurrences))
	for _, o := range occurrences {
		out = append(out, o.Start)
	}
	return out
}

type recorded struct {
	materialized int
	writes       []bool
}

func (r *recorded) ObserveMaterialize(string, int, time.Duration) { r.materialized++ }
func (r *recorded) ObserveOverrideWrite(_ string, cancelled bool) {
	r.writes = append(r.writes, cancelled)
}

func TestStore_MaterializeWithoutOverrides(t *testing.T) {
	store := occurrence.NewStore(memory.NewOverrides())
	window := recurrence.Window{Start: at(2024, 1, 1, 0, 0), End: at(2024, 2, 1, 0, 0)}

	got, err := store.Materialize(context.Background(), weeklyStandup(4), window)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		at(2024, 1, 1, 10, 0),
		at(2024, 1, 8, 10, 0),
		at(2024, 1, 15, 10, 0),
		at(2024, 1, 22, 10, 0),
	}, starts(got))
	for _, o := range got {
		assert.False(t, o.Persisted)
		assert.Equal(t, time.Hour, o.Duration())
	}
}

func TestStore_MovedOccurrenceChangesWindowMembership(t *testing.T) {
	ctx := context.Background()
	event := weeklyStandup(4)
	store := occurrence.NewStore(memory.NewOverrides())

	key := occurrence.SlotKey{EventID: event.ID, Start: at(2024, 1, 8, 10, 0)}
	moved, err := store.Move(ctx, event, key, at(2024, 1, 9, 14, 0))
	require.NoError(t, err)
	assert.True(t, moved.Moved())
	assert.Equal(t, at(2024, 1, 9, 15, 0), moved.End)

	window := recurrence.Window{Start: at(2024, 1, 1, 0, 0), End: at(2024, 1, 10, 0, 0)}
	got, err := store.Materialize(ctx, event, window)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, at(2024, 1, 1, 10, 0), got[0].Start)
	assert.Equal(t, at(2024, 1, 9, 14, 0), got[1].Start)
	assert.Equal(t, at(2024, 1, 8, 10, 0), got[1].OriginalStart)
	assert.True(t, got[1].Persisted)

	// the slot's original window no longer shows it
	got, err = store.Materialize(ctx, event, recurrence.Window{Start: at(2024, 1, 8, 0, 0), End: at(2024, 1, 9, 0, 0)})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_MovedIntoWindowFromFarAway(t *testing.T) {
	ctx := context.Background()
	event := weeklyStandup(0)
	store := occurrence.NewStore(memory.NewOverrides())

	key := occurrence.SlotKey{EventID: event.ID, Start: at(2024, 6, 3, 10, 0)}
	_, err := store.Save(ctx, event, key, at(2024, 1, 3, 9, 0), at(2024, 1, 3, 10, 0), false)
	require.NoError(t, err)

	got, err := store.Materialize(ctx, event, recurrence.Window{Start: at(2024, 1, 2, 0, 0), End: at(2024, 1, 5, 0, 0)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, key, got[0].Key())
}

func TestStore_MaterializeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	event := weeklyStandup(0)
	store := occurrence.NewStore(memory.NewOverrides())
	_, err := store.Cancel(ctx, event, occurrence.SlotKey{EventID: event.ID, Start: at(2024, 1, 15, 10, 0)})
	require.NoError(t, err)

	window := recurrence.Window{Start: at(2024, 1, 1, 0, 0), End: at(2024, 3, 1, 0, 0)}
	first, err := store.Materialize(ctx, event, window)
	require.NoError(t, err)
	second, err := store.Materialize(ctx, event, window)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestStore_OverrideShadowsGeneratedSlot(t *testing.T) {
	ctx := context.Background()
	event := weeklyStandup(0)
	repo := memory.NewOverrides()
	store := occurrence.NewStore(repo)

	key := occurrence.SlotKey{EventID: event.ID, Start: at(2024, 1, 8, 10, 0)}
	_, err := store.Save(ctx, event, key, at(2024, 1, 8, 10, 30), at(2024, 1, 8, 11, 30), false)
	require.NoError(t, err)

	got, err := store.Materialize(ctx, event, recurrence.Window{Start: at(2024, 1, 8, 0, 0), End: at(2024, 1, 9, 0, 0)})
	require.NoError(t, err)
	require.Len(t, got, 1, "override and generated occurrence for the same slot must not both appear")
	assert.Equal(t, at(2024, 1, 8, 10, 30), got[0].Start)
}

func TestStore_ZeroLengthWindowAtSlot(t *testing.T) {
	ctx := context.Background()
	event := weeklyStandup(4)
	store := occurrence.NewStore(memory.NewOverrides())
	slot := at(2024, 1, 8, 10, 0)
	key := occurrence.SlotKey{EventID: event.ID, Start: slot}
	instant := recurrence.Window{Start: slot, End: slot}

	_, err := store.Cancel(ctx, event, key)
	require.NoError(t, err)
	got, err := store.Materialize(ctx, event, instant)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Persisted)
	assert.True(t, got[0].Cancelled)

	_, err = store.Move(ctx, event, key, at(2024, 1, 20, 10, 0))
	require.NoError(t, err)
	got, err = store.Materialize(ctx, event, instant)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_CancelRoundTrip(t *testing.T) {
	ctx := context.Background()
	event := weeklyStandup(0)
	repo := memory.NewOverrides()
	rec := &recorded{}
	now := at(2024, 1, 1, 0, 0)
	store := occurrence.NewStore(repo,
		occurrence.WithRecorder(rec),
		occurrence.WithClock(func() time.Time { return now }),
	)
	key := occurrence.SlotKey{EventID: event.ID, Start: at(2024, 1, 22, 10, 0)}

	cancelled, err := store.Cancel(ctx, event, key)
	require.NoError(t, err)
	assert.True(t, cancelled.Cancelled)

	window := recurrence.Window{Start: at(2024, 1, 22, 0, 0), End: at(2024, 1, 23, 0, 0)}
	got, err := store.Materialize(ctx, event, window)
	require.NoError(t, err)
	require.Len(t, got, 1, "cancelled occurrences are still returned")
	assert.True(t, got[0].Cancelled)

	now = at(2024, 1, 2, 0, 0)
	restored, err := store.Uncancel(ctx, event, key)
	require.NoError(t, err)
	assert.False(t, restored.Cancelled)
	assert.Equal(t, 1, repo.Len(), "the same override is updated")

	o, ok, err := repo.GetOverride(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, at(2024, 1, 1, 0, 0), o.CreatedAt)
	assert.Equal(t, at(2024, 1, 2, 0, 0), o.UpdatedAt)

	assert.Equal(t, []bool{true, false}, rec.writes)
	assert.Equal(t, 1, rec.materialized)
}

func TestStore_Get(t *testing.T) {
	ctx := context.Background()
	event := weeklyStandup(4)
	store := occurrence.NewStore(memory.NewOverrides())

	occ, err := store.Get(ctx, event, occurrence.NewSlotKey(event.ID, 2024, time.January, 15, 10, 0, 0))
	require.NoError(t, err)
	assert.False(t, occ.Persisted)
	assert.Equal(t, at(2024, 1, 15, 11, 0), occ.End)

	for name, key := range map[string]occurrence.SlotKey{
		"off grid":        occurrence.NewSlotKey(event.ID, 2024, time.January, 16, 10, 0, 0),
		"past count":      occurrence.NewSlotKey(event.ID, 2024, time.January, 29, 10, 0, 0),
		"before anchor":   occurrence.NewSlotKey(event.ID, 2023, time.December, 25, 10, 0, 0),
		"different event": occurrence.NewSlotKey("retro", 2024, time.January, 8, 10, 0, 0),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, event, key)
			assert.ErrorIs(t, err, occurrence.ErrNotFound)

			_, err = store.Cancel(ctx, event, key)
			assert.ErrorIs(t, err, occurrence.ErrNotFound)
		})
	}
}

func TestStore_SaveRejectsBadSpan(t *testing.T) {
	event := weeklyStandup(0)
	store := occurrence.NewStore(memory.NewOverrides())
	key := occurrence.SlotKey{EventID: event.ID, Start: event.Start}

	_, err := store.Save(context.Background(), event, key, at(2024, 1, 2, 10, 0), at(2024, 1, 2, 9, 0), false)
	assert.ErrorIs(t, err, occurrence.ErrInvalidOverride)

	limited := occurrence.NewStore(memory.NewOverrides(), occurrence.WithMaxDrift(48*time.Hour))
	_, err = limited.Move(context.Background(), event, key, at(2024, 1, 5, 10, 0))
	assert.ErrorIs(t, err, occurrence.ErrInvalidOverride)
	_, err = limited.Move(context.Background(), event, key, at(2023, 12, 30, 10, 0))
	assert.NoError(t, err)
}

func TestStore_NonRecurringEvent(t *testing.T) {
	ctx := context.Background()
	event := occurrence.Event{ID: "launch", Title: "Launch", Start: at(2024, 3, 1, 9, 0), End: at(2024, 3, 1, 12, 0)}
	store := occurrence.NewStore(memory.NewOverrides())

	cancelled, err := store.Cancel(ctx, event, occurrence.SlotKey{EventID: event.ID, Start: event.Start})
	require.NoError(t, err)
	assert.True(t, cancelled.Cancelled)

	got, err := store.Materialize(ctx, event, recurrence.Window{Start: at(2024, 3, 1, 0, 0), End: at(2024, 3, 2, 0, 0)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Cancelled)
}

func TestStore_MaterializeAllSortsAcrossEvents(t *testing.T) {
	ctx := context.Background()
	daily := occurrence.Event{
		ID:    "lunch",
		Start: at(2024, 1, 1, 10, 0),
		End:   at(2024, 1, 1, 10, 30),
		Rule:  mo.Some(recurrence.MustRule(recurrence.Daily)),
	}
	store := occurrence.NewStore(memory.NewOverrides())

	got, err := store.MaterializeAll(ctx, []occurrence.Event{weeklyStandup(0), daily},
		recurrence.Window{Start: at(2024, 1, 1, 0, 0), End: at(2024, 1, 3, 0, 0)})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "lunch", got[0].EventID, "same start orders by event id")
	assert.Equal(t, "standup", got[1].EventID)
	assert.Equal(t, at(2024, 1, 2, 10, 0), got[2].Start)
}
