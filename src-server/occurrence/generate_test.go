package occurrence_test

import (
	"testing"
	"time"

	"schedule/src-server/occurrence"
	"schedule/src-server/recurrence"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_IncludesOccurrenceStartingBeforeWindow(t *testing.T) {
	event := occurrence.Event{
		ID:    "night-shift",
		Start: at(2024, 1, 1, 22, 0),
		End:   at(2024, 1, 2, 2, 0),
		Rule:  mo.Some(recurrence.MustRule(recurrence.Daily)),
	}
	got, err := occurrence.Generate(event, recurrence.Window{Start: at(2024, 1, 5, 0, 0), End: at(2024, 1, 6, 0, 0)})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{at(2024, 1, 4, 22, 0), at(2024, 1, 5, 22, 0)}, starts(got))
}

func TestGenerate_EndRecurringPeriodCapsRule(t *testing.T) {
	event := weeklyStandup(0)
	event.EndRecurringPeriod = mo.Some(at(2024, 1, 15, 10, 0))

	got, err := occurrence.Generate(event, recurrence.Window{Start: at(2024, 1, 1, 0, 0), End: at(2024, 3, 1, 0, 0)})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{at(2024, 1, 1, 10, 0), at(2024, 1, 8, 10, 0), at(2024, 1, 15, 10, 0)}, starts(got))
}

func TestGenerate_ZeroLengthWindow(t *testing.T) {
	event := weeklyStandup(0)
	got, err := occurrence.Generate(event, recurrence.Window{Start: at(2024, 1, 8, 10, 30), End: at(2024, 1, 8, 10, 30)})
	require.NoError(t, err)
	assert.Equal(t, []time.Time{at(2024, 1, 8, 10, 0)}, starts(got))
}

func TestGenerate_NonRecurring(t *testing.T) {
	event := occurrence.Event{ID: "one-off", Start: at(2024, 1, 1, 10, 0), End: at(2024, 1, 1, 11, 0)}

	got, err := occurrence.Generate(event, recurrence.Window{Start: at(2024, 1, 1, 0, 0), End: at(2024, 1, 2, 0, 0)})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	got, err = occurrence.Generate(event, recurrence.Window{Start: at(2024, 1, 5, 0, 0), End: at(2024, 1, 12, 0, 0)})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGenerate_RejectsInvalidEvent(t *testing.T) {
	window := recurrence.Window{Start: at(2024, 1, 1, 0, 0), End: at(2024, 1, 2, 0, 0)}
	for name, event := range map[string]occurrence.Event{
		"blank id":         {Start: at(2024, 1, 1, 10, 0), End: at(2024, 1, 1, 11, 0)},
		"end before start": {ID: "x", Start: at(2024, 1, 1, 11, 0), End: at(2024, 1, 1, 10, 0)},
		"period before start": {
			ID: "x", Start: at(2024, 1, 1, 10, 0), End: at(2024, 1, 1, 11, 0),
			EndRecurringPeriod: mo.Some(at(2023, 1, 1, 0, 0)),
		},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := occurrence.Generate(event, window)
			assert.ErrorIs(t, err, occurrence.ErrInvalidEvent)
		})
	}

	event := weeklyStandup(0)
	event.Rule = mo.Some(recurrence.Rule{Frequency: recurrence.Weekly})
	_, err := occurrence.Generate(event, window)
	assert.ErrorIs(t, err, recurrence.ErrInvalidRule)

	_, err = occurrence.Generate(weeklyStandup(0), recurrence.Window{Start: window.End, End: window.Start})
	assert.ErrorIs(t, err, recurrence.ErrInvalidWindow)
}

func TestSlotKey(t *testing.T) {
	key := occurrence.NewSlotKey("c0ffee_1", 2024, time.January, 8, 10, 0, 0)
	token := key.Encode()
	assert.NotContains(t, token, "=")
	assert.NotContains(t, token, "/")

	decoded, err := occurrence.DecodeSlotKey(token)
	require.NoError(t, err)
	assert.Equal(t, "c0ffee_1", decoded.EventID)
	assert.True(t, decoded.Start.Equal(key.Start))

	id, y, m, d, h, min, s := decoded.Fields()
	assert.Equal(t, "c0ffee_1", id)
	assert.Equal(t, []int{2024, 1, 8, 10, 0, 0}, []int{y, int(m), d, h, min, s})

	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)
	local := occurrence.SlotKey{EventID: "c0ffee_1", Start: at(2024, 1, 8, 10, 0).In(paris)}
	assert.Equal(t, token, local.Encode(), "keys are zone independent")

	for _, bad := range []string{"%%%", "bm8tc2VwYXJhdG9y", "ZXZ0XzIwMjQ"} {
		_, err := occurrence.DecodeSlotKey(bad)
		assert.ErrorIs(t, err, occurrence.ErrInvalidSlotKey, bad)
	}
}
