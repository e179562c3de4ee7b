package metric

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"schedule/src-server/model"
	"schedule/src-server/occurrence"
	"schedule/src-server/recurrence"
	"schedule/src-server/storage/memory"
	"schedule/src-server/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) (float64, bool) {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name && len(mf.GetMetric()) > 0 {
			return mf.GetMetric()[0].GetGauge().GetValue(), true
		}
	}
	return 0, false
}

func daily(count int) occurrence.Event {
	return occurrence.Event{
		ID:         "daily",
		CalendarID: "team",
		Title:      "Daily",
		Start:      time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		End:        time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC),
		Rule:       mo.Some(recurrence.Rule{Frequency: recurrence.Daily, Interval: 1, Count: count}),
	}
}

func TestRecorder(t *testing.T) {
	ctx := context.Background()
	rec := NewRecorder(prometheus.NewRegistry())
	store := occurrence.NewStore(memory.NewOverrides(), occurrence.WithRecorder(rec))
	event := daily(5)

	_, err := store.Materialize(ctx, event, recurrence.Window{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 5.0, testutil.ToFloat64(rec.materialized))

	key := occurrence.SlotKey{EventID: event.ID, Start: time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC)}
	_, err = store.Cancel(ctx, event, key)
	require.NoError(t, err)
	moved := occurrence.SlotKey{EventID: event.ID, Start: time.Date(2024, 1, 4, 9, 0, 0, 0, time.UTC)}
	_, err = store.Move(ctx, event, moved, time.Date(2024, 1, 4, 11, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.overrideWrites.WithLabelValues("cancel")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.overrideWrites.WithLabelValues("reschedule")))
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "schedule.db"))
	t.Setenv("OVERRIDE_BACKEND", "memory")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("METRIC_COLLECTION_INTERVAL", "10ms")

	hook := NewQueryHook()
	as, err := utils.NewAppState(utils.NewConfig(), nil, hook)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	initWith(as, hook, reg)

	ctx := context.Background()
	require.NoError(t, as.Repo.SaveCalendar(ctx, &model.Calendar{ID: "team", Name: "Team"}))
	require.NoError(t, as.Repo.SaveEvent(ctx, daily(3)))

	assert.Eventually(t, func() bool {
		v, ok := gaugeValue(t, reg, "schedule_events")
		return ok && v == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		// keep the read gauge fed while waiting on the collector
		_, err := as.Repo.ListEvents(ctx, "team")
		require.NoError(t, err)
		v, ok := gaugeValue(t, reg, "schedule_database_read_microsec")
		return ok && v > 0
	}, 2*time.Second, 5*time.Millisecond)

	as.GracefulShutdown()
	assert.Eventually(t, func() bool {
		_, ok := gaugeValue(t, reg, "schedule_events")
		return !ok
	}, 2*time.Second, 10*time.Millisecond, "gauges are unregistered on shutdown")
}
