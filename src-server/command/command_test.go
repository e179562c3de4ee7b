package command_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"schedule/src-server/command"
	"schedule/src-server/occurrence"

	goical "github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const teamYAML = `
calendars:
  - id: team
    name: team
    timezone: UTC
    events:
      - id: standup
        title: standup
        start: 2024-01-01T10:00:00Z
        end: 2024-01-01T10:15:00Z
        rrule: FREQ=WEEKLY;COUNT=5
        overrides:
          - slot: 2024-01-08T10:00:00Z
            start: 2024-01-09T14:00:00Z
      - id: launch
        title: launch party
        start: 2024-01-20T18:00:00Z
        end: 2024-01-21T02:00:00Z
`

func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("DATABASE_PATH", filepath.Join(dir, "schedule.db"))
	t.Setenv("OVERRIDE_BACKEND", "sqlite")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("FIRST_WEEKDAY", "monday")
	t.Setenv("MAX_RESCHEDULE_DRIFT", "")
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := command.NewApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"schedule"}, args...))
	return out.String(), err
}

func slot(id string, start time.Time) string {
	return occurrence.SlotKey{EventID: id, Start: start}.Encode()
}

func TestCommands(t *testing.T) {
	dir := setup(t)
	fixturePath := filepath.Join(dir, "team.yaml")
	require.NoError(t, os.WriteFile(fixturePath, []byte(teamYAML), 0o644))

	out, err := run(t, "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "schema ready")

	out, err = run(t, "import", fixturePath)
	require.NoError(t, err)
	assert.Equal(t, "imported 1 calendars, 2 events, 1 overrides\n", out)
	out, err = run(t, "import", fixturePath)
	require.NoError(t, err)
	assert.Contains(t, out, "unchanged since last import")

	out, err = run(t, "list", "--calendar", "team", "--period", "month", "--date", "2024-01-15")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 7)
	assert.Equal(t, "month 2024-01-01 00:00 -> 2024-02-01 00:00: 6 occurrences", lines[0])
	assert.Contains(t, lines[2], "2024-01-09 14:00 -> 2024-01-09 14:15")
	assert.Contains(t, lines[2], "Standup (moved)")
	assert.Contains(t, lines[4], "Launch Party")

	// the day view clips the overnight party into two days
	out, err = run(t, "list", "--calendar", "team", "--from", "2024-01-20", "--to", "2024-01-22", "--by", "day")
	require.NoError(t, err)
	assert.Contains(t, out, "day 2024-01-20 00:00 -> 2024-01-21 00:00: 1 occurrences")
	assert.Contains(t, out, "starts  Launch Party")
	assert.Contains(t, out, "ends    Launch Party")

	jan29 := slot("standup", time.Date(2024, 1, 29, 10, 0, 0, 0, time.UTC))
	out, err = run(t, "cancel", jan29)
	require.NoError(t, err)
	assert.Contains(t, out, "cancelled: true")

	out, err = run(t, "list", "--calendar", "team", "--period", "week", "--date", "2024-01-30", "--busy")
	require.NoError(t, err)
	assert.Equal(t, "week 2024-01-29 00:00 -> 2024-02-05 00:00: 0 occurrences\n", out)

	out, err = run(t, "uncancel", "standup", "2024", "1", "29", "10", "0", "0")
	require.NoError(t, err)
	assert.Contains(t, out, "cancelled: false")
	assert.Contains(t, out, "persisted: true")

	out, err = run(t, "move", slot("standup", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)), "2024-01-02 09:00")
	require.NoError(t, err)
	assert.Contains(t, out, "start:     2024-01-02 09:00")
	assert.Contains(t, out, "end:       2024-01-02 09:15")

	out, err = run(t, "show", slot("standup", time.Date(2024, 1, 8, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Contains(t, out, "start:     2024-01-09 14:00")
	assert.Contains(t, out, "moved:     true")

	_, err = run(t, "show", slot("standup", time.Date(2024, 1, 8, 11, 0, 0, 0, time.UTC)))
	assert.ErrorIs(t, err, occurrence.ErrNotFound)
	_, err = run(t, "show", "not-a-slot")
	assert.ErrorIs(t, err, occurrence.ErrInvalidSlotKey)

	out, err = run(t, "calendars", "--period", "month", "--date", "2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, "team  Team  2 events, 6 busy, 0 cancelled\n", out)

	feedPath := filepath.Join(dir, "team.ics")
	_, err = run(t, "export", "--calendar", "team", "--period", "month", "--date", "2024-01-15", "--out", feedPath)
	require.NoError(t, err)
	raw, err := os.ReadFile(feedPath)
	require.NoError(t, err)
	cal, err := goical.NewDecoder(bytes.NewReader(raw)).Decode()
	require.NoError(t, err)
	assert.Len(t, cal.Events(), 6)

	out, err = run(t, "delete", "standup")
	require.NoError(t, err)
	assert.Equal(t, "deleted standup\n", out)
	out, err = run(t, "list", "--calendar", "team", "--period", "month", "--date", "2024-01-15")
	require.NoError(t, err)
	assert.Contains(t, out, ": 1 occurrences")

	_, err = run(t, "delete", "standup")
	assert.ErrorIs(t, err, occurrence.ErrNotFound)

	out, err = run(t, "delete", "--calendar", "team")
	require.NoError(t, err)
	assert.Equal(t, "deleted team\n", out)
	out, err = run(t, "calendars", "--period", "month", "--date", "2024-01-15")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestWindowFlags(t *testing.T) {
	setup(t)
	_, err := run(t, "list", "--from", "2024-01-01")
	assert.Error(t, err)
	_, err = run(t, "list", "--period", "custom")
	assert.Error(t, err)
	_, err = run(t, "list", "--period", "fortnight")
	assert.Error(t, err)
	_, err = run(t, "list", "--from", "2024-02-01", "--to", "2024-01-01")
	assert.Error(t, err)
	_, err = run(t, "list", "--period", "day", "--date", "2024-01-01", "--by", "hour")
	assert.Error(t, err)
}

func TestImportICal(t *testing.T) {
	dir := setup(t)
	icsPath := filepath.Join(dir, "ops.ics")
	require.NoError(t, os.WriteFile(icsPath, []byte("BEGIN:VCALENDAR\r\n"+
		"VERSION:2.0\r\n"+
		"PRODID:-//test//EN\r\n"+
		"BEGIN:VEVENT\r\n"+
		"UID:oncall\r\n"+
		"DTSTAMP:20240101T000000Z\r\n"+
		"SUMMARY:On call handover\r\n"+
		"DTSTART:20240101T080000Z\r\n"+
		"DTEND:20240101T083000Z\r\n"+
		"RRULE:FREQ=DAILY;COUNT=3\r\n"+
		"END:VEVENT\r\n"+
		"BEGIN:VEVENT\r\n"+
		"UID:oncall\r\n"+
		"DTSTAMP:20240101T000000Z\r\n"+
		"RECURRENCE-ID:20240102T080000Z\r\n"+
		"DTSTART:20240102T080000Z\r\n"+
		"DTEND:20240102T083000Z\r\n"+
		"STATUS:CANCELLED\r\n"+
		"END:VEVENT\r\n"+
		"END:VCALENDAR\r\n"), 0o644))

	out, err := run(t, "import", icsPath)
	require.NoError(t, err)
	assert.Equal(t, "imported 1 calendars, 1 events, 1 overrides\n", out)

	out, err = run(t, "list", "--calendar", "ops", "--from", "2024-01-01", "--to", "2024-01-04", "--busy")
	require.NoError(t, err)
	assert.Contains(t, out, "custom 2024-01-01 00:00 -> 2024-01-04 00:00: 2 occurrences")
	assert.NotContains(t, out, "2024-01-02 08:00")
}
