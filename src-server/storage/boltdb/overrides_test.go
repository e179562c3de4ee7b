package boltdb_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"schedule/src-server/occurrence"
	"schedule/src-server/recurrence"
	"schedule/src-server/storage/boltdb"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func openRepo(t *testing.T) (*boltdb.Overrides, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "overrides.db")
	repo, err := boltdb.Open(boltdb.Config{Path: path})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func TestOverrides_SaveGetList(t *testing.T) {
	ctx := context.Background()
	repo, _ := openRepo(t)

	moved := occurrence.Override{
		EventID:       "standup",
		OriginalStart: at(2024, 1, 8, 10, 0),
		Start:         at(2024, 1, 9, 14, 0),
		End:           at(2024, 1, 9, 15, 0),
		Title:         "Standup (moved)",
		CreatedAt:     at(2024, 1, 1, 0, 0),
		UpdatedAt:     at(2024, 1, 1, 0, 0),
	}
	require.NoError(t, repo.SaveOverride(ctx, moved))
	require.NoError(t, repo.SaveOverride(ctx, occurrence.Override{
		EventID:       "standup",
		OriginalStart: at(1969, 12, 29, 10, 0),
		Start:         at(1969, 12, 29, 10, 0),
		End:           at(1969, 12, 29, 11, 0),
		Cancelled:     true,
	}))

	got, ok, err := repo.GetOverride(ctx, moved.Key())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, moved, got)

	_, ok, err = repo.GetOverride(ctx, occurrence.SlotKey{EventID: "standup", Start: at(2024, 1, 15, 10, 0)})
	require.NoError(t, err)
	assert.False(t, ok)

	list, err := repo.ListOverrides(ctx, "standup", recurrence.Window{Start: at(2024, 1, 9, 0, 0), End: at(2024, 1, 10, 0, 0)})
	require.NoError(t, err)
	require.Len(t, list, 1)

	list, err = repo.ListOverrides(ctx, "standup", recurrence.Window{Start: at(1969, 12, 1, 0, 0), End: at(1970, 1, 1, 0, 0)})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Cancelled)

	list, err = repo.ListOverrides(ctx, "retro", recurrence.Window{Start: at(2024, 1, 1, 0, 0), End: at(2025, 1, 1, 0, 0)})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestOverrides_PersistAcrossReopen(t *testing.T) {
	ctx := context.Background()
	repo, path := openRepo(t)
	event := occurrence.Event{
		ID:    "standup",
		Start: at(2024, 1, 1, 10, 0),
		End:   at(2024, 1, 1, 11, 0),
		Rule:  mo.Some(recurrence.MustRule(recurrence.Weekly)),
	}
	key := occurrence.SlotKey{EventID: event.ID, Start: at(2024, 1, 22, 10, 0)}

	_, err := occurrence.NewStore(repo).Cancel(ctx, event, key)
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	reopened, err := boltdb.Open(boltdb.Config{Path: path})
	require.NoError(t, err)
	defer reopened.Close()

	got, err := occurrence.NewStore(reopened).Get(ctx, event, key)
	require.NoError(t, err)
	assert.True(t, got.Cancelled)

	require.NoError(t, reopened.DeleteOverrides(ctx, event.ID))
	require.NoError(t, reopened.DeleteOverrides(ctx, event.ID))
	_, ok, err := reopened.GetOverride(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
