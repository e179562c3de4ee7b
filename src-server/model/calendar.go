package model

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
)

type Calendar struct {
	bun.BaseModel `bun:"table:calendars"`

	ID       string `bun:"id,pk"`        // required
	Name     string `bun:"name,notnull"` // required
	Timezone string `bun:"timezone"`

	CreatedAt int64 `bun:"created_at,notnull"`

	Events []*Event `bun:"rel:has-many,join:id=calendar_id"`
}

type DeletedCalendarIDsCtxKeyType string

// DeletedCalendarIDsCtxKey holds the id (string) or ids ([]string) of the
// calendars being deleted, so AfterDelete can drop their events.
const DeletedCalendarIDsCtxKey DeletedCalendarIDsCtxKeyType = "calendar-id"

var _ bun.AfterDeleteHook = (*Calendar)(nil)

// Cleanup events, and through them overrides, of the deleted calendars
func (c *Calendar) AfterDelete(ctx context.Context, query *bun.DeleteQuery) error {
	if query.DB() == nil {
		return fmt.Errorf("(*Calendar).AfterDelete: db is nil")
	}

	deletedCalendarIDs := make([]string, 0)
	switch deletedCalendarID := ctx.Value(DeletedCalendarIDsCtxKey).(type) {
	case string:
		if deletedCalendarID == "" {
			return fmt.Errorf("(*Calendar).AfterDelete: deletedCalendarID is blank")
		}
		deletedCalendarIDs = append(deletedCalendarIDs, deletedCalendarID)
	case []string:
		if len(deletedCalendarID) == 0 {
			return nil
		}
		deletedCalendarIDs = append(deletedCalendarIDs, deletedCalendarID...)
	case nil:
		return fmt.Errorf("(*Calendar).AfterDelete: calendar id is nil")
	default:
		return fmt.Errorf("(*Calendar).AfterDelete: wrong deletedCalendarID type | type=%T", deletedCalendarID)
	}

	if _, err := query.DB().NewDelete().
		Model((*Event)(nil)).
		Where("calendar_id IN (?)", bun.In(deletedCalendarIDs)).
		Exec(context.WithValue(ctx, EventIDCtxKey, func() []string {
			eventModels := make([]Event, 0)
			if err := query.DB().NewSelect().
				Model(&eventModels).
				Column("id").
				Where("calendar_id IN (?)", bun.In(deletedCalendarIDs)).
				Scan(ctx); err != nil {
				slog.Warn("can't get deleted event ids", "error", err)
				return []string{}
			}
			eventIDs := make([]string, 0, len(eventModels))
			for _, eventModel := range eventModels {
				eventIDs = append(eventIDs, eventModel.ID)
			}
			return eventIDs
		}())); err != nil {
		return fmt.Errorf("(*Calendar).AfterDelete: can't delete events: %w", err)
	}

	return nil
}

func (c *Calendar) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case c.ID == "":
		return fmt.Errorf("(*Calendar).Upsert: calendar id is blank")
	case c.Name == "":
		return fmt.Errorf("(*Calendar).Upsert: name is blank")
	}
	if c.Timezone != "" {
		if _, err := time.LoadLocation(c.Timezone); err != nil {
			return fmt.Errorf("(*Calendar).Upsert: timezone is invalid: %w", err)
		}
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().UTC().Unix()
	}

	if _, err := db.NewInsert().
		Model(c).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("timezone = EXCLUDED.timezone").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*Calendar).Upsert: %w", err)
	}
	return nil
}

// Location returns the calendar's timezone, UTC when unset.
func (c *Calendar) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
