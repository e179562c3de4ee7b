package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"schedule/src-server/occurrence"
	"schedule/src-server/recurrence"

	"github.com/uptrace/bun"
)

// Repository serves events and overrides out of the database. It satisfies
// occurrence.OverrideRepository and period.EventGetter.
type Repository struct {
	db bun.IDB
}

func NewRepository(db bun.IDB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ListOverrides(ctx context.Context, eventID string, window recurrence.Window) ([]occurrence.Override, error) {
	// rows are fetched a second wider on each side, then filtered exactly
	lo, hi := window.Start.Unix()-1, window.End.Unix()+1
	overrideModels := make([]Override, 0)
	if err := r.db.NewSelect().
		Model(&overrideModels).
		Where("event_id = ?", eventID).
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				Where("original_start BETWEEN ? AND ?", lo, hi).
				WhereOr("start_date <= ? AND end_date >= ?", hi, lo)
		}).
		Order("original_start ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("(*Repository).ListOverrides: %w", err)
	}

	out := make([]occurrence.Override, 0, len(overrideModels))
	for i := range overrideModels {
		o := overrideModels[i].ToOccurrenceOverride()
		if window.Contains(o.OriginalStart) || window.Overlaps(o.Start, o.End) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *Repository) GetOverride(ctx context.Context, key occurrence.SlotKey) (occurrence.Override, bool, error) {
	overrideModel := new(Override)
	if err := r.db.NewSelect().
		Model(overrideModel).
		Where("event_id = ?", key.EventID).
		Where("original_start = ?", key.Start.Unix()).
		Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return occurrence.Override{}, false, nil
		}
		return occurrence.Override{}, false, fmt.Errorf("(*Repository).GetOverride: %w", err)
	}
	return overrideModel.ToOccurrenceOverride(), true, nil
}

func (r *Repository) SaveOverride(ctx context.Context, o occurrence.Override) error {
	// unix 0 is a valid slot, so blank times are caught before conversion
	switch {
	case o.OriginalStart.IsZero():
		return fmt.Errorf("(*Repository).SaveOverride: original start is blank: %w", occurrence.ErrInvalidOverride)
	case o.Start.IsZero(), o.End.IsZero():
		return fmt.Errorf("(*Repository).SaveOverride: start and end are required: %w", occurrence.ErrInvalidOverride)
	}
	overrideModel := new(Override)
	overrideModel.FromOccurrenceOverride(o)
	if err := overrideModel.Upsert(ctx, r.db); err != nil {
		return fmt.Errorf("(*Repository).SaveOverride: %w", err)
	}
	return nil
}

func (r *Repository) DeleteOverrides(ctx context.Context, eventID string) error {
	if _, err := r.db.NewDelete().
		Model((*Override)(nil)).
		Where("event_id = ?", eventID).
		Exec(ctx); err != nil {
		return fmt.Errorf("(*Repository).DeleteOverrides: %w", err)
	}
	return nil
}

// CountEvents reports how many events a calendar holds, or every calendar
// when calendarID is empty.
func (r *Repository) CountEvents(ctx context.Context, calendarID string) (int, error) {
	q := r.db.NewSelect().Model((*Event)(nil))
	if calendarID != "" {
		q = q.Where("calendar_id = ?", calendarID)
	}
	n, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("(*Repository).CountEvents: %w", err)
	}
	return n, nil
}

// Ping runs the cheapest query the schema allows.
func (r *Repository) Ping(ctx context.Context) error {
	if _, err := r.db.NewSelect().
		Model((*Event)(nil)).
		Where("id = ?", "").
		Exists(ctx); err != nil {
		return fmt.Errorf("(*Repository).Ping: %w", err)
	}
	return nil
}

// ListEvents returns the calendar's events ordered by start. An empty
// calendarID lists every event.
func (r *Repository) ListEvents(ctx context.Context, calendarID string) ([]occurrence.Event, error) {
	eventModels := make([]Event, 0)
	q := r.db.NewSelect().
		Model(&eventModels).
		Order("start_date ASC", "id ASC")
	if calendarID != "" {
		q = q.Where("calendar_id = ?", calendarID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("(*Repository).ListEvents: %w", err)
	}

	out := make([]occurrence.Event, 0, len(eventModels))
	for i := range eventModels {
		e, err := eventModels[i].ToOccurrenceEvent()
		if err != nil {
			return nil, fmt.Errorf("(*Repository).ListEvents: %w", err)
		}
		out = append(out, e)
	}
	return out, nil
}

func (r *Repository) GetEvent(ctx context.Context, id string) (occurrence.Event, error) {
	eventModel := new(Event)
	if err := r.db.NewSelect().
		Model(eventModel).
		Where("id = ?", id).
		Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return occurrence.Event{}, fmt.Errorf("(*Repository).GetEvent: event %s: %w", id, occurrence.ErrNotFound)
		}
		return occurrence.Event{}, fmt.Errorf("(*Repository).GetEvent: %w", err)
	}
	e, err := eventModel.ToOccurrenceEvent()
	if err != nil {
		return occurrence.Event{}, fmt.Errorf("(*Repository).GetEvent: %w", err)
	}
	return e, nil
}

func (r *Repository) SaveEvent(ctx context.Context, e occurrence.Event) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("(*Repository).SaveEvent: %w", err)
	}
	eventModel := new(Event)
	eventModel.FromOccurrenceEvent(e)
	if err := eventModel.Upsert(ctx, r.db); err != nil {
		return fmt.Errorf("(*Repository).SaveEvent: %w", err)
	}
	return nil
}

// DeleteEvent removes the event together with its overrides.
func (r *Repository) DeleteEvent(ctx context.Context, id string) error {
	res, err := r.db.NewDelete().
		Model((*Event)(nil)).
		Where("id = ?", id).
		Exec(context.WithValue(ctx, EventIDCtxKey, id))
	if err != nil {
		return fmt.Errorf("(*Repository).DeleteEvent: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("(*Repository).DeleteEvent: event %s: %w", id, occurrence.ErrNotFound)
	}
	return nil
}

func (r *Repository) SaveCalendar(ctx context.Context, c *Calendar) error {
	if err := c.Upsert(ctx, r.db); err != nil {
		return fmt.Errorf("(*Repository).SaveCalendar: %w", err)
	}
	return nil
}

// DeleteCalendar removes the calendar with its events and their overrides.
func (r *Repository) DeleteCalendar(ctx context.Context, id string) error {
	res, err := r.db.NewDelete().
		Model((*Calendar)(nil)).
		Where("id = ?", id).
		Exec(context.WithValue(ctx, DeletedCalendarIDsCtxKey, id))
	if err != nil {
		return fmt.Errorf("(*Repository).DeleteCalendar: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("(*Repository).DeleteCalendar: calendar %s: %w", id, occurrence.ErrNotFound)
	}
	return nil
}

// GetImportSource returns the last import of path, or nil when it was
// never imported.
func (r *Repository) GetImportSource(ctx context.Context, path string) (*ImportSource, error) {
	source := new(ImportSource)
	if err := r.db.NewSelect().
		Model(source).
		Where("path = ?", path).
		Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("(*Repository).GetImportSource: %w", err)
	}
	return source, nil
}

func (r *Repository) SaveImportSource(ctx context.Context, s *ImportSource) error {
	if err := s.Upsert(ctx, r.db); err != nil {
		return fmt.Errorf("(*Repository).SaveImportSource: %w", err)
	}
	return nil
}

func (r *Repository) GetCalendar(ctx context.Context, id string) (*Calendar, error) {
	calendarModel := new(Calendar)
	if err := r.db.NewSelect().
		Model(calendarModel).
		Where("id = ?", id).
		Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("(*Repository).GetCalendar: calendar %s: %w", id, occurrence.ErrNotFound)
		}
		return nil, fmt.Errorf("(*Repository).GetCalendar: %w", err)
	}
	return calendarModel, nil
}

func (r *Repository) ListCalendars(ctx context.Context) ([]Calendar, error) {
	calendarModels := make([]Calendar, 0)
	if err := r.db.NewSelect().
		Model(&calendarModels).
		Order("name ASC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("(*Repository).ListCalendars: %w", err)
	}
	return calendarModels, nil
}
