package period

import (
	"context"
	"fmt"
	"time"

	"schedule/src-server/occurrence"
	"schedule/src-server/recurrence"
)

// EventGetter loads the events of a calendar.
type EventGetter interface {
	ListEvents(ctx context.Context, calendarID string) ([]occurrence.Event, error)
}

// Materializer is satisfied by *occurrence.Store.
type Materializer interface {
	MaterializeAll(ctx context.Context, events []occurrence.Event, window recurrence.Window) ([]occurrence.Occurrence, error)
}

type Builder struct {
	Events       EventGetter
	Store        Materializer
	FirstWeekday time.Weekday
	// Location decides where calendar periods begin. Nil means UTC.
	Location *time.Location
}

func (b Builder) location() *time.Location {
	if b.Location == nil {
		return time.UTC
	}
	return b.Location
}

// Build materializes the calendar's events over window.
func (b Builder) Build(ctx context.Context, calendarID string, window recurrence.Window) (*Period, error) {
	events, err := b.Events.ListEvents(ctx, calendarID)
	if err != nil {
		return nil, fmt.Errorf("Builder.Build: failed to list events: %w", err)
	}
	return b.BuildFromEvents(ctx, events, window)
}

// BuildFromEvents materializes events over window.
func (b Builder) BuildFromEvents(ctx context.Context, events []occurrence.Event, window recurrence.Window) (*Period, error) {
	return b.build(ctx, Custom, events, window)
}

// For builds the period of the given kind containing date.
func (b Builder) For(ctx context.Context, kind Kind, calendarID string, date time.Time) (*Period, error) {
	events, err := b.Events.ListEvents(ctx, calendarID)
	if err != nil {
		return nil, fmt.Errorf("Builder.For: failed to list events: %w", err)
	}
	return b.build(ctx, kind, events, Bounds(kind, date.In(b.location()), b.FirstWeekday))
}

// Periods builds one period per kind around date from a single
// materialization covering all of them.
func (b Builder) Periods(ctx context.Context, calendarID string, date time.Time, kinds ...Kind) (map[Kind]*Period, error) {
	if len(kinds) == 0 {
		return map[Kind]*Period{}, nil
	}
	events, err := b.Events.ListEvents(ctx, calendarID)
	if err != nil {
		return nil, fmt.Errorf("Builder.Periods: failed to list events: %w", err)
	}

	date = date.In(b.location())
	windows := make(map[Kind]recurrence.Window, len(kinds))
	union := Bounds(kinds[0], date, b.FirstWeekday)
	for _, kind := range kinds {
		w := Bounds(kind, date, b.FirstWeekday)
		windows[kind] = w
		if w.Start.Before(union.Start) {
			union.Start = w.Start
		}
		if w.End.After(union.End) {
			union.End = w.End
		}
	}

	all, err := b.build(ctx, Custom, events, union)
	if err != nil {
		return nil, fmt.Errorf("Builder.Periods: %w", err)
	}
	out := make(map[Kind]*Period, len(kinds))
	for kind, w := range windows {
		out[kind] = all.Sub(kind, w)
	}
	return out, nil
}

func (b Builder) build(ctx context.Context, kind Kind, events []occurrence.Event, window recurrence.Window) (*Period, error) {
	if err := window.Validate(); err != nil {
		return nil, fmt.Errorf("Builder.build: %w", err)
	}
	occurrences, err := b.Store.MaterializeAll(ctx, events, window)
	if err != nil {
		return nil, fmt.Errorf("Builder.build: %w", err)
	}
	return New(kind, window, occurrences, b.FirstWeekday), nil
}
