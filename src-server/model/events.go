package model

import (
	"context"
	"fmt"
	"time"

	"schedule/src-server/occurrence"
	"schedule/src-server/recurrence"

	"github.com/samber/mo"
	"github.com/uptrace/bun"
)

type EventIDCtxKeyType string

// EventIDCtxKey carries the id (string) or ids ([]string) of the events being
// deleted, so AfterDelete can drop their overrides.
const EventIDCtxKey EventIDCtxKeyType = "event-id"

type Event struct {
	bun.BaseModel `bun:"table:events"`

	ID          string `bun:"id,pk"`               // required
	CalendarID  string `bun:"calendar_id,notnull"` // required
	Title       string `bun:"title,notnull"`       // required
	Description string `bun:"description"`

	StartDateUnixUTC int64 `bun:"start_date,notnull"` // required
	EndDateUnixUTC   int64 `bun:"end_date,notnull"`   // required

	RRule  string `bun:"rrule"`
	ExDate string `bun:"exdate"`
	// 0 means the rule alone bounds the event
	EndRecurringPeriodUnixUTC int64 `bun:"end_recurring_period"`

	CreatedAt int64 `bun:"created_at,notnull"`
	UpdatedAt int64 `bun:"updated_at"`
	Sequence  int   `bun:"sequence"`

	Calendar  *Calendar   `bun:"rel:belongs-to,join:calendar_id=id"`
	Overrides []*Override `bun:"rel:has-many,join:id=event_id"`
}

var _ bun.AfterDeleteHook = (*Event)(nil)

// Cleanup overrides of the deleted events
func (e *Event) AfterDelete(ctx context.Context, query *bun.DeleteQuery) error {
	if query.DB() == nil {
		return fmt.Errorf("(*Event).AfterDelete: db is nil")
	}

	switch eventID := ctx.Value(EventIDCtxKey).(type) {
	case string:
		if eventID == "" {
			return fmt.Errorf("(*Event).AfterDelete: event id is blank")
		}
		if _, err := query.DB().NewDelete().
			Model((*Override)(nil)).
			Where("event_id = ?", eventID).
			Exec(ctx); err != nil {
			return fmt.Errorf("(*Event).AfterDelete: can't delete overrides: %w", err)
		}
	case []string:
		if len(eventID) == 0 {
			return nil
		}
		if _, err := query.DB().NewDelete().
			Model((*Override)(nil)).
			Where("event_id IN (?)", bun.In(eventID)).
			Exec(ctx); err != nil {
			return fmt.Errorf("(*Event).AfterDelete: can't delete overrides: %w", err)
		}
	case nil:
		return fmt.Errorf("(*Event).AfterDelete: event id is nil")
	default:
		return fmt.Errorf("(*Event).AfterDelete: wrong event id type | type=%T", eventID)
	}

	return nil
}

func (e *Event) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case e.ID == "":
		return fmt.Errorf("(*Event).Upsert: event id is blank")
	case e.CalendarID == "":
		return fmt.Errorf("(*Event).Upsert: calendar id is blank")
	case e.Title == "":
		return fmt.Errorf("(*Event).Upsert: title is blank")
	case e.StartDateUnixUTC > e.EndDateUnixUTC:
		return fmt.Errorf("(*Event).Upsert: start date must be before end date")
	case e.RRule == "" && e.ExDate != "":
		return fmt.Errorf("(*Event).Upsert: exdate only works with rrule")
	case e.EndRecurringPeriodUnixUTC != 0 && e.EndRecurringPeriodUnixUTC < e.StartDateUnixUTC:
		return fmt.Errorf("(*Event).Upsert: end of recurring period must be after start date")
	}
	if _, err := e.rule(); err != nil {
		return fmt.Errorf("(*Event).Upsert: %w", err)
	}

	calendarExists, err := db.NewSelect().
		Model((*Calendar)(nil)).
		Where("id = ?", e.CalendarID).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("(*Event).Upsert: %w", err)
	}
	if !calendarExists {
		return fmt.Errorf("(*Event).Upsert: calendar id not found")
	}

	existing := new(Event)
	exists, err := db.NewSelect().
		Model(existing).
		Where("id = ?", e.ID).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("(*Event).Upsert: %w", err)
	}

	switch exists {
	case true:
		if err := db.NewSelect().
			Model(existing).
			Column("created_at", "sequence").
			Where("id = ?", e.ID).
			Scan(ctx); err != nil {
			return fmt.Errorf("(*Event).Upsert: %w", err)
		}
		e.CreatedAt = existing.CreatedAt
		e.Sequence = existing.Sequence + 1
		e.UpdatedAt = time.Now().UTC().Unix()
		if _, err := db.NewUpdate().
			Model(e).
			WherePK().
			Exec(ctx); err != nil {
			return fmt.Errorf("(*Event).Upsert: %w", err)
		}
	case false:
		if e.CreatedAt == 0 {
			e.CreatedAt = time.Now().UTC().Unix()
		}
		if _, err := db.NewInsert().
			Model(e).
			Exec(ctx); err != nil {
			return fmt.Errorf("(*Event).Upsert: %w", err)
		}
	}

	return nil
}

func (e *Event) rule() (mo.Option[recurrence.Rule], error) {
	if e.RRule == "" {
		return mo.None[recurrence.Rule](), nil
	}
	exceptions, err := recurrence.ParseExceptions(e.ExDate)
	if err != nil {
		return mo.None[recurrence.Rule](), err
	}
	rule, err := recurrence.ParseRRule(e.RRule, exceptions...)
	if err != nil {
		return mo.None[recurrence.Rule](), err
	}
	return mo.Some(rule), nil
}

// ToOccurrenceEvent converts the row into the engine's event.
func (e *Event) ToOccurrenceEvent() (occurrence.Event, error) {
	rule, err := e.rule()
	if err != nil {
		return occurrence.Event{}, fmt.Errorf("(*Event).ToOccurrenceEvent: event %s: %w", e.ID, err)
	}
	out := occurrence.Event{
		ID:          e.ID,
		CalendarID:  e.CalendarID,
		Title:       e.Title,
		Description: e.Description,
		Start:       time.Unix(e.StartDateUnixUTC, 0).UTC(),
		End:         time.Unix(e.EndDateUnixUTC, 0).UTC(),
		Rule:        rule,
	}
	if e.EndRecurringPeriodUnixUTC != 0 {
		out.EndRecurringPeriod = mo.Some(time.Unix(e.EndRecurringPeriodUnixUTC, 0).UTC())
	}
	return out, nil
}

// FromOccurrenceEvent fills the row from the engine's event.
func (e *Event) FromOccurrenceEvent(ev occurrence.Event) {
	e.ID = ev.ID
	e.CalendarID = ev.CalendarID
	e.Title = ev.Title
	e.Description = ev.Description
	e.StartDateUnixUTC = ev.Start.Unix()
	e.EndDateUnixUTC = ev.End.Unix()
	e.RRule, e.ExDate = "", ""
	if rule, ok := ev.Rule.Get(); ok && rule.Repeats() {
		e.RRule = rule.RRule()
		e.ExDate = rule.ExceptionsString()
	}
	e.EndRecurringPeriodUnixUTC = 0
	if end, ok := ev.EndRecurringPeriod.Get(); ok {
		e.EndRecurringPeriodUnixUTC = end.Unix()
	}
}
