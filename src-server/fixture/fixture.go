// Package fixture loads calendars, events and overrides from YAML.
//
//	calendars:
//	  - name: Team
//	    timezone: Europe/Paris
//	    events:
//	      - title: standup
//	        start: 2024-01-01T10:00:00Z
//	        end: 2024-01-01T10:15:00Z
//	        rrule: FREQ=WEEKLY;COUNT=10
//	        exdates: [2024-01-15T10:00:00Z]
//	        overrides:
//	          - slot: 2024-01-08T10:00:00Z
//	            start: 2024-01-09T14:00:00Z
//	            end: 2024-01-09T14:15:00Z
//	          - slot: 2024-01-22T10:00:00Z
//	            cancelled: true
package fixture

import (
	"context"
	"fmt"
	"io"
	"time"

	"schedule/src-server/model"
	"schedule/src-server/occurrence"
	"schedule/src-server/recurrence"
	"schedule/src-server/utils"

	"github.com/google/uuid"
	"github.com/samber/mo"
	"gopkg.in/yaml.v3"
)

type Fixture struct {
	Calendars []Calendar `yaml:"calendars"`
}

type Calendar struct {
	ID       string  `yaml:"id"`
	Name     string  `yaml:"name"`
	Timezone string  `yaml:"timezone"`
	Events   []Event `yaml:"events"`
}

type Event struct {
	ID                 string      `yaml:"id"`
	Title              string      `yaml:"title"`
	Description        string      `yaml:"description"`
	Start              time.Time   `yaml:"start"`
	End                time.Time   `yaml:"end"`
	RRule              string      `yaml:"rrule"`
	ExDates            []time.Time `yaml:"exdates"`
	EndRecurringPeriod *time.Time  `yaml:"end_recurring_period"`
	Overrides          []Override  `yaml:"overrides"`
}

type Override struct {
	Slot      time.Time  `yaml:"slot"`
	Start     *time.Time `yaml:"start"`
	End       *time.Time `yaml:"end"`
	Cancelled bool       `yaml:"cancelled"`
}

// Target receives what a fixture creates.
type Target interface {
	SaveCalendar(ctx context.Context, c *model.Calendar) error
	SaveEvent(ctx context.Context, e occurrence.Event) error
}

// Result counts what Import wrote.
type Result struct {
	Calendars int
	Events    int
	Overrides int
}

func Load(r io.Reader) (*Fixture, error) {
	f := new(Fixture)
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil {
		return nil, fmt.Errorf("fixture.Load: %w", err)
	}
	for i := range f.Calendars {
		c := &f.Calendars[i]
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		c.Name = utils.CleanupString(c.Name)
		for j := range c.Events {
			e := &c.Events[j]
			if e.ID == "" {
				e.ID = uuid.NewString()
			}
			e.Title = utils.CleanupString(e.Title)
		}
	}
	return f, nil
}

// ToEvent converts the fixture into the engine's event.
func (e Event) ToEvent(calendarID string) (occurrence.Event, error) {
	out := occurrence.Event{
		ID:          e.ID,
		CalendarID:  calendarID,
		Title:       e.Title,
		Description: e.Description,
		Start:       e.Start.UTC().Truncate(time.Second),
		End:         e.End.UTC().Truncate(time.Second),
	}
	if e.RRule != "" {
		exdates := make([]time.Time, 0, len(e.ExDates))
		for _, d := range e.ExDates {
			exdates = append(exdates, d.UTC().Truncate(time.Second))
		}
		rule, err := recurrence.ParseRRule(e.RRule, exdates...)
		if err != nil {
			return occurrence.Event{}, fmt.Errorf("Event.ToEvent: %s: %w", e.Title, err)
		}
		out.Rule = mo.Some(rule)
	} else if len(e.ExDates) > 0 {
		return occurrence.Event{}, fmt.Errorf("Event.ToEvent: %s: exdates only work with rrule: %w", e.Title, recurrence.ErrInvalidRule)
	}
	if e.EndRecurringPeriod != nil {
		out.EndRecurringPeriod = mo.Some(e.EndRecurringPeriod.UTC().Truncate(time.Second))
	}
	if err := out.Validate(); err != nil {
		return occurrence.Event{}, fmt.Errorf("Event.ToEvent: %s: %w", e.Title, err)
	}
	return out, nil
}

// Import writes every calendar and event to target and applies the
// overrides through store. It stops at the first failure.
func Import(ctx context.Context, f *Fixture, target Target, store *occurrence.Store) (Result, error) {
	var res Result
	for _, c := range f.Calendars {
		if err := target.SaveCalendar(ctx, &model.Calendar{ID: c.ID, Name: c.Name, Timezone: c.Timezone}); err != nil {
			return res, fmt.Errorf("fixture.Import: calendar %s: %w", c.Name, err)
		}
		res.Calendars++

		for _, fe := range c.Events {
			event, err := fe.ToEvent(c.ID)
			if err != nil {
				return res, fmt.Errorf("fixture.Import: %w", err)
			}
			if err := target.SaveEvent(ctx, event); err != nil {
				return res, fmt.Errorf("fixture.Import: event %s: %w", event.Title, err)
			}
			res.Events++

			for _, fo := range fe.Overrides {
				if err := applyOverride(ctx, store, event, fo); err != nil {
					return res, fmt.Errorf("fixture.Import: event %s: %w", event.Title, err)
				}
				res.Overrides++
			}
		}
	}
	return res, nil
}

func applyOverride(ctx context.Context, store *occurrence.Store, event occurrence.Event, fo Override) error {
	key := occurrence.SlotKey{EventID: event.ID, Start: fo.Slot.UTC().Truncate(time.Second)}
	current, err := store.Get(ctx, event, key)
	if err != nil {
		return err
	}
	start, end := current.Start, current.End
	if fo.Start != nil {
		start = fo.Start.UTC().Truncate(time.Second)
		end = start.Add(current.Duration())
	}
	if fo.End != nil {
		end = fo.End.UTC().Truncate(time.Second)
	}
	_, err = store.Save(ctx, event, key, start, end, fo.Cancelled)
	return err
}
