package occurrence

import (
	"fmt"
	"time"

	"schedule/src-server/recurrence"

	"github.com/samber/mo"
)

// Event is a base time span plus an optional recurrence rule. Start and End
// describe the first occurrence; End-Start is every occurrence's duration.
type Event struct {
	ID          string
	CalendarID  string
	Title       string
	Description string

	Start time.Time
	End   time.Time

	Rule mo.Option[recurrence.Rule]
	// EndRecurringPeriod is an inclusive cap on occurrence starts, on top of
	// whatever the rule says.
	EndRecurringPeriod mo.Option[time.Time]
}

func (e Event) Validate() error {
	switch {
	case e.ID == "":
		return fmt.Errorf("Event.Validate: id is blank: %w", ErrInvalidEvent)
	case e.Start.IsZero():
		return fmt.Errorf("Event.Validate: start is required: %w", ErrInvalidEvent)
	case e.End.IsZero():
		return fmt.Errorf("Event.Validate: end is required: %w", ErrInvalidEvent)
	case e.Start.After(e.End):
		return fmt.Errorf("Event.Validate: start must not be after end: %w", ErrInvalidEvent)
	}
	if end, ok := e.EndRecurringPeriod.Get(); ok && end.Before(e.Start) {
		return fmt.Errorf("Event.Validate: end of recurring period is before start: %w", ErrInvalidEvent)
	}
	if rule, ok := e.Rule.Get(); ok {
		if err := rule.Validate(); err != nil {
			return fmt.Errorf("Event.Validate: %w", err)
		}
	}
	return nil
}

func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Recurring reports whether the event repeats.
func (e Event) Recurring() bool {
	rule, ok := e.Rule.Get()
	return ok && rule.Repeats()
}

// effectiveRule folds EndRecurringPeriod into the rule's until bound.
func (e Event) effectiveRule() recurrence.Rule {
	rule, ok := e.Rule.Get()
	if !ok || !rule.Repeats() {
		return recurrence.Rule{Frequency: recurrence.None, Interval: 1}
	}
	if end, ok := e.EndRecurringPeriod.Get(); ok {
		if until, bounded := rule.Until.Get(); !bounded || end.Before(until) {
			rule.Until = mo.Some(end)
		}
	}
	return rule
}

// HasSlot reports whether start is one of the event's original occurrence
// starts.
func (e Event) HasSlot(start time.Time) bool {
	if !e.Recurring() {
		return start.Equal(e.Start)
	}
	return recurrence.IsCandidate(e.effectiveRule(), e.Start, start)
}

// virtual builds the un-overridden occurrence for a slot.
func (e Event) virtual(start time.Time) Occurrence {
	end := start.Add(e.Duration())
	return Occurrence{
		EventID:       e.ID,
		Title:         e.Title,
		Description:   e.Description,
		Start:         start,
		End:           end,
		OriginalStart: start,
		OriginalEnd:   end,
	}
}
