package period

import (
	"time"

	"schedule/src-server/occurrence"
	"schedule/src-server/recurrence"
)

// Class is the four-way position of an occurrence relative to a period.
type Class int

const (
	// StartsInside: starts in the period, ends after its end.
	StartsInside Class = iota
	// Inside: starts in the period and ends no later than its end.
	Inside
	// Spans: starts before the period and ends after its end.
	Spans
	// EndsInside: started before the period, ends no later than its end.
	EndsInside
)

func (c Class) String() string {
	switch c {
	case StartsInside:
		return "starts"
	case Inside:
		return "inside"
	case Spans:
		return "spans"
	case EndsInside:
		return "ends"
	}
	return "unknown"
}

type Classification struct {
	Occurrence occurrence.Occurrence

	StartedBeforeWindow bool
	EndsAfterWindow     bool
	Cancelled           bool
	Class               Class
}

// Period is a window plus the occurrences overlapping it. Sub-periods reuse
// the parent's occurrences and never go back to storage.
type Period struct {
	Kind   Kind
	Window recurrence.Window

	occurrences  []occurrence.Occurrence
	firstWeekday time.Weekday
}

// New builds a period from already materialized occurrences, keeping those
// that overlap window.
func New(kind Kind, window recurrence.Window, occurrences []occurrence.Occurrence, firstWeekday time.Weekday) *Period {
	kept := make([]occurrence.Occurrence, 0, len(occurrences))
	for _, o := range occurrences {
		if window.Overlaps(o.Start, o.End) {
			kept = append(kept, o)
		}
	}
	occurrence.Sort(kept)
	return &Period{
		Kind:         kind,
		Window:       window,
		occurrences:  kept,
		firstWeekday: firstWeekday,
	}
}

func (p *Period) Start() time.Time { return p.Window.Start }
func (p *Period) End() time.Time   { return p.Window.End }

// Occurrences returns every occurrence overlapping the period, cancelled
// ones included, ordered by start.
func (p *Period) Occurrences() []occurrence.Occurrence {
	return append([]occurrence.Occurrence(nil), p.occurrences...)
}

// Busy returns the occurrences that occupy time. Cancelled occurrences are
// dropped unless includeCancelled is set.
func (p *Period) Busy(includeCancelled bool) []occurrence.Occurrence {
	var out []occurrence.Occurrence
	for _, o := range p.occurrences {
		if o.Cancelled && !includeCancelled {
			continue
		}
		out = append(out, o)
	}
	return out
}

// Persisted returns the occurrences shaped by an override.
func (p *Period) Persisted() []occurrence.Occurrence {
	var out []occurrence.Occurrence
	for _, o := range p.occurrences {
		if o.Persisted {
			out = append(out, o)
		}
	}
	return out
}

func (p *Period) HasOccurrences() bool {
	return len(p.occurrences) > 0
}

func (p *Period) IsCurrent(now time.Time) bool {
	return p.Window.Contains(now)
}

// Classify tags o against the period. It returns false when o doesn't
// overlap the period.
func (p *Period) Classify(o occurrence.Occurrence) (Classification, bool) {
	if !p.Window.Overlaps(o.Start, o.End) {
		return Classification{}, false
	}
	c := Classification{
		Occurrence:          o,
		StartedBeforeWindow: o.Start.Before(p.Window.Start),
		EndsAfterWindow:     o.End.After(p.Window.End),
		Cancelled:           o.Cancelled,
	}
	started := p.Window.Contains(o.Start)
	// overlap already holds, so ending at or before End means ending inside
	ended := !c.EndsAfterWindow
	switch {
	case started && ended:
		c.Class = Inside
	case started:
		c.Class = StartsInside
	case ended:
		c.Class = EndsInside
	default:
		c.Class = Spans
	}
	return c, true
}

// Classified classifies every occurrence of the period in order.
func (p *Period) Classified() []Classification {
	out := make([]Classification, 0, len(p.occurrences))
	for _, o := range p.occurrences {
		if c, ok := p.Classify(o); ok {
			out = append(out, c)
		}
	}
	return out
}

// Next returns the window of the following period of the same kind.
func (p *Period) Next() recurrence.Window {
	return shift(p.Kind, p.Window, 1)
}

// Prev returns the window of the preceding period of the same kind.
func (p *Period) Prev() recurrence.Window {
	return shift(p.Kind, p.Window, -1)
}

// Sub narrows the period to window without fetching anything.
func (p *Period) Sub(kind Kind, window recurrence.Window) *Period {
	return New(kind, window, p.occurrences, p.firstWeekday)
}

// Months splits the period into calendar months.
func (p *Period) Months() []*Period {
	return p.split(Month)
}

// Weeks splits the period into weeks starting on the configured weekday.
// The first and last weeks may stick out of the period.
func (p *Period) Weeks() []*Period {
	return p.split(Week)
}

func (p *Period) Days() []*Period {
	return p.split(Day)
}

// Slots splits the period into consecutive custom windows of length step.
func (p *Period) Slots(step time.Duration) []*Period {
	if step <= 0 {
		return nil
	}
	var out []*Period
	for start := p.Window.Start; start.Before(p.Window.End); start = start.Add(step) {
		end := start.Add(step)
		if end.After(p.Window.End) {
			end = p.Window.End
		}
		out = append(out, p.Sub(Custom, recurrence.Window{Start: start, End: end}))
	}
	return out
}

func (p *Period) split(kind Kind) []*Period {
	var out []*Period
	w := Bounds(kind, p.Window.Start, p.firstWeekday)
	for w.Start.Before(p.Window.End) {
		out = append(out, p.Sub(kind, w))
		w = shift(kind, w, 1)
	}
	return out
}
