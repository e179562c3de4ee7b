package occurrence

import (
	"sort"
	"time"
)

// Occurrence is one concrete instance of an event. It is virtual (computed
// on demand) unless Persisted is set, in which case an Override shaped it.
type Occurrence struct {
	EventID     string
	Title       string
	Description string

	Start time.Time
	End   time.Time

	// OriginalStart/OriginalEnd are where the rule placed this instance;
	// they never change after a reschedule.
	OriginalStart time.Time
	OriginalEnd   time.Time

	Cancelled bool
	Persisted bool
}

// Key is the occurrence's stable identity.
func (o Occurrence) Key() SlotKey {
	return SlotKey{EventID: o.EventID, Start: o.OriginalStart}
}

// Moved reports whether an override rescheduled the occurrence.
func (o Occurrence) Moved() bool {
	return !o.Start.Equal(o.OriginalStart) || !o.End.Equal(o.OriginalEnd)
}

func (o Occurrence) Duration() time.Duration {
	return o.End.Sub(o.Start)
}

// Sort orders occurrences by start, then event id, then original slot.
func Sort(occurrences []Occurrence) {
	sort.SliceStable(occurrences, func(i, j int) bool {
		a, b := occurrences[i], occurrences[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.EventID != b.EventID {
			return a.EventID < b.EventID
		}
		return a.OriginalStart.Before(b.OriginalStart)
	})
}

// Override is the persisted record that reschedules or cancels one slot of
// an event. It is keyed by (EventID, OriginalStart).
type Override struct {
	EventID       string
	OriginalStart time.Time

	Start       time.Time
	End         time.Time
	Title       string
	Description string
	Cancelled   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (o Override) Key() SlotKey {
	return SlotKey{EventID: o.EventID, Start: o.OriginalStart}
}

// apply shadows the event's virtual occurrence for this slot.
func (o Override) apply(e Event) Occurrence {
	occ := e.virtual(o.OriginalStart)
	occ.Start = o.Start
	occ.End = o.End
	occ.Cancelled = o.Cancelled
	occ.Persisted = true
	if o.Title != "" {
		occ.Title = o.Title
	}
	if o.Description != "" {
		occ.Description = o.Description
	}
	return occ
}
