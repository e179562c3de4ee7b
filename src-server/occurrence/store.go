package occurrence

import (
	"context"
	"fmt"
	"time"

	"schedule/src-server/recurrence"
)

// OverrideRepository persists overrides. Implementations live in
// src-server/model (sqlite) and src-server/storage.
type OverrideRepository interface {
	// ListOverrides returns the event's overrides whose original slot lies
	// in window, or whose current span overlaps window.
	ListOverrides(ctx context.Context, eventID string, window recurrence.Window) ([]Override, error)
	// GetOverride returns the override for key, false if there is none.
	GetOverride(ctx context.Context, key SlotKey) (Override, bool, error)
	// SaveOverride inserts or replaces the override for o.Key().
	SaveOverride(ctx context.Context, o Override) error
}

// Recorder observes store activity. metric.Recorder is the production one.
type Recorder interface {
	ObserveMaterialize(eventID string, occurrences int, elapsed time.Duration)
	ObserveOverrideWrite(eventID string, cancelled bool)
}

type nopRecorder struct{}

func (nopRecorder) ObserveMaterialize(string, int, time.Duration) {}
func (nopRecorder) ObserveOverrideWrite(string, bool)             {}

// Store merges generated occurrences with persisted overrides.
type Store struct {
	overrides OverrideRepository
	recorder  Recorder
	now       func() time.Time
	maxDrift  time.Duration
}

type StoreOption func(*Store)

func WithRecorder(r Recorder) StoreOption {
	return func(s *Store) {
		if r != nil {
			s.recorder = r
		}
	}
}

// WithClock replaces time.Now for CreatedAt/UpdatedAt stamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMaxDrift rejects writes that move a slot further than d from its
// original start. Zero means unlimited.
func WithMaxDrift(d time.Duration) StoreOption {
	return func(s *Store) {
		s.maxDrift = d
	}
}

func NewStore(overrides OverrideRepository, opts ...StoreOption) *Store {
	s := &Store{
		overrides: overrides,
		recorder:  nopRecorder{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Materialize returns the event's occurrences overlapping window: generated
// ones, each replaced by its override when one exists, plus overrides
// rescheduled into the window from slots outside it. Cancelled occurrences
// are included with Cancelled set.
func (s *Store) Materialize(ctx context.Context, event Event, window recurrence.Window) ([]Occurrence, error) {
	started := time.Now()

	generated, err := Generate(event, window)
	if err != nil {
		return nil, fmt.Errorf("Store.Materialize: %w", err)
	}

	// same span Generate expands over, so every generated slot's override
	// is fetched, including a slot at the instant of a zero-length window
	persisted, err := s.overrides.ListOverrides(ctx, event.ID, window.Extend(event.Duration(), time.Nanosecond))
	if err != nil {
		return nil, fmt.Errorf("Store.Materialize: failed to list overrides: %w", err)
	}
	bySlot := make(map[int64]Override, len(persisted))
	for _, o := range persisted {
		bySlot[o.OriginalStart.Unix()] = o
	}

	out := make([]Occurrence, 0, len(generated))
	for _, occ := range generated {
		o, ok := bySlot[occ.OriginalStart.Unix()]
		if !ok {
			out = append(out, occ)
			continue
		}
		delete(bySlot, occ.OriginalStart.Unix())
		if window.Overlaps(o.Start, o.End) {
			out = append(out, o.apply(event))
		}
	}
	// the rest were either moved in from outside the window or point at
	// slots the rule no longer produces
	for _, o := range bySlot {
		if window.Overlaps(o.Start, o.End) && event.HasSlot(o.OriginalStart) {
			out = append(out, o.apply(event))
		}
	}
	Sort(out)

	s.recorder.ObserveMaterialize(event.ID, len(out), time.Since(started))
	return out, nil
}

// MaterializeAll materializes every event and merges the results.
func (s *Store) MaterializeAll(ctx context.Context, events []Event, window recurrence.Window) ([]Occurrence, error) {
	var out []Occurrence
	for _, event := range events {
		occurrences, err := s.Materialize(ctx, event, window)
		if err != nil {
			return nil, err
		}
		out = append(out, occurrences...)
	}
	Sort(out)
	return out, nil
}

// Get returns the occurrence addressed by key: the override when one is
// persisted, otherwise the virtual occurrence for that slot.
func (s *Store) Get(ctx context.Context, event Event, key SlotKey) (Occurrence, error) {
	if err := event.Validate(); err != nil {
		return Occurrence{}, fmt.Errorf("Store.Get: %w", err)
	}
	if key.EventID != event.ID {
		return Occurrence{}, fmt.Errorf("Store.Get: key belongs to event %q, not %q: %w", key.EventID, event.ID, ErrNotFound)
	}

	o, ok, err := s.overrides.GetOverride(ctx, key)
	if err != nil {
		return Occurrence{}, fmt.Errorf("Store.Get: failed to get override: %w", err)
	}
	if ok {
		return o.apply(event), nil
	}
	if !event.HasSlot(key.Start) {
		return Occurrence{}, fmt.Errorf("Store.Get: %s is not a slot of event %q: %w",
			key.Start.Format(time.RFC3339), event.ID, ErrNotFound)
	}
	return event.virtual(key.Start), nil
}

// Save persists the given start, end and cancelled state for the slot and
// returns the resulting occurrence. Saving a slot twice updates the same
// override.
func (s *Store) Save(ctx context.Context, event Event, key SlotKey, start, end time.Time, cancelled bool) (Occurrence, error) {
	switch {
	case start.IsZero() || end.IsZero():
		return Occurrence{}, fmt.Errorf("Store.Save: start and end are required: %w", ErrInvalidOverride)
	case start.After(end):
		return Occurrence{}, fmt.Errorf("Store.Save: start must not be after end: %w", ErrInvalidOverride)
	case s.maxDrift > 0 && absDuration(start.Sub(key.Start)) > s.maxDrift:
		return Occurrence{}, fmt.Errorf("Store.Save: moved further than %s from its slot: %w", s.maxDrift, ErrInvalidOverride)
	}

	if _, err := s.Get(ctx, event, key); err != nil {
		return Occurrence{}, fmt.Errorf("Store.Save: %w", err)
	}
	existing, found, err := s.overrides.GetOverride(ctx, key)
	if err != nil {
		return Occurrence{}, fmt.Errorf("Store.Save: failed to get override: %w", err)
	}

	now := s.now().UTC().Truncate(time.Second)
	o := Override{
		EventID:       event.ID,
		OriginalStart: key.Start,
		Start:         start,
		End:           end,
		Cancelled:     cancelled,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if found {
		o.Title = existing.Title
		o.Description = existing.Description
		o.CreatedAt = existing.CreatedAt
	}

	if err := s.overrides.SaveOverride(ctx, o); err != nil {
		return Occurrence{}, fmt.Errorf("Store.Save: failed to save override: %w", err)
	}
	s.recorder.ObserveOverrideWrite(event.ID, cancelled)
	return o.apply(event), nil
}

// Cancel marks the slot cancelled, keeping any reschedule.
func (s *Store) Cancel(ctx context.Context, event Event, key SlotKey) (Occurrence, error) {
	current, err := s.Get(ctx, event, key)
	if err != nil {
		return Occurrence{}, fmt.Errorf("Store.Cancel: %w", err)
	}
	return s.Save(ctx, event, key, current.Start, current.End, true)
}

// Uncancel reverses Cancel, keeping any reschedule.
func (s *Store) Uncancel(ctx context.Context, event Event, key SlotKey) (Occurrence, error) {
	current, err := s.Get(ctx, event, key)
	if err != nil {
		return Occurrence{}, fmt.Errorf("Store.Uncancel: %w", err)
	}
	return s.Save(ctx, event, key, current.Start, current.End, false)
}

// Move reschedules the slot to start, keeping the occurrence's duration.
func (s *Store) Move(ctx context.Context, event Event, key SlotKey, start time.Time) (Occurrence, error) {
	current, err := s.Get(ctx, event, key)
	if err != nil {
		return Occurrence{}, fmt.Errorf("Store.Move: %w", err)
	}
	return s.Save(ctx, event, key, start, start.Add(current.Duration()), current.Cancelled)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
