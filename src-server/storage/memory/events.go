package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"schedule/src-server/occurrence"
)

type Events struct {
	mu   sync.RWMutex
	data map[string]occurrence.Event
}

func NewEvents(events ...occurrence.Event) *Events {
	m := &Events{data: make(map[string]occurrence.Event, len(events))}
	for _, e := range events {
		m.data[e.ID] = e
	}
	return m
}

func (m *Events) SaveEvent(_ context.Context, e occurrence.Event) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("Events.SaveEvent: %w", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[e.ID] = e
	return nil
}

func (m *Events) GetEvent(_ context.Context, id string) (occurrence.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.data[id]
	if !ok {
		return occurrence.Event{}, fmt.Errorf("Events.GetEvent: event %q: %w", id, occurrence.ErrNotFound)
	}
	return e, nil
}

// ListEvents returns the calendar's events ordered by start. An empty
// calendarID lists every event.
func (m *Events) ListEvents(_ context.Context, calendarID string) ([]occurrence.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []occurrence.Event
	for _, e := range m.data {
		if calendarID == "" || e.CalendarID == calendarID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
