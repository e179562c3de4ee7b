// Package memory keeps overrides in process memory. It backs tests and the
// "memory" OVERRIDE_BACKEND.
package memory

import (
	"context"
	"sort"
	"sync"

	"schedule/src-server/occurrence"
	"schedule/src-server/recurrence"
)

type slot struct {
	eventID string
	start   int64
}

type Overrides struct {
	mu   sync.RWMutex
	data map[slot]occurrence.Override
}

func NewOverrides() *Overrides {
	return &Overrides{data: make(map[slot]occurrence.Override)}
}

func (m *Overrides) ListOverrides(_ context.Context, eventID string, window recurrence.Window) ([]occurrence.Override, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []occurrence.Override
	for k, o := range m.data {
		if k.eventID != eventID {
			continue
		}
		if window.Contains(o.OriginalStart) || window.Overlaps(o.Start, o.End) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].OriginalStart.Before(out[j].OriginalStart)
	})
	return out, nil
}

func (m *Overrides) GetOverride(_ context.Context, key occurrence.SlotKey) (occurrence.Override, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.data[slot{key.EventID, key.Start.Unix()}]
	return o, ok, nil
}

func (m *Overrides) SaveOverride(_ context.Context, o occurrence.Override) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[slot{o.EventID, o.OriginalStart.Unix()}] = o
	return nil
}

// DeleteOverrides drops every override of an event.
func (m *Overrides) DeleteOverrides(_ context.Context, eventID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if k.eventID == eventID {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *Overrides) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
