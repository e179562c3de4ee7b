package occurrence

import (
	"fmt"
	"time"

	"schedule/src-server/recurrence"
)

// Generate computes the virtual occurrences of event that overlap window.
// It reads no storage, so the same inputs always yield the same list.
func Generate(event Event, window recurrence.Window) ([]Occurrence, error) {
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("Generate: %w", err)
	}
	if err := window.Validate(); err != nil {
		return nil, fmt.Errorf("Generate: %w", err)
	}

	if !event.Recurring() {
		if !window.Overlaps(event.Start, event.End) {
			return nil, nil
		}
		return []Occurrence{event.virtual(event.Start)}, nil
	}

	// an occurrence starting up to one duration before the window still
	// overlaps it; the nanosecond keeps a start at window.End reachable for
	// zero-length windows and is discarded by Overlaps otherwise
	span := recurrence.Window{
		Start: window.Start.Add(-event.Duration()),
		End:   window.End.Add(time.Nanosecond),
	}
	seq, err := recurrence.Expand(event.effectiveRule(), event.Start, span)
	if err != nil {
		return nil, fmt.Errorf("Generate: %w", err)
	}

	var out []Occurrence
	for start, ok := seq.Next(); ok; start, ok = seq.Next() {
		occ := event.virtual(start)
		if window.Overlaps(occ.Start, occ.End) {
			out = append(out, occ)
		}
	}
	return out, nil
}
