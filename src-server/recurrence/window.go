package recurrence

import (
	"fmt"
	"time"
)

// Window is the half-open interval [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

func NewWindow(start, end time.Time) (Window, error) {
	w := Window{Start: start, End: end}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

func (w Window) Validate() error {
	if w.Start.After(w.End) {
		return fmt.Errorf("Window.Validate: start %s is after end %s: %w",
			w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339), ErrInvalidWindow)
	}
	return nil
}

func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Contains reports whether t lies in [Start, End). A zero-length window
// contains its own instant.
func (w Window) Contains(t time.Time) bool {
	if w.Start.Equal(w.End) {
		return t.Equal(w.Start)
	}
	return !t.Before(w.Start) && t.Before(w.End)
}

// past reports whether t is at or beyond the upper bound.
func (w Window) past(t time.Time) bool {
	if w.Start.Equal(w.End) {
		return t.After(w.End)
	}
	return !t.Before(w.End)
}

// Overlaps reports whether the span [start, end] intersects the window.
// A zero-length span overlaps only when the window contains its instant.
func (w Window) Overlaps(start, end time.Time) bool {
	switch {
	case start.Equal(end):
		return w.Contains(start)
	case w.Start.Equal(w.End):
		return !start.After(w.Start) && end.After(w.Start)
	}
	return start.Before(w.End) && end.After(w.Start)
}

// Extend widens the window by before on the lower side and after on the
// upper side.
func (w Window) Extend(before, after time.Duration) Window {
	return Window{Start: w.Start.Add(-before), End: w.End.Add(after)}
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", w.Start.Format(time.RFC3339), w.End.Format(time.RFC3339))
}
