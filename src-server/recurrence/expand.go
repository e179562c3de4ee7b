package recurrence

import (
	"fmt"
	"time"
)

// Sequence lazily yields the candidate starts of a rule inside a window.
// It is deterministic and can be restarted with Reset.
type Sequence struct {
	rule   Rule
	anchor time.Time
	window Window

	idx     int // next slot index, in units of rule.Interval
	emitted int // non-excepted candidates seen so far, in or before the window
	done    bool
}

// Expand returns the candidates of rule anchored at anchor whose start lies
// in window. It stops at whichever comes first: Count instances, a candidate
// after Until, or a candidate at or after window.End.
func Expand(rule Rule, anchor time.Time, window Window) (*Sequence, error) {
	if err := rule.Validate(); err != nil {
		return nil, fmt.Errorf("Expand: %w", err)
	}
	if err := window.Validate(); err != nil {
		return nil, fmt.Errorf("Expand: %w", err)
	}
	s := &Sequence{rule: rule, anchor: anchor, window: window}
	s.Reset()
	return s, nil
}

// Reset rewinds the sequence to its first candidate.
func (s *Sequence) Reset() {
	s.idx, s.emitted, s.done = 0, 0, false
	if !s.rule.Frequency.dense() || !s.window.Start.After(s.anchor) {
		return
	}
	// skip to just before the window; every index below k is a candidate,
	// so only exceptions need subtracting from the count budget
	k := s.rule.Frequency.unitsBefore(s.anchor, s.window.Start) / s.rule.Interval
	if k > 0 {
		s.idx = k
		s.emitted = k - s.rule.exceptionsBefore(s.anchor, k)
	}
}

// Next returns the next candidate start, or false once the sequence is
// exhausted.
func (s *Sequence) Next() (time.Time, bool) {
	for !s.done {
		if s.rule.Count > 0 && s.emitted >= s.rule.Count {
			s.done = true
			break
		}
		if s.rule.Frequency == None && s.idx > 0 {
			s.done = true
			break
		}

		candidate, ok := s.rule.Frequency.step(s.anchor, s.idx*s.rule.Interval)
		s.idx++
		if !ok {
			continue
		}
		if until, bounded := s.rule.Until.Get(); bounded && candidate.After(until) {
			s.done = true
			break
		}
		if s.window.past(candidate) {
			s.done = true
			break
		}
		if s.rule.excepted(candidate) {
			continue
		}
		s.emitted++
		if candidate.Before(s.window.Start) {
			continue
		}
		return candidate, true
	}
	return time.Time{}, false
}

// All drains the sequence from the start.
func (s *Sequence) All() []time.Time {
	s.Reset()
	var out []time.Time
	for t, ok := s.Next(); ok; t, ok = s.Next() {
		out = append(out, t)
	}
	return out
}

// IsCandidate reports whether t is a start the rule produces from anchor,
// honoring count, until and exceptions.
func IsCandidate(rule Rule, anchor, t time.Time) bool {
	seq, err := Expand(rule, anchor, Window{Start: t, End: t})
	if err != nil {
		return false
	}
	got, ok := seq.Next()
	return ok && got.Equal(t)
}
