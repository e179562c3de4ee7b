package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// Frequency is the unit a Rule advances by. The zero value means the rule
// doesn't repeat.
type Frequency int

const (
	None Frequency = iota
	Yearly
	Monthly
	Weekly
	Daily
	Hourly
	Minutely
	Secondly
)

func (f Frequency) String() string {
	switch f {
	case None:
		return ""
	case Yearly:
		return "YEARLY"
	case Monthly:
		return "MONTHLY"
	case Weekly:
		return "WEEKLY"
	case Daily:
		return "DAILY"
	case Hourly:
		return "HOURLY"
	case Minutely:
		return "MINUTELY"
	case Secondly:
		return "SECONDLY"
	}
	return fmt.Sprintf("Frequency(%d)", int(f))
}

// ParseFrequency accepts the RFC 5545 names, case-insensitive. An empty
// string is None.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NONE":
		return None, nil
	case "YEARLY":
		return Yearly, nil
	case "MONTHLY":
		return Monthly, nil
	case "WEEKLY":
		return Weekly, nil
	case "DAILY":
		return Daily, nil
	case "HOURLY":
		return Hourly, nil
	case "MINUTELY":
		return Minutely, nil
	case "SECONDLY":
		return Secondly, nil
	}
	return None, fmt.Errorf("ParseFrequency: unknown frequency %q: %w", s, ErrInvalidRule)
}

func (f Frequency) valid() bool {
	return f >= None && f <= Secondly
}

// step returns the candidate n units after anchor. ok is false when the
// calendar has no such date (e.g. the 31st in a 30-day month); those slots
// are not candidates at all.
func (f Frequency) step(anchor time.Time, n int) (time.Time, bool) {
	switch f {
	case None:
		return anchor, n == 0
	case Yearly:
		return addCalendar(anchor, n, 0)
	case Monthly:
		return addCalendar(anchor, 0, n)
	case Weekly:
		return anchor.AddDate(0, 0, 7*n), true
	case Daily:
		return anchor.AddDate(0, 0, n), true
	case Hourly:
		return anchor.Add(time.Duration(n) * time.Hour), true
	case Minutely:
		return anchor.Add(time.Duration(n) * time.Minute), true
	case Secondly:
		return anchor.Add(time.Duration(n) * time.Second), true
	}
	panic(fmt.Sprintf("recurrence: unhandled frequency %d", int(f)))
}

// unitsBefore returns a lower bound on the number of whole units between
// anchor and t. Used to skip ahead without walking every candidate.
func (f Frequency) unitsBefore(anchor, t time.Time) int {
	if !t.After(anchor) {
		return 0
	}
	elapsed := t.Sub(anchor)
	var n int
	switch f {
	case None:
		return 0
	case Yearly:
		n = t.Year() - anchor.Year() - 1
	case Monthly:
		n = (t.Year()-anchor.Year())*12 + int(t.Month()) - int(anchor.Month()) - 1
	case Weekly:
		// a DST shift can shorten a week by an hour
		n = int(elapsed/(7*24*time.Hour)) - 1
	case Daily:
		n = int(elapsed/(24*time.Hour)) - 1
	case Hourly:
		n = int(elapsed / time.Hour)
	case Minutely:
		n = int(elapsed / time.Minute)
	case Secondly:
		n = int(elapsed / time.Second)
	default:
		panic(fmt.Sprintf("recurrence: unhandled frequency %d", int(f)))
	}
	return max(n, 0)
}

// dense reports whether every index yields a candidate.
func (f Frequency) dense() bool {
	switch f {
	case Yearly, Monthly:
		return false
	case None, Weekly, Daily, Hourly, Minutely, Secondly:
		return true
	}
	panic(fmt.Sprintf("recurrence: unhandled frequency %d", int(f)))
}

func addCalendar(anchor time.Time, years, months int) (time.Time, bool) {
	total := int(anchor.Month()) - 1 + months
	year := anchor.Year() + years + floorDiv(total, 12)
	month := time.Month(floorMod(total, 12) + 1)
	if anchor.Day() > daysIn(year, month) {
		return time.Time{}, false
	}
	hour, min, sec := anchor.Clock()
	return time.Date(year, month, anchor.Day(), hour, min, sec, anchor.Nanosecond(), anchor.Location()), true
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int) int {
	return a - floorDiv(a, b)*b
}
