package period

import (
	"fmt"
	"strings"
	"time"

	"schedule/src-server/recurrence"
)

type Kind int

const (
	Custom Kind = iota
	Year
	Month
	Week
	Day
)

func (k Kind) String() string {
	switch k {
	case Custom:
		return "custom"
	case Year:
		return "year"
	case Month:
		return "month"
	case Week:
		return "week"
	case Day:
		return "day"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind accepts the names printed by Kind.String.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "year":
		return Year, nil
	case "month":
		return Month, nil
	case "week":
		return Week, nil
	case "day":
		return Day, nil
	case "custom", "":
		return Custom, nil
	}
	return Custom, fmt.Errorf("ParseKind: unknown period %q", s)
}

// Bounds returns the calendar window of the given kind containing date, in
// date's location. Weeks begin on firstWeekday. Custom has no calendar
// shape and yields a zero-length window at date.
func Bounds(kind Kind, date time.Time, firstWeekday time.Weekday) recurrence.Window {
	y, m, d := date.Date()
	loc := date.Location()
	switch kind {
	case Year:
		start := time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
		return recurrence.Window{Start: start, End: start.AddDate(1, 0, 0)}
	case Month:
		start := time.Date(y, m, 1, 0, 0, 0, 0, loc)
		return recurrence.Window{Start: start, End: start.AddDate(0, 1, 0)}
	case Week:
		offset := (int(date.Weekday()) - int(firstWeekday) + 7) % 7
		start := time.Date(y, m, d-offset, 0, 0, 0, 0, loc)
		return recurrence.Window{Start: start, End: start.AddDate(0, 0, 7)}
	case Day:
		start := time.Date(y, m, d, 0, 0, 0, 0, loc)
		return recurrence.Window{Start: start, End: start.AddDate(0, 0, 1)}
	}
	return recurrence.Window{Start: date, End: date}
}

// shift moves a window of the given kind by n periods.
func shift(kind Kind, w recurrence.Window, n int) recurrence.Window {
	switch kind {
	case Year:
		return recurrence.Window{Start: w.Start.AddDate(n, 0, 0), End: w.End.AddDate(n, 0, 0)}
	case Month:
		return recurrence.Window{Start: w.Start.AddDate(0, n, 0), End: w.End.AddDate(0, n, 0)}
	case Week:
		return recurrence.Window{Start: w.Start.AddDate(0, 0, 7*n), End: w.End.AddDate(0, 0, 7*n)}
	case Day:
		return recurrence.Window{Start: w.Start.AddDate(0, 0, n), End: w.End.AddDate(0, 0, n)}
	}
	d := time.Duration(n) * w.Duration()
	return recurrence.Window{Start: w.Start.Add(d), End: w.End.Add(d)}
}
