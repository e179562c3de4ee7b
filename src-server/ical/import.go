package ical

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"schedule/src-server/occurrence"
	"schedule/src-server/recurrence"

	goical "github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/samber/mo"
)

var ErrOrphanChild = errors.New("recurrence-id without a master event")

var (
	datePattern      = regexp.MustCompile(`^\d{4}\d{2}\d{2}$`)
	localTimePattern = regexp.MustCompile(`^\d{4}\d{2}\d{2}T\d{2}\d{2}\d{2}$`)
	utcTimePattern   = regexp.MustCompile(`^\d{4}\d{2}\d{2}T\d{2}\d{2}\d{2}Z$`)
)

// Child is a VEVENT carrying a RECURRENCE-ID: one instance of its master
// event, moved or cancelled.
type Child struct {
	Key       occurrence.SlotKey
	Start     time.Time
	End       time.Time
	Cancelled bool
}

// Imported is the content of one VCALENDAR.
type Imported struct {
	Name     string
	Events   []occurrence.Event
	Children []Child
}

// Import reads a VCALENDAR stream. Masters become events of calendarID,
// children are returned for the caller to store as overrides. Floating
// times are read in loc; DATE values are midnight UTC.
func Import(r io.Reader, calendarID string, loc *time.Location) (*Imported, error) {
	if loc == nil {
		loc = time.UTC
	}
	cal, err := goical.NewDecoder(r).Decode()
	if err != nil {
		return nil, fmt.Errorf("ical.Import: %w", err)
	}

	imp := &Imported{}
	if name, err := cal.Props.Text(goical.PropName); err == nil {
		imp.Name = name
	}
	if imp.Name == "" {
		if name, err := cal.Props.Text("X-WR-CALNAME"); err == nil {
			imp.Name = name
		}
	}

	masters := make(map[string]bool)
	var children []goical.Event
	for _, ev := range cal.Events() {
		if ev.Props.Get(goical.PropRecurrenceID) != nil {
			children = append(children, ev)
			continue
		}
		event, err := toEvent(ev, calendarID, loc)
		if err != nil {
			return nil, fmt.Errorf("ical.Import: %w", err)
		}
		masters[event.ID] = true
		imp.Events = append(imp.Events, event)
	}

	for _, ev := range children {
		child, err := toChild(ev, loc)
		if err != nil {
			return nil, fmt.Errorf("ical.Import: %w", err)
		}
		if !masters[child.Key.EventID] {
			return nil, fmt.Errorf("ical.Import: %s: %w", child.Key, ErrOrphanChild)
		}
		imp.Children = append(imp.Children, child)
	}
	return imp, nil
}

func toEvent(ev goical.Event, calendarID string, loc *time.Location) (occurrence.Event, error) {
	uid, _ := ev.Props.Text(goical.PropUID)
	if uid == "" {
		uid = uuid.NewString()
	}
	summary, _ := ev.Props.Text(goical.PropSummary)
	description, _ := ev.Props.Text(goical.PropDescription)

	start, end, err := span(ev, loc)
	if err != nil {
		return occurrence.Event{}, fmt.Errorf("event %s: %w", uid, err)
	}
	event := occurrence.Event{
		ID:          uid,
		CalendarID:  calendarID,
		Title:       summary,
		Description: description,
		Start:       start,
		End:         end,
	}

	var exdates []time.Time
	for _, prop := range ev.Props.Values(goical.PropExceptionDates) {
		for _, value := range strings.Split(prop.Value, ",") {
			t, err := parseDate(value, prop.Params.Get(goical.ParamTimezoneID), loc)
			if err != nil {
				return occurrence.Event{}, fmt.Errorf("event %s: EXDATE: %w", uid, err)
			}
			exdates = append(exdates, t)
		}
	}
	if prop := ev.Props.Get(goical.PropRecurrenceRule); prop != nil {
		rule, err := recurrence.ParseRRule(prop.Value, exdates...)
		if err != nil {
			return occurrence.Event{}, fmt.Errorf("event %s: %w", uid, err)
		}
		event.Rule = mo.Some(rule)
	}

	if err := event.Validate(); err != nil {
		return occurrence.Event{}, fmt.Errorf("event %s: %w", uid, err)
	}
	return event, nil
}

func toChild(ev goical.Event, loc *time.Location) (Child, error) {
	uid, _ := ev.Props.Text(goical.PropUID)
	prop := ev.Props.Get(goical.PropRecurrenceID)
	slot, err := parseDate(prop.Value, prop.Params.Get(goical.ParamTimezoneID), loc)
	if err != nil {
		return Child{}, fmt.Errorf("event %s: RECURRENCE-ID: %w", uid, err)
	}
	start, end, err := span(ev, loc)
	if err != nil {
		return Child{}, fmt.Errorf("event %s: %w", uid, err)
	}
	status, _ := ev.Props.Text(goical.PropStatus)
	return Child{
		Key:       occurrence.SlotKey{EventID: uid, Start: slot},
		Start:     start,
		End:       end,
		Cancelled: strings.EqualFold(status, "CANCELLED"),
	}, nil
}

// span reads DTSTART and DTEND, falling back to DURATION, then to one day
// for a DATE start, then to a zero-length span.
func span(ev goical.Event, loc *time.Location) (time.Time, time.Time, error) {
	startProp := ev.Props.Get(goical.PropDateTimeStart)
	if startProp == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("DTSTART is missing")
	}
	start, err := parseDate(startProp.Value, startProp.Params.Get(goical.ParamTimezoneID), loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("DTSTART: %w", err)
	}

	if endProp := ev.Props.Get(goical.PropDateTimeEnd); endProp != nil {
		end, err := parseDate(endProp.Value, endProp.Params.Get(goical.ParamTimezoneID), loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("DTEND: %w", err)
		}
		return start, end, nil
	}
	if durationProp := ev.Props.Get(goical.PropDuration); durationProp != nil {
		d, err := durationProp.Duration()
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("DURATION: %w", err)
		}
		return start, start.Add(d), nil
	}
	if datePattern.MatchString(startProp.Value) {
		return start, start.AddDate(0, 0, 1), nil
	}
	return start, start, nil
}

// parseDate reads a DATE or DATE-TIME value. Without a trailing Z the value
// is read in tzid when given, else in loc. The result is in UTC.
func parseDate(value, tzid string, loc *time.Location) (time.Time, error) {
	value = strings.TrimSpace(value)
	switch {
	case datePattern.MatchString(value):
		return time.Parse("20060102", value)
	case utcTimePattern.MatchString(value):
		return time.Parse("20060102T150405Z", value)
	case localTimePattern.MatchString(value):
		if tzid != "" {
			location, err := time.LoadLocation(tzid)
			if err != nil {
				return time.Time{}, fmt.Errorf("invalid TZID: %w", err)
			}
			loc = location
		}
		result, err := time.ParseInLocation("20060102T150405", value, loc)
		if err != nil {
			return time.Time{}, err
		}
		return result.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid date-time format %q", value)
}
