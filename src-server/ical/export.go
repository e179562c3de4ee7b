package ical

import (
	"fmt"
	"io"
	"time"

	"schedule/src-server/occurrence"

	goical "github.com/emersion/go-ical"
)

const (
	prodID = "-//schedule//occurrence export//EN"
	// PropSlotKey carries the occurrence's slot key token so a client can
	// address the instance when editing it.
	PropSlotKey = "X-SCHEDULE-SLOT"
)

// Feed holds what the VCALENDAR header needs.
type Feed struct {
	Name  string
	Stamp time.Time
}

// Export writes occurrences as one VEVENT each. Every VEVENT carries the
// event UID and a RECURRENCE-ID naming its original slot; cancelled
// occurrences are written with STATUS:CANCELLED.
func Export(w io.Writer, feed Feed, occurrences []occurrence.Occurrence) error {
	cal := goical.NewCalendar()
	cal.Props.SetText(goical.PropProductID, prodID)
	cal.Props.SetText(goical.PropVersion, "2.0")
	if feed.Name != "" {
		cal.Props.SetText(goical.PropName, feed.Name)
	}
	stamp := feed.Stamp
	if stamp.IsZero() {
		stamp = time.Now()
	}

	for _, o := range occurrences {
		event, err := toComponent(o, stamp)
		if err != nil {
			return fmt.Errorf("ical.Export: %w", err)
		}
		cal.Children = append(cal.Children, event)
	}

	if err := goical.NewEncoder(w).Encode(cal); err != nil {
		return fmt.Errorf("ical.Export: %w", err)
	}
	return nil
}

func toComponent(o occurrence.Occurrence, stamp time.Time) (*goical.Component, error) {
	switch {
	case o.EventID == "":
		return nil, fmt.Errorf("occurrence has no event id")
	case o.Title == "":
		o.Title = o.EventID
	}

	event := goical.NewComponent(goical.CompEvent)
	event.Props.SetText(goical.PropUID, o.EventID)
	event.Props.SetDateTime(goical.PropDateTimeStamp, stamp.UTC())
	event.Props.SetText(goical.PropSummary, o.Title)
	if o.Description != "" {
		event.Props.SetText(goical.PropDescription, o.Description)
	}

	setTime(event.Props, goical.PropRecurrenceID, o.OriginalStart, isWholeDay(o.OriginalStart, o.OriginalEnd))
	wholeDay := isWholeDay(o.Start, o.End)
	setTime(event.Props, goical.PropDateTimeStart, o.Start, wholeDay)
	setTime(event.Props, goical.PropDateTimeEnd, o.End, wholeDay)

	status := "CONFIRMED"
	if o.Cancelled {
		status = "CANCELLED"
	}
	event.Props.SetText(goical.PropStatus, status)
	event.Props.SetText(PropSlotKey, o.Key().Encode())
	return event, nil
}

func setTime(props goical.Props, name string, t time.Time, wholeDay bool) {
	if wholeDay {
		props.SetDate(name, t)
		return
	}
	props.SetDateTime(name, t.UTC())
}

// isWholeDay reports whether the span runs midnight to midnight (UTC) over
// at least one day, the shape written as DATE rather than DATE-TIME.
func isWholeDay(start, end time.Time) bool {
	start, end = start.UTC(), end.UTC()
	if !end.After(start) {
		return false
	}
	midnight := func(t time.Time) bool {
		hour, min, sec := t.Clock()
		return hour == 0 && min == 0 && sec == 0
	}
	return midnight(start) && midnight(end)
}
