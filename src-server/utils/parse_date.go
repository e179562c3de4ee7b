package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
)

var ErrUnparsableDate = errors.New("unparsable date")

var dateLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDate reads an absolute timestamp (RFC 3339 or one of the short
// layouts, interpreted in loc) and falls back to natural language such as
// "next monday 10am", resolved relative to now.
func ParseDate(parser *when.Parser, text string, now time.Time, loc *time.Location) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, fmt.Errorf("ParseDate: empty input: %w", ErrUnparsableDate)
	}
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return t, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, text, loc); err == nil {
			return t, nil
		}
	}

	if parser == nil {
		return time.Time{}, fmt.Errorf("ParseDate: %q: %w", text, ErrUnparsableDate)
	}
	result, err := parser.Parse(text, now.In(loc))
	if err != nil {
		return time.Time{}, fmt.Errorf("ParseDate: %q: %w", text, err)
	}
	if result == nil {
		return time.Time{}, fmt.Errorf("ParseDate: %q: %w", text, ErrUnparsableDate)
	}
	return result.Time, nil
}
