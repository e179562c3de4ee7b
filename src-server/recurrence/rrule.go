package recurrence

import (
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

// ParseRRule reads an RFC 5545 RRULE value ("FREQ=WEEKLY;INTERVAL=2;COUNT=4",
// optionally prefixed with "RRULE:"). Only FREQ, INTERVAL, COUNT and UNTIL
// are supported; any BY* part is rejected rather than silently ignored.
func ParseRRule(text string, exceptions ...time.Time) (Rule, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return NewRule(None)
	}
	text = strings.TrimPrefix(text, "RRULE:")
	opt, err := rrule.StrToROption(text)
	if err != nil {
		return Rule{}, fmt.Errorf("ParseRRule: %w: %s", ErrInvalidRule, err)
	}
	switch {
	case len(opt.Bysetpos) > 0, len(opt.Bymonth) > 0, len(opt.Bymonthday) > 0,
		len(opt.Byyearday) > 0, len(opt.Byweekno) > 0, len(opt.Byweekday) > 0,
		len(opt.Byhour) > 0, len(opt.Byminute) > 0, len(opt.Bysecond) > 0,
		len(opt.Byeaster) > 0:
		return Rule{}, fmt.Errorf("ParseRRule: BY* parts are not supported in %q: %w", text, ErrInvalidRule)
	}

	freq, err := fromRRuleFrequency(opt.Freq)
	if err != nil {
		return Rule{}, err
	}
	opts := []RuleOption{WithCount(opt.Count), WithExceptions(exceptions...)}
	// rrule-go reads a missing INTERVAL as 0, so only an explicit part
	// overrides the default
	if opt.Interval != 0 || hasPart(text, "INTERVAL") {
		opts = append(opts, WithInterval(opt.Interval))
	}
	if !opt.Until.IsZero() {
		opts = append(opts, WithUntil(opt.Until))
	}
	return NewRule(freq, opts...)
}

func hasPart(text, name string) bool {
	for _, part := range strings.Split(text, ";") {
		key, _, _ := strings.Cut(part, "=")
		if strings.EqualFold(strings.TrimSpace(key), name) {
			return true
		}
	}
	return false
}

// ParseExceptions reads a comma separated EXDATE value such as
// "20240108T100000Z,20240115T100000Z".
func ParseExceptions(text string) ([]time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	dates, err := rrule.StrToDates(strings.TrimPrefix(text, "EXDATE:"))
	if err != nil {
		return nil, fmt.Errorf("ParseExceptions: %w: %s", ErrInvalidRule, err)
	}
	return dates, nil
}

// RRule renders the rule back into RRULE text. A non-repeating rule renders
// as the empty string.
func (r Rule) RRule() string {
	if !r.Repeats() {
		return ""
	}
	opt := rrule.ROption{
		Freq:     toRRuleFrequency(r.Frequency),
		Interval: r.Interval,
		Count:    r.Count,
	}
	if until, ok := r.Until.Get(); ok {
		opt.Until = until.UTC()
	}
	return opt.RRuleString()
}

// ExceptionsString renders Exceptions as an EXDATE value.
func (r Rule) ExceptionsString() string {
	parts := make([]string, 0, len(r.Exceptions))
	for _, ex := range r.Exceptions {
		parts = append(parts, ex.UTC().Format("20060102T150405Z"))
	}
	return strings.Join(parts, ",")
}

func fromRRuleFrequency(f rrule.Frequency) (Frequency, error) {
	switch f {
	case rrule.YEARLY:
		return Yearly, nil
	case rrule.MONTHLY:
		return Monthly, nil
	case rrule.WEEKLY:
		return Weekly, nil
	case rrule.DAILY:
		return Daily, nil
	case rrule.HOURLY:
		return Hourly, nil
	case rrule.MINUTELY:
		return Minutely, nil
	case rrule.SECONDLY:
		return Secondly, nil
	}
	return None, fmt.Errorf("fromRRuleFrequency: unsupported frequency %v: %w", f, ErrInvalidRule)
}

func toRRuleFrequency(f Frequency) rrule.Frequency {
	switch f {
	case Yearly:
		return rrule.YEARLY
	case Monthly:
		return rrule.MONTHLY
	case Weekly:
		return rrule.WEEKLY
	case Daily:
		return rrule.DAILY
	case Hourly:
		return rrule.HOURLY
	case Minutely:
		return rrule.MINUTELY
	case Secondly:
		return rrule.SECONDLY
	}
	panic(fmt.Sprintf("recurrence: no RRULE frequency for %v", f))
}
