package recurrence

import (
	"fmt"
	"sort"
	"time"

	"github.com/samber/mo"
)

// Rule describes how an event repeats. The zero Frequency (None) means the
// event happens exactly once.
type Rule struct {
	Frequency Frequency
	// Interval is the number of Frequency units between candidates.
	Interval int
	// Count caps the number of generated instances; 0 means unbounded.
	// Exceptions do not consume it.
	Count int
	// Until is an inclusive upper bound on candidate starts.
	Until mo.Option[time.Time]
	// Exceptions are candidate starts to suppress entirely.
	Exceptions []time.Time
}

type RuleOption func(*Rule)

func WithInterval(interval int) RuleOption {
	return func(r *Rule) { r.Interval = interval }
}

func WithCount(count int) RuleOption {
	return func(r *Rule) { r.Count = count }
}

func WithUntil(until time.Time) RuleOption {
	return func(r *Rule) { r.Until = mo.Some(until) }
}

func WithExceptions(dates ...time.Time) RuleOption {
	return func(r *Rule) { r.Exceptions = append(r.Exceptions, dates...) }
}

// NewRule builds and validates a rule. Interval defaults to 1.
func NewRule(freq Frequency, opts ...RuleOption) (Rule, error) {
	r := Rule{Frequency: freq, Interval: 1}
	for _, opt := range opts {
		opt(&r)
	}
	if err := r.Validate(); err != nil {
		return Rule{}, err
	}
	sort.Slice(r.Exceptions, func(i, j int) bool { return r.Exceptions[i].Before(r.Exceptions[j]) })
	return r, nil
}

// MustRule is NewRule for fixtures and tests.
func MustRule(freq Frequency, opts ...RuleOption) Rule {
	r, err := NewRule(freq, opts...)
	if err != nil {
		panic(err)
	}
	return r
}

func (r Rule) Validate() error {
	switch {
	case !r.Frequency.valid():
		return fmt.Errorf("Rule.Validate: unknown frequency %d: %w", int(r.Frequency), ErrInvalidRule)
	case r.Interval <= 0:
		return fmt.Errorf("Rule.Validate: interval must be positive, got %d: %w", r.Interval, ErrInvalidRule)
	case r.Count < 0:
		return fmt.Errorf("Rule.Validate: count must not be negative, got %d: %w", r.Count, ErrInvalidRule)
	case r.Frequency == None && (r.Count != 0 || r.Until.IsPresent()):
		return fmt.Errorf("Rule.Validate: count/until given without a frequency: %w", ErrInvalidRule)
	case r.Frequency == None && len(r.Exceptions) > 0:
		return fmt.Errorf("Rule.Validate: exceptions given without a frequency: %w", ErrInvalidRule)
	}
	if until, ok := r.Until.Get(); ok && until.IsZero() {
		return fmt.Errorf("Rule.Validate: until is the zero time: %w", ErrInvalidRule)
	}
	return nil
}

// Repeats reports whether the rule produces more than the anchor.
func (r Rule) Repeats() bool {
	return r.Frequency != None
}

func (r Rule) excepted(t time.Time) bool {
	i := sort.Search(len(r.Exceptions), func(i int) bool { return !r.Exceptions[i].Before(t) })
	return i < len(r.Exceptions) && r.Exceptions[i].Equal(t)
}

// exceptionsBefore counts exceptions that are real candidates at indexes
// below n. Only meaningful for dense frequencies.
func (r Rule) exceptionsBefore(anchor time.Time, n int) int {
	if len(r.Exceptions) == 0 || n == 0 {
		return 0
	}
	limit, _ := r.Frequency.step(anchor, n*r.Interval)
	excepted := 0
	for _, ex := range r.Exceptions {
		if ex.Before(anchor) {
			continue
		}
		if !ex.Before(limit) {
			break
		}
		if _, ok := r.indexOf(anchor, ex); ok {
			excepted++
		}
	}
	return excepted
}

// indexOf finds i such that step(anchor, i*interval) == t.
func (r Rule) indexOf(anchor, t time.Time) (int, bool) {
	if t.Before(anchor) {
		return 0, false
	}
	i := r.Frequency.unitsBefore(anchor, t) / r.Interval
	for {
		c, ok := r.Frequency.step(anchor, i*r.Interval)
		switch {
		case ok && c.Equal(t):
			return i, true
		case ok && c.After(t):
			return 0, false
		case r.Frequency == None:
			return 0, false
		}
		i++
	}
}
