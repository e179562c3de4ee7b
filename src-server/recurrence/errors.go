package recurrence

import "errors"

var (
	// ErrInvalidRule is returned when a rule is rejected at construction time.
	ErrInvalidRule = errors.New("invalid recurrence rule")
	// ErrInvalidWindow is returned for a window whose start is after its end.
	ErrInvalidWindow = errors.New("invalid window")
)
