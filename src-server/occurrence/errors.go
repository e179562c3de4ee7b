package occurrence

import "errors"

// ErrNotFound means the slot is not a candidate of the event's rule.
var ErrNotFound = errors.New("occurrence not found")

// ErrInvalidSlotKey means a slot key token could not be decoded.
var ErrInvalidSlotKey = errors.New("invalid slot key")

var ErrInvalidEvent = errors.New("invalid event")

var ErrInvalidOverride = errors.New("invalid override")
