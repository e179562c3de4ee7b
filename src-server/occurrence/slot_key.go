package occurrence

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

const slotTimeFormat = "20060102T150405Z"

// SlotKey identifies an occurrence by its event and original start. It
// exists before any override does, so editors can address virtual
// instances.
type SlotKey struct {
	EventID string
	Start   time.Time
}

// NewSlotKey builds a key from calendar fields, interpreted in UTC.
func NewSlotKey(eventID string, year int, month time.Month, day, hour, minute, second int) SlotKey {
	return SlotKey{
		EventID: eventID,
		Start:   time.Date(year, month, day, hour, minute, second, 0, time.UTC),
	}
}

// Encode returns an opaque URL-safe token.
func (k SlotKey) Encode() string {
	raw := k.EventID + "_" + k.Start.UTC().Format(slotTimeFormat)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func (k SlotKey) String() string {
	return k.Encode()
}

// Fields returns the key as (event id, year, month, day, hour, minute,
// second) in UTC.
func (k SlotKey) Fields() (string, int, time.Month, int, int, int, int) {
	t := k.Start.UTC()
	return k.EventID, t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second()
}

// DecodeSlotKey parses a token produced by SlotKey.Encode.
func DecodeSlotKey(token string) (SlotKey, error) {
	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return SlotKey{}, fmt.Errorf("DecodeSlotKey: %w: %s", ErrInvalidSlotKey, err)
	}
	sep := strings.LastIndexByte(string(raw), '_')
	if sep <= 0 {
		return SlotKey{}, fmt.Errorf("DecodeSlotKey: missing separator: %w", ErrInvalidSlotKey)
	}
	start, err := time.Parse(slotTimeFormat, string(raw[sep+1:]))
	if err != nil {
		return SlotKey{}, fmt.Errorf("DecodeSlotKey: %w: %s", ErrInvalidSlotKey, err)
	}
	return SlotKey{EventID: string(raw[:sep]), Start: start}, nil
}
