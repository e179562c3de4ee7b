// Package boltdb stores overrides in a bbolt file: one bucket per event
// under a root bucket, keyed by the big-endian original start.
package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"schedule/src-server/occurrence"
	"schedule/src-server/recurrence"

	bolt "go.etcd.io/bbolt"
)

const rootBucket = "overrides"

type Config struct {
	Path    string
	Timeout time.Duration
}

type Overrides struct {
	d    *bolt.DB
	root []byte
}

// record is the stored value; times are unix seconds like the sqlite rows.
type record struct {
	Start       int64  `json:"start"`
	End         int64  `json:"end"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Cancelled   bool   `json:"cancelled"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

// Open opens (creating if needed) the bbolt file at c.Path.
func Open(c Config) (*Overrides, error) {
	timeout := c.Timeout
	if timeout == 0 {
		timeout = time.Second
	}
	d, err := bolt.Open(c.Path, 0600, &bolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("boltdb.Open: could not open db %s: %w", c.Path, err)
	}
	r := &Overrides{d: d, root: []byte(rootBucket)}
	if err := d.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(r.root); err != nil {
			return fmt.Errorf("unable to create root bucket %s: %w", r.root, err)
		}
		return nil
	}); err != nil {
		d.Close()
		return nil, fmt.Errorf("boltdb.Open: %w", err)
	}
	return r, nil
}

func (r *Overrides) Close() error {
	if r.d == nil {
		return nil
	}
	return r.d.Close()
}

// slotKey flips the sign bit so pre-1970 slots still sort first.
func slotKey(t time.Time) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(t.Unix())^(1<<63))
	return k
}

func slotTime(k []byte) time.Time {
	return time.Unix(int64(binary.BigEndian.Uint64(k)^(1<<63)), 0).UTC()
}

func toOverride(eventID string, k, raw []byte) (occurrence.Override, error) {
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return occurrence.Override{}, err
	}
	return occurrence.Override{
		EventID:       eventID,
		OriginalStart: slotTime(k),
		Start:         time.Unix(rec.Start, 0).UTC(),
		End:           time.Unix(rec.End, 0).UTC(),
		Title:         rec.Title,
		Description:   rec.Description,
		Cancelled:     rec.Cancelled,
		CreatedAt:     time.Unix(rec.CreatedAt, 0).UTC(),
		UpdatedAt:     time.Unix(rec.UpdatedAt, 0).UTC(),
	}, nil
}

func (r *Overrides) ListOverrides(ctx context.Context, eventID string, window recurrence.Window) ([]occurrence.Override, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []occurrence.Override
	err := r.d.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(r.root).Bucket([]byte(eventID))
		if b == nil {
			return nil
		}
		// moved overrides can sit anywhere, so the whole event bucket is read
		return b.ForEach(func(k, raw []byte) error {
			o, err := toOverride(eventID, k, raw)
			if err != nil {
				return fmt.Errorf("slot %s: %w", slotTime(k).Format(time.RFC3339), err)
			}
			if window.Contains(o.OriginalStart) || window.Overlaps(o.Start, o.End) {
				out = append(out, o)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("(*Overrides).ListOverrides: %w", err)
	}
	return out, nil
}

func (r *Overrides) GetOverride(ctx context.Context, key occurrence.SlotKey) (occurrence.Override, bool, error) {
	if err := ctx.Err(); err != nil {
		return occurrence.Override{}, false, err
	}
	var (
		o     occurrence.Override
		found bool
	)
	err := r.d.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(r.root).Bucket([]byte(key.EventID))
		if b == nil {
			return nil
		}
		k := slotKey(key.Start)
		raw := b.Get(k)
		if raw == nil {
			return nil
		}
		var err error
		o, err = toOverride(key.EventID, k, raw)
		found = err == nil
		return err
	})
	if err != nil {
		return occurrence.Override{}, false, fmt.Errorf("(*Overrides).GetOverride: %w", err)
	}
	return o, found, nil
}

// SaveOverride replaces the slot's record inside a single write
// transaction.
func (r *Overrides) SaveOverride(ctx context.Context, o occurrence.Override) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch {
	case o.EventID == "":
		return fmt.Errorf("(*Overrides).SaveOverride: event id is blank")
	case o.Start.After(o.End):
		return fmt.Errorf("(*Overrides).SaveOverride: start date must be before end date")
	}
	raw, err := json.Marshal(record{
		Start:       o.Start.Unix(),
		End:         o.End.Unix(),
		Title:       o.Title,
		Description: o.Description,
		Cancelled:   o.Cancelled,
		CreatedAt:   o.CreatedAt.Unix(),
		UpdatedAt:   o.UpdatedAt.Unix(),
	})
	if err != nil {
		return fmt.Errorf("(*Overrides).SaveOverride: %w", err)
	}
	if err := r.d.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(r.root).CreateBucketIfNotExists([]byte(o.EventID))
		if err != nil {
			return err
		}
		return b.Put(slotKey(o.OriginalStart), raw)
	}); err != nil {
		return fmt.Errorf("(*Overrides).SaveOverride: %w", err)
	}
	return nil
}

// DeleteOverrides drops the event's bucket.
func (r *Overrides) DeleteOverrides(ctx context.Context, eventID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := r.d.Update(func(tx *bolt.Tx) error {
		err := tx.Bucket(r.root).DeleteBucket([]byte(eventID))
		if err == bolt.ErrBucketNotFound {
			return nil
		}
		return err
	}); err != nil {
		return fmt.Errorf("(*Overrides).DeleteOverrides: %w", err)
	}
	return nil
}
