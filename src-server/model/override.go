package model

import (
	"context"
	"fmt"
	"time"

	"schedule/src-server/occurrence"

	"github.com/uptrace/bun"
)

type Override struct {
	bun.BaseModel `bun:"table:overrides"`

	// event id + original start
	// - together they are the slot key of the occurrence
	// - original start never changes, even after a reschedule
	EventID       string `bun:"event_id,pk"`
	OriginalStart int64  `bun:"original_start,pk"`

	Title       string `bun:"title"`
	Description string `bun:"description"`

	StartDateUnixUTC int64 `bun:"start_date,notnull"` // required
	EndDateUnixUTC   int64 `bun:"end_date,notnull"`   // required
	Cancelled        bool  `bun:"cancelled,notnull"`

	CreatedAt int64 `bun:"created_at,notnull"`
	UpdatedAt int64 `bun:"updated_at,notnull"`

	Event *Event `bun:"rel:belongs-to,join:event_id=id"`
}

// Upsert writes the override in one statement, so concurrent writers to the
// same slot resolve to the last one.
func (o *Override) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case o.EventID == "":
		return fmt.Errorf("(*Override).Upsert: event id is blank")
	case o.StartDateUnixUTC > o.EndDateUnixUTC:
		return fmt.Errorf("(*Override).Upsert: start date must be before end date")
	case o.UpdatedAt != 0 && o.UpdatedAt < o.CreatedAt:
		return fmt.Errorf("(*Override).Upsert: updated at must be after created at")
	}
	now := time.Now().UTC().Unix()
	if o.CreatedAt == 0 {
		o.CreatedAt = now
	}
	if o.UpdatedAt == 0 {
		o.UpdatedAt = now
	}

	eventExists, err := db.NewSelect().
		Model((*Event)(nil)).
		Where("id = ?", o.EventID).
		Exists(ctx)
	if err != nil {
		return fmt.Errorf("(*Override).Upsert: %w", err)
	}
	if !eventExists {
		return fmt.Errorf("(*Override).Upsert: event %s: %w", o.EventID, occurrence.ErrNotFound)
	}

	if _, err := db.NewInsert().
		Model(o).
		On("CONFLICT (event_id, original_start) DO UPDATE").
		Set("title = EXCLUDED.title").
		Set("description = EXCLUDED.description").
		Set("start_date = EXCLUDED.start_date").
		Set("end_date = EXCLUDED.end_date").
		Set("cancelled = EXCLUDED.cancelled").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*Override).Upsert: %w", err)
	}

	return nil
}

func (o *Override) ToOccurrenceOverride() occurrence.Override {
	return occurrence.Override{
		EventID:       o.EventID,
		OriginalStart: time.Unix(o.OriginalStart, 0).UTC(),
		Start:         time.Unix(o.StartDateUnixUTC, 0).UTC(),
		End:           time.Unix(o.EndDateUnixUTC, 0).UTC(),
		Title:         o.Title,
		Description:   o.Description,
		Cancelled:     o.Cancelled,
		CreatedAt:     time.Unix(o.CreatedAt, 0).UTC(),
		UpdatedAt:     time.Unix(o.UpdatedAt, 0).UTC(),
	}
}

func (o *Override) FromOccurrenceOverride(ov occurrence.Override) {
	o.EventID = ov.EventID
	o.OriginalStart = ov.OriginalStart.Unix()
	o.StartDateUnixUTC = ov.Start.Unix()
	o.EndDateUnixUTC = ov.End.Unix()
	o.Title = ov.Title
	o.Description = ov.Description
	o.Cancelled = ov.Cancelled
	o.CreatedAt, o.UpdatedAt = 0, 0
	if !ov.CreatedAt.IsZero() {
		o.CreatedAt = ov.CreatedAt.Unix()
	}
	if !ov.UpdatedAt.IsZero() {
		o.UpdatedAt = ov.UpdatedAt.Unix()
	}
}
