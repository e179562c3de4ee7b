package model

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// ImportSource remembers the content hash of every imported file so an
// unchanged file is not imported twice.
type ImportSource struct {
	bun.BaseModel `bun:"table:import_sources"`

	Path       string `bun:"path,pk"`      // required
	Hash       string `bun:"hash,notnull"` // required
	ImportedAt int64  `bun:"imported_at,notnull"`
}

func (s *ImportSource) Upsert(ctx context.Context, db bun.IDB) error {
	switch {
	case s.Path == "":
		return fmt.Errorf("(*ImportSource).Upsert: path is blank")
	case s.Hash == "":
		return fmt.Errorf("(*ImportSource).Upsert: hash is blank")
	}
	if s.ImportedAt == 0 {
		s.ImportedAt = time.Now().UTC().Unix()
	}

	if _, err := db.NewInsert().
		Model(s).
		On("CONFLICT (path) DO UPDATE").
		Set("hash = EXCLUDED.hash").
		Set("imported_at = EXCLUDED.imported_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("(*ImportSource).Upsert: %w", err)
	}
	return nil
}
