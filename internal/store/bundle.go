package store

import (
	"context"
	"fmt"

	"github.com/suykerbuyk/flywheel/internal/friction"
	"github.com/suykerbuyk/flywheel/internal/funnel"
)

// SaveAll upserts frictions and analyses in one transaction. Either
// every row is written or none is.
func (s *Store) SaveAll(ctx context.Context, records []friction.Record, analyses []funnel.Analysis) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	for _, r := range records {
		if err := s.saveFriction(ctx, tx, r); err != nil {
			return err
		}
	}
	for _, a := range analyses {
		if err := s.saveAnalysis(ctx, tx, a); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	return nil
}
