package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/suykerbuyk/flywheel/internal/funnel"
)

type analysisRow struct {
	ID          string `db:"id"`
	Label       string `db:"label"`
	PeriodStart string `db:"period_start"`
	PeriodEnd   string `db:"period_end"`
	Attract     int    `db:"attract"`
	Engage      int    `db:"engage"`
	Delight     int    `db:"delight"`
	CreatedAt   string `db:"created_at"`
}

func toAnalysisRow(a funnel.Analysis) analysisRow {
	return analysisRow{
		ID:          a.ID,
		Label:       a.Label,
		PeriodStart: a.PeriodStart.Format(funnel.DateLayout),
		PeriodEnd:   a.PeriodEnd.Format(funnel.DateLayout),
		Attract:     a.Metrics.Attract,
		Engage:      a.Metrics.Engage,
		Delight:     a.Metrics.Delight,
		CreatedAt:   formatTime(a.CreatedAt),
	}
}

func (row analysisRow) analysis() (funnel.Analysis, error) {
	start, err := time.Parse(funnel.DateLayout, row.PeriodStart)
	if err != nil {
		return funnel.Analysis{}, fmt.Errorf("parse period_start for %s: %w", row.ID, err)
	}
	end, err := time.Parse(funnel.DateLayout, row.PeriodEnd)
	if err != nil {
		return funnel.Analysis{}, fmt.Errorf("parse period_end for %s: %w", row.ID, err)
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return funnel.Analysis{}, fmt.Errorf("parse created_at for %s: %w", row.ID, err)
	}
	return funnel.Analysis{
		ID:          row.ID,
		Label:       row.Label,
		PeriodStart: start,
		PeriodEnd:   end,
		Metrics: funnel.Metrics{
			Attract: row.Attract,
			Engage:  row.Engage,
			Delight: row.Delight,
		},
		CreatedAt: created,
	}, nil
}

const upsertAnalysis = `INSERT INTO analyses
	(id, label, period_start, period_end, attract, engage, delight, created_at)
	VALUES (:id, :label, :period_start, :period_end, :attract, :engage, :delight, :created_at)
	ON CONFLICT(id) DO UPDATE SET
		label = excluded.label,
		period_start = excluded.period_start,
		period_end = excluded.period_end,
		attract = excluded.attract,
		engage = excluded.engage,
		delight = excluded.delight,
		created_at = excluded.created_at`

// SaveAnalysis inserts a, replacing any row with the same ID.
// A zero CreatedAt is set to the current time.
func (s *Store) SaveAnalysis(ctx context.Context, a funnel.Analysis) error {
	return s.saveAnalysis(ctx, s.db, a)
}

func (s *Store) saveAnalysis(ctx context.Context, e namedExecer, a funnel.Analysis) error {
	if a.ID == "" {
		return errors.New("save analysis: empty id")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}

	if _, err := e.NamedExecContext(ctx, upsertAnalysis, toAnalysisRow(a)); err != nil {
		return fmt.Errorf("save analysis %s: %w", a.ID, err)
	}
	return nil
}

// GetAnalysis returns the analysis with the given ID.
func (s *Store) GetAnalysis(ctx context.Context, id string) (funnel.Analysis, error) {
	var row analysisRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM analyses WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return funnel.Analysis{}, fmt.Errorf("analysis %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return funnel.Analysis{}, fmt.Errorf("get analysis %s: %w", id, err)
	}
	return row.analysis()
}

// ListAnalyses returns saved analyses newest first.
func (s *Store) ListAnalyses(ctx context.Context) ([]funnel.Analysis, error) {
	var rows []analysisRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM analyses ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}

	list := make([]funnel.Analysis, 0, len(rows))
	for _, row := range rows {
		a, err := row.analysis()
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, nil
}

// DeleteAnalysis removes the analysis with the given ID.
func (s *Store) DeleteAnalysis(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete analysis %s: %w", id, err)
	}
	return requireAffected(res, "analysis", id)
}
