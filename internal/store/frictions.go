package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/suykerbuyk/flywheel/internal/friction"
)

type frictionRow struct {
	ID          string `db:"id"`
	Stage       string `db:"stage"`
	Description string `db:"description"`
	Type        string `db:"type"`
	Priority    string `db:"priority"`
	Suggestions string `db:"suggestions"`
	Impact      string `db:"impact"`
	Difficulty  string `db:"difficulty"`
	CreatedAt   string `db:"created_at"`
}

func toFrictionRow(r friction.Record) (frictionRow, error) {
	suggestions := r.Suggestions
	if suggestions == nil {
		suggestions = []string{}
	}
	data, err := json.Marshal(suggestions)
	if err != nil {
		return frictionRow{}, fmt.Errorf("encode suggestions: %w", err)
	}
	return frictionRow{
		ID:          r.ID,
		Stage:       string(r.Stage),
		Description: r.Description,
		Type:        string(r.Type),
		Priority:    string(r.Priority),
		Suggestions: string(data),
		Impact:      string(r.Metadata.ImpactEstimate),
		Difficulty:  string(r.Metadata.DifficultyEstimate),
		CreatedAt:   formatTime(r.CreatedAt),
	}, nil
}

func (row frictionRow) record() (friction.Record, error) {
	var suggestions []string
	if err := json.Unmarshal([]byte(row.Suggestions), &suggestions); err != nil {
		return friction.Record{}, fmt.Errorf("decode suggestions for %s: %w", row.ID, err)
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return friction.Record{}, fmt.Errorf("parse created_at for %s: %w", row.ID, err)
	}
	return friction.Record{
		ID:          row.ID,
		Stage:       friction.Stage(row.Stage),
		Description: row.Description,
		Type:        friction.Type(row.Type),
		Priority:    friction.Level(row.Priority),
		Suggestions: suggestions,
		Metadata: friction.Metadata{
			ImpactEstimate:     friction.Level(row.Impact),
			DifficultyEstimate: friction.Level(row.Difficulty),
		},
		CreatedAt: created,
	}, nil
}

// namedExecer is satisfied by *sqlx.DB and *sqlx.Tx.
type namedExecer interface {
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
}

const upsertFriction = `INSERT INTO frictions
	(id, stage, description, type, priority, suggestions, impact, difficulty, created_at)
	VALUES (:id, :stage, :description, :type, :priority, :suggestions, :impact, :difficulty, :created_at)
	ON CONFLICT(id) DO UPDATE SET
		stage = excluded.stage,
		description = excluded.description,
		type = excluded.type,
		priority = excluded.priority,
		suggestions = excluded.suggestions,
		impact = excluded.impact,
		difficulty = excluded.difficulty,
		created_at = excluded.created_at`

// SaveFriction inserts r, replacing any row with the same ID.
// A zero CreatedAt is set to the current time.
func (s *Store) SaveFriction(ctx context.Context, r friction.Record) error {
	return s.saveFriction(ctx, s.db, r)
}

func (s *Store) saveFriction(ctx context.Context, e namedExecer, r friction.Record) error {
	if r.ID == "" {
		return errors.New("save friction: empty id")
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = s.now()
	}
	row, err := toFrictionRow(r)
	if err != nil {
		return fmt.Errorf("save friction %s: %w", r.ID, err)
	}

	if _, err := e.NamedExecContext(ctx, upsertFriction, row); err != nil {
		return fmt.Errorf("save friction %s: %w", r.ID, err)
	}
	return nil
}

// GetFriction returns the friction with the given ID.
func (s *Store) GetFriction(ctx context.Context, id string) (friction.Record, error) {
	var row frictionRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM frictions WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return friction.Record{}, fmt.Errorf("friction %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return friction.Record{}, fmt.Errorf("get friction %s: %w", id, err)
	}
	return row.record()
}

// ListFrictions returns stored frictions oldest first. An empty stage
// returns every stage.
func (s *Store) ListFrictions(ctx context.Context, stage friction.Stage) ([]friction.Record, error) {
	var rows []frictionRow
	var err error
	if stage == "" {
		err = s.db.SelectContext(ctx, &rows, `SELECT * FROM frictions ORDER BY created_at, id`)
	} else {
		err = s.db.SelectContext(ctx, &rows, `SELECT * FROM frictions WHERE stage = ? ORDER BY created_at, id`, string(stage))
	}
	if err != nil {
		return nil, fmt.Errorf("list frictions: %w", err)
	}

	records := make([]friction.Record, 0, len(rows))
	for _, row := range rows {
		r, err := row.record()
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

// DeleteFriction removes the friction with the given ID.
func (s *Store) DeleteFriction(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM frictions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete friction %s: %w", id, err)
	}
	return requireAffected(res, "friction", id)
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}
