// Package service ties the classifier, the funnel analysis and the
// store together. The CLI, HTTP server and inbox watcher all go
// through a Service.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/suykerbuyk/flywheel/internal/archive"
	"github.com/suykerbuyk/flywheel/internal/friction"
	"github.com/suykerbuyk/flywheel/internal/funnel"
	"github.com/suykerbuyk/flywheel/internal/ident"
	"github.com/suykerbuyk/flywheel/internal/logging"
	"github.com/suykerbuyk/flywheel/internal/store"
	"github.com/suykerbuyk/flywheel/internal/telemetry"
)

// Service is safe for concurrent use.
type Service struct {
	store      *store.Store
	classifier *friction.Classifier
	log        *slog.Logger
	now        func() time.Time
}

// New returns a Service. A nil classifier means friction.Default and a
// nil logger discards output.
func New(st *store.Store, c *friction.Classifier, log *slog.Logger) *Service {
	if c == nil {
		c = friction.Default()
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Service{store: st, classifier: c, log: log, now: time.Now}
}

// Store returns the underlying store.
func (s *Service) Store() *store.Store {
	return s.store
}

// Verdict is a classification together with the prioritizer's
// assessment of its type.
type Verdict struct {
	Classification friction.Classification `json:"classification"`
	Assessment     friction.Assessment     `json:"assessment"`
}

// Classify classifies description without storing anything.
func (s *Service) Classify(description string) Verdict {
	c := s.classifier.Classify(description)
	telemetry.Classifications.WithLabelValues(string(c.Type)).Inc()
	return Verdict{Classification: c, Assessment: friction.Prioritize(c.Type)}
}

// AddFriction classifies, prioritizes and stores a new friction.
func (s *Service) AddFriction(ctx context.Context, stage friction.Stage, description string) (friction.Record, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return friction.Record{}, invalid("description", "must not be empty", nil)
	}
	if _, err := friction.ParseStage(string(stage)); err != nil {
		return friction.Record{}, invalid("stage", err.Error(), err)
	}

	id, err := ident.NewFrictionID()
	if err != nil {
		return friction.Record{}, err
	}

	r := friction.Build(id, stage, description, s.classifier)
	r.CreatedAt = s.now().UTC()
	if err := s.store.SaveFriction(ctx, r); err != nil {
		return friction.Record{}, err
	}

	telemetry.Classifications.WithLabelValues(string(r.Type)).Inc()
	telemetry.FrictionsStored.WithLabelValues(string(r.Stage), string(r.Priority)).Inc()
	s.log.Info("stored friction", "id", r.ID, "stage", r.Stage, "type", r.Type, "priority", r.Priority)
	return r, nil
}

// Friction returns a stored friction.
func (s *Service) Friction(ctx context.Context, id string) (friction.Record, error) {
	return s.store.GetFriction(ctx, id)
}

// Frictions lists stored frictions. An empty stage lists all of them;
// an unknown stage is a ValidationError.
func (s *Service) Frictions(ctx context.Context, stage friction.Stage) ([]friction.Record, error) {
	if stage != "" {
		if _, err := friction.ParseStage(string(stage)); err != nil {
			return nil, invalid("stage", err.Error(), err)
		}
	}
	return s.store.ListFrictions(ctx, stage)
}

// RemoveFriction deletes a stored friction.
func (s *Service) RemoveFriction(ctx context.Context, id string) error {
	if err := s.store.DeleteFriction(ctx, id); err != nil {
		return err
	}
	s.log.Info("removed friction", "id", id)
	return nil
}

// SaveAnalysis validates and stores a funnel period. An empty ID is
// assigned; CreatedAt is always set to now.
func (s *Service) SaveAnalysis(ctx context.Context, a funnel.Analysis) (funnel.Analysis, error) {
	a.Label = strings.TrimSpace(a.Label)
	if err := a.Validate(); err != nil {
		return funnel.Analysis{}, invalid("analysis", err.Error(), err)
	}

	if a.ID == "" {
		id, err := ident.NewAnalysisID()
		if err != nil {
			return funnel.Analysis{}, err
		}
		a.ID = id
	}
	a.CreatedAt = s.now().UTC()

	if err := s.store.SaveAnalysis(ctx, a); err != nil {
		return funnel.Analysis{}, err
	}

	telemetry.AnalysesStored.Inc()
	s.log.Info("saved analysis", "id", a.ID, "label", a.Label,
		"conversion", fmt.Sprintf("%.1f%%", a.Metrics.OverallConversion()))
	return a, nil
}

// Analysis returns a saved analysis.
func (s *Service) Analysis(ctx context.Context, id string) (funnel.Analysis, error) {
	return s.store.GetAnalysis(ctx, id)
}

// Analyses lists saved analyses newest first.
func (s *Service) Analyses(ctx context.Context) ([]funnel.Analysis, error) {
	return s.store.ListAnalyses(ctx)
}

// RemoveAnalysis deletes a saved analysis.
func (s *Service) RemoveAnalysis(ctx context.Context, id string) error {
	if err := s.store.DeleteAnalysis(ctx, id); err != nil {
		return err
	}
	s.log.Info("removed analysis", "id", id)
	return nil
}

// PeriodComparison is a comparison between two saved analyses.
type PeriodComparison struct {
	Current    funnel.Analysis   `json:"current"`
	Previous   funnel.Analysis   `json:"previous"`
	Comparison funnel.Comparison `json:"comparison"`
}

// CompareAnalyses compares two saved analyses.
func (s *Service) CompareAnalyses(ctx context.Context, currentID, previousID string) (PeriodComparison, error) {
	if currentID == "" || previousID == "" {
		return PeriodComparison{}, invalid("compare", "both current and previous IDs are required", nil)
	}
	cur, err := s.store.GetAnalysis(ctx, currentID)
	if err != nil {
		return PeriodComparison{}, err
	}
	prev, err := s.store.GetAnalysis(ctx, previousID)
	if err != nil {
		return PeriodComparison{}, err
	}
	return PeriodComparison{
		Current:    cur,
		Previous:   prev,
		Comparison: funnel.Compare(cur.Metrics, prev.Metrics),
	}, nil
}

// Transfer counts what an export or import moved.
type Transfer struct {
	Path      string `json:"path"`
	Frictions int    `json:"frictions"`
	Analyses  int    `json:"analyses"`
}

// Export writes every stored friction and analysis to path.
func (s *Service) Export(ctx context.Context, path string) (Transfer, error) {
	records, err := s.store.ListFrictions(ctx, "")
	if err != nil {
		return Transfer{}, err
	}
	analyses, err := s.store.ListAnalyses(ctx)
	if err != nil {
		return Transfer{}, err
	}

	b := archive.Bundle{ExportedAt: s.now().UTC(), Frictions: records, Analyses: analyses}
	if err := archive.ExportFile(path, b); err != nil {
		return Transfer{}, fmt.Errorf("export %s: %w", path, err)
	}

	s.log.Info("exported", "path", path, "frictions", len(records), "analyses", len(analyses))
	return Transfer{Path: path, Frictions: len(records), Analyses: len(analyses)}, nil
}

// Import loads a bundle written by Export. Rows with an existing ID
// are replaced. Every record is checked before anything is written and
// the rows are saved in one transaction.
func (s *Service) Import(ctx context.Context, path string) (Transfer, error) {
	b, err := archive.ImportFile(path)
	if err != nil {
		return Transfer{}, fmt.Errorf("import %s: %w", path, err)
	}

	for _, r := range b.Frictions {
		if r.ID == "" {
			return Transfer{}, invalid("friction", "missing id", nil)
		}
		if err := r.Validate(); err != nil {
			return Transfer{}, invalid("friction "+r.ID, err.Error(), err)
		}
	}
	for _, a := range b.Analyses {
		if a.ID == "" {
			return Transfer{}, invalid("analysis", "missing id", nil)
		}
		if err := a.Validate(); err != nil {
			return Transfer{}, invalid("analysis "+a.ID, err.Error(), err)
		}
	}

	if err := s.store.SaveAll(ctx, b.Frictions, b.Analyses); err != nil {
		return Transfer{}, fmt.Errorf("import %s: %w", path, err)
	}

	s.log.Info("imported", "path", path, "frictions", len(b.Frictions), "analyses", len(b.Analyses))
	return Transfer{Path: path, Frictions: len(b.Frictions), Analyses: len(b.Analyses)}, nil
}
