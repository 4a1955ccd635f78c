package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suykerbuyk/flywheel/internal/friction"
	"github.com/suykerbuyk/flywheel/internal/funnel"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "flywheel.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// stepClock returns a clock that advances one second per call.
func stepClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(time.Second)
		return t
	}
}

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestOpen_AppliesMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flywheel.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	v, err := s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())

	// reopening an up-to-date database is a no-op
	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	v, err = s.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
}

func TestFriction_RoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	r := friction.Build("FR-0000000001", friction.StageRetention, "Users don't come back after the first purchase", nil)
	r.CreatedAt = epoch.Add(123 * time.Nanosecond)
	require.NoError(t, s.SaveFriction(ctx, r))

	got, err := s.GetFriction(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, r.CreatedAt.Equal(got.CreatedAt))
	got.CreatedAt = r.CreatedAt
	assert.Equal(t, r, got)
}

func TestSaveFriction_DefaultsCreatedAt(t *testing.T) {
	s := openTest(t)
	s.now = stepClock(epoch)
	ctx := context.Background()

	require.NoError(t, s.SaveFriction(ctx, friction.Record{ID: "FR-a", Stage: friction.StageReferral}))
	got, err := s.GetFriction(ctx, "FR-a")
	require.NoError(t, err)
	assert.True(t, epoch.Equal(got.CreatedAt))
	assert.Equal(t, []string{}, got.Suggestions)
}

func TestSaveFriction_RejectsEmptyID(t *testing.T) {
	s := openTest(t)
	assert.Error(t, s.SaveFriction(context.Background(), friction.Record{}))
}

func TestSaveFriction_Replaces(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	r := friction.Build("FR-1", friction.StageAcquisition, "lots of traffic, low conversion", nil)
	require.NoError(t, s.SaveFriction(ctx, r))

	r2 := friction.Build("FR-1", friction.StageAcquisition, "people share nothing", nil)
	require.NoError(t, s.SaveFriction(ctx, r2))

	got, err := s.GetFriction(ctx, "FR-1")
	require.NoError(t, err)
	assert.Equal(t, "people share nothing", got.Description)
	assert.Equal(t, friction.TypeUnclassified, got.Type)

	c, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Frictions)
}

func TestListFrictions(t *testing.T) {
	s := openTest(t)
	s.now = stepClock(epoch)
	ctx := context.Background()

	for _, f := range []struct {
		id    string
		stage friction.Stage
		desc  string
	}{
		{"FR-1", friction.StageAcquisition, "Many visits but people don't sign up"},
		{"FR-2", friction.StageRetention, "customers stop using the app"},
		{"FR-3", friction.StageAcquisition, "traffic is fine"},
	} {
		require.NoError(t, s.SaveFriction(ctx, friction.Build(f.id, f.stage, f.desc, nil)))
	}

	all, err := s.ListFrictions(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "FR-1", all[0].ID)
	assert.Equal(t, "FR-3", all[2].ID)

	acq, err := s.ListFrictions(ctx, friction.StageAcquisition)
	require.NoError(t, err)
	require.Len(t, acq, 2)
	for _, r := range acq {
		assert.Equal(t, friction.StageAcquisition, r.Stage)
	}

	none, err := s.ListFrictions(ctx, friction.StageReferral)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFriction_NotFound(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	_, err := s.GetFriction(ctx, "FR-missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteFriction(ctx, "FR-missing"), ErrNotFound)
}

func TestDeleteFriction(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	require.NoError(t, s.SaveFriction(ctx, friction.Build("FR-1", friction.StageReferral, "nobody refers us", nil)))
	require.NoError(t, s.DeleteFriction(ctx, "FR-1"))

	_, err := s.GetFriction(ctx, "FR-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func day(s string) time.Time {
	t, err := time.Parse(funnel.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestAnalysis_RoundTrip(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	a := funnel.Analysis{
		ID:          "AN-1",
		Label:       "March 2026",
		PeriodStart: day("2026-03-01"),
		PeriodEnd:   day("2026-03-31"),
		Metrics:     funnel.Metrics{Attract: 1200, Engage: 300, Delight: 90},
		CreatedAt:   epoch,
	}
	require.NoError(t, s.SaveAnalysis(ctx, a))

	got, err := s.GetAnalysis(ctx, "AN-1")
	require.NoError(t, err)
	assert.Equal(t, a.Label, got.Label)
	assert.Equal(t, a.Metrics, got.Metrics)
	assert.True(t, a.PeriodStart.Equal(got.PeriodStart))
	assert.True(t, a.PeriodEnd.Equal(got.PeriodEnd))
	assert.True(t, a.CreatedAt.Equal(got.CreatedAt))
}

func TestListAnalyses_NewestFirst(t *testing.T) {
	s := openTest(t)
	s.now = stepClock(epoch)
	ctx := context.Background()

	for _, id := range []string{"AN-1", "AN-2", "AN-3"} {
		require.NoError(t, s.SaveAnalysis(ctx, funnel.Analysis{
			ID: id, Label: id, PeriodStart: day("2026-01-01"), PeriodEnd: day("2026-01-31"),
		}))
	}

	list, err := s.ListAnalyses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"AN-3", "AN-2", "AN-1"}, []string{list[0].ID, list[1].ID, list[2].ID})
}

func TestSaveAnalysis_RejectsNegativeCounts(t *testing.T) {
	s := openTest(t)
	err := s.SaveAnalysis(context.Background(), funnel.Analysis{
		ID: "AN-1", Label: "bad", PeriodStart: day("2026-01-01"), PeriodEnd: day("2026-01-02"),
		Metrics: funnel.Metrics{Attract: -1},
	})
	assert.Error(t, err)
}

func TestAnalysis_NotFound(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	_, err := s.GetAnalysis(ctx, "AN-missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteAnalysis(ctx, "AN-missing"), ErrNotFound)
}

func TestCounts(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	c, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{}, c)

	require.NoError(t, s.SaveFriction(ctx, friction.Build("FR-1", friction.StageReferral, "x", nil)))
	require.NoError(t, s.SaveAnalysis(ctx, funnel.Analysis{ID: "AN-1", Label: "x", PeriodStart: day("2026-01-01"), PeriodEnd: day("2026-01-01")}))
	require.NoError(t, s.SaveAnalysis(ctx, funnel.Analysis{ID: "AN-2", Label: "y", PeriodStart: day("2026-01-01"), PeriodEnd: day("2026-01-01")}))

	c, err = s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Frictions: 1, Analyses: 2}, c)
}

func TestSaveAll(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	records := []friction.Record{
		friction.Build("FR-1", friction.StageReferral, "no referrals", nil),
		friction.Build("FR-2", friction.StageRetention, "they never come back", nil),
	}
	analyses := []funnel.Analysis{{ID: "AN-1", Label: "Q1", PeriodStart: day("2026-01-01"), PeriodEnd: day("2026-03-31")}}
	require.NoError(t, s.SaveAll(ctx, records, analyses))

	c, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Frictions: 2, Analyses: 1}, c)
}

func TestSaveAll_RollsBackOnFailure(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	records := []friction.Record{friction.Build("FR-1", friction.StageReferral, "no referrals", nil)}
	analyses := []funnel.Analysis{
		{ID: "AN-1", Label: "ok", PeriodStart: day("2026-01-01"), PeriodEnd: day("2026-01-31")},
		{ID: "AN-2", Label: "bad", PeriodStart: day("2026-02-01"), PeriodEnd: day("2026-02-28"), Metrics: funnel.Metrics{Engage: -1}},
	}
	require.Error(t, s.SaveAll(ctx, records, analyses))

	c, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{}, c)
}
