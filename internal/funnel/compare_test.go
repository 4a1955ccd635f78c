package funnel

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompare(t *testing.T) {
	current := Metrics{Attract: 1200, Engage: 300, Delight: 90}
	previous := Metrics{Attract: 1000, Engage: 400, Delight: 90}

	c := Compare(current, previous)
	require.Len(t, c.Changes, 3)

	attract := c.Changes[0]
	assert.Equal(t, "Attract", attract.Name)
	assert.Equal(t, 200, attract.Delta)
	assert.InDelta(t, 20.0, attract.DeltaPercent, 1e-9)
	assert.Equal(t, 1, attract.Trend())

	engage := c.Changes[1]
	assert.Equal(t, -100, engage.Delta)
	assert.InDelta(t, -25.0, engage.DeltaPercent, 1e-9)
	assert.Equal(t, -1, engage.Trend())

	delight := c.Changes[2]
	assert.Zero(t, delight.Delta)
	assert.Zero(t, delight.DeltaPercent)
	assert.Equal(t, 0, delight.Trend())

	assert.InDelta(t, 9.0, c.PreviousConversion, 1e-9)
	assert.InDelta(t, 7.5, c.CurrentConversion, 1e-9)
}

func TestCompare_EmptyPrevious(t *testing.T) {
	c := Compare(Metrics{Attract: 50}, Metrics{})

	assert.Equal(t, 50, c.Changes[0].Delta)
	assert.Equal(t, 100.0, c.Changes[0].DeltaPercent)

	// nothing before, nothing now
	assert.Zero(t, c.Changes[1].Delta)
	assert.Zero(t, c.Changes[1].DeltaPercent)
	assert.Zero(t, c.PreviousConversion)
}

func TestFormat(t *testing.T) {
	out := Format(Metrics{Attract: 12000, Engage: 3000, Delight: 600}, "Q1")

	assert.True(t, strings.HasPrefix(out, "Flywheel analysis: Q1\n"))
	assert.Contains(t, out, "12,000")
	assert.Contains(t, out, "5.0%")
	assert.Contains(t, out, "high   Attract → Engage")
	assert.Contains(t, out, "75.0% loss")
	assert.Contains(t, out, "Critical loss between attraction and engagement")
}

func TestFormat_NoData(t *testing.T) {
	out := Format(Metrics{}, "")
	assert.Contains(t, out, "Not enough data")
}

func TestFormatComparison(t *testing.T) {
	c := Compare(Metrics{Attract: 1200, Engage: 300, Delight: 90}, Metrics{Attract: 1000, Engage: 400, Delight: 90})
	out := FormatComparison(c, "April", "March")

	assert.Contains(t, out, "Period comparison: April vs March")
	assert.Contains(t, out, "↑ Attract")
	assert.Contains(t, out, "+200 (+20.0%)")
	assert.Contains(t, out, "↓ Engage")
	assert.Contains(t, out, "-100 (-25.0%)")
	assert.Contains(t, out, "= Delight")
}

func TestFormatAnalyses(t *testing.T) {
	assert.Contains(t, FormatAnalyses(nil), "No saved periods")

	out := FormatAnalyses([]Analysis{{
		ID:          "AN-1",
		Label:       "March",
		PeriodStart: day("2026-03-01"),
		PeriodEnd:   day("2026-03-31"),
		Metrics:     Metrics{Attract: 1000, Engage: 100, Delight: 10},
	}})
	assert.Contains(t, out, "AN-1")
	assert.Contains(t, out, "2026-03-01 – 2026-03-31")
	assert.Contains(t, out, "A:1,000")
	assert.Contains(t, out, "(1.0%)")
}

func TestFormatInt(t *testing.T) {
	assert.Equal(t, "0", formatInt(0))
	assert.Equal(t, "999", formatInt(999))
	assert.Equal(t, "1,000", formatInt(1000))
	assert.Equal(t, "1,234,567", formatInt(1234567))
	assert.Equal(t, "-1,500", formatInt(-1500))
}
