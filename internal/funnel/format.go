package funnel

import (
	"fmt"
	"strings"
)

// Format renders a period's metrics and friction points as aligned
// terminal output. title may be empty.
func Format(m Metrics, title string) string {
	var b strings.Builder

	if title != "" {
		fmt.Fprintf(&b, "Flywheel analysis: %s\n", title)
	} else {
		b.WriteString("Flywheel analysis\n")
	}

	b.WriteString("\nMetrics\n")
	fmt.Fprintf(&b, "  %-20s %s\n", "attract", formatInt(m.Attract))
	fmt.Fprintf(&b, "  %-20s %s\n", "engage", formatInt(m.Engage))
	fmt.Fprintf(&b, "  %-20s %s\n", "delight", formatInt(m.Delight))

	b.WriteString("\nConversion\n")
	fmt.Fprintf(&b, "  %-20s %s\n", "attract → delight", formatPercent(m.OverallConversion()))
	fmt.Fprintf(&b, "  %-20s %s\n", "attract → engage", formatPercent(m.EngageRate()))
	fmt.Fprintf(&b, "  %-20s %s\n", "engage → delight", formatPercent(m.DelightRate()))

	b.WriteString("\nFriction points\n")
	points := Points(m)
	if len(points) == 0 {
		b.WriteString("  Not enough data. Enter metrics for each flywheel stage to see the friction analysis.\n")
		return b.String()
	}
	for _, p := range points {
		fmt.Fprintf(&b, "  %-6s %-18s %5.1f%% loss\n", p.Severity, p.Transition, p.DropRate)
		fmt.Fprintf(&b, "         %s\n", p.Recommendation)
	}

	return b.String()
}

// FormatComparison renders a period-over-period comparison.
func FormatComparison(c Comparison, currentLabel, previousLabel string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Period comparison: %s vs %s\n\n", currentLabel, previousLabel)

	for _, ch := range c.Changes {
		arrow := "="
		switch ch.Trend() {
		case 1:
			arrow = "↑"
		case -1:
			arrow = "↓"
		}
		fmt.Fprintf(&b, "  %s %-8s %10s → %-10s %+d (%+.1f%%)\n",
			arrow, ch.Name, formatInt(ch.Previous), formatInt(ch.Current), ch.Delta, ch.DeltaPercent)
	}

	b.WriteString("\nOverall conversion\n")
	fmt.Fprintf(&b, "  %-20s %s\n", "previous", formatPercent(c.PreviousConversion))
	fmt.Fprintf(&b, "  %-20s %s\n", "current", formatPercent(c.CurrentConversion))

	return b.String()
}

// FormatAnalyses renders the saved-period list, newest first as given.
func FormatAnalyses(list []Analysis) string {
	var b strings.Builder

	b.WriteString("Saved periods\n\n")
	if len(list) == 0 {
		b.WriteString("  No saved periods. Save your first analysis with `fw period save`.\n")
		return b.String()
	}

	for _, a := range list {
		fmt.Fprintf(&b, "  %s  %-24s %s – %s  A:%s E:%s D:%s  (%s)\n",
			a.ID, a.Label,
			a.PeriodStart.Format(DateLayout), a.PeriodEnd.Format(DateLayout),
			formatInt(a.Metrics.Attract), formatInt(a.Metrics.Engage), formatInt(a.Metrics.Delight),
			formatPercent(a.Metrics.OverallConversion()))
	}

	return b.String()
}

func formatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f)
}

// formatInt formats an integer with comma separators.
func formatInt(n int) string {
	if n < 0 {
		return "-" + formatInt(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var result []byte
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}
	return string(result)
}
