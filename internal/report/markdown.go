// Package report renders a saved funnel period and the logged
// frictions as a markdown document with YAML frontmatter.
package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/suykerbuyk/flywheel/internal/friction"
	"github.com/suykerbuyk/flywheel/internal/funnel"
)

// Data holds everything needed to render a report.
type Data struct {
	Analysis  funnel.Analysis
	Previous  *funnel.Analysis // optional period to compare against
	Frictions []friction.Record
	Generated time.Time
	Version   string
}

// Markdown renders the report.
func Markdown(d Data) string {
	var b strings.Builder
	a := d.Analysis
	m := a.Metrics

	// Frontmatter
	b.WriteString("---\n")
	b.WriteString("type: flywheel-report\n")
	b.WriteString(fmt.Sprintf("analysis_id: %s\n", a.ID))
	b.WriteString(fmt.Sprintf("label: \"%s\"\n", escapeYAML(a.Label)))
	b.WriteString(fmt.Sprintf("period_start: %s\n", a.PeriodStart.Format(funnel.DateLayout)))
	b.WriteString(fmt.Sprintf("period_end: %s\n", a.PeriodEnd.Format(funnel.DateLayout)))
	b.WriteString(fmt.Sprintf("attract: %d\n", m.Attract))
	b.WriteString(fmt.Sprintf("engage: %d\n", m.Engage))
	b.WriteString(fmt.Sprintf("delight: %d\n", m.Delight))
	b.WriteString(fmt.Sprintf("conversion: %.1f\n", m.OverallConversion()))
	b.WriteString(fmt.Sprintf("frictions: %d\n", len(d.Frictions)))
	if d.Previous != nil {
		b.WriteString(fmt.Sprintf("previous: %s\n", d.Previous.ID))
	}
	if !d.Generated.IsZero() {
		b.WriteString(fmt.Sprintf("generated: %s\n", d.Generated.UTC().Format(time.RFC3339)))
	}
	b.WriteString("tags: [flywheel]\n")
	b.WriteString("---\n\n")

	// Title
	b.WriteString(fmt.Sprintf("# Flywheel report: %s\n\n", a.Label))
	b.WriteString(fmt.Sprintf("%s to %s (%d days)\n\n",
		a.PeriodStart.Format(funnel.DateLayout), a.PeriodEnd.Format(funnel.DateLayout), a.Days()))

	// Metrics
	b.WriteString("## Metrics\n\n")
	b.WriteString("| Stage | Count | Rate |\n")
	b.WriteString("|-------|-------|------|\n")
	b.WriteString(fmt.Sprintf("| Attract | %d | |\n", m.Attract))
	b.WriteString(fmt.Sprintf("| Engage | %d | %.1f%% of attract |\n", m.Engage, m.EngageRate()))
	b.WriteString(fmt.Sprintf("| Delight | %d | %.1f%% of engage |\n", m.Delight, m.DelightRate()))
	b.WriteString(fmt.Sprintf("\n**Overall conversion: %.1f%%**\n\n", m.OverallConversion()))

	// Friction points
	b.WriteString("## Friction Points\n\n")
	points := funnel.Points(m)
	if len(points) == 0 {
		b.WriteString("Not enough data to detect friction points.\n\n")
	}
	for _, p := range points {
		b.WriteString(fmt.Sprintf("- **%s** (%s, %.1f%% loss): %s\n",
			p.Transition, p.Severity, p.DropRate, p.Recommendation))
	}
	if len(points) > 0 {
		b.WriteString("\n")
	}

	// Comparison
	if d.Previous != nil {
		c := funnel.Compare(m, d.Previous.Metrics)
		b.WriteString(fmt.Sprintf("## Compared to %s\n\n", d.Previous.Label))
		b.WriteString("| Metric | Previous | Current | Change |\n")
		b.WriteString("|--------|----------|---------|--------|\n")
		for _, ch := range c.Changes {
			b.WriteString(fmt.Sprintf("| %s | %d | %d | %+d (%+.1f%%) |\n",
				ch.Name, ch.Previous, ch.Current, ch.Delta, ch.DeltaPercent))
		}
		b.WriteString(fmt.Sprintf("\nConversion moved from %.1f%% to %.1f%%.\n\n", c.PreviousConversion, c.CurrentConversion))
	}

	// Frictions
	if len(d.Frictions) > 0 {
		records := append([]friction.Record(nil), d.Frictions...)
		friction.SortByPriority(records)

		b.WriteString("## Frictions\n\n")
		b.WriteString("| Stage | Frictions | High priority | Focus |\n")
		b.WriteString("|-------|-----------|---------------|-------|\n")
		for _, s := range friction.Summarize(records) {
			b.WriteString(fmt.Sprintf("| %s | %d | %d | %s |\n",
				friction.StageLabel(s.Stage), s.Total, s.High, friction.TypeLabel(s.TopFocus)))
		}
		b.WriteString("\n")

		for _, r := range records {
			b.WriteString(fmt.Sprintf("### %s: %s\n\n", friction.StageLabel(r.Stage), oneLine(r.Description)))
			b.WriteString(fmt.Sprintf("- Type: %s\n", friction.TypeLabel(r.Type)))
			b.WriteString(fmt.Sprintf("- Priority: %s\n", friction.PriorityLabel(r.Priority)))
			b.WriteString(fmt.Sprintf("- %s, %s\n", friction.ImpactLabel(r.Metadata.ImpactEstimate), friction.DifficultyLabel(r.Metadata.DifficultyEstimate)))
			if len(r.Suggestions) > 0 {
				b.WriteString("\n")
				for _, s := range r.Suggestions {
					b.WriteString(fmt.Sprintf("- [ ] %s\n", s))
				}
			}
			b.WriteString("\n")
		}
	}

	// Footer
	b.WriteString("---\n")
	if d.Version != "" {
		b.WriteString(fmt.Sprintf("*fw %s*\n", d.Version))
	} else {
		b.WriteString("*fw*\n")
	}

	return b.String()
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// Filename returns the report filename for a: <period-start>-<label-slug>.md
func Filename(a funnel.Analysis) string {
	slug := strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(a.Label), "-"), "-")
	if slug == "" {
		slug = strings.ToLower(a.ID)
	}
	return fmt.Sprintf("%s-%s.md", a.PeriodStart.Format(funnel.DateLayout), slug)
}

func escapeYAML(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	return s
}

// oneLine collapses whitespace so a description fits on a heading line.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
