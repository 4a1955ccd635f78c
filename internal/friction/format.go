package friction

import (
	"fmt"
	"sort"
	"strings"
)

// StageSummary aggregates the frictions logged against one stage.
type StageSummary struct {
	Stage    Stage        `json:"stage"`
	Total    int          `json:"total"`
	High     int          `json:"high"`
	ByType   map[Type]int `json:"by_type"`
	TopFocus Type         `json:"top_focus"` // most frequent type, ties broken by priority then rule order
}

// Summarize groups records by stage, in funnel order. Stages without
// records are omitted.
func Summarize(records []Record) []StageSummary {
	byStage := make(map[Stage]*StageSummary)

	for _, r := range records {
		s, ok := byStage[r.Stage]
		if !ok {
			s = &StageSummary{Stage: r.Stage, ByType: make(map[Type]int)}
			byStage[r.Stage] = s
		}
		s.Total++
		s.ByType[r.Type]++
		if r.Priority == LevelHigh {
			s.High++
		}
	}

	var out []StageSummary
	for _, st := range Stages() {
		if s, ok := byStage[st]; ok {
			s.TopFocus = topType(s.ByType)
			out = append(out, *s)
		}
	}
	return out
}

func topType(counts map[Type]int) Type {
	var best Type
	bestCount := 0
	// Types() is in rule order, so the first type seen wins ties on
	// count and priority.
	for _, t := range Types() {
		n := counts[t]
		if n == 0 {
			continue
		}
		if n > bestCount || (n == bestCount && Prioritize(t).Priority.Rank() > Prioritize(best).Priority.Rank()) {
			best, bestCount = t, n
		}
	}
	return best
}

// SortByPriority orders records high priority first, then by impact,
// then by easier difficulty. The sort is stable so insertion order
// breaks remaining ties.
func SortByPriority(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.Priority.Rank() != b.Priority.Rank() {
			return a.Priority.Rank() > b.Priority.Rank()
		}
		if a.Metadata.ImpactEstimate.Rank() != b.Metadata.ImpactEstimate.Rank() {
			return a.Metadata.ImpactEstimate.Rank() > b.Metadata.ImpactEstimate.Rank()
		}
		return a.Metadata.DifficultyEstimate.Rank() < b.Metadata.DifficultyEstimate.Rank()
	})
}

// FormatRecord renders one record with its suggestions.
func FormatRecord(r Record) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s  [%s] %s\n", r.ID, StageLabel(r.Stage), r.Description)
	fmt.Fprintf(&b, "  %-12s %s\n", "type", TypeLabel(r.Type))
	fmt.Fprintf(&b, "  %-12s %s\n", "priority", PriorityLabel(r.Priority))
	fmt.Fprintf(&b, "  %-12s %s\n", "impact", ImpactLabel(r.Metadata.ImpactEstimate))
	fmt.Fprintf(&b, "  %-12s %s\n", "difficulty", DifficultyLabel(r.Metadata.DifficultyEstimate))
	if len(r.Suggestions) > 0 {
		b.WriteString("  suggestions\n")
		for _, s := range r.Suggestions {
			fmt.Fprintf(&b, "    - %s\n", s)
		}
	}

	return b.String()
}

// Format renders a friction list for terminal output.
func Format(records []Record, stageFilter Stage) string {
	var b strings.Builder

	if stageFilter != "" {
		fmt.Fprintf(&b, "Frictions: %s\n", StageLabel(stageFilter))
	} else {
		b.WriteString("Frictions\n")
	}
	b.WriteString(strings.Repeat("=", 40) + "\n\n")

	if len(records) == 0 {
		b.WriteString("No frictions logged.\n")
		b.WriteString("Run `fw add --stage <stage> <description>` to log one.\n")
		return b.String()
	}

	noun := "frictions"
	if len(records) == 1 {
		noun = "friction"
	}
	fmt.Fprintf(&b, "%d %s\n\n", len(records), noun)

	if stageFilter == "" {
		b.WriteString("Stages\n")
		for _, s := range Summarize(records) {
			indicator := " "
			if s.High > 0 {
				indicator = "!"
			}
			fmt.Fprintf(&b, "  %s %-12s %3d total  %3d high  focus: %s\n",
				indicator, StageLabel(s.Stage), s.Total, s.High, TypeLabel(s.TopFocus))
		}
		b.WriteString("\n")
	}

	sorted := append([]Record(nil), records...)
	SortByPriority(sorted)

	b.WriteString("By priority\n")
	for _, r := range sorted {
		fmt.Fprintf(&b, "  %-6s %-14s %-12s %s  %s\n",
			r.Priority, TypeLabel(r.Type), StageLabel(r.Stage), r.ID, truncate(r.Description, 60))
	}

	return b.String()
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
