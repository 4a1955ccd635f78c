package funnel

// Change describes how one metric moved between two periods.
type Change struct {
	Name         string  `json:"name"`
	Current      int     `json:"current"`
	Previous     int     `json:"previous"`
	Delta        int     `json:"delta"`
	DeltaPercent float64 `json:"delta_percent"`
}

// Trend is +1, -1 or 0 depending on the direction of the change.
func (c Change) Trend() int {
	switch {
	case c.Delta > 0:
		return 1
	case c.Delta < 0:
		return -1
	default:
		return 0
	}
}

// Comparison is the period-over-period view of two Metrics.
type Comparison struct {
	Changes            []Change `json:"changes"`
	PreviousConversion float64  `json:"previous_conversion"`
	CurrentConversion  float64  `json:"current_conversion"`
}

// Compare computes per-metric changes from previous to current.
func Compare(current, previous Metrics) Comparison {
	return Comparison{
		Changes: []Change{
			change("Attract", current.Attract, previous.Attract),
			change("Engage", current.Engage, previous.Engage),
			change("Delight", current.Delight, previous.Delight),
		},
		PreviousConversion: previous.OverallConversion(),
		CurrentConversion:  current.OverallConversion(),
	}
}

// change follows the dashboard's convention for an empty previous
// period: the delta is the current count and the percent is 100 when
// anything arrived, 0 otherwise.
func change(name string, current, previous int) Change {
	c := Change{Name: name, Current: current, Previous: previous}
	if previous == 0 {
		c.Delta = current
		if current > 0 {
			c.DeltaPercent = 100
		}
		return c
	}
	c.Delta = current - previous
	c.DeltaPercent = float64(c.Delta) / float64(previous) * 100
	return c
}
