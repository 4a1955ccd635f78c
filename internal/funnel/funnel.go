package funnel

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/suykerbuyk/flywheel/internal/friction"
)

// Drop-rate thresholds (percent) for each severity.
const (
	thresholdHigh   = 70.0
	thresholdMedium = 40.0
	thresholdLow    = 20.0

	// healthyConversion is the overall conversion above which the
	// flywheel is reported as healthy.
	healthyConversion = 60.0
)

// Transition names used in Point.Transition.
const (
	TransitionAttractEngage = "Attract → Engage"
	TransitionEngageDelight = "Engage → Delight"
	TransitionGeneral       = "General"
)

// Metrics holds the counts for one period.
type Metrics struct {
	Attract int `json:"attract"` // visitors or leads generated
	Engage  int `json:"engage"`  // customers actively interacting
	Delight int `json:"delight"` // satisfied customers and promoters
}

// Validate rejects negative counts.
func (m Metrics) Validate() error {
	var errs []error
	if m.Attract < 0 {
		errs = append(errs, fmt.Errorf("attract must not be negative (got %d)", m.Attract))
	}
	if m.Engage < 0 {
		errs = append(errs, fmt.Errorf("engage must not be negative (got %d)", m.Engage))
	}
	if m.Delight < 0 {
		errs = append(errs, fmt.Errorf("delight must not be negative (got %d)", m.Delight))
	}
	return errors.Join(errs...)
}

// AttractToEngageDrop is the percent of attracted visitors lost before engaging.
func (m Metrics) AttractToEngageDrop() float64 {
	return dropRate(m.Attract, m.Engage)
}

// EngageToDelightDrop is the percent of engaged customers lost before delight.
func (m Metrics) EngageToDelightDrop() float64 {
	return dropRate(m.Engage, m.Delight)
}

// OverallConversion is delight as a percent of attract.
func (m Metrics) OverallConversion() float64 {
	return ratio(m.Delight, m.Attract)
}

// EngageRate is engage as a percent of attract.
func (m Metrics) EngageRate() float64 {
	return ratio(m.Engage, m.Attract)
}

// DelightRate is delight as a percent of engage.
func (m Metrics) DelightRate() float64 {
	return ratio(m.Delight, m.Engage)
}

func ratio(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

func dropRate(from, to int) float64 {
	if from <= 0 {
		return 0
	}
	return float64(from-to) / float64(from) * 100
}

// Point is a friction point found in the period's numbers.
type Point struct {
	Transition     string         `json:"transition"`
	DropRate       float64        `json:"drop_rate"`
	Severity       friction.Level `json:"severity"`
	Recommendation string         `json:"recommendation"`
}

type recommendations struct {
	high, medium, low string
}

var (
	attractEngageAdvice = recommendations{
		high:   "Critical loss between attraction and engagement. Review lead quality and the initial onboarding.",
		medium: "Moderate friction in the initial conversion. Streamline signup and the first steps.",
		low:    "Minor friction detected. Keep monitoring and making incremental adjustments.",
	}
	engageDelightAdvice = recommendations{
		high:   "Critical loss between engagement and satisfaction. Improve the product, support and post-sale experience.",
		medium: "Moderate friction in satisfaction. Set up feedback programs and continuous improvement.",
		low:    "Minor friction in satisfaction. Keep the focus on the customer experience.",
	}
)

const healthyAdvice = "Excellent! Your flywheel is working well. Keep optimizing."

// Points returns the friction points for a period: at most one per
// transition, plus a General point when overall conversion is healthy.
// Drops of 20% or less are not reported.
func Points(m Metrics) []Point {
	var points []Point

	if p, ok := transitionPoint(TransitionAttractEngage, m.AttractToEngageDrop(), attractEngageAdvice); ok {
		points = append(points, p)
	}
	if p, ok := transitionPoint(TransitionEngageDelight, m.EngageToDelightDrop(), engageDelightAdvice); ok {
		points = append(points, p)
	}

	if conv := m.OverallConversion(); conv > healthyConversion {
		points = append(points, Point{
			Transition:     TransitionGeneral,
			DropRate:       100 - conv,
			Severity:       friction.LevelLow,
			Recommendation: healthyAdvice,
		})
	}

	return points
}

func transitionPoint(name string, drop float64, advice recommendations) (Point, bool) {
	p := Point{Transition: name, DropRate: drop}
	switch {
	case drop > thresholdHigh:
		p.Severity, p.Recommendation = friction.LevelHigh, advice.high
	case drop > thresholdMedium:
		p.Severity, p.Recommendation = friction.LevelMedium, advice.medium
	case drop > thresholdLow:
		p.Severity, p.Recommendation = friction.LevelLow, advice.low
	default:
		return Point{}, false
	}
	return p, true
}

// Analysis is a saved period with its metrics.
type Analysis struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	PeriodStart time.Time `json:"period_start"`
	PeriodEnd   time.Time `json:"period_end"`
	Metrics     Metrics   `json:"metrics"`
	CreatedAt   time.Time `json:"created_at"`
}

// DateLayout is the layout for period boundaries.
const DateLayout = "2006-01-02"

// Validate checks the label, period bounds and metrics.
func (a Analysis) Validate() error {
	var errs []error
	if strings.TrimSpace(a.Label) == "" {
		errs = append(errs, errors.New("label is required"))
	}
	if a.PeriodStart.IsZero() || a.PeriodEnd.IsZero() {
		errs = append(errs, errors.New("period start and end are required"))
	} else if a.PeriodEnd.Before(a.PeriodStart) {
		errs = append(errs, fmt.Errorf("period end %s is before start %s",
			a.PeriodEnd.Format(DateLayout), a.PeriodStart.Format(DateLayout)))
	}
	if err := a.Metrics.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Days returns the inclusive length of the period in days.
func (a Analysis) Days() int {
	if a.PeriodStart.IsZero() || a.PeriodEnd.IsZero() {
		return 0
	}
	return int(a.PeriodEnd.Sub(a.PeriodStart).Hours()/24) + 1
}
