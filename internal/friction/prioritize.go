package friction

import (
	"errors"
	"fmt"
	"strings"
)

// Prioritize returns the fixed assessment for a friction type.
// Missing or unknown types get the unclassified row.
func Prioritize(t Type) Assessment {
	switch t {
	case TypeLowConversion:
		return assess(LevelHigh, LevelHigh, LevelLow)
	case TypeLowActivation:
		return assess(LevelHigh, LevelHigh, LevelMedium)
	case TypeLowRetention:
		return assess(LevelMedium, LevelMedium, LevelHigh)
	case TypeLowReferral:
		return assess(LevelLow, LevelLow, LevelMedium)
	default:
		return assess(LevelLow, LevelLow, LevelHigh)
	}
}

func assess(priority, impact, difficulty Level) Assessment {
	return Assessment{
		Priority: priority,
		Metadata: Metadata{ImpactEstimate: impact, DifficultyEstimate: difficulty},
	}
}

// Build classifies description, prioritizes the resulting type and
// assembles the record. The record's priority is the prioritizer's.
// A nil classifier means Default.
func Build(id string, stage Stage, description string, c *Classifier) Record {
	if c == nil {
		c = defaultClassifier
	}
	cl := c.Classify(description)
	a := Prioritize(cl.Type)

	return Record{
		ID:          id,
		Stage:       stage,
		Description: description,
		Type:        cl.Type,
		Priority:    a.Priority,
		Suggestions: cl.Suggestions,
		Metadata:    a.Metadata,
	}
}

// Validate reports whether r could have come out of Build: a known
// stage and type, a non-empty description, levels from the three-value
// set, at least one suggestion, and the prioritizer's assessment for
// its type. Records read from outside the store are checked with it.
func (r Record) Validate() error {
	var errs []error
	if _, err := ParseStage(string(r.Stage)); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(r.Description) == "" {
		errs = append(errs, errors.New("description is required"))
	}
	if _, ok := ParseType(string(r.Type)); !ok {
		errs = append(errs, fmt.Errorf("unknown type %q", r.Type))
	}
	for _, l := range []struct {
		name  string
		level Level
	}{
		{"priority", r.Priority},
		{"impact_estimate", r.Metadata.ImpactEstimate},
		{"difficulty_estimate", r.Metadata.DifficultyEstimate},
	} {
		if _, ok := ParseLevel(string(l.level)); !ok {
			errs = append(errs, fmt.Errorf("%s: unknown level %q", l.name, l.level))
		}
	}
	if len(r.Suggestions) == 0 {
		errs = append(errs, errors.New("at least one suggestion is required"))
	}
	if len(errs) == 0 {
		if want := Prioritize(r.Type); r.Priority != want.Priority || r.Metadata != want.Metadata {
			errs = append(errs, fmt.Errorf("assessment %s/%s/%s does not match type %s",
				r.Priority, r.Metadata.ImpactEstimate, r.Metadata.DifficultyEstimate, r.Type))
		}
	}
	return errors.Join(errs...)
}
