package friction

import (
	"fmt"
	"time"
)

// Type tags a classified friction.
type Type string

const (
	TypeLowConversion Type = "low_conversion"
	TypeLowActivation Type = "low_activation"
	TypeLowRetention  Type = "low_retention"
	TypeLowReferral   Type = "low_referral"
	TypeUnclassified  Type = "unclassified"
)

// Types lists every friction type in rule order, fallback last.
func Types() []Type {
	return []Type{TypeLowConversion, TypeLowActivation, TypeLowRetention, TypeLowReferral, TypeUnclassified}
}

// ParseType maps a stored tag back to its Type.
func ParseType(s string) (Type, bool) {
	switch t := Type(s); t {
	case TypeLowConversion, TypeLowActivation, TypeLowRetention, TypeLowReferral, TypeUnclassified:
		return t, true
	default:
		return "", false
	}
}

// Level is a three-step scale used for priority, impact and difficulty.
// The zero value means unknown.
type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"
)

// ParseLevel maps a stored level back to its Level.
func ParseLevel(s string) (Level, bool) {
	switch l := Level(s); l {
	case LevelHigh, LevelMedium, LevelLow:
		return l, true
	default:
		return "", false
	}
}

// Rank orders levels for sorting: high=3, medium=2, low=1, unknown=0.
func (l Level) Rank() int {
	switch l {
	case LevelHigh:
		return 3
	case LevelMedium:
		return 2
	case LevelLow:
		return 1
	default:
		return 0
	}
}

// Stage is the flywheel stage where a friction was observed.
type Stage string

const (
	StageAcquisition Stage = "acquisition"
	StageActivation  Stage = "activation"
	StageAdoption    Stage = "adoption"
	StageRetention   Stage = "retention"
	StageReferral    Stage = "referral"
)

// Stages lists the stages in funnel order.
func Stages() []Stage {
	return []Stage{StageAcquisition, StageActivation, StageAdoption, StageRetention, StageReferral}
}

// ParseStage validates a user-supplied stage name.
func ParseStage(s string) (Stage, error) {
	switch st := Stage(s); st {
	case StageAcquisition, StageActivation, StageAdoption, StageRetention, StageReferral:
		return st, nil
	default:
		return "", fmt.Errorf("unknown stage %q (want one of acquisition, activation, adoption, retention, referral)", s)
	}
}

// Classification is the classifier's verdict on a description.
type Classification struct {
	Type        Type     `json:"type"`
	Priority    Level    `json:"priority"`
	Suggestions []string `json:"suggestions"`
}

// Metadata holds the prioritizer's estimates.
type Metadata struct {
	ImpactEstimate     Level `json:"impact_estimate"`
	DifficultyEstimate Level `json:"difficulty_estimate"`
}

// Assessment is the prioritizer's verdict on a friction type.
type Assessment struct {
	Priority Level    `json:"priority"`
	Metadata Metadata `json:"metadata"`
}

// Record is a fully classified and prioritized friction.
// Records are produced by Build and are never updated in place;
// a changed description means a new Build.
type Record struct {
	ID          string   `json:"id"`
	Stage       Stage    `json:"stage"`
	Description string   `json:"description"`
	Type        Type     `json:"type"`
	Priority    Level    `json:"priority"`
	Suggestions []string `json:"suggestions"`
	Metadata    Metadata `json:"metadata"`

	// CreatedAt is set when the record is stored; Build leaves it zero.
	CreatedAt time.Time `json:"created_at,omitzero"`
}
