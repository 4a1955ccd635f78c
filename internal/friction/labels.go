package friction

// ImpactLabel renders an impact estimate for display.
func ImpactLabel(l Level) string {
	switch l {
	case LevelHigh:
		return "High impact"
	case LevelMedium:
		return "Medium impact"
	case LevelLow:
		return "Low impact"
	default:
		return "Unknown impact"
	}
}

// DifficultyLabel renders a difficulty estimate for display.
func DifficultyLabel(l Level) string {
	switch l {
	case LevelHigh:
		return "High difficulty"
	case LevelMedium:
		return "Medium difficulty"
	case LevelLow:
		return "Low difficulty"
	default:
		return "Unknown difficulty"
	}
}

// PriorityLabel renders a priority for display.
func PriorityLabel(l Level) string {
	switch l {
	case LevelHigh:
		return "High priority"
	case LevelMedium:
		return "Medium priority"
	case LevelLow:
		return "Low priority"
	default:
		return "Unknown priority"
	}
}

// TypeLabel returns a friendly name for t, or t itself if unknown.
func TypeLabel(t Type) string {
	switch t {
	case TypeLowConversion:
		return "Low conversion"
	case TypeLowActivation:
		return "Low activation"
	case TypeLowRetention:
		return "Low retention"
	case TypeLowReferral:
		return "Low referral"
	case TypeUnclassified:
		return "Unclassified"
	default:
		return string(t)
	}
}

// StageLabel returns the display name of a stage, or s itself if unknown.
func StageLabel(s Stage) string {
	switch s {
	case StageAcquisition:
		return "Acquisition"
	case StageActivation:
		return "Activation"
	case StageAdoption:
		return "Adoption"
	case StageRetention:
		return "Retention"
	case StageReferral:
		return "Referral"
	default:
		return string(s)
	}
}

// StageDescription explains what a stage covers.
func StageDescription(s Stage) string {
	switch s {
	case StageAcquisition:
		return "How you attract new customers"
	case StageActivation:
		return "The customer's first experience"
	case StageAdoption:
		return "The customer starts using your product"
	case StageRetention:
		return "The customer keeps using your product"
	case StageReferral:
		return "The customer recommends your product"
	default:
		return ""
	}
}
