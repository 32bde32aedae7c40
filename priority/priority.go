// Package priority computes the weighted priority score used to rank tasks.
package priority

import "math"

// Level is a qualitative rating for a single task attribute.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Attributes holds the four qualitative ratings a task is scored on.
type Attributes struct {
	Easiness   Level `json:"easiness" firestore:"easiness"`
	Importance Level `json:"importance" firestore:"importance"`
	Emergency  Level `json:"emergency" firestore:"emergency"`
	Interest   Level `json:"interest" firestore:"interest"`
}

// Fixed attribute weights. They sum to 1.0, so scores stay in [1.0, 3.0].
const (
	weightEasiness   = 0.4
	weightImportance = 0.3
	weightEmergency  = 0.2
	weightInterest   = 0.1
)

// DefaultAttributes are used when a record carries no ratings,
// e.g. tasks persisted before attributes existed.
func DefaultAttributes() Attributes {
	return Attributes{
		Easiness:   LevelMedium,
		Importance: LevelMedium,
		Emergency:  LevelMedium,
		Interest:   LevelMedium,
	}
}

// ordinal maps a level to its numeric value. Unknown or empty levels
// count as low rather than failing.
func ordinal(l Level) float64 {
	switch l {
	case LevelLow:
		return 1
	case LevelMedium:
		return 2
	case LevelHigh:
		return 3
	default:
		return 1
	}
}

// Score returns the weighted priority score for the given attributes,
// rounded to two decimal places. A non-finite result collapses to 0.
func Score(attrs Attributes) float64 {
	s := ordinal(attrs.Easiness)*weightEasiness +
		ordinal(attrs.Importance)*weightImportance +
		ordinal(attrs.Emergency)*weightEmergency +
		ordinal(attrs.Interest)*weightInterest

	if math.IsNaN(s) || math.IsInf(s, 0) {
		return 0
	}
	return math.Round(s*100) / 100
}

// Valid reports whether l is one of the three selectable levels.
func Valid(l Level) bool {
	switch l {
	case LevelLow, LevelMedium, LevelHigh:
		return true
	}
	return false
}
