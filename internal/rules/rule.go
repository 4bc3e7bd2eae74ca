// Package rules holds the detection/recommendation catalog. Every rule is
// stateless and side-effect-free: a pure function of the window, frames,
// profile, and metadata it is handed.
package rules

import (
	"math"

	"github.com/rotorlab/tune-engine/internal/models"
	"github.com/rotorlab/tune-engine/internal/profile"
)

// Rule is the polymorphic detection/recommendation contract. Each rule owns
// a closed set of issue types, applies to a fixed set of axes, and exposes a
// precondition gate, a detector, and a recommender.
type Rule interface {
	ID() string
	IssueTypes() []models.IssueType
	Axes() []models.Axis
	BaseConfidence() float64

	// Condition gates Detect; it must be cheap.
	Condition(w models.AnalysisWindow, frames []models.Frame) bool

	// Detect scans one window and returns zero or more raw issues.
	Detect(w models.AnalysisWindow, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.DetectedIssue

	// Recommend produces recommendations for the deduplicated issues the
	// rule owns. Issues of other types must be ignored.
	Recommend(issues []models.DetectedIssue, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.Recommendation
}

// ownedIssues filters issues down to the types a rule owns.
func ownedIssues(r Rule, issues []models.DetectedIssue) []models.DetectedIssue {
	owned := make(map[models.IssueType]bool, len(r.IssueTypes()))
	for _, t := range r.IssueTypes() {
		owned[t] = true
	}
	out := make([]models.DetectedIssue, 0, len(issues))
	for _, issue := range issues {
		if owned[issue.Type] {
			out = append(out, issue)
		}
	}
	return out
}

// severityStep classifies a value against medium/high thresholds.
func severityStep(value, medium, high float64) models.Severity {
	switch {
	case value >= high:
		return models.SeverityHigh
	case value >= medium:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// confidence computes min(cap, base + k*quality) clamped to [0,1].
func confidence(base, k, quality, cap float64) float64 {
	c := base + k*quality
	if c > cap {
		c = cap
	}
	return clamp01(c)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// priorityFor maps severity to a recommendation priority around a base,
// clamped to the 1-10 scale.
func priorityFor(severity models.Severity, base int) int {
	p := base + 2*severity.Rank()
	if p < 1 {
		p = 1
	}
	if p > 10 {
		p = 10
	}
	return p
}

// containsAxis reports whether axis is in the rule's axis set.
func containsAxis(axes []models.Axis, axis models.Axis) bool {
	for _, a := range axes {
		if a == axis {
			return true
		}
	}
	return false
}

func meanAbs(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += math.Abs(v)
	}
	return sum / float64(len(values))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
