package rules

import (
	"github.com/rotorlab/tune-engine/internal/idgen"
	"github.com/rotorlab/tune-engine/internal/models"
	"github.com/rotorlab/tune-engine/internal/profile"
)

// advisoryRule never fires on its own. It exists so that meta-issues
// synthesized by the progression analyzer get recommendation text through the
// same path every other issue does.
type advisoryRule struct {
	ids idgen.Generator
}

func newAdvisoryRule(ids idgen.Generator) Rule { return &advisoryRule{ids: ids} }

func (r *advisoryRule) ID() string { return "progression-advisory" }

func (r *advisoryRule) IssueTypes() []models.IssueType {
	return []models.IssueType{models.IssueThermalDegradation, models.IssueMechanicalEvent}
}

func (r *advisoryRule) Axes() []models.Axis { return models.AllAxes }

func (r *advisoryRule) BaseConfidence() float64 { return 0.5 }

func (r *advisoryRule) Condition(w models.AnalysisWindow, frames []models.Frame) bool {
	return false
}

func (r *advisoryRule) Detect(w models.AnalysisWindow, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.DetectedIssue {
	return nil
}

func (r *advisoryRule) Recommend(issues []models.DetectedIssue, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.Recommendation {
	var recs []models.Recommendation
	for _, issue := range ownedIssues(r, issues) {
		switch issue.Type {
		case models.IssueThermalDegradation:
			recs = append(recs, models.Recommendation{
				ID:         r.ids.NewID(),
				IssueID:    issue.ID,
				Type:       models.RecommendationInformational,
				Priority:   6,
				Confidence: issue.Confidence,
				Title:      "Multiple symptoms worsen over the flight",
				Description: "Several issues grow steadily worse as the flight goes on, which " +
					"usually means a component heating up. Feel the motors and ESCs after " +
					"landing and compare a short flight against a long one.",
			})
		case models.IssueMechanicalEvent:
			recs = append(recs, models.Recommendation{
				ID:         r.ids.NewID(),
				IssueID:    issue.ID,
				Type:       models.RecommendationHardware,
				Priority:   9,
				Confidence: issue.Confidence,
				Title:      "Inspect for mid-flight damage",
				Description: "A mechanical symptom appeared abruptly partway through the flight. " +
					"Check props for chips, motor bells for play, and the frame for cracks " +
					"before flying again.",
			})
		}
	}
	return recs
}
