package rules

import (
	"fmt"

	"github.com/rotorlab/tune-engine/internal/dsp"
	"github.com/rotorlab/tune-engine/internal/idgen"
	"github.com/rotorlab/tune-engine/internal/models"
	"github.com/rotorlab/tune-engine/internal/profile"
)

const (
	imbalanceAsymMin = 0.25
	imbalanceAsymMed = 0.40
	imbalanceAsymHi  = 0.60
)

type motorImbalanceRule struct {
	ids idgen.Generator
}

func newMotorImbalanceRule(ids idgen.Generator) Rule { return &motorImbalanceRule{ids: ids} }

func (r *motorImbalanceRule) ID() string { return "motor-imbalance" }

func (r *motorImbalanceRule) IssueTypes() []models.IssueType {
	return []models.IssueType{models.IssueMotorImbalance}
}

func (r *motorImbalanceRule) Axes() []models.Axis { return []models.Axis{models.AxisRoll} }

func (r *motorImbalanceRule) BaseConfidence() float64 { return 0.6 }

func (r *motorImbalanceRule) Condition(w models.AnalysisWindow, frames []models.Frame) bool {
	// Steady flight only; asymmetric demand during maneuvers is normal.
	return !w.HasStickInput &&
		(w.Phase == models.PhaseHover || w.Phase == models.PhaseCruise)
}

func (r *motorImbalanceRule) Detect(w models.AnalysisWindow, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.DetectedIssue {
	low, high := meta.MotorRange()
	result := dsp.DetectMotorSaturation(w.Frames(frames), low, high, meta.SampleRateHz)

	scale := prof.Scale(models.IssueMotorImbalance)
	if result.Asymmetry < imbalanceAsymMin*scale {
		return nil
	}

	issue := models.DetectedIssue{
		ID:       r.ids.NewID(),
		Type:     models.IssueMotorImbalance,
		Severity: severityStep(result.Asymmetry, imbalanceAsymMed*scale, imbalanceAsymHi*scale),
		Axis:     w.Axis,
		Range:    w.Range,
		Description: fmt.Sprintf("Motors carry uneven load in steady flight (%.0f%% output spread)",
			result.Asymmetry*100),
		Metrics: models.IssueMetrics{
			AmplitudeRatio:     models.Float(result.Asymmetry),
			MotorSaturationPct: models.Float(result.SaturationPct),
		},
		Confidence: confidence(r.BaseConfidence(), 0.4, result.Asymmetry, 0.85),
	}
	return []models.DetectedIssue{issue}
}

func (r *motorImbalanceRule) Recommend(issues []models.DetectedIssue, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.Recommendation {
	recs := make([]models.Recommendation, 0, len(issues))
	for _, issue := range ownedIssues(r, issues) {
		recs = append(recs, models.Recommendation{
			ID:         r.ids.NewID(),
			IssueID:    issue.ID,
			Type:       models.RecommendationHardware,
			Priority:   priorityFor(issue.Severity, 4),
			Confidence: issue.Confidence,
			Title:      "Check motors and props for uneven thrust",
			Description: "One corner of the craft is working much harder than the others in " +
				"level flight. Look for a tired motor, a damaged prop, or a bent arm.",
		})
	}
	return recs
}
