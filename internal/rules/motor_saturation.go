package rules

import (
	"fmt"

	"github.com/rotorlab/tune-engine/internal/dsp"
	"github.com/rotorlab/tune-engine/internal/idgen"
	"github.com/rotorlab/tune-engine/internal/models"
	"github.com/rotorlab/tune-engine/internal/profile"
)

const (
	saturationPctMin    = 5.0
	saturationPctMedium = 15.0
	saturationPctHigh   = 30.0
	saturationThrottle  = 1500.0
)

type motorSaturationRule struct {
	ids idgen.Generator
}

func newMotorSaturationRule(ids idgen.Generator) Rule { return &motorSaturationRule{ids: ids} }

func (r *motorSaturationRule) ID() string { return "motor-saturation" }

func (r *motorSaturationRule) IssueTypes() []models.IssueType {
	return []models.IssueType{models.IssueMotorSaturation}
}

func (r *motorSaturationRule) Axes() []models.Axis { return models.AllAxes }

func (r *motorSaturationRule) BaseConfidence() float64 { return 0.7 }

func (r *motorSaturationRule) Condition(w models.AnalysisWindow, frames []models.Frame) bool {
	return w.AvgThrottle > saturationThrottle ||
		w.Phase == models.PhasePunch || w.Phase == models.PhaseManeuver
}

func (r *motorSaturationRule) Detect(w models.AnalysisWindow, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.DetectedIssue {
	low, high := meta.MotorRange()
	result := dsp.DetectMotorSaturation(w.Frames(frames), low, high, meta.SampleRateHz)
	if !result.Detected {
		return nil
	}

	scale := prof.Scale(models.IssueMotorSaturation)
	if result.SaturationPct < saturationPctMin*scale {
		return nil
	}

	issue := models.DetectedIssue{
		ID:       r.ids.NewID(),
		Type:     models.IssueMotorSaturation,
		Severity: severityStep(result.SaturationPct, saturationPctMedium*scale, saturationPctHigh*scale),
		Axis:     w.Axis,
		Range:    w.Range,
		Description: fmt.Sprintf("Motor %d at output ceiling %.0f%% of the time during %s demand",
			result.WorstMotor+1, result.SaturationPct, w.Axis),
		Metrics: models.IssueMetrics{
			MotorSaturationPct: models.Float(result.SaturationPct),
			AmplitudeRatio:     models.Float(result.Asymmetry),
		},
		Confidence: confidence(r.BaseConfidence(), 0.005, result.SaturationPct, 0.95),
	}
	return []models.DetectedIssue{issue}
}

func (r *motorSaturationRule) Recommend(issues []models.DetectedIssue, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.Recommendation {
	recs := make([]models.Recommendation, 0, len(issues))
	for _, issue := range ownedIssues(r, issues) {
		changes := []models.ParameterChange{
			{
				Parameter:         models.ParamPGain,
				Axis:              issue.Axis,
				RecommendedChange: "-5%",
				Explanation:       "Lower loop demand so motors keep headroom",
			},
		}
		if issue.Severity == models.SeverityHigh {
			changes = append(changes, models.ParameterChange{
				Parameter:         models.ParamMotorIdle,
				RecommendedChange: "-10",
				Explanation:       "A lower idle widens the usable output range",
			})
		}
		recs = append(recs, models.Recommendation{
			ID:         r.ids.NewID(),
			IssueID:    issue.ID,
			Type:       models.RecommendationTuning,
			Priority:   priorityFor(issue.Severity, 3),
			Confidence: issue.Confidence,
			Title:      "Recover motor headroom",
			Description: "Motors are pinned at full output, so the loop cannot correct " +
				"further. Reduce demand or consider a battery/prop combination with more margin.",
			Changes: changes,
		})
	}
	return recs
}
