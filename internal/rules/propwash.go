package rules

import (
	"fmt"

	"github.com/rotorlab/tune-engine/internal/dsp"
	"github.com/rotorlab/tune-engine/internal/idgen"
	"github.com/rotorlab/tune-engine/internal/models"
	"github.com/rotorlab/tune-engine/internal/profile"
)

const (
	propwashAmplitudeMin    = 30.0
	propwashAmplitudeMedium = 60.0
	propwashAmplitudeHigh   = 120.0
)

type propwashRule struct {
	ids  idgen.Generator
	deep bool
}

func newPropwashRule(ids idgen.Generator, deep bool) Rule {
	return &propwashRule{ids: ids, deep: deep}
}

func (r *propwashRule) ID() string { return "propwash" }

func (r *propwashRule) IssueTypes() []models.IssueType {
	return []models.IssueType{models.IssuePropwash}
}

func (r *propwashRule) Axes() []models.Axis {
	return []models.Axis{models.AxisRoll, models.AxisPitch}
}

func (r *propwashRule) BaseConfidence() float64 { return 0.7 }

func (r *propwashRule) Condition(w models.AnalysisWindow, frames []models.Frame) bool {
	if r.deep {
		return w.Phase == models.PhasePropwash || w.Phase == models.PhaseIdle
	}
	return w.Phase == models.PhasePropwash
}

func (r *propwashRule) Detect(w models.AnalysisWindow, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.DetectedIssue {
	result := dsp.DetectPropwash(w.Frames(frames), w.Axis, meta.SampleRateHz)
	if !result.Detected {
		return nil
	}

	scale := prof.Scale(models.IssuePropwash)
	if result.Amplitude < propwashAmplitudeMin*scale {
		return nil
	}

	issue := models.DetectedIssue{
		ID:       r.ids.NewID(),
		Type:     models.IssuePropwash,
		Severity: severityStep(result.Amplitude, propwashAmplitudeMedium*scale, propwashAmplitudeHigh*scale),
		Axis:     w.Axis,
		Range:    w.Range,
		Description: fmt.Sprintf("Propwash oscillation on %s: %.0f deg/s at %.0f Hz for %.0f ms",
			w.Axis, result.Amplitude, result.FrequencyHz, result.DurationMs),
		Metrics: models.IssueMetrics{
			Amplitude:   models.Float(result.Amplitude),
			FrequencyHz: models.Float(result.FrequencyHz),
		},
		Confidence: confidence(r.BaseConfidence(), 0.002, result.Amplitude, 0.9),
	}
	return []models.DetectedIssue{issue}
}

func (r *propwashRule) Recommend(issues []models.DetectedIssue, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.Recommendation {
	recs := make([]models.Recommendation, 0, len(issues))
	for _, issue := range ownedIssues(r, issues) {
		recs = append(recs, models.Recommendation{
			ID:         r.ids.NewID(),
			IssueID:    issue.ID,
			Type:       models.RecommendationTuning,
			Priority:   priorityFor(issue.Severity, 4),
			Confidence: issue.Confidence,
			Title:      "Improve propwash handling",
			Description: "The craft shakes in its own wake during throttle chops. Raising the " +
				"D floor keeps damping authority at low stick, and a higher I-term relax " +
				"cutoff lets I fight the disturbance.",
			Changes: []models.ParameterChange{
				{
					Parameter:         models.ParamDMin,
					RecommendedChange: "+20%",
					Explanation:       "Keep more D available during low-activity descents",
				},
				{
					Parameter:         models.ParamITermRelaxCutoff,
					RecommendedChange: "+10%",
					Explanation:       "Let the I term act on propwash disturbances",
				},
			},
		})
	}
	return recs
}
