package rules

import (
	"fmt"

	"github.com/rotorlab/tune-engine/internal/dsp"
	"github.com/rotorlab/tune-engine/internal/idgen"
	"github.com/rotorlab/tune-engine/internal/models"
	"github.com/rotorlab/tune-engine/internal/profile"
)

const (
	dtermActivityMin    = 25.0
	dtermActivityMedium = 45.0
	dtermActivityHigh   = 70.0
	dtermHighBandRatio  = 0.4
	dtermMinThrottle    = 1300.0
)

type dtermNoiseRule struct {
	ids idgen.Generator
}

func newDTermNoiseRule(ids idgen.Generator) Rule { return &dtermNoiseRule{ids: ids} }

func (r *dtermNoiseRule) ID() string { return "dterm-noise" }

func (r *dtermNoiseRule) IssueTypes() []models.IssueType {
	return []models.IssueType{models.IssueDTermNoise}
}

func (r *dtermNoiseRule) Axes() []models.Axis {
	// Yaw normally runs without D; noise there is a different problem.
	return []models.Axis{models.AxisRoll, models.AxisPitch}
}

func (r *dtermNoiseRule) BaseConfidence() float64 { return 0.65 }

func (r *dtermNoiseRule) Condition(w models.AnalysisWindow, frames []models.Frame) bool {
	return w.AvgThrottle > dtermMinThrottle
}

func (r *dtermNoiseRule) Detect(w models.AnalysisWindow, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.DetectedIssue {
	slice := w.Frames(frames)
	dterm := dsp.DTermSignal(slice, w.Axis)
	activity := dsp.RMS(dterm)

	scale := prof.Scale(models.IssueDTermNoise)
	if activity < dtermActivityMin*scale {
		return nil
	}

	spectrum := dsp.AnalyzeFrequency(dterm, meta.SampleRateHz)
	total := spectrum.BandEnergy.Low + spectrum.BandEnergy.Mid + spectrum.BandEnergy.High
	if total <= 0 {
		return nil
	}
	highRatio := spectrum.BandEnergy.High / total
	if highRatio < dtermHighBandRatio {
		return nil
	}

	floor := dsp.NoiseFloor(spectrum, 50)
	issue := models.DetectedIssue{
		ID:       r.ids.NewID(),
		Type:     models.IssueDTermNoise,
		Severity: severityStep(activity, dtermActivityMedium*scale, dtermActivityHigh*scale),
		Axis:     w.Axis,
		Range:    w.Range,
		Description: fmt.Sprintf("High-frequency D-term activity on %s (RMS %.0f, %.0f%% of energy above 150 Hz)",
			w.Axis, activity, highRatio*100),
		Metrics: models.IssueMetrics{
			DTermActivity: models.Float(activity),
			NoiseFloor:    models.Float(floor),
		},
		Confidence: confidence(r.BaseConfidence(), 0.3, highRatio, 0.9),
	}
	return []models.DetectedIssue{issue}
}

func (r *dtermNoiseRule) Recommend(issues []models.DetectedIssue, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.Recommendation {
	recs := make([]models.Recommendation, 0, len(issues))
	for _, issue := range ownedIssues(r, issues) {
		recs = append(recs, models.Recommendation{
			ID:         r.ids.NewID(),
			IssueID:    issue.ID,
			Type:       models.RecommendationTuning,
			Priority:   priorityFor(issue.Severity, 4),
			Confidence: issue.Confidence,
			Title:      fmt.Sprintf("Tame %s D-term noise", issue.Axis),
			Description: "The derivative term is amplifying high-frequency noise, which heats " +
				"motors. Lower the D-term filter cutoff and trim D itself.",
			Changes: []models.ParameterChange{
				{
					Parameter:         models.ParamDtermLowpassHz,
					RecommendedChange: "-20%",
					Explanation:       "Filter more of the noise the D term sees",
				},
				{
					Parameter:         models.ParamDGain,
					Axis:              issue.Axis,
					RecommendedChange: "-10%",
					Explanation:       "Less D means less amplified noise",
				},
			},
		})
	}
	return recs
}
