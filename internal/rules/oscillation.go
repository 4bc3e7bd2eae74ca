package rules

import (
	"fmt"

	"github.com/rotorlab/tune-engine/internal/dsp"
	"github.com/rotorlab/tune-engine/internal/idgen"
	"github.com/rotorlab/tune-engine/internal/models"
	"github.com/rotorlab/tune-engine/internal/profile"
)

// Oscillation detection thresholds (deg/s gyro amplitude, pre-scaling).
const (
	oscAmplitudeMin    = 15.0
	oscAmplitudeMedium = 30.0
	oscAmplitudeHigh   = 60.0
	oscFreqSplitHz     = 30.0 // below this an oscillation counts as slow
	oscFreqMaxHz       = 100.0
	oscFreqMinHz       = 5.0
)

type oscillationRule struct {
	ids idgen.Generator
}

func newOscillationRule(ids idgen.Generator) Rule { return &oscillationRule{ids: ids} }

func (r *oscillationRule) ID() string { return "oscillation" }

func (r *oscillationRule) IssueTypes() []models.IssueType {
	return []models.IssueType{models.IssueOscillation, models.IssueLowFreqOscillation}
}

func (r *oscillationRule) Axes() []models.Axis { return models.AllAxes }

func (r *oscillationRule) BaseConfidence() float64 { return 0.6 }

func (r *oscillationRule) Condition(w models.AnalysisWindow, frames []models.Frame) bool {
	// Oscillation is judged on steady flight so stick motion is not
	// mistaken for self-excitation.
	return !w.HasStickInput && (w.Phase == models.PhaseHover || w.Phase == models.PhaseCruise)
}

func (r *oscillationRule) Detect(w models.AnalysisWindow, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.DetectedIssue {
	slice := w.Frames(frames)
	spectrum := dsp.AnalyzeFrequency(dsp.GyroSignal(slice, w.Axis), meta.SampleRateHz)
	if spectrum.DominantFrequency < oscFreqMinHz || spectrum.DominantFrequency > oscFreqMaxHz {
		return nil
	}

	peaks := dsp.FindSpectralPeaks(spectrum, 4)
	if len(peaks) == 0 {
		return nil
	}
	amplitude := peaks[0].Magnitude

	issueType := models.IssueOscillation
	scale := prof.Scale(models.IssueOscillation)
	if spectrum.DominantFrequency < oscFreqSplitHz {
		issueType = models.IssueLowFreqOscillation
		scale = prof.Scale(models.IssueLowFreqOscillation)
	}
	if amplitude < oscAmplitudeMin*scale {
		return nil
	}

	rmsErr := dsp.RMS(dsp.ErrorSignal(slice, w.Axis))
	issue := models.DetectedIssue{
		ID:       r.ids.NewID(),
		Type:     issueType,
		Severity: severityStep(amplitude, oscAmplitudeMedium*scale, oscAmplitudeHigh*scale),
		Axis:     w.Axis,
		Range:    w.Range,
		Description: fmt.Sprintf("%.0f Hz oscillation on %s, amplitude %.0f deg/s",
			spectrum.DominantFrequency, w.Axis, amplitude),
		Metrics: models.IssueMetrics{
			FrequencyHz: models.Float(spectrum.DominantFrequency),
			Amplitude:   models.Float(amplitude),
			RMSError:    models.Float(rmsErr),
		},
		Confidence: confidence(r.BaseConfidence(), 0.003, amplitude, 0.9),
	}
	return []models.DetectedIssue{issue}
}

func (r *oscillationRule) Recommend(issues []models.DetectedIssue, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.Recommendation {
	recs := make([]models.Recommendation, 0, len(issues))
	for _, issue := range ownedIssues(r, issues) {
		switch issue.Type {
		case models.IssueOscillation:
			recs = append(recs, models.Recommendation{
				ID:         r.ids.NewID(),
				IssueID:    issue.ID,
				Type:       models.RecommendationTuning,
				Priority:   priorityFor(issue.Severity, 4),
				Confidence: issue.Confidence,
				Title:      fmt.Sprintf("Reduce %s D and P gains", issue.Axis),
				Description: "Fast oscillation in steady flight points at excess loop gain. " +
					"Back off the derivative term first, then proportional if it persists.",
				Changes: []models.ParameterChange{
					{
						Parameter:         models.ParamDGain,
						Axis:              issue.Axis,
						RecommendedChange: "-10%",
						Explanation:       "Lower D to stop amplifying the oscillation",
					},
					{
						Parameter:         models.ParamPGain,
						Axis:              issue.Axis,
						RecommendedChange: "-5%",
						Explanation:       "Slightly lower P to reduce loop gain",
					},
				},
			})
		case models.IssueLowFreqOscillation:
			recs = append(recs, models.Recommendation{
				ID:         r.ids.NewID(),
				IssueID:    issue.ID,
				Type:       models.RecommendationTuning,
				Priority:   priorityFor(issue.Severity, 3),
				Confidence: issue.Confidence,
				Title:      fmt.Sprintf("Reduce %s P gain", issue.Axis),
				Description: "Slow wobble in steady flight usually means the proportional " +
					"term is overdriving the craft.",
				Changes: []models.ParameterChange{
					{
						Parameter:         models.ParamPGain,
						Axis:              issue.Axis,
						RecommendedChange: "-10%",
						Explanation:       "Lower P to calm the slow wobble",
					},
				},
			})
		}
	}
	return recs
}
