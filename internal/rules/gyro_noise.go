package rules

import (
	"fmt"

	"github.com/rotorlab/tune-engine/internal/dsp"
	"github.com/rotorlab/tune-engine/internal/idgen"
	"github.com/rotorlab/tune-engine/internal/models"
	"github.com/rotorlab/tune-engine/internal/profile"
)

const (
	gyroNoiseFloorMin    = 3.0
	gyroNoiseFloorMedium = 6.0
	gyroNoiseFloorHigh   = 12.0
	// A prominent top peak means narrowband resonance, which other rules own;
	// this rule only reports broadband noise.
	gyroNoiseMaxProminence = 2.5
	gyroNoiseMinThrottle   = 1200.0
)

type gyroNoiseRule struct {
	ids idgen.Generator
}

func newGyroNoiseRule(ids idgen.Generator) Rule { return &gyroNoiseRule{ids: ids} }

func (r *gyroNoiseRule) ID() string { return "gyro-noise" }

func (r *gyroNoiseRule) IssueTypes() []models.IssueType {
	return []models.IssueType{models.IssueGyroNoise}
}

func (r *gyroNoiseRule) Axes() []models.Axis { return models.AllAxes }

func (r *gyroNoiseRule) BaseConfidence() float64 { return 0.6 }

func (r *gyroNoiseRule) Condition(w models.AnalysisWindow, frames []models.Frame) bool {
	return !w.HasStickInput && w.AvgThrottle > gyroNoiseMinThrottle
}

func (r *gyroNoiseRule) Detect(w models.AnalysisWindow, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.DetectedIssue {
	slice := w.Frames(frames)
	spectrum := dsp.AnalyzeFrequency(dsp.GyroSignal(slice, w.Axis), meta.SampleRateHz)
	if len(spectrum.Magnitudes) == 0 {
		return nil
	}

	scale := prof.Scale(models.IssueGyroNoise)
	floor := dsp.NoiseFloor(spectrum, 50)
	if floor < gyroNoiseFloorMin*scale {
		return nil
	}

	peaks := dsp.FindSpectralPeaks(spectrum, 4)
	snr := 0.0
	if len(peaks) > 0 {
		if peaks[0].Prominence >= gyroNoiseMaxProminence {
			return nil
		}
		if floor > 0 {
			snr = peaks[0].Magnitude / floor
		}
	}

	issue := models.DetectedIssue{
		ID:       r.ids.NewID(),
		Type:     models.IssueGyroNoise,
		Severity: severityStep(floor, gyroNoiseFloorMedium*scale, gyroNoiseFloorHigh*scale),
		Axis:     w.Axis,
		Range:    w.Range,
		Description: fmt.Sprintf("Broadband gyro noise on %s (floor %.1f deg/s per bin)",
			w.Axis, floor),
		Metrics: models.IssueMetrics{
			NoiseFloor:    models.Float(floor),
			SignalToNoise: models.Float(snr),
		},
		Confidence: confidence(r.BaseConfidence(), 0.02, floor, 0.85),
	}
	return []models.DetectedIssue{issue}
}

func (r *gyroNoiseRule) Recommend(issues []models.DetectedIssue, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.Recommendation {
	recs := make([]models.Recommendation, 0, len(issues))
	for _, issue := range ownedIssues(r, issues) {
		recs = append(recs, models.Recommendation{
			ID:         r.ids.NewID(),
			IssueID:    issue.ID,
			Type:       models.RecommendationTuning,
			Priority:   priorityFor(issue.Severity, 3),
			Confidence: issue.Confidence,
			Title:      "Lower the gyro filter cutoff",
			Description: "The gyro signal carries broadband noise with no single resonance " +
				"to notch out. More gyro filtering is the safe fix; also check for damaged props.",
			Changes: []models.ParameterChange{
				{
					Parameter:         models.ParamGyroLowpassHz,
					RecommendedChange: "-15%",
					Explanation:       "Filter more gyro noise before the loop sees it",
				},
			},
		})
	}
	return recs
}
