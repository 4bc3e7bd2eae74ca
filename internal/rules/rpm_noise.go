package rules

import (
	"fmt"
	"math"

	"github.com/rotorlab/tune-engine/internal/dsp"
	"github.com/rotorlab/tune-engine/internal/idgen"
	"github.com/rotorlab/tune-engine/internal/models"
	"github.com/rotorlab/tune-engine/internal/profile"
)

const (
	// Rough mapping from normalized throttle to expected blade-pass
	// frequency for a small quad.
	rpmFreqPerThrottle = 400.0
	rpmFreqTolerance   = 0.25
	rpmFreqMinHz       = 100.0
	rpmProminenceMin   = 3.0
	rpmMagnitudeMin    = 6.0
	rpmMagnitudeMed    = 12.0
	rpmMagnitudeHi     = 24.0
)

// rpmNoiseRule flags a dominant peak that sits where the motors should be
// spinning for the window's throttle. Each window reports its own dominant
// peak independently; peaks are not aggregated across throttle bands from
// different windows.
type rpmNoiseRule struct {
	ids idgen.Generator
}

func newRPMNoiseRule(ids idgen.Generator) Rule { return &rpmNoiseRule{ids: ids} }

func (r *rpmNoiseRule) ID() string { return "rpm-noise" }

func (r *rpmNoiseRule) IssueTypes() []models.IssueType {
	return []models.IssueType{models.IssueRPMNoise}
}

func (r *rpmNoiseRule) Axes() []models.Axis { return []models.Axis{models.AxisRoll} }

func (r *rpmNoiseRule) BaseConfidence() float64 { return 0.55 }

func (r *rpmNoiseRule) Condition(w models.AnalysisWindow, frames []models.Frame) bool {
	return !w.HasStickInput && w.AvgThrottle > gyroNoiseMinThrottle
}

func (r *rpmNoiseRule) Detect(w models.AnalysisWindow, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.DetectedIssue {
	slice := w.Frames(frames)
	spectrum := dsp.AnalyzeFrequency(dsp.GyroSignal(slice, w.Axis), meta.SampleRateHz)
	peaks := dsp.FindSpectralPeaks(spectrum, 4)
	if len(peaks) == 0 {
		return nil
	}

	expected := (w.AvgThrottle - 1000.0) / 1000.0 * rpmFreqPerThrottle
	if expected < rpmFreqMinHz {
		return nil
	}

	scale := prof.Scale(models.IssueRPMNoise)
	top := peaks[0]
	if top.FrequencyHz < rpmFreqMinHz || top.Prominence < rpmProminenceMin {
		return nil
	}
	if math.Abs(top.FrequencyHz-expected)/expected > rpmFreqTolerance {
		return nil
	}
	if top.Magnitude < rpmMagnitudeMin*scale {
		return nil
	}

	issue := models.DetectedIssue{
		ID:       r.ids.NewID(),
		Type:     models.IssueRPMNoise,
		Severity: severityStep(top.Magnitude, rpmMagnitudeMed*scale, rpmMagnitudeHi*scale),
		Axis:     w.Axis,
		Range:    w.Range,
		Description: fmt.Sprintf("Motor-speed noise at %.0f Hz tracking ~%.0f%% throttle",
			top.FrequencyHz, (w.AvgThrottle-1000.0)/10.0),
		Metrics: models.IssueMetrics{
			FrequencyHz:    models.Float(top.FrequencyHz),
			Amplitude:      models.Float(top.Magnitude),
			AmplitudeRatio: models.Float(top.Prominence),
		},
		Confidence: confidence(r.BaseConfidence(), 0.05, top.Prominence, 0.85),
	}
	return []models.DetectedIssue{issue}
}

func (r *rpmNoiseRule) Recommend(issues []models.DetectedIssue, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.Recommendation {
	recs := make([]models.Recommendation, 0, len(issues))
	for _, issue := range ownedIssues(r, issues) {
		recs = append(recs, models.Recommendation{
			ID:         r.ids.NewID(),
			IssueID:    issue.ID,
			Type:       models.RecommendationHardware,
			Priority:   priorityFor(issue.Severity, 3),
			Confidence: issue.Confidence,
			Title:      "Balance props and verify RPM filtering",
			Description: "Noise that follows motor speed comes from the drivetrain: check for " +
				"chipped or unbalanced props and bent shafts, and make sure RPM-based " +
				"filtering is active if the ESC supports it.",
		})
	}
	return recs
}
