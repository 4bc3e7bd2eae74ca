package rules

import (
	"fmt"

	"github.com/rotorlab/tune-engine/internal/dsp"
	"github.com/rotorlab/tune-engine/internal/idgen"
	"github.com/rotorlab/tune-engine/internal/models"
	"github.com/rotorlab/tune-engine/internal/profile"
)

const (
	bearingFreqMinHz    = 200.0
	bearingPeakCountMin = 2
	bearingProminence   = 2.5
	bearingMagnitudeMin = 4.0
	bearingMagnitudeMed = 8.0
	bearingMagnitudeHi  = 16.0
)

type bearingWearRule struct {
	ids idgen.Generator
}

func newBearingWearRule(ids idgen.Generator) Rule { return &bearingWearRule{ids: ids} }

func (r *bearingWearRule) ID() string { return "bearing-wear" }

func (r *bearingWearRule) IssueTypes() []models.IssueType {
	return []models.IssueType{models.IssueBearingWear}
}

func (r *bearingWearRule) Axes() []models.Axis { return []models.Axis{models.AxisRoll} }

func (r *bearingWearRule) BaseConfidence() float64 { return 0.5 }

func (r *bearingWearRule) Condition(w models.AnalysisWindow, frames []models.Frame) bool {
	return !w.HasStickInput && w.AvgThrottle > gyroNoiseMinThrottle
}

func (r *bearingWearRule) Detect(w models.AnalysisWindow, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.DetectedIssue {
	slice := w.Frames(frames)
	spectrum := dsp.AnalyzeFrequency(dsp.GyroSignal(slice, w.Axis), meta.SampleRateHz)
	peaks := dsp.FindSpectralPeaks(spectrum, 8)

	scale := prof.Scale(models.IssueBearingWear)
	strongest := 0.0
	strongestFreq := 0.0
	count := 0
	for _, p := range peaks {
		if p.FrequencyHz < bearingFreqMinHz {
			continue
		}
		if p.Prominence < bearingProminence || p.Magnitude < bearingMagnitudeMin*scale {
			continue
		}
		count++
		if p.Magnitude > strongest {
			strongest = p.Magnitude
			strongestFreq = p.FrequencyHz
		}
	}
	if count < bearingPeakCountMin {
		return nil
	}

	floor := dsp.NoiseFloor(spectrum, 50)
	snr := 0.0
	if floor > 0 {
		snr = strongest / floor
	}

	issue := models.DetectedIssue{
		ID:       r.ids.NewID(),
		Type:     models.IssueBearingWear,
		Severity: severityStep(strongest, bearingMagnitudeMed*scale, bearingMagnitudeHi*scale),
		Axis:     w.Axis,
		Range:    w.Range,
		Description: fmt.Sprintf("Multiple high-frequency spurs (strongest %.0f Hz) typical of worn bearings",
			strongestFreq),
		Metrics: models.IssueMetrics{
			FrequencyHz:   models.Float(strongestFreq),
			NoiseFloor:    models.Float(floor),
			SignalToNoise: models.Float(snr),
		},
		Confidence: confidence(r.BaseConfidence(), 0.08, float64(count), 0.8),
	}
	return []models.DetectedIssue{issue}
}

func (r *bearingWearRule) Recommend(issues []models.DetectedIssue, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.Recommendation {
	recs := make([]models.Recommendation, 0, len(issues))
	for _, issue := range ownedIssues(r, issues) {
		recs = append(recs, models.Recommendation{
			ID:         r.ids.NewID(),
			IssueID:    issue.ID,
			Type:       models.RecommendationHardware,
			Priority:   priorityFor(issue.Severity, 3),
			Confidence: issue.Confidence,
			Title:      "Inspect motor bearings",
			Description: "Spin each motor by hand and listen for grinding; a motor with rough " +
				"or notchy rotation needs a bearing replacement before it fails in flight.",
		})
	}
	return recs
}
