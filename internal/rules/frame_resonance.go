package rules

import (
	"fmt"

	"github.com/rotorlab/tune-engine/internal/dsp"
	"github.com/rotorlab/tune-engine/internal/idgen"
	"github.com/rotorlab/tune-engine/internal/models"
	"github.com/rotorlab/tune-engine/internal/profile"
)

const (
	resonanceFreqMinHz    = 80.0
	resonanceFreqMaxHz    = 300.0
	resonanceProminence   = 3.5
	resonanceMagnitudeMin = 8.0
	resonanceMagnitudeMed = 16.0
	resonanceMagnitudeHi  = 32.0
)

// frameResonanceRule reports a fixed-frequency narrowband peak. Resonance is
// a property of the airframe, not an axis, so the rule runs on roll alone to
// avoid triple-counting it.
type frameResonanceRule struct {
	ids idgen.Generator
}

func newFrameResonanceRule(ids idgen.Generator) Rule { return &frameResonanceRule{ids: ids} }

func (r *frameResonanceRule) ID() string { return "frame-resonance" }

func (r *frameResonanceRule) IssueTypes() []models.IssueType {
	return []models.IssueType{models.IssueFrameResonance}
}

func (r *frameResonanceRule) Axes() []models.Axis { return []models.Axis{models.AxisRoll} }

func (r *frameResonanceRule) BaseConfidence() float64 { return 0.6 }

func (r *frameResonanceRule) Condition(w models.AnalysisWindow, frames []models.Frame) bool {
	return !w.HasStickInput && w.AvgThrottle > gyroNoiseMinThrottle
}

func (r *frameResonanceRule) Detect(w models.AnalysisWindow, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.DetectedIssue {
	slice := w.Frames(frames)
	spectrum := dsp.AnalyzeFrequency(dsp.GyroSignal(slice, w.Axis), meta.SampleRateHz)
	peaks := dsp.FindSpectralPeaks(spectrum, 4)
	if len(peaks) == 0 {
		return nil
	}

	scale := prof.Scale(models.IssueFrameResonance)
	top := peaks[0]
	if top.FrequencyHz < resonanceFreqMinHz || top.FrequencyHz > resonanceFreqMaxHz {
		return nil
	}
	if top.Prominence < resonanceProminence || top.Magnitude < resonanceMagnitudeMin*scale {
		return nil
	}

	issue := models.DetectedIssue{
		ID:       r.ids.NewID(),
		Type:     models.IssueFrameResonance,
		Severity: severityStep(top.Magnitude, resonanceMagnitudeMed*scale, resonanceMagnitudeHi*scale),
		Axis:     w.Axis,
		Range:    w.Range,
		Description: fmt.Sprintf("Fixed %.0f Hz airframe resonance (%.1fx above neighboring bins)",
			top.FrequencyHz, top.Prominence),
		Metrics: models.IssueMetrics{
			FrequencyHz:    models.Float(top.FrequencyHz),
			Amplitude:      models.Float(top.Magnitude),
			AmplitudeRatio: models.Float(top.Prominence),
		},
		Confidence: confidence(r.BaseConfidence(), 0.05, top.Prominence, 0.9),
	}
	return []models.DetectedIssue{issue}
}

func (r *frameResonanceRule) Recommend(issues []models.DetectedIssue, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.Recommendation {
	recs := make([]models.Recommendation, 0, len(issues))
	for _, issue := range ownedIssues(r, issues) {
		freq := 0.0
		if issue.Metrics.FrequencyHz != nil {
			freq = *issue.Metrics.FrequencyHz
		}
		recs = append(recs, models.Recommendation{
			ID:         r.ids.NewID(),
			IssueID:    issue.ID,
			Type:       models.RecommendationHardware,
			Priority:   priorityFor(issue.Severity, 4),
			Confidence: issue.Confidence,
			Title:      "Check the frame for a mechanical resonance",
			Description: fmt.Sprintf("A constant %.0f Hz peak that does not track throttle is "+
				"mechanical. Check standoffs, camera mounts, and anything that can rattle; "+
				"soft-mounting the flight controller also helps.", freq),
		})
	}
	return recs
}
