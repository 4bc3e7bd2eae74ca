package rules

import (
	"fmt"
	"math"

	"github.com/rotorlab/tune-engine/internal/idgen"
	"github.com/rotorlab/tune-engine/internal/models"
	"github.com/rotorlab/tune-engine/internal/profile"
	"github.com/rotorlab/tune-engine/internal/utils"
)

const (
	desyncSpikeMin    = 800.0
	desyncSpikeMed    = 1200.0
	desyncSpikeHi     = 2000.0
	desyncMaxSetpoint = 100.0
)

// desyncRule catches uncommanded gyro spikes: rotation far beyond anything
// the pilot asked for, the signature of an ESC losing sync with a motor.
// Runs on roll only since a desync throws the craft on every axis at once.
type desyncRule struct {
	ids idgen.Generator
}

func newDesyncRule(ids idgen.Generator) Rule { return &desyncRule{ids: ids} }

func (r *desyncRule) ID() string { return "desync" }

func (r *desyncRule) IssueTypes() []models.IssueType {
	return []models.IssueType{models.IssueDesync}
}

func (r *desyncRule) Axes() []models.Axis { return []models.Axis{models.AxisRoll} }

func (r *desyncRule) BaseConfidence() float64 { return 0.7 }

func (r *desyncRule) Condition(w models.AnalysisWindow, frames []models.Frame) bool {
	return true
}

func (r *desyncRule) Detect(w models.AnalysisWindow, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.DetectedIssue {
	slice := w.Frames(frames)
	scale := prof.Scale(models.IssueDesync)

	var peak float64
	var peakUs int64
	for _, f := range slice {
		for ai := 0; ai < 3; ai++ {
			g := math.Abs(f.Gyro[ai])
			if g > peak && math.Abs(f.Setpoint[ai]) < desyncMaxSetpoint {
				peak = g
				peakUs = f.TimeUs
			}
		}
	}
	if peak < desyncSpikeMin*scale {
		return nil
	}

	issue := models.DetectedIssue{
		ID:       r.ids.NewID(),
		Type:     models.IssueDesync,
		Severity: severityStep(peak, desyncSpikeMed*scale, desyncSpikeHi*scale),
		Axis:     w.Axis,
		Range:    w.Range,
		Description: fmt.Sprintf("Uncommanded %.0f deg/s rotation at %.1fs, consistent with a motor desync",
			peak, utils.UsToSeconds(peakUs)),
		Metrics: models.IssueMetrics{
			Amplitude: models.Float(peak),
		},
		Confidence: confidence(r.BaseConfidence(), 0.0002, peak-desyncSpikeMin, 0.95),
	}
	return []models.DetectedIssue{issue}
}

func (r *desyncRule) Recommend(issues []models.DetectedIssue, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.Recommendation {
	recs := make([]models.Recommendation, 0, len(issues))
	for _, issue := range ownedIssues(r, issues) {
		recs = append(recs, models.Recommendation{
			ID:         r.ids.NewID(),
			IssueID:    issue.ID,
			Type:       models.RecommendationHardware,
			Priority:   priorityFor(issue.Severity, 4),
			Confidence: issue.Confidence,
			Title:      "Inspect ESC and motor wiring",
			Description: "Check motor connections, ESC solder joints, and ESC firmware timing " +
				"settings. Repeated desyncs will crash the craft and can burn out an ESC.",
		})
	}
	return recs
}
