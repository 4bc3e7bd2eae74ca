package rules

import (
	"fmt"

	"github.com/rotorlab/tune-engine/internal/idgen"
	"github.com/rotorlab/tune-engine/internal/models"
	"github.com/rotorlab/tune-engine/internal/profile"
)

const (
	sagPerCellMin  = 0.35
	sagPerCellMed  = 0.5
	sagPerCellHi   = 0.7
	sagMinThrottle = 1500
	defaultCells   = 4
)

// voltageSagRule measures how far the pack voltage drops under load within a
// window. Heavy sag points at a tired battery or undersized wiring, and it
// starves the motors exactly when authority matters most.
type voltageSagRule struct {
	ids idgen.Generator
}

func newVoltageSagRule(ids idgen.Generator) Rule { return &voltageSagRule{ids: ids} }

func (r *voltageSagRule) ID() string { return "voltage-sag" }

func (r *voltageSagRule) IssueTypes() []models.IssueType {
	return []models.IssueType{models.IssueVoltageSag}
}

func (r *voltageSagRule) Axes() []models.Axis { return []models.Axis{models.AxisRoll} }

func (r *voltageSagRule) BaseConfidence() float64 { return 0.6 }

func (r *voltageSagRule) Condition(w models.AnalysisWindow, frames []models.Frame) bool {
	return w.Phase == models.PhasePunch || w.AvgThrottle > sagMinThrottle
}

func (r *voltageSagRule) Detect(w models.AnalysisWindow, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.DetectedIssue {
	slice := w.Frames(frames)

	var rest, low float64
	for _, f := range slice {
		if f.Vbat <= 0 {
			continue
		}
		if f.Vbat > rest {
			rest = f.Vbat
		}
		if low == 0 || f.Vbat < low {
			low = f.Vbat
		}
	}
	if rest == 0 {
		return nil
	}

	cells := meta.BatteryCells
	if cells <= 0 {
		cells = defaultCells
	}
	dropPerCell := (rest - low) / float64(cells)

	scale := prof.Scale(models.IssueVoltageSag)
	if dropPerCell < sagPerCellMin*scale {
		return nil
	}

	issue := models.DetectedIssue{
		ID:       r.ids.NewID(),
		Type:     models.IssueVoltageSag,
		Severity: severityStep(dropPerCell, sagPerCellMed*scale, sagPerCellHi*scale),
		Axis:     w.Axis,
		Range:    w.Range,
		Description: fmt.Sprintf("Pack sags %.2fV per cell under load (%.1fV to %.1fV)",
			dropPerCell, rest, low),
		Metrics: models.IssueMetrics{
			Amplitude: models.Float(dropPerCell),
		},
		Confidence: confidence(r.BaseConfidence(), 0.5, dropPerCell-sagPerCellMin, 0.9),
	}
	return []models.DetectedIssue{issue}
}

func (r *voltageSagRule) Recommend(issues []models.DetectedIssue, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.Recommendation {
	recs := make([]models.Recommendation, 0, len(issues))
	for _, issue := range ownedIssues(r, issues) {
		recs = append(recs, models.Recommendation{
			ID:         r.ids.NewID(),
			IssueID:    issue.ID,
			Type:       models.RecommendationHardware,
			Priority:   priorityFor(issue.Severity, 2),
			Confidence: issue.Confidence,
			Title:      "Check battery health",
			Description: "Measure the pack's internal resistance and compare against a fresh " +
				"battery. Worn cells, thin power leads, and cold packs all sag under punch-outs.",
		})
	}
	return recs
}
