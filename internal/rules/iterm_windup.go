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
	windupIRMSMin    = 30.0
	windupIRMSMedium = 60.0
	windupIRMSHigh   = 100.0
	windupShareMin   = 0.5 // I contribution to the PID sum
)

type itermWindupRule struct {
	ids idgen.Generator
}

func newITermWindupRule(ids idgen.Generator) Rule { return &itermWindupRule{ids: ids} }

func (r *itermWindupRule) ID() string { return "iterm-windup" }

func (r *itermWindupRule) IssueTypes() []models.IssueType {
	return []models.IssueType{models.IssueITermWindup}
}

func (r *itermWindupRule) Axes() []models.Axis { return models.AllAxes }

func (r *itermWindupRule) BaseConfidence() float64 { return 0.6 }

func (r *itermWindupRule) Condition(w models.AnalysisWindow, frames []models.Frame) bool {
	return w.HasStickInput || w.Phase == models.PhaseManeuver
}

func (r *itermWindupRule) Detect(w models.AnalysisWindow, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.DetectedIssue {
	slice := w.Frames(frames)

	iRMS := dsp.RMS(dsp.AxisSignal(slice, w.Axis, func(f models.Frame, ai int) float64 { return f.I[ai] }))
	sumRMS := dsp.RMS(dsp.AxisSignal(slice, w.Axis, func(f models.Frame, ai int) float64 { return f.PIDSum[ai] }))

	scale := prof.Scale(models.IssueITermWindup)
	if iRMS < windupIRMSMin*scale || sumRMS < 1e-6 {
		return nil
	}
	share := iRMS / sumRMS
	if share < windupShareMin {
		return nil
	}

	errRMS := dsp.RMS(dsp.ErrorSignal(slice, w.Axis))
	spRMS := w.RMSSetpoint
	normalized := 0.0
	if spRMS > 1e-6 {
		normalized = errRMS / spRMS
	}

	issue := models.DetectedIssue{
		ID:       r.ids.NewID(),
		Type:     models.IssueITermWindup,
		Severity: severityStep(iRMS, windupIRMSMedium*scale, windupIRMSHigh*scale),
		Axis:     w.Axis,
		Range:    w.Range,
		Description: fmt.Sprintf("I term dominates the %s mixer output (%.0f%% of the PID sum)",
			w.Axis, math.Min(share, 2.0)*100),
		Metrics: models.IssueMetrics{
			RMSError:        models.Float(errRMS),
			NormalizedError: models.Float(normalized),
		},
		Confidence: confidence(r.BaseConfidence(), 0.25, share-windupShareMin, 0.85),
	}
	return []models.DetectedIssue{issue}
}

func (r *itermWindupRule) Recommend(issues []models.DetectedIssue, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.Recommendation {
	recs := make([]models.Recommendation, 0, len(issues))
	for _, issue := range ownedIssues(r, issues) {
		recs = append(recs, models.Recommendation{
			ID:         r.ids.NewID(),
			IssueID:    issue.ID,
			Type:       models.RecommendationTuning,
			Priority:   priorityFor(issue.Severity, 3),
			Confidence: issue.Confidence,
			Title:      fmt.Sprintf("Reduce %s I-term accumulation", issue.Axis),
			Description: "The integral term is carrying most of the correction during " +
				"maneuvers, which causes lag and flyaways at the stops.",
			Changes: []models.ParameterChange{
				{
					Parameter:         models.ParamIGain,
					Axis:              issue.Axis,
					RecommendedChange: "-10%",
					Explanation:       "Slow the integral accumulation",
				},
				{
					Parameter:         models.ParamAntiGravity,
					RecommendedChange: "+10%",
					Explanation:       "Cover throttle transients without a large standing I",
				},
			},
		})
	}
	return recs
}
