package rules

import (
	"fmt"

	"github.com/rotorlab/tune-engine/internal/dsp"
	"github.com/rotorlab/tune-engine/internal/idgen"
	"github.com/rotorlab/tune-engine/internal/models"
	"github.com/rotorlab/tune-engine/internal/profile"
)

const (
	bouncebackOvershootMin    = 0.15
	bouncebackOvershootMedium = 0.30
	bouncebackOvershootHigh   = 0.50

	settlingTimeMinMs    = 100.0
	settlingTimeMediumMs = 200.0
	settlingTimeHighMs   = 400.0
)

type bouncebackRule struct {
	ids  idgen.Generator
	deep bool
}

func newBouncebackRule(ids idgen.Generator, deep bool) Rule {
	return &bouncebackRule{ids: ids, deep: deep}
}

func (r *bouncebackRule) ID() string { return "bounceback" }

func (r *bouncebackRule) IssueTypes() []models.IssueType {
	return []models.IssueType{models.IssueBounceback, models.IssueSlowSettling}
}

func (r *bouncebackRule) Axes() []models.Axis { return models.AllAxes }

func (r *bouncebackRule) BaseConfidence() float64 { return 0.65 }

func (r *bouncebackRule) Condition(w models.AnalysisWindow, frames []models.Frame) bool {
	if r.deep {
		return w.HasStickInput || w.Phase == models.PhaseManeuver
	}
	return w.Phase == models.PhaseManeuver
}

func (r *bouncebackRule) Detect(w models.AnalysisWindow, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.DetectedIssue {
	result := dsp.DetectBounceback(w.Frames(frames), w.Axis, meta.SampleRateHz)
	if !result.Detected {
		return nil
	}

	var issues []models.DetectedIssue

	scale := prof.Scale(models.IssueBounceback)
	if result.Overshoot >= bouncebackOvershootMin*scale {
		issues = append(issues, models.DetectedIssue{
			ID:       r.ids.NewID(),
			Type:     models.IssueBounceback,
			Severity: severityStep(result.Overshoot, bouncebackOvershootMedium*scale, bouncebackOvershootHigh*scale),
			Axis:     w.Axis,
			Range:    w.Range,
			Description: fmt.Sprintf("%s bounces back %.0f%% of the commanded rate after stick release",
				w.Axis, result.Overshoot*100),
			Metrics: models.IssueMetrics{
				Overshoot:      models.Float(result.Overshoot),
				SettlingTimeMs: models.Float(result.SettlingTimeMs),
				PeakTimeMs:     models.Float(result.PeakTimeMs),
			},
			Confidence: confidence(r.BaseConfidence(), 0.5, result.Overshoot, 0.95),
		})
	}

	settleScale := prof.Scale(models.IssueSlowSettling)
	if result.SettlingTimeMs >= settlingTimeMinMs*settleScale {
		issues = append(issues, models.DetectedIssue{
			ID:       r.ids.NewID(),
			Type:     models.IssueSlowSettling,
			Severity: severityStep(result.SettlingTimeMs, settlingTimeMediumMs*settleScale, settlingTimeHighMs*settleScale),
			Axis:     w.Axis,
			Range:    w.Range,
			Description: fmt.Sprintf("%s takes %.0f ms to settle after stick release",
				w.Axis, result.SettlingTimeMs),
			Metrics: models.IssueMetrics{
				SettlingTimeMs: models.Float(result.SettlingTimeMs),
				Overshoot:      models.Float(result.Overshoot),
			},
			Confidence: confidence(r.BaseConfidence(), 0.001, result.SettlingTimeMs, 0.9),
		})
	}
	return issues
}

func (r *bouncebackRule) Recommend(issues []models.DetectedIssue, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.Recommendation {
	recs := make([]models.Recommendation, 0, len(issues))
	for _, issue := range ownedIssues(r, issues) {
		switch issue.Type {
		case models.IssueBounceback:
			recs = append(recs, models.Recommendation{
				ID:         r.ids.NewID(),
				IssueID:    issue.ID,
				Type:       models.RecommendationTuning,
				Priority:   priorityFor(issue.Severity, 4),
				Confidence: issue.Confidence,
				Title:      fmt.Sprintf("Damp %s stick-release bounceback", issue.Axis),
				Description: "The craft overshoots past neutral when the stick is released. " +
					"More D damps the stop; a touch less I reduces the stored correction.",
				Changes: []models.ParameterChange{
					{
						Parameter:         models.ParamDGain,
						Axis:              issue.Axis,
						RecommendedChange: "+10%",
						Explanation:       "More D damps the flyback",
					},
					{
						Parameter:         models.ParamIGain,
						Axis:              issue.Axis,
						RecommendedChange: "-5%",
						Explanation:       "Less accumulated I to unwind at the stop",
					},
				},
			})
		case models.IssueSlowSettling:
			recs = append(recs, models.Recommendation{
				ID:         r.ids.NewID(),
				IssueID:    issue.ID,
				Type:       models.RecommendationTuning,
				Priority:   priorityFor(issue.Severity, 3),
				Confidence: issue.Confidence,
				Title:      fmt.Sprintf("Speed up %s settling", issue.Axis),
				Description: "The axis wanders before coming to rest after a move. A little " +
					"more I holds the craft against the residual error.",
				Changes: []models.ParameterChange{
					{
						Parameter:         models.ParamIGain,
						Axis:              issue.Axis,
						RecommendedChange: "+5%",
						Explanation:       "More I to pin the axis once the move ends",
					},
				},
			})
		}
	}
	return recs
}
