package rules

import (
	"fmt"

	"github.com/rotorlab/tune-engine/internal/dsp"
	"github.com/rotorlab/tune-engine/internal/idgen"
	"github.com/rotorlab/tune-engine/internal/models"
	"github.com/rotorlab/tune-engine/internal/profile"
)

const (
	ffOvershootRatioMin    = 1.2
	ffOvershootRatioMedium = 1.8
	ffOvershootRatioHigh   = 2.5

	lagMsMin    = 15.0
	lagMsMedium = 25.0
	lagMsHigh   = 40.0
	// Below this FF share of the setpoint we blame missing feedforward for
	// the lag rather than filtering.
	lagMaxFFShare = 0.3
)

type feedforwardRule struct {
	ids idgen.Generator
}

func newFeedforwardRule(ids idgen.Generator) Rule { return &feedforwardRule{ids: ids} }

func (r *feedforwardRule) ID() string { return "feedforward" }

func (r *feedforwardRule) IssueTypes() []models.IssueType {
	return []models.IssueType{models.IssueFFOvershoot, models.IssueSetpointLag}
}

func (r *feedforwardRule) Axes() []models.Axis { return models.AllAxes }

func (r *feedforwardRule) BaseConfidence() float64 { return 0.55 }

func (r *feedforwardRule) Condition(w models.AnalysisWindow, frames []models.Frame) bool {
	return w.HasStickInput
}

func (r *feedforwardRule) Detect(w models.AnalysisWindow, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.DetectedIssue {
	slice := w.Frames(frames)
	ffRMS := dsp.RMS(dsp.AxisSignal(slice, w.Axis, func(f models.Frame, ai int) float64 { return f.FF[ai] }))
	spRMS := w.RMSSetpoint
	if spRMS < 1e-6 {
		return nil
	}
	share := ffRMS / spRMS
	lag := dsp.PhaseLagMs(slice, w.Axis, meta.SampleRateHz)

	var issues []models.DetectedIssue

	scale := prof.Scale(models.IssueFFOvershoot)
	if share >= ffOvershootRatioMin*scale {
		issues = append(issues, models.DetectedIssue{
			ID:       r.ids.NewID(),
			Type:     models.IssueFFOvershoot,
			Severity: severityStep(share, ffOvershootRatioMedium*scale, ffOvershootRatioHigh*scale),
			Axis:     w.Axis,
			Range:    w.Range,
			Description: fmt.Sprintf("Feedforward output on %s runs %.1fx the commanded rate",
				w.Axis, share),
			Metrics: models.IssueMetrics{
				FeedforwardRMS: models.Float(ffRMS),
				AmplitudeRatio: models.Float(share),
			},
			Confidence: confidence(r.BaseConfidence(), 0.15, share-ffOvershootRatioMin, 0.85),
		})
	}

	lagScale := prof.Scale(models.IssueSetpointLag)
	if lag >= lagMsMin*lagScale && share < lagMaxFFShare {
		issues = append(issues, models.DetectedIssue{
			ID:       r.ids.NewID(),
			Type:     models.IssueSetpointLag,
			Severity: severityStep(lag, lagMsMedium*lagScale, lagMsHigh*lagScale),
			Axis:     w.Axis,
			Range:    w.Range,
			Description: fmt.Sprintf("%s trails the stick by %.0f ms with little feedforward help",
				w.Axis, lag),
			Metrics: models.IssueMetrics{
				PhaseLagMs:     models.Float(lag),
				FeedforwardRMS: models.Float(ffRMS),
			},
			Confidence: confidence(r.BaseConfidence(), 0.01, lag, 0.85),
		})
	}
	return issues
}

func (r *feedforwardRule) Recommend(issues []models.DetectedIssue, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.Recommendation {
	recs := make([]models.Recommendation, 0, len(issues))
	for _, issue := range ownedIssues(r, issues) {
		switch issue.Type {
		case models.IssueFFOvershoot:
			recs = append(recs, models.Recommendation{
				ID:         r.ids.NewID(),
				IssueID:    issue.ID,
				Type:       models.RecommendationTuning,
				Priority:   priorityFor(issue.Severity, 3),
				Confidence: issue.Confidence,
				Title:      fmt.Sprintf("Reduce %s feedforward", issue.Axis),
				Description: "Feedforward is kicking the craft past the commanded rate on " +
					"fast stick movements.",
				Changes: []models.ParameterChange{
					{
						Parameter:         models.ParamFeedforward,
						Axis:              issue.Axis,
						RecommendedChange: "-15%",
						Explanation:       "Soften the predictive kick",
					},
				},
			})
		case models.IssueSetpointLag:
			recs = append(recs, models.Recommendation{
				ID:         r.ids.NewID(),
				IssueID:    issue.ID,
				Type:       models.RecommendationTuning,
				Priority:   priorityFor(issue.Severity, 3),
				Confidence: issue.Confidence,
				Title:      fmt.Sprintf("Increase %s feedforward", issue.Axis),
				Description: "The axis lags the stick and feedforward is barely contributing; " +
					"more FF closes the gap without destabilising the loop.",
				Changes: []models.ParameterChange{
					{
						Parameter:         models.ParamFeedforward,
						Axis:              issue.Axis,
						RecommendedChange: "+15%",
						Explanation:       "Lead the setpoint to cut tracking lag",
					},
				},
			})
		}
	}
	return recs
}
