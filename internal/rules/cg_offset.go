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
	cgMeanIMin = 20.0
	cgMeanIMed = 35.0
	cgMeanIHi  = 60.0
	// The standing I must be one-sided, not oscillation averaging out.
	cgConsistency = 0.8
)

// cgOffsetRule looks for a persistent one-sided pitch I term in hover: the
// loop holding the nose up against a battery mounted too far back (or
// forward). Conventionally reported on pitch.
type cgOffsetRule struct {
	ids idgen.Generator
}

func newCGOffsetRule(ids idgen.Generator) Rule { return &cgOffsetRule{ids: ids} }

func (r *cgOffsetRule) ID() string { return "cg-offset" }

func (r *cgOffsetRule) IssueTypes() []models.IssueType {
	return []models.IssueType{models.IssueCGOffset}
}

func (r *cgOffsetRule) Axes() []models.Axis { return []models.Axis{models.AxisPitch} }

func (r *cgOffsetRule) BaseConfidence() float64 { return 0.55 }

func (r *cgOffsetRule) Condition(w models.AnalysisWindow, frames []models.Frame) bool {
	return w.Phase == models.PhaseHover
}

func (r *cgOffsetRule) Detect(w models.AnalysisWindow, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.DetectedIssue {
	slice := w.Frames(frames)
	iSignal := dsp.AxisSignal(slice, w.Axis, func(f models.Frame, ai int) float64 { return f.I[ai] })

	meanI := mean(iSignal)
	absMean := math.Abs(meanI)
	rms := dsp.RMS(iSignal)

	scale := prof.Scale(models.IssueCGOffset)
	if absMean < cgMeanIMin*scale || rms < 1e-6 {
		return nil
	}
	if absMean/rms < cgConsistency {
		return nil
	}

	direction := "rearward"
	if meanI < 0 {
		direction = "forward"
	}
	issue := models.DetectedIssue{
		ID:       r.ids.NewID(),
		Type:     models.IssueCGOffset,
		Severity: severityStep(absMean, cgMeanIMed*scale, cgMeanIHi*scale),
		Axis:     w.Axis,
		Range:    w.Range,
		Description: fmt.Sprintf("Standing pitch correction in hover suggests a %s center of gravity",
			direction),
		Metrics: models.IssueMetrics{
			RMSError:        models.Float(absMean),
			NormalizedError: models.Float(absMean / rms),
		},
		Confidence: confidence(r.BaseConfidence(), 0.005, absMean, 0.8),
	}
	return []models.DetectedIssue{issue}
}

func (r *cgOffsetRule) Recommend(issues []models.DetectedIssue, frames []models.Frame, prof *profile.QuadProfile, meta models.LogMetadata) []models.Recommendation {
	recs := make([]models.Recommendation, 0, len(issues))
	for _, issue := range ownedIssues(r, issues) {
		recs = append(recs, models.Recommendation{
			ID:         r.ids.NewID(),
			IssueID:    issue.ID,
			Type:       models.RecommendationHardware,
			Priority:   priorityFor(issue.Severity, 2),
			Confidence: issue.Confidence,
			Title:      "Rebalance the center of gravity",
			Description: "Slide the battery until the craft balances level at the prop line. " +
				"A centered CG frees the pitch loop from holding a constant correction.",
		})
	}
	return recs
}
