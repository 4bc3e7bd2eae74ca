package engine

import (
	"fmt"
	"sort"

	"github.com/rotorlab/tune-engine/internal/idgen"
	"github.com/rotorlab/tune-engine/internal/models"
)

// Confidence shaping for synthesized cross-axis recommendations.
const (
	crossAxisConfidenceScale = 0.85
	crossAxisConfidenceCap   = 0.8
)

// CrossAxisCorrelator classifies how each issue type spreads across the
// craft's axes and synthesizes hardware-check recommendations for the
// patterns that point away from tuning.
type CrossAxisCorrelator struct {
	ids idgen.Generator
}

func NewCrossAxisCorrelator(ids idgen.Generator) *CrossAxisCorrelator {
	return &CrossAxisCorrelator{ids: ids}
}

// Correlate annotates issues in place with their axis pattern and returns any
// synthesized recommendations. Severity is never altered here.
func (c *CrossAxisCorrelator) Correlate(issues []models.DetectedIssue) []models.Recommendation {
	byType := make(map[models.IssueType][]int)
	order := make([]models.IssueType, 0)
	for i, issue := range issues {
		if models.GlobalIssueTypes[issue.Type] {
			continue
		}
		if _, seen := byType[issue.Type]; !seen {
			order = append(order, issue.Type)
		}
		byType[issue.Type] = append(byType[issue.Type], i)
	}

	var recs []models.Recommendation
	for _, t := range order {
		idxs := byType[t]
		axes := affectedAxes(issues, idxs)
		pattern, desc := classifyAxisPattern(axes)

		ctx := models.CrossAxisContext{
			Pattern:      pattern,
			AffectedAxes: axes,
			Description:  desc,
		}
		for _, i := range idxs {
			cc := ctx
			issues[i].CrossAxis = &cc
		}

		if pattern != models.PatternAllAxes && pattern != models.PatternAsymmetric {
			continue
		}
		anchor := highestSeverity(issues, idxs)
		recs = append(recs, c.synthesize(t, pattern, issues, idxs, anchor))
	}
	return recs
}

// affectedAxes returns the distinct axes of a group in conventional order.
func affectedAxes(issues []models.DetectedIssue, idxs []int) []models.Axis {
	present := make(map[models.Axis]bool, 3)
	for _, i := range idxs {
		present[issues[i].Axis] = true
	}
	axes := make([]models.Axis, 0, len(present))
	for _, a := range models.AllAxes {
		if present[a] {
			axes = append(axes, a)
		}
	}
	return axes
}

func classifyAxisPattern(axes []models.Axis) (models.AxisPattern, string) {
	has := make(map[models.Axis]bool, len(axes))
	for _, a := range axes {
		has[a] = true
	}
	switch {
	case len(axes) == 3:
		return models.PatternAllAxes,
			"Affects all three axes; points at a craft-wide cause rather than one loop's tune"
	case has[models.AxisRoll] && has[models.AxisPitch]:
		return models.PatternRollPitchOnly,
			"Affects roll and pitch but not yaw; typical of tune or frame issues on the main axes"
	case len(axes) == 1 && has[models.AxisYaw]:
		return models.PatternYawOnly,
			"Affects only yaw; yaw authority is the weakest so it often shows problems first"
	case len(axes) == 1:
		return models.PatternSingleAxis,
			"Confined to a single axis; usually a per-axis tuning problem"
	default:
		return models.PatternAsymmetric,
			"Affects an unusual pair of axes; asymmetry suggests a mechanical cause"
	}
}

func highestSeverity(issues []models.DetectedIssue, idxs []int) int {
	best := idxs[0]
	for _, i := range idxs[1:] {
		if issues[i].Severity.Rank() > issues[best].Severity.Rank() {
			best = i
		}
	}
	return best
}

func (c *CrossAxisCorrelator) synthesize(t models.IssueType, pattern models.AxisPattern, issues []models.DetectedIssue, idxs []int, anchor int) models.Recommendation {
	related := make([]string, 0, len(idxs)-1)
	for _, i := range idxs {
		if i != anchor {
			related = append(related, issues[i].ID)
		}
	}
	sort.Strings(related)

	conf := issues[anchor].Confidence * crossAxisConfidenceScale
	if conf > crossAxisConfidenceCap {
		conf = crossAxisConfidenceCap
	}

	title := fmt.Sprintf("Inspect hardware: %s on every axis", t)
	desc := "The same symptom appears on all three axes at once. Tuning one loop " +
		"will not fix that; check props, motor mounts, and the frame before retuning."
	if pattern == models.PatternAsymmetric {
		title = fmt.Sprintf("Inspect hardware: asymmetric %s", t)
		desc = "The symptom spans an unusual pair of axes. Look for one damaged prop " +
			"or a loose motor rather than adjusting gains."
	}

	return models.Recommendation{
		ID:              c.ids.NewID(),
		IssueID:         issues[anchor].ID,
		Type:            models.RecommendationHardware,
		Priority:        7,
		Confidence:      conf,
		Title:           title,
		Description:     desc,
		RelatedIssueIDs: related,
	}
}
