package engine

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/rotorlab/tune-engine/internal/idgen"
	"github.com/rotorlab/tune-engine/internal/models"
)

// minTrendFlightUs gates trend analysis: anything shorter has too few
// independent sightings to call a direction.
const minTrendFlightUs int64 = 30_000_000

const (
	minTrendSightings = 3
	earlyLateShare    = 0.7

	// slopeTrendCutoff on the normalized regression slope. Empirical.
	slopeTrendCutoff = 0.3
)

// mechanicalTypes are the categories whose sudden appearance mid-flight marks
// physical damage rather than a tune problem.
var mechanicalTypes = map[models.IssueType]bool{
	models.IssueBearingWear:    true,
	models.IssueDesync:         true,
	models.IssueMotorImbalance: true,
	models.IssueFrameResonance: true,
	models.IssueRPMNoise:       true,
}

// TemporalProgressionAnalyzer classifies how each recurring (type, axis)
// issue evolved across the flight and synthesizes meta-issues for the
// patterns that imply heat or damage.
type TemporalProgressionAnalyzer struct {
	ids idgen.Generator
}

func NewTemporalProgressionAnalyzer(ids idgen.Generator) *TemporalProgressionAnalyzer {
	return &TemporalProgressionAnalyzer{ids: ids}
}

// Analyze annotates the deduplicated issues in place from the raw sighting
// stream and returns synthesized meta-issues. A no-op for short or empty
// flights.
func (a *TemporalProgressionAnalyzer) Analyze(raw, deduped []models.DetectedIssue, frames []models.Frame) []models.DetectedIssue {
	if len(frames) == 0 {
		return nil
	}
	startUs := frames[0].TimeUs
	endUs := frames[len(frames)-1].TimeUs
	duration := endUs - startUs
	if duration < minTrendFlightUs {
		return nil
	}

	groups := make(map[issueKey][]models.DetectedIssue)
	order := make([]issueKey, 0)
	for _, issue := range raw {
		key := issueKey{Type: issue.Type, Axis: issue.Axis}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], issue)
	}

	worsening := make(map[models.Axis][]models.IssueType)
	sudden := make(map[models.Axis][]models.IssueType)

	for _, key := range order {
		group := groups[key]
		if len(group) < minTrendSightings {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].Range.StartUs < group[j].Range.StartUs
		})

		pattern := classifyTrend(group, startUs, duration)
		annotate(deduped, key, pattern)

		switch pattern.Trend {
		case models.TrendWorsening:
			worsening[key.Axis] = append(worsening[key.Axis], key.Type)
		case models.TrendSuddenOnset:
			if mechanicalTypes[key.Type] {
				sudden[key.Axis] = append(sudden[key.Axis], key.Type)
			}
		}
	}

	flight := models.TimeRange{StartUs: startUs, EndUs: endUs}
	return a.synthesizeMetaIssues(worsening, sudden, flight)
}

// classifyTrend applies the quartile-occupancy heuristics first and falls
// back to a regression slope over the severity proxy.
func classifyTrend(group []models.DetectedIssue, startUs, duration int64) models.TemporalPattern {
	n := len(group)
	quartiles := [4]int{}
	firstHalf := 0
	for _, issue := range group {
		mid := (issue.Range.StartUs+issue.Range.EndUs)/2 - startUs
		pos := float64(mid) / float64(duration)
		q := int(pos * 4)
		if q > 3 {
			q = 3
		}
		if q < 0 {
			q = 0
		}
		quartiles[q]++
		if pos < 0.5 {
			firstHalf++
		}
	}
	secondHalf := n - firstHalf

	pattern := models.TemporalPattern{Occurrences: n}
	switch {
	case firstHalf <= 1 && secondHalf >= 3:
		pattern.Trend = models.TrendSuddenOnset
		pattern.Description = "Absent early, then appears abruptly partway through the flight"
		return pattern
	case float64(firstHalf)/float64(n) > earlyLateShare && quartiles[3] == 0:
		pattern.Trend = models.TrendEarlyOnly
		pattern.Description = "Present early and gone by the end, typical of a cold start"
		return pattern
	case float64(secondHalf)/float64(n) > earlyLateShare && quartiles[0] == 0:
		pattern.Trend = models.TrendLateOnset
		pattern.Description = "Builds up late in the flight"
		return pattern
	}

	slope, ok := proxySlope(group, startUs, duration)
	pattern.Slope = slope
	switch {
	case !ok:
		pattern.Trend = models.TrendStable
		pattern.Description = "Recurs with no clear direction"
	case slope > slopeTrendCutoff:
		pattern.Trend = models.TrendWorsening
		pattern.Description = "Grows steadily worse over the flight"
	case slope < -slopeTrendCutoff:
		pattern.Trend = models.TrendImproving
		pattern.Description = "Fades as the flight goes on"
	default:
		pattern.Trend = models.TrendStable
		pattern.Description = "Recurs at a steady level throughout"
	}
	return pattern
}

// proxySlope regresses a normalized severity proxy against normalized flight
// time. Returns ok=false when the proxy is degenerate.
func proxySlope(group []models.DetectedIssue, startUs, duration int64) (float64, bool) {
	xs := make([]float64, 0, len(group))
	ys := make([]float64, 0, len(group))
	for _, issue := range group {
		mid := (issue.Range.StartUs+issue.Range.EndUs)/2 - startUs
		xs = append(xs, float64(mid)/float64(duration))
		ys = append(ys, severityProxy(issue))
	}

	maxY := 0.0
	for _, y := range ys {
		if math.Abs(y) > maxY {
			maxY = math.Abs(y)
		}
	}
	if maxY < 1e-12 {
		return 0, false
	}
	for i := range ys {
		ys[i] /= maxY
	}

	_, slope := stat.LinearRegression(xs, ys, nil, false)
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return 0, false
	}
	return slope, true
}

// severityProxy picks the most direction-meaningful metric an issue carries.
func severityProxy(issue models.DetectedIssue) float64 {
	m := issue.Metrics
	for _, v := range []*float64{m.Amplitude, m.NoiseFloor, m.Overshoot, m.RMSError, m.MotorSaturationPct} {
		if v != nil {
			return *v
		}
	}
	return issue.Confidence
}

// annotate attaches the pattern to the matching deduplicated issue and
// demotes severity once for patterns that resolved themselves in flight.
func annotate(deduped []models.DetectedIssue, key issueKey, pattern models.TemporalPattern) {
	for i := range deduped {
		if deduped[i].Type != key.Type || deduped[i].Axis != key.Axis {
			continue
		}
		p := pattern
		deduped[i].Temporal = &p
		if pattern.Trend == models.TrendEarlyOnly || pattern.Trend == models.TrendImproving {
			deduped[i].Severity = models.DemoteSeverity(deduped[i].Severity)
		}
		return
	}
}

func (a *TemporalProgressionAnalyzer) synthesizeMetaIssues(worsening, sudden map[models.Axis][]models.IssueType, flight models.TimeRange) []models.DetectedIssue {
	var metas []models.DetectedIssue
	for _, axis := range models.AllAxes {
		if types := worsening[axis]; len(types) >= 2 {
			metas = append(metas, models.DetectedIssue{
				ID:       a.ids.NewID(),
				Type:     models.IssueThermalDegradation,
				Severity: models.SeverityMedium,
				Axis:     axis,
				Range:    flight,
				Description: fmt.Sprintf("%d issue types worsen together on %s over the flight",
					len(types), axis),
				Confidence: 0.6,
			})
		}
		if types := sudden[axis]; len(types) > 0 {
			metas = append(metas, models.DetectedIssue{
				ID:       a.ids.NewID(),
				Type:     models.IssueMechanicalEvent,
				Severity: models.SeverityHigh,
				Axis:     axis,
				Range:    flight,
				Description: fmt.Sprintf("%s appeared abruptly mid-flight on %s",
					types[0], axis),
				Confidence: 0.7,
			})
		}
	}
	return metas
}
