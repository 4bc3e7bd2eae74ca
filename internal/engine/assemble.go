package engine

import (
	"sort"

	"github.com/rotorlab/tune-engine/internal/models"
	"github.com/rotorlab/tune-engine/internal/utils"
)

// segmentSlices is the fixed number of timeline slices segments are built
// from before adjacent same-phase slices are merged.
const segmentSlices = 20

// Health bucket thresholds on deduplicated issue counts.
const (
	poorHighIssues     = 3
	needsWorkMedIssues = 5
	goodLowIssues      = 3
)

// ResultAssembler produces the final sorted, summarized result.
type ResultAssembler struct{}

func NewResultAssembler() *ResultAssembler { return &ResultAssembler{} }

// Assemble sorts issues and recommendations, computes the summary, and builds
// the phase-merged flight segments.
func (a *ResultAssembler) Assemble(issues []models.DetectedIssue, recs []models.Recommendation, windows []models.AnalysisWindow, frames []models.Frame) models.AnalysisResult {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Priority > recs[j].Priority
	})

	inferred := inferredPriorities(issues, recs)
	sort.SliceStable(issues, func(i, j int) bool {
		if issues[i].Severity.Rank() != issues[j].Severity.Rank() {
			return issues[i].Severity.Rank() > issues[j].Severity.Rank()
		}
		if inferred[issues[i].ID] != inferred[issues[j].ID] {
			return inferred[issues[i].ID] > inferred[issues[j].ID]
		}
		return issues[i].Confidence > issues[j].Confidence
	})

	return models.AnalysisResult{
		Issues:          issues,
		Recommendations: recs,
		Summary:         summarize(issues, windows, frames),
		Segments:        buildSegments(issues, windows, frames),
	}
}

// inferredPriorities maps each issue id to the highest priority of any
// recommendation referencing it, zero when none does.
func inferredPriorities(issues []models.DetectedIssue, recs []models.Recommendation) map[string]int {
	out := make(map[string]int, len(issues))
	bump := func(id string, p int) {
		if p > out[id] {
			out[id] = p
		}
	}
	for _, rec := range recs {
		bump(rec.IssueID, rec.Priority)
		for _, id := range rec.RelatedIssueIDs {
			bump(id, rec.Priority)
		}
	}
	return out
}

func summarize(issues []models.DetectedIssue, windows []models.AnalysisWindow, frames []models.Frame) models.Summary {
	s := models.Summary{
		TotalIssues:     len(issues),
		WindowsAnalyzed: len(windows),
	}
	if len(frames) > 0 {
		s.DurationS = utils.UsToSeconds(frames[len(frames)-1].TimeUs - frames[0].TimeUs)
	}
	for _, issue := range issues {
		switch issue.Severity {
		case models.SeverityHigh:
			s.HighIssues++
		case models.SeverityMedium:
			s.MediumIssues++
		default:
			s.LowIssues++
		}
	}

	switch {
	case s.HighIssues > poorHighIssues:
		s.Health = models.HealthPoor
	case s.HighIssues > 0 || s.MediumIssues > needsWorkMedIssues:
		s.Health = models.HealthNeedsWork
	case s.MediumIssues > 0 || s.LowIssues > goodLowIssues:
		s.Health = models.HealthGood
	default:
		s.Health = models.HealthExcellent
	}
	return s
}

// buildSegments slices the flight into fixed portions, tags each with the
// dominant phase of the windows it overlaps, merges adjacent same-phase
// slices, and counts issue occurrences inside each merged range.
func buildSegments(issues []models.DetectedIssue, windows []models.AnalysisWindow, frames []models.Frame) []models.FlightSegment {
	if len(frames) < 2 {
		return nil
	}
	startUs := frames[0].TimeUs
	endUs := frames[len(frames)-1].TimeUs
	if endUs <= startUs {
		return nil
	}

	sliceUs := (endUs - startUs) / segmentSlices
	if sliceUs <= 0 {
		sliceUs = 1
	}

	segments := make([]models.FlightSegment, 0, segmentSlices)
	for i := 0; i < segmentSlices; i++ {
		r := models.TimeRange{
			StartUs: startUs + int64(i)*sliceUs,
			EndUs:   startUs + int64(i+1)*sliceUs,
		}
		if i == segmentSlices-1 {
			r.EndUs = endUs
		}
		phase := dominantPhase(windows, r)
		if n := len(segments); n > 0 && segments[n-1].Phase == phase {
			segments[n-1].Range.EndUs = r.EndUs
			continue
		}
		segments = append(segments, models.FlightSegment{Range: r, Phase: phase})
	}

	for si := range segments {
		segments[si].IssueCount = countOccurrences(issues, segments[si].Range)
	}
	return segments
}

// dominantPhase votes across the roll-axis windows overlapping the range.
// The three axis-parallel windows share a phase, so one axis suffices.
func dominantPhase(windows []models.AnalysisWindow, r models.TimeRange) models.FlightPhase {
	votes := make(map[models.FlightPhase]int)
	best := models.PhaseCruise
	bestN := 0
	for _, w := range windows {
		if w.Axis != models.AxisRoll || !w.Range.Overlaps(r) {
			continue
		}
		votes[w.Phase]++
		if votes[w.Phase] > bestN {
			best, bestN = w.Phase, votes[w.Phase]
		}
	}
	return best
}

// countOccurrences counts pre-collapse sightings inside the range, falling
// back to the collapsed range for single-occurrence issues.
func countOccurrences(issues []models.DetectedIssue, r models.TimeRange) int {
	count := 0
	for _, issue := range issues {
		if len(issue.Occurrences) == 0 {
			if issue.Range.Overlaps(r) && !models.GlobalIssueTypes[issue.Type] {
				count++
			}
			continue
		}
		for _, occ := range issue.Occurrences {
			if occ.Overlaps(r) {
				count++
			}
		}
	}
	return count
}
