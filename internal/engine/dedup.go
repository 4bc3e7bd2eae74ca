package engine

import (
	"fmt"
	"sort"

	"github.com/rotorlab/tune-engine/internal/models"
)

// mergeGapUs is the maximum silence between two sightings of the same
// (type, axis) issue before they count as separate events. Empirical.
const mergeGapUs int64 = 100_000

// IssueDeduplicator collapses the raw per-window issue stream down to at most
// one representative per (type, axis).
type IssueDeduplicator struct{}

func NewIssueDeduplicator() *IssueDeduplicator { return &IssueDeduplicator{} }

type issueKey struct {
	Type models.IssueType
	Axis models.Axis
}

// Deduplicate runs the two-pass reduction: a temporal merge of adjacent
// sightings, then a collapse of whatever survives into one issue per group.
// Input order decides output group order, so identical input yields identical
// output.
func (d *IssueDeduplicator) Deduplicate(raw []models.DetectedIssue) []models.DetectedIssue {
	if len(raw) == 0 {
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

	out := make([]models.DetectedIssue, 0, len(order))
	for _, key := range order {
		group := groups[key]
		merged := temporalMerge(group)
		out = append(out, collapseGroup(merged, group))
	}
	return out
}

// temporalMerge joins sightings whose gap is under mergeGapUs, extending the
// range, keeping the higher severity, and averaging confidence.
func temporalMerge(group []models.DetectedIssue) []models.DetectedIssue {
	sorted := append([]models.DetectedIssue(nil), group...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Range.StartUs < sorted[j].Range.StartUs
	})

	merged := make([]models.DetectedIssue, 0, len(sorted))
	var cur models.DetectedIssue
	var confSum float64
	var confN int

	flush := func() {
		if confN > 0 {
			cur.Confidence = confSum / float64(confN)
			merged = append(merged, cur)
		}
	}

	for _, issue := range sorted {
		if confN == 0 {
			cur = issue
			confSum, confN = issue.Confidence, 1
			continue
		}
		if issue.Range.StartUs-cur.Range.EndUs < mergeGapUs {
			cur.Range = cur.Range.Union(issue.Range)
			cur.Severity = models.MaxSeverity(cur.Severity, issue.Severity)
			cur.Metrics = cur.Metrics.MergeMax(issue.Metrics)
			confSum += issue.Confidence
			confN++
			continue
		}
		flush()
		cur = issue
		confSum, confN = issue.Confidence, 1
	}
	flush()
	return merged
}

// collapseGroup reduces the merge survivors to a single representative. The
// pre-merge occurrence ranges ride along for segment counting and trend
// analysis downstream.
func collapseGroup(merged, original []models.DetectedIssue) models.DetectedIssue {
	rep := merged[0]
	if len(original) > 1 {
		occurrences := make([]models.TimeRange, 0, len(original))
		for _, issue := range original {
			occurrences = append(occurrences, issue.Range)
		}
		sort.SliceStable(occurrences, func(i, j int) bool {
			return occurrences[i].StartUs < occurrences[j].StartUs
		})
		rep.Occurrences = occurrences
	}
	if len(merged) == 1 {
		return rep
	}

	confSum := rep.Confidence
	for _, issue := range merged[1:] {
		rep.Range = rep.Range.Union(issue.Range)
		rep.Severity = models.MaxSeverity(rep.Severity, issue.Severity)
		rep.Metrics = rep.Metrics.MergeMax(issue.Metrics)
		confSum += issue.Confidence
	}
	rep.Confidence = confSum / float64(len(merged))
	rep.Description = fmt.Sprintf("%s (%d occurrences)", rep.Description, len(original))
	return rep
}
