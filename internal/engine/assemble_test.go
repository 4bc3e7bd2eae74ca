package engine

import (
	"testing"

	"github.com/rotorlab/tune-engine/internal/models"
)

func sevIssue(id string, sev models.Severity, conf float64) models.DetectedIssue {
	return models.DetectedIssue{
		ID: id, Type: models.IssueOscillation, Axis: models.AxisRoll,
		Severity: sev, Confidence: conf,
		Range: models.TimeRange{StartUs: 0, EndUs: 1_000_000},
	}
}

func TestHealthBuckets(t *testing.T) {
	cases := []struct {
		name           string
		high, med, low int
		want           models.HealthRating
	}{
		{"clean flight", 0, 0, 0, models.HealthExcellent},
		{"a few low", 0, 0, 3, models.HealthExcellent},
		{"many low", 0, 0, 4, models.HealthGood},
		{"one medium", 0, 1, 0, models.HealthGood},
		{"one high", 1, 0, 0, models.HealthNeedsWork},
		{"many medium", 0, 6, 0, models.HealthNeedsWork},
		{"many high", 4, 0, 0, models.HealthPoor},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var issues []models.DetectedIssue
			for i := 0; i < tc.high; i++ {
				issues = append(issues, sevIssue("h", models.SeverityHigh, 0.5))
			}
			for i := 0; i < tc.med; i++ {
				issues = append(issues, sevIssue("m", models.SeverityMedium, 0.5))
			}
			for i := 0; i < tc.low; i++ {
				issues = append(issues, sevIssue("l", models.SeverityLow, 0.5))
			}
			s := summarize(issues, nil, nil)
			if s.Health != tc.want {
				t.Errorf("health = %s, want %s", s.Health, tc.want)
			}
			if s.TotalIssues != len(issues) {
				t.Errorf("total = %d, want %d", s.TotalIssues, len(issues))
			}
		})
	}
}

func TestAssembleSortsIssuesAndRecommendations(t *testing.T) {
	issues := []models.DetectedIssue{
		sevIssue("low-ref", models.SeverityLow, 0.9),
		sevIssue("high", models.SeverityHigh, 0.5),
		sevIssue("med-a", models.SeverityMedium, 0.4),
		sevIssue("med-b", models.SeverityMedium, 0.4),
	}
	recs := []models.Recommendation{
		{ID: "r1", IssueID: "med-b", Priority: 3},
		{ID: "r2", IssueID: "low-ref", Priority: 9},
		{ID: "r3", IssueID: "high", Priority: 6},
	}

	result := NewResultAssembler().Assemble(issues, recs, nil, nil)

	for i := 1; i < len(result.Recommendations); i++ {
		if result.Recommendations[i].Priority > result.Recommendations[i-1].Priority {
			t.Fatalf("recommendations not non-increasing by priority")
		}
	}

	order := make([]string, 0, len(result.Issues))
	for _, issue := range result.Issues {
		order = append(order, issue.ID)
	}
	// Severity first, then the priority of the referencing recommendation,
	// then confidence.
	want := []string{"high", "med-b", "med-a", "low-ref"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("issue order = %v, want %v", order, want)
		}
	}
}

func TestBuildSegmentsMergesPhases(t *testing.T) {
	// 10s flight: hover for the first half, punch for the second.
	frames := []models.Frame{{TimeUs: 0}, {TimeUs: 10_000_000}}
	var windows []models.AnalysisWindow
	for i := int64(0); i < 10; i++ {
		phase := models.PhaseHover
		if i >= 5 {
			phase = models.PhasePunch
		}
		windows = append(windows, models.AnalysisWindow{
			Axis:  models.AxisRoll,
			Range: models.TimeRange{StartUs: i * 1_000_000, EndUs: (i + 1) * 1_000_000},
			Phase: phase,
		})
	}
	issue := sevIssue("i", models.SeverityLow, 0.5)
	issue.Occurrences = []models.TimeRange{
		{StartUs: 1_000_000, EndUs: 1_100_000},
		{StartUs: 2_000_000, EndUs: 2_100_000},
		{StartUs: 8_000_000, EndUs: 8_100_000},
	}

	segments := buildSegments([]models.DetectedIssue{issue}, windows, frames)
	if len(segments) < 2 {
		t.Fatalf("segments = %d, want at least hover and punch", len(segments))
	}
	if segments[0].Phase != models.PhaseHover {
		t.Errorf("first segment phase = %s, want hover", segments[0].Phase)
	}
	if segments[len(segments)-1].Phase != models.PhasePunch {
		t.Errorf("last segment phase = %s, want punch", segments[len(segments)-1].Phase)
	}
	total := 0
	for _, seg := range segments {
		total += seg.IssueCount
	}
	if total < 3 {
		t.Errorf("summed occurrence count = %d, want >= 3", total)
	}
}

func TestBuildSegmentsEmptyFlight(t *testing.T) {
	if segs := buildSegments(nil, nil, nil); segs != nil {
		t.Fatalf("expected no segments for an empty flight")
	}
}
