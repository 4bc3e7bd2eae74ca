package models

// HealthRating buckets overall flight health from issue counts.
type HealthRating string

const (
	HealthExcellent HealthRating = "excellent"
	HealthGood      HealthRating = "good"
	HealthNeedsWork HealthRating = "needs_work"
	HealthPoor      HealthRating = "poor"
)

// Summary aggregates counts over a finished analysis.
type Summary struct {
	Health          HealthRating `json:"health"`
	HighIssues      int          `json:"highIssues"`
	MediumIssues    int          `json:"mediumIssues"`
	LowIssues       int          `json:"lowIssues"`
	TotalIssues     int          `json:"totalIssues"`
	WindowsAnalyzed int          `json:"windowsAnalyzed"`
	DurationS       float64      `json:"durationS"`
}

// FlightSegment is a UI-facing slice of the flight with merged phase and the
// number of issue occurrences falling inside it.
type FlightSegment struct {
	Range      TimeRange   `json:"range"`
	Phase      FlightPhase `json:"phase"`
	IssueCount int         `json:"issueCount"`
}

// AnalysisResult is the complete output of one analysis run. Treated as
// immutable by callers.
type AnalysisResult struct {
	Issues          []DetectedIssue  `json:"issues"`
	Recommendations []Recommendation `json:"recommendations"`
	Summary         Summary          `json:"summary"`
	Segments        []FlightSegment  `json:"segments"`
}
