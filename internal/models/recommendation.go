package models

// Parameter enumerates the tunable controller parameters a recommendation
// may change.
type Parameter string

const (
	ParamPGain            Parameter = "p_gain"
	ParamIGain            Parameter = "i_gain"
	ParamDGain            Parameter = "d_gain"
	ParamDMin             Parameter = "d_min"
	ParamFeedforward      Parameter = "feedforward"
	ParamGyroLowpassHz    Parameter = "gyro_lpf_hz"
	ParamDtermLowpassHz   Parameter = "dterm_lpf_hz"
	ParamITermRelaxCutoff Parameter = "iterm_relax_cutoff"
	ParamAntiGravity      Parameter = "anti_gravity"
	ParamMotorIdle        Parameter = "motor_idle"
)

// ParameterChange is one adjustment to a single tunable. RecommendedChange
// follows one of three grammars: "±<int>%", "±<number>", or a bare
// non-negative number (absolute target).
type ParameterChange struct {
	Parameter         Parameter `json:"parameter"`
	Axis              Axis      `json:"axis,omitempty"` // empty = applies to all axes
	CurrentValue      *float64  `json:"currentValue,omitempty"`
	RecommendedChange string    `json:"recommendedChange"`
	Explanation       string    `json:"explanation"`
}

// RecommendationType distinguishes actionable tuning changes from hardware
// inspection advice and purely informational notes.
type RecommendationType string

const (
	RecommendationTuning        RecommendationType = "tuning"
	RecommendationHardware      RecommendationType = "hardware"
	RecommendationInformational RecommendationType = "informational"
)

// Recommendation is one actionable suggestion derived from detected issues.
type Recommendation struct {
	ID              string             `json:"id"`
	IssueID         string             `json:"issueId"`
	Type            RecommendationType `json:"type"`
	Priority        int                `json:"priority"` // 1 (lowest) to 10
	Confidence      float64            `json:"confidence"`
	Title           string             `json:"title"`
	Description     string             `json:"description"`
	Changes         []ParameterChange  `json:"changes,omitempty"`
	RelatedIssueIDs []string           `json:"relatedIssueIds,omitempty"`
}
