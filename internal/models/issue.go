package models

// IssueType enumerates the closed set of detectable anomaly categories.
type IssueType string

const (
	IssueOscillation        IssueType = "oscillation"
	IssueLowFreqOscillation IssueType = "low_freq_oscillation"
	IssueBounceback         IssueType = "bounceback"
	IssueSlowSettling       IssueType = "slow_settling"
	IssuePropwash           IssueType = "propwash"
	IssueDTermNoise         IssueType = "dterm_noise"
	IssueGyroNoise          IssueType = "gyro_noise"
	IssueFrameResonance     IssueType = "frame_resonance"
	IssueRPMNoise           IssueType = "rpm_noise"
	IssueMotorSaturation    IssueType = "motor_saturation"
	IssueITermWindup        IssueType = "iterm_windup"
	IssueFFOvershoot        IssueType = "ff_overshoot"
	IssueSetpointLag        IssueType = "setpoint_lag"
	IssueMotorImbalance     IssueType = "motor_imbalance"
	IssueCGOffset           IssueType = "cg_offset"
	IssueBearingWear        IssueType = "bearing_wear"
	IssueDesync             IssueType = "desync"
	IssueVoltageSag         IssueType = "voltage_sag"
	IssueThermalDegradation IssueType = "thermal_degradation"
	IssueMechanicalEvent    IssueType = "mechanical_event"
)

// GlobalIssueTypes lists categories describing a physically global condition.
// They are reported on a single conventional axis and excluded from
// cross-axis pattern grouping.
var GlobalIssueTypes = map[IssueType]bool{
	IssueFrameResonance:     true,
	IssueRPMNoise:           true,
	IssueMotorSaturation:    true,
	IssueMotorImbalance:     true,
	IssueCGOffset:           true,
	IssueBearingWear:        true,
	IssueDesync:             true,
	IssueVoltageSag:         true,
	IssueThermalDegradation: true,
	IssueMechanicalEvent:    true,
}

// Severity captures impact levels, ordered low < medium < high.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank returns the ordinal of the severity for comparisons.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// MaxSeverity returns the higher of two severities.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// DemoteSeverity lowers a severity by exactly one level, flooring at low.
func DemoteSeverity(s Severity) Severity {
	switch s {
	case SeverityHigh:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// IssueMetrics is the fixed set of optional measurements a detector may
// attach to an issue. Nil means the metric was not computed.
type IssueMetrics struct {
	Overshoot          *float64 `json:"overshoot,omitempty"`
	SettlingTimeMs     *float64 `json:"settlingTimeMs,omitempty"`
	FrequencyHz        *float64 `json:"frequencyHz,omitempty"`
	Amplitude          *float64 `json:"amplitude,omitempty"`
	RMSError           *float64 `json:"rmsError,omitempty"`
	DTermActivity      *float64 `json:"dtermActivity,omitempty"`
	MotorSaturationPct *float64 `json:"motorSaturationPct,omitempty"`
	NoiseFloor         *float64 `json:"noiseFloor,omitempty"`
	NormalizedError    *float64 `json:"normalizedError,omitempty"`
	AmplitudeRatio     *float64 `json:"amplitudeRatio,omitempty"`
	SignalToNoise      *float64 `json:"signalToNoise,omitempty"`
	PhaseLagMs         *float64 `json:"phaseLagMs,omitempty"`
	FeedforwardRMS     *float64 `json:"feedforwardRMS,omitempty"`
	PeakTimeMs         *float64 `json:"peakTimeMs,omitempty"`
}

// Float boxes a metric value.
func Float(v float64) *float64 { return &v }

func maxPtr(a, b *float64) *float64 {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if *b > *a {
		v := *b
		return &v
	}
	v := *a
	return &v
}

// MergeMax takes the elementwise maximum of every directional metric present
// in either operand. Used when collapsing a group of issues into one
// representative.
func (m IssueMetrics) MergeMax(other IssueMetrics) IssueMetrics {
	return IssueMetrics{
		Overshoot:          maxPtr(m.Overshoot, other.Overshoot),
		SettlingTimeMs:     maxPtr(m.SettlingTimeMs, other.SettlingTimeMs),
		FrequencyHz:        maxPtr(m.FrequencyHz, other.FrequencyHz),
		Amplitude:          maxPtr(m.Amplitude, other.Amplitude),
		RMSError:           maxPtr(m.RMSError, other.RMSError),
		DTermActivity:      maxPtr(m.DTermActivity, other.DTermActivity),
		MotorSaturationPct: maxPtr(m.MotorSaturationPct, other.MotorSaturationPct),
		NoiseFloor:         maxPtr(m.NoiseFloor, other.NoiseFloor),
		NormalizedError:    maxPtr(m.NormalizedError, other.NormalizedError),
		AmplitudeRatio:     maxPtr(m.AmplitudeRatio, other.AmplitudeRatio),
		SignalToNoise:      maxPtr(m.SignalToNoise, other.SignalToNoise),
		PhaseLagMs:         maxPtr(m.PhaseLagMs, other.PhaseLagMs),
		FeedforwardRMS:     maxPtr(m.FeedforwardRMS, other.FeedforwardRMS),
		PeakTimeMs:         maxPtr(m.PeakTimeMs, other.PeakTimeMs),
	}
}

// AxisPattern classifies how an issue type is distributed across axes.
type AxisPattern string

const (
	PatternAllAxes       AxisPattern = "all_axes"
	PatternRollPitchOnly AxisPattern = "roll_pitch_only"
	PatternYawOnly       AxisPattern = "yaw_only"
	PatternSingleAxis    AxisPattern = "single_axis"
	PatternAsymmetric    AxisPattern = "asymmetric"
)

// CrossAxisContext annotates an issue with the spatial pattern its type
// exhibits across the craft.
type CrossAxisContext struct {
	Pattern      AxisPattern `json:"pattern"`
	AffectedAxes []Axis      `json:"affectedAxes"`
	Description  string      `json:"description"`
}

// TrendKind classifies how a recurring issue evolved over the flight.
type TrendKind string

const (
	TrendWorsening   TrendKind = "worsening"
	TrendImproving   TrendKind = "improving"
	TrendSuddenOnset TrendKind = "sudden_onset"
	TrendEarlyOnly   TrendKind = "early_only"
	TrendLateOnset   TrendKind = "late_onset"
	TrendStable      TrendKind = "stable"
)

// TemporalPattern annotates an issue with its progression over the flight
// timeline.
type TemporalPattern struct {
	Trend       TrendKind `json:"trend"`
	Slope       float64   `json:"slope"`
	Occurrences int       `json:"occurrences"`
	Description string    `json:"description"`
}

// DetectedIssue is one classified anomaly in a (type, axis) combination.
type DetectedIssue struct {
	ID          string            `json:"id"`
	Type        IssueType         `json:"type"`
	Severity    Severity          `json:"severity"`
	Axis        Axis              `json:"axis"`
	Range       TimeRange         `json:"range"`
	Description string            `json:"description"`
	Metrics     IssueMetrics      `json:"metrics"`
	Confidence  float64           `json:"confidence"`
	Occurrences []TimeRange       `json:"occurrences,omitempty"`
	CrossAxis   *CrossAxisContext `json:"crossAxis,omitempty"`
	Temporal    *TemporalPattern  `json:"temporal,omitempty"`
}
