package models

// Axis identifies one rotational control axis.
type Axis string

const (
	AxisRoll  Axis = "roll"
	AxisPitch Axis = "pitch"
	AxisYaw   Axis = "yaw"
)

// AllAxes lists the three control axes in conventional order.
var AllAxes = []Axis{AxisRoll, AxisPitch, AxisYaw}

// Index returns the array index conventionally used for the axis (roll=0,
// pitch=1, yaw=2). Unknown axes map to roll.
func (a Axis) Index() int {
	switch a {
	case AxisPitch:
		return 1
	case AxisYaw:
		return 2
	default:
		return 0
	}
}

// AxisFromIndex is the inverse of Axis.Index.
func AxisFromIndex(i int) Axis {
	switch i {
	case 1:
		return AxisPitch
	case 2:
		return AxisYaw
	default:
		return AxisRoll
	}
}

// Frame is one sampled instant of flight-controller state. Frames are
// produced upstream by the log decoder and are never mutated by the engine.
type Frame struct {
	TimeUs    int64      `json:"timeUs"`
	Gyro      [3]float64 `json:"gyro"`
	Setpoint  [3]float64 `json:"setpoint"`
	RcCommand [3]float64 `json:"rcCommand"`
	P         [3]float64 `json:"p"`
	I         [3]float64 `json:"i"`
	D         [3]float64 `json:"d"`
	FF        [3]float64 `json:"ff,omitempty"`
	PIDSum    [3]float64 `json:"pidSum"`
	Motors    []float64  `json:"motors"`
	Throttle  float64    `json:"throttle"`
	Vbat      float64    `json:"vbat,omitempty"`
}

// PIDGains holds the tuning values for one axis.
type PIDGains struct {
	P    float64 `json:"p" yaml:"p"`
	I    float64 `json:"i" yaml:"i"`
	D    float64 `json:"d" yaml:"d"`
	DMin float64 `json:"dMin,omitempty" yaml:"dMin"`
	FF   float64 `json:"ff,omitempty" yaml:"ff"`
}

// FilterSettings describes the gyro/D-term filter chain in effect for the log.
type FilterSettings struct {
	GyroLowpassHz  float64 `json:"gyroLowpassHz" yaml:"gyroLowpassHz"`
	DtermLowpassHz float64 `json:"dtermLowpassHz" yaml:"dtermLowpassHz"`
	DynNotchCount  int     `json:"dynNotchCount,omitempty" yaml:"dynNotchCount"`
}

// LogMetadata carries the static descriptors attached to one recording.
// Read-only input to the analysis.
type LogMetadata struct {
	SampleRateHz    float64        `json:"sampleRateHz"`
	Firmware        string         `json:"firmware,omitempty"`
	Craft           string         `json:"craft,omitempty"`
	PID             [3]PIDGains    `json:"pid"`
	Filters         FilterSettings `json:"filters"`
	MotorOutputLow  float64        `json:"motorOutputLow,omitempty"`
	MotorOutputHigh float64        `json:"motorOutputHigh,omitempty"`
	BatteryCells    int            `json:"batteryCells,omitempty"`
}

// MotorRange returns the motor output range, defaulting to the conventional
// 1000-2000 scale when the log does not declare one.
func (m LogMetadata) MotorRange() (low, high float64) {
	low, high = m.MotorOutputLow, m.MotorOutputHigh
	if high <= low {
		low, high = 1000, 2000
	}
	return low, high
}

// TimeRange bounds a span of the recording in log microseconds.
type TimeRange struct {
	StartUs int64 `json:"startUs"`
	EndUs   int64 `json:"endUs"`
}

// DurationUs returns the span length, never negative.
func (r TimeRange) DurationUs() int64 {
	if r.EndUs < r.StartUs {
		return 0
	}
	return r.EndUs - r.StartUs
}

// Overlaps reports whether two ranges share any instant.
func (r TimeRange) Overlaps(other TimeRange) bool {
	return r.StartUs <= other.EndUs && other.StartUs <= r.EndUs
}

// Union extends the range to cover other.
func (r TimeRange) Union(other TimeRange) TimeRange {
	out := r
	if other.StartUs < out.StartUs {
		out.StartUs = other.StartUs
	}
	if other.EndUs > out.EndUs {
		out.EndUs = other.EndUs
	}
	return out
}

// FlightPhase classifies what the craft was doing during a window.
type FlightPhase string

const (
	PhaseIdle     FlightPhase = "idle"
	PhaseManeuver FlightPhase = "maneuver"
	PhasePunch    FlightPhase = "punch"
	PhasePropwash FlightPhase = "propwash"
	PhaseHover    FlightPhase = "hover"
	PhaseCruise   FlightPhase = "cruise"
)

// AnalysisWindow is a contiguous frame-index slice for one axis, tagged with
// aggregate metadata. Created once by the segmenter and never mutated.
type AnalysisWindow struct {
	Axis              Axis        `json:"axis"`
	StartIndex        int         `json:"startIndex"`
	EndIndex          int         `json:"endIndex"` // exclusive
	Range             TimeRange   `json:"range"`
	AvgThrottle       float64     `json:"avgThrottle"`
	PeakSetpoint      float64     `json:"peakSetpoint"`
	RMSSetpoint       float64     `json:"rmsSetpoint"`
	HasStickInput     bool        `json:"hasStickInput"`
	SetpointFromStick bool        `json:"setpointFromStick"`
	Phase             FlightPhase `json:"phase"`
}

// Frames returns the window's slice of the full frame sequence.
func (w AnalysisWindow) Frames(frames []Frame) []Frame {
	if w.StartIndex < 0 || w.EndIndex > len(frames) || w.StartIndex >= w.EndIndex {
		return nil
	}
	return frames[w.StartIndex:w.EndIndex]
}
