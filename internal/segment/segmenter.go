// Package segment slices a full frame sequence into fixed-duration
// overlapping analysis windows, one series per axis.
package segment

import (
	"math"

	"github.com/rotorlab/tune-engine/internal/models"
)

const (
	// Window geometry: at least minWindowSamples frames, targeting
	// windowDurationMs of flight per window, with 50% overlap.
	minWindowSamples = 50
	windowDurationMs = 100.0

	// Stick-input RMS thresholds differ by setpoint source.
	stickInputRMSSetpoint = 30.0
	stickInputRMSCommand  = 10.0

	// A log whose setpoint field never exceeds this is treated as degenerate
	// and the raw stick command is used instead.
	degenerateSetpointMax = 5.0

	// Flight-phase decision thresholds.
	idleThrottle      = 1050.0
	maneuverSetpoint  = 300.0
	punchThrottle     = 1700.0
	propwashDrop      = 250.0
	hoverThrottleCeil = 1450.0
)

// WindowLength returns the per-window sample count for a sample rate.
func WindowLength(sampleRateHz float64) int {
	n := int(sampleRateHz * windowDurationMs / 1000.0)
	if n < minWindowSamples {
		n = minWindowSamples
	}
	return n
}

// SegmentLog slices frames into per-axis overlapping windows tagged with
// throttle, stick-input, and flight-phase metadata. Logs shorter than one
// window yield an empty result.
func SegmentLog(frames []models.Frame, meta models.LogMetadata) []models.AnalysisWindow {
	length := WindowLength(meta.SampleRateHz)
	if len(frames) < length {
		return nil
	}
	step := length / 2

	useStick := setpointDegenerate(frames)

	windows := make([]models.AnalysisWindow, 0, 3*(1+(len(frames)-length)/step))
	for start := 0; start+length <= len(frames); start += step {
		slice := frames[start : start+length]
		for _, axis := range models.AllAxes {
			windows = append(windows, buildWindow(slice, start, axis, useStick))
		}
	}
	return windows
}

// setpointDegenerate reports whether the log's setpoint field carries no
// real information (some decoders emit zeros there).
func setpointDegenerate(frames []models.Frame) bool {
	maxSp := 0.0
	for _, f := range frames {
		for ai := 0; ai < 3; ai++ {
			if v := math.Abs(f.Setpoint[ai]); v > maxSp {
				maxSp = v
			}
		}
	}
	return maxSp <= degenerateSetpointMax
}

func buildWindow(slice []models.Frame, start int, axis models.Axis, useStick bool) models.AnalysisWindow {
	ai := axis.Index()

	avgThrottle := 0.0
	peak := 0.0
	sumSq := 0.0
	for _, f := range slice {
		avgThrottle += f.Throttle
		v := f.Setpoint[ai]
		if useStick {
			v = f.RcCommand[ai]
		}
		av := math.Abs(v)
		if av > peak {
			peak = av
		}
		sumSq += v * v
	}
	n := float64(len(slice))
	avgThrottle /= n
	rms := math.Sqrt(sumSq / n)

	inputThreshold := stickInputRMSSetpoint
	if useStick {
		inputThreshold = stickInputRMSCommand
	}
	hasInput := rms > inputThreshold

	w := models.AnalysisWindow{
		Axis:              axis,
		StartIndex:        start,
		EndIndex:          start + len(slice),
		Range:             models.TimeRange{StartUs: slice[0].TimeUs, EndUs: slice[len(slice)-1].TimeUs},
		AvgThrottle:       avgThrottle,
		PeakSetpoint:      peak,
		RMSSetpoint:       rms,
		HasStickInput:     hasInput,
		SetpointFromStick: useStick,
	}
	w.Phase = classifyPhase(slice, w)
	return w
}

// classifyPhase walks an ordered decision list; the first matching phase wins.
func classifyPhase(slice []models.Frame, w models.AnalysisWindow) models.FlightPhase {
	switch {
	case w.AvgThrottle < idleThrottle:
		return models.PhaseIdle
	case w.PeakSetpoint > maneuverSetpoint:
		return models.PhaseManeuver
	case w.AvgThrottle > punchThrottle && w.HasStickInput:
		return models.PhasePunch
	case !w.HasStickInput && throttleDrop(slice) > propwashDrop:
		return models.PhasePropwash
	case !w.HasStickInput && w.AvgThrottle <= hoverThrottleCeil:
		return models.PhaseHover
	default:
		return models.PhaseCruise
	}
}

func throttleDrop(slice []models.Frame) float64 {
	if len(slice) == 0 {
		return 0
	}
	maxBefore := slice[0].Throttle
	drop := 0.0
	for _, f := range slice {
		if f.Throttle > maxBefore {
			maxBefore = f.Throttle
		}
		if d := maxBefore - f.Throttle; d > drop {
			drop = d
		}
	}
	return drop
}
