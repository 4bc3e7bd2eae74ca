package dsp

import (
	"math"

	"github.com/rotorlab/tune-engine/internal/models"
	"github.com/rotorlab/tune-engine/internal/utils"
)

// Time-domain detectors. Each locates a triggering event inside a frame
// slice, gated by a sample-rate-scaled minimum window length, and returns
// Detected=false for ambiguous or insufficient data rather than an error.

const (
	// Stick release: setpoint falls from above the high threshold to below
	// the low threshold between adjacent samples.
	releaseHighThreshold = 100.0 // deg/s
	releaseLowThreshold  = 20.0  // deg/s

	// Throttle drop trigger for propwash, measured over the lookback span.
	throttleDropLookbackMs = 50.0
	minThrottleDrop        = 200.0 // throttle units per lookback

	// Motor saturation trigger level as a fraction of the output range.
	saturationLevel = 0.995

	// Saturation percentage is clamped below this sentinel so a fully
	// saturated window still reads as "almost all" rather than a degenerate
	// 100 that downstream ratios would divide by.
	fullWindowSentinel = 99.99
)

// BouncebackResult reports stick-release overshoot and settling behaviour.
type BouncebackResult struct {
	Detected       bool
	Overshoot      float64 // opposite-direction peak as a fraction of the pre-release rate
	SettlingTimeMs float64
	PeakTimeMs     float64
	PeakRate       float64 // deg/s magnitude immediately before release
}

// DetectBounceback locates a stick-release zero-crossing in the slice and
// measures the gyro's overshoot and settling time for one axis.
func DetectBounceback(frames []models.Frame, axis models.Axis, sampleRateHz float64) BouncebackResult {
	minLen := utils.SamplesForMs(sampleRateHz, 150)
	if minLen < 20 {
		minLen = 20
	}
	if len(frames) < minLen || sampleRateHz <= 0 {
		return BouncebackResult{}
	}

	ai := axis.Index()
	release := -1
	direction := 0.0
	for i := 1; i < len(frames); i++ {
		prev := frames[i-1].Setpoint[ai]
		cur := frames[i].Setpoint[ai]
		if math.Abs(prev) > releaseHighThreshold && math.Abs(cur) < releaseLowThreshold {
			release = i
			direction = math.Copysign(1, prev)
			break
		}
	}
	if release < 0 || len(frames)-release < minLen/2 {
		return BouncebackResult{}
	}

	// Peak commanded rate over the 100ms leading into the release.
	lookback := utils.SamplesForMs(sampleRateHz, 100)
	peakRate := 0.0
	for i := release - lookback; i < release; i++ {
		if i < 0 {
			continue
		}
		if v := math.Abs(frames[i].Gyro[ai]); v > peakRate {
			peakRate = v
		}
	}
	if peakRate < 1e-6 {
		return BouncebackResult{}
	}

	// Overshoot: largest excursion opposite the prior rotation direction.
	overshootPeak := 0.0
	peakIdx := release
	for i := release; i < len(frames); i++ {
		v := frames[i].Gyro[ai] * -direction
		if v > overshootPeak {
			overshootPeak = v
			peakIdx = i
		}
	}

	// Settling: first instant the gyro stays inside the settle band.
	settleBand := 0.05*peakRate + 10.0
	hold := utils.SamplesForMs(sampleRateHz, 20)
	settleIdx := len(frames) - 1
	for i := release; i < len(frames)-hold; i++ {
		inside := true
		for j := i; j < i+hold; j++ {
			if math.Abs(frames[j].Gyro[ai]) > settleBand {
				inside = false
				break
			}
		}
		if inside {
			settleIdx = i
			break
		}
	}

	releaseUs := frames[release].TimeUs
	return BouncebackResult{
		Detected:       true,
		Overshoot:      overshootPeak / peakRate,
		SettlingTimeMs: utils.UsToMs(frames[settleIdx].TimeUs - releaseUs),
		PeakTimeMs:     utils.UsToMs(frames[peakIdx].TimeUs - releaseUs),
		PeakRate:       peakRate,
	}
}

// PropwashResult reports oscillation following a rapid thrust reduction.
type PropwashResult struct {
	Detected    bool
	FrequencyHz float64
	Amplitude   float64 // mean absolute peak, deg/s
	DurationMs  float64
}

// DetectPropwash locates a throttle drop in the slice and measures the gyro
// oscillation that follows on one axis.
func DetectPropwash(frames []models.Frame, axis models.Axis, sampleRateHz float64) PropwashResult {
	lookback := utils.SamplesForMs(sampleRateHz, throttleDropLookbackMs)
	minLen := lookback * 4
	if len(frames) < minLen || sampleRateHz <= 0 {
		return PropwashResult{}
	}

	drop := -1
	for i := lookback; i < len(frames); i++ {
		if frames[i-lookback].Throttle-frames[i].Throttle > minThrottleDrop {
			drop = i
			break
		}
	}
	if drop < 0 || len(frames)-drop < lookback {
		return PropwashResult{}
	}

	ai := axis.Index()
	tail := frames[drop:]

	mean := 0.0
	for _, f := range tail {
		mean += f.Gyro[ai]
	}
	mean /= float64(len(tail))

	crossings := 0
	lastCrossing := 0
	peakSum := 0.0
	peakCount := 0
	for i := 1; i < len(tail); i++ {
		a := tail[i-1].Gyro[ai] - mean
		b := tail[i].Gyro[ai] - mean
		if (a < 0 && b >= 0) || (a > 0 && b <= 0) {
			crossings++
			lastCrossing = i
		}
		if i+1 < len(tail) {
			v := math.Abs(b)
			if v > math.Abs(a) && v > math.Abs(tail[i+1].Gyro[ai]-mean) {
				peakSum += v
				peakCount++
			}
		}
	}
	if crossings < 4 || peakCount == 0 {
		return PropwashResult{}
	}

	durationUs := tail[lastCrossing].TimeUs - tail[0].TimeUs
	durationS := utils.UsToSeconds(durationUs)
	if durationS <= 0 {
		return PropwashResult{}
	}
	amplitude := peakSum / float64(peakCount)
	if amplitude < 20.0 {
		return PropwashResult{}
	}

	return PropwashResult{
		Detected:    true,
		FrequencyHz: float64(crossings) / 2.0 / durationS,
		Amplitude:   amplitude,
		DurationMs:  utils.UsToMs(durationUs),
	}
}

// SaturationResult reports how hard the motor outputs hit their ceiling.
type SaturationResult struct {
	Detected      bool
	SaturationPct float64 // worst motor, percent of samples at the ceiling
	Asymmetry     float64 // (max-min) mean output spread over the average
	WorstMotor    int
}

// DetectMotorSaturation measures per-motor ceiling time and output asymmetry
// across the slice. motorLow/motorHigh define the output range.
func DetectMotorSaturation(frames []models.Frame, motorLow, motorHigh float64, sampleRateHz float64) SaturationResult {
	minLen := utils.SamplesForMs(sampleRateHz, 50)
	if len(frames) < minLen || motorHigh <= motorLow {
		return SaturationResult{}
	}

	motorCount := 0
	for _, f := range frames {
		if len(f.Motors) > motorCount {
			motorCount = len(f.Motors)
		}
	}
	if motorCount == 0 {
		return SaturationResult{}
	}

	threshold := motorLow + saturationLevel*(motorHigh-motorLow)
	satCounts := make([]int, motorCount)
	sums := make([]float64, motorCount)
	samples := make([]int, motorCount)

	for _, f := range frames {
		for m, v := range f.Motors {
			samples[m]++
			sums[m] += v
			if v >= threshold {
				satCounts[m]++
			}
		}
	}

	worst := 0
	worstPct := 0.0
	minMean, maxMean := math.Inf(1), math.Inf(-1)
	meanSum := 0.0
	for m := 0; m < motorCount; m++ {
		if samples[m] == 0 {
			continue
		}
		pct := 100.0 * float64(satCounts[m]) / float64(samples[m])
		if pct > worstPct {
			worstPct = pct
			worst = m
		}
		mean := sums[m] / float64(samples[m])
		meanSum += mean
		if mean < minMean {
			minMean = mean
		}
		if mean > maxMean {
			maxMean = mean
		}
	}
	if worstPct > fullWindowSentinel {
		worstPct = fullWindowSentinel
	}

	avgMean := meanSum / float64(motorCount)
	asymmetry := 0.0
	if avgMean-motorLow > 1e-6 {
		asymmetry = (maxMean - minMean) / (avgMean - motorLow)
	}

	return SaturationResult{
		Detected:      worstPct > 0,
		SaturationPct: worstPct,
		Asymmetry:     asymmetry,
		WorstMotor:    worst,
	}
}

// RMS returns the root-mean-square of the values, 0 for empty input.
func RMS(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(values)))
}

// AxisSignal extracts one axis of a per-frame field into a flat slice.
func AxisSignal(frames []models.Frame, axis models.Axis, field func(models.Frame, int) float64) []float64 {
	ai := axis.Index()
	out := make([]float64, len(frames))
	for i, f := range frames {
		out[i] = field(f, ai)
	}
	return out
}

// GyroSignal returns the gyro trace for one axis.
func GyroSignal(frames []models.Frame, axis models.Axis) []float64 {
	return AxisSignal(frames, axis, func(f models.Frame, ai int) float64 { return f.Gyro[ai] })
}

// DTermSignal returns the D component trace for one axis.
func DTermSignal(frames []models.Frame, axis models.Axis) []float64 {
	return AxisSignal(frames, axis, func(f models.Frame, ai int) float64 { return f.D[ai] })
}

// ErrorSignal returns setpoint minus gyro for one axis.
func ErrorSignal(frames []models.Frame, axis models.Axis) []float64 {
	return AxisSignal(frames, axis, func(f models.Frame, ai int) float64 {
		return f.Setpoint[ai] - f.Gyro[ai]
	})
}

// PhaseLagMs estimates the lag between setpoint and gyro by scanning the
// cross-correlation over a bounded shift. Returns 0 when the signals are too
// small to correlate.
func PhaseLagMs(frames []models.Frame, axis models.Axis, sampleRateHz float64) float64 {
	if sampleRateHz <= 0 {
		return 0
	}
	sp := AxisSignal(frames, axis, func(f models.Frame, ai int) float64 { return f.Setpoint[ai] })
	gy := GyroSignal(frames, axis)
	if RMS(sp) < 1e-6 || RMS(gy) < 1e-6 {
		return 0
	}

	maxShift := utils.SamplesForMs(sampleRateHz, 50)
	if maxShift >= len(sp) {
		return 0
	}
	bestShift := 0
	bestCorr := math.Inf(-1)
	for shift := 0; shift <= maxShift; shift++ {
		corr := 0.0
		for i := 0; i+shift < len(sp); i++ {
			corr += sp[i] * gy[i+shift]
		}
		if corr > bestCorr {
			bestCorr = corr
			bestShift = shift
		}
	}
	return float64(bestShift) / sampleRateHz * 1000.0
}
