package dsp

import (
	"math"
	"testing"

	"github.com/rotorlab/tune-engine/internal/models"
)

const testRate = 1000.0 // Hz, 1ms per frame

func framesWith(n int, fill func(i int, f *models.Frame)) []models.Frame {
	frames := make([]models.Frame, n)
	for i := range frames {
		frames[i].TimeUs = int64(i) * 1000
		frames[i].Throttle = 1500
		if fill != nil {
			fill(i, &frames[i])
		}
	}
	return frames
}

func TestDetectBounceback(t *testing.T) {
	// Commanded roll at 200 deg/s released at sample 100; the gyro crosses
	// zero, overshoots to -60 and settles by sample 160.
	frames := framesWith(400, func(i int, f *models.Frame) {
		switch {
		case i < 100:
			f.Setpoint[0] = 200
			f.Gyro[0] = 200
		case i < 120:
			f.Gyro[0] = 200 - 10*float64(i-100) // through zero at 120
		case i < 130:
			f.Gyro[0] = -6 * float64(i-120) // down to -60
		case i < 160:
			f.Gyro[0] = -60 + 2*float64(i-130) // back to 0
		}
	})

	result := DetectBounceback(frames, models.AxisRoll, testRate)
	if !result.Detected {
		t.Fatalf("expected bounceback detection")
	}
	if math.Abs(result.Overshoot-0.3) > 0.05 {
		t.Fatalf("overshoot = %f, want ~0.3", result.Overshoot)
	}
	if result.SettlingTimeMs < 40 || result.SettlingTimeMs > 80 {
		t.Fatalf("settling time = %f ms, want 40-80", result.SettlingTimeMs)
	}
	if result.PeakRate < 190 {
		t.Fatalf("peak rate = %f, want ~200", result.PeakRate)
	}
}

func TestDetectBouncebackNoRelease(t *testing.T) {
	frames := framesWith(400, func(i int, f *models.Frame) {
		f.Setpoint[0] = 200
		f.Gyro[0] = 200
	})
	if DetectBounceback(frames, models.AxisRoll, testRate).Detected {
		t.Fatalf("detected bounceback without a stick release")
	}
}

func TestDetectBouncebackShortSlice(t *testing.T) {
	frames := framesWith(10, nil)
	if DetectBounceback(frames, models.AxisRoll, testRate).Detected {
		t.Fatalf("detected bounceback in an undersized slice")
	}
}

func TestDetectPropwash(t *testing.T) {
	// Throttle chop at sample 100 followed by a 60 Hz, 80 deg/s oscillation.
	frames := framesWith(600, func(i int, f *models.Frame) {
		if i < 100 {
			f.Throttle = 1600
		} else {
			f.Throttle = 1200
		}
		if i >= 100 && i < 400 {
			f.Gyro[1] = 80 * math.Sin(2*math.Pi*60*float64(i-100)/testRate)
		}
	})

	result := DetectPropwash(frames, models.AxisPitch, testRate)
	if !result.Detected {
		t.Fatalf("expected propwash detection")
	}
	if math.Abs(result.FrequencyHz-60) > 10 {
		t.Fatalf("frequency = %f, want ~60", result.FrequencyHz)
	}
	if result.Amplitude < 50 || result.Amplitude > 100 {
		t.Fatalf("amplitude = %f, want ~80", result.Amplitude)
	}
	if result.DurationMs < 200 {
		t.Fatalf("duration = %f ms, want >= 200", result.DurationMs)
	}
}

func TestDetectPropwashNoDrop(t *testing.T) {
	frames := framesWith(600, func(i int, f *models.Frame) {
		f.Gyro[1] = 80 * math.Sin(2*math.Pi*60*float64(i)/testRate)
	})
	if DetectPropwash(frames, models.AxisPitch, testRate).Detected {
		t.Fatalf("detected propwash without a throttle drop")
	}
}

func TestDetectMotorSaturation(t *testing.T) {
	frames := framesWith(300, func(i int, f *models.Frame) {
		f.Motors = []float64{1500, 1500, 1500, 1500}
		if i < 150 {
			f.Motors[0] = 2000
		}
	})

	result := DetectMotorSaturation(frames, 1000, 2000, testRate)
	if !result.Detected {
		t.Fatalf("expected saturation detection")
	}
	if math.Abs(result.SaturationPct-50) > 2 {
		t.Fatalf("saturation pct = %f, want ~50", result.SaturationPct)
	}
	if result.WorstMotor != 0 {
		t.Fatalf("worst motor = %d, want 0", result.WorstMotor)
	}
	if result.Asymmetry < 0.3 {
		t.Fatalf("asymmetry = %f, want > 0.3", result.Asymmetry)
	}
}

func TestDetectMotorSaturationFullWindowClamped(t *testing.T) {
	frames := framesWith(300, func(i int, f *models.Frame) {
		f.Motors = []float64{2000, 2000, 2000, 2000}
	})
	result := DetectMotorSaturation(frames, 1000, 2000, testRate)
	if result.SaturationPct > fullWindowSentinel {
		t.Fatalf("saturation pct %f exceeds the full-window sentinel", result.SaturationPct)
	}
}

func TestPhaseLag(t *testing.T) {
	// Gyro trails the setpoint by 10 samples (10ms at 1kHz).
	frames := framesWith(800, func(i int, f *models.Frame) {
		f.Setpoint[0] = 100 * math.Sin(2*math.Pi*5*float64(i)/testRate)
		f.Gyro[0] = 100 * math.Sin(2*math.Pi*5*float64(i-10)/testRate)
	})
	lag := PhaseLagMs(frames, models.AxisRoll, testRate)
	if math.Abs(lag-10) > 3 {
		t.Fatalf("phase lag = %f ms, want ~10", lag)
	}
}
