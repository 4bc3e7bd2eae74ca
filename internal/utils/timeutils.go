package utils

// Log timestamps are monotonic microseconds from the start of the recording.
// These helpers keep the unit conversions in one place.

// UsToSeconds converts a log timestamp delta to seconds.
func UsToSeconds(us int64) float64 {
	return float64(us) / 1e6
}

// UsToMs converts a log timestamp delta to milliseconds.
func UsToMs(us int64) float64 {
	return float64(us) / 1e3
}

// MsToUs converts milliseconds to log microseconds.
func MsToUs(ms float64) int64 {
	return int64(ms * 1e3)
}

// SamplesForMs returns the number of samples covering ms milliseconds at the
// given sample rate, never less than 1.
func SamplesForMs(sampleRateHz, ms float64) int {
	if sampleRateHz <= 0 || ms <= 0 {
		return 1
	}
	n := int(sampleRateHz * ms / 1000.0)
	if n < 1 {
		n = 1
	}
	return n
}
