// Package dsp holds the numeric primitives the rule catalog depends on:
// FFT-based spectrum analysis and pure time-domain event detectors.
package dsp

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Fixed band edges for band-energy bucketing.
const (
	lowBandMaxHz = 30.0
	midBandMaxHz = 150.0
)

// Welch averaging geometry for long steady signals.
const (
	welchSegmentSize = 2048
	welchMaxInput    = 32768
)

// minSpectrumSamples gates spectra that would be too coarse to classify.
const minSpectrumSamples = 32

// BandEnergy buckets spectral energy into fixed low/mid/high ranges.
type BandEnergy struct {
	Low  float64 `json:"low"`  // 0-30 Hz
	Mid  float64 `json:"mid"`  // 30-150 Hz
	High float64 `json:"high"` // 150+ Hz
}

// SpectrumResult is the output of a frequency analysis.
type SpectrumResult struct {
	Frequencies       []float64
	Magnitudes        []float64
	DominantFrequency float64
	BandEnergy        BandEnergy
}

// SpectralPeak is one local maximum of a spectrum. Prominence is the peak
// magnitude divided by the average of its immediate neighbor bins; it
// separates narrowband resonance from broadband noise.
type SpectralPeak struct {
	FrequencyHz float64
	Magnitude   float64
	Prominence  float64
}

// AnalyzeFrequency computes the single-sided magnitude spectrum of signal.
// Signals shorter than minSpectrumSamples yield an empty result.
func AnalyzeFrequency(signal []float64, sampleRateHz float64) SpectrumResult {
	n := len(signal)
	if n < minSpectrumSamples || sampleRateHz <= 0 {
		return SpectrumResult{}
	}

	windowed := make([]float64, n)
	for i, v := range signal {
		// Hann window
		w := 0.5 * (1.0 - math.Cos(2.0*math.Pi*float64(i)/float64(n-1)))
		windowed[i] = v * w
	}

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, windowed)

	bins := n/2 + 1
	result := SpectrumResult{
		Frequencies: make([]float64, bins),
		Magnitudes:  make([]float64, bins),
	}

	df := sampleRateHz / float64(n)
	for i := 0; i < bins; i++ {
		result.Frequencies[i] = float64(i) * df
		mag := cmplxAbs(coeffs[i]) * 2.0 / float64(n)
		result.Magnitudes[i] = mag
	}
	// DC carries no oscillation information.
	result.Magnitudes[0] = 0

	dominantIdx := 0
	for i := 1; i < bins; i++ {
		f := result.Frequencies[i]
		e := result.Magnitudes[i] * result.Magnitudes[i]
		switch {
		case f < lowBandMaxHz:
			result.BandEnergy.Low += e
		case f < midBandMaxHz:
			result.BandEnergy.Mid += e
		default:
			result.BandEnergy.High += e
		}
		if result.Magnitudes[i] > result.Magnitudes[dominantIdx] {
			dominantIdx = i
		}
	}
	if dominantIdx > 0 {
		result.DominantFrequency = result.Frequencies[dominantIdx]
	}
	return result
}

// FindSpectralPeaks returns the spectrum's local maxima ordered by magnitude.
func FindSpectralPeaks(spectrum SpectrumResult, maxPeaks int) []SpectralPeak {
	mags := spectrum.Magnitudes
	if len(mags) < 3 {
		return nil
	}
	if maxPeaks <= 0 {
		maxPeaks = 8
	}

	peaks := make([]SpectralPeak, 0, maxPeaks)
	for i := 1; i < len(mags)-1; i++ {
		if mags[i] <= mags[i-1] || mags[i] <= mags[i+1] {
			continue
		}
		neighborAvg := (mags[i-1] + mags[i+1]) / 2.0
		prominence := 0.0
		if neighborAvg > 1e-12 {
			prominence = mags[i] / neighborAvg
		}
		peaks = append(peaks, SpectralPeak{
			FrequencyHz: spectrum.Frequencies[i],
			Magnitude:   mags[i],
			Prominence:  prominence,
		})
	}

	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].Magnitude > peaks[j].Magnitude
	})
	if len(peaks) > maxPeaks {
		peaks = peaks[:maxPeaks]
	}
	return peaks
}

// ComputeAveragedSpectrum performs Welch-style overlapped-segment averaging
// for long, noisy signals. Inputs shorter than one segment fall back to a
// plain spectrum; total input is capped to bound the cost.
func ComputeAveragedSpectrum(signal []float64, sampleRateHz float64) SpectrumResult {
	if len(signal) < welchSegmentSize {
		return AnalyzeFrequency(signal, sampleRateHz)
	}
	if len(signal) > welchMaxInput {
		signal = signal[:welchMaxInput]
	}

	step := welchSegmentSize / 2 // 50% overlap
	bins := welchSegmentSize/2 + 1
	sum := make([]float64, bins)
	segments := 0

	var freqs []float64
	for start := 0; start+welchSegmentSize <= len(signal); start += step {
		seg := AnalyzeFrequency(signal[start:start+welchSegmentSize], sampleRateHz)
		if len(seg.Magnitudes) != bins {
			continue
		}
		if freqs == nil {
			freqs = seg.Frequencies
		}
		for i, m := range seg.Magnitudes {
			sum[i] += m
		}
		segments++
	}
	if segments == 0 {
		return AnalyzeFrequency(signal, sampleRateHz)
	}

	result := SpectrumResult{
		Frequencies: freqs,
		Magnitudes:  make([]float64, bins),
	}
	dominantIdx := 0
	for i := range sum {
		result.Magnitudes[i] = sum[i] / float64(segments)
		f := result.Frequencies[i]
		e := result.Magnitudes[i] * result.Magnitudes[i]
		switch {
		case i == 0:
			// skip DC
		case f < lowBandMaxHz:
			result.BandEnergy.Low += e
		case f < midBandMaxHz:
			result.BandEnergy.Mid += e
		default:
			result.BandEnergy.High += e
		}
		if i > 0 && result.Magnitudes[i] > result.Magnitudes[dominantIdx] {
			dominantIdx = i
		}
	}
	if dominantIdx > 0 {
		result.DominantFrequency = result.Frequencies[dominantIdx]
	}
	return result
}

// NoiseFloor estimates the broadband floor as the given percentile of the
// magnitude bins, excluding DC.
func NoiseFloor(spectrum SpectrumResult, percentile float64) float64 {
	if len(spectrum.Magnitudes) < 2 {
		return 0
	}
	sorted := append([]float64(nil), spectrum.Magnitudes[1:]...)
	sort.Float64s(sorted)
	idx := int(percentile / 100.0 * float64(len(sorted)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}
