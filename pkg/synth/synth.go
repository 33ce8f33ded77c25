// Package synth generates deterministic test signals in the normalized
// float32 sample format used throughout the pipeline. It backs the tone
// source and the analysis tests.
package synth

import "math"

// Sine returns n samples of a sine wave at the given frequency, scaled to
// 90% of full range to stay clear of clipping after windowing.
func Sine(n int, sampleRate, frequency float64) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		t := float64(i) / sampleRate
		buf[i] = float32(math.Sin(2*math.Pi*frequency*t) * 0.9)
	}
	return buf
}

// SineAt fills buf starting at sample offset, so a continuous tone can be
// produced block by block without phase discontinuities at block edges.
func SineAt(buf []float32, offset int64, sampleRate, frequency float64) {
	for i := range buf {
		t := float64(offset+int64(i)) / sampleRate
		buf[i] = float32(math.Sin(2*math.Pi*frequency*t) * 0.9)
	}
}

// Harmonics returns n samples of a 440Hz fundamental plus two harmonics,
// a crude stand-in for a pitched instrument.
func Harmonics(n int, sampleRate float64) []float32 {
	buf := make([]float32, n)
	for i := range buf {
		t := float64(i) / sampleRate
		s := math.Sin(2*math.Pi*440*t)*0.5 +
			math.Sin(2*math.Pi*880*t)*0.3 +
			math.Sin(2*math.Pi*1320*t)*0.2
		buf[i] = float32(s * 0.9)
	}
	return buf
}

// Clicks returns n samples of silence with a single-sample impulse every
// period samples, starting at sample 0. Useful for exercising onset and
// tempo detection with a known beat grid.
func Clicks(n, period int, amplitude float32) []float32 {
	buf := make([]float32, n)
	if period <= 0 {
		return buf
	}
	for i := 0; i < n; i += period {
		buf[i] = amplitude
	}
	return buf
}

// Silence returns n zero samples.
func Silence(n int) []float32 {
	return make([]float32, n)
}

// PeakBin returns the index of the largest magnitude in [startBin, endBin],
// clamped to the slice bounds.
func PeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	peakValue := magnitudes[startBin]
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > peakValue {
			peakValue = magnitudes[bin]
			peakBin = bin
		}
	}
	return peakBin
}
