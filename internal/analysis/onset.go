// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Onset/tempo tuning. The history window covers roughly the last second
// of chunks at typical chunk rates; the evidence gate keeps the estimator
// quiet until it has seen a real beat pattern rather than guessing early.
const (
	historySize   = 50   // rolling flux window, in chunks
	minHistory    = 4    // chunks of history required before detecting
	thresholdK    = 1.5  // adaptive threshold: mean + k*stddev
	fluxFloor     = 1e-6 // absolute threshold floor, rejects numeric dust
	refractorySec = 0.1  // minimum spacing between onsets

	minOnsetsForTempo = 8  // evidence required before reporting a tempo
	intervalCap       = 16 // recent inter-onset intervals kept for the median

	minTempoBPM = 40
	maxTempoBPM = 240
)

// OnsetEstimator detects onsets from the spectral flux stream and
// estimates tempo from the median inter-onset interval. It owns its
// rolling history exclusively; all state lives in fixed-capacity buffers
// overwritten oldest-first, and Observe is called once per chunk from the
// single consumer context.
type OnsetEstimator struct {
	chunkSeconds     float64
	refractoryChunks uint64

	history   [historySize]float64
	histCount int
	histPos   int
	scratch   [historySize]float64

	chunkIndex uint64
	lastOnset  uint64
	haveOnset  bool
	onsetCount int

	intervals [intervalCap]float64
	ivCount   int
	ivPos     int
	ivScratch [intervalCap]float64
}

// NewOnsetEstimator creates an estimator for the given stream geometry,
// which fixes the chunk duration and therefore the refractory interval
// in chunks.
func NewOnsetEstimator(sampleRate float64, chunkSize int) *OnsetEstimator {
	chunkSeconds := float64(chunkSize) / sampleRate
	refractory := uint64(math.Round(refractorySec / chunkSeconds))
	if refractory < 1 {
		refractory = 1
	}
	return &OnsetEstimator{
		chunkSeconds:     chunkSeconds,
		refractoryChunks: refractory,
	}
}

// Observe consumes one spectral flux value and returns the beat
// confidence for this chunk plus the current tempo estimate. tempoOK is
// false until at least minOnsetsForTempo onsets have accumulated.
func (o *OnsetEstimator) Observe(flux float64) (confidence, tempoBPM float64, tempoOK bool) {
	idx := o.chunkIndex
	o.chunkIndex++

	threshold := o.adaptiveThreshold()

	o.history[o.histPos] = flux
	o.histPos = (o.histPos + 1) % historySize
	if o.histCount < historySize {
		o.histCount++
	}

	if threshold > 0 {
		confidence = math.Min(flux/threshold, 1.0)
	}

	isOnset := o.histCount > minHistory &&
		flux > threshold &&
		(!o.haveOnset || idx-o.lastOnset >= o.refractoryChunks)

	if isOnset {
		if o.haveOnset {
			interval := float64(idx-o.lastOnset) * o.chunkSeconds
			// Reject intervals outside the plausible musical range
			// before they can skew the median.
			if interval >= 60.0/maxTempoBPM && interval <= 60.0/minTempoBPM {
				o.intervals[o.ivPos] = interval
				o.ivPos = (o.ivPos + 1) % intervalCap
				if o.ivCount < intervalCap {
					o.ivCount++
				}
			}
		}
		o.lastOnset = idx
		o.haveOnset = true
		o.onsetCount++
	}

	if o.onsetCount >= minOnsetsForTempo && o.ivCount >= minOnsetsForTempo-1 {
		tempoBPM = o.tempoFromIntervals()
		tempoOK = tempoBPM > 0
	}

	return confidence, tempoBPM, tempoOK
}

// Reset clears all rolling state. The next Observe starts from chunk 0.
func (o *OnsetEstimator) Reset() {
	o.histCount = 0
	o.histPos = 0
	o.chunkIndex = 0
	o.lastOnset = 0
	o.haveOnset = false
	o.onsetCount = 0
	o.ivCount = 0
	o.ivPos = 0
}

// OnsetCount returns the number of onsets detected since the last reset.
func (o *OnsetEstimator) OnsetCount() int {
	return o.onsetCount
}

// adaptiveThreshold is mean + k*stddev over the recent flux history, with
// an absolute floor so silence does not make every rounding error an
// onset.
func (o *OnsetEstimator) adaptiveThreshold() float64 {
	if o.histCount < 2 {
		return fluxFloor
	}
	n := copy(o.scratch[:], o.history[:o.histCount])
	mean, std := stat.MeanStdDev(o.scratch[:n], nil)
	threshold := mean + thresholdK*std
	if threshold < fluxFloor {
		threshold = fluxFloor
	}
	return threshold
}

// tempoFromIntervals is 60 over the median of the retained intervals.
func (o *OnsetEstimator) tempoFromIntervals() float64 {
	n := copy(o.ivScratch[:], o.intervals[:o.ivCount])
	sorted := o.ivScratch[:n]
	sort.Float64s(sorted)
	median := stat.Quantile(0.5, stat.Empirical, sorted, nil)
	if median <= 0 {
		return 0
	}
	return 60.0 / median
}
