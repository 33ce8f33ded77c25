// SPDX-License-Identifier: MIT
/*
Package analysis derives spectral and rhythmic features from fixed-size
audio chunks. The Extractor windows each chunk, runs a real-input FFT and
computes the per-chunk descriptors; the OnsetEstimator tracks spectral
flux across chunks to detect onsets and estimate tempo.

Everything here runs sequentially on the single consumer context, so the
rolling state (previous spectrum, flux history) needs no synchronization.
*/
package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"

	"audiopipe/pkg/bitint"
)

// ErrChunkSize is returned when a chunk of the wrong length reaches the
// extractor. This is a programming error in the caller, not a runtime
// condition to recover from; chunks are never padded or truncated.
var ErrChunkSize = errors.New("chunk length does not match configured chunk size")

// StreamingFeatures is the immutable per-chunk feature record. A fresh
// record is produced for every chunk; the pipeline retains nothing of it.
type StreamingFeatures struct {
	Timestamp        uint64    `json:"timestamp"`          // chunk counter, strictly increasing
	RMSEnergy        float64   `json:"rms_energy"`         // [0,1] for normalized input
	ZeroCrossingRate float64   `json:"zero_crossing_rate"` // [0,1]
	SpectralCentroid float64   `json:"spectral_centroid"`  // Hz, 0 for silence
	DominantFreq     float64   `json:"dominant_frequency"` // Hz, DC excluded, 0 for silence
	SpectralFlux     float64   `json:"spectral_flux"`      // sum of positive bin increases
	BeatConfidence   float64   `json:"beat_confidence"`    // [0,1]
	TempoBPM         *float64  `json:"tempo_bpm,omitempty"`
	Spectrum         []float64 `json:"spectrum"` // magnitude bins, len chunkSize/2+1
}

// Extractor computes StreamingFeatures for fixed-size chunks. All FFT
// buffers are pre-allocated; Process allocates only the per-record
// spectrum copy and the occasional tempo value.
type Extractor struct {
	chunkSize  int
	sampleRate float64
	binWidth   float64

	fft       *fourier.FFT
	window    []float64
	input     []float64
	coeffs    []complex128
	magnitude []float64

	prevMag  []float64
	havePrev bool

	timestamp uint64
	onsets    *OnsetEstimator
}

// NewExtractor creates an Extractor for chunks of exactly chunkSize
// samples. chunkSize must be a power of 2 and sampleRate positive.
func NewExtractor(chunkSize int, sampleRate float64, windowType WindowFunc) (*Extractor, error) {
	if !bitint.IsPowerOfTwo(chunkSize) {
		return nil, fmt.Errorf("chunk size must be a power of 2, got %d", chunkSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}

	bins := chunkSize/2 + 1

	return &Extractor{
		chunkSize:  chunkSize,
		sampleRate: sampleRate,
		binWidth:   sampleRate / float64(chunkSize),
		fft:        fourier.NewFFT(chunkSize),
		window:     windowCoefficients(chunkSize, windowType),
		input:      make([]float64, chunkSize),
		coeffs:     make([]complex128, bins),
		magnitude:  make([]float64, bins),
		prevMag:    make([]float64, bins),
		onsets:     NewOnsetEstimator(sampleRate, chunkSize),
	}, nil
}

// Process computes the feature record for one chunk. The chunk must be
// exactly the configured size; anything else returns ErrChunkSize. The
// chunk is consumed by value and may be reused by the caller afterwards.
func (e *Extractor) Process(chunk []float32) (StreamingFeatures, error) {
	if len(chunk) != e.chunkSize {
		return StreamingFeatures{}, fmt.Errorf("%w: got %d, want %d", ErrChunkSize, len(chunk), e.chunkSize)
	}

	rms := rmsEnergy(chunk)
	zcr := zeroCrossingRate(chunk)

	// Window and widen to float64 in one pass.
	for i, s := range chunk {
		e.input[i] = float64(s) * e.window[i]
	}

	e.fft.Coefficients(e.coeffs, e.input)
	for i, c := range e.coeffs {
		e.magnitude[i] = cmplx.Abs(c)
	}

	centroid := e.spectralCentroid()
	dominant := e.dominantFrequency()
	flux := e.spectralFlux()

	copy(e.prevMag, e.magnitude)
	e.havePrev = true

	confidence, tempo, tempoOK := e.onsets.Observe(flux)

	features := StreamingFeatures{
		Timestamp:        e.timestamp,
		RMSEnergy:        rms,
		ZeroCrossingRate: zcr,
		SpectralCentroid: centroid,
		DominantFreq:     dominant,
		SpectralFlux:     flux,
		BeatConfidence:   confidence,
		Spectrum:         append([]float64(nil), e.magnitude...),
	}
	if tempoOK {
		features.TempoBPM = &tempo
	}
	e.timestamp++

	return features, nil
}

// Reset clears the previous-spectrum and onset state and restarts the
// timestamp counter at 0. Used when the stream restarts discontinuously.
func (e *Extractor) Reset() {
	e.timestamp = 0
	e.havePrev = false
	for i := range e.prevMag {
		e.prevMag[i] = 0
	}
	e.onsets.Reset()
}

// ChunkSize returns the fixed chunk length this extractor accepts.
func (e *Extractor) ChunkSize() int {
	return e.chunkSize
}

// FrequencyForBin returns the center frequency in Hz for a spectrum bin.
func (e *Extractor) FrequencyForBin(binIndex int) float64 {
	if binIndex < 0 || binIndex >= len(e.magnitude) {
		return 0
	}
	return float64(binIndex) * e.binWidth
}

const silenceFloor = 1e-10

// spectralCentroid is the magnitude-weighted mean frequency in Hz.
func (e *Extractor) spectralCentroid() float64 {
	var weighted, total float64
	for i, m := range e.magnitude {
		weighted += float64(i) * e.binWidth * m
		total += m
	}
	if total < silenceFloor {
		return 0
	}
	return weighted / total
}

// dominantFrequency is the frequency of the loudest bin, DC excluded.
func (e *Extractor) dominantFrequency() float64 {
	peakBin := 1
	peakVal := 0.0
	for i := 1; i < len(e.magnitude); i++ {
		if e.magnitude[i] > peakVal {
			peakVal = e.magnitude[i]
			peakBin = i
		}
	}
	if peakVal < silenceFloor {
		return 0
	}
	return float64(peakBin) * e.binWidth
}

// spectralFlux sums the positive bin-by-bin increases against the
// previous spectrum. Only increases count, matching the usual
// onset-detection formulation. The first chunk has no predecessor and
// reports zero flux.
func (e *Extractor) spectralFlux() float64 {
	if !e.havePrev {
		return 0
	}
	var flux float64
	for i, m := range e.magnitude {
		if d := m - e.prevMag[i]; d > 0 {
			flux += d
		}
	}
	return flux
}

func rmsEnergy(chunk []float32) float64 {
	if len(chunk) == 0 {
		return 0
	}
	var sumSquare float64
	for _, s := range chunk {
		f := float64(s)
		sumSquare += f * f
	}
	rms := math.Sqrt(sumSquare / float64(len(chunk)))
	return math.Min(rms, 1.0)
}

func zeroCrossingRate(chunk []float32) float64 {
	if len(chunk) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(chunk); i++ {
		if (chunk[i-1] >= 0) != (chunk[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(chunk)-1)
}
