// SPDX-License-Identifier: MIT
package analysis

import (
	"math"
	"testing"
)

// Geometry chosen so chunk timing is exact: 512 samples at 51200Hz is
// exactly 10ms per chunk, and a 120 BPM beat (0.5s) lands every 50 chunks.
const (
	onsetChunkSize  = 512
	onsetSampleRate = 51200.0
	beatPeriod      = 50 // chunks between flux spikes = 500ms = 120 BPM
)

// feedBeats pushes n chunks of flux into o, spiking every beatPeriod
// chunks, and returns the last observation.
func feedBeats(o *OnsetEstimator, n int) (confidence, tempo float64, tempoOK bool) {
	for i := 0; i < n; i++ {
		flux := 0.001
		if i%beatPeriod == 0 {
			flux = 10.0
		}
		confidence, tempo, tempoOK = o.Observe(flux)
	}
	return confidence, tempo, tempoOK
}

func TestTempoAt120BPM(t *testing.T) {
	o := NewOnsetEstimator(onsetSampleRate, onsetChunkSize)

	// 10 beats worth of chunks comfortably clears the 8 onset gate.
	_, tempo, ok := feedBeats(o, 10*beatPeriod)
	if !ok {
		t.Fatalf("expected a tempo estimate after %d onsets", o.OnsetCount())
	}
	if math.Abs(tempo-120) > 2 {
		t.Errorf("tempo = %f BPM, want 120 +/- 2", tempo)
	}
}

func TestTempoAbsentBelowEvidenceGate(t *testing.T) {
	o := NewOnsetEstimator(onsetSampleRate, onsetChunkSize)

	// 6 beats only: below the 8 onset minimum, no estimate allowed.
	_, _, ok := feedBeats(o, 6*beatPeriod)
	if ok {
		t.Errorf("tempo reported with only %d onsets, want none before %d",
			o.OnsetCount(), minOnsetsForTempo)
	}
}

func TestOnsetConfidence(t *testing.T) {
	o := NewOnsetEstimator(onsetSampleRate, onsetChunkSize)

	var quietConf, spikeConf float64
	for i := 0; i < 3*beatPeriod; i++ {
		flux := 0.001
		if i%beatPeriod == 0 {
			flux = 10.0
		}
		conf, _, _ := o.Observe(flux)
		if i%beatPeriod == 0 {
			spikeConf = conf
		} else if i > minHistory {
			quietConf = conf
		}
		if conf < 0 || conf > 1 {
			t.Fatalf("confidence %f outside [0,1] at chunk %d", conf, i)
		}
	}

	if spikeConf <= quietConf {
		t.Errorf("spike confidence %f should exceed quiet confidence %f", spikeConf, quietConf)
	}
	if spikeConf != 1.0 {
		t.Errorf("confidence at a strong spike = %f, want clamped 1.0", spikeConf)
	}
}

func TestRefractorySuppressesDoubleTrigger(t *testing.T) {
	o := NewOnsetEstimator(onsetSampleRate, onsetChunkSize)

	// Warm up with quiet flux so the detector is armed.
	for i := 0; i < 2*minHistory; i++ {
		o.Observe(0.001)
	}

	// A transient smeared over adjacent chunks must count once: the
	// refractory interval (100ms = 10 chunks here) blocks the repeats.
	o.Observe(10.0)
	o.Observe(9.0)
	o.Observe(8.0)

	if got := o.OnsetCount(); got != 1 {
		t.Errorf("onset count = %d, want 1 (double trigger inside refractory)", got)
	}
}

func TestImplausibleIntervalsRejected(t *testing.T) {
	o := NewOnsetEstimator(onsetSampleRate, onsetChunkSize)

	// Spikes 2 seconds apart (30 BPM) are outside the 40-240 BPM range,
	// so no amount of them can produce a tempo.
	const slowPeriod = 200 // chunks = 2s
	for i := 0; i < 12*slowPeriod; i++ {
		flux := 0.001
		if i%slowPeriod == 0 {
			flux = 10.0
		}
		_, _, ok := o.Observe(flux)
		if ok {
			t.Fatalf("tempo reported from implausible 30 BPM intervals at chunk %d", i)
		}
	}
}

func TestSilenceProducesNoOnsets(t *testing.T) {
	o := NewOnsetEstimator(onsetSampleRate, onsetChunkSize)

	for i := 0; i < 500; i++ {
		conf, _, ok := o.Observe(0)
		if conf != 0 {
			t.Fatalf("confidence %f on zero flux at chunk %d, want 0", conf, i)
		}
		if ok {
			t.Fatalf("tempo reported for silence at chunk %d", i)
		}
	}
	if o.OnsetCount() != 0 {
		t.Errorf("onset count for silence = %d, want 0", o.OnsetCount())
	}
}

func TestResetClearsEvidence(t *testing.T) {
	o := NewOnsetEstimator(onsetSampleRate, onsetChunkSize)

	_, _, ok := feedBeats(o, 10*beatPeriod)
	if !ok {
		t.Fatal("expected tempo before reset")
	}

	o.Reset()
	if o.OnsetCount() != 0 {
		t.Errorf("onset count after reset = %d, want 0", o.OnsetCount())
	}

	// Below the gate again after reset.
	_, _, ok = feedBeats(o, 3*beatPeriod)
	if ok {
		t.Error("tempo should be absent again after reset until evidence re-accumulates")
	}
}

func TestObserveZeroAllocs(t *testing.T) {
	o := NewOnsetEstimator(onsetSampleRate, onsetChunkSize)

	i := 0
	allocs := testing.AllocsPerRun(500, func() {
		flux := 0.001
		if i%beatPeriod == 0 {
			flux = 10.0
		}
		i++
		o.Observe(flux)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations in Observe, got %.1f", allocs)
	}
}
