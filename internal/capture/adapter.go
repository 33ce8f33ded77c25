// SPDX-License-Identifier: MIT
package capture

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"audiopipe/internal/config"
	applog "audiopipe/internal/log"
	"audiopipe/internal/ring"
)

// Adapter connects a Source to a ring buffer. The ingest path runs on
// the source's producer context and must stay free of locks, allocations
// and logging; everything it touches is pre-allocated or atomic.
//
// Start builds a fresh ring buffer and AGC state every time, so a
// stopped adapter restarts cleanly instead of partially reusing stale
// cursors or gain history.
type Adapter struct {
	source    Source
	channels  int
	capacity  int
	overwrite bool
	autoGain  bool
	targetRMS float64

	mu      sync.Mutex // guards Start/Stop transitions only
	running atomic.Bool

	buf      *ring.Buffer
	agc      *agc
	gainBits atomic.Uint64 // last applied gain, for inspection

	rec recorder
}

// NewAdapter creates an Adapter for the given stream configuration.
// The configuration is assumed validated.
func NewAdapter(cfg *config.Config, source Source) *Adapter {
	a := &Adapter{
		source:    source,
		channels:  cfg.Channels,
		capacity:  cfg.BufferCapacity,
		overwrite: cfg.Overflow == config.OverflowOverwrite,
		autoGain:  cfg.AutoGain,
		targetRMS: cfg.TargetRMS,
	}
	a.rec.sampleRate = cfg.SampleRate
	a.rec.channels = cfg.Channels
	a.rec.bitDepth = cfg.Recording.BitDepth
	a.gainBits.Store(math.Float64bits(1.0))
	return a
}

// Start attaches to the source and begins producing into a fresh ring
// buffer. Starting an already started adapter is an error.
func (a *Adapter) Start() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running.Load() {
		return fmt.Errorf("capture adapter already started")
	}

	a.buf = ring.New(a.capacity, a.overwrite)
	if a.autoGain {
		a.agc = newAGC(a.targetRMS)
	} else {
		a.agc = nil
	}
	a.gainBits.Store(math.Float64bits(1.0))

	a.running.Store(true)
	if err := a.source.Start(a.ingest); err != nil {
		a.running.Store(false)
		return fmt.Errorf("start capture source: %w", err)
	}

	applog.Infof("Capture: adapter started (capacity=%d samples, agc=%v)", a.buf.Capacity(), a.autoGain)
	return nil
}

// Stop detaches from the source. Idempotent; after Stop returns no
// further samples reach the ring buffer.
func (a *Adapter) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running.Load() {
		return nil
	}
	a.running.Store(false)

	if err := a.source.Stop(); err != nil {
		return fmt.Errorf("stop capture source: %w", err)
	}
	applog.Infof("Capture: adapter stopped (dropped=%d samples)", a.buf.Dropped())
	return nil
}

// ingest is the producer hot path: gate on running, normalize, push,
// optionally tap into the recording encoder.
func (a *Adapter) ingest(samples []float32) {
	if !a.running.Load() {
		return
	}
	if a.agc != nil {
		a.gainBits.Store(math.Float64bits(a.agc.apply(samples)))
	}
	a.buf.Push(samples)
	if a.rec.active.Load() {
		a.rec.write(samples)
	}
}

// Ring returns the buffer for the current run. Valid after Start; the
// consumer side must fetch it again after a restart.
func (a *Adapter) Ring() *ring.Buffer {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.buf
}

// Gain returns the most recently applied AGC gain, 1.0 when AGC is off.
func (a *Adapter) Gain() float64 {
	return math.Float64frombits(a.gainBits.Load())
}

// Running reports whether the adapter is currently producing.
func (a *Adapter) Running() bool {
	return a.running.Load()
}
