// SPDX-License-Identifier: MIT
package capture

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"

	"audiopipe/internal/config"
	"audiopipe/pkg/synth"
)

// manualSource is a Source driven synchronously by the test: push calls
// the adapter's ingest path on the test goroutine, standing in for the
// capture callback.
type manualSource struct {
	emit    func([]float32)
	started bool
	failOn  bool
}

func (m *manualSource) Start(emit func(samples []float32)) error {
	if m.failOn {
		return ErrSourceUnavailable
	}
	m.emit = emit
	m.started = true
	return nil
}

func (m *manualSource) Stop() error {
	m.started = false
	return nil
}

func (m *manualSource) push(samples []float32) {
	m.emit(samples)
}

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.ChunkSize = 256
	cfg.BufferCapacity = 4 * cfg.ChunkSize
	return cfg
}

func TestAdapterProducesIntoRing(t *testing.T) {
	src := &manualSource{}
	a := NewAdapter(testConfig(), src)

	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer a.Stop()

	src.push(synth.Sine(512, 44100, 440))

	dst := make([]float32, 256)
	if !a.Ring().PopChunk(dst) {
		t.Fatal("expected a chunk after pushing 512 samples")
	}
	if !a.Ring().PopChunk(dst) {
		t.Fatal("expected a second chunk")
	}
	if a.Ring().PopChunk(dst) {
		t.Error("expected no third chunk")
	}
}

func TestAdapterDoubleStart(t *testing.T) {
	a := NewAdapter(testConfig(), &manualSource{})
	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer a.Stop()

	if err := a.Start(); err == nil {
		t.Error("expected error on second Start")
	}
}

func TestAdapterStopIdempotent(t *testing.T) {
	src := &manualSource{}
	a := NewAdapter(testConfig(), src)

	if err := a.Stop(); err != nil {
		t.Errorf("Stop before Start should be a no-op, got %v", err)
	}

	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := a.Stop(); err != nil {
		t.Errorf("first Stop failed: %v", err)
	}
	if err := a.Stop(); err != nil {
		t.Errorf("second Stop failed: %v", err)
	}
	if src.started {
		t.Error("source still running after Stop")
	}
}

func TestAdapterIgnoresPushAfterStop(t *testing.T) {
	src := &manualSource{}
	a := NewAdapter(testConfig(), src)
	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	rb := a.Ring()
	if err := a.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	src.push(synth.Sine(256, 44100, 440))
	if rb.Len() != 0 {
		t.Errorf("ring has %d samples pushed after Stop, want 0", rb.Len())
	}
}

func TestAdapterRestartGetsFreshBuffer(t *testing.T) {
	src := &manualSource{}
	a := NewAdapter(testConfig(), src)

	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	src.push(synth.Sine(512, 44100, 440))
	stale := a.Ring()
	if err := a.Stop(); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if err := a.Start(); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	defer a.Stop()

	fresh := a.Ring()
	if fresh == stale {
		t.Fatal("restart must build a fresh ring buffer, got the stopped one")
	}
	if fresh.Len() != 0 {
		t.Errorf("fresh ring holds %d samples, want 0", fresh.Len())
	}
}

func TestAdapterSourceFailure(t *testing.T) {
	a := NewAdapter(testConfig(), &manualSource{failOn: true})

	err := a.Start()
	if err == nil {
		t.Fatal("expected error from failing source")
	}
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("error should wrap ErrSourceUnavailable, got %v", err)
	}
	if a.Running() {
		t.Error("adapter must not be running after failed Start")
	}
}

func TestAdapterAppliesGain(t *testing.T) {
	cfg := testConfig()
	cfg.AutoGain = true
	cfg.TargetRMS = 0.2
	src := &manualSource{}
	a := NewAdapter(cfg, src)

	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer a.Stop()

	if g := a.Gain(); g != 1.0 {
		t.Errorf("initial gain = %f, want 1.0", g)
	}

	// Loud input: the applied gain must fall below 1 and be observable.
	for i := 0; i < 20; i++ {
		src.push(synth.Sine(256, 44100, 440))
	}
	if g := a.Gain(); g >= 1.0 {
		t.Errorf("gain after loud input = %f, want < 1.0", g)
	}
}

func TestRecordingTap(t *testing.T) {
	src := &manualSource{}
	a := NewAdapter(testConfig(), src)
	if err := a.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer a.Stop()

	path := filepath.Join(t.TempDir(), "tap.wav")
	if err := a.StartRecording(path); err != nil {
		t.Fatalf("StartRecording failed: %v", err)
	}
	if err := a.StartRecording(path); err == nil {
		t.Error("expected error on double StartRecording")
	}

	for i := 0; i < 10; i++ {
		src.push(synth.Sine(256, 44100, 440))
	}
	if err := a.StopRecording(); err != nil {
		t.Fatalf("StopRecording failed: %v", err)
	}
	if err := a.StopRecording(); err != nil {
		t.Errorf("second StopRecording should be a no-op, got %v", err)
	}

	// The file must decode as WAV with the pushed sample count.
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("reopening recording: %v", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		t.Fatal("recording is not a valid WAV file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatalf("decoding recording: %v", err)
	}
	if got := len(buf.Data); got != 10*256 {
		t.Errorf("recording holds %d samples, want %d", got, 10*256)
	}
}
