package capture

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	applog "audiopipe/internal/log"
)

// maxWriteFailures is the number of consecutive encoder failures before
// the tap disables itself rather than fail on every block.
const maxWriteFailures = 5

// recorder archives the post-AGC capture stream to a WAV file. The tap
// runs inside the producer callback, so the encode buffer is
// pre-allocated and state transitions are atomic.
type recorder struct {
	sampleRate int
	channels   int
	bitDepth   int

	active   atomic.Bool
	failures atomic.Int32

	mu        sync.Mutex // guards start/stop, not the write path
	file      *os.File
	enc       *wav.Encoder
	sampleBuf *audio.IntBuffer
	scale     float64
}

// StartRecording begins archiving the captured stream to a WAV file at
// path. Recording taps the stream after AGC, so the file contains what
// the analysis side sees.
func (a *Adapter) StartRecording(path string) error {
	return a.rec.start(path)
}

// StopRecording finalizes and closes the WAV file. No-op when not
// recording.
func (a *Adapter) StopRecording() error {
	return a.rec.stop()
}

func (r *recorder) start(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.active.Load() {
		return fmt.Errorf("already recording")
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create recording file: %w", err)
	}

	bitDepth := r.bitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}

	r.file = file
	r.enc = wav.NewEncoder(file, r.sampleRate, bitDepth, r.channels, 1)
	r.scale = float64(int(1)<<(bitDepth-1)) - 1
	r.sampleBuf = &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: r.channels,
			SampleRate:  r.sampleRate,
		},
		Data:           make([]int, 8192),
		SourceBitDepth: bitDepth,
	}
	r.failures.Store(0)
	r.active.Store(true)

	applog.Infof("Capture: recording to %s (%d-bit)", path, bitDepth)
	return nil
}

func (r *recorder) stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.enc == nil {
		return nil
	}
	r.active.Store(false)

	if err := r.enc.Close(); err != nil {
		return err
	}
	r.enc = nil

	if r.file != nil {
		if err := r.file.Close(); err != nil {
			return err
		}
		r.file = nil
	}
	return nil
}

// write encodes one block. Producer hot path: the sample buffer is
// reused, and after maxWriteFailures consecutive errors the tap turns
// itself off instead of burning the callback on a dead file.
func (r *recorder) write(samples []float32) {
	if r.failures.Load() >= maxWriteFailures {
		r.active.Store(false)
		return
	}

	if cap(r.sampleBuf.Data) < len(samples) {
		r.sampleBuf.Data = make([]int, len(samples))
	}
	r.sampleBuf.Data = r.sampleBuf.Data[:len(samples)]

	for i, s := range samples {
		f := float64(s)
		if f > 1 {
			f = 1
		}
		if f < -1 {
			f = -1
		}
		r.sampleBuf.Data[i] = int(f * r.scale)
	}

	if err := r.enc.Write(r.sampleBuf); err != nil {
		r.failures.Add(1)
		return
	}
	r.failures.Store(0)
}
