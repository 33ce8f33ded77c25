package capture

import (
	"fmt"
	"sync"
	"time"

	"audiopipe/pkg/synth"
)

// ToneSource synthesizes a continuous sine tone at real-time pace. It
// exists for demos and for exercising the pipeline end to end without
// hardware; the phase is continuous across blocks so the spectrum is a
// clean single peak.
type ToneSource struct {
	frequency       float64
	sampleRate      float64
	framesPerBuffer int

	mu   sync.Mutex
	done chan struct{}
	wg   sync.WaitGroup
}

// NewToneSource creates a mono tone source.
func NewToneSource(frequency, sampleRate float64, framesPerBuffer int) *ToneSource {
	return &ToneSource{
		frequency:       frequency,
		sampleRate:      sampleRate,
		framesPerBuffer: framesPerBuffer,
	}
}

// Start begins emitting tone blocks on an internal goroutine.
func (s *ToneSource) Start(emit func(samples []float32)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return fmt.Errorf("tone source already started")
	}
	done := make(chan struct{})
	s.done = done

	blockDur := time.Duration(float64(s.framesPerBuffer) / s.sampleRate * float64(time.Second))
	block := make([]float32, s.framesPerBuffer)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(blockDur)
		defer ticker.Stop()

		var offset int64
		for {
			synth.SineAt(block, offset, s.sampleRate, s.frequency)
			emit(block)
			offset += int64(len(block))

			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()

	return nil
}

// Stop halts the generator. Idempotent.
func (s *ToneSource) Stop() error {
	s.mu.Lock()
	done := s.done
	s.done = nil
	s.mu.Unlock()

	if done == nil {
		return nil
	}
	close(done)
	s.wg.Wait()
	return nil
}
