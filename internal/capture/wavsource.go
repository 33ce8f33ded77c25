package capture

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	applog "audiopipe/internal/log"
)

// FileSource replays a WAV file through the pipeline at real-time pace,
// block by block from its own goroutine. Useful for offline analysis and
// for exercising the full pipeline without audio hardware.
type FileSource struct {
	path            string
	framesPerBuffer int

	mu   sync.Mutex
	done chan struct{}
	wg   sync.WaitGroup
}

// NewFileSource creates a source that reads path and emits blocks of
// framesPerBuffer frames.
func NewFileSource(path string, framesPerBuffer int) *FileSource {
	return &FileSource{
		path:            path,
		framesPerBuffer: framesPerBuffer,
	}
}

// Start opens the file and begins paced playback into emit. The source
// stops by itself at end of file.
func (s *FileSource) Start(emit func(samples []float32)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done != nil {
		return fmt.Errorf("file source already started")
	}

	file, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}

	dec := wav.NewDecoder(file)
	if !dec.IsValidFile() {
		file.Close()
		return fmt.Errorf("%w: %s is not a valid WAV file", ErrSourceUnavailable, s.path)
	}

	sampleRate := int(dec.SampleRate)
	channels := int(dec.NumChans)
	bitDepth := int(dec.BitDepth)
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))

	applog.Infof("Capture: replaying %s (%d Hz, %d ch, %d-bit)", s.path, sampleRate, channels, bitDepth)

	done := make(chan struct{})
	s.done = done

	blockDur := time.Duration(float64(s.framesPerBuffer) / float64(sampleRate) * float64(time.Second))
	intBuf := &audio.IntBuffer{
		Format: &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:   make([]int, s.framesPerBuffer*channels),
	}
	block := make([]float32, s.framesPerBuffer*channels)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer file.Close()

		ticker := time.NewTicker(blockDur)
		defer ticker.Stop()

		for {
			n, err := dec.PCMBuffer(intBuf)
			if err != nil || n == 0 {
				if err != nil {
					applog.Warnf("Capture: WAV read error: %v", err)
				}
				applog.Infof("Capture: end of file %s", s.path)
				return
			}

			for i := 0; i < n; i++ {
				block[i] = float32(float64(intBuf.Data[i]) * scale)
			}
			emit(block[:n])

			select {
			case <-done:
				return
			case <-ticker.C:
			}
		}
	}()

	return nil
}

// Stop halts playback and waits for the reader goroutine to exit.
// Idempotent.
func (s *FileSource) Stop() error {
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
