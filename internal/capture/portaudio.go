// SPDX-License-Identifier: MIT
package capture

import (
	"fmt"
	"runtime"
	"time"

	"github.com/gordonklaus/portaudio"

	applog "audiopipe/internal/log"
)

// DeviceSource captures from a PortAudio input device. The PortAudio
// callback is the producer context: it runs on a dedicated OS thread at
// the driver's cadence, and the emit function it feeds must never block.
type DeviceSource struct {
	deviceID        int
	channels        int
	sampleRate      float64
	framesPerBuffer int
	lowLatency      bool

	stream *portaudio.Stream
}

// NewDeviceSource creates a source for the given input device geometry.
// Initialize must have been called before Start.
func NewDeviceSource(deviceID, channels int, sampleRate float64, framesPerBuffer int, lowLatency bool) *DeviceSource {
	return &DeviceSource{
		deviceID:        deviceID,
		channels:        channels,
		sampleRate:      sampleRate,
		framesPerBuffer: framesPerBuffer,
		lowLatency:      lowLatency,
	}
}

// Start opens the input stream and begins delivering interleaved float32
// buffers to emit from the PortAudio callback.
func (s *DeviceSource) Start(emit func(samples []float32)) error {
	device, err := InputDevice(s.deviceID)
	if err != nil {
		return err
	}

	var latency time.Duration
	if s.lowLatency {
		latency = device.DefaultLowInputLatency
	} else {
		latency = device.DefaultHighInputLatency
	}

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: s.channels,
			Device:   device,
			Latency:  latency,
		},
		FramesPerBuffer: s.framesPerBuffer,
		SampleRate:      s.sampleRate,
	}

	stream, err := portaudio.OpenStream(params, func(in []float32) {
		// Keep the callback pinned to its OS thread for the duration of
		// each block; PortAudio owns the cadence.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		emit(in)
	})
	if err != nil {
		return fmt.Errorf("%w: open stream: %v", ErrSourceUnavailable, err)
	}
	s.stream = stream

	if err := s.stream.Start(); err != nil {
		s.stream.Close()
		s.stream = nil
		return fmt.Errorf("%w: start stream: %v", ErrSourceUnavailable, err)
	}

	applog.Infof("Capture: device %q started (%.0f Hz, %d ch, %d frames, latency %s)",
		device.Name, s.sampleRate, s.channels, s.framesPerBuffer, latency)
	return nil
}

// Stop stops and closes the stream. Idempotent.
func (s *DeviceSource) Stop() error {
	if s.stream == nil {
		return nil
	}
	if err := s.stream.Stop(); err != nil {
		return err
	}
	if err := s.stream.Close(); err != nil {
		return err
	}
	s.stream = nil
	return nil
}
