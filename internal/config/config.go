package config

import (
	"errors"
	"fmt"
	"time"

	"audiopipe/pkg/bitint"
)

// ErrInvalidConfig is wrapped by every validation failure so callers can
// classify configuration errors with errors.Is.
var ErrInvalidConfig = errors.New("invalid stream configuration")

// Overflow policies for the capture ring buffer. Overwrite favors temporal
// freshness: the producer is never stalled and the oldest unread samples
// are sacrificed. Reject drops the incoming samples instead.
const (
	OverflowOverwrite = "overwrite"
	OverflowReject    = "reject"
)

// Core configuration constants that define the boundaries and defaults
// for the capture pipeline.
const (
	DefaultSampleRate   = 44100 // CD-quality audio
	DefaultChannels     = 1     // Mono
	DefaultChunkSize    = 1024  // Balanced latency vs frequency resolution
	DefaultBufferChunks = 8     // Ring capacity in chunks
	DefaultTargetRMS    = 0.2   // AGC target level
	DefaultDeviceID     = -1    // System default input device

	MinChunkSize    = 64   // Below this the spectrum is too coarse to use
	MaxChunkSize    = 8192 // Above this chunk latency dominates
	MinBufferChunks = 4    // Minimum ring capacity, in chunks

	// LatencyTarget is the end-to-end budget the low latency preset is
	// expected to meet: chunk accumulation plus extraction time.
	LatencyTarget = 25 * time.Millisecond
)

// Config holds all runtime configuration for the capture pipeline.
// It is constructed from defaults, then optionally a YAML file, then
// environment overrides, then command line flags.
type Config struct {
	// Stream settings
	SampleRate     int     `yaml:"sample_rate"`     // Hz
	Channels       int     `yaml:"channels"`        // 1=mono, 2=stereo (down-mixed before analysis)
	ChunkSize      int     `yaml:"chunk_size"`      // Samples per analysis chunk, power of 2
	BufferCapacity int     `yaml:"buffer_capacity"` // Ring buffer capacity in samples
	AutoGain       bool    `yaml:"auto_gain"`       // Enable AGC on the capture path
	TargetRMS      float64 `yaml:"target_rms"`      // AGC target level, (0,1]
	Overflow       string  `yaml:"overflow"`        // "overwrite" (default) or "reject"
	Window         string  `yaml:"window"`          // FFT window function name

	// Device settings
	DeviceID   int  `yaml:"device"`      // Input device index, -1 for default
	LowLatency bool `yaml:"low_latency"` // Request low latency from the device

	// Ambient settings
	LogLevel  string          `yaml:"log_level"`
	Transport TransportConfig `yaml:"transport"`
	Recording RecordingConfig `yaml:"recording"`
}

// TransportConfig holds settings for publishing feature records.
type TransportConfig struct {
	WebSocketEnabled bool   `yaml:"websocket_enabled"` // Broadcast features over WebSocket
	WebSocketAddr    string `yaml:"websocket_addr"`    // Listen address, e.g. ":8080"
	UDPEnabled       bool   `yaml:"udp_enabled"`       // Send binary feature packets over UDP
	UDPTargetAddress string `yaml:"udp_target_address"`
}

// RecordingConfig holds settings for archiving the captured stream.
type RecordingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Path     string `yaml:"path"`
	BitDepth int    `yaml:"bit_depth"`
}

// NewConfig returns a Config with balanced defaults: 1024 samples per
// chunk at 44.1kHz, roughly 23ms of chunk accumulation.
func NewConfig() *Config {
	return &Config{
		SampleRate:     DefaultSampleRate,
		Channels:       DefaultChannels,
		ChunkSize:      DefaultChunkSize,
		BufferCapacity: DefaultBufferChunks * DefaultChunkSize,
		AutoGain:       false,
		TargetRMS:      DefaultTargetRMS,
		Overflow:       OverflowOverwrite,
		Window:         "hann",
		DeviceID:       DefaultDeviceID,
		LowLatency:     false,
		LogLevel:       "info",
		Transport: TransportConfig{
			WebSocketEnabled: false,
			WebSocketAddr:    ":8080",
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
		},
		Recording: RecordingConfig{
			Enabled:  false,
			Path:     "",
			BitDepth: 16,
		},
	}
}

// LowLatencyConfig returns the low latency preset: 512 samples per chunk
// at 44.1kHz, about 11.6ms of chunk accumulation, well inside the 25ms
// end-to-end budget.
func LowLatencyConfig() *Config {
	cfg := NewConfig()
	cfg.ChunkSize = 512
	cfg.BufferCapacity = DefaultBufferChunks * cfg.ChunkSize
	cfg.LowLatency = true
	return cfg
}

// CaptureLatency is the time it takes to accumulate one chunk, the floor
// on the achievable end-to-end latency.
func (c *Config) CaptureLatency() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(c.ChunkSize) / float64(c.SampleRate) * float64(time.Second))
}

// FrequencyResolution is the width of one spectrum bin in Hz.
func (c *Config) FrequencyResolution() float64 {
	if c.ChunkSize == 0 {
		return 0
	}
	return float64(c.SampleRate) / float64(c.ChunkSize)
}

// Validate checks the configuration against pipeline constraints.
// All failures wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: sample_rate must be positive, got %d", ErrInvalidConfig, c.SampleRate)
	}
	if c.Channels != 1 && c.Channels != 2 {
		return fmt.Errorf("%w: channels must be 1 or 2, got %d", ErrInvalidConfig, c.Channels)
	}
	if !bitint.IsPowerOfTwo(c.ChunkSize) || c.ChunkSize < MinChunkSize || c.ChunkSize > MaxChunkSize {
		return fmt.Errorf("%w: chunk_size must be a power of 2 in [%d,%d], got %d",
			ErrInvalidConfig, MinChunkSize, MaxChunkSize, c.ChunkSize)
	}
	if c.BufferCapacity < MinBufferChunks*c.ChunkSize {
		return fmt.Errorf("%w: buffer_capacity must be at least %d chunks (%d samples), got %d",
			ErrInvalidConfig, MinBufferChunks, MinBufferChunks*c.ChunkSize, c.BufferCapacity)
	}
	if c.AutoGain && (c.TargetRMS <= 0 || c.TargetRMS > 1) {
		return fmt.Errorf("%w: target_rms must be in (0,1], got %f", ErrInvalidConfig, c.TargetRMS)
	}
	if c.Overflow != OverflowOverwrite && c.Overflow != OverflowReject {
		return fmt.Errorf("%w: overflow must be %q or %q, got %q",
			ErrInvalidConfig, OverflowOverwrite, OverflowReject, c.Overflow)
	}
	return nil
}
