package config

import (
	"errors"
	"testing"
	"time"
)

func TestValidateDefaults(t *testing.T) {
	t.Parallel()
	if err := NewConfig().Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
	if err := LowLatencyConfig().Validate(); err != nil {
		t.Errorf("low latency preset should validate, got %v", err)
	}
}

func TestValidateFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"negative sample rate", func(c *Config) { c.SampleRate = -44100 }},
		{"zero channels", func(c *Config) { c.Channels = 0 }},
		{"too many channels", func(c *Config) { c.Channels = 6 }},
		{"chunk not power of two", func(c *Config) { c.ChunkSize = 1000 }},
		{"chunk too small", func(c *Config) { c.ChunkSize = 32 }},
		{"chunk too large", func(c *Config) { c.ChunkSize = 16384 }},
		{"buffer too small", func(c *Config) { c.BufferCapacity = 2 * c.ChunkSize }},
		{"target rms zero", func(c *Config) { c.AutoGain = true; c.TargetRMS = 0 }},
		{"target rms above one", func(c *Config) { c.AutoGain = true; c.TargetRMS = 1.5 }},
		{"unknown overflow policy", func(c *Config) { c.Overflow = "block" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error, got nil")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error should wrap ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestLowLatencyPreset(t *testing.T) {
	t.Parallel()
	cfg := LowLatencyConfig()

	if cfg.ChunkSize != 512 {
		t.Errorf("expected chunk size 512, got %d", cfg.ChunkSize)
	}

	// 512 samples at 44.1kHz is ~11.6ms of chunk accumulation.
	latency := cfg.CaptureLatency()
	if latency < 11*time.Millisecond || latency > 12*time.Millisecond {
		t.Errorf("expected ~11.6ms capture latency, got %v", latency)
	}
	if latency >= LatencyTarget {
		t.Errorf("capture latency %v must leave headroom inside the %v budget", latency, LatencyTarget)
	}
}

func TestFrequencyResolution(t *testing.T) {
	t.Parallel()
	cfg := NewConfig()
	cfg.SampleRate = 44100
	cfg.ChunkSize = 1024

	got := cfg.FrequencyResolution()
	want := 44100.0 / 1024.0
	if got != want {
		t.Errorf("FrequencyResolution = %f, want %f", got, want)
	}
}
