// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at path. If path is
// empty it searches default locations ("audiopipe.yaml", "config.yaml").
// If no file is found, built-in defaults are used. Environment overrides
// are applied after loading, then the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		candidates := []string{
			"audiopipe.yaml",
			"config.yaml",
		}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Env overrides win over file values.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies AUDIOPIPE_* environment variables on top of
// whatever the file (or defaults) provided. Unparseable values are ignored.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("AUDIOPIPE_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	if val, ok := os.LookupEnv("AUDIOPIPE_DEVICE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			c.DeviceID = iVal
		}
	}
	if val, ok := os.LookupEnv("AUDIOPIPE_SAMPLE_RATE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			c.SampleRate = iVal
		}
	}
	if val, ok := os.LookupEnv("AUDIOPIPE_CHUNK_SIZE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			c.ChunkSize = iVal
		}
	}
	if val, ok := os.LookupEnv("AUDIOPIPE_AUTO_GAIN"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.AutoGain = bVal
		}
	}
	if val, ok := os.LookupEnv("AUDIOPIPE_WS_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			c.Transport.WebSocketEnabled = bVal
		}
	}
	if val, ok := os.LookupEnv("AUDIOPIPE_WS_ADDR"); ok {
		c.Transport.WebSocketAddr = val
	}
	if val, ok := os.LookupEnv("AUDIOPIPE_UDP_TARGET"); ok {
		c.Transport.UDPTargetAddress = val
	}
}
