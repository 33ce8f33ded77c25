// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"audiopipe/cmd"
	"audiopipe/internal/capture"
	"audiopipe/internal/config"
	applog "audiopipe/internal/log"
	"audiopipe/internal/pipeline"
	"audiopipe/internal/transport"
	"audiopipe/pkg/build"
)

// main runs in three phases:
//
// 1. Startup (cold path): build info, runtime tuning, argument parsing,
// PortAudio initialization, one-off commands.
//
// 2. Capture (hot path): the source callback produces into the ring
// buffer while the pipeline goroutine pulls chunks, extracts features
// and publishes them.
//
// 3. Shutdown (cold path): stop on SIGINT/SIGTERM, flush the recording,
// close transports.
func main() {
	build.Initialize()

	// One thread for the capture callback, one for analysis and I/O.
	runtime.GOMAXPROCS(2)

	options, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}
	cfg := options.Config

	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}

	// File and tone sources run without a capture device, so PortAudio
	// is only brought up when a device is actually needed.
	needsDevice := options.Command == "list" || (options.InputFile == "" && options.ToneFreq == 0)
	if needsDevice {
		if err := capture.Initialize(); err != nil {
			applog.Fatalf("%v", err)
		}
		defer capture.Terminate()
	}

	if options.Command == "list" {
		if err := capture.ListDevices(); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	source := buildSource(options)

	opts, closers, err := buildTransports(cfg)
	if err != nil {
		applog.Fatalf("%v", err)
	}
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				applog.Warnf("Transport close failed: %v", err)
			}
		}
	}()

	p, err := pipeline.New(cfg, source, opts...)
	if err != nil {
		applog.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := p.Start(); err != nil {
		applog.Fatalf("%v", err)
	}

	if cfg.Recording.Enabled {
		if err := p.Adapter().StartRecording(cfg.Recording.Path); err != nil {
			applog.Fatalf("%v", err)
		}
	}

	fmt.Printf("%s: analyzing at %d Hz, chunk %d (%.1fms), '%s --help' for usage\n",
		build.GetBuildFlags().Name, cfg.SampleRate, cfg.ChunkSize,
		float64(cfg.CaptureLatency())/float64(time.Millisecond), build.GetBuildFlags().Name)

	if err := p.Run(ctx); err != nil {
		applog.Errorf("Pipeline terminated: %v", err)
	}

	if cfg.Recording.Enabled {
		if err := p.Adapter().StopRecording(); err != nil {
			applog.Errorf("Stopping recording: %v", err)
		} else {
			fmt.Printf("\nRecording saved to: %s\n", cfg.Recording.Path)
		}
	}
	if err := p.Stop(); err != nil {
		applog.Errorf("Stopping pipeline: %v", err)
	}

	s := p.Stats()
	applog.Infof("Processed %d chunks, dropped %d samples", s.Chunks, s.DroppedSamples)
}

// buildSource picks the sample source: a WAV file, a synthesized tone,
// or a live capture device.
func buildSource(options *cmd.Options) capture.Source {
	cfg := options.Config
	switch {
	case options.InputFile != "":
		return capture.NewFileSource(options.InputFile, cfg.ChunkSize)
	case options.ToneFreq > 0:
		return capture.NewToneSource(options.ToneFreq, float64(cfg.SampleRate), cfg.ChunkSize)
	default:
		return capture.NewDeviceSource(cfg.DeviceID, cfg.Channels, float64(cfg.SampleRate),
			cfg.ChunkSize, cfg.LowLatency)
	}
}

// buildTransports assembles the configured feature publishers.
func buildTransports(cfg *config.Config) ([]pipeline.Option, []transport.Transport, error) {
	var (
		opts    []pipeline.Option
		closers []transport.Transport
	)
	if cfg.Transport.WebSocketEnabled {
		ws := transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr)
		opts = append(opts, pipeline.WithTransport(ws))
		closers = append(closers, ws)
	}
	if cfg.Transport.UDPEnabled {
		udp, err := transport.NewUDPTransport(cfg.Transport.UDPTargetAddress)
		if err != nil {
			return nil, closers, err
		}
		opts = append(opts, pipeline.WithTransport(udp))
		closers = append(closers, udp)
	}
	if applog.GetLevel() == applog.LevelDebug {
		opts = append(opts, pipeline.WithTransport(transport.NewLoggingTransport()))
	}
	return opts, closers, nil
}
