// SPDX-License-Identifier: MIT

// Package pipeline wires capture, chunk assembly, feature extraction
// and transport into one pull-driven loop. The producer side (the audio
// callback) never blocks; the consumer side pulls chunks at its own
// pace and absorbs overload through the ring's overflow policy.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"audiopipe/internal/analysis"
	"audiopipe/internal/capture"
	"audiopipe/internal/config"
	applog "audiopipe/internal/log"
	"audiopipe/internal/transport"
)

// ErrStopped is returned by Next and Run when the pipeline is stopped
// while a consumer is waiting for a chunk.
var ErrStopped = errors.New("pipeline stopped")

// Option configures optional pipeline behavior.
type Option func(*Pipeline)

// WithTransport attaches a transport that receives every extracted
// feature record. Multiple transports may be attached.
func WithTransport(t transport.Transport) Option {
	return func(p *Pipeline) {
		p.transports = append(p.transports, t)
	}
}

// Stats is a point-in-time snapshot of pipeline health.
type Stats struct {
	FillRatio      float64 // ring occupancy, 0..1
	DroppedSamples uint64  // samples lost to the overflow policy
	Chunks         uint64  // feature records produced since Start
	Gain           float64 // current AGC gain
}

// Pipeline owns the capture adapter, assembler and extractor for one
// audio stream. Start/Stop may be called repeatedly; each Start begins
// from an empty ring and timestamp zero.
type Pipeline struct {
	cfg        *config.Config
	adapter    *capture.Adapter
	extractor  *analysis.Extractor
	transports []transport.Transport

	mu      sync.Mutex
	asm     *Assembler
	stopCh  chan struct{}
	running bool

	chunks atomic.Uint64
}

// New validates the configuration and builds a stopped pipeline around
// the given source.
func New(cfg *config.Config, source capture.Source, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	windowType, err := analysis.ParseWindowFunc(cfg.Window)
	if err != nil {
		return nil, err
	}
	extractor, err := analysis.NewExtractor(cfg.ChunkSize, float64(cfg.SampleRate), windowType)
	if err != nil {
		return nil, fmt.Errorf("build extractor: %w", err)
	}

	p := &Pipeline{
		cfg:       cfg,
		adapter:   capture.NewAdapter(cfg, source),
		extractor: extractor,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Start begins capture. The consumer then pulls feature records with
// Next, Poll or Run.
func (p *Pipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("pipeline already started")
	}

	if err := p.adapter.Start(); err != nil {
		return err
	}
	p.asm = NewAssembler(p.adapter.Ring(), p.cfg.ChunkSize, p.cfg.Channels)
	p.extractor.Reset()
	p.chunks.Store(0)
	p.stopCh = make(chan struct{})
	p.running = true

	applog.Infof("Pipeline: started (%d Hz, chunk %d, latency budget %v)",
		p.cfg.SampleRate, p.cfg.ChunkSize, config.LatencyTarget)
	return nil
}

// Stop halts capture and wakes any goroutine blocked in Next or Run.
// Stopping a stopped pipeline is a no-op.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return nil
	}
	p.running = false
	close(p.stopCh)
	return p.adapter.Stop()
}

// Poll extracts one feature record without blocking. It returns false
// when a full chunk has not yet accumulated.
func (p *Pipeline) Poll() (analysis.StreamingFeatures, bool, error) {
	p.mu.Lock()
	asm := p.asm
	p.mu.Unlock()
	if asm == nil {
		return analysis.StreamingFeatures{}, false, nil
	}
	chunk, ok := asm.Poll()
	if !ok {
		return analysis.StreamingFeatures{}, false, nil
	}
	features, err := p.process(chunk)
	return features, err == nil, err
}

// Next blocks until one feature record is available or the pipeline is
// stopped or the context cancelled.
func (p *Pipeline) Next(ctx context.Context) (analysis.StreamingFeatures, error) {
	p.mu.Lock()
	asm, stopCh := p.asm, p.stopCh
	p.mu.Unlock()
	if asm == nil {
		return analysis.StreamingFeatures{}, ErrStopped
	}

	chunk, err := asm.Next(ctx, stopCh)
	if err != nil {
		return analysis.StreamingFeatures{}, err
	}
	return p.process(chunk)
}

// Run pulls feature records until the context is cancelled or the
// pipeline is stopped, forwarding each to the attached transports. A
// stop is reported as nil; any other failure is returned.
func (p *Pipeline) Run(ctx context.Context) error {
	for {
		_, err := p.Next(ctx)
		switch {
		case err == nil:
		case errors.Is(err, ErrStopped), errors.Is(err, context.Canceled):
			return nil
		default:
			return err
		}
	}
}

func (p *Pipeline) process(chunk []float32) (analysis.StreamingFeatures, error) {
	features, err := p.extractor.Process(chunk)
	if err != nil {
		return analysis.StreamingFeatures{}, err
	}
	p.chunks.Add(1)
	for _, t := range p.transports {
		if err := t.Send(features); err != nil {
			applog.Warnf("Pipeline: transport send failed: %v", err)
		}
	}
	return features, nil
}

// Adapter exposes the capture adapter for recording control.
func (p *Pipeline) Adapter() *capture.Adapter {
	return p.adapter
}

// Stats reports current pipeline health. Safe to call from any
// goroutine while the pipeline runs.
func (p *Pipeline) Stats() Stats {
	s := Stats{
		Chunks: p.chunks.Load(),
		Gain:   p.adapter.Gain(),
	}
	if buf := p.adapter.Ring(); buf != nil {
		s.FillRatio = buf.FillRatio()
		s.DroppedSamples = buf.Dropped()
	}
	return s
}
