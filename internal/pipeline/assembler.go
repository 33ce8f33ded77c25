// SPDX-License-Identifier: MIT
package pipeline

import (
	"context"

	"audiopipe/internal/ring"
)

// Assembler drains interleaved samples from the capture ring and
// assembles fixed-size mono chunks for analysis. Multi-channel input is
// downmixed by averaging the channels of each frame.
//
// Assembler is single-consumer: all methods must be called from one
// goroutine. The returned chunk is reused and valid only until the next
// Poll or Next call.
type Assembler struct {
	buf      *ring.Buffer
	channels int

	raw  []float32 // chunkSize*channels interleaved frames
	mono []float32 // downmixed output, len chunkSize
}

func NewAssembler(buf *ring.Buffer, chunkSize, channels int) *Assembler {
	return &Assembler{
		buf:      buf,
		channels: channels,
		raw:      make([]float32, chunkSize*channels),
		mono:     make([]float32, chunkSize),
	}
}

// Poll assembles one chunk without blocking. It returns false when the
// ring does not yet hold a full chunk of frames.
func (a *Assembler) Poll() ([]float32, bool) {
	if !a.buf.PopChunk(a.raw) {
		return nil, false
	}
	if a.channels == 1 {
		return a.raw, true
	}
	inv := float32(1.0) / float32(a.channels)
	for i := range a.mono {
		var sum float32
		base := i * a.channels
		for c := 0; c < a.channels; c++ {
			sum += a.raw[base+c]
		}
		a.mono[i] = sum * inv
	}
	return a.mono, true
}

// Next blocks until a full chunk is available, the context is
// cancelled, or stop is closed. Waiting is cooperative: the goroutine
// parks on the ring's notify channel instead of spinning.
func (a *Assembler) Next(ctx context.Context, stop <-chan struct{}) ([]float32, error) {
	for {
		if chunk, ok := a.Poll(); ok {
			return chunk, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-stop:
			return nil, ErrStopped
		case <-a.buf.Wait():
		}
	}
}
