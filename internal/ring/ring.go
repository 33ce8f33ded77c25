// SPDX-License-Identifier: MIT
/*
Package ring implements the single-producer/single-consumer sample queue
that joins the capture callback to the analysis side.

The buffer is lock-free: the producer mutates only the write cursor and
the consumer mutates only the read cursor. Both cursors are monotonic
64-bit sample counts; the slot index is the cursor masked by capacity-1,
so capacity is always rounded up to a power of 2. Go's atomics are
sequentially consistent, which means every slot write performed before
the write cursor store is visible to a consumer that has observed the
updated cursor. The producer side never blocks, never allocates and
never logs; stalling the capture callback causes audible dropouts.
*/
package ring

import (
	"sync/atomic"

	"audiopipe/pkg/bitint"
)

// Buffer is a bounded SPSC queue of float32 audio samples.
//
// Push must only be called from the producer side and PopChunk only from
// the consumer side. Neither ever waits on the other.
type Buffer struct {
	buf      []float32
	mask     uint64
	capacity uint64

	writePos atomic.Uint64 // total samples written, producer-owned
	readPos  atomic.Uint64 // total samples consumed or skipped, consumer-owned
	dropped  atomic.Uint64 // total samples lost to overflow

	overwrite bool

	// notify carries at most one pending wakeup for a waiting consumer.
	// The producer's send is non-blocking so a full channel costs nothing.
	notify chan struct{}
}

// New creates a Buffer holding at least capacity samples. Capacity is
// rounded up to the next power of 2 so cursor masking stays branch-free.
// If overwrite is true the producer overwrites the oldest unread samples
// on overflow; otherwise incoming samples are rejected and counted.
func New(capacity int, overwrite bool) *Buffer {
	c := uint64(bitint.NextPowerOfTwo(capacity))
	return &Buffer{
		buf:       make([]float32, c),
		mask:      c - 1,
		capacity:  c,
		overwrite: overwrite,
		notify:    make(chan struct{}, 1),
	}
}

// Push appends samples. Producer side only. It never blocks: on overflow
// it either overwrites the oldest unread samples (the consumer accounts
// the loss when it next reads) or, in reject mode, drops the excess of
// the incoming block and counts it immediately.
func (b *Buffer) Push(samples []float32) {
	w := b.writePos.Load()

	if !b.overwrite {
		free := b.capacity - (w - b.readPos.Load())
		if uint64(len(samples)) > free {
			b.dropped.Add(uint64(len(samples)) - free)
			samples = samples[:free]
		}
	}

	for i, s := range samples {
		b.buf[(w+uint64(i))&b.mask] = s
	}
	// The cursor store publishes the slot writes above.
	b.writePos.Store(w + uint64(len(samples)))

	select {
	case b.notify <- struct{}{}:
	default:
	}
}

// PopChunk fills dst with the next len(dst) samples and reports whether a
// full chunk was available. Consumer side only, non-blocking.
//
// In overwrite mode the consumer may discover it has been lapped: the
// write cursor is more than a full capacity ahead. It then skips its read
// cursor forward to the oldest intact sample and adds the skipped count
// to the drop counter. After copying, the write cursor is re-checked; if
// the producer wrapped into the copied region mid-read the copy could be
// torn, so it is discarded and the read retried.
func (b *Buffer) PopChunk(dst []float32) bool {
	n := uint64(len(dst))
	if n == 0 || n > b.capacity {
		return false
	}

	for {
		w := b.writePos.Load()
		r := b.readPos.Load()

		if w-r > b.capacity {
			skip := w - b.capacity - r
			b.dropped.Add(skip)
			r = w - b.capacity
			b.readPos.Store(r)
		}

		if w-r < n {
			return false
		}

		for i := uint64(0); i < n; i++ {
			dst[i] = b.buf[(r+i)&b.mask]
		}

		// Intact iff the producer has not written past slot r+capacity
		// while we were copying.
		if b.writePos.Load()-r <= b.capacity {
			b.readPos.Store(r + n)
			return true
		}
	}
}

// Len returns the number of unread samples. Approximate under concurrency.
func (b *Buffer) Len() int {
	w := b.writePos.Load()
	r := b.readPos.Load()
	if w-r > b.capacity {
		return int(b.capacity)
	}
	return int(w - r)
}

// Capacity returns the actual (rounded) capacity in samples.
func (b *Buffer) Capacity() int {
	return int(b.capacity)
}

// Dropped returns the total number of samples lost to overflow since the
// buffer was created. Escalating values tell the caller to grow capacity.
func (b *Buffer) Dropped() uint64 {
	return b.dropped.Load()
}

// FillRatio returns how full the buffer is, in [0,1].
func (b *Buffer) FillRatio() float64 {
	return float64(b.Len()) / float64(b.capacity)
}

// Wait returns a channel that receives after a Push. It is level-ish, not
// edge-exact: at most one wakeup is buffered, so a waiter must re-poll
// after every receive. Used by the chunk assembler's cooperative wait.
func (b *Buffer) Wait() <-chan struct{} {
	return b.notify
}
