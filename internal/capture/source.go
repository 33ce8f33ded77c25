// SPDX-License-Identifier: MIT
/*
Package capture feeds raw audio into the pipeline's ring buffer.

A Source abstracts where samples come from (a PortAudio device, a WAV
file, a synthesized tone); it delivers interleaved float32 buffers
through a push-style callback on its own producer context. The Adapter
sits between a Source and the ring buffer, applying optional automatic
gain control and the optional WAV recording tap inline.
*/
package capture

import "errors"

// ErrSourceUnavailable is wrapped when a capture source fails to attach
// or start. The caller may retry construction; the pipeline itself does
// not retry.
var ErrSourceUnavailable = errors.New("capture source unavailable")

// Source delivers sample buffers via a push-style callback.
//
// Start attaches to the underlying medium and begins invoking emit with
// interleaved float32 samples in the normalized [-1,1] range, on a
// context owned by the source. emit must never block. Stop detaches and
// guarantees no further emit calls once it returns; it is idempotent.
// A stopped source may be started again.
type Source interface {
	Start(emit func(samples []float32)) error
	Stop() error
}
