// SPDX-License-Identifier: MIT
package capture

import "math"

// AGC tuning. The gain factor is clamped to keep the loop stable and
// smoothed across blocks to prevent audible gain pumping.
const (
	gainMin       = 0.1
	gainMax       = 10.0
	gainSmoothing = 0.2  // fraction of the gap closed per block
	agcSilenceRMS = 1e-4 // below this the block is silence: hold the gain
)

// agc is the automatic gain control state. It is owned by the producer
// context exclusively; apply runs inside the capture callback with no
// allocations.
type agc struct {
	target float64
	gain   float64
}

func newAGC(targetRMS float64) *agc {
	return &agc{target: targetRMS, gain: 1.0}
}

// apply normalizes buf in place toward the target RMS and returns the
// gain that was applied. Silent blocks hold the previous gain rather
// than amplifying the noise floor to the clamp limit.
func (a *agc) apply(buf []float32) float64 {
	if len(buf) == 0 {
		return a.gain
	}

	var sumSquare float64
	for _, s := range buf {
		f := float64(s)
		sumSquare += f * f
	}
	rms := math.Sqrt(sumSquare / float64(len(buf)))

	if rms >= agcSilenceRMS {
		desired := a.target / rms
		if desired < gainMin {
			desired = gainMin
		}
		if desired > gainMax {
			desired = gainMax
		}
		a.gain += (desired - a.gain) * gainSmoothing
	}

	g := float32(a.gain)
	for i := range buf {
		buf[i] *= g
	}
	return a.gain
}
