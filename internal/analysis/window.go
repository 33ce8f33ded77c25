// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the tapering function applied before the FFT.
type WindowFunc int

const (
	Hann WindowFunc = iota
	Hamming
	Blackman
	Nuttall
)

// ParseWindowFunc converts a name (case-insensitive) to a WindowFunc.
// Returns Hann and an error if the name is unknown.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "blackman":
		return Blackman, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return Hann, fmt.Errorf("unknown FFT window function name: %q", name)
	}
}

// windowCoefficients returns the coefficient slice for the given window
// type and length. The gonum window functions multiply in place, so the
// slice starts as all ones.
func windowCoefficients(n int, windowType WindowFunc) []float64 {
	coeffs := make([]float64, n)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case Hamming:
		window.Hamming(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	default:
		window.Hann(coeffs)
	}
	return coeffs
}
