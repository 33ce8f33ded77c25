// SPDX-License-Identifier: MIT
package bitint

import "testing"

func TestNextPowerOfTwo(t *testing.T) {
	cases := []struct {
		in, want int
	}{
		{-1, 1},
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 4},
		{4, 4},
		{5, 8},
		{511, 512},
		{512, 512},
		{513, 1024},
		{44100, 65536},
	}

	for _, c := range cases {
		if got := NextPowerOfTwo(c.in); got != c.want {
			t.Errorf("NextPowerOfTwo(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestNextPowerOfTwo64(t *testing.T) {
	cases := []struct {
		in, want int64
	}{
		{0, 1},
		{1, 1},
		{4096, 4096},
		{4097, 8192},
		{1 << 40, 1 << 40},
		{(1 << 40) + 1, 1 << 41},
	}

	for _, c := range cases {
		if got := NextPowerOfTwo64(c.in); got != c.want {
			t.Errorf("NextPowerOfTwo64(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	for _, n := range []int{1, 2, 4, 8, 512, 1024, 65536} {
		if !IsPowerOfTwo(n) {
			t.Errorf("IsPowerOfTwo(%d) = false, want true", n)
		}
	}
	for _, n := range []int{-8, -1, 0, 3, 5, 7, 100, 513} {
		if IsPowerOfTwo(n) {
			t.Errorf("IsPowerOfTwo(%d) = true, want false", n)
		}
	}
}

func TestZeroAllocs(t *testing.T) {
	allocs := testing.AllocsPerRun(100, func() {
		_ = NextPowerOfTwo(1000)
		_ = IsPowerOfTwo(1024)
	})
	if allocs > 0 {
		t.Errorf("Expected zero allocations, got %.1f", allocs)
	}
}
