// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package common

import (
	"cmp"
	"math"
)

// Clip limits v to the closed interval [lo, hi].
func Clip[T cmp.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Wrap maps v into the half-open interval [lo, hi) assuming a period of
// hi-lo.
//
// Example:
//
//	common.Wrap(7, 0, 2*math.Pi) // 7 - 2π
//	common.Wrap(4, -math.Pi, math.Pi) // 4 - 2π
func Wrap(v, lo, hi float64) float64 {
	span := hi - lo
	if span <= 0 {
		return lo
	}
	w := math.Mod(v-lo, span)
	if w < 0 {
		w += span
	}
	// math.Mod can hand back span itself for tiny negative inputs.
	if w >= span {
		w = 0
	}
	return w + lo
}

// Sign returns -1, 1 or zero depending on the sign of v.
func Sign(v, zero float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return zero
	}
}
