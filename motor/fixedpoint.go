// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package motor

import (
	"math"

	"github.com/GermanBionicSystems/motors/common"
)

// FloatToUint maps x from [min, max] onto an unsigned integer of bits width.
//
// x is clamped to the range and rounded to the nearest step.
func FloatToUint(x, min, max float64, bits uint) uint32 {
	steps := float64(uint32(1)<<bits - 1)
	x = common.Clip(x, min, max)
	return uint32(math.Round((x - min) * steps / (max - min)))
}

// UintToFloat is the inverse of FloatToUint.
func UintToFloat(v uint32, min, max float64, bits uint) float64 {
	steps := float64(uint32(1)<<bits - 1)
	return float64(v)*(max-min)/steps + min
}
