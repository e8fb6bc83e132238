// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package common

// BoolEdgeDetector reports transitions of a sampled boolean signal.
//
// The zero value starts from false.
type BoolEdgeDetector struct {
	prev bool
	cur  bool
}

// NewBoolEdgeDetector returns a detector whose previous sample is initial.
func NewBoolEdgeDetector(initial bool) *BoolEdgeDetector {
	return &BoolEdgeDetector{prev: initial, cur: initial}
}

// Input feeds the next sample.
func (d *BoolEdgeDetector) Input(v bool) {
	d.prev = d.cur
	d.cur = v
}

// Edge is true when the last sample differs from the one before it.
func (d *BoolEdgeDetector) Edge() bool {
	return d.prev != d.cur
}

// PosEdge is true on a false to true transition.
func (d *BoolEdgeDetector) PosEdge() bool {
	return !d.prev && d.cur
}

// NegEdge is true on a true to false transition.
func (d *BoolEdgeDetector) NegEdge() bool {
	return d.prev && !d.cur
}

// FloatEdgeDetector reports jumps in a sampled float signal that are larger
// than a threshold. It is used to spot an encoder crossing its wrap point: a
// reading going from just under 2π to just above 0 is a negative edge.
type FloatEdgeDetector struct {
	prev      float64
	diff      float64
	threshold float64
}

// NewFloatEdgeDetector returns a detector seeded with initial.
func NewFloatEdgeDetector(initial, threshold float64) *FloatEdgeDetector {
	return &FloatEdgeDetector{prev: initial, threshold: threshold}
}

// Input feeds the next sample.
func (d *FloatEdgeDetector) Input(v float64) {
	d.diff = v - d.prev
	d.prev = v
}

// Edge is true when the last step exceeded the threshold in either direction.
func (d *FloatEdgeDetector) Edge() bool {
	return d.PosEdge() || d.NegEdge()
}

// PosEdge is true when the signal jumped up by more than the threshold.
func (d *FloatEdgeDetector) PosEdge() bool {
	return d.diff > d.threshold
}

// NegEdge is true when the signal jumped down by more than the threshold.
func (d *FloatEdgeDetector) NegEdge() bool {
	return d.diff < -d.threshold
}
