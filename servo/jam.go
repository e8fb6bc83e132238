// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package servo

import (
	"fmt"
	"math"

	"github.com/GermanBionicSystems/motors/common"
)

// maxCommand is the full scale command used to express jam effort.
const maxCommand = 32768

// Jam describes a detected jam.
type Jam struct {
	// Speed is the configured maximum shaft speed in rad/s.
	Speed float64
	// Effort is the mean command magnitude over the window, as a fraction of
	// full scale.
	Effort float64
}

// JamFunc is called from CalcOutput when a jam is detected. It must not
// block.
type JamFunc func(s *Servo, j Jam)

type jamDetector struct {
	fn        JamFunc
	buf       []int16
	head      int
	sum       int64
	threshold float64
	edge      *common.BoolEdgeDetector
}

// input records cmd and reports a rising crossing of the threshold.
func (j *jamDetector) input(cmd int16) bool {
	j.sum += int64(cmd) - int64(j.buf[j.head])
	j.buf[j.head] = cmd
	j.head = (j.head + 1) % len(j.buf)
	j.edge.Input(math.Abs(float64(j.sum)) >= j.threshold)
	return j.edge.PosEdge()
}

func (j *jamDetector) effort() float64 {
	return math.Abs(float64(j.sum)) / float64(maxCommand*len(j.buf))
}

// RegisterJamCallback enables jam detection.
//
// fn is called once each time the sum of the last window commands rises to
// effort·32768·window in magnitude. effort must be in (0, 1] and window
// positive. Registering again replaces the callback and clears the history.
func (s *Servo) RegisterJamCallback(fn JamFunc, effort float64, window int) error {
	if fn == nil {
		return fmt.Errorf("%w: nil jam callback", ErrInvalidSetting)
	}
	if !(effort > 0 && effort <= 1) {
		return fmt.Errorf("%w: jam effort %v not in (0, 1]", ErrInvalidSetting, effort)
	}
	if window <= 0 {
		return fmt.Errorf("%w: jam window %d", ErrInvalidSetting, window)
	}
	s.jam = &jamDetector{
		fn:        fn,
		buf:       make([]int16, window),
		threshold: effort * maxCommand * float64(window),
		edge:      common.NewBoolEdgeDetector(false),
	}
	return nil
}
