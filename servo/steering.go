// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package servo

import (
	"fmt"
	"math"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/GermanBionicSystems/motors/common"
	"github.com/GermanBionicSystems/motors/motor"
)

// AlignFunc reports whether the steering mechanism reached its alignment
// mark.
type AlignFunc func() bool

// SteeringConfig describes a Steering.
type SteeringConfig struct {
	Config

	// TestSpeed is the shaft speed in rad/s used while searching for the
	// alignment mark. Its sign selects the direction.
	TestSpeed float64
	// CalibrateOffset is added to the aligned angle to get the zero
	// position.
	CalibrateOffset float64
	AlignFunc       AlignFunc
}

// Validate returns every problem found in c.
func (c *SteeringConfig) Validate() error {
	err := c.Config.Validate()
	if c.TestSpeed == 0 || math.IsNaN(c.TestSpeed) {
		err = multierr.Append(err, fmt.Errorf("%w: test speed must be non zero", ErrInvalidConfig))
	}
	if c.AlignFunc == nil {
		err = multierr.Append(err, fmt.Errorf("%w: align func is required", ErrInvalidConfig))
	}
	return err
}

// Steering is a servo that calibrates its zero against an alignment mark.
type Steering struct {
	servo           *Servo
	testSpeed       float64
	calibrateOffset float64
	alignFunc       AlignFunc

	alignAngle    float64
	alignComplete bool
}

// NewSteering returns an uncalibrated steering motor.
func NewSteering(cfg *SteeringConfig) (*Steering, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s, err := New(&cfg.Config)
	if err != nil {
		return nil, err
	}
	return &Steering{
		servo:           s,
		testSpeed:       cfg.TestSpeed,
		calibrateOffset: cfg.CalibrateOffset,
		alignFunc:       cfg.AlignFunc,
	}, nil
}

// AlignUpdate runs one calibration cycle and reports whether calibration
// is complete.
//
// Until the alignment mark is found the motor turns at the test speed. Once
// found, the zero position is fixed for the lifetime of s and every later
// call drives the servo back to it.
func (s *Steering) AlignUpdate() bool {
	if s.alignComplete {
		s.servo.SetTarget(s.alignAngle, true)
		s.servo.CalcOutput()
		return true
	}
	if s.alignFunc() {
		s.alignAngle = s.currentAngle() + s.calibrateOffset
		s.alignComplete = true
		s.servo.logger.Info("steering aligned", zap.Float64("angle", s.alignAngle))
		s.servo.SetTarget(s.alignAngle, true)
		s.servo.CalcOutput()
		return true
	}
	m := s.servo.motor
	m.SetOutput(motor.ClipMotorRange(s.servo.omegaPID.ComputeConstrainedOutput(m.GetOmegaDelta(s.testSpeed * s.servo.ratio))))
	return false
}

// currentAngle returns the shaft angle of the closest motor revolution
// where the encoder reads the align angle.
func (s *Steering) currentAngle() float64 {
	sv := s.servo
	cur := sv.motor.GetTheta()
	align := sv.align.Load()
	off := common.Wrap(align-cur, -math.Pi, math.Pi)
	return (cur+off-align)/sv.ratio + sv.offset.Load() + sv.cumulated.Load()
}

// Update runs one control cycle after calibration.
func (s *Steering) Update() {
	s.servo.CalcOutput()
}

// CalcOutput calls AlignUpdate until calibrated, then Update.
func (s *Steering) CalcOutput() {
	if !s.alignComplete {
		s.AlignUpdate()
		return
	}
	s.Update()
}

// TurnRelative moves the target by delta rad.
func (s *Steering) TurnRelative(delta float64) Status {
	return s.servo.SetTarget(s.servo.GetTarget()+delta, true)
}

// TurnAbsolute sets the target shaft angle.
func (s *Steering) TurnAbsolute(target float64) Status {
	return s.servo.SetTarget(target, true)
}

// GetRawTheta returns the unwrapped shaft angle.
func (s *Steering) GetRawTheta() float64 {
	return s.servo.GetTheta()
}

// AlignComplete reports whether the alignment mark was found.
func (s *Steering) AlignComplete() bool {
	return s.alignComplete
}

// AlignAngle returns the calibrated zero, if any.
func (s *Steering) AlignAngle() (float64, bool) {
	return s.alignAngle, s.alignComplete
}

// Servo returns the underlying servo.
func (s *Steering) Servo() *Servo {
	return s.servo
}
