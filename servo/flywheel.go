// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package servo

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/GermanBionicSystems/motors/common"
	"github.com/GermanBionicSystems/motors/motor"
)

// FlywheelConfig describes a Flywheel.
type FlywheelConfig struct {
	Motor motor.Motor
	// MaxSpeed bounds the target in motor rad/s.
	MaxSpeed float64
	// Inverted flips the direction of the target.
	Inverted bool

	PID        PIDConfig
	Controller Controller
}

// Validate returns every problem found in c.
func (c *FlywheelConfig) Validate() error {
	var err error
	if c.Motor == nil {
		err = multierr.Append(err, errors.New("motor is required"))
	}
	if c.MaxSpeed <= 0 {
		err = multierr.Append(err, fmt.Errorf("max speed must be positive, got %v", c.MaxSpeed))
	}
	if c.Controller == nil {
		err = multierr.Append(err, c.PID.validate("pid"))
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Flywheel runs a motor at a constant speed.
type Flywheel struct {
	motor    motor.Motor
	pid      Controller
	maxSpeed float64
	inverted bool
	speed    float64
}

// NewFlywheel returns a stopped flywheel.
func NewFlywheel(cfg *FlywheelConfig) (*Flywheel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	f := &Flywheel{
		motor:    cfg.Motor,
		pid:      cfg.Controller,
		maxSpeed: cfg.MaxSpeed,
		inverted: cfg.Inverted,
	}
	if f.pid == nil {
		f.pid = cfg.PID.controller()
	}
	return f, nil
}

// SetSpeed sets the target speed in rad/s, clipped to the maximum.
func (f *Flywheel) SetSpeed(speed float64) {
	if f.inverted {
		speed = -speed
	}
	f.speed = common.Clip(speed, -f.maxSpeed, f.maxSpeed)
}

// GetTarget returns the target speed as passed to SetSpeed, after clipping.
func (f *Flywheel) GetTarget() float64 {
	if f.inverted {
		return -f.speed
	}
	return f.speed
}

// CalcOutput computes the next motor command.
func (f *Flywheel) CalcOutput() {
	f.motor.SetOutput(motor.ClipMotorRange(f.pid.ComputeConstrainedOutput(f.motor.GetOmegaDelta(f.speed))))
}

// Motor returns the driven motor.
func (f *Flywheel) Motor() motor.Motor {
	return f.motor
}
