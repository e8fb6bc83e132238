// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package servo

import (
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/GermanBionicSystems/motors/motor"
	"github.com/GermanBionicSystems/motors/pid"
)

var (
	// ErrInvalidConfig is returned when a Config fails validation.
	ErrInvalidConfig = errors.New("servo: invalid config")

	// ErrInvalidSetting is returned when a runtime setting is out of range.
	// The previous value is kept.
	ErrInvalidSetting = errors.New("servo: invalid setting")
)

// Default hysteresis band, in shaft radians.
const (
	DefaultProximityIn  = 0.05
	DefaultProximityOut = 0.15
)

// AlignFirstReading makes the servo use the first encoder reading as zero.
const AlignFirstReading = -1

// Controller computes a bounded command from an error sample.
//
// *pid.Constrained implements it.
type Controller interface {
	ComputeConstrainedOutput(err float64) float64
	Reset()
}

// PIDConfig configures a pid.Constrained.
type PIDConfig struct {
	pid.Params `yaml:",inline"`
	MaxIout    float64 `yaml:"max_iout"`
	MaxOut     float64 `yaml:"max_out"`
}

func (p *PIDConfig) validate(name string) error {
	err := p.Params.Validate()
	if p.MaxOut <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s max_out must be positive, got %v", name, p.MaxOut))
	}
	if p.MaxIout < 0 {
		err = multierr.Append(err, fmt.Errorf("%s max_iout must not be negative, got %v", name, p.MaxIout))
	}
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (p *PIDConfig) controller() *pid.Constrained {
	return pid.NewConstrained(p.Params, p.MaxIout, p.MaxOut)
}

// Config describes a Servo.
//
// Speeds and accelerations are in output shaft units.
type Config struct {
	Motor motor.Motor

	MaxSpeed          float64 // rad/s
	MaxAcceleration   float64 // rad/s²
	TransmissionRatio float64

	// OmegaPID drives the motor velocity while moving, HoldPID while
	// holding. They are ignored when the matching Controller is set.
	OmegaPID        PIDConfig
	HoldPID         PIDConfig
	OmegaController Controller
	HoldController  Controller

	// ProximityIn and ProximityOut bound the holding hysteresis in rad.
	// Zero selects the defaults.
	ProximityIn  float64
	ProximityOut float64

	// AlignAngle is the encoder angle in rad taken as zero. A negative value
	// captures the first reading.
	AlignAngle float64

	Clock  clock.Clock
	Logger *zap.Logger
}

// Validate returns every problem found in c.
func (c *Config) Validate() error {
	var err error
	if c.Motor == nil {
		err = multierr.Append(err, errors.New("motor is required"))
	}
	if c.MaxSpeed <= 0 {
		err = multierr.Append(err, fmt.Errorf("max speed must be positive, got %v", c.MaxSpeed))
	}
	if c.MaxAcceleration <= 0 {
		err = multierr.Append(err, fmt.Errorf("max acceleration must be positive, got %v", c.MaxAcceleration))
	}
	if c.TransmissionRatio <= 0 {
		err = multierr.Append(err, fmt.Errorf("transmission ratio must be positive, got %v", c.TransmissionRatio))
	}
	in, out := c.proximity()
	if in <= 0 || out <= in {
		err = multierr.Append(err, fmt.Errorf("proximity band [%v, %v] is empty", in, out))
	}
	if c.OmegaController == nil {
		err = multierr.Append(err, c.OmegaPID.validate("omega pid"))
	}
	if c.HoldController == nil {
		err = multierr.Append(err, c.HoldPID.validate("hold pid"))
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) proximity() (in, out float64) {
	in, out = c.ProximityIn, c.ProximityOut
	if in == 0 {
		in = DefaultProximityIn
	}
	if out == 0 {
		out = DefaultProximityOut
	}
	return in, out
}
