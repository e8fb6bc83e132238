// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package pid implements discrete PID controllers stepped once per control
// period.
//
// The integral and derivative terms are per step, not per second: gains
// tuned at one control rate must be retuned at another.
package pid

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/multierr"

	"github.com/GermanBionicSystems/motors/common"
)

// ErrInvalidParams is returned by Validate.
var ErrInvalidParams = errors.New("pid: invalid parameters")

// Params are the controller gains.
type Params struct {
	Kp float64 `yaml:"kp"`
	Ki float64 `yaml:"ki"`
	Kd float64 `yaml:"kd"`
}

// Validate returns an error when a gain is negative or not finite.
func (p Params) Validate() error {
	var err error
	for _, g := range []struct {
		name string
		v    float64
	}{{"kp", p.Kp}, {"ki", p.Ki}, {"kd", p.Kd}} {
		if g.v < 0 || math.IsNaN(g.v) || math.IsInf(g.v, 0) {
			err = multierr.Append(err, fmt.Errorf("%w: %s = %v", ErrInvalidParams, g.name, g.v))
		}
	}
	return err
}

// PID is an unbounded controller.
type PID struct {
	Params

	sum  float64
	last float64
}

// New returns a PID controller.
func New(p Params) *PID {
	return &PID{Params: p}
}

// ComputeOutput feeds the next error sample and returns the command.
func (p *PID) ComputeOutput(err float64) float64 {
	p.sum += err
	d := err - p.last
	p.last = err
	return p.Kp*err + p.Ki*p.sum + p.Kd*d
}

// Reset clears the integral and derivative history.
func (p *PID) Reset() {
	p.sum = 0
	p.last = 0
}

// Constrained is a PID controller with a bounded integral term and output.
type Constrained struct {
	PID
	maxIout float64
	maxOut  float64
}

// NewConstrained returns a controller whose integral term is limited to
// ±maxIout and output to ±maxOut.
func NewConstrained(p Params, maxIout, maxOut float64) *Constrained {
	return &Constrained{PID: PID{Params: p}, maxIout: math.Abs(maxIout), maxOut: math.Abs(maxOut)}
}

// ComputeConstrainedOutput feeds the next error sample and returns the
// bounded command.
//
// The accumulated error stops growing once the integral term saturates.
func (c *Constrained) ComputeConstrainedOutput(err float64) float64 {
	c.sum += err
	i := c.Ki * c.sum
	if c.Ki != 0 && math.Abs(i) > c.maxIout {
		i = common.Clip(i, -c.maxIout, c.maxIout)
		c.sum = i / c.Ki
	}
	d := err - c.last
	c.last = err
	return common.Clip(c.Kp*err+i+c.Kd*d, -c.maxOut, c.maxOut)
}

// Reinit replaces the gains and limits and resets the history.
func (c *Constrained) Reinit(p Params, maxIout, maxOut float64) {
	*c = *NewConstrained(p, maxIout, maxOut)
}

// Limits returns the integral and output bounds.
func (c *Constrained) Limits() (maxIout, maxOut float64) {
	return c.maxIout, c.maxOut
}
