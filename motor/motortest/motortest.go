// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package motortest simulates DJI motors on a fake CAN bus.
package motortest

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/GermanBionicSystems/motors/canbus/canbustest"
	"github.com/GermanBionicSystems/motors/common"
	"github.com/GermanBionicSystems/motors/motor"
)

// Default plant constants.
const (
	DefaultGain    = 0.05 // rad/s² per command count
	DefaultDamping = 5    // 1/s
)

// Plant is a first order model of a DJI motor:
//
//	dω/dt = Gain·cmd - Damping·ω
//
// Each Step reads the motor's command from the last frame sent to its tx
// group and injects a feedback frame.
type Plant struct {
	Bus     *canbustest.Record
	Model   motor.Model
	RxID    uint32
	Gain    float64
	Damping float64
	// Stalled holds the rotor still, e.g. to simulate a jam.
	Stalled bool

	// Angle is the unwrapped rotor angle in rad; Omega is in rad/s.
	Angle float64
	Omega float64

	txID uint32
	cmd  int16
}

// NewPlant returns a plant at rest at angle 0 with the default constants.
func NewPlant(bus *canbustest.Record, model motor.Model, rxID uint32) (*Plant, error) {
	txID, err := motor.TxGroup(rxID)
	if err != nil {
		return nil, err
	}
	return &Plant{
		Bus:     bus,
		Model:   model,
		RxID:    rxID,
		Gain:    DefaultGain,
		Damping: DefaultDamping,
		txID:    txID,
	}, nil
}

// Command returns the command applied during the last Step, as the motor
// would see it.
func (p *Plant) Command() int16 {
	return p.cmd
}

// Step advances the simulation by dt and injects the resulting feedback.
//
// It returns false when no callback is registered for the motor.
func (p *Plant) Step(dt time.Duration) bool {
	p.cmd = 0
	if io, ok := p.Bus.Last(p.txID); ok && len(io.Data) == 8 {
		s := 2 * motor.Slot(p.RxID)
		p.cmd = int16(binary.BigEndian.Uint16(io.Data[s:]))
	}
	if p.Model == motor.M6623 {
		p.cmd = -p.cmd
	}
	sec := dt.Seconds()
	if p.Stalled {
		p.Omega = 0
	} else {
		p.Omega += (p.Gain*float64(p.cmd) - p.Damping*p.Omega) * sec
		p.Angle += p.Omega * sec
	}
	b := p.Feedback()
	return p.Bus.Inject(p.RxID, b[:])
}

// Feedback returns the frame describing the current plant state.
func (p *Plant) Feedback() [8]byte {
	counts := math.Round(common.Wrap(p.Angle, 0, 2*math.Pi) / motor.ThetaScale)
	fb := motor.Feedback{
		Angle:       uint16(counts) % 8192,
		Speed:       int16(common.Clip(math.Round(p.Omega/motor.OmegaScale), math.MinInt16, math.MaxInt16)),
		Current:     p.cmd,
		Temperature: 30,
	}
	if p.Model == motor.M6623 {
		fb.Current = -p.cmd
	}
	return motor.EncodeFeedback(p.Model, fb)
}
