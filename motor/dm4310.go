// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package motor

import (
	"encoding/binary"
	"fmt"
	"math"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/motors/canbus"
)

// Mode is the DM4310 control mode. It selects the command frame layout and
// the tx identifier offset.
type Mode uint8

const (
	ModeMIT    Mode = 0 // Impedance control; tx id.
	ModePosVel Mode = 1 // Position with velocity limit; tx id + 0x100.
	ModeVel    Mode = 2 // Velocity; tx id + 0x200.
)

func (m Mode) String() string {
	switch m {
	case ModeMIT:
		return "MIT"
	case ModePosVel:
		return "PosVel"
	case ModeVel:
		return "Vel"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

func (m Mode) idOffset() (uint32, error) {
	switch m {
	case ModeMIT:
		return 0, nil
	case ModePosVel:
		return 0x100, nil
	case ModeVel:
		return 0x200, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrInvalidMode, m)
	}
}

// DM4310 field ranges, as configured in the factory firmware.
const (
	DMPosMin    = -12.5 // rad
	DMPosMax    = 12.5
	DMVelMin    = -45.0 // rad/s
	DMVelMax    = 45.0
	DMTorqueMin = -18.0 // N·m
	DMTorqueMax = 18.0
	DMKpMin     = 0.0
	DMKpMax     = 500.0
	DMKdMin     = 0.0
	DMKdMax     = 5.0
)

// Special command suffixes.
const (
	dmEnable  = 0xFC
	dmDisable = 0xFD
	dmZero    = 0xFE
)

// MIT is a MIT mode command.
type MIT struct {
	Pos, Vel, Kp, Kd, Torque float64
}

// EncodeMIT packs c into a MIT mode frame.
func EncodeMIT(c MIT) [8]byte {
	pos := FloatToUint(c.Pos, DMPosMin, DMPosMax, 16)
	vel := FloatToUint(c.Vel, DMVelMin, DMVelMax, 12)
	kp := FloatToUint(c.Kp, DMKpMin, DMKpMax, 12)
	kd := FloatToUint(c.Kd, DMKdMin, DMKdMax, 12)
	t := FloatToUint(c.Torque, DMTorqueMin, DMTorqueMax, 12)
	return [8]byte{
		byte(pos >> 8),
		byte(pos),
		byte(vel >> 4),
		byte((vel&0xF)<<4 | (kp>>8)&0xF),
		byte(kp),
		byte(kd >> 4),
		byte((kd&0xF)<<4 | (t>>8)&0xF),
		byte(t),
	}
}

// EncodePosVel packs a position-velocity command.
func EncodePosVel(pos, vel float64) [8]byte {
	var b [8]byte
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(float32(pos)))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(float32(vel)))
	return b
}

// EncodeVel packs a velocity command. The upper 4 bytes are unused.
func EncodeVel(vel float64) [8]byte {
	var b [8]byte
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(float32(vel)))
	return b
}

// DMFeedback is a decoded DM4310 feedback frame.
type DMFeedback struct {
	ID        uint8   // Low nibble of the first byte.
	State     uint8   // High nibble of the first byte; 0 disabled, 1 enabled, >=8 fault.
	Pos       float64 // rad
	Vel       float64 // rad/s
	Torque    float64 // N·m
	MOSTemp   uint8   // °C
	RotorTemp uint8   // °C
}

// DecodeDMFeedback decodes a DM4310 feedback payload.
func DecodeDMFeedback(data []byte) (DMFeedback, error) {
	if len(data) < canbus.MaxDataLen {
		return DMFeedback{}, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(data))
	}
	pos := uint32(data[1])<<8 | uint32(data[2])
	vel := uint32(data[3])<<4 | uint32(data[4])>>4
	t := uint32(data[4]&0xF)<<8 | uint32(data[5])
	return DMFeedback{
		ID:        data[0] & 0xF,
		State:     data[0] >> 4,
		Pos:       UintToFloat(pos, DMPosMin, DMPosMax, 16),
		Vel:       UintToFloat(vel, DMVelMin, DMVelMax, 12),
		Torque:    UintToFloat(t, DMTorqueMin, DMTorqueMax, 12),
		MOSTemp:   data[6],
		RotorTemp: data[7],
	}, nil
}

// EncodeDMFeedback is the inverse of DecodeDMFeedback. It is used by
// simulators.
func EncodeDMFeedback(fb DMFeedback) [8]byte {
	pos := FloatToUint(fb.Pos, DMPosMin, DMPosMax, 16)
	vel := FloatToUint(fb.Vel, DMVelMin, DMVelMax, 12)
	t := FloatToUint(fb.Torque, DMTorqueMin, DMTorqueMax, 12)
	return [8]byte{
		fb.State<<4 | fb.ID&0xF,
		byte(pos >> 8),
		byte(pos),
		byte(vel >> 4),
		byte((vel&0xF)<<4 | (t>>8)&0xF),
		byte(t),
		fb.MOSTemp,
		fb.RotorTemp,
	}
}

// DM4310 is a handle to a DM4310 motor.
type DM4310 struct {
	bus    canbus.Bus
	rxID   uint32
	txID   uint32
	mode   Mode
	logger *zap.Logger

	// Owned by the control goroutine.
	cmd MIT

	theta     atomic.Float64
	omega     atomic.Float64
	torque    atomic.Float64
	mosTemp   atomic.Uint32
	rotorTemp atomic.Uint32
	state     atomic.Uint32
	connected atomic.Bool
}

// NewDM4310 returns a DM4310 listening for feedback on rxID and commanded
// on txID adjusted for mode.
//
// The motor must be enabled before it accepts commands.
func NewDM4310(bus canbus.Bus, rxID, txID uint32, mode Mode, opts *Opts) (*DM4310, error) {
	off, err := mode.idOffset()
	if err != nil {
		return nil, err
	}
	d := &DM4310{
		bus:    bus,
		rxID:   rxID,
		txID:   txID + off,
		mode:   mode,
		logger: zap.NewNop(),
	}
	if opts != nil && opts.Logger != nil {
		d.logger = opts.Logger
	}
	d.logger = d.logger.With(zap.Stringer("motor", d))
	if err := bus.RegisterRxCallback(rxID, d.UpdateData); err != nil {
		return nil, err
	}
	return d, nil
}

// String implements conn.Resource.
func (d *DM4310) String() string {
	return fmt.Sprintf("DM4310(%s:0x%03x,%s)", d.bus, d.rxID, d.mode)
}

// Halt implements conn.Resource.
//
// It disables the motor.
func (d *DM4310) Halt() error {
	return d.Disable()
}

// Enable turns on the motor driver.
func (d *DM4310) Enable() error {
	return d.special(dmEnable)
}

// Disable turns off the motor driver.
func (d *DM4310) Disable() error {
	return d.special(dmDisable)
}

// SetZero makes the current position the encoder zero.
func (d *DM4310) SetZero() error {
	return d.special(dmZero)
}

func (d *DM4310) special(code byte) error {
	b := [8]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, code}
	return d.send(b)
}

// SetMIT stores a MIT mode command.
func (d *DM4310) SetMIT(pos, vel, kp, kd, torque float64) {
	d.cmd = MIT{Pos: pos, Vel: vel, Kp: kp, Kd: kd, Torque: torque}
}

// SetPosVel stores a position-velocity command.
func (d *DM4310) SetPosVel(pos, vel float64) {
	d.cmd.Pos = pos
	d.cmd.Vel = vel
}

// SetVelocity stores a velocity command.
func (d *DM4310) SetVelocity(vel float64) {
	d.cmd.Vel = vel
}

// TransmitOutput sends the stored command encoded for the configured mode.
func (d *DM4310) TransmitOutput() error {
	c := d.cmd
	var b [8]byte
	switch d.mode {
	case ModeMIT:
		b = EncodeMIT(c)
	case ModePosVel:
		b = EncodePosVel(c.Pos, c.Vel)
	case ModeVel:
		b = EncodeVel(c.Vel)
	default:
		return fmt.Errorf("%w: %s", ErrInvalidMode, d.mode)
	}
	return d.send(b)
}

func (d *DM4310) send(b [8]byte) error {
	if _, err := d.bus.Transmit(d.txID, b[:]); err != nil {
		return fmt.Errorf("motor: transmit 0x%03x on %s: %w", d.txID, d.bus, err)
	}
	return nil
}

// UpdateData decodes a feedback payload. It is called from the bus receive
// callback.
func (d *DM4310) UpdateData(data []byte) {
	fb, err := DecodeDMFeedback(data)
	if err != nil {
		d.logger.Debug("dropping feedback frame", zap.Error(err))
		return
	}
	if fb.State >= 8 && d.state.Load() != uint32(fb.State) {
		d.logger.Warn("motor fault", zap.Uint8("state", fb.State))
	}
	d.state.Store(uint32(fb.State))
	d.theta.Store(fb.Pos)
	d.omega.Store(fb.Vel)
	d.torque.Store(fb.Torque)
	d.mosTemp.Store(uint32(fb.MOSTemp))
	d.rotorTemp.Store(uint32(fb.RotorTemp))
	d.connected.Store(true)
}

// GetTheta returns the position in rad, within ±12.5.
func (d *DM4310) GetTheta() float64 {
	return d.theta.Load()
}

// GetOmega returns the velocity in rad/s.
func (d *DM4310) GetOmega() float64 {
	return d.omega.Load()
}

// GetTorque returns the torque in N·m.
func (d *DM4310) GetTorque() float64 {
	return d.torque.Load()
}

// State returns the driver state nibble of the last feedback.
func (d *DM4310) State() uint8 {
	return uint8(d.state.Load())
}

// MOSTemperature returns the driver transistor temperature.
func (d *DM4310) MOSTemperature() physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(d.mosTemp.Load())*physic.Celsius
}

// RotorTemperature returns the rotor temperature.
func (d *DM4310) RotorTemperature() physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(d.rotorTemp.Load())*physic.Celsius
}

// Connected reports whether feedback has been received.
func (d *DM4310) Connected() bool {
	return d.connected.Load()
}

// TxID returns the command identifier, including the mode offset.
func (d *DM4310) TxID() uint32 {
	return d.txID
}

// RxID returns the feedback identifier.
func (d *DM4310) RxID() uint32 {
	return d.rxID
}

// Mode returns the control mode.
func (d *DM4310) Mode() Mode {
	return d.mode
}
