// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package motor

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/atomic"
	"go.uber.org/zap"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/motors/canbus"
	"github.com/GermanBionicSystems/motors/common"
)

var (
	// ErrInvalidRxID is returned when a DJI rx identifier is outside
	// 0x201-0x20C.
	ErrInvalidRxID = errors.New("motor: invalid rx id")

	// ErrInvalidModel is returned for an unknown Model.
	ErrInvalidModel = errors.New("motor: invalid model")

	// ErrInvalidMode is returned for an unknown DM4310 Mode.
	ErrInvalidMode = errors.New("motor: invalid mode")

	// ErrProtocol is returned when a multiplexed transmission would violate
	// the bus protocol, e.g. motors from different tx groups in one frame.
	ErrProtocol = errors.New("motor: protocol violation")

	// ErrUnsupported is returned when a model can't measure a quantity.
	ErrUnsupported = errors.New("motor: not supported by model")

	// ErrShortFrame is returned when decoding a payload shorter than 8 bytes.
	ErrShortFrame = errors.New("motor: short frame")
)

// Bus identifiers of the DJI tx groups.
const (
	RxIDFirst uint32 = 0x201
	RxIDLast  uint32 = 0x20C

	TxID1 uint32 = 0x200 // rx 0x201-0x204
	TxID2 uint32 = 0x1FF // rx 0x205-0x208
	TxID3 uint32 = 0x2FF // rx 0x209-0x20C
)

// MotorRange is the largest command magnitude produced by the controllers.
const MotorRange = 30000

// Motor is a CAN bus motor reporting angle and velocity feedback.
//
// The set of implementations is closed; use New to get one.
type Motor interface {
	conn.Resource

	// GetTheta returns the encoder angle in [0, 2π) rad.
	GetTheta() float64
	// GetThetaDelta returns target - GetTheta(), wrapped to [-π, π).
	GetThetaDelta(target float64) float64
	// GetOmega returns the angular velocity in rad/s.
	GetOmega() float64
	// GetOmegaDelta returns target - GetOmega().
	GetOmegaDelta(target float64) float64
	// GetCurr returns the raw measured current.
	GetCurr() int16
	// GetTemp returns the temperature in °C, or 0 when not reported.
	GetTemp() uint16
	// SetOutput stores the next command, clamped to the model's safe range.
	SetOutput(val int16)
	// Output returns the stored command.
	Output() int16
	// UpdateData decodes a feedback payload. It is called from the bus
	// receive callback.
	UpdateData(data []byte)
	// Connected reports whether feedback has been received.
	Connected() bool

	Bus() canbus.Bus
	RxID() uint32
	TxID() uint32
	Model() Model

	dev() *Dev
}

// Model is a DJI motor model.
type Model string

const (
	M2006 Model = "M2006"
	M3508 Model = "M3508"
	M6020 Model = "M6020"
	M6623 Model = "M6623"
)

// modelSpec holds the per model safety and capability table.
type modelSpec struct {
	maxOutput int16
	omega     bool
	temp      bool
	// currentSign corrects the reversed current direction of the M6623.
	currentSign int32
	// ampsPerCount converts raw current to amperes; 0 when unknown.
	ampsPerCount float64
}

var models = map[Model]modelSpec{
	M2006: {maxOutput: 10000, omega: true, currentSign: 1, ampsPerCount: 10.0 / 10000},
	M3508: {maxOutput: 12288, omega: true, temp: true, currentSign: 1, ampsPerCount: 20.0 / 16384},
	M6020: {maxOutput: 30000, omega: true, temp: true, currentSign: 1},
	M6623: {maxOutput: 5000, currentSign: -1},
}

// Opts holds the driver options.
type Opts struct {
	// Logger receives capability warnings and dropped frames. Defaults to a
	// no-op logger.
	Logger *zap.Logger
}

// Dev is a handle to a DJI motor.
type Dev struct {
	bus    canbus.Bus
	model  Model
	spec   modelSpec
	rxID   uint32
	txID   uint32
	logger *zap.Logger

	// Written by the receive callback, read by the control loop.
	theta         atomic.Float64
	omega         atomic.Float64
	rawCurrent    atomic.Int32
	rawCurrentSet atomic.Int32
	rawTemp       atomic.Uint32
	connected     atomic.Bool

	output atomic.Int32
}

// TxGroup returns the tx identifier that carries commands for rxID.
func TxGroup(rxID uint32) (uint32, error) {
	switch {
	case rxID < RxIDFirst || rxID > RxIDLast:
		return 0, fmt.Errorf("%w: 0x%03x", ErrInvalidRxID, rxID)
	case rxID >= 0x209:
		return TxID3, nil
	case rxID >= 0x205:
		return TxID2, nil
	default:
		return TxID1, nil
	}
}

// New returns a motor bound to bus that listens for feedback on rxID.
//
// New registers the motor's receive callback on the bus.
func New(bus canbus.Bus, model Model, rxID uint32, opts *Opts) (*Dev, error) {
	spec, ok := models[model]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidModel, model)
	}
	txID, err := TxGroup(rxID)
	if err != nil {
		return nil, err
	}
	d := &Dev{
		bus:    bus,
		model:  model,
		spec:   spec,
		rxID:   rxID,
		txID:   txID,
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
func (d *Dev) String() string {
	return fmt.Sprintf("%s(%s:0x%03x)", d.model, d.bus, d.rxID)
}

// Halt implements conn.Resource.
//
// It zeroes the stored command; the motor stops on the next TransmitOutput.
func (d *Dev) Halt() error {
	d.output.Store(0)
	return nil
}

// UpdateData implements Motor.
func (d *Dev) UpdateData(data []byte) {
	fb, err := DecodeFeedback(d.model, data)
	if err != nil {
		d.logger.Debug("dropping feedback frame", zap.Error(err))
		return
	}
	d.theta.Store(float64(fb.Angle) * ThetaScale)
	if d.spec.omega {
		d.omega.Store(float64(fb.Speed) * OmegaScale)
	}
	d.rawCurrent.Store(int32(fb.Current) * d.spec.currentSign)
	d.rawCurrentSet.Store(int32(fb.CurrentSet) * d.spec.currentSign)
	d.rawTemp.Store(uint32(fb.Temperature))
	d.connected.Store(true)
}

// GetTheta implements Motor.
func (d *Dev) GetTheta() float64 {
	return d.theta.Load()
}

// GetThetaDelta implements Motor.
func (d *Dev) GetThetaDelta(target float64) float64 {
	return common.Wrap(target-d.theta.Load(), -math.Pi, math.Pi)
}

// GetOmega implements Motor.
//
// Models without a velocity measurement log a warning and return 0.
func (d *Dev) GetOmega() float64 {
	if !d.spec.omega {
		d.logger.Warn("omega measurement not supported")
		return 0
	}
	return d.omega.Load()
}

// GetOmegaDelta implements Motor.
//
// Models without a velocity measurement log a warning and return 0.
func (d *Dev) GetOmegaDelta(target float64) float64 {
	if !d.spec.omega {
		d.logger.Warn("omega measurement not supported")
		return 0
	}
	return target - d.omega.Load()
}

// GetCurr implements Motor.
func (d *Dev) GetCurr() int16 {
	return int16(d.rawCurrent.Load())
}

// GetCurrSet returns the current set point reported by a M6623, 0 for other
// models.
func (d *Dev) GetCurrSet() int16 {
	return int16(d.rawCurrentSet.Load())
}

// GetTemp implements Motor.
func (d *Dev) GetTemp() uint16 {
	if !d.spec.temp {
		return 0
	}
	return uint16(d.rawTemp.Load())
}

// Current returns the measured current.
func (d *Dev) Current() (physic.ElectricCurrent, error) {
	if d.spec.ampsPerCount == 0 {
		return 0, fmt.Errorf("%w: %s current", ErrUnsupported, d.model)
	}
	a := float64(d.rawCurrent.Load()) * d.spec.ampsPerCount
	return physic.ElectricCurrent(math.Round(a * float64(physic.Ampere))), nil
}

// Temperature returns the motor temperature.
func (d *Dev) Temperature() (physic.Temperature, error) {
	if !d.spec.temp {
		return 0, fmt.Errorf("%w: %s temperature", ErrUnsupported, d.model)
	}
	return physic.ZeroCelsius + physic.Temperature(d.rawTemp.Load())*physic.Celsius, nil
}

// SetOutput implements Motor.
func (d *Dev) SetOutput(val int16) {
	v := int32(val) * d.spec.currentSign
	lim := int32(d.spec.maxOutput)
	d.output.Store(common.Clip(v, -lim, lim))
}

// Output implements Motor.
func (d *Dev) Output() int16 {
	return int16(d.output.Load())
}

// Connected implements Motor.
func (d *Dev) Connected() bool {
	return d.connected.Load()
}

// Bus implements Motor.
func (d *Dev) Bus() canbus.Bus {
	return d.bus
}

// RxID implements Motor.
func (d *Dev) RxID() uint32 {
	return d.rxID
}

// TxID implements Motor.
func (d *Dev) TxID() uint32 {
	return d.txID
}

// Model implements Motor.
func (d *Dev) Model() Model {
	return d.model
}

// MaxOutput returns the command clamp of the model.
func (d *Dev) MaxOutput() int16 {
	return d.spec.maxOutput
}

func (d *Dev) dev() *Dev {
	return d
}

var _ Motor = &Dev{}
