// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package servo

import (
	"fmt"
	"math"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/GermanBionicSystems/motors/common"
	"github.com/GermanBionicSystems/motors/motor"
)

// holdGain converts the remaining motor angle into a velocity target while
// holding.
const holdGain = 50

// Status is the result of SetTarget.
type Status int

const (
	TurningClockwise     Status = -1
	InputReject          Status = 0
	TurningAntiClockwise Status = 1
)

func (s Status) String() string {
	switch s {
	case TurningClockwise:
		return "TurningClockwise"
	case InputReject:
		return "InputReject"
	case TurningAntiClockwise:
		return "TurningAntiClockwise"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Servo controls the output shaft angle of a geared motor.
type Servo struct {
	motor  motor.Motor
	clock  clock.Clock
	logger *zap.Logger

	omegaPID Controller
	holdPID  Controller

	ratio        float64
	proximityIn  float64
	proximityOut float64

	// Motor units. Control goroutine only.
	maxSpeed float64
	maxAcc   float64
	start    time.Time
	holdEdge *common.BoolEdgeDetector
	jam      *jamDetector

	// Receive goroutine only.
	innerWrap *common.FloatEdgeDetector
	outerWrap *common.FloatEdgeDetector

	// Shared between the receive and control goroutines.
	target     atomic.Float64
	align      atomic.Float64
	motorAngle atomic.Float64
	offset     atomic.Float64
	servoAngle atomic.Float64
	cumulated  atomic.Float64
	hold       atomic.Bool
}

// New returns a servo driving cfg.Motor.
//
// The servo takes over the motor's receive callback. It starts holding with
// a target of 0.
func New(cfg *Config) (*Servo, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Servo{
		motor:     cfg.Motor,
		clock:     cfg.Clock,
		logger:    cfg.Logger,
		omegaPID:  cfg.OmegaController,
		holdPID:   cfg.HoldController,
		ratio:     cfg.TransmissionRatio,
		maxSpeed:  cfg.MaxSpeed * cfg.TransmissionRatio,
		maxAcc:    cfg.MaxAcceleration * cfg.TransmissionRatio,
		holdEdge:  common.NewBoolEdgeDetector(false),
		innerWrap: common.NewFloatEdgeDetector(0, math.Pi),
		outerWrap: common.NewFloatEdgeDetector(0, math.Pi),
	}
	s.proximityIn, s.proximityOut = cfg.proximity()
	if s.clock == nil {
		s.clock = clock.New()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.With(zap.Stringer("motor", s.motor))
	if s.omegaPID == nil {
		s.omegaPID = cfg.OmegaPID.controller()
	}
	if s.holdPID == nil {
		s.holdPID = cfg.HoldPID.controller()
	}
	s.align.Store(cfg.AlignAngle)
	s.hold.Store(true)
	s.start = s.clock.Now()
	if err := s.motor.Bus().RegisterRxCallback(s.motor.RxID(), s.UpdateData); err != nil {
		return nil, err
	}
	return s, nil
}

// String returns the servo state on one line.
func (s *Servo) String() string {
	state := "moving"
	if s.Holding() {
		state = "holding"
	}
	return fmt.Sprintf("%s: theta=%.3f target=%.3f omega=%.3f %s",
		s.motor, s.GetTheta(), s.GetTarget(), s.GetOmega(), state)
}

// UpdateData decodes a feedback payload through the motor and updates the
// shaft angle. It is registered as the motor's receive callback.
func (s *Servo) UpdateData(data []byte) {
	s.motor.UpdateData(data)
	theta := s.motor.GetTheta()
	if s.align.Load() < 0 {
		s.align.Store(theta)
	}
	motorAngle := theta - s.align.Load()
	s.motorAngle.Store(motorAngle)

	// One encoder revolution is 2π/ratio at the shaft.
	tooth := 2 * math.Pi / s.ratio
	s.innerWrap.Input(motorAngle)
	offset := s.offset.Load()
	if s.innerWrap.NegEdge() {
		offset = common.Wrap(offset+tooth, 0, 2*math.Pi)
	} else if s.innerWrap.PosEdge() {
		offset = common.Wrap(offset-tooth, 0, 2*math.Pi)
	}
	s.offset.Store(offset)

	servoAngle := common.Wrap(offset+motorAngle/s.ratio, 0, 2*math.Pi)
	s.outerWrap.Input(servoAngle)
	cumulated := s.cumulated.Load()
	if s.outerWrap.NegEdge() {
		cumulated += 2 * math.Pi
	} else if s.outerWrap.PosEdge() {
		cumulated -= 2 * math.Pi
	}
	s.servoAngle.Store(servoAngle)
	s.cumulated.Store(cumulated)

	diff := math.Abs(s.GetThetaDelta(s.target.Load()))
	hold := s.hold.Load()
	if !hold && diff < s.proximityIn {
		s.hold.Store(true)
	} else if hold && diff > s.proximityOut {
		s.hold.Store(false)
	}
}

// CalcOutput computes the next motor command and stores it with SetOutput.
func (s *Servo) CalcOutput() {
	hold := s.hold.Load()
	s.holdEdge.Input(hold)
	if s.holdEdge.Edge() {
		s.omegaPID.Reset()
		s.holdPID.Reset()
	}
	if s.holdEdge.NegEdge() {
		s.start = s.clock.Now()
	}

	d := (s.target.Load() - s.servoAngle.Load() - s.cumulated.Load()) * s.ratio
	var out float64
	if hold {
		out = s.holdPID.ComputeConstrainedOutput(s.motor.GetOmegaDelta(d * holdGain))
	} else {
		ramp := s.clock.Since(s.start).Seconds() * s.maxAcc
		brake := math.Sqrt(2 * s.maxAcc * math.Abs(d))
		speed := common.Clip(math.Min(ramp, brake), 0, s.maxSpeed)
		out = s.omegaPID.ComputeConstrainedOutput(s.motor.GetOmegaDelta(common.Sign(d, 0) * speed))
	}
	cmd := motor.ClipMotorRange(out)
	s.motor.SetOutput(cmd)

	if s.jam != nil && s.jam.input(cmd) {
		s.jam.fn(s, Jam{Speed: s.maxSpeed / s.ratio, Effort: s.jam.effort()})
	}
}

// SetTarget sets the target shaft angle in rad.
//
// While moving, the request is rejected unless override is set.
func (s *Servo) SetTarget(target float64, override bool) Status {
	if !s.hold.Load() && !override {
		return InputReject
	}
	old := s.target.Load()
	s.target.Store(target)
	if target < old {
		return TurningClockwise
	}
	return TurningAntiClockwise
}

// SetMaxSpeed sets the maximum shaft speed in rad/s.
func (s *Servo) SetMaxSpeed(v float64) error {
	if !(v > 0) {
		s.logger.Warn("rejecting max speed", zap.Float64("speed", v))
		return fmt.Errorf("%w: max speed %v", ErrInvalidSetting, v)
	}
	s.maxSpeed = v * s.ratio
	return nil
}

// SetMaxAcceleration sets the maximum shaft acceleration in rad/s².
func (s *Servo) SetMaxAcceleration(v float64) error {
	if !(v > 0) {
		s.logger.Warn("rejecting max acceleration", zap.Float64("acceleration", v))
		return fmt.Errorf("%w: max acceleration %v", ErrInvalidSetting, v)
	}
	s.maxAcc = v * s.ratio
	return nil
}

// MaxSpeed returns the maximum shaft speed in rad/s.
func (s *Servo) MaxSpeed() float64 {
	return s.maxSpeed / s.ratio
}

// MaxAcceleration returns the maximum shaft acceleration in rad/s².
func (s *Servo) MaxAcceleration() float64 {
	return s.maxAcc / s.ratio
}

// Holding reports whether the servo is within the proximity band of its
// target.
func (s *Servo) Holding() bool {
	return s.hold.Load()
}

// GetTarget returns the target shaft angle in rad.
func (s *Servo) GetTarget() float64 {
	return s.target.Load()
}

// GetTheta returns the unwrapped shaft angle in rad.
func (s *Servo) GetTheta() float64 {
	return s.servoAngle.Load() + s.cumulated.Load()
}

// GetThetaDelta returns target - GetTheta().
func (s *Servo) GetThetaDelta(target float64) float64 {
	return target - s.GetTheta()
}

// GetOmega returns the shaft speed in rad/s.
func (s *Servo) GetOmega() float64 {
	return s.motor.GetOmega() / s.ratio
}

// GetOmegaDelta returns target - GetOmega().
func (s *Servo) GetOmegaDelta(target float64) float64 {
	return target - s.GetOmega()
}

// TransmissionRatio returns the gearbox reduction.
func (s *Servo) TransmissionRatio() float64 {
	return s.ratio
}

// Motor returns the driven motor.
func (s *Servo) Motor() motor.Motor {
	return s.motor
}
