// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/caarlos0/env/v6"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/motors/canbus"
	"github.com/GermanBionicSystems/motors/motor"
	"github.com/GermanBionicSystems/motors/pid"
	"github.com/GermanBionicSystems/motors/servo"
)

// MotorConfig selects a DJI motor on the bus.
type MotorConfig struct {
	Name  string `yaml:"name"`
	Model string `yaml:"model"`
	RxID  uint32 `yaml:"rx_id"`
}

func (m *MotorConfig) validate() error {
	if m.Name == "" {
		return errors.New("motor name is required")
	}
	if _, err := motor.TxGroup(m.RxID); err != nil {
		return fmt.Errorf("motor %s: %w", m.Name, err)
	}
	switch motor.Model(m.Model) {
	case motor.M2006, motor.M3508, motor.M6020, motor.M6623:
		return nil
	default:
		return fmt.Errorf("motor %s: %w: %q", m.Name, motor.ErrInvalidModel, m.Model)
	}
}

func (m *MotorConfig) open(bus canbus.Bus, logger *zap.Logger) (*motor.Dev, error) {
	return motor.New(bus, motor.Model(m.Model), m.RxID, &motor.Opts{Logger: logger})
}

// ServoConfig describes a servo in shaft units.
type ServoConfig struct {
	Motor             MotorConfig     `yaml:"motor"`
	MaxSpeed          float64         `yaml:"max_speed"`
	MaxAcceleration   float64         `yaml:"max_acceleration"`
	TransmissionRatio float64         `yaml:"transmission_ratio"`
	OmegaPID          servo.PIDConfig `yaml:"omega_pid"`
	HoldPID           servo.PIDConfig `yaml:"hold_pid"`
	ProximityIn       float64         `yaml:"proximity_in"`
	ProximityOut      float64         `yaml:"proximity_out"`
	// JamEffort enables jam detection when positive.
	JamEffort float64 `yaml:"jam_effort"`
	JamWindow int     `yaml:"jam_window"`
}

func (s *ServoConfig) servoConfig(m motor.Motor, logger *zap.Logger) servo.Config {
	return servo.Config{
		Motor:             m,
		MaxSpeed:          s.MaxSpeed,
		MaxAcceleration:   s.MaxAcceleration,
		TransmissionRatio: s.TransmissionRatio,
		OmegaPID:          s.OmegaPID,
		HoldPID:           s.HoldPID,
		ProximityIn:       s.ProximityIn,
		ProximityOut:      s.ProximityOut,
		Logger:            logger,
	}
}

// SteeringConfig describes the steering calibration.
type SteeringConfig struct {
	ServoConfig     `yaml:",inline"`
	TestSpeed       float64 `yaml:"test_speed"`
	CalibrateOffset float64 `yaml:"calibrate_offset"`
	Pin             string  `yaml:"pin" env:"MOTORCTL_ALIGN_PIN"`
	ActiveLow       bool    `yaml:"active_low"`
}

// Config is the motorctl configuration file.
type Config struct {
	Bus      string         `yaml:"bus" env:"MOTORCTL_BUS"`
	RateHz   float64        `yaml:"rate_hz" env:"MOTORCTL_RATE_HZ"`
	Servo    ServoConfig    `yaml:"servo"`
	Steering SteeringConfig `yaml:"steering"`
	Watch    []MotorConfig  `yaml:"watch"`
}

// Rate returns the control rate.
func (c *Config) Rate() physic.Frequency {
	return physic.Frequency(math.Round(c.RateHz * float64(physic.Hertz)))
}

func defaultServo(name string, rxID uint32) ServoConfig {
	return ServoConfig{
		Motor:             MotorConfig{Name: name, Model: string(motor.M3508), RxID: rxID},
		MaxSpeed:          math.Pi,
		MaxAcceleration:   2 * math.Pi,
		TransmissionRatio: 3591.0 / 187,
		OmegaPID:          servo.PIDConfig{Params: pid.Params{Kp: 500, Ki: 2}, MaxIout: 5000, MaxOut: 30000},
		HoldPID:           servo.PIDConfig{Params: pid.Params{Kp: 500}, MaxOut: 30000},
		JamEffort:         0.3,
		JamWindow:         250,
	}
}

func defaultConfig() *Config {
	return &Config{
		RateHz: 500,
		Servo:  defaultServo("loader", 0x201),
		Steering: SteeringConfig{
			ServoConfig: defaultServo("steer", 0x205),
			TestSpeed:   0.5,
			Pin:         "GPIO17",
			ActiveLow:   true,
		},
		Watch: []MotorConfig{{Name: "loader", Model: string(motor.M3508), RxID: 0x201}},
	}
}

// loadConfig reads path over the defaults, then applies the environment.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.UnmarshalStrict(b, cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var err error
	if c.RateHz <= 0 || c.RateHz > 10000 {
		err = multierr.Append(err, fmt.Errorf("rate_hz must be in (0, 10000], got %v", c.RateHz))
	}
	err = multierr.Append(err, c.Servo.Motor.validate())
	err = multierr.Append(err, c.Steering.Motor.validate())
	for i := range c.Watch {
		err = multierr.Append(err, c.Watch[i].validate())
	}
	if c.Servo.JamEffort > 1 || c.Servo.JamEffort < 0 {
		err = multierr.Append(err, fmt.Errorf("jam_effort must be in [0, 1], got %v", c.Servo.JamEffort))
	}
	return err
}
