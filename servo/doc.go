// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package servo turns a velocity controlled motor into a position servo.
//
// A Servo tracks the output shaft angle through a gearbox across encoder
// wraps, ramps the speed toward its target with a trapezoidal profile and
// holds position once close enough. Steering adds a one time calibration
// against an alignment sensor. Flywheel is a plain speed loop.
//
// CalcOutput must be called once per control period, followed by
// motor.TransmitOutput for every tx group.
package servo
