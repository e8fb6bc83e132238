// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package motor interfaces with CAN bus brushless motors.
//
// # DJI motors
//
// M2006, M3508, M6020 and M6623 report feedback on rx identifiers
// 0x201-0x20C and share command frames in groups of four: one frame on tx
// identifier 0x200, 0x1FF or 0x2FF carries a big-endian int16 per motor.
// Use TransmitOutput once per control period per group.
//
// # DM motors
//
// The DM4310 is commanded individually in one of three modes (MIT,
// position-velocity, velocity) using fixed-point and float32 fields.
//
// # Product Pages
//
// M3508: https://www.robomaster.com/en-US/products/components/general/M3508
//
// M2006: https://www.robomaster.com/en-US/products/components/general/M2006
//
// GM6020: https://www.robomaster.com/en-US/products/components/general/GM6020
//
// DM4310: https://www.damiaoyu.com/
package motor
