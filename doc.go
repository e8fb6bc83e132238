// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package motors is a container for CAN bus motor drivers and the control
// code layered on top of them.
//
// motor talks to the DJI and DM motors on a canbus.Bus. servo and loop turn
// those motors into position controlled actuators.
package motors
