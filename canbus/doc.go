// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package canbus defines the CAN transport consumed by the motor drivers.
//
// A Bus delivers received payloads to one callback per identifier and
// transmits classic 8 byte CAN frames. The callback is invoked from the
// transport's receive context and must not block.
//
// # Implementations
//
// socketcan: Linux SocketCAN interfaces.
//
// canbustest: in-memory bus for tests and simulation.
package canbus
