// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package motor

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/GermanBionicSystems/motors/canbus"
	"github.com/GermanBionicSystems/motors/common"
)

// GroupSize is the number of motors sharing one command frame.
const GroupSize = 4

// Slot returns the position of rxID's command within its group frame.
func Slot(rxID uint32) int {
	return int((rxID - 1) % GroupSize)
}

// CheckGroup verifies that motors can be commanded with one frame.
func CheckGroup(motors ...Motor) error {
	if len(motors) == 0 || len(motors) > GroupSize {
		return fmt.Errorf("%w: %d motors in one frame", ErrProtocol, len(motors))
	}
	first := motors[0]
	var used [GroupSize]bool
	for _, m := range motors {
		if m.TxID() != first.TxID() {
			return fmt.Errorf("%w: %s and %s are in different tx groups", ErrProtocol, first, m)
		}
		if m.Bus() != first.Bus() {
			return fmt.Errorf("%w: %s and %s are on different buses", ErrProtocol, first, m)
		}
		s := Slot(m.RxID())
		if used[s] {
			return fmt.Errorf("%w: slot %d used twice by %s", ErrProtocol, s, m)
		}
		used[s] = true
	}
	return nil
}

// EncodeGroup returns the command frame for motors without validating them.
//
// Slots of motors not listed are zero.
func EncodeGroup(motors ...Motor) [canbus.MaxDataLen]byte {
	var b [canbus.MaxDataLen]byte
	for _, m := range motors {
		binary.BigEndian.PutUint16(b[2*Slot(m.RxID()):], uint16(m.dev().Output()))
	}
	return b
}

// TransmitOutput sends the stored commands of up to 4 motors of the same tx
// group in a single frame.
//
// A motor of the group that is not passed is commanded to zero.
func TransmitOutput(motors ...Motor) error {
	if err := CheckGroup(motors...); err != nil {
		return err
	}
	b := EncodeGroup(motors...)
	first := motors[0]
	if _, err := first.Bus().Transmit(first.TxID(), b[:]); err != nil {
		return fmt.Errorf("motor: transmit 0x%03x on %s: %w", first.TxID(), first.Bus(), err)
	}
	return nil
}

// ClipMotorRange rounds a controller output and clamps it to ±MotorRange.
func ClipMotorRange(output float64) int16 {
	if math.IsNaN(output) {
		return 0
	}
	return int16(common.Clip(math.Round(output), -MotorRange, MotorRange))
}
