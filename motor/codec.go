// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package motor

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/GermanBionicSystems/motors/canbus"
)

// Feedback scales.
const (
	// ThetaScale converts encoder counts (0-8191) to radians.
	ThetaScale = 2 * math.Pi / 8192
	// OmegaScale converts rpm to rad/s.
	OmegaScale = 2 * math.Pi / 60
)

// Feedback is the content of a DJI feedback frame, as sent on the wire.
//
// Current corrections are applied by Dev, not here.
type Feedback struct {
	Angle       uint16 // Encoder counts, 0-8191.
	Speed       int16  // rpm; not reported by M6623.
	Current     int16
	CurrentSet  int16 // M6623 only.
	Temperature uint8 // °C; M3508 and M6020 only.
}

// DecodeFeedback decodes a DJI feedback payload for model m.
func DecodeFeedback(m Model, data []byte) (Feedback, error) {
	if len(data) < canbus.MaxDataLen {
		return Feedback{}, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(data))
	}
	fb := Feedback{Angle: binary.BigEndian.Uint16(data[0:])}
	if m == M6623 {
		fb.Current = int16(binary.BigEndian.Uint16(data[2:]))
		fb.CurrentSet = int16(binary.BigEndian.Uint16(data[4:]))
		return fb, nil
	}
	fb.Speed = int16(binary.BigEndian.Uint16(data[2:]))
	fb.Current = int16(binary.BigEndian.Uint16(data[4:]))
	fb.Temperature = data[6]
	return fb, nil
}

// EncodeFeedback is the inverse of DecodeFeedback. It is used by simulators.
func EncodeFeedback(m Model, fb Feedback) [8]byte {
	var b [8]byte
	binary.BigEndian.PutUint16(b[0:], fb.Angle)
	if m == M6623 {
		binary.BigEndian.PutUint16(b[2:], uint16(fb.Current))
		binary.BigEndian.PutUint16(b[4:], uint16(fb.CurrentSet))
		return b
	}
	binary.BigEndian.PutUint16(b[2:], uint16(fb.Speed))
	binary.BigEndian.PutUint16(b[4:], uint16(fb.Current))
	b[6] = fb.Temperature
	return b
}
