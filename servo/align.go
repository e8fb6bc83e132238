// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package servo

import (
	"periph.io/x/conn/v3/gpio"
)

// PinAligned returns an AlignFunc that is true while pin reads active.
//
// The pin must already be configured as an input.
func PinAligned(pin gpio.PinIn, active gpio.Level) AlignFunc {
	return func() bool {
		return pin.Read() == active
	}
}
