// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package canbus

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// MaxDataLen is the payload size of a classic CAN frame.
const MaxDataLen = 8

var (
	// ErrInvalidLength is returned when a payload is empty or longer than
	// MaxDataLen.
	ErrInvalidLength = errors.New("canbus: invalid data length")

	// ErrNilCallback is returned when registering a nil receive callback.
	ErrNilCallback = errors.New("canbus: nil callback")
)

// RxFunc receives the payload of a frame addressed to a registered
// identifier.
//
// The slice is only valid for the duration of the call.
type RxFunc func(data []byte)

// Bus is a CAN transport.
type Bus interface {
	fmt.Stringer
	// RegisterRxCallback routes frames with the given identifier to fn.
	//
	// There is a single callback per identifier; registering again replaces
	// the previous one.
	RegisterRxCallback(id uint32, fn RxFunc) error
	// Transmit sends a frame and returns the number of payload bytes sent.
	Transmit(id uint32, data []byte) (int, error)
}

// BusCloser is a Bus that owns an underlying resource.
type BusCloser interface {
	io.Closer
	Bus
}

// CheckLength validates a payload length for transmission.
func CheckLength(data []byte) error {
	if len(data) == 0 || len(data) > MaxDataLen {
		return fmt.Errorf("%w: %d bytes", ErrInvalidLength, len(data))
	}
	return nil
}

// Dispatcher is the receive side of a Bus: a table of callbacks keyed by
// identifier. Transports embed it and call Dispatch from their reader.
//
// The zero value is ready to use.
type Dispatcher struct {
	mu        sync.RWMutex
	callbacks map[uint32]RxFunc
}

// RegisterRxCallback implements Bus.
func (d *Dispatcher) RegisterRxCallback(id uint32, fn RxFunc) error {
	if fn == nil {
		return ErrNilCallback
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.callbacks == nil {
		d.callbacks = map[uint32]RxFunc{}
	}
	d.callbacks[id] = fn
	return nil
}

// Dispatch invokes the callback registered for id and reports whether one was
// found.
func (d *Dispatcher) Dispatch(id uint32, data []byte) bool {
	d.mu.RLock()
	fn := d.callbacks[id]
	d.mu.RUnlock()
	if fn == nil {
		return false
	}
	fn(data)
	return true
}
