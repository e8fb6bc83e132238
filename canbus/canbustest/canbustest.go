// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package canbustest is meant to be used to test drivers over a fake CAN bus.
package canbustest

import (
	"sync"

	"github.com/GermanBionicSystems/motors/canbus"
)

// IO registers the frames sent over a bus.
type IO struct {
	ID   uint32
	Data []byte
}

// Record implements canbus.BusCloser that records everything written to it
// and lets the test inject received frames.
//
// Inject calls the registered callback synchronously, the same way a real
// transport does from its reader.
type Record struct {
	canbus.Dispatcher

	// Name is returned by String. Defaults to "canbustest".
	Name string
	// TxErr, when set, makes Transmit fail without recording.
	TxErr error

	sync.Mutex
	Ops []IO
}

// String implements canbus.Bus.
func (r *Record) String() string {
	if r.Name == "" {
		return "canbustest"
	}
	return r.Name
}

// Transmit implements canbus.Bus.
func (r *Record) Transmit(id uint32, data []byte) (int, error) {
	if err := canbus.CheckLength(data); err != nil {
		return 0, err
	}
	if r.TxErr != nil {
		return 0, r.TxErr
	}
	io := IO{ID: id, Data: make([]byte, len(data))}
	copy(io.Data, data)
	r.Lock()
	defer r.Unlock()
	r.Ops = append(r.Ops, io)
	return len(data), nil
}

// Inject delivers a received frame to the callback registered for id.
//
// It returns false when nothing is listening on id.
func (r *Record) Inject(id uint32, data []byte) bool {
	return r.Dispatch(id, data)
}

// Last returns the most recent frame transmitted with identifier id.
func (r *Record) Last(id uint32) (IO, bool) {
	r.Lock()
	defer r.Unlock()
	for i := len(r.Ops) - 1; i >= 0; i-- {
		if r.Ops[i].ID == id {
			return r.Ops[i], true
		}
	}
	return IO{}, false
}

// Reset forgets the recorded frames.
func (r *Record) Reset() {
	r.Lock()
	defer r.Unlock()
	r.Ops = nil
}

// Close implements canbus.BusCloser.
func (r *Record) Close() error {
	return nil
}

var _ canbus.BusCloser = &Record{}
