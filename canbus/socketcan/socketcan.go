// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package socketcan exposes Linux SocketCAN interfaces as canbus.Bus.
//
// # More Details
//
// The interface must be configured and up before it is opened, e.g.
//
//	ip link set can0 type can bitrate 1000000
//	ip link set can0 up
package socketcan

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/brutella/can"

	"github.com/GermanBionicSystems/motors/canbus"
	"github.com/GermanBionicSystems/motors/canbus/canreg"
)

// effMask keeps the 29 identifier bits of a frame, dropping the SocketCAN
// flag bits.
const effMask = 0x1FFFFFFF

// Bus is an open SocketCAN interface.
type Bus struct {
	canbus.Dispatcher

	name string
	bus  *can.Bus
	done chan struct{}
	err  error
}

// Open binds to the named interface and starts dispatching received frames
// in a background goroutine.
func Open(ifname string) (*Bus, error) {
	cb, err := can.NewBusForInterfaceWithName(ifname)
	if err != nil {
		return nil, fmt.Errorf("socketcan: open %s: %w", ifname, err)
	}
	b := &Bus{name: ifname, bus: cb, done: make(chan struct{})}
	cb.Subscribe(can.NewHandler(b.handle))
	go func() {
		defer close(b.done)
		b.err = cb.ConnectAndPublish()
	}()
	return b, nil
}

// String implements canbus.Bus.
func (b *Bus) String() string {
	return b.name
}

// Transmit implements canbus.Bus.
func (b *Bus) Transmit(id uint32, data []byte) (int, error) {
	if err := canbus.CheckLength(data); err != nil {
		return 0, err
	}
	f := can.Frame{ID: id, Length: uint8(len(data))}
	copy(f.Data[:], data)
	if err := b.bus.Publish(f); err != nil {
		return 0, fmt.Errorf("socketcan: %s: %w", b.name, err)
	}
	return len(data), nil
}

// Wait blocks until the reader stops and returns why it stopped.
func (b *Bus) Wait() error {
	<-b.done
	return b.err
}

// Close implements canbus.BusCloser.
func (b *Bus) Close() error {
	err := b.bus.Disconnect()
	<-b.done
	return err
}

func (b *Bus) handle(f can.Frame) {
	n := int(f.Length)
	if n > canbus.MaxDataLen {
		n = canbus.MaxDataLen
	}
	b.Dispatch(f.ID&effMask, f.Data[:n])
}

// RegisterAll registers every CAN interface present on the host into canreg.
//
// Interfaces are matched by name ("can*" and "vcan*").
func RegisterAll() error {
	ifaces, err := net.Interfaces()
	if err != nil {
		return err
	}
	var errs []error
	for _, iface := range ifaces {
		name := iface.Name
		if !strings.HasPrefix(name, "can") && !strings.HasPrefix(name, "vcan") {
			continue
		}
		err := canreg.Register(name, nil, func() (canbus.BusCloser, error) {
			return Open(name)
		})
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ canbus.BusCloser = &Bus{}
