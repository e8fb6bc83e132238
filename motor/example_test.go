// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package motor_test

import (
	"log"

	"github.com/GermanBionicSystems/motors/canbus/canreg"
	"github.com/GermanBionicSystems/motors/canbus/socketcan"
	"github.com/GermanBionicSystems/motors/motor"
)

func Example() {
	if err := socketcan.RegisterAll(); err != nil {
		log.Fatal(err)
	}
	bus, err := canreg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer bus.Close()

	left, err := motor.New(bus, motor.M3508, 0x201, nil)
	if err != nil {
		log.Fatal(err)
	}
	right, err := motor.New(bus, motor.M3508, 0x202, nil)
	if err != nil {
		log.Fatal(err)
	}
	left.SetOutput(800)
	right.SetOutput(-800)
	if err := motor.TransmitOutput(left, right); err != nil {
		log.Fatal(err)
	}
}

func ExampleDM4310() {
	if err := socketcan.RegisterAll(); err != nil {
		log.Fatal(err)
	}
	bus, err := canreg.Open("can0")
	if err != nil {
		log.Fatal(err)
	}
	defer bus.Close()

	m, err := motor.NewDM4310(bus, 0x11, 0x01, motor.ModeVel, nil)
	if err != nil {
		log.Fatal(err)
	}
	if err := m.Enable(); err != nil {
		log.Fatal(err)
	}
	defer m.Halt()
	m.SetVelocity(3.0)
	if err := m.TransmitOutput(); err != nil {
		log.Fatal(err)
	}
}
