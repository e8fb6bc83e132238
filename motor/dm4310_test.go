// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package motor

import (
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/motors/canbus/canbustest"
)

func TestNewDM4310(t *testing.T) {
	for _, test := range []struct {
		mode      Mode
		wantTx    uint32
		expectErr error
	}{
		{mode: ModeMIT, wantTx: 0x01},
		{mode: ModePosVel, wantTx: 0x101},
		{mode: ModeVel, wantTx: 0x201},
		{mode: Mode(3), expectErr: ErrInvalidMode},
	} {
		t.Run(test.mode.String(), func(t *testing.T) {
			d, err := NewDM4310(&canbustest.Record{}, 0x11, 0x01, test.mode, nil)
			if !errors.Is(err, test.expectErr) {
				t.Fatalf("expected %v, got %v", test.expectErr, err)
			}
			if err == nil && d.TxID() != test.wantTx {
				t.Errorf("TxID() = 0x%03x, want 0x%03x", d.TxID(), test.wantTx)
			}
		})
	}
}

func TestDM4310Special(t *testing.T) {
	bus := &canbustest.Record{}
	d, err := NewDM4310(bus, 0x11, 0x01, ModePosVel, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Enable(); err != nil {
		t.Fatal(err)
	}
	if err := d.SetZero(); err != nil {
		t.Fatal(err)
	}
	if err := d.Halt(); err != nil {
		t.Fatal(err)
	}
	ff := func(last byte) []byte {
		return []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, last}
	}
	want := []canbustest.IO{
		{ID: 0x101, Data: ff(0xFC)},
		{ID: 0x101, Data: ff(0xFE)},
		{ID: 0x101, Data: ff(0xFD)},
	}
	if diff := cmp.Diff(want, bus.Ops); diff != "" {
		t.Fatalf("frames (-want +got):\n%s", diff)
	}
}

func TestDM4310TransmitOutput(t *testing.T) {
	for _, test := range []struct {
		name string
		mode Mode
		set  func(d *DM4310)
		want canbustest.IO
	}{
		{
			name: "MIT zero",
			mode: ModeMIT,
			set:  func(d *DM4310) { d.SetMIT(0, 0, 0, 0, 0) },
			want: canbustest.IO{ID: 0x01, Data: []byte{0x80, 0x00, 0x80, 0x00, 0x00, 0x00, 0x08, 0x00}},
		},
		{
			name: "MIT extremes",
			mode: ModeMIT,
			set:  func(d *DM4310) { d.SetMIT(12.5, 45, 0, 5, -18) },
			want: canbustest.IO{ID: 0x01, Data: []byte{0xFF, 0xFF, 0xFF, 0xF0, 0x00, 0xFF, 0xF0, 0x00}},
		},
		{
			name: "MIT clamped",
			mode: ModeMIT,
			set:  func(d *DM4310) { d.SetMIT(100, -100, 1000, -1, 100) },
			want: canbustest.IO{ID: 0x01, Data: []byte{0xFF, 0xFF, 0x00, 0x0F, 0xFF, 0x00, 0x0F, 0xFF}},
		},
		{
			name: "PosVel",
			mode: ModePosVel,
			set:  func(d *DM4310) { d.SetPosVel(1, -2) },
			want: canbustest.IO{ID: 0x101, Data: []byte{0x00, 0x00, 0x80, 0x3F, 0x00, 0x00, 0x00, 0xC0}},
		},
		{
			name: "Vel",
			mode: ModeVel,
			set:  func(d *DM4310) { d.SetVelocity(1) },
			want: canbustest.IO{ID: 0x201, Data: []byte{0x00, 0x00, 0x80, 0x3F, 0x00, 0x00, 0x00, 0x00}},
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			bus := &canbustest.Record{}
			d, err := NewDM4310(bus, 0x11, 0x01, test.mode, nil)
			if err != nil {
				t.Fatal(err)
			}
			test.set(d)
			if err := d.TransmitOutput(); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff([]canbustest.IO{test.want}, bus.Ops); diff != "" {
				t.Fatalf("frames (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDM4310UpdateData(t *testing.T) {
	bus := &canbustest.Record{}
	d, err := NewDM4310(bus, 0x11, 0x01, ModeMIT, nil)
	if err != nil {
		t.Fatal(err)
	}
	bus.Inject(0x11, []byte{0x11, 0x80, 0x00, 0x80, 0x08, 0x00, 40, 50})
	if !d.Connected() {
		t.Fatal("expected connected")
	}
	if got := d.GetTheta(); math.Abs(got) > 25.0/65535 {
		t.Errorf("GetTheta() = %v", got)
	}
	if got := d.GetOmega(); math.Abs(got) > 90.0/4095 {
		t.Errorf("GetOmega() = %v", got)
	}
	if got := d.GetTorque(); math.Abs(got) > 36.0/4095 {
		t.Errorf("GetTorque() = %v", got)
	}
	if got := d.State(); got != 1 {
		t.Errorf("State() = %d", got)
	}
	if got, want := d.MOSTemperature(), physic.ZeroCelsius+40*physic.Celsius; got != want {
		t.Errorf("MOSTemperature() = %s, want %s", got, want)
	}
	if got, want := d.RotorTemperature(), physic.ZeroCelsius+50*physic.Celsius; got != want {
		t.Errorf("RotorTemperature() = %s, want %s", got, want)
	}

	// Short frames are ignored.
	bus.Inject(0x11, []byte{0x11, 0xFF})
	if got := d.State(); got != 1 {
		t.Errorf("State() = %d after short frame", got)
	}
}

func TestDMFeedbackRoundTrip(t *testing.T) {
	in := DMFeedback{ID: 3, State: 9, Pos: -3.3, Vel: 12.25, Torque: -7.5, MOSTemp: 31, RotorTemp: 44}
	b := EncodeDMFeedback(in)
	got, err := DecodeDMFeedback(b[:])
	if err != nil {
		t.Fatal(err)
	}
	approx := cmp.Comparer(func(x, y float64) bool { return math.Abs(x-y) <= 90.0/4095 })
	if diff := cmp.Diff(in, got, approx); diff != "" {
		t.Fatalf("round trip (-want +got):\n%s", diff)
	}
}

func TestFixedPointRoundTrip(t *testing.T) {
	for _, test := range []struct {
		min, max float64
		bits     uint
	}{
		{DMPosMin, DMPosMax, 16},
		{DMVelMin, DMVelMax, 12},
		{DMKpMin, DMKpMax, 12},
		{DMKdMin, DMKdMax, 12},
		{DMTorqueMin, DMTorqueMax, 12},
	} {
		step := (test.max - test.min) / float64(uint32(1)<<test.bits-1)
		for i := 0; i <= 1000; i++ {
			x := test.min + (test.max-test.min)*float64(i)/1000
			got := UintToFloat(FloatToUint(x, test.min, test.max, test.bits), test.min, test.max, test.bits)
			if math.Abs(got-x) > step {
				t.Fatalf("[%v, %v]/%d: %v round trips to %v", test.min, test.max, test.bits, x, got)
			}
		}
		if got := FloatToUint(test.max+1, test.min, test.max, test.bits); got != uint32(1)<<test.bits-1 {
			t.Errorf("above range: %d", got)
		}
		if got := FloatToUint(test.min-1, test.min, test.max, test.bits); got != 0 {
			t.Errorf("below range: %d", got)
		}
	}
}
