// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package loop

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/go-cmp/cmp"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/motors/canbus/canbustest"
	"github.com/GermanBionicSystems/motors/motor"
)

func TestNew(t *testing.T) {
	for _, test := range []struct {
		name       string
		opts       *Opts
		wantPeriod time.Duration
		expectErr  error
	}{
		{name: "default", wantPeriod: 2 * time.Millisecond},
		{name: "1kHz", opts: &Opts{Rate: physic.KiloHertz}, wantPeriod: time.Millisecond},
		{name: "negative", opts: &Opts{Rate: -physic.Hertz}, expectErr: ErrInvalidRate},
		{name: "too fast", opts: &Opts{Rate: 20 * physic.KiloHertz}, expectErr: ErrInvalidRate},
	} {
		t.Run(test.name, func(t *testing.T) {
			l, err := New(test.opts)
			if !errors.Is(err, test.expectErr) {
				t.Fatalf("expected %v, got %v", test.expectErr, err)
			}
			if err == nil && l.Period() != test.wantPeriod {
				t.Errorf("Period() = %s, want %s", l.Period(), test.wantPeriod)
			}
		})
	}
}

func newMotors(t *testing.T, bus *canbustest.Record, ids ...uint32) []motor.Motor {
	t.Helper()
	var out []motor.Motor
	for _, id := range ids {
		m, err := motor.New(bus, motor.M6020, id, nil)
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, m)
	}
	return out
}

func TestAddGroup(t *testing.T) {
	bus := &canbustest.Record{}
	ms := newMotors(t, bus, 0x201, 0x202, 0x205)
	l, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := l.AddGroup(ms[0], ms[2]); !errors.Is(err, motor.ErrProtocol) {
		t.Fatalf("mixed tx groups: %v", err)
	}
	if err := l.AddGroup(); !errors.Is(err, motor.ErrProtocol) {
		t.Fatalf("empty group: %v", err)
	}
	if err := l.AddGroup(ms[0], ms[1]); err != nil {
		t.Fatal(err)
	}
	if err := l.AddGroup(ms[1]); !errors.Is(err, motor.ErrProtocol) {
		t.Fatalf("duplicate group: %v", err)
	}
	if err := l.AddGroup(ms[2]); err != nil {
		t.Fatal(err)
	}
}

func TestStep(t *testing.T) {
	bus := &canbustest.Record{}
	ms := newMotors(t, bus, 0x201, 0x202, 0x205)
	l, err := New(nil)
	if err != nil {
		t.Fatal(err)
	}
	var order []string
	l.Add(
		Func(func() { order = append(order, "a"); ms[0].SetOutput(1) }),
		Func(func() { order = append(order, "b"); ms[2].SetOutput(-1) }),
	)
	if err := l.AddGroup(ms[1], ms[0]); err != nil {
		t.Fatal(err)
	}
	if err := l.AddGroup(ms[2]); err != nil {
		t.Fatal(err)
	}
	if err := l.Step(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, order); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
	want := []canbustest.IO{
		{ID: motor.TxID1, Data: []byte{0, 1, 0, 0, 0, 0, 0, 0}},
		{ID: motor.TxID2, Data: []byte{0xFF, 0xFF, 0, 0, 0, 0, 0, 0}},
	}
	if diff := cmp.Diff(want, bus.Ops); diff != "" {
		t.Errorf("frames (-want +got):\n%s", diff)
	}
	if got := l.Cycles(); got != 1 {
		t.Errorf("Cycles() = %d", got)
	}

	errBus := errors.New("bus off")
	bus.TxErr = errBus
	if err := l.Step(); !errors.Is(err, errBus) {
		t.Fatalf("expected %v, got %v", errBus, err)
	}
	if got := l.Cycles(); got != 2 {
		t.Errorf("Cycles() = %d", got)
	}
}

func TestRun(t *testing.T) {
	mock := clock.NewMock()
	l, err := New(&Opts{Rate: physic.KiloHertz, Clock: mock})
	if err != nil {
		t.Fatal(err)
	}
	calls := 0
	l.Add(Func(func() { calls++ }))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error)
	go func() {
		done <- l.Run(ctx)
	}()
	deadline := time.Now().Add(10 * time.Second)
	for l.Cycles() < 3 {
		if time.Now().After(deadline) {
			t.Fatal("loop not ticking")
		}
		mock.Add(time.Millisecond)
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v", err)
	}
	if uint64(calls) != l.Cycles() {
		t.Errorf("calls = %d, cycles = %d", calls, l.Cycles())
	}
}
