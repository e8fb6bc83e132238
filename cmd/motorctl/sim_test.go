// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"image/png"
	"math"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/GermanBionicSystems/motors/servoplot"
)

func TestSimulate(t *testing.T) {
	cfg := defaultConfig()
	tr, err := simulate(cfg, &simOpts{Target: math.Pi / 2, Duration: 2 * time.Second}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	// One sample per control cycle at 500 Hz.
	if n := len(tr.Samples); n != 1000 {
		t.Fatalf("got %d samples", n)
	}
	last := tr.Samples[len(tr.Samples)-1]
	if !last.Hold {
		t.Fatal("servo should hold the target")
	}
	if d := math.Abs(last.Theta - math.Pi/2); d > 1e-2 {
		t.Fatalf("theta = %v", last.Theta)
	}
	var buf bytes.Buffer
	if err := servoplot.Render(&buf, tr, &servoplot.Opts{Width: 320, Height: 200, FontSize: 10}); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 200 {
		t.Fatalf("bounds = %v", b)
	}
}

func TestSimulateJam(t *testing.T) {
	cfg := defaultConfig()
	tr, err := simulate(cfg, &simOpts{Target: 4 * math.Pi, Duration: time.Second, JamAt: 200 * time.Millisecond}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatal(err)
	}
	last := tr.Samples[len(tr.Samples)-1]
	if math.Abs(last.Theta-4*math.Pi) < 1 {
		t.Fatalf("stalled servo reached %v", last.Theta)
	}
}

func TestSimulateInvalid(t *testing.T) {
	cfg := defaultConfig()
	cfg.Servo.MaxSpeed = 0
	if _, err := simulate(cfg, &simOpts{Duration: time.Second}, zaptest.NewLogger(t)); err == nil {
		t.Fatal("expected error")
	}
}
