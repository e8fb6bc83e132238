// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package common

import (
	"math"
	"testing"
)

func TestWrap(t *testing.T) {
	var tests = []struct {
		v, lo, hi float64
		want      float64
	}{
		{v: 1, lo: 0, hi: 2 * math.Pi, want: 1},
		{v: 2*math.Pi + 1, lo: 0, hi: 2 * math.Pi, want: 1},
		{v: -1, lo: 0, hi: 2 * math.Pi, want: 2*math.Pi - 1},
		{v: 4, lo: -math.Pi, hi: math.Pi, want: 4 - 2*math.Pi},
		{v: -4, lo: -math.Pi, hi: math.Pi, want: 2*math.Pi - 4},
		{v: 2 * math.Pi, lo: 0, hi: 2 * math.Pi, want: 0},
		{v: 0, lo: 0, hi: 2 * math.Pi, want: 0},
	}
	for _, test := range tests {
		got := Wrap(test.v, test.lo, test.hi)
		if math.Abs(got-test.want) > 1e-12 {
			t.Errorf("Wrap(%v, %v, %v) = %v, want %v", test.v, test.lo, test.hi, got, test.want)
		}
		if got < test.lo || got >= test.hi {
			t.Errorf("Wrap(%v, %v, %v) = %v outside range", test.v, test.lo, test.hi, got)
		}
	}
}

func TestClip(t *testing.T) {
	if got := Clip(5, -3, 3); got != 3 {
		t.Errorf("Clip(5) = %d", got)
	}
	if got := Clip(-5, -3, 3); got != -3 {
		t.Errorf("Clip(-5) = %d", got)
	}
	if got := Clip(1.5, -3, 3); got != 1.5 {
		t.Errorf("Clip(1.5) = %v", got)
	}
}

func TestSign(t *testing.T) {
	if Sign(2, 0) != 1 || Sign(-2, 0) != -1 || Sign(0, 7) != 7 {
		t.Fatal("unexpected sign")
	}
}

func TestBoolEdgeDetector(t *testing.T) {
	d := NewBoolEdgeDetector(false)
	var tests = []struct {
		in            bool
		edge, pos, ng bool
	}{
		{in: false},
		{in: true, edge: true, pos: true},
		{in: true},
		{in: false, edge: true, ng: true},
		{in: false},
	}
	for i, test := range tests {
		d.Input(test.in)
		if d.Edge() != test.edge || d.PosEdge() != test.pos || d.NegEdge() != test.ng {
			t.Errorf("#%d: edge=%t pos=%t neg=%t", i, d.Edge(), d.PosEdge(), d.NegEdge())
		}
	}
}

func TestFloatEdgeDetector(t *testing.T) {
	d := NewFloatEdgeDetector(0, math.Pi)
	d.Input(1)
	if d.Edge() {
		t.Fatal("small step reported as edge")
	}
	d.Input(6.2)
	if !d.PosEdge() {
		t.Fatal("expected positive edge")
	}
	d.Input(0.1)
	if !d.NegEdge() || d.PosEdge() {
		t.Fatal("expected negative edge")
	}
}
