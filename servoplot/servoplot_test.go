// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package servoplot

import (
	"bytes"
	"errors"
	"image/png"
	"math"
	"testing"
	"time"
)

func testTrace() *Trace {
	tr := &Trace{Title: "step"}
	for i := range 200 {
		th := math.Min(float64(i)/100, 1)
		tr.Add(Sample{
			T:      time.Duration(i) * time.Millisecond,
			Target: 1,
			Theta:  th,
			Output: int16(20000 * (1 - th)),
			Hold:   th > 0.95,
		})
	}
	return tr
}

func TestRender(t *testing.T) {
	for _, test := range []struct {
		name         string
		opts         *Opts
		wantW, wantH int
	}{
		{"default", nil, 1200, 600},
		{"small", &Opts{Width: 320, Height: 240, FontSize: 8}, 320, 240},
	} {
		t.Run(test.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Render(&buf, testTrace(), test.opts); err != nil {
				t.Fatal(err)
			}
			img, err := png.Decode(&buf)
			if err != nil {
				t.Fatal(err)
			}
			if b := img.Bounds(); b.Dx() != test.wantW || b.Dy() != test.wantH {
				t.Errorf("bounds = %v", b)
			}
		})
	}
}

func TestRenderErrors(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, &Trace{}, nil); !errors.Is(err, ErrEmptyTrace) {
		t.Errorf("empty trace: %v", err)
	}
	if err := Render(&buf, testTrace(), &Opts{Width: 10, Height: 10}); err == nil {
		t.Error("expected error for tiny chart")
	}
	if buf.Len() != 0 {
		t.Error("wrote output on error")
	}
}

func TestRenderFlat(t *testing.T) {
	tr := &Trace{Samples: []Sample{{Target: 2, Theta: 2}}}
	var buf bytes.Buffer
	if err := Render(&buf, tr, &Opts{Width: 200, Height: 200}); err != nil {
		t.Fatal(err)
	}
}
