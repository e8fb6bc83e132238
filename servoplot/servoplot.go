// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package servoplot renders the trace of a servo run as a PNG chart.
//
// The upper panel shows the target and measured shaft angle, the lower panel
// the motor command. Cycles spent holding are shaded.
package servoplot

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/GermanBionicSystems/motors/motor"
	"github.com/GermanBionicSystems/motors/servo"
)

// ErrEmptyTrace is returned when rendering a trace without samples.
var ErrEmptyTrace = errors.New("servoplot: empty trace")

// Sample is the servo state at one control cycle.
type Sample struct {
	T      time.Duration
	Target float64
	Theta  float64
	Output int16
	Hold   bool
}

// SampleOf returns the current state of s.
func SampleOf(t time.Duration, s *servo.Servo) Sample {
	return Sample{
		T:      t,
		Target: s.GetTarget(),
		Theta:  s.GetTheta(),
		Output: s.Motor().Output(),
		Hold:   s.Holding(),
	}
}

// Trace is a sequence of samples in time order.
type Trace struct {
	Title   string
	Samples []Sample
}

// Add appends a sample.
func (t *Trace) Add(s Sample) {
	t.Samples = append(t.Samples, s)
}

// Opts holds the rendering options.
type Opts struct {
	Width  int
	Height int
	// FontSize is in points. Defaults to 12.
	FontSize float64
}

// DefaultOpts is the default chart size.
var DefaultOpts = Opts{Width: 1200, Height: 600, FontSize: 12}

const margin = 50

type panel struct {
	x, y, w, h float64
	lo, hi     float64
	t0, t1     float64
}

func (p *panel) px(t float64) float64 {
	if p.t1 == p.t0 {
		return p.x
	}
	return p.x + (t-p.t0)/(p.t1-p.t0)*p.w
}

func (p *panel) py(v float64) float64 {
	return p.y + p.h - (v-p.lo)/(p.hi-p.lo)*p.h
}

// Render draws tr as a PNG into w.
func Render(w io.Writer, tr *Trace, opts *Opts) error {
	if tr == nil || len(tr.Samples) == 0 {
		return ErrEmptyTrace
	}
	o := DefaultOpts
	if opts != nil {
		if opts.Width > 0 {
			o.Width = opts.Width
		}
		if opts.Height > 0 {
			o.Height = opts.Height
		}
		if opts.FontSize > 0 {
			o.FontSize = opts.FontSize
		}
	}
	if o.Width <= 2*margin || o.Height <= 3*margin {
		return fmt.Errorf("servoplot: %dx%d is too small", o.Width, o.Height)
	}
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return err
	}

	dc := gg.NewContext(o.Width, o.Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(truetype.NewFace(f, &truetype.Options{Size: o.FontSize}))

	s := tr.Samples
	t0, t1 := s[0].T.Seconds(), s[len(s)-1].T.Seconds()
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range s {
		lo = math.Min(lo, math.Min(x.Target, x.Theta))
		hi = math.Max(hi, math.Max(x.Target, x.Theta))
	}
	if pad := 0.05 * (hi - lo); pad > 0 {
		lo, hi = lo-pad, hi+pad
	} else {
		lo, hi = lo-1, hi+1
	}
	pw := float64(o.Width - 2*margin)
	ph := float64(o.Height-3*margin) / 2
	angle := panel{x: margin, y: margin, w: pw, h: ph, lo: lo, hi: hi, t0: t0, t1: t1}
	out := panel{x: margin, y: 2*margin + ph, w: pw, h: ph, lo: -motor.MotorRange, hi: motor.MotorRange, t0: t0, t1: t1}

	shadeHold(dc, &angle, s)
	shadeHold(dc, &out, s)
	frame(dc, &angle, "θ (rad)", fmt.Sprintf("%.2f", lo), fmt.Sprintf("%.2f", hi))
	frame(dc, &out, "command", fmt.Sprintf("%d", -motor.MotorRange), fmt.Sprintf("%d", motor.MotorRange))

	dc.SetLineWidth(1.5)
	curve(dc, &angle, s, func(x Sample) float64 { return x.Target })
	dc.SetRGB(0.1, 0.3, 0.9)
	dc.Stroke()
	curve(dc, &angle, s, func(x Sample) float64 { return x.Theta })
	dc.SetRGB(0, 0, 0)
	dc.Stroke()
	curve(dc, &out, s, func(x Sample) float64 { return float64(x.Output) })
	dc.SetRGB(0.85, 0.1, 0.1)
	dc.Stroke()

	dc.SetRGB(0, 0, 0)
	if tr.Title != "" {
		dc.DrawStringAnchored(tr.Title, float64(o.Width)/2, margin/2, 0.5, 0.5)
	}
	dc.DrawStringAnchored(fmt.Sprintf("%.3fs", t0), margin, float64(o.Height)-margin/2, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.3fs", t1), float64(o.Width-margin), float64(o.Height)-margin/2, 1, 0.5)
	return dc.EncodePNG(w)
}

func shadeHold(dc *gg.Context, p *panel, s []Sample) {
	dc.SetRGBA(0.2, 0.8, 0.2, 0.15)
	for i := 0; i < len(s)-1; i++ {
		if !s[i].Hold {
			continue
		}
		x0, x1 := p.px(s[i].T.Seconds()), p.px(s[i+1].T.Seconds())
		dc.DrawRectangle(x0, p.y, x1-x0, p.h)
	}
	dc.Fill()
}

func frame(dc *gg.Context, p *panel, label, lo, hi string) {
	dc.SetRGB(0.4, 0.4, 0.4)
	dc.SetLineWidth(1)
	dc.DrawRectangle(p.x, p.y, p.w, p.h)
	dc.Stroke()
	if p.lo < 0 && p.hi > 0 {
		dc.SetDash(4, 4)
		dc.DrawLine(p.x, p.py(0), p.x+p.w, p.py(0))
		dc.Stroke()
		dc.SetDash()
	}
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(label, p.x+4, p.y+4, 0, 1)
	dc.DrawStringAnchored(hi, p.x-4, p.y, 1, 0.5)
	dc.DrawStringAnchored(lo, p.x-4, p.y+p.h, 1, 0.5)
}

func curve(dc *gg.Context, p *panel, s []Sample, v func(Sample) float64) {
	dc.NewSubPath()
	for i, x := range s {
		px, py := p.px(x.T.Seconds()), p.py(v(x))
		if i == 0 {
			dc.MoveTo(px, py)
		} else {
			dc.LineTo(px, py)
		}
	}
}
