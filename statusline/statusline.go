// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package statusline prints the state of motors on a single terminal line
// using ANSI color codes.
//
// Each refresh rewrites the line in place, so it can be called every few
// control cycles without scrolling the terminal.
package statusline

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"

	"github.com/GermanBionicSystems/motors/motor"
)

// Opts represents the options available for the status line.
type Opts struct {
	// W defaults to a colorable stdout.
	W io.Writer
	// Width is the number of cells of each effort bar. Defaults to 10.
	Width   int
	Palette *ansi256.Palette

	_ struct{}
}

// Row is the state of one motor.
type Row struct {
	Name      string
	Theta     float64 // rad
	Omega     float64 // rad/s
	Effort    float64 // command as a fraction of full scale, -1 to 1.
	Connected bool
}

// MotorRow returns the row describing m.
func MotorRow(name string, m motor.Motor) Row {
	return Row{
		Name:      name,
		Theta:     m.GetTheta(),
		Omega:     m.GetOmega(),
		Effort:    float64(m.Output()) / motor.MotorRange,
		Connected: m.Connected(),
	}
}

var (
	offColor  = color.NRGBA{0x30, 0x30, 0x30, 0xFF}
	deadColor = color.NRGBA{0xFF, 0x00, 0xFF, 0xFF}
)

// effortColor goes from green at rest to red at full scale.
func effortColor(e float64) color.NRGBA {
	e = math.Min(math.Abs(e), 1)
	return color.NRGBA{R: byte(255 * e), G: byte(255 * (1 - e)), A: 0xFF}
}

// Dev writes the status line.
type Dev struct {
	w       io.Writer
	width   int
	palette ansi256.Palette

	buf bytes.Buffer
}

// New returns a Dev writing to opts.W.
func New(opts *Opts) *Dev {
	o := Opts{}
	if opts != nil {
		o = *opts
	}
	if o.W == nil {
		o.W = colorable.NewColorableStdout()
	}
	if o.Width <= 0 {
		o.Width = 10
	}
	p := o.Palette
	if p == nil {
		p = ansi256.Default
	}
	return &Dev{w: o.W, width: o.Width, palette: *p}
}

func (d *Dev) String() string {
	return "StatusLine"
}

// Halt implements conn.Resource.
//
// It ends the line and resets the terminal colors.
func (d *Dev) Halt() error {
	_, err := io.WriteString(d.w, "\n\033[0m")
	return err
}

// Refresh rewrites the line with rows.
func (d *Dev) Refresh(rows []Row) error {
	d.buf.Reset()
	_, _ = d.buf.WriteString("\r\033[0m")
	for i, r := range rows {
		if i != 0 {
			_, _ = d.buf.WriteString(" | ")
		}
		if !r.Connected {
			_, _ = io.WriteString(&d.buf, d.palette.Block(deadColor))
			_, _ = fmt.Fprintf(&d.buf, "\033[0m %s offline", r.Name)
			continue
		}
		_, _ = fmt.Fprintf(&d.buf, "%s θ=%+7.3f ω=%+8.2f ", r.Name, r.Theta, r.Omega)
		d.bar(r.Effort)
	}
	_, _ = d.buf.WriteString("\033[0m\033[K")
	_, err := d.buf.WriteTo(d.w)
	return err
}

func (d *Dev) bar(effort float64) {
	n := int(math.Round(math.Min(math.Abs(effort), 1) * float64(d.width)))
	on := d.palette.Block(effortColor(effort))
	off := d.palette.Block(offColor)
	sign := "+"
	if effort < 0 {
		sign = "-"
	}
	_, _ = d.buf.WriteString(sign)
	for i := range d.width {
		if i < n {
			_, _ = io.WriteString(&d.buf, on)
		} else {
			_, _ = io.WriteString(&d.buf, off)
		}
	}
	_, _ = d.buf.WriteString("\033[0m")
}

var _ fmt.Stringer = &Dev{}
