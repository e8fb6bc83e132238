// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package loop runs the periodic control task: every period it computes the
// command of each controller, then sends one frame per motor group.
package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/motors/motor"
)

// DefaultRate is the control rate used when Opts.Rate is zero.
const DefaultRate = 500 * physic.Hertz

// ErrInvalidRate is returned for a rate that isn't positive or is faster
// than 10kHz.
var ErrInvalidRate = errors.New("loop: invalid rate")

// Calculator computes the next command of a controller.
type Calculator interface {
	CalcOutput()
}

// Func adapts a function to Calculator.
type Func func()

// CalcOutput implements Calculator.
func (f Func) CalcOutput() {
	f()
}

// Opts holds the loop options.
type Opts struct {
	Rate   physic.Frequency
	Clock  clock.Clock
	Logger *zap.Logger
}

// Loop is a fixed rate control task.
type Loop struct {
	period time.Duration
	clock  clock.Clock
	logger *zap.Logger

	mu     sync.Mutex
	calcs  []Calculator
	groups [][]motor.Motor
	cycles uint64
}

// New returns an empty loop.
func New(opts *Opts) (*Loop, error) {
	o := Opts{}
	if opts != nil {
		o = *opts
	}
	if o.Rate == 0 {
		o.Rate = DefaultRate
	}
	if o.Rate < 0 || o.Rate > 10*physic.KiloHertz {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRate, o.Rate)
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return &Loop{period: o.Rate.Period(), clock: o.Clock, logger: o.Logger}, nil
}

// Period returns the control period.
func (l *Loop) Period() time.Duration {
	return l.period
}

// Add registers controllers, stepped in order.
func (l *Loop) Add(c ...Calculator) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calcs = append(l.calcs, c...)
}

// AddGroup registers motors transmitted together in one frame.
//
// Every motor of a tx group must be in the same call, otherwise the missing
// ones are commanded to zero.
func (l *Loop) AddGroup(motors ...motor.Motor) error {
	if err := motor.CheckGroup(motors...); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, g := range l.groups {
		if g[0].Bus() == motors[0].Bus() && g[0].TxID() == motors[0].TxID() {
			return fmt.Errorf("%w: tx group 0x%03x on %s added twice", motor.ErrProtocol, g[0].TxID(), g[0].Bus())
		}
	}
	l.groups = append(l.groups, append([]motor.Motor(nil), motors...))
	return nil
}

// Step runs one control cycle.
//
// Transmission errors are logged and returned together; every group is
// attempted.
func (l *Loop) Step() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.calcs {
		c.CalcOutput()
	}
	var err error
	for _, g := range l.groups {
		if e := motor.TransmitOutput(g...); e != nil {
			l.logger.Warn("transmit failed", zap.Error(e))
			err = multierr.Append(err, e)
		}
	}
	l.cycles++
	return err
}

// Cycles returns the number of completed steps.
func (l *Loop) Cycles() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cycles
}

// Run steps the loop every period until ctx is done.
//
// A cycle that fails to transmit does not stop the loop.
func (l *Loop) Run(ctx context.Context) error {
	t := l.clock.Ticker(l.period)
	defer t.Stop()
	l.logger.Info("control loop started", zap.Duration("period", l.period))
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("control loop stopped", zap.Uint64("cycles", l.Cycles()))
			return ctx.Err()
		case <-t.C:
			_ = l.Step()
		}
	}
}
