// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/GermanBionicSystems/motors/canbus/canbustest"
	"github.com/GermanBionicSystems/motors/loop"
	"github.com/GermanBionicSystems/motors/motor/motortest"
	"github.com/GermanBionicSystems/motors/servo"
	"github.com/GermanBionicSystems/motors/servoplot"
)

type simOpts struct {
	Target   float64
	Duration time.Duration
	// JamAt stalls the motor after this long; 0 never does.
	JamAt time.Duration
}

// simulate runs the configured servo against a simulated motor.
func simulate(cfg *Config, o *simOpts, logger *zap.Logger) (*servoplot.Trace, error) {
	mock := clock.NewMock()
	bus := &canbustest.Record{Name: "sim"}
	m, err := cfg.Servo.Motor.open(bus, logger)
	if err != nil {
		return nil, err
	}
	plant, err := motortest.NewPlant(bus, m.Model(), m.RxID())
	if err != nil {
		return nil, err
	}
	sc := cfg.Servo.servoConfig(m, logger)
	sc.Clock = mock
	s, err := servo.New(&sc)
	if err != nil {
		return nil, err
	}
	if cfg.Servo.JamEffort > 0 {
		err := s.RegisterJamCallback(func(s *servo.Servo, j servo.Jam) {
			logger.Warn("jam detected", zap.Float64("theta", s.GetTheta()), zap.Float64("effort", j.Effort))
		}, cfg.Servo.JamEffort, cfg.Servo.JamWindow)
		if err != nil {
			return nil, err
		}
	}
	l, err := loop.New(&loop.Opts{Rate: cfg.Rate(), Clock: mock, Logger: logger})
	if err != nil {
		return nil, err
	}
	tr := &servoplot.Trace{Title: fmt.Sprintf("%s %s -> %.3f rad", m.Model(), cfg.Servo.Motor.Name, o.Target)}
	start := mock.Now()
	l.Add(s, loop.Func(func() {
		tr.Add(servoplot.SampleOf(mock.Since(start), s))
	}))
	if err := l.AddGroup(m); err != nil {
		return nil, err
	}

	plant.Step(l.Period())
	s.SetTarget(o.Target, true)
	for mock.Since(start) < o.Duration {
		if o.JamAt > 0 && mock.Since(start) >= o.JamAt {
			plant.Stalled = true
		}
		if err := l.Step(); err != nil {
			return nil, err
		}
		plant.Step(l.Period())
		mock.Add(l.Period())
	}
	logger.Info("simulation done",
		zap.Uint64("cycles", l.Cycles()),
		zap.Float64("theta", s.GetTheta()),
		zap.Float64("error", math.Abs(s.GetThetaDelta(o.Target))),
		zap.Bool("holding", s.Holding()))
	return tr, nil
}

func (a *app) simCommand() *cli.Command {
	return &cli.Command{
		Name:  "sim",
		Usage: "simulate a servo step response and plot it",
		Flags: []cli.Flag{
			&cli.Float64Flag{Name: "target", Value: math.Pi / 2, Usage: "target shaft angle in rad"},
			&cli.DurationFlag{Name: "duration", Value: 2 * time.Second, Usage: "simulated time"},
			&cli.DurationFlag{Name: "jam-at", Usage: "stall the motor after this simulated time"},
			&cli.StringFlag{Name: "out", Value: "servo.png", Usage: "write the chart to `FILE`, - for stdout"},
		},
		Action: func(c *cli.Context) error {
			tr, err := simulate(a.cfg, &simOpts{
				Target:   c.Float64("target"),
				Duration: c.Duration("duration"),
				JamAt:    c.Duration("jam-at"),
			}, a.logger)
			if err != nil {
				return err
			}
			var w io.Writer = os.Stdout
			if out := c.String("out"); out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			return servoplot.Render(w, tr, nil)
		},
	}
}
