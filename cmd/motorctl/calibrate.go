// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/motors/loop"
	"github.com/GermanBionicSystems/motors/motor"
	"github.com/GermanBionicSystems/motors/servo"
)

func (a *app) calibrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "calibrate",
		Usage: "turn the steering motor until the alignment pin fires, then hold zero",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "give up searching after this long"},
			&cli.DurationFlag{Name: "hold", Value: 2 * time.Second, Usage: "hold the zero this long before exiting"},
		},
		Action: func(c *cli.Context) error {
			return a.calibrate(c.Context, c.Duration("timeout"), c.Duration("hold"))
		},
	}
}

func (a *app) calibrate(ctx context.Context, timeout, hold time.Duration) error {
	sc := &a.cfg.Steering
	if _, err := host.Init(); err != nil {
		return err
	}
	pin := gpioreg.ByName(sc.Pin)
	if pin == nil {
		return fmt.Errorf("no gpio pin %q", sc.Pin)
	}
	pull, active := gpio.PullDown, gpio.High
	if sc.ActiveLow {
		pull, active = gpio.PullUp, gpio.Low
	}
	if err := pin.In(pull, gpio.NoEdge); err != nil {
		return err
	}

	bus, err := openBus(a.cfg.Bus, a.logger)
	if err != nil {
		return err
	}
	m, err := sc.Motor.open(bus, a.logger)
	if err != nil {
		bus.Close()
		return err
	}
	st, err := servo.NewSteering(&servo.SteeringConfig{
		Config:          sc.servoConfig(m, a.logger),
		TestSpeed:       sc.TestSpeed,
		CalibrateOffset: sc.CalibrateOffset,
		AlignFunc:       servo.PinAligned(pin, active),
	})
	if err != nil {
		bus.Close()
		return err
	}

	l, err := loop.New(&loop.Opts{Rate: a.cfg.Rate(), Logger: a.logger})
	if err != nil {
		bus.Close()
		return err
	}
	aligned := make(chan struct{})
	done := aligned
	l.Add(loop.Func(func() {
		if st.AlignUpdate() && aligned != nil {
			close(aligned)
			aligned = nil
		}
	}))
	if err := l.AddGroup(m); err != nil {
		bus.Close()
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	// The bus outlives the loop so the final zero command goes out.
	busCtx, closeBus := context.WithCancel(context.Background())
	serveBus(busCtx, g, bus)
	g.Go(func() error {
		defer closeBus()
		err := l.Run(ctx)
		_ = m.Halt()
		if err := motor.TransmitOutput(m); err != nil {
			a.logger.Warn("halting motor", zap.Error(err))
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		defer cancel()
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(timeout):
			return fmt.Errorf("alignment not found within %s", timeout)
		case <-done:
		}
		a.logger.Info("holding zero", zap.Duration("for", hold))
		select {
		case <-ctx.Done():
		case <-time.After(hold):
		}
		return nil
	})
	return g.Wait()
}
