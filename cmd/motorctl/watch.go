// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"time"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/GermanBionicSystems/motors/motor"
	"github.com/GermanBionicSystems/motors/statusline"
)

func (a *app) watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "print the feedback of the configured motors",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "interval", Value: 100 * time.Millisecond, Usage: "refresh interval"},
		},
		Action: func(c *cli.Context) error {
			bus, err := openBus(a.cfg.Bus, a.logger)
			if err != nil {
				return err
			}
			names := make([]string, len(a.cfg.Watch))
			motors := make([]motor.Motor, len(a.cfg.Watch))
			for i := range a.cfg.Watch {
				m, err := a.cfg.Watch[i].open(bus, a.logger)
				if err != nil {
					bus.Close()
					return err
				}
				names[i] = a.cfg.Watch[i].Name
				motors[i] = m
			}

			g, ctx := errgroup.WithContext(c.Context)
			serveBus(ctx, g, bus)
			g.Go(func() error {
				d := statusline.New(nil)
				defer d.Halt()
				t := time.NewTicker(c.Duration("interval"))
				defer t.Stop()
				rows := make([]statusline.Row, len(motors))
				for {
					select {
					case <-ctx.Done():
						return nil
					case <-t.C:
						for i, m := range motors {
							rows[i] = statusline.MotorRow(names[i], m)
						}
						if err := d.Refresh(rows); err != nil {
							return err
						}
					}
				}
			})
			return g.Wait()
		},
	}
}
