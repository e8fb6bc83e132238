// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GermanBionicSystems/motors/canbus"
	"github.com/GermanBionicSystems/motors/canbus/canreg"
	"github.com/GermanBionicSystems/motors/canbus/socketcan"
)

// waiter is implemented by transports with a background reader.
type waiter interface {
	Wait() error
}

func openBus(name string, logger *zap.Logger) (canbus.BusCloser, error) {
	if err := socketcan.RegisterAll(); err != nil {
		logger.Warn("registering CAN interfaces", zap.Error(err))
	}
	bus, err := canreg.Open(name)
	if err != nil {
		return nil, err
	}
	logger.Info("bus opened", zap.Stringer("bus", bus))
	return bus, nil
}

// serveBus closes bus when ctx is done and reports a reader failure.
func serveBus(ctx context.Context, g *errgroup.Group, bus canbus.BusCloser) {
	g.Go(func() error {
		<-ctx.Done()
		return bus.Close()
	})
	if w, ok := bus.(waiter); ok {
		g.Go(func() error {
			if err := w.Wait(); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		})
	}
}
