// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// motorctl drives and inspects CAN bus motors.
//
//	motorctl sim -out servo.png       simulate a servo step and plot it
//	motorctl watch                    print the feedback of motors on a bus
//	motorctl calibrate                run the steering alignment
//
// Settings are read from the YAML file given with -config, then overridden
// by MOTORCTL_* environment variables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const (
	flagConfig = "config"
	flagDebug  = "debug"
)

type app struct {
	logger *zap.Logger
	cfg    *Config
}

func (a *app) before(c *cli.Context) error {
	var err error
	if c.Bool(flagDebug) {
		a.logger, err = zap.NewDevelopment()
	} else {
		a.logger, err = zap.NewProduction()
	}
	if err != nil {
		return err
	}
	a.cfg, err = loadConfig(c.String(flagConfig))
	return err
}

func (a *app) after(*cli.Context) error {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	return nil
}

func newApp() *cli.App {
	a := &app{}
	return &cli.App{
		Name:  "motorctl",
		Usage: "drive and inspect CAN bus motors",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
				EnvVars: []string{"MOTORCTL_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: a.before,
		After:  a.after,
		Commands: []*cli.Command{
			a.simCommand(),
			a.watchCommand(),
			a.calibrateCommand(),
		},
	}
}

func mainImpl() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return newApp().RunContext(ctx, os.Args)
}

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintf(os.Stderr, "motorctl: %s.\n", err)
		os.Exit(1)
	}
}
