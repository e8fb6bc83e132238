// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/physic"

	"github.com/GermanBionicSystems/motors/motor"
)

func writeConfig(t *testing.T, s string) string {
	p := filepath.Join(t.TempDir(), "motorctl.yaml")
	if err := os.WriteFile(p, []byte(s), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(defaultConfig(), cfg); diff != "" {
		t.Fatalf("unexpected config (-want +got):\n%s", diff)
	}
	if r := cfg.Rate(); r != 500*physic.Hertz {
		t.Fatalf("Rate() = %s", r)
	}
}

func TestLoadConfigFile(t *testing.T) {
	p := writeConfig(t, `
bus: vcan1
rate_hz: 1000
servo:
  motor:
    name: arm
    model: M2006
    rx_id: 0x203
  max_speed: 2
watch:
  - name: arm
    model: M2006
    rx_id: 0x203
  - name: yaw
    model: M6020
    rx_id: 0x206
`)
	cfg, err := loadConfig(p)
	if err != nil {
		t.Fatal(err)
	}
	want := defaultConfig()
	want.Bus = "vcan1"
	want.RateHz = 1000
	want.Servo.Motor = MotorConfig{Name: "arm", Model: string(motor.M2006), RxID: 0x203}
	want.Servo.MaxSpeed = 2
	want.Watch = []MotorConfig{
		{Name: "arm", Model: string(motor.M2006), RxID: 0x203},
		{Name: "yaw", Model: string(motor.M6020), RxID: 0x206},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("unexpected config (-want +got):\n%s", diff)
	}
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("MOTORCTL_BUS", "can2")
	t.Setenv("MOTORCTL_RATE_HZ", "250")
	t.Setenv("MOTORCTL_ALIGN_PIN", "GPIO27")
	p := writeConfig(t, "bus: vcan1\n")
	cfg, err := loadConfig(p)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Bus != "can2" || cfg.RateHz != 250 || cfg.Steering.Pin != "GPIO27" {
		t.Fatalf("environment not applied: bus=%q rate=%v pin=%q", cfg.Bus, cfg.RateHz, cfg.Steering.Pin)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	data := []struct {
		name string
		yaml string
		errs int
		is   error
	}{
		{"unknown field", "buss: can0\n", 1, nil},
		{"bad model", "servo:\n  motor:\n    name: x\n    model: M9999\n    rx_id: 0x201\n", 1, motor.ErrInvalidModel},
		{"bad rx id", "watch:\n  - name: x\n    model: M3508\n    rx_id: 0x300\n", 1, motor.ErrInvalidRxID},
		{"aggregated", "rate_hz: -1\nservo:\n  jam_effort: 2\n  motor:\n    name: \"\"\n    model: M3508\n    rx_id: 0x201\n", 3, nil},
	}
	for i, line := range data {
		t.Run(line.name, func(t *testing.T) {
			_, err := loadConfig(writeConfig(t, line.yaml))
			if err == nil {
				t.Fatalf("#%d: expected error", i)
			}
			if n := len(multierr.Errors(err)); n != line.errs {
				t.Fatalf("#%d: got %d errors: %v", i, n, err)
			}
			if line.is != nil && !errors.Is(err, line.is) {
				t.Fatalf("#%d: got %v, want %v", i, err, line.is)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("got %v", err)
	}
}
