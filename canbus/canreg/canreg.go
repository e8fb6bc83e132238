// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package canreg is a registry of CAN buses available on the host.
//
// Transports register an Opener per interface; applications open a bus by
// name or alias without depending on the transport package.
package canreg

import (
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/GermanBionicSystems/motors/canbus"
)

// Opener opens a handle to a CAN bus.
type Opener func() (canbus.BusCloser, error)

// Ref references a registered CAN bus.
type Ref struct {
	// Name of the bus, e.g. "can0". It must be unique across the host.
	Name string
	// Aliases are alternative names leading to the same bus, e.g. "chassis".
	Aliases []string
	// Open is the factory to open a handle to this bus.
	Open Opener
}

// Open opens a bus by its name or an alias.
//
// Specify the empty string "" to get the default bus: the lowest numbered
// interface ("can0" before "can1"), or the lexically first name when no
// name ends with a number.
func Open(name string) (canbus.BusCloser, error) {
	mu.Lock()
	if len(byName) == 0 {
		mu.Unlock()
		return nil, errors.New("canreg: no bus registered; did you forget to call socketcan.RegisterAll()")
	}
	var r *Ref
	if name == "" {
		r = defaultRef()
	} else if r = byName[name]; r == nil {
		r = byAlias[name]
	}
	mu.Unlock()
	if r == nil {
		return nil, errors.New("canreg: can't open unknown bus: " + strconv.Quote(name))
	}
	return r.Open()
}

// All returns a copy of every registered reference, sorted by name.
func All() []*Ref {
	mu.Lock()
	defer mu.Unlock()
	out := make([]*Ref, 0, len(byName))
	for _, r := range byName {
		out = append(out, &Ref{Name: r.Name, Aliases: append([]string(nil), r.Aliases...), Open: r.Open})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Register registers a bus.
//
// Registering the same name or alias twice is an error.
func Register(name string, aliases []string, o Opener) error {
	if err := checkName(name, "name"); err != nil {
		return err
	}
	if o == nil {
		return errors.New("canreg: can't register bus " + strconv.Quote(name) + " with nil Opener")
	}
	for _, alias := range aliases {
		if err := checkName(alias, "alias"); err != nil {
			return err
		}
		if alias == name {
			return errors.New("canreg: can't register bus " + strconv.Quote(name) + " with an alias the same as the bus name")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for _, n := range append([]string{name}, aliases...) {
		if byName[n] != nil || byAlias[n] != nil {
			return errors.New("canreg: can't register bus " + strconv.Quote(name) + "; " + strconv.Quote(n) + " is already taken")
		}
	}
	r := &Ref{Name: name, Aliases: append([]string(nil), aliases...), Open: o}
	byName[name] = r
	for _, alias := range aliases {
		byAlias[alias] = r
	}
	return nil
}

// Unregister removes a previously registered bus, e.g. when a USB CAN
// adapter is unplugged.
func Unregister(name string) error {
	mu.Lock()
	defer mu.Unlock()
	r := byName[name]
	if r == nil {
		return errors.New("canreg: can't unregister unknown bus name " + strconv.Quote(name))
	}
	delete(byName, name)
	for _, alias := range r.Aliases {
		delete(byAlias, alias)
	}
	return nil
}

//

var (
	mu      sync.Mutex
	byName  = map[string]*Ref{}
	byAlias = map[string]*Ref{}
)

func checkName(n, kind string) error {
	if n == "" {
		return errors.New("canreg: can't register a bus with an empty " + kind)
	}
	if _, err := strconv.Atoi(n); err == nil {
		return errors.New("canreg: can't register " + kind + " " + strconv.Quote(n) + " being only a number")
	}
	if strings.Contains(n, ":") {
		return errors.New("canreg: can't register " + kind + " " + strconv.Quote(n) + " containing ':'")
	}
	return nil
}

// defaultRef must be called with mu held.
func defaultRef() *Ref {
	var best *Ref
	bestNum := -1
	for n, r := range byName {
		num, ok := trailingNumber(n)
		switch {
		case best == nil:
		case ok && (bestNum < 0 || num < bestNum):
		case !ok && bestNum < 0 && n < best.Name:
		case ok && num == bestNum && n < best.Name:
		default:
			continue
		}
		best = r
		if ok {
			bestNum = num
		} else {
			bestNum = -1
		}
	}
	return best
}

func trailingNumber(s string) (int, bool) {
	i := len(s)
	for i > 0 && s[i-1] >= '0' && s[i-1] <= '9' {
		i--
	}
	if i == len(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s[i:])
	return n, err == nil
}
