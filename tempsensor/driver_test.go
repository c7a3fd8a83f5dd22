// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tempsensor

import (
	"errors"

	"github.com/GermanBionicSystems/owtemp/ds18b20"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/physic"
)

// call is one operation recorded by fakeDriver.
type call struct {
	Op   string
	Addr onewire.Address
	Cfg  [3]byte
	Wait bool
}

// fakeDriver records every call and answers from canned data.
type fakeDriver struct {
	found   []onewire.Address
	scanErr error
	temps   map[onewire.Address]physic.Temperature
	failing map[onewire.Address]bool // WriteScratchpad fails
	closed  bool
	calls   []call
}

func (f *fakeDriver) Scan(buf []onewire.Address) (int, error) {
	f.calls = append(f.calls, call{Op: "scan"})
	copy(buf, f.found)
	return len(f.found), f.scanErr
}

func (f *fakeDriver) TriggerConversion(addr onewire.Address, wait bool) error {
	f.calls = append(f.calls, call{Op: "convert", Addr: addr, Wait: wait})
	return nil
}

func (f *fakeDriver) ReadTemperature(addr onewire.Address) (physic.Temperature, error) {
	f.calls = append(f.calls, call{Op: "read", Addr: addr})
	t, ok := f.temps[addr]
	if !ok {
		return ds18b20.Disconnected, errors.New("fake: no such device")
	}
	return t, nil
}

func (f *fakeDriver) WriteScratchpad(addr onewire.Address, cfg [3]byte) error {
	f.calls = append(f.calls, call{Op: "write", Addr: addr, Cfg: cfg})
	if f.failing[addr] {
		return errors.New("fake: write failed")
	}
	return nil
}

func (f *fakeDriver) CopyScratchpad(addr onewire.Address) error {
	f.calls = append(f.calls, call{Op: "copy", Addr: addr})
	return nil
}

func (f *fakeDriver) Close() error {
	f.closed = true
	return nil
}

func (f *fakeDriver) String() string {
	return "fake"
}

func (f *fakeDriver) reset() {
	f.calls = nil
}

var _ Driver = &fakeDriver{}
