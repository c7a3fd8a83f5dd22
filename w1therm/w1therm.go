// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package w1therm drives DS18x20 temperature sensors through the Linux
// w1_therm driver and its sysfs attributes.
//
// The kernel bus master is typically w1-gpio, which bit-bangs the 1-wire
// protocol on a GPIO from interrupt context. Conversions on all sensors are
// started with the master's therm_bulk_read attribute and read back from each
// device's temperature attribute.
//
// See https://docs.kernel.org/w1/slaves/w1_therm.html
package w1therm

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/GermanBionicSystems/owtemp/common"
	"github.com/GermanBionicSystems/owtemp/ds18b20"
	"github.com/pkg/errors"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/physic"
)

// Opts contains options to pass to the constructor.
type Opts struct {
	Root   string // directory holding the 1-wire devices
	Master string // bus master directory below Root
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Root:   "/sys/bus/w1/devices",
	Master: "w1_bus_master1",
}

// New returns a driver for the sensors below opts.Master. Empty fields take
// their value from DefaultOpts.
func New(opts *Opts) *Driver {
	o := DefaultOpts
	if opts != nil {
		if opts.Root != "" {
			o.Root = opts.Root
		}
		if opts.Master != "" {
			o.Master = opts.Master
		}
	}
	return &Driver{root: o.Root, master: filepath.Join(o.Root, o.Master)}
}

// Driver accesses DS18x20 devices through sysfs.
type Driver struct {
	root   string
	master string
}

func (d *Driver) String() string {
	return "w1therm{" + d.master + "}"
}

// Scan lists the DS18B20 and DS18S20 devices known to the bus master in buf
// and returns how many there are, which may exceed len(buf).
func (d *Driver) Scan(buf []onewire.Address) (int, error) {
	raw, err := os.ReadFile(filepath.Join(d.master, "w1_master_slaves"))
	if err != nil {
		return 0, errors.Wrap(err, "w1therm: listing devices")
	}
	n := 0
	for _, line := range strings.Split(string(raw), "\n") {
		a, err := ParseName(strings.TrimSpace(line))
		if err != nil {
			// "not found." when the bus is empty, or another kind of device.
			continue
		}
		switch ds18b20.Family(a & 0xff) {
		case ds18b20.DS18B20, ds18b20.DS18S20:
		default:
			continue
		}
		if n < len(buf) {
			buf[n] = a
		}
		n++
	}
	return n, nil
}

// TriggerConversion starts a conversion on every sensor of the bus master.
// The kernel cannot start a single sensor without reading it, so addr only
// has to be Broadcast or a known device.
//
// When wait is true it polls the master until the conversion completed.
func (d *Driver) TriggerConversion(addr onewire.Address, wait bool) error {
	if addr != ds18b20.Broadcast {
		if _, err := os.Stat(d.device(addr)); err != nil {
			return errors.Wrapf(err, "w1therm: %s", Name(addr))
		}
	}
	bulk := filepath.Join(d.master, "therm_bulk_read")
	if err := write(bulk, "trigger"); err != nil {
		return err
	}
	if !wait {
		return nil
	}
	for i := 0; i < maxPolls; i++ {
		sleep(pollInterval)
		v, err := readInt(bulk)
		if err != nil {
			return err
		}
		// -1 while a conversion is in progress.
		if v != -1 {
			return nil
		}
	}
	return errors.Errorf("w1therm: conversion did not complete within %s", maxPolls*pollInterval)
}

// ReadTemperature returns the last temperature converted by addr.
//
// On failure it returns ds18b20.Disconnected.
func (d *Driver) ReadTemperature(addr onewire.Address) (physic.Temperature, error) {
	if addr == ds18b20.Broadcast {
		return ds18b20.Disconnected, errors.New("w1therm: cannot read a temperature from all devices at once")
	}
	milli, err := readInt(filepath.Join(d.device(addr), "temperature"))
	if err != nil {
		return ds18b20.Disconnected, err
	}
	return physic.ZeroCelsius + physic.Temperature(milli)*physic.MilliKelvin, nil
}

// WriteScratchpad writes the alarm thresholds and the resolution encoded in
// cfg to addr.
func (d *Driver) WriteScratchpad(addr onewire.Address, cfg [3]byte) error {
	if addr == ds18b20.Broadcast {
		return errNoBroadcast
	}
	dir := d.device(addr)
	// The kernel stores the lower of the two values in TL.
	alarms := fmt.Sprintf("%d %d", int8(cfg[1]), int8(cfg[0]))
	if err := write(filepath.Join(dir, "alarms"), alarms); err != nil {
		return err
	}
	if ds18b20.Family(addr&0xff) != ds18b20.DS18B20 {
		return nil
	}
	bits := int(cfg[2]>>5&0x03) + 9
	return write(filepath.Join(dir, "resolution"), strconv.Itoa(bits))
}

// CopyScratchpad saves the scratchpad of addr to EEPROM.
func (d *Driver) CopyScratchpad(addr onewire.Address) error {
	if addr == ds18b20.Broadcast {
		return errNoBroadcast
	}
	return write(filepath.Join(d.device(addr), "eeprom_cmd"), "save")
}

func (d *Driver) device(addr onewire.Address) string {
	return filepath.Join(d.root, Name(addr))
}

// Name returns the sysfs directory name of a device, "ff-ssssssssssss" with
// the family code and the 48-bit serial number.
func Name(addr onewire.Address) string {
	return fmt.Sprintf("%02x-%012x", uint64(addr)&0xff, uint64(addr)>>8&0xffffffffffff)
}

// ParseName returns the 64-bit ROM code of the device named s, computing the
// CRC byte the kernel leaves out.
func ParseName(s string) (onewire.Address, error) {
	family, serial, ok := strings.Cut(s, "-")
	if !ok || len(family) != 2 || len(serial) != 12 {
		return 0, errors.Errorf("w1therm: invalid device name %q", s)
	}
	f, err := strconv.ParseUint(family, 16, 8)
	if err != nil {
		return 0, errors.Wrapf(err, "w1therm: invalid device name %q", s)
	}
	sn, err := strconv.ParseUint(serial, 16, 48)
	if err != nil {
		return 0, errors.Wrapf(err, "w1therm: invalid device name %q", s)
	}
	var rom [8]byte
	rom[0] = byte(f)
	for i := 1; i < 7; i++ {
		rom[i] = byte(sn >> (8 * (i - 1)))
	}
	rom[7] = common.CRC8(rom[:7])
	var a uint64
	for i := 7; i >= 0; i-- {
		a = a<<8 | uint64(rom[i])
	}
	return onewire.Address(a), nil
}

func write(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0)
	if err != nil {
		return errors.Wrap(err, "w1therm")
	}
	if _, err := f.WriteString(value + "\n"); err != nil {
		f.Close()
		return errors.Wrapf(err, "w1therm: writing %s", path)
	}
	return errors.Wrap(f.Close(), "w1therm")
}

func readInt(path string) (int64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, errors.Wrap(err, "w1therm")
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "w1therm: parsing %s", path)
	}
	return v, nil
}

const (
	pollInterval = 10 * time.Millisecond
	maxPolls     = 100 // a 12 bits conversion takes 750ms
)

var errNoBroadcast = errors.New("w1therm: sysfs has no broadcast write")

var sleep = time.Sleep
