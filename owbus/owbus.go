// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package owbus drives DS18x20 temperature sensors through any
// periph.io onewire.Bus, such as a DS248x I²C bridge or the kernel's
// netlink 1-wire masters.
//
// Blocking conversions sleep for the datasheet conversion time of the
// resolution last written with WriteScratchpad.
package owbus

import (
	"errors"
	"io"

	"github.com/GermanBionicSystems/owtemp/ds18b20"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/physic"
)

// New returns a driver using bus.
func New(bus onewire.Bus) *Driver {
	return &Driver{bus: bus, bits: 12, devs: map[onewire.Address]*ds18b20.Dev{}}
}

// Driver accesses DS18x20 devices over a onewire.Bus.
type Driver struct {
	bus  onewire.Bus
	bits int // highest resolution written, used by blocking conversions
	devs map[onewire.Address]*ds18b20.Dev
}

func (d *Driver) String() string {
	return "owbus{" + d.bus.String() + "}"
}

// Close closes the bus if it can be closed.
func (d *Driver) Close() error {
	if c, ok := d.bus.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Scan searches the bus and stores the DS18B20 and DS18S20 devices found in
// buf. It returns the number of such devices, which may exceed len(buf).
//
// When the search fails part way the devices already found are reported
// along with the error.
func (d *Driver) Scan(buf []onewire.Address) (int, error) {
	all, err := d.bus.Search(false)
	n := 0
	for _, a := range all {
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
	return n, err
}

// TriggerConversion starts a conversion on addr or, with ds18b20.Broadcast,
// on every device.
//
// When wait is true it sleeps until the conversion completed.
func (d *Driver) TriggerConversion(addr onewire.Address, wait bool) error {
	if addr == ds18b20.Broadcast {
		if wait {
			return ds18b20.ConvertAll(d.bus, d.bits)
		}
		return ds18b20.StartAll(d.bus)
	}
	dev := d.dev(addr)
	if wait {
		return dev.Convert()
	}
	return dev.StartConversion()
}

// ReadTemperature reads the last conversion result of addr.
//
// On failure it returns ds18b20.Disconnected.
func (d *Driver) ReadTemperature(addr onewire.Address) (physic.Temperature, error) {
	if addr == ds18b20.Broadcast {
		return ds18b20.Disconnected, errBroadcastRead
	}
	t, err := d.dev(addr).LastTemp()
	if err != nil {
		return ds18b20.Disconnected, err
	}
	return t, nil
}

// WriteScratchpad writes cfg, the TH, TL and configuration bytes, to addr.
func (d *Driver) WriteScratchpad(addr onewire.Address, cfg [3]byte) error {
	if addr == ds18b20.Broadcast {
		if err := ds18b20.WriteScratchpadAll(d.bus, cfg[0], cfg[1], cfg[2]); err != nil {
			return err
		}
		// Cached handles no longer know their resolution.
		d.devs = map[onewire.Address]*ds18b20.Dev{}
		d.bits = resolutionBits(cfg[2])
		return nil
	}
	dev := d.dev(addr)
	if err := dev.WriteScratchpad(cfg[0], cfg[1], cfg[2]); err != nil {
		return err
	}
	d.bits = 9
	for _, dv := range d.devs {
		d.bits = max(d.bits, dv.Resolution())
	}
	return nil
}

// CopyScratchpad saves the scratchpad of addr to EEPROM.
func (d *Driver) CopyScratchpad(addr onewire.Address) error {
	if addr == ds18b20.Broadcast {
		return ds18b20.CopyScratchpadAll(d.bus)
	}
	return d.dev(addr).CopyScratchpad()
}

// dev returns the cached handle for addr.
func (d *Driver) dev(addr onewire.Address) *ds18b20.Dev {
	dev, ok := d.devs[addr]
	if !ok {
		dev = ds18b20.Attach(d.bus, addr)
		d.devs[addr] = dev
	}
	return dev
}

func resolutionBits(config byte) int {
	return int(config>>5&0x03) + 9
}

var errBroadcastRead = errors.New("owbus: cannot read a temperature from all devices at once")
