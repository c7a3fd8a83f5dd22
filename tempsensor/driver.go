// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tempsensor

import (
	"github.com/GermanBionicSystems/owtemp/ds18b20"
	"periph.io/x/conn/v3/onewire"
	"periph.io/x/conn/v3/physic"
)

// Broadcast addresses every device on the bus at once.
const Broadcast = ds18b20.Broadcast

// Driver is the transport used to reach the sensors.
//
// Implementations report failures as errors but the Scheduler treats every
// call as best effort; only ReadTemperature hands its error to the caller.
type Driver interface {
	// Scan fills buf with the addresses of the temperature sensors on the bus
	// and returns how many were found, which may be more than len(buf).
	Scan(buf []onewire.Address) (int, error)
	// TriggerConversion starts a conversion on addr, or on every device when
	// addr is Broadcast. When wait is true it returns once the conversion is
	// done.
	TriggerConversion(addr onewire.Address, wait bool) error
	// ReadTemperature returns the result of the last conversion of addr. On
	// failure it returns ds18b20.Disconnected and an error.
	ReadTemperature(addr onewire.Address) (physic.Temperature, error)
	// WriteScratchpad writes TH, TL and the configuration register of addr.
	WriteScratchpad(addr onewire.Address, cfg [3]byte) error
	// CopyScratchpad saves the scratchpad of addr to EEPROM.
	CopyScratchpad(addr onewire.Address) error
}
