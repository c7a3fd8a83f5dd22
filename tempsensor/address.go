// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tempsensor

import (
	"encoding/binary"
	"fmt"

	"github.com/GermanBionicSystems/owtemp/ds18b20"
	"periph.io/x/conn/v3/onewire"
)

// Address is the 8-byte ROM code of a device, least significant byte first:
// byte 0 is the family code and byte 7 the CRC.
type Address [8]byte

// Uint64ToBytes returns the byte form of the 64-bit address a.
func Uint64ToBytes(a uint64) Address {
	var b Address
	binary.LittleEndian.PutUint64(b[:], a)
	return b
}

// BytesToUint64 returns the 64-bit form of the address b.
func BytesToUint64(b Address) uint64 {
	return binary.LittleEndian.Uint64(b[:])
}

// AddressOf converts a 1-wire bus address.
func AddressOf(a onewire.Address) Address {
	return Uint64ToBytes(uint64(a))
}

// OneWire returns the address as used on a onewire.Bus.
func (a Address) OneWire() onewire.Address {
	return onewire.Address(BytesToUint64(a))
}

// Family returns the device family encoded in the first byte.
func (a Address) Family() ds18b20.Family {
	return ds18b20.Family(a[0])
}

func (a Address) String() string {
	return fmt.Sprintf("%#016x", BytesToUint64(a))
}
