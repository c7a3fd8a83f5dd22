// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common contains functions used across multiple packages. For
// example, the CRC8 used on the 1-wire bus.
package common

// CRC8 calculates the Dallas/Maxim 8-bit CRC (polynomial x^8+x^5+x^4+1,
// reflected, initial value 0) of the byte slice parameter and returns the
// calculated value.
//
// It is the CRC used in 1-wire ROM codes and DS18x20 scratchpads. Running it
// over a buffer that ends with its own CRC byte yields 0.
func CRC8(bytes []byte) byte {
	var crc byte
	for _, val := range bytes {
		crc ^= val
		for i := 0; i < 8; i++ {
			if (crc & 0x01) == 0 {
				crc >>= 1
			} else {
				crc = (crc >> 1) ^ 0x8c
			}
		}
	}
	return crc
}
