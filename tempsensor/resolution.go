// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tempsensor

import "strconv"

// Resolution is the number of bits of a conversion result, 9 to 12.
type Resolution int

// DefaultResolution is the power-on resolution of a DS18B20.
const DefaultResolution Resolution = 12

const minResolution Resolution = 9

// Valid reports whether r is one of 9, 10, 11 or 12.
func (r Resolution) Valid() bool {
	return r >= minResolution && r <= 12
}

// ConfigByte returns the value of the DS18B20 configuration register
// selecting r.
func (r Resolution) ConfigByte() byte {
	return byte(r-minResolution) << 5
}

func (r Resolution) String() string {
	return strconv.Itoa(int(r)) + "bits"
}

// RequiredWaitMillis returns the worst case conversion time in milliseconds
// at resolution r, datasheet p.3.
//
// Anything that is not 9, 10 or 11 bits gets the 12 bits time.
func RequiredWaitMillis(r Resolution) uint16 {
	switch r {
	case 9:
		return 94
	case 10:
		return 188
	case 11:
		return 375
	default:
		return 750
	}
}
