// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package owtemp is a container for the DS18x20 1-wire temperature sensor
// packages.
//
// Start with package tempsensor, which schedules non-blocking conversions
// over either driver: owbus for periph.io 1-wire buses and w1therm for the
// Linux kernel w1_therm interface.
package owtemp
