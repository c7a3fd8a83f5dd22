// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package tempsensor drives one or more DS18x20 1-wire temperature sensors
// through a transport-agnostic Driver.
//
// The Scheduler lets a control loop start a conversion on every sensor with
// Request, keep doing other work, and check with Poll whether the conversion
// time for the configured resolution has elapsed. Nothing blocks and no
// goroutine is started; Poll is cheap enough to be called on every tick.
//
//	s := tempsensor.New(drv, nil)
//	s.Request()
//	for !s.Poll() {
//		// other work
//	}
//	var addr tempsensor.Address
//	s.AddressAt(0, &addr)
//	t, err := s.ReadTemperature(addr)
//
// Two Driver implementations exist: periph.io/x/conn/v3/onewire buses in
// package owbus and the Linux w1_therm sysfs interface in package w1therm.
// Config selects one at runtime.
//
// The Sensor and its parts are not safe for concurrent use. The bus is a
// single shared resource and callers must serialize access.
package tempsensor
