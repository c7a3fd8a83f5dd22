// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tempsensor

import (
	"fmt"
	"io"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
)

// Opts contains options to pass to the constructor.
type Opts struct {
	// Resolution written to every sensor found at construction. Zero or
	// DefaultResolution leaves the sensors untouched.
	Resolution Resolution
	Clock      clock.Clock // nil uses the wall clock
	Logger     *zap.Logger // nil disables logging
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Resolution: DefaultResolution,
}

// Reading is the result of reading one sensor.
type Reading struct {
	Addr        Address
	Temperature physic.Temperature
	Err         error
}

func (r Reading) String() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %v", r.Addr, r.Err)
	}
	return fmt.Sprintf("%s: %s", r.Addr, r.Temperature)
}

// Sensor is the set of temperature sensors reachable through a Driver.
//
// It combines the Registry of discovered addresses with the Scheduler timing
// their conversions.
type Sensor struct {
	*Registry
	*Scheduler
	d Driver
}

// New scans the bus through d and returns the sensors found.
func New(d Driver, opts *Opts) *Sensor {
	if opts == nil {
		opts = &DefaultOpts
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := NewRegistry(d, logger)
	s := &Sensor{
		Registry:  reg,
		Scheduler: NewScheduler(d, reg, opts.Clock, logger),
		d:         d,
	}
	n := s.Scan()
	logger.Debug("sensors found", zap.Uint8("count", n), zap.Stringer("driver", s))
	if opts.Resolution != 0 && opts.Resolution != DefaultResolution {
		s.SetResolution(opts.Resolution)
	}
	return s
}

// ReadAll reads every retained sensor, in scan order.
//
// Like ReadTemperature it does not check that a conversion completed.
func (s *Sensor) ReadAll() []Reading {
	addrs := s.Addresses()
	out := make([]Reading, 0, len(addrs))
	for _, a := range addrs {
		addr := AddressOf(a)
		t, err := s.ReadTemperature(addr)
		out = append(out, Reading{Addr: addr, Temperature: t, Err: err})
	}
	return out
}

func (s *Sensor) String() string {
	if st, ok := s.d.(fmt.Stringer); ok {
		return "tempsensor{" + st.String() + "}"
	}
	return fmt.Sprintf("tempsensor{%T}", s.d)
}

// Halt implements conn.Resource.
func (s *Sensor) Halt() error {
	return nil
}

// Close closes the driver when it holds a resource.
func (s *Sensor) Close() error {
	if c, ok := s.d.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

var _ conn.Resource = &Sensor{}
