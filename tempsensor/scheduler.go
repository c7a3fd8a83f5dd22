// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tempsensor

import (
	"strconv"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/physic"
)

// State is the lifecycle of a conversion request.
type State uint8

const (
	// Idle means no conversion was ever requested.
	Idle State = iota
	// Pending means a conversion was started and its time has not elapsed.
	Pending
	// Ready means the last conversion is complete.
	Ready
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Pending:
		return "Pending"
	case Ready:
		return "Ready"
	default:
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
}

// Alarm thresholds written along with the resolution. TH below TL keeps the
// alarm search quiet.
const (
	thresholdHigh = 0x00
	thresholdLow  = 0xff
)

// Scheduler starts conversions on every sensor of a Registry and tracks when
// their results become available.
type Scheduler struct {
	d      Driver
	reg    *Registry
	clock  clock.Clock
	logger *zap.Logger
	epoch  time.Time

	resolution  Resolution
	state       State
	requestedUs int64 // microseconds since epoch of the last Request
}

// NewScheduler returns a Scheduler at DefaultResolution in the Idle state.
//
// clk provides the monotonic time base; nil uses the wall clock.
func NewScheduler(d Driver, reg *Registry, clk clock.Clock, logger *zap.Logger) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		d:          d,
		reg:        reg,
		clock:      clk,
		logger:     logger,
		epoch:      clk.Now(),
		resolution: DefaultResolution,
	}
}

// Resolution returns the resolution conversions are timed for.
func (s *Scheduler) Resolution() Resolution {
	return s.resolution
}

// State returns the state of the last conversion request.
func (s *Scheduler) State() State {
	return s.state
}

// SetResolution configures every sensor in the registry to r and saves it to
// their EEPROM.
//
// An invalid r is ignored. Devices are written one after the other; a device
// failing does not stop the others and the failures are only logged.
func (s *Scheduler) SetResolution(r Resolution) {
	if !r.Valid() {
		s.logger.Debug("ignoring invalid resolution", zap.Int("bits", int(r)))
		return
	}
	cfg := [3]byte{thresholdHigh, thresholdLow, r.ConfigByte()}
	var errs error
	for _, a := range s.reg.Addresses() {
		errs = multierr.Append(errs, s.d.WriteScratchpad(a, cfg))
		errs = multierr.Append(errs, s.d.CopyScratchpad(a))
	}
	if errs != nil {
		s.logger.Warn("writing resolution", zap.Stringer("resolution", r), zap.Error(errs))
	}
	s.resolution = r
}

// Request starts a conversion on all sensors and returns immediately.
//
// A Request while another one is pending restarts the wait.
func (s *Scheduler) Request() {
	if err := s.d.TriggerConversion(Broadcast, false); err != nil {
		s.logger.Warn("starting conversion", zap.Error(err))
	}
	s.requestedUs = s.nowUs()
	s.state = Pending
}

// RequestBlocking performs a conversion on all sensors and returns once it is
// done. Poll reports true afterward until the next Request.
func (s *Scheduler) RequestBlocking() {
	if err := s.d.TriggerConversion(Broadcast, true); err != nil {
		s.logger.Warn("converting", zap.Error(err))
	}
	s.state = Ready
}

// Poll reports whether the result of the last conversion can be read.
//
// It never blocks and never touches the bus.
func (s *Scheduler) Poll() bool {
	switch s.state {
	case Ready:
		return true
	case Pending:
		if s.nowUs()-s.requestedUs >= s.waitUs() {
			s.state = Ready
			return true
		}
		return false
	default:
		return false
	}
}

// Remaining returns how long until a pending conversion is complete, or 0 if
// none is pending.
func (s *Scheduler) Remaining() time.Duration {
	if s.state != Pending {
		return 0
	}
	left := s.waitUs() - (s.nowUs() - s.requestedUs)
	if left < 0 {
		return 0
	}
	return time.Duration(left) * time.Microsecond
}

// ReadTemperature reads the last conversion result of the sensor at addr.
//
// It does not check that a conversion completed; call Poll first. The
// driver's result, including its failure value, is returned as is.
func (s *Scheduler) ReadTemperature(addr Address) (physic.Temperature, error) {
	return s.d.ReadTemperature(addr.OneWire())
}

func (s *Scheduler) waitUs() int64 {
	return 1000 * int64(RequiredWaitMillis(s.resolution))
}

func (s *Scheduler) nowUs() int64 {
	return s.clock.Since(s.epoch).Microseconds()
}
