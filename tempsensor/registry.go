// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tempsensor

import (
	"math"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/onewire"
)

// MaxSensors is the number of addresses a Registry retains.
const MaxSensors = 10

// Registry holds the addresses of the sensors found by the last Scan.
type Registry struct {
	d      Driver
	logger *zap.Logger
	addrs  [MaxSensors]onewire.Address
	found  int // as reported by the driver, may exceed MaxSensors
}

// NewRegistry returns an empty Registry. Call Scan to populate it.
func NewRegistry(d Driver, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{d: d, logger: logger}
}

// Scan enumerates the sensors on the bus, replacing the stored addresses.
//
// Only the first MaxSensors addresses are kept. The returned count is the
// number of sensors the driver found, saturated to 255.
//
// A failing scan keeps whatever the driver managed to report.
func (r *Registry) Scan() uint8 {
	var buf [MaxSensors]onewire.Address
	n, err := r.d.Scan(buf[:])
	if err != nil {
		r.logger.Warn("scan failed", zap.Int("found", n), zap.Error(err))
	}
	if n < 0 {
		n = 0
	}
	r.addrs = buf
	r.found = n
	if n > math.MaxUint8 {
		return math.MaxUint8
	}
	return uint8(n)
}

// Count returns the number of sensors found by the last Scan.
func (r *Registry) Count() int {
	return r.found
}

// AddressAt stores the address at index in out.
//
// out is left untouched when index is not below the number of retained
// addresses.
func (r *Registry) AddressAt(index uint8, out *Address) {
	if out == nil || int(index) >= r.retained() {
		return
	}
	*out = AddressOf(r.addrs[index])
}

// Addresses returns a copy of the retained addresses.
func (r *Registry) Addresses() []onewire.Address {
	return append([]onewire.Address(nil), r.addrs[:r.retained()]...)
}

func (r *Registry) retained() int {
	return min(r.found, MaxSensors)
}
