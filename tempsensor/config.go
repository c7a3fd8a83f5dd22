// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tempsensor

import (
	"io"
	"os"

	"github.com/GermanBionicSystems/owtemp/owbus"
	"github.com/GermanBionicSystems/owtemp/w1therm"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"periph.io/x/conn/v3/onewire/onewirereg"
)

// DriverKind names a Driver implementation.
type DriverKind string

const (
	// OneWireBus uses a periph.io onewire.Bus opened through onewirereg.
	OneWireBus DriverKind = "onewire"
	// W1Therm uses the Linux w1_therm sysfs interface.
	W1Therm DriverKind = "w1therm"
)

// Config selects and configures a Driver.
//
//	driver: w1therm
//	master: w1_bus_master1
//	resolution: 10
type Config struct {
	Driver DriverKind `yaml:"driver"`

	// onewire
	Bus string `yaml:"bus"` // onewirereg name or number, "" for the first bus

	// w1therm
	Root   string `yaml:"root"`   // sysfs devices directory
	Master string `yaml:"master"` // bus master directory below Root

	Resolution Resolution `yaml:"resolution"` // 0 keeps the sensors' configuration
}

// LoadConfig reads a YAML configuration from path.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "tempsensor: reading config")
	}
	defer f.Close()
	return ParseConfig(f)
}

// ParseConfig decodes a YAML configuration, fills in defaults and validates
// it.
func ParseConfig(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "tempsensor: decoding config")
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration without modifying it.
func (c *Config) Validate() error {
	switch c.Driver {
	case OneWireBus, W1Therm:
	default:
		return errors.Errorf("tempsensor: unknown driver %q", c.Driver)
	}
	if c.Resolution != 0 && !c.Resolution.Valid() {
		return errors.Errorf("tempsensor: invalid resolution %d", c.Resolution)
	}
	return nil
}

func (c *Config) normalize() {
	if c.Driver == "" {
		c.Driver = OneWireBus
	}
	if c.Driver == W1Therm {
		if c.Root == "" {
			c.Root = w1therm.DefaultOpts.Root
		}
		if c.Master == "" {
			c.Master = w1therm.DefaultOpts.Master
		}
	}
}

// NewDriver returns the Driver described by c.
//
// The onewire driver requires the host drivers to be loaded, see
// periph.io/x/host/v3.Init.
func (c *Config) NewDriver() (Driver, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	switch c.Driver {
	case W1Therm:
		return w1therm.New(&w1therm.Opts{Root: c.Root, Master: c.Master}), nil
	default:
		bus, err := onewirereg.Open(c.Bus)
		if err != nil {
			return nil, errors.Wrapf(err, "tempsensor: opening 1-wire bus %q", c.Bus)
		}
		return owbus.New(bus), nil
	}
}

// Open creates the driver described by c and returns its sensors.
func Open(c *Config, opts *Opts) (*Sensor, error) {
	d, err := c.NewDriver()
	if err != nil {
		return nil, err
	}
	o := DefaultOpts
	if opts != nil {
		o = *opts
	}
	if c.Resolution != 0 {
		o.Resolution = c.Resolution
	}
	return New(d, &o), nil
}
