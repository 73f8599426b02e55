// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package config loads the simulation's YAML configuration file, in the
// read-then-validate style of botanist.LoadDeviceProperties.
package config

import (
	"fmt"
	"io/ioutil"

	"gopkg.in/yaml.v2"

	"github.com/jmorgadov/nesim/errdetect"
)

// Config holds the simulation-wide parameters named in spec §6:
// "signal_time" (positive integer), "error_detection" ("simple_hash" or
// "hamming"), "error_prob" (probability in [0,1]).
type Config struct {
	SignalTime     int     `yaml:"signal_time"`
	ErrorDetection string  `yaml:"error_detection"`
	ErrorProb      float64 `yaml:"error_prob"`
}

// Load reads and validates a Config from path. Any violation is a fatal
// startup error per spec §7 ("Unknown config key / algorithm").
func Load(path string) (Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: failed to read %q: %v", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: failed to parse %q: %v", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %q: %v", path, err)
	}
	return cfg, nil
}

// Validate reports the first violated constraint, if any.
func (c Config) Validate() error {
	if c.SignalTime <= 0 {
		return fmt.Errorf("signal_time must be positive, got %d", c.SignalTime)
	}
	if _, err := errdetect.Get(c.ErrorDetection); err != nil {
		return fmt.Errorf("error_detection: %v", err)
	}
	if c.ErrorProb < 0 || c.ErrorProb > 1 {
		return fmt.Errorf("error_prob must be in [0,1], got %v", c.ErrorProb)
	}
	return nil
}
