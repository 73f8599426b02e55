// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package errdetect implements the pluggable error-detection algorithms
// used to compute and verify a Frame's trailing check field (spec §4.2).
package errdetect

import "fmt"

// Algorithm computes and verifies a trailing error-detection field over a
// payload.
type Algorithm interface {
	// Name identifies the algorithm as used in configuration and in the
	// simulation's error_detection config key.
	Name() string

	// Encode returns the check bytes for the given payload.
	Encode(payload []byte) []byte

	// Verify recomputes the check for payload and reports whether it
	// matches the supplied check bytes.
	Verify(payload, check []byte) bool
}

var registry = map[string]Algorithm{}

func register(a Algorithm) {
	registry[a.Name()] = a
}

func init() {
	register(simpleHash{})
	register(hamming{})
}

// Get looks up a registered algorithm by name. An unknown name is a fatal
// configuration error per spec §7 ("Unknown config key / algorithm").
func Get(name string) (Algorithm, error) {
	a, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("errdetect: unknown error detection algorithm %q", name)
	}
	return a, nil
}
