// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package wire models the shared electrical medium of the simulated LAN:
// a single tri-state bit (Wire) and the pair of wires (DuplexLink) that
// connect two device ports.
package wire

import "fmt"

// Value is the signal level carried by a Wire.
type Value int

const (
	// Idle means no endpoint is currently driving the wire.
	Idle Value = iota
	Zero
	One
)

func (v Value) String() string {
	switch v {
	case Zero:
		return "0"
	case One:
		return "1"
	default:
		return "-"
	}
}

// Bit returns the wire value as a 0/1 int and reports whether the value
// carried an actual bit (false for Idle).
func (v Value) Bit() (int, bool) {
	switch v {
	case Zero:
		return 0, true
	case One:
		return 1, true
	default:
		return 0, false
	}
}

// FromBit converts a 0/1 bit to its wire Value.
func FromBit(bit int) Value {
	if bit != 0 {
		return One
	}
	return Zero
}

// Or returns the logical OR of two wire values, treating Idle as absent.
// If both are Idle the result is Idle.
func Or(a, b Value) Value {
	ab, aok := a.Bit()
	bb, bok := b.Bit()
	switch {
	case aok && bok:
		return FromBit(ab | bb)
	case aok:
		return a
	case bok:
		return b
	default:
		return Idle
	}
}

// Handle identifies a Wire within an Arena.
type Handle int

// Arena owns the set of Wires in a simulation. Devices never hold direct
// pointers to one another's wires; they hold a Handle plus a direction,
// which avoids the ownership cycles that arise when two endpoints of a
// Duplex link alias the same physical conductor (the "simple" case).
type Arena struct {
	wires []Value
}

// NewArena returns an empty wire arena.
func NewArena() *Arena {
	return &Arena{}
}

// Alloc creates a new Idle wire and returns its handle.
func (a *Arena) Alloc() Handle {
	a.wires = append(a.wires, Idle)
	return Handle(len(a.wires) - 1)
}

// Drive sets the value of the wire identified by h.
func (a *Arena) Drive(h Handle, v Value) {
	a.wires[h] = v
}

// Sample returns the current value of the wire identified by h.
func (a *Arena) Sample(h Handle) Value {
	return a.wires[h]
}

// Clear resets every wire in the arena to Idle. Called once at the start
// of every simulation tick, before any device drives its outputs.
func (a *Arena) Clear() {
	for i := range a.wires {
		a.wires[i] = Idle
	}
}

// PortName returns the canonical port identifier "{device}_{index}" for a
// 1-based port index, as required by spec §3.
func PortName(device string, index int) string {
	return fmt.Sprintf("%s_%d", device, index)
}

// Endpoint is one side of a Duplex link: a handle to drive (Send) and a
// handle to read (Receive). The two endpoints of a link have these
// swapped.
type Endpoint struct {
	Send    Handle
	Receive Handle
}

// DuplexLink is a pair of wires bound into two directional endpoints. In
// "full" mode the two wires are independent; in "simple" mode (used when
// at least one side is a Hub) both endpoints alias a single wire, as spec
// §4.1 requires for hub-facing shared-medium links.
type DuplexLink struct {
	A, B   Endpoint
	Simple bool
}

// Connect allocates the wire(s) for a new link between two ports. When
// simple is true, a single wire is shared by both endpoints; otherwise
// two independent wires are used.
func Connect(a *Arena, simple bool) *DuplexLink {
	if simple {
		h := a.Alloc()
		return &DuplexLink{
			A:      Endpoint{Send: h, Receive: h},
			B:      Endpoint{Send: h, Receive: h},
			Simple: true,
		}
	}
	wireAtoB := a.Alloc()
	wireBtoA := a.Alloc()
	return &DuplexLink{
		A: Endpoint{Send: wireAtoB, Receive: wireBtoA},
		B: Endpoint{Send: wireBtoA, Receive: wireAtoB},
	}
}
