// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package sendrecv implements the per-port transmit/receive state
// machine with CSMA/CD described in spec §4.3, replacing the source's
// on_send/on_receive/on_collision callback lists (design note §9) with a
// single Handler interface implemented by the owning device.
package sendrecv

import (
	"math/rand"

	"github.com/jmorgadov/nesim/wire"
)

// packageSize is the number of bits grouped into one transmission
// "package", matching nesim.devices.send_receiver._PACKAGE_SIZE.
const packageSize = 8

// Handler receives the CSMA/CD events a SendReceiver emits. The owning
// device (Host, Switch port, or Router port) implements it.
type Handler interface {
	OnSend(bit int)
	OnReceive(bit int)
	OnCollision()
	// OnIdle fires once per signalTime window in which the inbound wire
	// carried no bit at all (spec §4.4: "On IDLE (link goes quiet),
	// reassembly state is fully reset").
	OnIdle()
}

// SendReceiver drives one Duplex endpoint.
type SendReceiver struct {
	signalTime int
	rng        *rand.Rand
	handler    Handler

	arena    *wire.Arena
	endpoint wire.Endpoint
	simple   bool
	attached bool

	queue          [][]int
	currentPackage []int
	packageIndex   int
	sendTime       int
	timeToSend     int
	maxBackoff     int
	isSending      bool
	sendingBit     int
	timeConnected  int
	receivedBits   []int
}

// New creates a SendReceiver with the given symbol duration, shared
// random source (design note §9: one deterministic generator per
// simulation, not a package-level global), and event handler.
func New(signalTime int, rng *rand.Rand, handler Handler) *SendReceiver {
	return &SendReceiver{
		signalTime: signalTime,
		rng:        rng,
		handler:    handler,
		maxBackoff: 16,
	}
}

// Attach binds the SendReceiver to one endpoint of a Duplex link.
func (s *SendReceiver) Attach(arena *wire.Arena, ep wire.Endpoint, simple bool) {
	s.arena = arena
	s.endpoint = ep
	s.simple = simple
	s.attached = true
	s.timeConnected = 0
}

// Connected reports whether a link is currently attached.
func (s *SendReceiver) Connected() bool {
	return s.attached
}

// Pending returns the number of bits still queued or in flight, for
// callers (tests, diagnostics) that need to observe whether data was
// actually enqueued without waiting out the transmit schedule.
func (s *SendReceiver) Pending() int {
	n := len(s.currentPackage)
	for _, pkg := range s.queue {
		n += len(pkg)
	}
	return n
}

// IsActive reports whether the port still has work to finish: either
// actively sending or waiting out a back-off, per spec §4.8's
// termination condition.
func (s *SendReceiver) IsActive() bool {
	return s.isSending || s.timeToSend > 0
}

// Enqueue appends data (as 0/1 bits) to the send queue, split into
// packageSize-bit packages, preserving enqueue order (spec §5).
func (s *SendReceiver) Enqueue(bits []int) {
	for len(bits) > 0 {
		n := packageSize
		if n > len(bits) {
			n = len(bits)
		}
		pkg := append([]int(nil), bits[:n]...)
		s.queue = append(s.queue, pkg)
		bits = bits[n:]
	}
}

// Detach disconnects the port: the current partial outbound package is
// returned to the head of the queue, all transient transmit state is
// cleared, and the endpoint is marked detached (spec §5, boundary
// "Disconnecting mid-transmission returns the partially-sent packet to
// the queue head unchanged").
func (s *SendReceiver) Detach() {
	if len(s.currentPackage) > 0 {
		s.queue = append([][]int{s.currentPackage}, s.queue...)
	}
	s.currentPackage = nil
	s.packageIndex = 0
	s.isSending = false
	s.sendTime = 0
	s.sendingBit = 0
	s.timeToSend = 0
	s.maxBackoff = 16
	s.timeConnected = 0
	s.receivedBits = nil
	s.attached = false
}

// Update runs the drive phase of the tick (spec §4.3, steps 1-4):
// loading the next package, counting down back-off, and driving the
// outbound wire.
func (s *SendReceiver) Update() {
	if !s.attached {
		return
	}

	if len(s.currentPackage) == 0 {
		if len(s.queue) > 0 {
			s.currentPackage = s.queue[0]
			s.queue = s.queue[1:]
			s.isSending = true
			s.packageIndex = 0
			s.sendTime = 0
			s.maxBackoff = 16
		} else if s.isSending {
			s.isSending = false
			s.sendingBit = 0
			s.arena.Drive(s.endpoint.Send, wire.Idle)
		}
	}

	if s.timeToSend > 0 {
		s.timeToSend--
		return
	}

	if len(s.currentPackage) > 0 {
		s.isSending = true
		s.sendingBit = s.currentPackage[s.packageIndex]
		s.arena.Drive(s.endpoint.Send, wire.FromBit(s.sendingBit))
	}

	s.timeConnected++
}

// Sample runs the sampling phase of the tick (spec §4.3), invoked after
// the medium has settled (hub fixpoint complete).
func (s *SendReceiver) Sample() {
	if !s.attached {
		return
	}

	if s.isSending {
		if s.checkCollision() {
			return
		}
		if s.sendTime == 0 {
			s.handler.OnSend(s.sendingBit)
		}
		s.sendTime++
		if s.sendTime == s.signalTime {
			s.packageIndex++
			if s.packageIndex == len(s.currentPackage) {
				s.currentPackage = nil
			}
			s.sendTime = 0
		}
	}

	if s.isSending {
		return
	}

	// Majority-vote sampling of the inbound wire applies the same way to
	// both link kinds: on a "simple" (Hub-facing) link, Send and Receive
	// alias one shared conductor, and by the time Sample runs the Hub's
	// fixpoint has already overwritten it with the merged bus value, so
	// reading Receive here picks up exactly that merge, not this port's
	// own prior drive.
	if s.signalTime >= 3 && s.timeConnected%(s.signalTime/3) == 0 {
		if v, ok := s.arena.Sample(s.endpoint.Receive).Bit(); ok {
			s.receivedBits = append(s.receivedBits, v)
		}
	}

	if s.timeConnected%s.signalTime == 0 {
		if len(s.receivedBits) > 0 {
			s.handler.OnReceive(majority(s.receivedBits))
			s.receivedBits = nil
		} else {
			s.handler.OnIdle()
		}
	}
}

// checkCollision compares the realized value of the wire this port
// itself drives against the bit it intended to send. On a "simple" link
// that wire is shared with every other attached endpoint (e.g. a Hub's
// OR-merge), so a mismatch there means some other driver put a different
// bit onto the segment this tick; on a full-duplex link nothing else can
// drive this port's own send wire, so collisions never trigger.
func (s *SendReceiver) checkCollision() bool {
	realized, ok := s.arena.Sample(s.endpoint.Send).Bit()
	if ok && realized == s.sendingBit {
		return false
	}
	s.timeToSend = 1 + s.rng.Intn(s.maxBackoff)
	s.maxBackoff *= 2
	s.packageIndex = 0
	s.sendTime = 0
	s.isSending = false
	s.handler.OnCollision()
	return true
}

// majority returns the most frequent value in bits, breaking ties toward
// the larger value (spec §9 Open Questions: "preserve this tie-break").
func majority(bits []int) int {
	counts := map[int]int{}
	for _, b := range bits {
		counts[b]++
	}
	bestCount, bestValue := -1, -1
	for v, c := range counts {
		if c > bestCount || (c == bestCount && v > bestValue) {
			bestCount, bestValue = c, v
		}
	}
	return bestValue
}
