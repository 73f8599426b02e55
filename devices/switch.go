// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package devices

import (
	"math/rand"

	"github.com/jmorgadov/nesim/frame"
	"github.com/jmorgadov/nesim/wire"
)

// Switch is the learning bridge of spec §4.6: N ports, each with its own
// SendReceiver, a MAC table learned from source addresses, and a
// per-port bit buffer that reassembles frames directly off the buffer
// head (no onset search is needed since a switch discards the parsed
// prefix after every successful parse).
type Switch struct {
	name string
	ps   *PortSet

	macTable map[uint16]int
	bufs     []*bridgeReassembler

	tick  int
	begin []wire.Value
	Table []PortTick
}

// NewSwitch creates an n-port Switch.
func NewSwitch(name string, n int, signalTime int, rng *rand.Rand) *Switch {
	s := &Switch{
		name:     name,
		macTable: map[uint16]int{},
	}
	s.ps = NewPortSet(name, n, signalTime, rng, s)
	s.bufs = make([]*bridgeReassembler, n)
	for i := range s.bufs {
		s.bufs[i] = &bridgeReassembler{}
	}
	return s
}

func (s *Switch) Name() string { return s.name }

// Port returns the 1-based port, for the sim package to attach a Duplex
// endpoint to.
func (s *Switch) Port(index int) *Port { return s.ps.Port(index) }

// NumPorts returns the number of ports this Switch was created with, for
// package transcript's per-port table header.
func (s *Switch) NumPorts() int { return s.ps.Len() }

// Connect attaches arena/ep to the given port.
func (s *Switch) Connect(index int, arena *wire.Arena, ep wire.Endpoint, simple bool) error {
	return s.ps.Connect(index, arena, ep, simple)
}

// Disconnect detaches the port and drops its reassembly buffer (spec §9
// Open Questions: already the switch's native behavior, kept unchanged).
func (s *Switch) Disconnect(index int) error {
	if err := s.ps.Disconnect(index); err != nil {
		return err
	}
	s.bufs[index-1].Reset()
	return nil
}

// BeginTick snapshots the inbound wire value of every attached port,
// before the switch's own transmit phase runs this tick.
func (s *Switch) BeginTick() {
	s.begin = make([]wire.Value, s.ps.Len())
	for i := 1; i <= s.ps.Len(); i++ {
		if p := s.ps.Port(i); p.attached {
			s.begin[i-1] = p.arena.Sample(p.endpoint.Receive)
		}
	}
}

// EndTick records the per-tick port table row.
func (s *Switch) EndTick(tick int) {
	row := PortTick{Tick: tick, Received: s.begin, Sent: make([]wire.Value, s.ps.Len())}
	for i := 1; i <= s.ps.Len(); i++ {
		row.Sent[i-1] = s.ps.Port(i).Sample()
	}
	s.Table = append(s.Table, row)
}

func (s *Switch) Update(tick int) {
	s.tick = tick
	s.ps.Update()
}

func (s *Switch) Sample(tick int) {
	s.tick = tick
	s.ps.Sample()
}

func (s *Switch) IsActive() bool { return s.ps.IsActive() }

func (s *Switch) onPortSend(int, int)    {}
func (s *Switch) onPortCollision(int)    {}

// onPortIdle is a no-op: the bridge reassembler always starts parsing at
// the buffer head (no MAC-onset search), so a quiet link leaves a genuine
// in-flight partial frame that should stay buffered, not a stale onset
// match that needs discarding.
func (s *Switch) onPortIdle(int) {}

func (s *Switch) onPortReceive(port int, bit int) {
	frameBits, ok := s.bufs[port-1].PushBit(bit)
	if !ok {
		return
	}
	f, err := frame.Decode(bitsToBytes(frameBits))
	if err != nil {
		return
	}

	if f.SrcMAC != frame.BroadcastMAC {
		s.macTable[f.SrcMAC] = port
	}

	if toPort, ok := s.macTable[f.DestMAC]; ok && f.DestMAC != frame.BroadcastMAC {
		if p := s.ps.Port(toPort); p != nil {
			p.SR.Enqueue(frameBits)
		}
		return
	}

	for i := 1; i <= s.ps.Len(); i++ {
		if i == port {
			continue
		}
		if p := s.ps.Port(i); p != nil && p.Attached() {
			p.SR.Enqueue(frameBits)
		}
	}
}
