// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package devices

import (
	"math/rand"

	"github.com/jmorgadov/nesim/sendrecv"
	"github.com/jmorgadov/nesim/wire"
)

// Port is one named attachment point of a multi-port device (spec §3).
// It owns a SendReceiver and, redundantly, the raw endpoint it was last
// attached with so a device's per-tick transcript table can sample the
// instantaneous wire value without reaching into the SendReceiver.
type Port struct {
	Index    int
	Name     string
	SR       *sendrecv.SendReceiver
	arena    *wire.Arena
	endpoint wire.Endpoint
	attached bool
}

// Sample returns the current raw value driven on this port's wire, or
// wire.Idle if the port is unattached.
func (p *Port) Sample() wire.Value {
	if !p.attached {
		return wire.Idle
	}
	return p.arena.Sample(p.endpoint.Send)
}

// Attached reports whether a link endpoint is currently bound.
func (p *Port) Attached() bool {
	return p.attached
}

// PortSet is the composition root shared by Host, Switch, and Router: N
// named ports, each driven by its own SendReceiver, replacing the
// source's MultiplePortDevice base class (design note §9).
type PortSet struct {
	device string
	ports  []*Port
}

// NewPortSet allocates n ports named "{device}_1".."{device}_n", each
// bound to a fresh SendReceiver reporting events to sink.
func NewPortSet(device string, n int, signalTime int, rng *rand.Rand, sink PortEventSink) *PortSet {
	ps := &PortSet{device: device}
	for i := 1; i <= n; i++ {
		sr := sendrecv.New(signalTime, rng, portHandler{sink: sink, index: i})
		ps.ports = append(ps.ports, &Port{
			Index: i,
			Name:  wire.PortName(device, i),
			SR:    sr,
		})
	}
	return ps
}

// Len returns the number of ports.
func (ps *PortSet) Len() int { return len(ps.ports) }

// Port returns the 1-based port by index, or nil if out of range.
func (ps *PortSet) Port(index int) *Port {
	if index < 1 || index > len(ps.ports) {
		return nil
	}
	return ps.ports[index-1]
}

// attachPort binds arena/ep to p (spec §3 invariant: "A port owns at
// most one endpoint at a time; connect() on a busy port fails"), shared
// by PortSet.Connect and Host.Connect (which has no PortSet of its own).
func attachPort(p *Port, arena *wire.Arena, ep wire.Endpoint, simple bool) error {
	if p == nil {
		return errTopology("unknown port")
	}
	if p.attached {
		return errTopology("port %s already connected", p.Name)
	}
	p.SR.Attach(arena, ep, simple)
	p.arena = arena
	p.endpoint = ep
	p.attached = true
	return nil
}

// detachPort releases p, if attached.
func detachPort(p *Port) {
	if p == nil || !p.attached {
		return
	}
	p.SR.Detach()
	p.attached = false
}

// Connect attaches arena/ep to the given port.
func (ps *PortSet) Connect(index int, arena *wire.Arena, ep wire.Endpoint, simple bool) error {
	p := ps.Port(index)
	if p == nil {
		return errTopology("unknown port %s_%d", ps.device, index)
	}
	return attachPort(p, arena, ep, simple)
}

// Disconnect detaches the given port, if attached.
func (ps *PortSet) Disconnect(index int) error {
	p := ps.Port(index)
	if p == nil {
		return errTopology("unknown port %s_%d", ps.device, index)
	}
	detachPort(p)
	return nil
}

// Update drives every port's SendReceiver for the current tick's transmit
// phase (spec §4.8 steps 3/5).
func (ps *PortSet) Update() {
	for _, p := range ps.ports {
		p.SR.Update()
	}
}

// Sample runs every port's SendReceiver sampling phase (spec §4.8 steps
// 5/6).
func (ps *PortSet) Sample() {
	for _, p := range ps.ports {
		p.SR.Sample()
	}
}

// IsActive reports whether any port still has transmit work pending,
// part of the simulation's termination condition (spec §4.8).
func (ps *PortSet) IsActive() bool {
	for _, p := range ps.ports {
		if p.SR.IsActive() {
			return true
		}
	}
	return false
}
