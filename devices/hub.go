// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package devices

import "github.com/jmorgadov/nesim/wire"

// PortTick is one tick's row of a Hub or Switch's per-port transcript
// table (spec §6: "Hubs and Switches write a per-tick table showing, per
// port, the received bit and the sent bit").
type PortTick struct {
	Tick     int
	Received []wire.Value
	Sent     []wire.Value
}

// Hub is the N-port repeater of spec §4.5: no SendReceiver, no CSMA/CD,
// just a bitwise OR of every driven inbound wire repeated to every
// outbound wire, including the source port (this is what lets a Host's
// own SendReceiver observe a collision).
type Hub struct {
	name string

	arena     *wire.Arena
	endpoints []wire.Endpoint
	attached  []bool

	preMerge []wire.Value // snapshot taken before this tick's first fixpoint pass
	Table    []PortTick
}

// NewHub creates an n-port Hub.
func NewHub(name string, n int) *Hub {
	return &Hub{
		name:      name,
		endpoints: make([]wire.Endpoint, n),
		attached:  make([]bool, n),
	}
}

func (h *Hub) Name() string { return h.name }

// NumPorts returns the number of ports this Hub was created with, for
// package transcript's per-port table header.
func (h *Hub) NumPorts() int { return len(h.endpoints) }

// Connect attaches arena/ep to the given 1-based port.
func (h *Hub) Connect(index int, arena *wire.Arena, ep wire.Endpoint) error {
	if index < 1 || index > len(h.endpoints) {
		return errTopology("unknown port %s_%d", h.name, index)
	}
	if h.attached[index-1] {
		return errTopology("port %s_%d already connected", h.name, index)
	}
	h.arena = arena
	h.endpoints[index-1] = ep
	h.attached[index-1] = true
	return nil
}

// Disconnect detaches the given port (spec §9 Open Questions: Hub
// disconnect now uniformly drops transient state, matching Switch).
func (h *Hub) Disconnect(index int) error {
	if index < 1 || index > len(h.endpoints) {
		return errTopology("unknown port %s_%d", h.name, index)
	}
	h.attached[index-1] = false
	return nil
}

// BeginTick snapshots each attached port's currently-driven value, before
// any fixpoint pass runs this tick. This snapshot becomes the "Received"
// column of the per-tick table, since the fixpoint passes themselves
// overwrite each port's wire with the merged value.
func (h *Hub) BeginTick() {
	h.preMerge = make([]wire.Value, len(h.endpoints))
	for i, attached := range h.attached {
		if attached {
			h.preMerge[i] = h.arena.Sample(h.endpoints[i].Receive)
		}
	}
}

// FixpointStep runs one OR-merge pass (spec §4.5) and reports whether any
// port's driven value changed, so the caller can iterate to a fixpoint
// across chained hubs (spec §4.8 step 4).
func (h *Hub) FixpointStep() bool {
	merged := wire.Idle
	for i, attached := range h.attached {
		if !attached {
			continue
		}
		merged = wire.Or(merged, h.arena.Sample(h.endpoints[i].Receive))
	}

	changed := false
	for i, attached := range h.attached {
		if !attached {
			continue
		}
		if h.arena.Sample(h.endpoints[i].Send) != merged {
			changed = true
		}
		h.arena.Drive(h.endpoints[i].Send, merged)
	}
	return changed
}

// EndTick records the final per-port table row for this tick.
func (h *Hub) EndTick(tick int) {
	row := PortTick{Tick: tick, Received: h.preMerge, Sent: make([]wire.Value, len(h.endpoints))}
	for i, attached := range h.attached {
		if attached {
			row.Sent[i] = h.arena.Sample(h.endpoints[i].Send)
		}
	}
	h.Table = append(h.Table, row)
}

// Update is a no-op: a Hub only acts during the fixpoint phase, driven
// explicitly by the simulation driver via BeginTick/FixpointStep/EndTick.
func (h *Hub) Update(tick int) {}

// Sample is a no-op for the same reason.
func (h *Hub) Sample(tick int) {}

// IsActive is always false: a Hub has no SendReceiver and so never
// contributes to the simulation's termination condition.
func (h *Hub) IsActive() bool { return false }
