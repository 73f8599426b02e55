// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package devices

import (
	"testing"

	"github.com/jmorgadov/nesim/wire"
)

func TestHubOrMergesAllDrivenInputs(t *testing.T) {
	arena := wire.NewArena()
	hub := NewHub("H", 3)

	link1 := wire.Connect(arena, true)
	link2 := wire.Connect(arena, true)
	link3 := wire.Connect(arena, true)
	if err := hub.Connect(1, arena, link1.A); err != nil {
		t.Fatalf("Connect(1): %v", err)
	}
	if err := hub.Connect(2, arena, link2.A); err != nil {
		t.Fatalf("Connect(2): %v", err)
	}
	if err := hub.Connect(3, arena, link3.A); err != nil {
		t.Fatalf("Connect(3): %v", err)
	}

	// Port 1 drives 0, port 2 drives 1, port 3 is idle: OR should be 1,
	// repeated to every attached port including the sources.
	arena.Drive(link1.B.Send, wire.Zero)
	arena.Drive(link2.B.Send, wire.One)

	hub.BeginTick()
	for hub.FixpointStep() {
	}

	for i, ep := range []wire.Endpoint{link1.A, link2.A, link3.A} {
		if got := arena.Sample(ep.Send); got != wire.One {
			t.Errorf("port %d after merge = %v, want One", i+1, got)
		}
	}
}

func TestHubAllIdleStaysIdle(t *testing.T) {
	arena := wire.NewArena()
	hub := NewHub("H", 2)
	link1 := wire.Connect(arena, true)
	link2 := wire.Connect(arena, true)
	hub.Connect(1, arena, link1.A)
	hub.Connect(2, arena, link2.A)

	hub.BeginTick()
	for hub.FixpointStep() {
	}

	if got := arena.Sample(link1.A.Send); got != wire.Idle {
		t.Errorf("merged value = %v, want Idle when nothing drives the hub", got)
	}
}

func TestHubConnectBusyPortFails(t *testing.T) {
	arena := wire.NewArena()
	hub := NewHub("H", 1)
	link1 := wire.Connect(arena, true)
	link2 := wire.Connect(arena, true)
	if err := hub.Connect(1, arena, link1.A); err != nil {
		t.Fatalf("first Connect: %v", err)
	}
	if err := hub.Connect(1, arena, link2.A); err == nil {
		t.Errorf("second Connect to the same port succeeded, want error")
	}
}
