// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package wire

import "testing"

func TestOr(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want Value
	}{
		{"idle-idle", Idle, Idle, Idle},
		{"idle-zero", Idle, Zero, Zero},
		{"idle-one", Idle, One, One},
		{"zero-zero", Zero, Zero, Zero},
		{"zero-one", Zero, One, One},
		{"one-one", One, One, One},
		{"one-zero", One, Zero, One},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := Or(test.a, test.b); got != test.want {
				t.Errorf("Or(%v, %v) = %v, want %v", test.a, test.b, got, test.want)
			}
		})
	}
}

func TestArenaDriveSampleClear(t *testing.T) {
	a := NewArena()
	h := a.Alloc()
	if got := a.Sample(h); got != Idle {
		t.Fatalf("freshly allocated wire = %v, want Idle", got)
	}
	a.Drive(h, One)
	if got := a.Sample(h); got != One {
		t.Errorf("after Drive(One), Sample = %v, want One", got)
	}
	a.Clear()
	if got := a.Sample(h); got != Idle {
		t.Errorf("after Clear, Sample = %v, want Idle", got)
	}
}

func TestPortName(t *testing.T) {
	if got, want := PortName("A", 1), "A_1"; got != want {
		t.Errorf("PortName = %q, want %q", got, want)
	}
}

func TestConnectFull(t *testing.T) {
	a := NewArena()
	link := Connect(a, false)
	if link.Simple {
		t.Fatalf("full link reported Simple")
	}
	if link.A.Send == link.A.Receive {
		t.Errorf("full link: endpoint A send/receive alias the same wire")
	}
	a.Drive(link.A.Send, One)
	if got := a.Sample(link.B.Receive); got != One {
		t.Errorf("A's send should reach B's receive: got %v, want One", got)
	}
}

func TestConnectSimple(t *testing.T) {
	a := NewArena()
	link := Connect(a, true)
	if !link.Simple {
		t.Fatalf("simple link reported !Simple")
	}
	if link.A.Send != link.B.Send {
		t.Errorf("simple link: both endpoints should alias one wire")
	}
	a.Drive(link.A.Send, One)
	if got := a.Sample(link.B.Send); got != One {
		t.Errorf("simple link: B should see A's drive on the same wire: got %v", got)
	}
}
