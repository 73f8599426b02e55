// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sim

import (
	"testing"

	"github.com/jmorgadov/nesim/config"
	"github.com/jmorgadov/nesim/devices"
	"github.com/jmorgadov/nesim/frame"
	"github.com/jmorgadov/nesim/ipaddr"
)

func newTestSim(t *testing.T, errDetection string) *Simulation {
	t.Helper()
	cfg := config.Config{SignalTime: 6, ErrorDetection: errDetection, ErrorProb: 0}
	s, err := New(cfg, 1)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

// TestDirectHostToHostSendFrame mirrors spec end-to-end scenario 1: two
// hosts wired directly (a full-duplex link, no hub), one host sends a
// frame and the other must receive it intact.
func TestDirectHostToHostSendFrame(t *testing.T) {
	s := newTestSim(t, "simple_hash")
	if err := s.CreateHost("A"); err != nil {
		t.Fatalf("CreateHost(A): %v", err)
	}
	if err := s.CreateHost("B"); err != nil {
		t.Fatalf("CreateHost(B): %v", err)
	}
	if err := s.SetMAC("A", 1, 0x0001); err != nil {
		t.Fatalf("SetMAC(A): %v", err)
	}
	if err := s.SetMAC("B", 1, 0x0002); err != nil {
		t.Fatalf("SetMAC(B): %v", err)
	}
	if err := s.Connect("A_1", "B_1"); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := s.SendFrame("A", 0x0002, []byte{0xAB}); err != nil {
		t.Fatalf("SendFrame: %v", err)
	}

	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	b := s.Hosts()[1]
	if len(b.DataLog) != 1 {
		t.Fatalf("B.DataLog = %+v, want one record", b.DataLog)
	}
	if b.DataLog[0].Error {
		t.Errorf("B.DataLog[0].Error = true, want a clean receipt")
	}
	if b.DataLog[0].SrcMAC != 0x0001 {
		t.Errorf("B.DataLog[0].SrcMAC = %#04x, want 0x0001", b.DataLog[0].SrcMAC)
	}
	if string(b.DataLog[0].Payload) != "\xAB" {
		t.Errorf("B.DataLog[0].Payload = %v, want [0xAB]", b.DataLog[0].Payload)
	}
}

// TestHubDeliversToAddresseeOnly mirrors spec end-to-end scenario 1/3's
// shared-medium behavior: a Hub repeats the raw bits of every frame to
// every attached port, but each Host's reassembler only recognizes a
// frame addressed to its own MAC (or broadcast), so an uninvolved third
// host on the same hub never reassembles it.
func TestHubDeliversToAddresseeOnly(t *testing.T) {
	s := newTestSim(t, "simple_hash")
	for _, name := range []string{"A", "B", "C"} {
		if err := s.CreateHost(name); err != nil {
			t.Fatalf("CreateHost(%s): %v", name, err)
		}
	}
	if err := s.CreateHub("H", 3); err != nil {
		t.Fatalf("CreateHub: %v", err)
	}
	s.SetMAC("A", 1, 0x0001)
	s.SetMAC("B", 1, 0x0002)
	s.SetMAC("C", 1, 0x0003)
	if err := s.Connect("A_1", "H_1"); err != nil {
		t.Fatalf("Connect A-H: %v", err)
	}
	if err := s.Connect("B_1", "H_2"); err != nil {
		t.Fatalf("Connect B-H: %v", err)
	}
	if err := s.Connect("C_1", "H_3"); err != nil {
		t.Fatalf("Connect C-H: %v", err)
	}

	if err := s.SendFrame("A", 0x0002, []byte{0x7F}); err != nil {
		t.Fatalf("SendFrame: %v", err)
	}
	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	b, c := s.Hosts()[1], s.Hosts()[2]
	if len(b.DataLog) != 1 {
		t.Fatalf("B.DataLog = %+v, want one record (addressed to B)", b.DataLog)
	}
	if len(c.DataLog) != 0 {
		t.Errorf("C.DataLog = %+v, want none: C never sees a MAC-onset match for a frame addressed to B", c.DataLog)
	}
}

// TestRouterForwardsAcrossSubnetsWithARP mirrors spec end-to-end scenario
// 5: a frame addressed to the router's interface-1 MAC carries an IP packet
// for a destination on another subnet; the router must ARP-resolve the next hop
// on the outbound interface before it can forward the packet on.
func TestRouterForwardsAcrossSubnetsWithARP(t *testing.T) {
	s := newTestSim(t, "simple_hash")
	if err := s.CreateHost("A"); err != nil {
		t.Fatalf("CreateHost(A): %v", err)
	}
	if err := s.CreateHost("B"); err != nil {
		t.Fatalf("CreateHost(B): %v", err)
	}
	if err := s.CreateRouter("R", 2); err != nil {
		t.Fatalf("CreateRouter: %v", err)
	}

	s.SetMAC("A", 1, 0x0001)
	s.SetMAC("B", 1, 0x0002)
	s.SetMAC("R", 1, 0x00A1)
	s.SetMAC("R", 2, 0x00A2)

	aIP, _ := ipaddr.Parse("10.0.0.1")
	bIP, _ := ipaddr.Parse("10.1.0.1")
	r1IP, _ := ipaddr.Parse("10.0.0.254")
	r2IP, _ := ipaddr.Parse("10.1.0.254")
	mask, _ := ipaddr.ParseMask("255.255.255.0")

	if err := s.SetIP("A", 1, aIP, mask); err != nil {
		t.Fatalf("SetIP(A): %v", err)
	}
	if err := s.SetIP("B", 1, bIP, mask); err != nil {
		t.Fatalf("SetIP(B): %v", err)
	}
	if err := s.SetIP("R", 1, r1IP, mask); err != nil {
		t.Fatalf("SetIP(R,1): %v", err)
	}
	if err := s.SetIP("R", 2, r2IP, mask); err != nil {
		t.Fatalf("SetIP(R,2): %v", err)
	}

	if err := s.Connect("A_1", "R_1"); err != nil {
		t.Fatalf("Connect A-R: %v", err)
	}
	if err := s.Connect("B_1", "R_2"); err != nil {
		t.Fatalf("Connect B-R: %v", err)
	}

	// Gateway left zero: R's own route says "ARP the destination directly
	// on iface 2", matching a destination that sits on an interface's
	// directly-attached subnet.
	netB, _ := ipaddr.Parse("10.1.0.0")
	if err := s.RouteAdd("R", devices.Route{Dest: netB, Mask: mask, Iface: 2}); err != nil {
		t.Fatalf("RouteAdd: %v", err)
	}

	pkt := frame.IPPacket{DestIP: bIP, SrcIP: aIP, TTL: 64, Payload: []byte{0xCC}}
	if err := s.SendFrame("A", 0x00A1, pkt.Encode()); err != nil {
		t.Fatalf("SendFrame: %v", err)
	}
	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	b := s.Hosts()[1]
	if len(b.PayloadLog) != 1 {
		t.Fatalf("B.PayloadLog = %+v, want one record routed in from A via R", b.PayloadLog)
	}
	if string(b.PayloadLog[0].Payload) != "\xCC" {
		t.Errorf("B.PayloadLog[0].Payload = %v, want [0xCC]", b.PayloadLog[0].Payload)
	}
}

