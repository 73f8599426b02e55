// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package instset

import (
	"testing"

	"github.com/jmorgadov/nesim/ipaddr"
)

func TestParseSkipsBlankAndCommentLines(t *testing.T) {
	out, err := Parse([]string{"", "  ", "# a comment", "0 create host A"})
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	if out[0].Tick != 0 {
		t.Errorf("Tick = %d, want 0", out[0].Tick)
	}
	if _, ok := out[0].Instruction.(CreateHostIns); !ok {
		t.Errorf("Instruction = %T, want CreateHostIns", out[0].Instruction)
	}
}

func TestParseEachVerb(t *testing.T) {
	lines := []string{
		"0 create host A",
		"0 create hub H 4",
		"0 create switch S 4",
		"0 create router R 2",
		"1 connect A_1 H_1",
		"2 disconnect A_1",
		"3 send A 1010",
		"4 send_frame A 00FF AABB",
		"5 mac A 1 00AB",
		"6 ip A 1 10.0.0.1 255.0.0.0",
		"7 send_packet A 10.0.0.2 AB",
		"8 ping A 10.0.0.2",
		"9 route R add 10.0.0.0 255.0.0.0 10.0.0.254 1",
		"10 route R remove 10.0.0.0 255.0.0.0",
		"11 route R reset",
	}
	out, err := Parse(lines)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(out) != len(lines) {
		t.Fatalf("len(out) = %d, want %d", len(out), len(lines))
	}

	wantTypes := []interface{}{
		CreateHostIns{}, CreateHubIns{}, CreateSwitchIns{}, CreateRouterIns{},
		ConnectIns{}, DisconnectIns{}, SendIns{}, SendFrameIns{}, MacIns{}, IPIns{},
		SendPacketIns{}, PingIns{}, RouteAddIns{}, RouteRemoveIns{}, RouteResetIns{},
	}
	for i, want := range wantTypes {
		got := out[i].Instruction
		if want, got := wantTypesName(want), wantTypesName(got); want != got {
			t.Errorf("line %d: Instruction type = %s, want %s", i, got, want)
		}
	}

	ip := out[9].Instruction.(IPIns)
	wantIP, _ := ipaddr.Parse("10.0.0.1")
	if ip.IP != wantIP {
		t.Errorf("IPIns.IP = %v, want %v", ip.IP, wantIP)
	}

	hub := out[1].Instruction.(CreateHubIns)
	if hub.Name != "H" || hub.Ports != 4 {
		t.Errorf("CreateHubIns = %+v, want {H 4}", hub)
	}

	frame := out[7].Instruction.(SendFrameIns)
	if frame.DestMAC != 0x00FF || len(frame.Payload) != 2 {
		t.Errorf("SendFrameIns = %+v, want DestMAC=0x00FF, 2-byte payload", frame)
	}
}

func wantTypesName(v interface{}) string {
	switch v.(type) {
	case CreateHostIns:
		return "CreateHostIns"
	case CreateHubIns:
		return "CreateHubIns"
	case CreateSwitchIns:
		return "CreateSwitchIns"
	case CreateRouterIns:
		return "CreateRouterIns"
	case ConnectIns:
		return "ConnectIns"
	case DisconnectIns:
		return "DisconnectIns"
	case SendIns:
		return "SendIns"
	case SendFrameIns:
		return "SendFrameIns"
	case MacIns:
		return "MacIns"
	case IPIns:
		return "IPIns"
	case SendPacketIns:
		return "SendPacketIns"
	case PingIns:
		return "PingIns"
	case RouteAddIns:
		return "RouteAddIns"
	case RouteRemoveIns:
		return "RouteRemoveIns"
	case RouteResetIns:
		return "RouteResetIns"
	default:
		return "unknown"
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		"0",
		"notanumber create host A",
		"0 create host",
		"0 create balloon X",
		"0 create hub H notanumber",
		"0 connect onlyone",
		"0 send A notbits",
		"0 send_frame A ZZ AA",
		"0 mac A notanumber 0001",
		"0 ip A 1 999.999.999.999 255.0.0.0",
		"0 route R add 10.0.0.0 255.0.0.0 10.0.0.254",
		"0 route R bogus",
		"0 bogus_verb A",
	}
	for _, line := range cases {
		if _, err := Parse([]string{line}); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", line)
		}
	}
}
