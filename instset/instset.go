// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package instset parses the scripted instruction stream (spec §6) into
// typed Instruction values, one small struct per verb (CreateHubIns,
// ConnectIns, ...) in the teacher's small-struct-per-command style
// (garnet/bin/dev_finder's Command implementations), rather than a
// single switch in the driver.
package instset

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmorgadov/nesim/ipaddr"
	"github.com/jmorgadov/nesim/sim"
)

// Parse reads one instruction per line (blank lines and lines starting
// with "#" are skipped) and returns them paired with their scheduled
// tick, ready for Simulation.Load. The grammar is: first whitespace-
// separated token is the tick, second is the verb, the rest are the
// verb's own arguments (spec §6).
func Parse(lines []string) ([]sim.Scheduled, error) {
	var out []sim.Scheduled
	for lineNo, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("instset: line %d: expected \"<tick> <verb> ...\", got %q", lineNo+1, raw)
		}
		tick, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("instset: line %d: invalid tick %q: %v", lineNo+1, fields[0], err)
		}
		ins, err := parseVerb(fields[1], fields[2:])
		if err != nil {
			return nil, fmt.Errorf("instset: line %d: %v", lineNo+1, err)
		}
		out = append(out, sim.Scheduled{Tick: tick, Instruction: ins})
	}
	return out, nil
}

func parseVerb(verb string, args []string) (sim.Instruction, error) {
	switch verb {
	case "create":
		return parseCreate(args)
	case "connect":
		if len(args) != 2 {
			return nil, fmt.Errorf("connect: expected 2 arguments, got %d", len(args))
		}
		return ConnectIns{Port1: args[0], Port2: args[1]}, nil
	case "disconnect":
		if len(args) != 1 {
			return nil, fmt.Errorf("disconnect: expected 1 argument, got %d", len(args))
		}
		return DisconnectIns{Port: args[0]}, nil
	case "send":
		if len(args) != 2 {
			return nil, fmt.Errorf("send: expected 2 arguments, got %d", len(args))
		}
		bits, err := parseBits(args[1])
		if err != nil {
			return nil, fmt.Errorf("send: %v", err)
		}
		return SendIns{Host: args[0], Bits: bits}, nil
	case "send_frame":
		if len(args) != 3 {
			return nil, fmt.Errorf("send_frame: expected 3 arguments, got %d", len(args))
		}
		mac, err := parseHexUint16(args[1])
		if err != nil {
			return nil, fmt.Errorf("send_frame: %v", err)
		}
		payload, err := parseHexBytes(args[2])
		if err != nil {
			return nil, fmt.Errorf("send_frame: %v", err)
		}
		return SendFrameIns{Host: args[0], DestMAC: mac, Payload: payload}, nil
	case "mac":
		if len(args) != 3 {
			return nil, fmt.Errorf("mac: expected 3 arguments, got %d", len(args))
		}
		iface, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("mac: invalid interface %q: %v", args[1], err)
		}
		mac, err := parseHexUint16(args[2])
		if err != nil {
			return nil, fmt.Errorf("mac: %v", err)
		}
		return MacIns{Device: args[0], Iface: iface, MAC: mac}, nil
	case "ip":
		if len(args) != 4 {
			return nil, fmt.Errorf("ip: expected 4 arguments, got %d", len(args))
		}
		iface, err := strconv.Atoi(args[1])
		if err != nil {
			return nil, fmt.Errorf("ip: invalid interface %q: %v", args[1], err)
		}
		addr, err := ipaddr.Parse(args[2])
		if err != nil {
			return nil, fmt.Errorf("ip: %v", err)
		}
		mask, err := ipaddr.ParseMask(args[3])
		if err != nil {
			return nil, fmt.Errorf("ip: %v", err)
		}
		return IPIns{Device: args[0], Iface: iface, IP: addr, Mask: mask}, nil
	case "send_packet":
		if len(args) != 3 {
			return nil, fmt.Errorf("send_packet: expected 3 arguments, got %d", len(args))
		}
		destIP, err := ipaddr.Parse(args[1])
		if err != nil {
			return nil, fmt.Errorf("send_packet: %v", err)
		}
		payload, err := parseHexBytes(args[2])
		if err != nil {
			return nil, fmt.Errorf("send_packet: %v", err)
		}
		return SendPacketIns{Host: args[0], DestIP: destIP, Payload: payload}, nil
	case "ping":
		if len(args) != 2 {
			return nil, fmt.Errorf("ping: expected 2 arguments, got %d", len(args))
		}
		destIP, err := ipaddr.Parse(args[1])
		if err != nil {
			return nil, fmt.Errorf("ping: %v", err)
		}
		return PingIns{Host: args[0], DestIP: destIP}, nil
	case "route":
		return parseRoute(args)
	default:
		return nil, fmt.Errorf("unknown verb %q", verb)
	}
}

func parseCreate(args []string) (sim.Instruction, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("create: expected at least 2 arguments, got %d", len(args))
	}
	devKind, name := args[0], args[1]
	switch devKind {
	case "host":
		return CreateHostIns{Name: name}, nil
	case "hub":
		ports, err := parsePorts(args, 2)
		if err != nil {
			return nil, fmt.Errorf("create hub: %v", err)
		}
		return CreateHubIns{Name: name, Ports: ports}, nil
	case "switch":
		ports, err := parsePorts(args, 2)
		if err != nil {
			return nil, fmt.Errorf("create switch: %v", err)
		}
		return CreateSwitchIns{Name: name, Ports: ports}, nil
	case "router":
		ports, err := parsePorts(args, 2)
		if err != nil {
			return nil, fmt.Errorf("create router: %v", err)
		}
		return CreateRouterIns{Name: name, Ports: ports}, nil
	default:
		return nil, fmt.Errorf("create: unknown device kind %q", devKind)
	}
}

func parsePorts(args []string, index int) (int, error) {
	if len(args) <= index {
		return 0, fmt.Errorf("expected a port count")
	}
	n, err := strconv.Atoi(args[index])
	if err != nil {
		return 0, fmt.Errorf("invalid port count %q: %v", args[index], err)
	}
	return n, nil
}

func parseRoute(args []string) (sim.Instruction, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("route: expected at least 2 arguments, got %d", len(args))
	}
	device, action := args[0], args[1]
	switch action {
	case "add":
		if len(args) != 6 {
			return nil, fmt.Errorf("route add: expected 6 arguments, got %d", len(args))
		}
		dest, err := ipaddr.Parse(args[2])
		if err != nil {
			return nil, fmt.Errorf("route add: %v", err)
		}
		mask, err := ipaddr.ParseMask(args[3])
		if err != nil {
			return nil, fmt.Errorf("route add: %v", err)
		}
		gw, err := ipaddr.Parse(args[4])
		if err != nil {
			return nil, fmt.Errorf("route add: %v", err)
		}
		iface, err := strconv.Atoi(args[5])
		if err != nil {
			return nil, fmt.Errorf("route add: invalid interface %q: %v", args[5], err)
		}
		return RouteAddIns{Device: device, Dest: dest, Mask: mask, Gateway: gw, Iface: iface}, nil
	case "remove":
		if len(args) != 4 {
			return nil, fmt.Errorf("route remove: expected 4 arguments, got %d", len(args))
		}
		dest, err := ipaddr.Parse(args[2])
		if err != nil {
			return nil, fmt.Errorf("route remove: %v", err)
		}
		mask, err := ipaddr.ParseMask(args[3])
		if err != nil {
			return nil, fmt.Errorf("route remove: %v", err)
		}
		return RouteRemoveIns{Device: device, Dest: dest, Mask: mask}, nil
	case "reset":
		if len(args) != 2 {
			return nil, fmt.Errorf("route reset: expected 2 arguments, got %d", len(args))
		}
		return RouteResetIns{Device: device}, nil
	default:
		return nil, fmt.Errorf("route: unknown action %q", action)
	}
}

// parseBits parses a string of '0'/'1' characters into a bit slice.
func parseBits(s string) ([]int, error) {
	bits := make([]int, 0, len(s))
	for _, r := range s {
		switch r {
		case '0':
			bits = append(bits, 0)
		case '1':
			bits = append(bits, 1)
		default:
			return nil, fmt.Errorf("invalid bit character %q in %q", r, s)
		}
	}
	return bits, nil
}

// parseHexUint16 parses a hex string (with an optional "0x"/"0X" prefix)
// into a 16-bit value, MSB first (spec §6).
func parseHexUint16(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid hex value %q: %v", s, err)
	}
	return uint16(v), nil
}

// parseHexBytes parses a hex string (with an optional "0x"/"0X" prefix)
// into bytes, MSB first (spec §6).
func parseHexBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload %q: %v", s, err)
	}
	return b, nil
}
