// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package instset

import (
	"github.com/jmorgadov/nesim/devices"
	"github.com/jmorgadov/nesim/ipaddr"
	"github.com/jmorgadov/nesim/sim"
)

// CreateHubIns is "create hub <name> <ports>".
type CreateHubIns struct {
	Name  string
	Ports int
}

func (ins CreateHubIns) Apply(s *sim.Simulation) error {
	return s.CreateHub(ins.Name, ins.Ports)
}

// CreateHostIns is "create host <name>".
type CreateHostIns struct {
	Name string
}

func (ins CreateHostIns) Apply(s *sim.Simulation) error {
	return s.CreateHost(ins.Name)
}

// CreateSwitchIns is "create switch <name> <ports>".
type CreateSwitchIns struct {
	Name  string
	Ports int
}

func (ins CreateSwitchIns) Apply(s *sim.Simulation) error {
	return s.CreateSwitch(ins.Name, ins.Ports)
}

// CreateRouterIns is "create router <name> <ports>".
type CreateRouterIns struct {
	Name  string
	Ports int
}

func (ins CreateRouterIns) Apply(s *sim.Simulation) error {
	return s.CreateRouter(ins.Name, ins.Ports)
}

// ConnectIns is "connect <port1> <port2>".
type ConnectIns struct {
	Port1 string
	Port2 string
}

func (ins ConnectIns) Apply(s *sim.Simulation) error {
	return s.Connect(ins.Port1, ins.Port2)
}

// DisconnectIns is "disconnect <port>".
type DisconnectIns struct {
	Port string
}

func (ins DisconnectIns) Apply(s *sim.Simulation) error {
	return s.Disconnect(ins.Port)
}

// SendIns is "send <host> <bits>".
type SendIns struct {
	Host string
	Bits []int
}

func (ins SendIns) Apply(s *sim.Simulation) error {
	return s.Send(ins.Host, ins.Bits)
}

// SendFrameIns is "send_frame <host> <dest_mac_hex> <payload_hex>".
type SendFrameIns struct {
	Host    string
	DestMAC uint16
	Payload []byte
}

func (ins SendFrameIns) Apply(s *sim.Simulation) error {
	return s.SendFrame(ins.Host, ins.DestMAC, ins.Payload)
}

// MacIns is "mac <device> <iface> <mac_hex>".
type MacIns struct {
	Device string
	Iface  int
	MAC    uint16
}

func (ins MacIns) Apply(s *sim.Simulation) error {
	return s.SetMAC(ins.Device, ins.Iface, ins.MAC)
}

// IPIns is "ip <device> <iface> <ip> <mask>".
type IPIns struct {
	Device string
	Iface  int
	IP     ipaddr.IP
	Mask   ipaddr.Mask
}

func (ins IPIns) Apply(s *sim.Simulation) error {
	return s.SetIP(ins.Device, ins.Iface, ins.IP, ins.Mask)
}

// SendPacketIns is "send_packet <host> <dest_ip> <payload_hex>". The
// protocol field is left at zero (opaque payload); ping is the dedicated
// instruction for ICMP traffic.
type SendPacketIns struct {
	Host    string
	DestIP  ipaddr.IP
	Payload []byte
}

func (ins SendPacketIns) Apply(s *sim.Simulation) error {
	return s.SendPacket(ins.Host, ins.DestIP, 0, ins.Payload)
}

// PingIns is "ping <host> <dest_ip>".
type PingIns struct {
	Host   string
	DestIP ipaddr.IP
}

func (ins PingIns) Apply(s *sim.Simulation) error {
	return s.Ping(ins.Host, ins.DestIP)
}

// RouteAddIns is "route <device> add <dest> <mask> <gateway> <iface>".
type RouteAddIns struct {
	Device  string
	Dest    ipaddr.IP
	Mask    ipaddr.Mask
	Gateway ipaddr.IP
	Iface   int
}

func (ins RouteAddIns) Apply(s *sim.Simulation) error {
	return s.RouteAdd(ins.Device, devices.Route{
		Dest:    ins.Dest,
		Mask:    ins.Mask,
		Gateway: ins.Gateway,
		Iface:   ins.Iface,
	})
}

// RouteRemoveIns is "route <device> remove <dest> <mask>" (supplemented
// feature, see SPEC_FULL.md §8).
type RouteRemoveIns struct {
	Device string
	Dest   ipaddr.IP
	Mask   ipaddr.Mask
}

func (ins RouteRemoveIns) Apply(s *sim.Simulation) error {
	return s.RouteRemove(ins.Device, ins.Dest, ins.Mask)
}

// RouteResetIns is "route <device> reset" (supplemented feature, see
// SPEC_FULL.md §8).
type RouteResetIns struct {
	Device string
}

func (ins RouteResetIns) Apply(s *sim.Simulation) error {
	return s.RouteReset(ins.Device)
}
