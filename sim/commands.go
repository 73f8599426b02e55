// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sim

import (
	"fmt"

	"github.com/jmorgadov/nesim/devices"
	"github.com/jmorgadov/nesim/frame"
	"github.com/jmorgadov/nesim/ipaddr"
)

// SetMAC assigns a MAC address to a Host's or Router's interface (spec
// §6 "mac" instruction).
func (s *Simulation) SetMAC(device string, iface int, mac uint16) error {
	e, err := s.lookup(device)
	if err != nil {
		return err
	}
	switch e.kind {
	case kindHost:
		e.host.SetMAC(iface, mac)
	case kindRouter:
		e.rt.SetMAC(iface, mac)
	default:
		return fmt.Errorf("topology: %q cannot be assigned a MAC", device)
	}
	return nil
}

// SetIP assigns an IP/mask pair to a Host's or Router's interface (spec
// §6 "ip" instruction).
func (s *Simulation) SetIP(device string, iface int, ip ipaddr.IP, mask ipaddr.Mask) error {
	e, err := s.lookup(device)
	if err != nil {
		return err
	}
	switch e.kind {
	case kindHost:
		e.host.SetIP(iface, ip, mask)
	case kindRouter:
		e.rt.SetIP(iface, ip, mask)
	default:
		return fmt.Errorf("topology: %q cannot be assigned an IP", device)
	}
	return nil
}

// Send enqueues raw bits on a Host's port 1 (spec §6 "send" instruction).
func (s *Simulation) Send(host string, bits []int) error {
	h, err := s.Host(host)
	if err != nil {
		return err
	}
	h.Send(bits)
	return nil
}

// SendFrame builds and enqueues a Frame from a Host (spec §6
// "send_frame" instruction).
func (s *Simulation) SendFrame(host string, destMAC uint16, payload []byte) error {
	h, err := s.Host(host)
	if err != nil {
		return err
	}
	h.SendFrame(destMAC, payload)
	return nil
}

// SendPacket enqueues an IP packet from a Host (spec §6 "send_packet"
// instruction).
func (s *Simulation) SendPacket(host string, destIP ipaddr.IP, protocol byte, payload []byte) error {
	h, err := s.Host(host)
	if err != nil {
		return err
	}
	srcIP, _ := h.OwnIP()
	h.SendIPPacket(frame.IPPacket{
		DestIP:   destIP,
		SrcIP:    srcIP,
		TTL:      64,
		Protocol: protocol,
		Payload:  payload,
	})
	return nil
}

// Ping triggers an ICMP echo request from a Host (spec §6 "ping"
// instruction).
func (s *Simulation) Ping(host string, destIP ipaddr.IP) error {
	h, err := s.Host(host)
	if err != nil {
		return err
	}
	h.Ping(destIP)
	return nil
}

// RouteAdd adds a route to a Router's table (spec §6 "route add").
func (s *Simulation) RouteAdd(device string, route devices.Route) error {
	r, err := s.Router(device)
	if err != nil {
		return err
	}
	r.AddRoute(route)
	return nil
}

// RouteRemove removes a route from a Router's table (spec §6 "route
// remove"; supplemented feature, see SPEC_FULL.md §8).
func (s *Simulation) RouteRemove(device string, dest ipaddr.IP, mask ipaddr.Mask) error {
	r, err := s.Router(device)
	if err != nil {
		return err
	}
	r.RemoveRoute(dest, mask)
	return nil
}

// RouteReset clears a Router's entire table (spec §6 "route reset";
// supplemented feature, see SPEC_FULL.md §8).
func (s *Simulation) RouteReset(device string) error {
	r, err := s.Router(device)
	if err != nil {
		return err
	}
	r.ResetRoutes()
	return nil
}
