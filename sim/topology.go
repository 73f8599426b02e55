// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package sim

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jmorgadov/nesim/devices"
	"github.com/jmorgadov/nesim/wire"
)

// kind tags which concrete device an entry wraps (design note §9: "A
// tagged variant DeviceKind = Host | Hub | Switch | Router is sufficient
// for the driver's dispatch").
type kind int

const (
	kindHost kind = iota
	kindHub
	kindSwitch
	kindRouter
)

// entry is the driver's uniform handle onto one device, regardless of
// kind, used to resolve a port name to a concrete Connect/Disconnect
// call without runtime type assertions scattered through the driver.
type entry struct {
	kind kind
	host *devices.Host
	hub  *devices.Hub
	sw   *devices.Switch
	rt   *devices.Router
}

func (e *entry) name() string {
	switch e.kind {
	case kindHost:
		return e.host.Name()
	case kindHub:
		return e.hub.Name()
	case kindSwitch:
		return e.sw.Name()
	case kindRouter:
		return e.rt.Name()
	}
	return ""
}

func (e *entry) isActive() bool {
	switch e.kind {
	case kindHost:
		return e.host.IsActive()
	case kindSwitch:
		return e.sw.IsActive()
	case kindRouter:
		return e.rt.IsActive()
	}
	return false
}

func (e *entry) isHub() bool { return e.kind == kindHub }

func (e *entry) connect(index int, arena *wire.Arena, ep wire.Endpoint, simple bool) error {
	switch e.kind {
	case kindHost:
		return e.host.Connect(index, arena, ep, simple)
	case kindHub:
		return e.hub.Connect(index, arena, ep)
	case kindSwitch:
		return e.sw.Connect(index, arena, ep, simple)
	case kindRouter:
		return e.rt.Connect(index, arena, ep, simple)
	}
	return nil
}

func (e *entry) disconnect(index int) error {
	switch e.kind {
	case kindHost:
		e.host.Disconnect()
		return nil
	case kindHub:
		return e.hub.Disconnect(index)
	case kindSwitch:
		return e.sw.Disconnect(index)
	case kindRouter:
		return e.rt.Disconnect(index)
	}
	return nil
}

// splitPort parses a port identifier "{device}_{1-based index}" (spec
// §3). It splits at the last underscore so device names may themselves
// contain underscores.
func splitPort(port string) (device string, index int, err error) {
	i := strings.LastIndex(port, "_")
	if i < 0 {
		return "", 0, fmt.Errorf("port: malformed port name %q", port)
	}
	device = port[:i]
	n, convErr := strconv.Atoi(port[i+1:])
	if convErr != nil {
		return "", 0, fmt.Errorf("port: malformed port index in %q: %v", port, convErr)
	}
	return device, n, nil
}

// CreateHub adds an n-port Hub named name.
func (s *Simulation) CreateHub(name string, ports int) error {
	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("topology: device %q already exists", name)
	}
	h := devices.NewHub(name, ports)
	s.entries[name] = &entry{kind: kindHub, hub: h}
	s.hubs = append(s.hubs, h)
	return nil
}

// CreateHost adds a single-port Host named name.
func (s *Simulation) CreateHost(name string) error {
	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("topology: device %q already exists", name)
	}
	h := devices.NewHost(name, s.cfg.SignalTime, s.algo, s.cfg.ErrorProb, s.rng)
	s.entries[name] = &entry{kind: kindHost, host: h}
	s.hosts = append(s.hosts, h)
	return nil
}

// CreateSwitch adds an n-port Switch named name.
func (s *Simulation) CreateSwitch(name string, ports int) error {
	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("topology: device %q already exists", name)
	}
	sw := devices.NewSwitch(name, ports, s.cfg.SignalTime, s.rng)
	s.entries[name] = &entry{kind: kindSwitch, sw: sw}
	s.switches = append(s.switches, sw)
	return nil
}

// CreateRouter adds an n-port Router named name.
func (s *Simulation) CreateRouter(name string, ports int) error {
	if _, exists := s.entries[name]; exists {
		return fmt.Errorf("topology: device %q already exists", name)
	}
	r := devices.NewRouter(name, ports, s.cfg.SignalTime, s.algo, s.cfg.ErrorProb, s.rng)
	s.entries[name] = &entry{kind: kindRouter, rt: r}
	s.routers = append(s.routers, r)
	return nil
}

func (s *Simulation) lookup(name string) (*entry, error) {
	e, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("topology: unknown device %q", name)
	}
	return e, nil
}

// Connect attaches a Duplex link between the two named ports. The link
// is "simple" whenever either side is a Hub (spec §4.1).
func (s *Simulation) Connect(port1, port2 string) error {
	dev1, idx1, err := splitPort(port1)
	if err != nil {
		return err
	}
	dev2, idx2, err := splitPort(port2)
	if err != nil {
		return err
	}
	e1, err := s.lookup(dev1)
	if err != nil {
		return err
	}
	e2, err := s.lookup(dev2)
	if err != nil {
		return err
	}

	simple := e1.isHub() || e2.isHub()
	link := wire.Connect(s.arena, simple)

	if err := e1.connect(idx1, s.arena, link.A, simple); err != nil {
		return err
	}
	if err := e2.connect(idx2, s.arena, link.B, simple); err != nil {
		// Undo the first attach so a failed connect leaves neither port
		// bound (topology errors must be atomic, spec §7).
		_ = e1.disconnect(idx1)
		return err
	}
	return nil
}

// Disconnect detaches the endpoint attached to port.
func (s *Simulation) Disconnect(port string) error {
	dev, idx, err := splitPort(port)
	if err != nil {
		return err
	}
	e, err := s.lookup(dev)
	if err != nil {
		return err
	}
	return e.disconnect(idx)
}

// Host resolves name to a *devices.Host, failing if name is unknown or
// names a different kind of device.
func (s *Simulation) Host(name string) (*devices.Host, error) {
	e, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	if e.kind != kindHost {
		return nil, fmt.Errorf("topology: %q is not a host", name)
	}
	return e.host, nil
}

// Router resolves name to a *devices.Router.
func (s *Simulation) Router(name string) (*devices.Router, error) {
	e, err := s.lookup(name)
	if err != nil {
		return nil, err
	}
	if e.kind != kindRouter {
		return nil, fmt.Errorf("topology: %q is not a router", name)
	}
	return e.rt, nil
}
