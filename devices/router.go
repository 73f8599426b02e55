// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package devices

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/jmorgadov/nesim/errdetect"
	"github.com/jmorgadov/nesim/frame"
	"github.com/jmorgadov/nesim/ipaddr"
	"github.com/jmorgadov/nesim/wire"
)

// Route is one entry of a Router's forwarding table (spec §3): a
// destination network, its mask, a gateway IP (zero meaning directly
// connected: ARP the destination itself), and the outbound interface.
type Route struct {
	Dest    ipaddr.IP
	Mask    ipaddr.Mask
	Gateway ipaddr.IP
	Iface   int
}

// Router is the multi-interface IP forwarder of spec §4.7: per-interface
// MAC/IP, a longest-prefix route table, a Host-like ARP machinery per
// interface, and a frame reassembler per port.
type Router struct {
	name string
	ps   *PortSet

	mac map[int]uint16
	ip  map[int]ifaceAddr

	arp        map[int]map[ipaddr.IP]uint16
	pendingARP map[int]map[ipaddr.IP][]frame.IPPacket
	reasm      map[int]*endpointReassembler

	routes []Route

	algo    errdetect.Algorithm
	errProb float64
	rng     *rand.Rand

	tick int
	Log  []LogEntry
}

// NewRouter creates an n-port Router.
func NewRouter(name string, n int, signalTime int, algo errdetect.Algorithm, errProb float64, rng *rand.Rand) *Router {
	r := &Router{
		name:       name,
		mac:        map[int]uint16{},
		ip:         map[int]ifaceAddr{},
		arp:        map[int]map[ipaddr.IP]uint16{},
		pendingARP: map[int]map[ipaddr.IP][]frame.IPPacket{},
		reasm:      map[int]*endpointReassembler{},
		algo:       algo,
		errProb:    errProb,
		rng:        rng,
	}
	r.ps = NewPortSet(name, n, signalTime, rng, r)
	for i := 1; i <= n; i++ {
		r.arp[i] = map[ipaddr.IP]uint16{}
		r.pendingARP[i] = map[ipaddr.IP][]frame.IPPacket{}
		r.reasm[i] = &endpointReassembler{}
	}
	return r
}

func (r *Router) Name() string         { return r.name }
func (r *Router) Port(index int) *Port { return r.ps.Port(index) }

// Connect attaches arena/ep to the given interface.
func (r *Router) Connect(index int, arena *wire.Arena, ep wire.Endpoint, simple bool) error {
	return r.ps.Connect(index, arena, ep, simple)
}

func (r *Router) SetMAC(iface int, mac uint16) { r.mac[iface] = mac }

func (r *Router) SetIP(iface int, ip ipaddr.IP, mask ipaddr.Mask) {
	r.ip[iface] = ifaceAddr{ip: ip, mask: mask}
}

// AddRoute inserts a route and re-sorts the table by descending mask
// (spec §3 invariant: "kept sorted by descending mask").
func (r *Router) AddRoute(route Route) {
	r.routes = append(r.routes, route)
	sort.SliceStable(r.routes, func(i, j int) bool {
		return r.routes[i].Mask.Ones() > r.routes[j].Mask.Ones()
	})
}

// RemoveRoute deletes the route matching dest/mask, if any.
func (r *Router) RemoveRoute(dest ipaddr.IP, mask ipaddr.Mask) {
	out := r.routes[:0]
	for _, rt := range r.routes {
		if rt.Dest == dest && rt.Mask == mask {
			continue
		}
		out = append(out, rt)
	}
	r.routes = out
}

// ResetRoutes empties the route table.
func (r *Router) ResetRoutes() {
	r.routes = nil
}

func (r *Router) bestRoute(dest ipaddr.IP) *Route {
	for i := range r.routes {
		rt := &r.routes[i]
		if dest.Masked(rt.Mask) == rt.Dest.Masked(rt.Mask) {
			return rt
		}
	}
	return nil
}

func (r *Router) log(action, info string) {
	r.Log = append(r.Log, LogEntry{Tick: r.tick, Action: action, Info: info})
}

func (r *Router) Update(tick int) {
	r.tick = tick
	r.ps.Update()
}

func (r *Router) Sample(tick int) {
	r.tick = tick
	r.ps.Sample()
}

func (r *Router) IsActive() bool { return r.ps.IsActive() }

// Disconnect detaches the given interface and drops its reassembly
// buffer (spec §9 Open Questions: uniform disconnect behavior).
func (r *Router) Disconnect(index int) error {
	if err := r.ps.Disconnect(index); err != nil {
		return err
	}
	if buf, ok := r.reasm[index]; ok {
		buf.Reset()
	}
	return nil
}

func (r *Router) sendFrameOn(iface int, destMAC uint16, payload []byte) {
	p := r.ps.Port(iface)
	if p == nil {
		return
	}
	check := r.algo.Encode(payload)
	f := frame.Frame{DestMAC: destMAC, SrcMAC: r.mac[iface], Payload: payload, Check: check}
	bits := bytesToBits(f.Encode())
	headerBits := frame.HeaderSize * 8
	if r.rng.Float64() < r.errProb && len(bits) > headerBits {
		idx := headerBits + r.rng.Intn(len(bits)-headerBits)
		bits[idx] ^= 1
	}
	p.SR.Enqueue(bits)
}

func (r *Router) broadcastARPQ(iface int, ip ipaddr.IP) {
	r.sendFrameOn(iface, frame.BroadcastMAC, frame.EncodeARPQ(ip))
	r.log("ARPQ", fmt.Sprintf("iface %d for %s", iface, ip))
}

func (r *Router) drainPending(iface int, ip ipaddr.IP, mac uint16) {
	pkts := r.pendingARP[iface][ip]
	delete(r.pendingARP[iface], ip)
	for _, p := range pkts {
		r.sendFrameOn(iface, mac, p.Encode())
	}
}

// forward routes pkt toward its destination (spec §4.7 step 3): looks up
// the best matching route, decrements TTL (spec §9 Open Questions:
// decision to implement TTL aging), and either forwards immediately if
// the next hop's MAC is known or queues the packet pending ARP.
func (r *Router) forward(pkt frame.IPPacket) {
	route := r.bestRoute(pkt.DestIP)
	if route == nil {
		r.log("Drop", fmt.Sprintf("no route to %s", pkt.DestIP))
		return
	}

	if pkt.TTL == 0 {
		r.log("Drop", fmt.Sprintf("TTL expired for %s", pkt.DestIP))
		return
	}
	pkt.TTL--
	if pkt.TTL == 0 {
		r.log("Drop", fmt.Sprintf("TTL expired en route to %s", pkt.DestIP))
		return
	}

	nextHop := route.Gateway
	if nextHop == 0 {
		nextHop = pkt.DestIP
	}

	if mac, ok := r.arp[route.Iface][nextHop]; ok {
		r.sendFrameOn(route.Iface, mac, pkt.Encode())
		return
	}
	r.pendingARP[route.Iface][nextHop] = append(r.pendingARP[route.Iface][nextHop], pkt)
	r.broadcastARPQ(route.Iface, nextHop)
}

func (r *Router) onPortSend(port int, bit int) {
	r.log("Sent", fmt.Sprintf("iface %d bit %d", port, bit))
}

func (r *Router) onPortCollision(port int) {
	r.log("Collision", fmt.Sprintf("iface %d", port))
}

// onPortIdle drops in-progress reassembly state on that interface once the
// link has carried no bit for a full signal window (spec §4.4, applied
// uniformly to the Router's per-interface reassembler).
func (r *Router) onPortIdle(port int) {
	if buf, ok := r.reasm[port]; ok {
		buf.Reset()
	}
}

func (r *Router) onPortReceive(port int, bit int) {
	frameBits, ok := r.reasm[port].PushBit(bit, r.mac[port])
	if !ok {
		return
	}
	r.handleFrame(port, bitsToBytes(frameBits))
}

func (r *Router) handleFrame(iface int, data []byte) {
	f, err := frame.Decode(data)
	if err != nil {
		return
	}
	if !r.algo.Verify(f.Payload, f.Check) {
		r.log("ERROR", fmt.Sprintf("iface %d frame from %04x failed verification", iface, f.SrcMAC))
		return
	}

	if f.DestMAC == frame.BroadcastMAC {
		if ip, ok := frame.DecodeARPQ(f.Payload); ok {
			if addr, has := r.ip[iface]; has && addr.ip == ip {
				reply := ip.Bytes()
				r.sendFrameOn(iface, f.SrcMAC, reply[:])
			}
		}
		return
	}

	if f.DestMAC != r.mac[iface] {
		return
	}

	if len(f.Payload) == 4 {
		var b [4]byte
		copy(b[:], f.Payload)
		ip := ipaddr.FromBytes(b)
		r.arp[iface][ip] = f.SrcMAC
		r.drainPending(iface, ip, f.SrcMAC)
		return
	}

	pkt, err := frame.DecodeIPPacket(f.Payload)
	if err != nil {
		return
	}

	if addr, has := r.ip[iface]; has && pkt.DestIP == addr.ip {
		r.arp[iface][pkt.SrcIP] = f.SrcMAC
		if pkt.Protocol == frame.ProtocolICMP && len(pkt.Payload) > 0 && pkt.Payload[0] == frame.ICMPEchoRequest {
			r.sendFrameOn(iface, f.SrcMAC, frame.IPPacket{
				DestIP:   pkt.SrcIP,
				SrcIP:    addr.ip,
				TTL:      64,
				Protocol: frame.ProtocolICMP,
				Payload:  []byte{frame.ICMPEchoReply},
			}.Encode())
		}
		return
	}

	r.forward(pkt)
}
