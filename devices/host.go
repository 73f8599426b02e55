// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package devices

import (
	"fmt"
	"math/rand"

	"github.com/jmorgadov/nesim/errdetect"
	"github.com/jmorgadov/nesim/frame"
	"github.com/jmorgadov/nesim/ipaddr"
	"github.com/jmorgadov/nesim/wire"
)

// DataRecord is one entry of a Host's link-layer receipt log
// ({name}_data.txt, spec §6).
type DataRecord struct {
	Tick    int
	SrcMAC  uint16
	Payload []byte
	Error   bool
}

// PayloadRecord is one entry of a Host's network-layer receipt log
// ({name}_payload.txt, spec §6).
type PayloadRecord struct {
	Tick     int
	SrcIP    ipaddr.IP
	Protocol byte
	Payload  []byte
}

type ifaceAddr struct {
	ip   ipaddr.IP
	mask ipaddr.Mask
}

// Host is the network endpoint described in spec §4.4: a single port,
// one MAC/IP pair per interface, an ARP-like table, a pending-ARP queue,
// and a frame reassembler.
type Host struct {
	name string
	port *Port

	mac map[int]uint16
	ip  map[int]ifaceAddr

	arp        map[ipaddr.IP]uint16
	pendingARP map[ipaddr.IP][]frame.IPPacket

	reasm *endpointReassembler
	algo  errdetect.Algorithm
	errProb float64
	rng     *rand.Rand

	tick int
	Log     []LogEntry
	DataLog []DataRecord
	PayloadLog []PayloadRecord
}

// NewHost creates a Host with a single port bound to a fresh
// SendReceiver.
func NewHost(name string, signalTime int, algo errdetect.Algorithm, errProb float64, rng *rand.Rand) *Host {
	h := &Host{
		name:       name,
		mac:        map[int]uint16{},
		ip:         map[int]ifaceAddr{},
		arp:        map[ipaddr.IP]uint16{},
		pendingARP: map[ipaddr.IP][]frame.IPPacket{},
		reasm:      &endpointReassembler{},
		algo:       algo,
		errProb:    errProb,
		rng:        rng,
	}
	ps := NewPortSet(name, 1, signalTime, rng, h)
	h.port = ps.Port(1)
	return h
}

func (h *Host) Name() string { return h.name }

// Port returns the Host's single port, for the sim package to attach a
// Duplex endpoint to.
func (h *Host) Port(index int) *Port {
	if index != 1 {
		return nil
	}
	return h.port
}

// Connect attaches a Duplex endpoint to the Host's single port.
func (h *Host) Connect(index int, arena *wire.Arena, ep wire.Endpoint, simple bool) error {
	if index != 1 {
		return errTopology("host %s has only port 1", h.name)
	}
	return attachPort(h.port, arena, ep, simple)
}

func (h *Host) SetMAC(iface int, mac uint16) { h.mac[iface] = mac }

func (h *Host) SetIP(iface int, ip ipaddr.IP, mask ipaddr.Mask) {
	h.ip[iface] = ifaceAddr{ip: ip, mask: mask}
}

func (h *Host) ownMAC() uint16 { return h.mac[1] }

func (h *Host) ownIP() (ipaddr.IP, bool) {
	a, ok := h.ip[1]
	return a.ip, ok
}

// OwnIP returns the Host's interface-1 IP, for callers (instruction
// handlers) that need to stamp a packet's source address.
func (h *Host) OwnIP() (ipaddr.IP, bool) { return h.ownIP() }

func (h *Host) log(action, info string) {
	h.Log = append(h.Log, LogEntry{Tick: h.tick, Action: action, Info: info})
}

// Send enqueues raw bits directly on port 1 (instruction "send", spec
// §6). A zero-length payload produces no Frame (spec §8 boundary).
func (h *Host) Send(bits []int) {
	if len(bits) == 0 {
		return
	}
	h.port.SR.Enqueue(bits)
}

// SendFrame builds a Frame with the configured error-detection algorithm
// and enqueues it, optionally corrupting one random payload/check bit
// (spec §4.4).
func (h *Host) SendFrame(destMAC uint16, payload []byte) {
	check := h.algo.Encode(payload)
	f := frame.Frame{DestMAC: destMAC, SrcMAC: h.ownMAC(), Payload: payload, Check: check}
	bits := bytesToBits(f.Encode())

	headerBits := frame.HeaderSize * 8
	if h.rng.Float64() < h.errProb && len(bits) > headerBits {
		idx := headerBits + h.rng.Intn(len(bits)-headerBits)
		bits[idx] ^= 1
	}
	h.port.SR.Enqueue(bits)
}

// SendIPPacket enqueues pkt if the destination MAC is already known,
// otherwise queues it pending ARP resolution and broadcasts an ARPQ
// (spec §4.4).
func (h *Host) SendIPPacket(pkt frame.IPPacket) {
	if mac, ok := h.arp[pkt.DestIP]; ok {
		h.SendFrame(mac, pkt.Encode())
		return
	}
	h.pendingARP[pkt.DestIP] = append(h.pendingARP[pkt.DestIP], pkt)
	h.SendFrame(frame.BroadcastMAC, frame.EncodeARPQ(pkt.DestIP))
	h.log("ARPQ", pkt.DestIP.String())
}

// Ping sends an ICMP echo request to destIP.
func (h *Host) Ping(destIP ipaddr.IP) {
	srcIP, _ := h.ownIP()
	h.SendIPPacket(frame.IPPacket{
		DestIP:   destIP,
		SrcIP:    srcIP,
		TTL:      64,
		Protocol: frame.ProtocolICMP,
		Payload:  []byte{frame.ICMPEchoRequest},
	})
}

func (h *Host) drainPending(ip ipaddr.IP, mac uint16) {
	pkts := h.pendingARP[ip]
	delete(h.pendingARP, ip)
	for _, p := range pkts {
		h.SendFrame(mac, p.Encode())
	}
}

// Update advances the transmit state machine (spec §4.8 step 3).
func (h *Host) Update(tick int) {
	h.tick = tick
	h.port.SR.Update()
}

// Sample runs the receive sampling phase (spec §4.8 step 6).
func (h *Host) Sample(tick int) {
	h.tick = tick
	h.port.SR.Sample()
}

// IsActive reports whether the Host's port still has transmit work.
func (h *Host) IsActive() bool { return h.port.SR.IsActive() }

// Disconnect detaches port 1 and drops reassembly state (spec §9 Open
// Questions: uniform disconnect behavior).
func (h *Host) Disconnect() {
	detachPort(h.port)
	h.reasm.Reset()
}

func (h *Host) onPortSend(_ int, bit int) {
	h.log("Sent", fmt.Sprintf("%d", bit))
}

func (h *Host) onPortCollision(_ int) {
	h.log("Collision", "")
}

// onPortIdle drops in-progress reassembly state once the link has carried
// no bit for a full signal window (spec §4.4: "On IDLE (link goes quiet),
// reassembly state is fully reset").
func (h *Host) onPortIdle(_ int) {
	h.reasm.Reset()
}

func (h *Host) onPortReceive(_ int, bit int) {
	frameBits, ok := h.reasm.PushBit(bit, h.ownMAC())
	if !ok {
		return
	}
	h.handleFrame(bitsToBytes(frameBits))
}

func (h *Host) handleFrame(data []byte) {
	f, err := frame.Decode(data)
	if err != nil {
		return
	}
	if !h.algo.Verify(f.Payload, f.Check) {
		h.DataLog = append(h.DataLog, DataRecord{Tick: h.tick, SrcMAC: f.SrcMAC, Payload: f.Payload, Error: true})
		h.log("ERROR", fmt.Sprintf("frame from %04x failed verification", f.SrcMAC))
		return
	}
	h.DataLog = append(h.DataLog, DataRecord{Tick: h.tick, SrcMAC: f.SrcMAC, Payload: f.Payload})

	if f.DestMAC == frame.BroadcastMAC {
		if ip, ok := frame.DecodeARPQ(f.Payload); ok {
			if myIP, has := h.ownIP(); has && ip == myIP {
				reply := myIP.Bytes()
				h.SendFrame(f.SrcMAC, reply[:])
			}
		}
		return
	}

	if f.DestMAC != h.ownMAC() {
		return
	}

	if len(f.Payload) == 4 {
		var b [4]byte
		copy(b[:], f.Payload)
		ip := ipaddr.FromBytes(b)
		h.arp[ip] = f.SrcMAC
		h.drainPending(ip, f.SrcMAC)
		return
	}

	pkt, err := frame.DecodeIPPacket(f.Payload)
	if err != nil {
		return
	}
	myIP, has := h.ownIP()
	if !has || pkt.DestIP != myIP {
		return
	}
	h.arp[pkt.SrcIP] = f.SrcMAC

	if pkt.Protocol == frame.ProtocolICMP && len(pkt.Payload) > 0 && pkt.Payload[0] == frame.ICMPEchoRequest {
		h.SendIPPacket(frame.IPPacket{
			DestIP:   pkt.SrcIP,
			SrcIP:    myIP,
			TTL:      64,
			Protocol: frame.ProtocolICMP,
			Payload:  []byte{frame.ICMPEchoReply},
		})
		return
	}

	h.PayloadLog = append(h.PayloadLog, PayloadRecord{
		Tick:     h.tick,
		SrcIP:    pkt.SrcIP,
		Protocol: pkt.Protocol,
		Payload:  pkt.Payload,
	})
}
