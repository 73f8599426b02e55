// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package devices

import (
	"math/rand"
	"testing"

	"github.com/jmorgadov/nesim/errdetect"
	"github.com/jmorgadov/nesim/frame"
)

func newTestHost(t *testing.T, name string, errProb float64, rng *rand.Rand) *Host {
	t.Helper()
	algo, err := errdetect.Get("simple_hash")
	if err != nil {
		t.Fatalf("errdetect.Get: %v", err)
	}
	return NewHost(name, 10, algo, errProb, rng)
}

func TestHostSendZeroLengthProducesNoFrame(t *testing.T) {
	h := newTestHost(t, "A", 0, rand.New(rand.NewSource(1)))
	h.SetMAC(1, 0x0001)

	h.Send(nil)

	if h.port.SR.Pending() != 0 {
		t.Errorf("Pending() = %d after Send(nil), want 0 (spec §8: zero-length payload produces no Frame)", h.port.SR.Pending())
	}
}

func TestHostSendFrameEnqueuesBits(t *testing.T) {
	h := newTestHost(t, "A", 0, rand.New(rand.NewSource(1)))
	h.SetMAC(1, 0x0001)

	h.SendFrame(0x0002, []byte{0xAB})

	if h.port.SR.Pending() == 0 {
		t.Errorf("Pending() = 0 after SendFrame, want enqueued frame bits")
	}
}

// TestHostReceivesFrameAddressedToIt drives a Host's reassembler and
// handler directly by feeding the bits of a well-formed frame, as the
// port's SendReceiver would via OnReceive.
func TestHostReceivesFrameAddressedToIt(t *testing.T) {
	h := newTestHost(t, "B", 0, rand.New(rand.NewSource(1)))
	h.SetMAC(1, 0x0002)

	algo, _ := errdetect.Get("simple_hash")
	payload := []byte{0xAB}
	f := frame.Frame{DestMAC: 0x0002, SrcMAC: 0x0001, Payload: payload, Check: algo.Encode(payload)}
	bits := bytesToBits(f.Encode())

	for _, b := range bits {
		h.onPortReceive(0, b)
	}

	if len(h.DataLog) != 1 {
		t.Fatalf("DataLog = %+v, want one record", h.DataLog)
	}
	if h.DataLog[0].Error {
		t.Errorf("DataLog[0].Error = true, want false for a valid checksum")
	}
	if h.DataLog[0].SrcMAC != 0x0001 {
		t.Errorf("DataLog[0].SrcMAC = %#04x, want 0x0001", h.DataLog[0].SrcMAC)
	}
}

func TestHostDetectsCorruptedFrame(t *testing.T) {
	h := newTestHost(t, "B", 0, rand.New(rand.NewSource(1)))
	h.SetMAC(1, 0x0002)

	payload := []byte{0xAB}
	f := frame.Frame{DestMAC: 0x0002, SrcMAC: 0x0001, Payload: payload, Check: []byte{0xFF, 0xFF}}
	bits := bytesToBits(f.Encode())

	for _, b := range bits {
		h.onPortReceive(0, b)
	}

	if len(h.DataLog) != 1 || !h.DataLog[0].Error {
		t.Fatalf("DataLog = %+v, want a single ERROR record", h.DataLog)
	}
}

// TestHostIdleResetsReassembly feeds a dangling MAC-onset match (bits that
// look like the start of a frame addressed to this Host, but never
// complete) and checks that onPortIdle drops it, so a genuine later frame
// is not corrupted by a stale partial match (spec §4.4: "On IDLE (link
// goes quiet), reassembly state is fully reset").
func TestHostIdleResetsReassembly(t *testing.T) {
	h := newTestHost(t, "B", 0, rand.New(rand.NewSource(1)))
	h.SetMAC(1, 0x0002)

	for _, b := range bytesToBits([]byte{0x00, 0x02}) {
		h.onPortReceive(0, b)
	}
	if !h.reasm.collecting {
		t.Fatalf("reassembler did not start collecting on a matching MAC onset")
	}

	h.onPortIdle(0)
	if h.reasm.collecting {
		t.Errorf("reassembler still collecting after onPortIdle, want reset")
	}

	algo, _ := errdetect.Get("simple_hash")
	payload := []byte{0xAB}
	f := frame.Frame{DestMAC: 0x0002, SrcMAC: 0x0001, Payload: payload, Check: algo.Encode(payload)}
	for _, b := range bytesToBits(f.Encode()) {
		h.onPortReceive(0, b)
	}
	if len(h.DataLog) != 1 || h.DataLog[0].Error {
		t.Fatalf("DataLog = %+v, want one clean record after idle reset", h.DataLog)
	}
}

func TestHostARPResolutionQueuesThenDrains(t *testing.T) {
	h := newTestHost(t, "A", 0, rand.New(rand.NewSource(1)))
	h.SetMAC(1, 0x0001)
	h.SetIP(1, mustIP(t, "10.0.0.1"), mustMask(t, "255.255.255.0"))

	destIP := mustIP(t, "10.0.0.2")
	h.SendIPPacket(frame.IPPacket{DestIP: destIP, SrcIP: mustIP(t, "10.0.0.1"), TTL: 64})

	if _, pending := h.pendingARP[destIP]; !pending {
		t.Fatalf("pendingARP[%v] missing, want the packet queued pending ARP", destIP)
	}
	if h.port.SR.Pending() == 0 {
		t.Fatalf("no ARPQ broadcast was enqueued")
	}

	// B replies with its MAC (a 4-byte payload addressed to A).
	algo, _ := errdetect.Get("simple_hash")
	ipBytes := destIP.Bytes()
	reply := frame.Frame{DestMAC: 0x0001, SrcMAC: 0x0002, Payload: ipBytes[:], Check: algo.Encode(ipBytes[:])}
	for _, b := range bytesToBits(reply.Encode()) {
		h.onPortReceive(0, b)
	}

	if _, stillPending := h.pendingARP[destIP]; stillPending {
		t.Errorf("pendingARP[%v] still present after ARP reply, want drained", destIP)
	}
	if mac := h.arp[destIP]; mac != 0x0002 {
		t.Errorf("arp[%v] = %#04x, want 0x0002", destIP, mac)
	}
}

func TestHostICMPEchoReplies(t *testing.T) {
	h := newTestHost(t, "B", 0, rand.New(rand.NewSource(1)))
	h.SetMAC(1, 0x0002)
	myIP := mustIP(t, "10.0.0.2")
	h.SetIP(1, myIP, mustMask(t, "255.255.255.0"))

	peerIP := mustIP(t, "10.0.0.1")
	ping := frame.IPPacket{DestIP: myIP, SrcIP: peerIP, TTL: 64, Protocol: frame.ProtocolICMP, Payload: []byte{frame.ICMPEchoRequest}}
	algo, _ := errdetect.Get("simple_hash")
	encoded := ping.Encode()
	f := frame.Frame{DestMAC: 0x0002, SrcMAC: 0x0001, Payload: encoded, Check: algo.Encode(encoded)}

	for _, b := range bytesToBits(f.Encode()) {
		h.onPortReceive(0, b)
	}

	if h.port.SR.Pending() == 0 {
		t.Errorf("no ICMP echo reply was enqueued")
	}
}
