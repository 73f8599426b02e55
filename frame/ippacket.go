// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package frame

import (
	"encoding/binary"
	"fmt"

	"github.com/jmorgadov/nesim/ipaddr"
)

// ProtocolICMP is the IPPacket protocol field value carrying an ICMP
// message (spec §3).
const ProtocolICMP = 1

// IPPacketHeaderSize is the fixed-size portion of an IPPacket in bytes:
// dest IP (4), source IP (4), TTL (1), protocol (1), payload size (1).
const IPPacketHeaderSize = 11

// IPPacket is the network-layer PDU described in spec §3.
type IPPacket struct {
	DestIP   ipaddr.IP
	SrcIP    ipaddr.IP
	TTL      byte
	Protocol byte
	Payload  []byte
}

// Encode serializes p into its wire representation.
func (p IPPacket) Encode() []byte {
	out := make([]byte, IPPacketHeaderSize+len(p.Payload))
	binary.BigEndian.PutUint32(out[0:4], uint32(p.DestIP))
	binary.BigEndian.PutUint32(out[4:8], uint32(p.SrcIP))
	out[8] = p.TTL
	out[9] = p.Protocol
	out[10] = byte(len(p.Payload))
	copy(out[IPPacketHeaderSize:], p.Payload)
	return out
}

// DecodeIPPacket parses an IPPacket out of data.
func DecodeIPPacket(data []byte) (IPPacket, error) {
	if len(data) < IPPacketHeaderSize {
		return IPPacket{}, fmt.Errorf("ippacket: too short: %d bytes, need at least %d", len(data), IPPacketHeaderSize)
	}
	size := int(data[10])
	want := IPPacketHeaderSize + size
	if len(data) < want {
		return IPPacket{}, fmt.Errorf("ippacket: declared length %d exceeds buffer of %d bytes", want, len(data))
	}
	p := IPPacket{
		DestIP:   ipaddr.IP(binary.BigEndian.Uint32(data[0:4])),
		SrcIP:    ipaddr.IP(binary.BigEndian.Uint32(data[4:8])),
		TTL:      data[8],
		Protocol: data[9],
		Payload:  append([]byte(nil), data[IPPacketHeaderSize:want]...),
	}
	return p, nil
}

// Len returns the total encoded length of p in bytes.
func (p IPPacket) Len() int {
	return IPPacketHeaderSize + len(p.Payload)
}

// ICMP opcodes used by the simplified echo request/reply exchange (spec
// §4.4): EchoRequest is carried as the first payload byte of an ICMP
// IPPacket, EchoReply is the response.
const (
	ICMPEchoRequest = 8
	ICMPEchoReply   = 0
)

// arpqMagic is the literal payload prefix identifying an ARPQ broadcast
// frame (spec GLOSSARY).
var arpqMagic = [4]byte{'A', 'R', 'P', 'Q'}

// EncodeARPQ builds the payload of an ARPQ broadcast frame: the literal
// "ARPQ" followed by the 32-bit IP being queried.
func EncodeARPQ(ip ipaddr.IP) []byte {
	b := ip.Bytes()
	return append(append([]byte{}, arpqMagic[:]...), b[:]...)
}

// DecodeARPQ reports whether payload is an ARPQ frame and, if so, the IP
// it queries.
func DecodeARPQ(payload []byte) (ipaddr.IP, bool) {
	if len(payload) != 8 {
		return 0, false
	}
	for i, b := range arpqMagic {
		if payload[i] != b {
			return 0, false
		}
	}
	return ipaddr.IP(binary.BigEndian.Uint32(payload[4:8])), true
}
