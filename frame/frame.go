// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package frame implements bit-exact encode/decode of the link-layer
// Frame and network-layer IPPacket PDUs from spec §3. Every field in
// both layouts happens to be byte-aligned (48 header bits = 6 bytes for
// Frame, 88 header bits = 11 bytes for IPPacket), so encoding follows the
// teacher's mdns.go field-by-field reader/writer style rather than a
// sub-byte bit-packer; only the wire-transmission layer (package
// sendrecv) ever drives a Frame one bit at a time.
package frame

import (
	"encoding/binary"
	"fmt"
)

// BroadcastMAC is the all-ones 16-bit hardware address.
const BroadcastMAC uint16 = 0xFFFF

// HeaderSize is the fixed-size portion of a Frame in bytes: dest MAC (2),
// source MAC (2), data size (1), check size (1).
const HeaderSize = 6

// Frame is the link-layer PDU described in spec §3.
type Frame struct {
	DestMAC uint16
	SrcMAC  uint16
	Payload []byte
	Check   []byte
}

// Encode serializes f into its wire representation.
func (f Frame) Encode() []byte {
	out := make([]byte, HeaderSize+len(f.Payload)+len(f.Check))
	binary.BigEndian.PutUint16(out[0:2], f.DestMAC)
	binary.BigEndian.PutUint16(out[2:4], f.SrcMAC)
	out[4] = byte(len(f.Payload))
	out[5] = byte(len(f.Check))
	copy(out[HeaderSize:], f.Payload)
	copy(out[HeaderSize+len(f.Payload):], f.Check)
	return out
}

// Decode parses a Frame out of data. It reports an error if the buffer is
// shorter than the minimum header (spec §3: "A Frame is valid iff bit
// length >= 48") or if the declared payload/check sizes do not fit the
// buffer.
func Decode(data []byte) (Frame, error) {
	if len(data) < HeaderSize {
		return Frame{}, fmt.Errorf("frame: too short: %d bytes, need at least %d", len(data), HeaderSize)
	}
	dataSize := int(data[4])
	checkSize := int(data[5])
	want := HeaderSize + dataSize + checkSize
	if len(data) < want {
		return Frame{}, fmt.Errorf("frame: declared length %d exceeds buffer of %d bytes", want, len(data))
	}
	f := Frame{
		DestMAC: binary.BigEndian.Uint16(data[0:2]),
		SrcMAC:  binary.BigEndian.Uint16(data[2:4]),
		Payload: append([]byte(nil), data[HeaderSize:HeaderSize+dataSize]...),
		Check:   append([]byte(nil), data[HeaderSize+dataSize:want]...),
	}
	return f, nil
}

// Len returns the total encoded length of f in bytes.
func (f Frame) Len() int {
	return HeaderSize + len(f.Payload) + len(f.Check)
}
