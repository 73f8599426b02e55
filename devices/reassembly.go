// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package devices

import "github.com/jmorgadov/nesim/frame"

// endpointReassembler recognizes Frame boundaries in a bit stream read by
// a device (Host or Router interface) that does not know in advance
// where a frame starts: it matches the trailing 16 bits of the stream
// against the device's own MAC or the broadcast MAC, per spec §4.4.
type endpointReassembler struct {
	bits       []int
	collecting bool
	onset      int
	needed     int
}

// PushBit feeds the next inbound bit. It returns the reassembled frame
// bits and true once a full frame addressed to ownMAC (or broadcast) has
// been buffered.
func (r *endpointReassembler) PushBit(bit int, ownMAC uint16) ([]int, bool) {
	r.bits = append(r.bits, bit)

	if !r.collecting {
		if len(r.bits) < 16 {
			return nil, false
		}
		last16 := bitsToUint16(r.bits[len(r.bits)-16:])
		if last16 != ownMAC && last16 != frame.BroadcastMAC {
			return nil, false
		}
		r.collecting = true
		r.onset = len(r.bits) - 16
		r.needed = -1
	}

	avail := len(r.bits) - r.onset
	if r.needed < 0 {
		if avail < 48 {
			return nil, false
		}
		header := r.bits[r.onset : r.onset+48]
		dataSize := bitsToUint(header[32:40])
		checkSize := bitsToUint(header[40:48])
		r.needed = 48 + 8*(dataSize+checkSize)
	}

	if avail < r.needed {
		return nil, false
	}

	frameBits := append([]int(nil), r.bits[r.onset:r.onset+r.needed]...)
	remainder := append([]int(nil), r.bits[r.onset+r.needed:]...)
	r.bits = remainder
	r.collecting = false
	r.onset = 0
	r.needed = -1
	return frameBits, true
}

// Reset clears all buffered state, used on IDLE and on disconnect (spec
// §4.4: "On IDLE (link goes quiet), reassembly state is fully reset"; §9
// Open Questions: disconnect uniformly drops per-port reassembly state).
func (r *endpointReassembler) Reset() {
	r.bits = nil
	r.collecting = false
	r.onset = 0
	r.needed = -1
}

// bridgeReassembler is the Switch's simpler buffer (spec §4.6): a frame
// always starts at the head of the buffer (the switch discards the
// parsed prefix after each successful parse), so no MAC onset matching
// is needed.
type bridgeReassembler struct {
	bits []int
}

// PushBit feeds the next inbound bit and reports whether a full frame is
// now available at the head of the buffer.
func (r *bridgeReassembler) PushBit(bit int) ([]int, bool) {
	r.bits = append(r.bits, bit)
	if len(r.bits) < 48 {
		return nil, false
	}
	header := r.bits[:48]
	dataSize := bitsToUint(header[32:40])
	checkSize := bitsToUint(header[40:48])
	needed := 48 + 8*(dataSize+checkSize)
	if len(r.bits) < needed {
		return nil, false
	}
	frameBits := append([]int(nil), r.bits[:needed]...)
	r.bits = append([]int(nil), r.bits[needed:]...)
	return frameBits, true
}

// Reset clears the buffer, used on disconnect.
func (r *bridgeReassembler) Reset() {
	r.bits = nil
}
