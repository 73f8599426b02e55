// Copyright 2019 The Fuchsia Authors. All rights reserved.
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package ipaddr implements the raw 32-bit address and mask type used by
// the router's longest-prefix matching (spec §3). It deliberately avoids
// net.IP: spec §3 requires raw 32-bit bitwise AND for prefix comparison,
// and the original nesim.ip.IP is a plain integer, not a 4/16-byte slice.
package ipaddr

import (
	"fmt"
	"strconv"
	"strings"
)

// IP is a 32-bit network address, MSB first (the first dot-decimal octet
// occupies the high byte).
type IP uint32

// Mask is a 32-bit netmask, same bit layout as IP.
type Mask uint32

// Parse converts a dot-decimal string such as "10.0.0.1" into an IP.
func Parse(s string) (IP, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, fmt.Errorf("ipaddr: invalid address %q: expected 4 octets", s)
	}
	var v uint32
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("ipaddr: invalid octet %q in %q: %v", p, s, err)
		}
		if n < 0 || n > 255 {
			return 0, fmt.Errorf("ipaddr: octet %d out of range in %q", n, s)
		}
		v = (v << 8) | uint32(n)
	}
	return IP(v), nil
}

// ParseMask parses a dot-decimal mask the same way Parse does.
func ParseMask(s string) (Mask, error) {
	ip, err := Parse(s)
	if err != nil {
		return 0, fmt.Errorf("ipaddr: invalid mask: %v", err)
	}
	return Mask(ip), nil
}

// String renders the IP in dot-decimal form.
func (ip IP) String() string {
	return fmt.Sprintf("%d.%d.%d.%d",
		byte(ip>>24), byte(ip>>16), byte(ip>>8), byte(ip))
}

// String renders the Mask in dot-decimal form.
func (m Mask) String() string {
	return IP(m).String()
}

// Masked returns ip & mask, as raw 32-bit bitwise AND (spec §3).
func (ip IP) Masked(mask Mask) IP {
	return IP(uint32(ip) & uint32(mask))
}

// Ones reports the number of set bits in the mask, used to order Routes
// by decreasing prefix length (longer prefix first, spec §3).
func (m Mask) Ones() int {
	n := 0
	for v := uint32(m); v != 0; v >>= 1 {
		n += int(v & 1)
	}
	return n
}

// Bytes returns the 4-byte big-endian encoding of the address.
func (ip IP) Bytes() [4]byte {
	return [4]byte{byte(ip >> 24), byte(ip >> 16), byte(ip >> 8), byte(ip)}
}

// FromBytes reconstructs an IP from its 4-byte big-endian encoding.
func FromBytes(b [4]byte) IP {
	return IP(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
}
