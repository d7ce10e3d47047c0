// SPDX-License-Identifier: GPL-3.0-or-later

package dohblock

import (
	"encoding/binary"
	"errors"
	"net/netip"
)

// ErrInvalidIPv4 indicates that a string is not a dotted-quad IPv4 literal.
var ErrInvalidIPv4 = errors.New("invalid IPv4 address")

// ParseIPv4 parses a dotted-quad IPv4 literal into its numeric form.
//
// We accept exactly four decimal octets in the 0-255 range. Leading zeros,
// whitespace, IPv6 literals (including IPv4-mapped ones) and zone suffixes
// are rejected with [ErrInvalidIPv4].
func ParseIPv4(s string) (uint32, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return 0, ErrInvalidIPv4
	}
	octets := addr.As4()
	return binary.BigEndian.Uint32(octets[:]), nil
}

// IsValidIPv4 returns whether s is a dotted-quad IPv4 literal.
func IsValidIPv4(s string) bool {
	_, err := ParseIPv4(s)
	return err == nil
}

// InAnyRange returns whether addr falls inside at least one of the ranges.
//
// An invalid addr is never inside any range.
func InAnyRange(addr string, ranges []NonRoutableRange) bool {
	value, err := ParseIPv4(addr)
	if err != nil {
		return false
	}
	return inAnyRange(value, ranges)
}

func inAnyRange(value uint32, ranges []NonRoutableRange) bool {
	_, found := findRange(value, ranges)
	return found
}

// formatIPv4 is the inverse of [ParseIPv4].
func formatIPv4(value uint32) string {
	var octets [4]byte
	binary.BigEndian.PutUint32(octets[:], value)
	return netip.AddrFrom4(octets).String()
}
