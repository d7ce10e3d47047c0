// SPDX-License-Identifier: GPL-3.0-or-later

package dohblock

import (
	"fmt"
	"net/netip"
)

// NonRoutableRange is an IPv4 CIDR block that is never globally routable.
//
// Construct using [ParseRange] or [MustParseRange].
type NonRoutableRange struct {
	// Network is the network address with the host bits cleared.
	Network uint32

	// Bits is the prefix length in the 0-32 range.
	Bits int

	// Description is a human readable description of the block.
	Description string
}

// ParseRange parses a CIDR block such as "10.0.0.0/8".
func ParseRange(cidr, description string) (NonRoutableRange, error) {
	prefix, err := netip.ParsePrefix(cidr)
	if err != nil || !prefix.Addr().Is4() {
		return NonRoutableRange{}, fmt.Errorf("%w: %q", ErrInvalidIPv4, cidr)
	}
	value, err := ParseIPv4(prefix.Addr().String())
	if err != nil {
		return NonRoutableRange{}, err
	}
	r := NonRoutableRange{
		Bits:        prefix.Bits(),
		Description: description,
	}
	r.Network = value & r.mask()
	return r, nil
}

// MustParseRange is like [ParseRange] but panics on error.
func MustParseRange(cidr, description string) NonRoutableRange {
	r, err := ParseRange(cidr, description)
	if err != nil {
		panic(err)
	}
	return r
}

// mask returns the network mask corresponding to Bits.
func (r NonRoutableRange) mask() uint32 {
	if r.Bits <= 0 {
		return 0
	}
	return ^uint32(0) << (32 - r.Bits)
}

func (r NonRoutableRange) contains(value uint32) bool {
	mask := r.mask()
	return value&mask == r.Network&mask
}

// Contains returns whether addr is a valid IPv4 address inside the block.
func (r NonRoutableRange) Contains(addr string) bool {
	value, err := ParseIPv4(addr)
	if err != nil {
		return false
	}
	return r.contains(value)
}

// String returns the CIDR notation of the block.
func (r NonRoutableRange) String() string {
	return fmt.Sprintf("%s/%d", formatIPv4(r.Network), r.Bits)
}

// nonRoutableRanges is the IANA special-purpose IPv4 space we consider
// to be evidence of a sinkholed answer.
var nonRoutableRanges = []NonRoutableRange{
	MustParseRange("0.0.0.0/8", "Non-routable (current network)"),
	MustParseRange("10.0.0.0/8", "Private-use (Class A)"),
	MustParseRange("100.64.0.0/10", "Shared Address Space (CGN)"),
	MustParseRange("127.0.0.0/8", "Loopback"),
	MustParseRange("169.254.0.0/16", "Link-Local"),
	MustParseRange("172.16.0.0/12", "Private-use (Class B)"),
	MustParseRange("192.0.0.0/24", "IETF Protocol Assignments"),
	MustParseRange("192.0.2.0/24", "TEST-NET-1"),
	MustParseRange("192.88.99.0/24", "6to4 Relay Anycast"),
	MustParseRange("192.168.0.0/16", "Private-use (Class C)"),
	MustParseRange("198.18.0.0/15", "Benchmark and Testing"),
	MustParseRange("198.51.100.0/24", "TEST-NET-2"),
	MustParseRange("203.0.113.0/24", "TEST-NET-3"),
	MustParseRange("224.0.0.0/4", "Multicast"),
	MustParseRange("240.0.0.0/4", "Reserved for future use"),
	MustParseRange("255.255.255.255/32", "Broadcast"),
}

// NonRoutableRanges returns a copy of the fixed non-routable range catalog.
func NonRoutableRanges() []NonRoutableRange {
	out := make([]NonRoutableRange, len(nonRoutableRanges))
	copy(out, nonRoutableRanges)
	return out
}

// FindRange returns the first range containing addr, if any.
func FindRange(addr string, ranges []NonRoutableRange) (NonRoutableRange, bool) {
	value, err := ParseIPv4(addr)
	if err != nil {
		return NonRoutableRange{}, false
	}
	return findRange(value, ranges)
}

func findRange(value uint32, ranges []NonRoutableRange) (NonRoutableRange, bool) {
	for _, r := range ranges {
		if r.contains(value) {
			return r, true
		}
	}
	return NonRoutableRange{}, false
}
