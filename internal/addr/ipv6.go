// Package addr classifies IPv6 addresses by routability.
//
// All predicates work on the raw 128-bit value of the address. They are
// pure and never panic; anything that is not an IPv6 address (an IPv4
// address or the zero netip.Addr) is reported as not matching.
package addr

import (
	"encoding/binary"
	"net/netip"
)

// Segments returns the eight big-endian 16-bit groups of a.
func Segments(a netip.Addr) [8]uint16 {
	b := a.As16()
	var s [8]uint16
	for i := range s {
		s[i] = binary.BigEndian.Uint16(b[2*i:])
	}
	return s
}

func words(a netip.Addr) (hi, lo uint64) {
	b := a.As16()
	return binary.BigEndian.Uint64(b[:8]), binary.BigEndian.Uint64(b[8:])
}

// IsUnicastLinkLocal reports whether a is in fe80::/10.
func IsUnicastLinkLocal(a netip.Addr) bool {
	if !a.Is6() {
		return false
	}
	return Segments(a)[0]&0xffc0 == 0xfe80
}

// IsUniqueLocal reports whether a is in fc00::/7.
func IsUniqueLocal(a netip.Addr) bool {
	if !a.Is6() {
		return false
	}
	return Segments(a)[0]&0xfe00 == 0xfc00
}

// IsGlobal reports whether a is outside the special-purpose blocks of the
// IANA IPv6 registry that are not globally reachable. Link-local and
// unique-local space is handled separately by IsGlobalExternal.
func IsGlobal(a netip.Addr) bool {
	if !a.Is6() {
		return false
	}

	hi, lo := words(a)
	s := Segments(a)

	switch {
	case hi == 0 && lo == 0: // ::
		return false
	case hi == 0 && lo == 1: // ::1
		return false
	case hi == 0 && lo>>32 == 0xffff: // ::ffff:0:0/96
		return false
	case s[0] == 0x64 && s[1] == 0xff9b && s[2] == 1: // 64:ff9b:1::/48
		return false
	case hi == 0x0100_0000_0000_0000: // 100::/64
		return false
	case s[0] == 0x2001 && s[1] < 0x200: // 2001::/23
		return isProtocolAssignmentException(a)
	}
	return true
}

// isProtocolAssignmentException reports whether a, already known to be in
// 2001::/23, is one of the globally reachable carve-outs of that block.
func isProtocolAssignmentException(a netip.Addr) bool {
	hi, lo := words(a)
	s := Segments(a)

	switch {
	case hi == 0x2001_0001_0000_0000 && lo == 1: // 2001:1::1, PCP anycast
		return true
	case hi == 0x2001_0001_0000_0000 && lo == 2: // 2001:1::2, TURN anycast
		return true
	case s[1] == 3: // 2001:3::/32, AMT
		return true
	case s[1] == 4 && s[2] == 0x112: // 2001:4:112::/48, AS112-v6
		return true
	case s[1] >= 0x20 && s[1] <= 0x2f: // 2001:20::/28, ORCHIDv2
		return true
	}
	return false
}

// IsGlobalExternal reports whether a is routable on the public internet.
func IsGlobalExternal(a netip.Addr) bool {
	return IsGlobal(a) && !IsUniqueLocal(a) && !IsUnicastLinkLocal(a)
}
