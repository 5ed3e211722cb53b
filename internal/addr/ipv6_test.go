package addr

import (
	"math/rand"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
)

// randomIn returns n addresses inside prefix p using a fixed seed.
func randomIn(t *testing.T, p string, n int) []netip.Addr {
	t.Helper()
	prefix := netip.MustParsePrefix(p)
	base := prefix.Addr().As16()
	rng := rand.New(rand.NewSource(42))

	out := make([]netip.Addr, 0, n)
	for i := 0; i < n; i++ {
		var b [16]byte
		rng.Read(b[:])
		for bit := 0; bit < prefix.Bits(); bit++ {
			mask := byte(0x80 >> (bit % 8))
			b[bit/8] = b[bit/8]&^mask | base[bit/8]&mask
		}
		a := netip.AddrFrom16(b)
		if !prefix.Contains(a) {
			t.Fatalf("generated %s outside %s", a, prefix)
		}
		out = append(out, a)
	}
	return out
}

func TestSegments(t *testing.T) {
	s := Segments(netip.MustParseAddr("2001:db8:1:2:3:4:5:6"))
	assert.Equal(t, [8]uint16{0x2001, 0xdb8, 1, 2, 3, 4, 5, 6}, s)
}

func TestIsUnicastLinkLocal(t *testing.T) {
	assert.True(t, IsUnicastLinkLocal(netip.MustParseAddr("fe80::1")))
	assert.True(t, IsUnicastLinkLocal(netip.MustParseAddr("febf:ffff::1")))
	assert.False(t, IsUnicastLinkLocal(netip.MustParseAddr("fec0::1")))
	assert.False(t, IsUnicastLinkLocal(netip.MustParseAddr("2606:4700:4700::1111")))
	assert.False(t, IsUnicastLinkLocal(netip.MustParseAddr("169.254.0.1")))
}

func TestIsUniqueLocal(t *testing.T) {
	assert.True(t, IsUniqueLocal(netip.MustParseAddr("fc00::1")))
	assert.True(t, IsUniqueLocal(netip.MustParseAddr("fdff:ffff::1")))
	assert.False(t, IsUniqueLocal(netip.MustParseAddr("fe00::1")))
	assert.False(t, IsUniqueLocal(netip.MustParseAddr("fbff::1")))
}

func TestIsGlobalExternal_LinkLocalBlock(t *testing.T) {
	for _, a := range randomIn(t, "fe80::/10", 500) {
		assert.False(t, IsGlobalExternal(a), a.String())
	}
}

func TestIsGlobalExternal_UniqueLocalBlock(t *testing.T) {
	for _, a := range randomIn(t, "fc00::/7", 500) {
		assert.False(t, IsGlobalExternal(a), a.String())
	}
}

func TestIsGlobalExternal_SpecialAddresses(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{"::", false},
		{"::1", false},
		{"::ffff:192.0.2.1", false},
		{"::ffff:0:0", false},
		{"64:ff9b:1::1", false},
		{"64:ff9b:1:ffff::1", false},
		{"64:ff9b::1", true},
		{"100::", false},
		{"100::ffff:ffff:ffff:ffff", false},
		{"100:0:0:1::1", true},
		{"2001::1", false},
		{"2001:1::3", false},
		{"2001:2::1", false},
		{"2001:4::1", false},
		{"2001:4:113::1", false},
		{"2001:1ff::1", false},
		{"2001:200::1", true},
		{"2606:4700:4700::1111", true},
		{"2a00:1450:4001:82b::200e", true},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, IsGlobalExternal(netip.MustParseAddr(tt.addr)))
		})
	}
}

func TestIsGlobalExternal_AnycastExceptions(t *testing.T) {
	assert.True(t, IsGlobalExternal(netip.MustParseAddr("2001:1::1")))
	assert.True(t, IsGlobalExternal(netip.MustParseAddr("2001:1::2")))
	assert.False(t, IsGlobalExternal(netip.MustParseAddr("2001:1::")))
	assert.False(t, IsGlobalExternal(netip.MustParseAddr("2001:1::1:1")))
}

func TestIsGlobalExternal_BlockExceptions(t *testing.T) {
	for _, p := range []string{"2001:3::/32", "2001:4:112::/48", "2001:20::/28"} {
		for _, a := range randomIn(t, p, 200) {
			assert.True(t, IsGlobalExternal(a), "%s in %s", a, p)
		}
	}
}

func TestIsGlobalExternal_OrchidRangeBounds(t *testing.T) {
	for seg := uint16(0x20); seg <= 0x2f; seg++ {
		a := netip.AddrFrom16([16]byte{0x20, 0x01, byte(seg >> 8), byte(seg), 15: 1})
		assert.True(t, IsGlobalExternal(a), a.String())
	}
	assert.False(t, IsGlobalExternal(netip.MustParseAddr("2001:1f::1")))
	assert.False(t, IsGlobalExternal(netip.MustParseAddr("2001:30::1")))
}

func TestIsGlobalExternal_ProtocolAssignmentsBlock(t *testing.T) {
	for _, a := range randomIn(t, "2001::/23", 2000) {
		s := Segments(a)
		exception := s[1] == 3 ||
			(s[1] == 4 && s[2] == 0x112) ||
			(s[1] >= 0x20 && s[1] <= 0x2f)
		assert.Equal(t, exception, IsGlobalExternal(a), a.String())
	}
}

func TestIsGlobalExternal_NonIPv6(t *testing.T) {
	assert.False(t, IsGlobalExternal(netip.Addr{}))
	assert.False(t, IsGlobalExternal(netip.MustParseAddr("8.8.8.8")))
}

func TestIsGlobalExternal_NeverPanics(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	assert.NotPanics(t, func() {
		for i := 0; i < 10000; i++ {
			var b [16]byte
			rng.Read(b[:])
			_ = IsGlobalExternal(netip.AddrFrom16(b))
		}
	})
}
