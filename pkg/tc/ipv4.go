package tc

import (
	"encoding/binary"
	"fmt"
	"net"
)

// ipv4ToU32 converts a dotted-quad (optionally with a /mask) into the
// big-endian uint32 value and full-match mask a u32 filter key expects.
func ipv4ToU32(addr string) (val, mask uint32, err error) {
	host, _, cidrErr := net.ParseCIDR(addr)
	if cidrErr == nil {
		addr = host.String()
	}

	ip := net.ParseIP(addr)
	if ip == nil {
		return 0, 0, fmt.Errorf("invalid IPv4 address %q", addr)
	}
	v4 := ip.To4()
	if v4 == nil {
		return 0, 0, fmt.Errorf("address %q is not IPv4", addr)
	}
	return binary.BigEndian.Uint32(v4), 0xFFFFFFFF, nil
}
