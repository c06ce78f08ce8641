package util

import (
	"net"
	"strconv"
	"strings"
)

// IsIPv4 accepts dotted-quad text only; IPv4-mapped IPv6 forms such as
// "::ffff:10.0.0.5" are rejected.
func IsIPv4(ipAddr string) bool {
	ip := net.ParseIP(ipAddr)
	return ip != nil && ip.To4() != nil && !strings.Contains(ipAddr, ":")
}

// DottedQuad formats 4 raw address bytes as a.b.c.d without allocating a net.IP.
func DottedQuad(b []byte) string {
	buf := make([]byte, 0, 15)
	for i := 0; i < 4; i++ {
		if i > 0 {
			buf = append(buf, '.')
		}
		buf = strconv.AppendUint(buf, uint64(b[i]), 10)
	}
	return string(buf)
}

// StripMask turns "10.0.0.1/24" into "10.0.0.1".
func StripMask(addr string) string {
	if idx := strings.IndexByte(addr, '/'); idx >= 0 {
		return addr[:idx]
	}
	return addr
}
