package peer

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// CodeLength is the length of an address code: 4 address bytes and
// 2 port bytes, two characters each.
const CodeLength = 12

// EncodeAddr は IPv4 アドレスとポートを共有用のコードに変換する
func EncodeAddr(addr *net.UDPAddr) (string, error) {
	ip := addr.IP.To4()
	if ip == nil {
		return "", fmt.Errorf("address code needs an IPv4 address, got %s", addr.IP)
	}

	raw := make([]byte, 6)
	copy(raw, ip)
	binary.BigEndian.PutUint16(raw[4:], uint16(addr.Port))
	return encode52(raw), nil
}

func DecodeAddr(code string) (*net.UDPAddr, error) {
	if len(code) != CodeLength {
		return nil, errBadCode
	}
	raw, err := decode52(code)
	if err != nil {
		return nil, err
	}
	addr := &net.UDPAddr{
		IP:   net.IPv4(raw[0], raw[1], raw[2], raw[3]),
		Port: int(binary.BigEndian.Uint16(raw[4:])),
	}
	// 宛先にならないアドレスはコードとして扱わない
	if addr.IP.IsUnspecified() || addr.Port == 0 {
		return nil, errBadCode
	}
	return addr, nil
}

// ParseAddr accepts "host:port", a bare host (defaultPort is used) or an
// address code.
func ParseAddr(s string, defaultPort int) (*net.UDPAddr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty address")
	}

	if _, _, err := net.SplitHostPort(s); err == nil {
		return net.ResolveUDPAddr("udp", s)
	}

	if net.ParseIP(s) == nil && len(s) == CodeLength {
		if addr, err := DecodeAddr(s); err == nil {
			return addr, nil
		}
	}

	return net.ResolveUDPAddr("udp", net.JoinHostPort(s, strconv.Itoa(defaultPort)))
}
