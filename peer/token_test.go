package peer

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddrCodeRoundTrip(t *testing.T) {
	addr := &net.UDPAddr{IP: net.ParseIP("192.168.1.20"), Port: 7777}

	code, err := EncodeAddr(addr)
	require.NoError(t, err)
	assert.Len(t, code, CodeLength)

	got, err := DecodeAddr(code)
	require.NoError(t, err)
	assert.True(t, SameAddr(addr, got))
}

func TestEncodeAddrRejectsIPv6(t *testing.T) {
	_, err := EncodeAddr(&net.UDPAddr{IP: net.ParseIP("::1"), Port: 7777})
	assert.Error(t, err)
}

func TestDecodeAddrRejectsGarbage(t *testing.T) {
	for _, code := range []string{"", "ABC", "ABCDEFGHIJK1", "zzzzzzzzzzzz"} {
		_, err := DecodeAddr(code)
		assert.Error(t, err, code)
	}
}

func TestDecodeAddrRejectsUnroutable(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"all zero", []byte{0, 0, 0, 0, 0, 0}},
		{"unspecified ip", []byte{0, 0, 0, 0, 0x1e, 0x61}},
		{"port zero", []byte{192, 168, 1, 10, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code := encode52(tt.raw)
			require.Len(t, code, CodeLength)
			_, err := DecodeAddr(code)
			assert.ErrorIs(t, err, errBadCode)
		})
	}

	// 12 文字の英字ホスト名がコードとして 0.0.0.0:0 に解釈されない
	_, err := DecodeAddr("AAAAAAAAAAAA")
	assert.Error(t, err)
}

func TestParseAddr(t *testing.T) {
	code, err := EncodeAddr(&net.UDPAddr{IP: net.IPv4(10, 0, 0, 5), Port: 9000})
	require.NoError(t, err)

	tests := []struct {
		in   string
		ip   string
		port int
	}{
		{"127.0.0.1:8000", "127.0.0.1", 8000},
		{"127.0.0.1", "127.0.0.1", 7777},
		{" 10.1.2.3 ", "10.1.2.3", 7777},
		{code, "10.0.0.5", 9000},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			addr, err := ParseAddr(tt.in, 7777)
			require.NoError(t, err)
			assert.Equal(t, tt.ip, addr.IP.String())
			assert.Equal(t, tt.port, addr.Port)
		})
	}

	_, err = ParseAddr("", 7777)
	assert.Error(t, err)
}
