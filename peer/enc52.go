package peer

import (
	"errors"
	"strings"
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

var errBadCode = errors.New("invalid address code")

// 1 バイトを 52 進 2 文字で表す
func encode52(data []byte) string {
	var sb strings.Builder
	sb.Grow(len(data) * 2)
	for _, b := range data {
		sb.WriteByte(alphabet[b/52])
		sb.WriteByte(alphabet[b%52])
	}
	return sb.String()
}

func decode52(encoded string) ([]byte, error) {
	if len(encoded)%2 != 0 {
		return nil, errBadCode
	}
	decoded := make([]byte, len(encoded)/2)
	for i := 0; i < len(encoded); i += 2 {
		high := strings.IndexByte(alphabet, encoded[i])
		low := strings.IndexByte(alphabet, encoded[i+1])
		if high < 0 || low < 0 || high*52+low > 0xff {
			return nil, errBadCode
		}
		decoded[i/2] = byte(high*52 + low)
	}
	return decoded, nil
}
