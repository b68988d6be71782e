package network

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

const (
	// ヘッダーサイズ
	KindSize     = 1
	OpSize       = 1
	SequenceSize = 1
	SenderSize   = 32
	LengthSize   = 4
	HeaderSize   = KindSize + OpSize + SequenceSize + SenderSize + LengthSize

	MaxDatagramSize = 1024
	MaxPayloadSize  = MaxDatagramSize - HeaderSize
)

var (
	ErrShortDatagram   = errors.New("short datagram")
	ErrInvalidDatagram = errors.New("invalid datagram")
)

type Datagram struct {
	Type     Type
	Sequence uint8
	Sender   string
	Length   uint32
	Payload  string
}

func NewDatagram(t Type, seq uint8, sender, payload string) *Datagram {
	return &Datagram{
		Type:     t,
		Sequence: seq,
		Sender:   sender,
		Length:   uint32(len(payload)),
		Payload:  payload,
	}
}

func (d *Datagram) Validate() error {
	if !d.Type.Valid() {
		return fmt.Errorf("%w: unknown type %d", ErrInvalidDatagram, d.Type)
	}
	if d.Sequence > 1 {
		return fmt.Errorf("%w: sequence %d", ErrInvalidDatagram, d.Sequence)
	}
	if len(d.Sender) > SenderSize {
		return fmt.Errorf("%w: sender longer than %d bytes", ErrInvalidDatagram, SenderSize)
	}
	if !isASCII(d.Sender) {
		return fmt.Errorf("%w: sender is not ascii", ErrInvalidDatagram)
	}
	if !isASCII(d.Payload) {
		return fmt.Errorf("%w: payload is not ascii", ErrInvalidDatagram)
	}
	if int(d.Length) != len(d.Payload) {
		return fmt.Errorf("%w: length %d does not match payload size %d", ErrInvalidDatagram, d.Length, len(d.Payload))
	}
	return nil
}

func (d *Datagram) Encode() ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	buffer := make([]byte, HeaderSize+len(d.Payload))

	// ヘッダーの書き込み（ビッグエンディアン）
	buffer[0] = uint8(d.Type.Kind())
	buffer[1] = d.Type.Op()
	buffer[2] = d.Sequence
	copy(buffer[3:3+SenderSize], d.Sender) // 残りは NUL のまま
	binary.BigEndian.PutUint32(buffer[3+SenderSize:], d.Length)

	copy(buffer[HeaderSize:], d.Payload)
	return buffer, nil
}

func Decode(data []byte) (*Datagram, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrShortDatagram, len(data))
	}

	t, ok := LookupType(data[0], data[1])
	if !ok {
		return nil, fmt.Errorf("%w: kind %d operation %d", ErrInvalidDatagram, data[0], data[1])
	}

	d := &Datagram{
		Type:     t,
		Sequence: data[2],
		Sender:   strings.TrimRight(string(data[3:3+SenderSize]), "\x00"),
		Length:   binary.BigEndian.Uint32(data[3+SenderSize:]),
		Payload:  string(data[HeaderSize:]),
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Datagram) String() string {
	return fmt.Sprintf("%s seq=%d sender=%q len=%d", d.Type, d.Sequence, d.Sender, d.Length)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}
