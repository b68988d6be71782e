package network

import (
	"fmt"
	"net"
)

// Kind はデータグラムの種別バイト
type Kind uint8

const (
	KindControl Kind = 1
	KindChat    Kind = 2
)

func (k Kind) String() string {
	switch k {
	case KindControl:
		return "CONTROL"
	case KindChat:
		return "CHAT"
	default:
		return fmt.Sprintf("KIND(%d)", uint8(k))
	}
}

// Type は (kind, operation) の組を閉じた列挙で表す
type Type uint8

const (
	TypeErr Type = iota + 1
	TypeSyn
	TypeAck
	TypeSynAck
	TypeFin
	TypeChat
)

type typeInfo struct {
	kind Kind
	op   uint8
	name string
}

var typeTable = map[Type]typeInfo{
	TypeErr:    {KindControl, 0x01, "ERR"},
	TypeSyn:    {KindControl, 0x02, "SYN"},
	TypeAck:    {KindControl, 0x04, "ACK"},
	TypeSynAck: {KindControl, 0x06, "SYN+ACK"},
	TypeFin:    {KindControl, 0x08, "FIN"},
	TypeChat:   {KindChat, 0x01, "CHAT"},
}

// LookupType resolves the wire kind and operation bytes to a Type.
func LookupType(kind, op uint8) (Type, bool) {
	for t, info := range typeTable {
		if uint8(info.kind) == kind && info.op == op {
			return t, true
		}
	}
	return 0, false
}

func (t Type) Valid() bool {
	_, ok := typeTable[t]
	return ok
}

func (t Type) Kind() Kind {
	return typeTable[t].kind
}

// Op はワイヤ上の operation バイト
func (t Type) Op() uint8 {
	return typeTable[t].op
}

func (t Type) String() string {
	if info, ok := typeTable[t]; ok {
		return info.name
	}
	return "UNKNOWN"
}

type ConnectionConfig struct {
	Host       string
	Port       int
	BufferSize int
}

type Connection struct {
	conn   *net.UDPConn
	config ConnectionConfig
}
