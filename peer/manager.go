package peer

import (
	"net"
	"time"

	"SimpChat/network"
)

type State int

const (
	StateIdle State = iota
	StateSynSent
	StateSynReceived
	StateConnected
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateSynSent:
		return "SYN_SENT"
	case StateSynReceived:
		return "SYN_RECEIVED"
	case StateConnected:
		return "CONNECTED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Conn はリモートアドレスごとのトランスポート状態
type Conn struct {
	Addr    *net.UDPAddr
	State   State
	LastSeq uint8

	// SYN_SENT の間、受信ループからハンドシェイク応答を受け取る
	Reply chan *network.Datagram

	timer *time.Timer
}

func NewConn(addr *net.UDPAddr, state State) *Conn {
	return &Conn{
		Addr:  addr,
		State: state,
		Reply: make(chan *network.Datagram, 4),
	}
}

// Expire は d 経過後に f を呼ぶ。既存のタイマーは止める。
func (c *Conn) Expire(d time.Duration, f func()) {
	c.StopTimer()
	c.timer = time.AfterFunc(d, f)
}

func (c *Conn) StopTimer() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}

// Table is the peer connection table. It does no locking of its own;
// callers hold the daemon lock.
type Table struct {
	conns map[string]*Conn
}

func NewTable() *Table {
	return &Table{conns: make(map[string]*Conn)}
}

func Key(addr *net.UDPAddr) string {
	return addr.String()
}

func (t *Table) Get(addr *net.UDPAddr) *Conn {
	return t.conns[Key(addr)]
}

func (t *Table) Put(c *Conn) {
	t.conns[Key(c.Addr)] = c
}

// Remove deletes the entry for addr only if it is still c.
func (t *Table) Remove(c *Conn) bool {
	key := Key(c.Addr)
	if t.conns[key] != c {
		return false
	}
	c.StopTimer()
	delete(t.conns, key)
	return true
}

func (t *Table) Len() int {
	return len(t.conns)
}

// States returns a snapshot of every entry's state keyed by address.
func (t *Table) States() map[string]State {
	out := make(map[string]State, len(t.conns))
	for k, c := range t.conns {
		out[k] = c.State
	}
	return out
}

// Clear stops every timer and empties the table.
func (t *Table) Clear() []*Conn {
	out := make([]*Conn, 0, len(t.conns))
	for k, c := range t.conns {
		c.StopTimer()
		out = append(out, c)
		delete(t.conns, k)
	}
	return out
}

// Flip は交互ビットの次の値を返す
func Flip(seq uint8) uint8 {
	return seq ^ 1
}

func SameAddr(a, b *net.UDPAddr) bool {
	if a == nil || b == nil {
		return false
	}
	return a.IP.Equal(b.IP) && a.Port == b.Port
}
