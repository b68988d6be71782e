package network

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

func NewConnection(config ConnectionConfig) (*Connection, error) {
	if config.BufferSize <= 0 {
		config.BufferSize = MaxDatagramSize
	}

	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(config.Host, strconv.Itoa(config.Port)))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s:%d: %w", config.Host, config.Port, err)
	}

	udpConn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}

	return &Connection{conn: udpConn, config: config}, nil
}

func (c *Connection) Send(d *Datagram, addr *net.UDPAddr) error {
	raw, err := d.Encode()
	if err != nil {
		return err
	}

	_, err = c.conn.WriteToUDP(raw, addr)
	return err
}

// Receive は timeout までブロックし、1 データグラムを読み取ってデコードする。
// デコードに失敗した場合も送信元アドレスは返す。
func (c *Connection) Receive(timeout time.Duration) (*Datagram, *net.UDPAddr, error) {
	if timeout > 0 {
		c.conn.SetReadDeadline(time.Now().Add(timeout))
	}

	buffer := make([]byte, c.config.BufferSize)
	n, addr, err := c.conn.ReadFromUDP(buffer)
	if err != nil {
		return nil, nil, err
	}

	d, err := Decode(buffer[:n])
	if err != nil {
		return nil, addr, err
	}
	return d, addr, nil
}

func (c *Connection) LocalAddr() *net.UDPAddr {
	return c.conn.LocalAddr().(*net.UDPAddr)
}

func (c *Connection) Close() error {
	return c.conn.Close()
}

// IsTimeout reports whether err is a read deadline expiry.
func IsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
