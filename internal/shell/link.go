package shell

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"SimpChat/internal/core"
)

// Link はデーモンへの TCP 制御チャネル
type Link struct {
	conn  net.Conn
	lines chan string
}

func Dial(addr string, timeout time.Duration) (*Link, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon at %s: %w", addr, err)
	}

	l := &Link{conn: conn, lines: make(chan string, 32)}
	go func() {
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			l.lines <- scanner.Text()
		}
		close(l.lines)
	}()
	return l, nil
}

// Lines is closed when the daemon hangs up.
func (l *Link) Lines() <-chan string {
	return l.lines
}

func (l *Link) Send(cmd core.Command) error {
	_, err := fmt.Fprintf(l.conn, "%s\n", cmd)
	return err
}

func (l *Link) Close() error {
	return l.conn.Close()
}
