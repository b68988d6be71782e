package core

import (
	"bufio"
	"net"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"SimpChat/internal/history"
	"SimpChat/network"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

const waitFor = 3 * time.Second

func TestMain(m *testing.M) {
	logrus.SetLevel(logrus.WarnLevel)
	os.Exit(m.Run())
}

func testConfig() Config {
	return Config{
		Host:             "127.0.0.1",
		Timeout:          300 * time.Millisecond,
		HandshakeRetries: 2,
		DeliveryRetries:  3,
		AcceptTimeout:    5 * time.Second,
		PollInterval:     20 * time.Millisecond,
		BufferSize:       network.MaxDatagramSize,
	}
}

func newTestDaemon(t *testing.T, opts ...func(*Daemon)) *Daemon {
	t.Helper()
	d := New(testConfig())
	for _, opt := range opts {
		opt(d)
	}
	require.NoError(t, d.Start())
	t.Cleanup(func() { d.Stop() })
	return d
}

func withLoss(drop func(*network.Datagram) bool) func(*Daemon) {
	return func(d *Daemon) {
		d.wrap = func(tr Transport) Transport {
			return &lossyTransport{Transport: tr, drop: drop}
		}
	}
}

// lossyTransport は drop が true を返したデータグラムを黙って捨てる
type lossyTransport struct {
	Transport
	drop func(*network.Datagram) bool
}

func (l *lossyTransport) Send(dg *network.Datagram, addr *net.UDPAddr) error {
	if l.drop(dg) {
		return nil
	}
	return l.Transport.Send(dg, addr)
}

func dropFirst(typ network.Type) func(*network.Datagram) bool {
	var dropped atomic.Bool
	return func(dg *network.Datagram) bool {
		return dg.Type == typ && dropped.CompareAndSwap(false, true)
	}
}

// memRecorder は記録されたエントリをメモリに保持する
type memRecorder struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (r *memRecorder) Record(e history.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

func (r *memRecorder) all() []history.Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]history.Entry(nil), r.entries...)
}

type testClient struct {
	t     *testing.T
	conn  net.Conn
	lines chan string
}

func dialClient(t *testing.T, d *Daemon) *testClient {
	t.Helper()
	conn, err := net.Dial("tcp", d.ClientAddr().String())
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	c := &testClient{t: t, conn: conn, lines: make(chan string, 64)}
	go func() {
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			c.lines <- scanner.Text()
		}
		close(c.lines)
	}()
	require.Equal(t, RespWelcome, c.next())
	return c
}

func login(t *testing.T, d *Daemon, name string) *testClient {
	t.Helper()
	c := dialClient(t, d)
	c.send("1 " + name)
	require.Equal(t, RespUsernameSet+name, c.next())
	return c
}

func (c *testClient) send(line string) {
	c.t.Helper()
	_, err := c.conn.Write([]byte(line + "\n"))
	require.NoError(c.t, err)
}

func (c *testClient) next() string {
	c.t.Helper()
	select {
	case line, ok := <-c.lines:
		if !ok {
			c.t.Fatal("client connection closed")
		}
		return line
	case <-time.After(waitFor):
		c.t.Fatal("timed out waiting for a line from the daemon")
	}
	return ""
}

// expect は prefix で始まる行が来るまで読み進める
func (c *testClient) expect(prefix string) string {
	c.t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case line, ok := <-c.lines:
			if !ok {
				c.t.Fatalf("client connection closed while waiting for %q", prefix)
			}
			if strings.HasPrefix(line, prefix) {
				return line
			}
		case <-deadline:
			c.t.Fatalf("timed out waiting for %q", prefix)
			return ""
		}
	}
}

// startChat は alice から bob へのチャットを ACTIVE にする
func startChat(t *testing.T, alice *Daemon, ac *testClient, bob *Daemon, bc *testClient) {
	t.Helper()
	ac.send("2 " + bob.PeerAddr().String())

	req := bc.expect(RespChatRequest)
	require.Contains(t, req, alice.PeerAddr().String())

	bc.send("3 ACCEPT")
	require.Equal(t, RespSuccess, bc.next())
	require.Equal(t, RespSuccess, ac.next())
	require.Equal(t, SessionActive, alice.SessionState())
	require.Equal(t, SessionActive, bob.SessionState())
}

func rawPeer(t *testing.T) *network.Connection {
	t.Helper()
	conn, err := network.NewConnection(network.ConnectionConfig{Host: "127.0.0.1"})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// recv reads datagrams from conn until one of type typ arrives.
func recv(t *testing.T, conn *network.Connection, typ network.Type) *network.Datagram {
	t.Helper()
	deadline := time.Now().Add(waitFor)
	for time.Now().Before(deadline) {
		dg, _, err := conn.Receive(100 * time.Millisecond)
		if err != nil {
			continue
		}
		if dg.Type == typ {
			return dg
		}
	}
	t.Fatalf("timed out waiting for %s", typ)
	return nil
}
