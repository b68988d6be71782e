package core

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"SimpChat/internal/history"
	"SimpChat/network"
	"SimpChat/peer"

	"github.com/sirupsen/logrus"
)

// Transport is the datagram socket the daemon speaks SIMP over.
type Transport interface {
	Send(d *network.Datagram, addr *net.UDPAddr) error
	Receive(timeout time.Duration) (*network.Datagram, *net.UDPAddr, error)
	LocalAddr() *net.UDPAddr
	Close() error
}

// Recorder は中継したメッセージを保存する
type Recorder interface {
	Record(e history.Entry) error
}

// Daemon owns the peer table, the chat session slot and the attached
// client. mu guards all three; no network I/O happens while it is held.
type Daemon struct {
	config Config
	log    *logrus.Entry
	stats  *Stats

	recorder Recorder
	wrap     func(Transport) Transport

	mu      sync.Mutex
	peers   *peer.Table
	session *Session
	client  *ClientLink

	transport Transport
	listener  *net.TCPListener

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	started  atomic.Bool
	stopOnce sync.Once
}

func New(config Config) *Daemon {
	ctx, cancel := context.WithCancel(context.Background())
	return &Daemon{
		config: config,
		log:    logrus.WithField("component", "daemon"),
		stats:  &Stats{},
		peers:  peer.NewTable(),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (d *Daemon) SetRecorder(r Recorder) {
	d.recorder = r
}

func (d *Daemon) Stats() *Stats {
	return d.stats
}

func (d *Daemon) Start() error {
	if !d.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	conn, err := network.NewConnection(network.ConnectionConfig{
		Host:       d.config.Host,
		Port:       d.config.PeerPort,
		BufferSize: d.config.BufferSize,
	})
	if err != nil {
		d.started.Store(false)
		return fmt.Errorf("failed to bind peer port: %w", err)
	}
	var transport Transport = conn
	if d.wrap != nil {
		transport = d.wrap(transport)
	}

	laddr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(d.config.Host, strconv.Itoa(d.config.ClientPort)))
	if err != nil {
		conn.Close()
		d.started.Store(false)
		return fmt.Errorf("failed to resolve client address: %w", err)
	}
	listener, err := net.ListenTCP("tcp", laddr)
	if err != nil {
		conn.Close()
		d.started.Store(false)
		return fmt.Errorf("failed to bind client port: %w", err)
	}

	d.transport = transport
	d.listener = listener

	d.wg.Add(2)
	go d.servePeers()
	go d.serveClients()
	d.stats.StartReporter(d.ctx, d.config.StatsInterval, logrus.WithField("component", "stats"))

	d.log.Infof("Listening for peers on %s, clients on %s", transport.LocalAddr(), listener.Addr())
	return nil
}

// Stop は一度だけ実行される。アクティブなチャットには FIN を送ってから
// ソケットを閉じ、ループの終了を待つ。
func (d *Daemon) Stop() error {
	stopped := false
	d.stopOnce.Do(func() {
		stopped = true
		if !d.started.Load() {
			d.cancel()
			return
		}

		d.mu.Lock()
		s := d.endSessionLocked()
		client := d.client
		d.mu.Unlock()
		if s != nil {
			d.finish(s.Peer)
		}

		d.cancel()
		d.transport.Close()
		d.listener.Close()

		d.mu.Lock()
		d.peers.Clear()
		d.mu.Unlock()

		if client != nil {
			client.Send(RespGoodbye)
			client.Close()
		}

		wait := make(chan struct{})
		go func() {
			d.wg.Wait()
			close(wait)
		}()
		select {
		case <-wait:
		case <-time.After(d.config.Timeout + d.config.PollInterval):
			d.log.Warn("Timed out waiting for daemon loops to exit")
		}
		d.log.Info("Daemon stopped")
	})
	if !stopped {
		d.log.Info("Daemon already shut down")
	}
	return nil
}

func (d *Daemon) Done() <-chan struct{} {
	return d.ctx.Done()
}

func (d *Daemon) PeerAddr() *net.UDPAddr {
	return d.transport.LocalAddr()
}

func (d *Daemon) ClientAddr() *net.TCPAddr {
	return d.listener.Addr().(*net.TCPAddr)
}

// PeerStates returns a snapshot of the peer connection table.
func (d *Daemon) PeerStates() map[string]peer.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.peers.States()
}

func (d *Daemon) SessionState() SessionState {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.session == nil {
		return SessionNone
	}
	return d.session.State
}

func (d *Daemon) servePeers() {
	defer d.wg.Done()
	log := d.log.WithField("component", "peer")

	for {
		select {
		case <-d.ctx.Done():
			return
		default:
		}

		dg, addr, err := d.transport.Receive(d.config.PollInterval)
		if err != nil {
			switch {
			case network.IsTimeout(err):
			case errors.Is(err, network.ErrShortDatagram), errors.Is(err, network.ErrInvalidDatagram):
				d.stats.Dropped.Add(1)
				log.WithField("peer", addr).Warnf("Dropped datagram: %v", err)
			case d.ctx.Err() != nil:
				return
			default:
				log.Errorf("Receive failed: %v", err)
				select {
				case <-d.ctx.Done():
					return
				case <-time.After(d.config.PollInterval):
				}
			}
			continue
		}

		d.stats.DatagramsIn.Add(1)
		log.WithFields(logrus.Fields{"peer": addr, "seq": dg.Sequence}).Debugf("Received %s from %q", dg.Type, dg.Sender)
		d.handleDatagram(dg, addr)
	}
}

func (d *Daemon) handleDatagram(dg *network.Datagram, addr *net.UDPAddr) {
	switch dg.Type {
	case network.TypeSyn:
		d.handleSyn(dg, addr)
	case network.TypeSynAck, network.TypeErr:
		d.handleReply(dg, addr)
	case network.TypeAck:
		d.handleAck(dg, addr)
	case network.TypeFin:
		d.handleFin(dg, addr)
	case network.TypeChat:
		d.handleChat(dg, addr)
	}
}

func (d *Daemon) send(dg *network.Datagram, addr *net.UDPAddr) error {
	log := d.log.WithFields(logrus.Fields{"component": "peer", "peer": addr, "seq": dg.Sequence})
	if err := d.transport.Send(dg, addr); err != nil {
		log.Warnf("Failed to send %s: %v", dg.Type, err)
		return err
	}
	d.stats.DatagramsOut.Add(1)
	log.Debugf("Sent %s", dg.Type)
	return nil
}

func (d *Daemon) violation(addr *net.UDPAddr, format string, args ...interface{}) {
	d.log.WithFields(logrus.Fields{"component": "peer", "peer": addr}).
		Warnf("%v: %s", ErrProtocolViolation, fmt.Sprintf(format, args...))
}

// nameLocked は送信者名として使うユーザー名を返す。d.mu を保持して呼ぶ。
func (d *Daemon) nameLocked() string {
	if d.client == nil {
		return ""
	}
	return d.client.username
}

func (d *Daemon) record(e history.Entry) {
	if d.recorder == nil {
		return
	}
	if err := d.recorder.Record(e); err != nil {
		d.log.Warnf("Failed to record message: %v", err)
	}
}
