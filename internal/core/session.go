package core

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"SimpChat/internal/history"
	"SimpChat/network"
	"SimpChat/peer"
)

type SessionState int

const (
	SessionNone SessionState = iota
	SessionPendingLocalAccept
	SessionPendingRemoteAccept
	SessionActive
	SessionEnded
)

func (s SessionState) String() string {
	switch s {
	case SessionNone:
		return "NONE"
	case SessionPendingLocalAccept:
		return "PENDING_LOCAL_ACCEPT"
	case SessionPendingRemoteAccept:
		return "PENDING_REMOTE_ACCEPT"
	case SessionActive:
		return "ACTIVE"
	case SessionEnded:
		return "ENDED"
	default:
		return "UNKNOWN"
	}
}

// Session is the daemon's single chat slot. Fields are guarded by the
// daemon lock; Peer and the channels never change after creation.
type Session struct {
	Peer       *net.UDPAddr
	RemoteUser string
	State      SessionState

	// トランスポートのハンドシェイクが完了し、クライアントに通知済み
	established bool

	sendSeq  uint8
	recvSeq  uint8
	inFlight bool

	acks  chan uint8
	ended chan struct{}
	timer *time.Timer
}

func newSession(addr *net.UDPAddr, state SessionState) *Session {
	return &Session{
		Peer:  addr,
		State: state,
		acks:  make(chan uint8, 4),
		ended: make(chan struct{}),
	}
}

// endSessionLocked frees the slot and wakes any waiting deliverer.
func (d *Daemon) endSessionLocked() *Session {
	s := d.session
	if s == nil {
		return nil
	}
	s.State = SessionEnded
	if s.timer != nil {
		s.timer.Stop()
	}
	close(s.ended)
	d.session = nil
	return s
}

// endChat tears down whatever session is in the slot and sends FIN.
func (d *Daemon) endChat() {
	d.mu.Lock()
	s := d.endSessionLocked()
	remote := ""
	if s != nil {
		remote = s.RemoteUser
	}
	d.mu.Unlock()

	if s != nil {
		d.log.WithField("peer", s.Peer).Infof("Leaving chat with %q", remote)
		d.finish(s.Peer)
	}
}

func (d *Daemon) acceptExpired(s *Session) {
	d.mu.Lock()
	if d.session != s || s.State != SessionPendingRemoteAccept {
		d.mu.Unlock()
		return
	}
	d.endSessionLocked()
	client := d.client
	d.mu.Unlock()

	d.log.WithField("peer", s.Peer).Info("Chat request was not accepted in time")
	d.finish(s.Peer)
	client.Send(fmt.Sprintf("%s%s did not accept the chat", RespTimeout, s.Peer))
}

func (d *Daemon) setUsername(link *ClientLink, name string) string {
	if len(name) > network.SenderSize || !isASCII(name) {
		return fmt.Sprintf("%susername must be at most %d ascii characters", RespError, network.SenderSize)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if link.username != "" {
		return RespError + "username already set"
	}
	link.username = name
	return RespUsernameSet + name
}

func (d *Daemon) startChat(link *ClientLink, target string) string {
	d.mu.Lock()
	name := link.username
	busy := d.session != nil
	d.mu.Unlock()

	if name == "" {
		return RespError + "set a username first"
	}
	if busy {
		return RespBusy
	}

	addr, err := peer.ParseAddr(target, DefaultPeerPort)
	if err != nil {
		return fmt.Sprintf("%sinvalid address %q: %v", RespError, target, err)
	}

	err = d.connect(addr)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSessionBusy):
		return RespBusy
	case errors.Is(err, ErrPeerBusy):
		return RespPeerBusy + strings.TrimPrefix(err.Error(), ErrPeerBusy.Error()+": ")
	case errors.Is(err, ErrHandshakeTimeout):
		return fmt.Sprintf("%s%s did not respond", RespTimeout, addr)
	case errors.Is(err, ErrStopped), errors.Is(err, ErrNoSession):
		return ""
	default:
		return RespError + err.Error()
	}
}

func (d *Daemon) replyToRequest(answer string) string {
	d.mu.Lock()
	s := d.session
	if s == nil || s.State != SessionPendingLocalAccept || !s.established {
		d.mu.Unlock()
		return RespError + "no pending chat request"
	}

	if answer == ReplyDecline {
		d.endSessionLocked()
		d.mu.Unlock()
		d.log.WithField("peer", s.Peer).Infof("Declined chat with %q", s.RemoteUser)
		d.finish(s.Peer)
		return RespDeclined
	}

	s.State = SessionActive
	remote := s.RemoteUser
	d.mu.Unlock()

	// 空の CHAT で相手を ACTIVE にする
	err := d.deliver(s, "")
	switch {
	case err == nil:
		d.stats.ChatsStarted.Add(1)
		d.log.WithField("peer", s.Peer).Infof("Chat with %q is active", remote)
		return RespSuccess
	case errors.Is(err, ErrStopped), errors.Is(err, ErrNoSession):
		return ""
	}

	d.mu.Lock()
	if d.session == s {
		d.endSessionLocked()
	}
	d.mu.Unlock()
	d.finish(s.Peer)
	return fmt.Sprintf("%scould not reach %s", RespDeliveryFail, s.Peer)
}

func (d *Daemon) sendMessage(text string) string {
	if len(text) > network.MaxPayloadSize || !isASCII(text) {
		return fmt.Sprintf("%smessage must be at most %d ascii characters", RespError, network.MaxPayloadSize)
	}

	d.mu.Lock()
	s := d.session
	active := s != nil && s.State == SessionActive
	name := d.nameLocked()
	d.mu.Unlock()
	if !active {
		return RespError + "no active chat"
	}

	err := d.deliver(s, text)
	switch {
	case err == nil:
		d.record(history.Entry{
			Peer:      s.Peer.String(),
			Direction: history.Outbound,
			User:      name,
			Text:      text,
			Timestamp: time.Now(),
		})
		return ""
	case errors.Is(err, ErrDeliveryFailed):
		return fmt.Sprintf("%smessage to %s was lost", RespDeliveryFail, s.Peer)
	case errors.Is(err, ErrSendInFlight):
		return RespError + err.Error()
	case errors.Is(err, ErrNoSession):
		return RespError + "chat ended before the message was acknowledged"
	case errors.Is(err, ErrStopped):
		return ""
	default:
		return RespError + err.Error()
	}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return false
		}
	}
	return true
}
