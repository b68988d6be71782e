package core

import (
	"fmt"
	"net"
	"time"

	"SimpChat/network"
	"SimpChat/peer"
)

// connect は SYN を送り SYN+ACK を待つ。成功すればACKを返して CONNECTED になり、
// セッションは相手の ACCEPT 待ちになる。
func (d *Daemon) connect(addr *net.UDPAddr) error {
	d.mu.Lock()
	if d.session != nil {
		d.mu.Unlock()
		return ErrSessionBusy
	}
	if old := d.peers.Get(addr); old != nil {
		if old.State != peer.StateClosed {
			d.mu.Unlock()
			return ErrSessionBusy
		}
		d.peers.Remove(old)
	}

	name := d.nameLocked()
	pc := peer.NewConn(addr, peer.StateSynSent)
	d.peers.Put(pc)
	s := newSession(addr, SessionPendingRemoteAccept)
	d.session = s
	d.mu.Unlock()

	log := d.log.WithField("peer", addr)
	syn := network.NewDatagram(network.TypeSyn, 0, name, "")

	for attempt := 0; attempt <= d.config.HandshakeRetries; attempt++ {
		if attempt > 0 {
			log.Infof("No SYN+ACK, retrying (%d/%d)", attempt, d.config.HandshakeRetries)
		}
		if err := d.send(syn, addr); err != nil {
			d.abortConnect(pc, s)
			return fmt.Errorf("failed to send SYN: %w", err)
		}

		reply, err := d.awaitReply(pc)
		if err != nil {
			d.abortConnect(pc, s)
			return err
		}
		if reply == nil {
			continue
		}

		switch reply.Type {
		case network.TypeSynAck:
			if reply.Sequence != syn.Sequence {
				d.violation(addr, "SYN+ACK with sequence %d", reply.Sequence)
				continue
			}
			return d.established(pc, s, reply)
		case network.TypeErr:
			d.abortConnect(pc, s)
			log.Infof("Connection rejected: %s", reply.Payload)
			return fmt.Errorf("%w: %s", ErrPeerBusy, reply.Payload)
		case network.TypeFin:
			d.abortConnect(pc, s)
			return fmt.Errorf("%w: connection closed by %s", ErrPeerBusy, addr)
		}
	}

	d.abortConnect(pc, s)
	return fmt.Errorf("%w: no answer from %s after %d attempts", ErrHandshakeTimeout, addr, d.config.HandshakeRetries+1)
}

// awaitReply returns nil without error when the timeout elapses.
func (d *Daemon) awaitReply(pc *peer.Conn) (*network.Datagram, error) {
	timer := time.NewTimer(d.config.Timeout)
	defer timer.Stop()

	select {
	case dg := <-pc.Reply:
		return dg, nil
	case <-timer.C:
		return nil, nil
	case <-d.ctx.Done():
		return nil, ErrStopped
	}
}

func (d *Daemon) established(pc *peer.Conn, s *Session, reply *network.Datagram) error {
	d.mu.Lock()
	if d.peers.Get(pc.Addr) != pc {
		d.mu.Unlock()
		return ErrStopped
	}
	pc.State = peer.StateConnected
	pc.LastSeq = reply.Sequence
	name := d.nameLocked()

	// 待っている間にクライアントが抜けた
	if d.session != s {
		d.mu.Unlock()
		d.send(network.NewDatagram(network.TypeAck, reply.Sequence, name, ""), pc.Addr)
		d.finish(pc.Addr)
		return ErrNoSession
	}

	s.RemoteUser = reply.Sender
	s.established = true
	s.timer = time.AfterFunc(d.config.AcceptTimeout, func() { d.acceptExpired(s) })
	d.mu.Unlock()

	d.log.WithField("peer", pc.Addr).Infof("Connected to %q, waiting for accept", reply.Sender)
	d.send(network.NewDatagram(network.TypeAck, reply.Sequence, name, ""), pc.Addr)
	return nil
}

func (d *Daemon) abortConnect(pc *peer.Conn, s *Session) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.peers.Remove(pc)
	if d.session == s {
		d.endSessionLocked()
	}
}

func (d *Daemon) handleSyn(dg *network.Datagram, addr *net.UDPAddr) {
	d.mu.Lock()
	existing := d.peers.Get(addr)
	name := d.nameLocked()
	log := d.log.WithField("peer", addr)

	// SYN+ACK が失われて再送された SYN。同じ接続のまま SYN+ACK を送り直す
	if existing != nil && existing.State == peer.StateSynReceived {
		existing.LastSeq = dg.Sequence
		if s := d.session; s != nil && peer.SameAddr(s.Peer, addr) {
			existing.Expire(d.config.Timeout, func() { d.synReceivedExpired(existing, s) })
		}
		d.mu.Unlock()
		log.Debugf("Repeated SYN from %q, resending SYN+ACK", dg.Sender)
		d.send(network.NewDatagram(network.TypeSynAck, dg.Sequence, name, ""), addr)
		return
	}

	// 接続済みの相手からの SYN。拒否してこちらのセッションも閉じる
	if existing != nil && existing.State == peer.StateConnected {
		var (
			ended  *Session
			client *ClientLink
		)
		if s := d.session; s != nil && peer.SameAddr(s.Peer, addr) {
			d.endSessionLocked()
			if s.established {
				ended = s
				client = d.client
			}
		}
		d.mu.Unlock()

		reason := "Duplicate connection attempt"
		log.Infof("Rejecting SYN from %q: %s", dg.Sender, reason)
		d.send(network.NewDatagram(network.TypeErr, 0, name, reason), addr)
		d.finish(addr)
		if ended != nil {
			client.Send(RespChatEnded + ended.RemoteUser)
		}
		return
	}

	reason := ""
	switch {
	case existing != nil && existing.State == peer.StateSynSent:
		reason = "Duplicate connection attempt"
	case d.session != nil:
		reason = RespBusy
	case name == "":
		reason = "No user available"
	}

	if reason == "" {
		if existing != nil {
			d.peers.Remove(existing)
		}
		pc := peer.NewConn(addr, peer.StateSynReceived)
		pc.LastSeq = dg.Sequence
		d.peers.Put(pc)

		s := newSession(addr, SessionPendingLocalAccept)
		s.RemoteUser = dg.Sender
		d.session = s

		// ACK が来なければ IDLE に戻す
		pc.Expire(d.config.Timeout, func() { d.synReceivedExpired(pc, s) })
	}
	d.mu.Unlock()

	if reason != "" {
		log.Infof("Rejecting SYN from %q: %s", dg.Sender, reason)
		d.reject(addr, name, reason)
		return
	}

	log.Infof("SYN from %q", dg.Sender)
	d.send(network.NewDatagram(network.TypeSynAck, dg.Sequence, name, ""), addr)
}

// reject は ERR に続けて FIN を送る。テーブルは変更しない。
func (d *Daemon) reject(addr *net.UDPAddr, name, reason string) {
	if len(reason) > network.MaxPayloadSize {
		reason = reason[:network.MaxPayloadSize]
	}
	d.send(network.NewDatagram(network.TypeErr, 0, name, reason), addr)
	d.send(network.NewDatagram(network.TypeFin, 0, name, ""), addr)
}

func (d *Daemon) synReceivedExpired(pc *peer.Conn, s *Session) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.peers.Get(pc.Addr) != pc || pc.State != peer.StateSynReceived {
		return
	}
	d.peers.Remove(pc)
	if d.session == s {
		d.endSessionLocked()
	}
	d.log.WithField("peer", pc.Addr).Info("No ACK for SYN+ACK, connection abandoned")
}

// handleReply routes SYN+ACK and ERR to the goroutine waiting in connect.
func (d *Daemon) handleReply(dg *network.Datagram, addr *net.UDPAddr) {
	d.mu.Lock()
	pc := d.peers.Get(addr)
	if pc != nil && pc.State == peer.StateSynSent {
		select {
		case pc.Reply <- dg:
		default:
		}
		d.mu.Unlock()
		return
	}
	d.mu.Unlock()

	switch {
	case dg.Type == network.TypeErr:
		d.log.WithField("peer", addr).Warnf("Peer reported an error: %s", dg.Payload)
	case pc != nil && pc.State == peer.StateConnected:
		d.log.WithField("peer", addr).Debug("Ignoring repeated SYN+ACK")
	default:
		d.violation(addr, "%s without a pending handshake", dg.Type)
	}
}

func (d *Daemon) handleAck(dg *network.Datagram, addr *net.UDPAddr) {
	var (
		notify    *ClientLink
		line      string
		acks      chan uint8
		violating bool
	)

	d.mu.Lock()
	pc := d.peers.Get(addr)
	if pc == nil {
		d.mu.Unlock()
		d.log.WithField("peer", addr).Debug("Ignoring ACK from unknown peer")
		return
	}

	switch pc.State {
	case peer.StateSynReceived:
		pc.StopTimer()
		pc.State = peer.StateConnected
		pc.LastSeq = dg.Sequence
		if s := d.session; s != nil && peer.SameAddr(s.Peer, addr) {
			s.established = true
			notify = d.client
			line = fmt.Sprintf("%s%s (%s)", RespChatRequest, addr, s.RemoteUser)
		}
	case peer.StateClosed:
		d.peers.Remove(pc)
	case peer.StateConnected:
		pc.LastSeq = dg.Sequence
		if s := d.session; s != nil && peer.SameAddr(s.Peer, addr) {
			acks = s.acks
		} else {
			violating = true
		}
	case peer.StateSynSent:
		violating = true
	}
	state := pc.State
	d.mu.Unlock()

	switch {
	case acks != nil:
		select {
		case acks <- dg.Sequence:
		default:
		}
	case notify != nil:
		d.log.WithField("peer", addr).Info("Connection established, asking the user")
		notify.Send(line)
	case violating:
		d.violation(addr, "ACK while %s with nothing pending", state)
	}
}

func (d *Daemon) handleFin(dg *network.Datagram, addr *net.UDPAddr) {
	d.mu.Lock()
	name := d.nameLocked()
	pc := d.peers.Get(addr)
	if pc != nil && pc.State == peer.StateSynSent {
		select {
		case pc.Reply <- dg:
		default:
		}
		d.mu.Unlock()
		d.send(network.NewDatagram(network.TypeAck, dg.Sequence, name, ""), addr)
		return
	}
	if pc != nil {
		d.peers.Remove(pc)
	}

	var (
		ended  *Session
		prev   SessionState
		client *ClientLink
	)
	if s := d.session; s != nil && peer.SameAddr(s.Peer, addr) {
		prev = s.State
		d.endSessionLocked()
		if s.established {
			ended = s
			client = d.client
		}
	}
	d.mu.Unlock()

	d.send(network.NewDatagram(network.TypeAck, dg.Sequence, name, ""), addr)
	if ended == nil {
		return
	}

	d.log.WithField("peer", addr).Infof("Chat with %q ended by peer", ended.RemoteUser)
	if prev == SessionPendingRemoteAccept {
		client.Send(RespDeclined)
		return
	}
	client.Send(RespChatEnded + ended.RemoteUser)
}

// finish は FIN を送り、エントリを CLOSED にする。ACK が来るかタイムアウトで削除する。
func (d *Daemon) finish(addr *net.UDPAddr) {
	d.mu.Lock()
	pc := d.peers.Get(addr)
	if pc == nil || pc.State == peer.StateSynSent {
		d.mu.Unlock()
		return
	}
	pc.State = peer.StateClosed
	pc.Expire(d.config.Timeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.peers.Get(pc.Addr) == pc && pc.State == peer.StateClosed {
			d.peers.Remove(pc)
		}
	})
	name := d.nameLocked()
	d.mu.Unlock()

	d.send(network.NewDatagram(network.TypeFin, 0, name, ""), addr)
}
