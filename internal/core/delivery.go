package core

import (
	"fmt"
	"net"
	"time"

	"SimpChat/internal/history"
	"SimpChat/network"
	"SimpChat/peer"

	"github.com/sirupsen/logrus"
)

// deliver sends one CHAT datagram and waits for its ACK, retransmitting
// the same datagram until the retry bound. The send sequence flips only
// once the ACK arrives.
func (d *Daemon) deliver(s *Session, text string) error {
	d.mu.Lock()
	if d.session != s {
		d.mu.Unlock()
		return ErrNoSession
	}
	if s.inFlight {
		d.mu.Unlock()
		return ErrSendInFlight
	}
	s.inFlight = true
	seq := s.sendSeq
	name := d.nameLocked()
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		s.inFlight = false
		d.mu.Unlock()
	}()

	// 前回の遅れた ACK を捨てる
	for drained := false; !drained; {
		select {
		case <-s.acks:
		default:
			drained = true
		}
	}

	log := d.log.WithFields(logrus.Fields{"peer": s.Peer, "seq": seq})
	dg := network.NewDatagram(network.TypeChat, seq, name, text)

	for attempt := 0; attempt <= d.config.DeliveryRetries; attempt++ {
		if attempt > 0 {
			d.stats.Retransmits.Add(1)
			log.Infof("No ACK, retransmitting (%d/%d)", attempt, d.config.DeliveryRetries)
		}
		if err := d.send(dg, s.Peer); err != nil {
			return fmt.Errorf("failed to send CHAT: %w", err)
		}

		acked, err := d.awaitAck(s, seq)
		if err != nil {
			return err
		}
		if acked {
			d.mu.Lock()
			s.sendSeq = peer.Flip(seq)
			d.mu.Unlock()
			if text != "" {
				d.stats.MessagesOut.Add(1)
			}
			return nil
		}
	}

	d.stats.DeliveryFails.Add(1)
	log.Warn("Giving up on CHAT datagram")
	return fmt.Errorf("%w: no ACK from %s after %d attempts", ErrDeliveryFailed, s.Peer, d.config.DeliveryRetries+1)
}

func (d *Daemon) awaitAck(s *Session, seq uint8) (bool, error) {
	timer := time.NewTimer(d.config.Timeout)
	defer timer.Stop()

	for {
		select {
		case got := <-s.acks:
			if got == seq {
				return true, nil
			}
		case <-timer.C:
			return false, nil
		case <-s.ended:
			return false, ErrNoSession
		case <-d.ctx.Done():
			return false, ErrStopped
		}
	}
}

// handleChat is the receive side of stop-and-wait. A CHAT whose sequence is
// not the expected one is not delivered, but it is still acknowledged so a
// sender whose ACK was lost can move on.
func (d *Daemon) handleChat(dg *network.Datagram, addr *net.UDPAddr) {
	d.mu.Lock()
	s := d.session
	pc := d.peers.Get(addr)
	if s == nil || !peer.SameAddr(s.Peer, addr) || pc == nil || pc.State != peer.StateConnected || !s.established {
		d.mu.Unlock()
		d.violation(addr, "CHAT outside an established session")
		return
	}
	if s.State == SessionPendingLocalAccept {
		d.mu.Unlock()
		d.violation(addr, "CHAT before the chat was accepted")
		return
	}

	name := d.nameLocked()
	pc.LastSeq = dg.Sequence
	fresh := dg.Sequence == s.recvSeq
	activated := false
	if fresh {
		s.recvSeq = peer.Flip(s.recvSeq)
		if dg.Sender != "" {
			s.RemoteUser = dg.Sender
		}
		if s.State == SessionPendingRemoteAccept {
			s.State = SessionActive
			if s.timer != nil {
				s.timer.Stop()
			}
			activated = true
		}
	}
	client := d.client
	remote := s.RemoteUser
	d.mu.Unlock()

	d.send(network.NewDatagram(network.TypeAck, dg.Sequence, name, ""), addr)

	log := d.log.WithFields(logrus.Fields{"peer": addr, "seq": dg.Sequence})
	if !fresh {
		d.stats.Duplicates.Add(1)
		log.Debug("Discarded duplicate CHAT")
		return
	}

	if activated {
		d.stats.ChatsStarted.Add(1)
		log.Infof("Chat with %q is active", remote)
		client.Send(RespSuccess)
	}
	if dg.Payload == "" {
		return
	}

	d.stats.MessagesIn.Add(1)
	d.record(history.Entry{
		Peer:      addr.String(),
		Direction: history.Inbound,
		User:      remote,
		Text:      dg.Payload,
		Timestamp: time.Now(),
	})
	if err := client.Send(fmt.Sprintf("%s%s: %s", RespMessageFrom, remote, dg.Payload)); err != nil {
		log.Warnf("Message from %q dropped: %v", remote, err)
	}
}
