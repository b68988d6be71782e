package core

import "errors"

var (
	ErrHandshakeTimeout  = errors.New("handshake timeout")
	ErrDeliveryFailed    = errors.New("delivery failed")
	ErrPeerBusy          = errors.New("peer busy")
	ErrProtocolViolation = errors.New("protocol violation")
	ErrStopped           = errors.New("daemon stopped")
	ErrSendInFlight      = errors.New("a message is already in flight")
	ErrSessionBusy       = errors.New("user already in another chat")
	ErrNoSession         = errors.New("no chat session")
	ErrAlreadyStarted    = errors.New("daemon already started")
)
