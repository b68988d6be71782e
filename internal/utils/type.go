package utils

import "github.com/mattn/go-tty"

var ttyHandler *tty.TTY

// ClientMode はクライアントの表示モード
type ClientMode int

const (
	ModeTUI ClientMode = iota
	ModePlain
)

const TimestampFormat = "2006-01-02 15:04:05"
