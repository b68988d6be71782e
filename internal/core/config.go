package core

import "time"

const (
	DefaultPeerPort   = 7777
	DefaultClientPort = 7778
)

type Config struct {
	Host       string
	PeerPort   int
	ClientPort int

	// ハンドシェイクとストップアンドウェイトの待ち時間
	Timeout          time.Duration
	HandshakeRetries int
	DeliveryRetries  int

	// 相手が ACCEPT するまでの待ち時間
	AcceptTimeout time.Duration

	// 受信ループが停止要求を確認する間隔
	PollInterval time.Duration

	BufferSize    int
	StatsInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		Host:             "0.0.0.0",
		PeerPort:         DefaultPeerPort,
		ClientPort:       DefaultClientPort,
		Timeout:          5 * time.Second,
		HandshakeRetries: 3,
		DeliveryRetries:  3,
		AcceptTimeout:    60 * time.Second,
		PollInterval:     500 * time.Millisecond,
		BufferSize:       1024,
		StatsInterval:    30 * time.Second,
	}
}
