package core

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Stats はデーモン 1 つ分の通信カウンタ
type Stats struct {
	DatagramsIn   atomic.Int64
	DatagramsOut  atomic.Int64
	Dropped       atomic.Int64 // デコードできなかったデータグラム
	Retransmits   atomic.Int64
	Duplicates    atomic.Int64 // 破棄した重複・順序外の CHAT
	ChatsStarted  atomic.Int64
	MessagesIn    atomic.Int64
	MessagesOut   atomic.Int64
	DeliveryFails atomic.Int64
}

type StatsSnapshot struct {
	DatagramsIn, DatagramsOut int64
	Dropped, Retransmits      int64
	Duplicates                int64
	ChatsStarted              int64
	MessagesIn, MessagesOut   int64
	DeliveryFails             int64
}

func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		DatagramsIn:   s.DatagramsIn.Load(),
		DatagramsOut:  s.DatagramsOut.Load(),
		Dropped:       s.Dropped.Load(),
		Retransmits:   s.Retransmits.Load(),
		Duplicates:    s.Duplicates.Load(),
		ChatsStarted:  s.ChatsStarted.Load(),
		MessagesIn:    s.MessagesIn.Load(),
		MessagesOut:   s.MessagesOut.Load(),
		DeliveryFails: s.DeliveryFails.Load(),
	}
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf("datagrams in=%d out=%d dropped=%d retransmits=%d duplicates=%d chats=%d messages in=%d out=%d failed=%d",
		s.DatagramsIn, s.DatagramsOut, s.Dropped, s.Retransmits, s.Duplicates,
		s.ChatsStarted, s.MessagesIn, s.MessagesOut, s.DeliveryFails)
}

// StartReporter logs the counters every interval while they keep changing.
// It stops when ctx is cancelled.
func (s *Stats) StartReporter(ctx context.Context, interval time.Duration, log *logrus.Entry) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var prev StatsSnapshot
		for {
			select {
			case <-ticker.C:
				cur := s.Snapshot()
				if cur != prev {
					log.Info(cur.String())
				}
				prev = cur
			case <-ctx.Done():
				return
			}
		}
	}()
}
