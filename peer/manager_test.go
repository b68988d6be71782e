package peer

import (
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableLifecycle(t *testing.T) {
	table := NewTable()
	addr := &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 7777}

	c := NewConn(addr, StateSynSent)
	table.Put(c)
	require.Same(t, c, table.Get(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 7777}))
	assert.Equal(t, map[string]State{"127.0.0.1:7777": StateSynSent}, table.States())

	// 別のエントリに置き換わっていれば削除しない
	replacement := NewConn(addr, StateSynReceived)
	table.Put(replacement)
	assert.False(t, table.Remove(c))
	assert.Equal(t, 1, table.Len())

	assert.True(t, table.Remove(replacement))
	assert.Zero(t, table.Len())
	assert.Nil(t, table.Get(addr))
}

func TestConnExpire(t *testing.T) {
	c := NewConn(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 1}, StateSynReceived)

	var fired atomic.Int32
	c.Expire(10*time.Millisecond, func() { fired.Add(1) })
	c.StopTimer()
	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, fired.Load())

	c.Expire(10*time.Millisecond, func() { fired.Add(1) })
	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, 5*time.Millisecond)
}

func TestClearStopsTimers(t *testing.T) {
	table := NewTable()
	var fired atomic.Int32
	for port := 1; port <= 3; port++ {
		c := NewConn(&net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port}, StateClosed)
		c.Expire(20*time.Millisecond, func() { fired.Add(1) })
		table.Put(c)
	}

	assert.Len(t, table.Clear(), 3)
	assert.Zero(t, table.Len())
	time.Sleep(50 * time.Millisecond)
	assert.Zero(t, fired.Load())
}

func TestFlipAndStateNames(t *testing.T) {
	assert.Equal(t, uint8(1), Flip(0))
	assert.Equal(t, uint8(0), Flip(1))
	assert.Equal(t, "SYN_RECEIVED", StateSynReceived.String())
}
