package network

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionSendReceive(t *testing.T) {
	a, err := NewConnection(ConnectionConfig{Host: "127.0.0.1"})
	require.NoError(t, err)
	defer a.Close()

	b, err := NewConnection(ConnectionConfig{Host: "127.0.0.1"})
	require.NoError(t, err)
	defer b.Close()

	sent := NewDatagram(TypeChat, 1, "alice", "ping")
	require.NoError(t, a.Send(sent, b.LocalAddr()))

	got, from, err := b.Receive(time.Second)
	require.NoError(t, err)
	assert.Equal(t, sent, got)
	assert.Equal(t, a.LocalAddr().Port, from.Port)
}

func TestConnectionReceiveTimeout(t *testing.T) {
	c, err := NewConnection(ConnectionConfig{Host: "127.0.0.1"})
	require.NoError(t, err)
	defer c.Close()

	_, _, err = c.Receive(20 * time.Millisecond)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
}

func TestConnectionReceiveMalformed(t *testing.T) {
	a, err := NewConnection(ConnectionConfig{Host: "127.0.0.1"})
	require.NoError(t, err)
	defer a.Close()

	b, err := NewConnection(ConnectionConfig{Host: "127.0.0.1"})
	require.NoError(t, err)
	defer b.Close()

	_, err = a.conn.WriteToUDP([]byte("nope"), b.LocalAddr())
	require.NoError(t, err)

	_, from, err := b.Receive(time.Second)
	assert.ErrorIs(t, err, ErrShortDatagram)
	assert.False(t, IsTimeout(err))
	require.NotNil(t, from)
}
