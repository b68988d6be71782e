package history

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreRecordAndList(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	entries := []Entry{
		{Peer: "10.0.0.2:7777", Direction: Outbound, User: "alice", Text: "hi", Timestamp: base},
		{Peer: "10.0.0.2:7777", Direction: Inbound, User: "bob", Text: "hello", Timestamp: base.Add(time.Second)},
		{Peer: "10.0.0.3:7777", Direction: Inbound, User: "carol", Text: "hey", Timestamp: base.Add(2 * time.Second)},
	}
	for _, e := range entries {
		require.NoError(t, s.Record(e))
	}

	all, err := s.List("", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "hi", all[0].Text)
	assert.Equal(t, Outbound, all[0].Direction)
	assert.True(t, base.Equal(all[0].Timestamp))

	bob, err := s.List("10.0.0.2:7777", 0)
	require.NoError(t, err)
	require.Len(t, bob, 2)
	assert.Equal(t, "bob", bob[1].User)

	latest, err := s.List("", 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "hello", latest[0].Text)
	assert.Equal(t, "hey", latest[1].Text)
}

func TestStoreGet(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Record(Entry{Peer: "p", Direction: Inbound, User: "u", Text: "x"}))

	all, err := s.List("", 0)
	require.NoError(t, err)
	require.Len(t, all, 1)

	got, err := s.Get(all[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "x", got.Text)
	assert.False(t, got.Timestamp.IsZero())

	_, err = s.Get(all[0].ID + 100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExportRoundTrip(t *testing.T) {
	s := openTestStore(t)
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.Local)
	require.NoError(t, s.Record(Entry{Peer: "10.0.0.2:7777", Direction: Outbound, User: "alice", Text: "hi", Timestamp: base}))
	require.NoError(t, s.Record(Entry{Peer: "10.0.0.2:7777", Direction: Inbound, User: "bob", Text: "yo", Timestamp: base.Add(time.Minute)}))

	want := "2026-10-01 12:00:00 -> 10.0.0.2:7777 alice: hi\n" +
		"2026-10-01 12:01:00 <- 10.0.0.2:7777 bob: yo\n"

	for _, mode := range []string{ModeHigh, ModeMedium, ModeLow, ModeNone} {
		t.Run(mode, func(t *testing.T) {
			var buf bytes.Buffer
			n, err := s.Export(&buf, "", mode)
			require.NoError(t, err)
			assert.Equal(t, buf.Len(), n)

			plain, err := Decompress(buf.Bytes(), mode)
			require.NoError(t, err)
			assert.Equal(t, want, string(plain))
		})
	}
}

func TestCompressUnknownMode(t *testing.T) {
	_, err := Compress([]byte("x"), "extreme")
	assert.Error(t, err)
	_, err = Decompress([]byte("x"), "extreme")
	assert.Error(t, err)
	assert.Equal(t, ".zst", Extension(ModeHigh))
	assert.Equal(t, "", Extension(ModeNone))
}
