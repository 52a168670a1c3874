package pebblestore

import (
	"context"
	"testing"

	"github.com/cockroachdb/pebble/v2/vfs"
	"github.com/hupe1980/slotmatch/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMem(t *testing.T) *Store {
	t.Helper()
	s, err := Open("db", WithFS(vfs.NewMem()), WithSync(false))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openMem(t)

	users := []store.Record{
		{ID: 3, Mask: []byte{0x03}},
		{ID: -2, Mask: []byte{0xfe}},
		{ID: 1, Mask: []byte{0x01}},
	}
	require.NoError(t, s.PutUsers(ctx, users))

	got, err := s.LoadAllUserMasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []store.Record{
		{ID: -2, Mask: []byte{0xfe}},
		{ID: 1, Mask: []byte{0x01}},
		{ID: 3, Mask: []byte{0x03}},
	}, got)

	// Users and events do not leak into each other.
	n, err := s.CountEvents(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_EventPages(t *testing.T) {
	ctx := context.Background()
	s := openMem(t)

	var events []store.Record
	for i := int64(1); i <= 25; i++ {
		events = append(events, store.Record{ID: i * 10, Mask: []byte{byte(i)}})
	}
	require.NoError(t, s.PutEvents(ctx, events))

	n, err := s.CountEvents(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, n)

	page, err := s.LoadEventsPage(ctx, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, events[10:20], page)

	tail, err := s.LoadEventsPage(ctx, 20, 10)
	require.NoError(t, err)
	assert.Equal(t, events[20:], tail)

	past, err := s.LoadEventsPage(ctx, 30, 10)
	require.NoError(t, err)
	assert.Empty(t, past)

	empty, err := s.LoadEventsPage(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = s.LoadEventsPage(ctx, -1, 10)
	assert.Error(t, err)
}

func TestStore_Overwrite(t *testing.T) {
	ctx := context.Background()
	s := openMem(t)

	require.NoError(t, s.PutUsers(ctx, []store.Record{{ID: 1, Mask: []byte{1}}}))
	require.NoError(t, s.PutUsers(ctx, []store.Record{{ID: 1, Mask: []byte{2}}}))

	got, err := s.LoadAllUserMasks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []store.Record{{ID: 1, Mask: []byte{2}}}, got)
}

func TestStore_Canceled(t *testing.T) {
	s := openMem(t)
	require.NoError(t, s.PutUsers(context.Background(), []store.Record{{ID: 1, Mask: []byte{1}}}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.LoadAllUserMasks(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, store.ErrUnavailable)
}

func TestKeyOrder(t *testing.T) {
	ids := []int64{-1 << 63, -5, -1, 0, 1, 7, 1<<63 - 1}
	for i := 1; i < len(ids); i++ {
		a := encodeKey(userPrefix, ids[i-1])
		b := encodeKey(userPrefix, ids[i])
		assert.Less(t, string(a), string(b))
		id, err := decodeKey(b)
		require.NoError(t, err)
		assert.Equal(t, ids[i], id)
	}
	_, err := decodeKey([]byte("u|1"))
	assert.Error(t, err)
}
