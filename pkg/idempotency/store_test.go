package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SeenAndMark(t *testing.T) {
	rdb := newFakeRedis()
	store := NewStore(rdb, "notification", time.Hour)
	ctx := context.Background()

	seen, err := store.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, store.Mark(ctx, "evt-1"))

	seen, err = store.Seen(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, seen)
	assert.Equal(t, time.Hour, rdb.ttls["notification:evt-1"])
}

func TestStore_SeenDoesNotMark(t *testing.T) {
	store := NewStore(newFakeRedis(), "notification", time.Hour)
	ctx := context.Background()

	_, err := store.Seen(ctx, "evt-2")
	require.NoError(t, err)

	seen, err := store.Seen(ctx, "evt-2")
	require.NoError(t, err)
	assert.False(t, seen, "a failed attempt must not hide the redelivery")
}

func TestStore_RedisErrors(t *testing.T) {
	rdb := newFakeRedis()
	rdb.err = errors.New("connection refused")
	store := NewStore(rdb, "notification", time.Hour)

	_, err := store.Seen(context.Background(), "evt-3")
	assert.ErrorIs(t, err, rdb.err)
	assert.ErrorIs(t, store.Mark(context.Background(), "evt-3"), rdb.err)
}

func TestStore_ClaimRelease(t *testing.T) {
	store := NewStore(newFakeRedis(), "http", time.Hour)
	ctx := context.Background()

	ok, err := store.Claim(ctx, "key-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Claim(ctx, "key-1", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Release(ctx, "key-1"))

	ok, err = store.Claim(ctx, "key-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_Responses(t *testing.T) {
	store := NewStore(newFakeRedis(), "http", time.Hour)
	ctx := context.Background()

	_, found, err := store.LoadResponse(ctx, "key-2")
	require.NoError(t, err)
	assert.False(t, found)

	want := CachedResponse{Status: 201, ContentType: "application/json", Body: []byte(`{"id":1}`)}
	require.NoError(t, store.SaveResponse(ctx, "key-2", want))

	got, found, err := store.LoadResponse(ctx, "key-2")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, *got)
}
