package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/smallbiznis/subtrack/internal/domain/gmail"
)

func unreachableRedis(t *testing.T) *RedisArtifactStore {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisArtifactStore(client)
}

func newMiniredisStore(t *testing.T) (*RedisArtifactStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisArtifactStore(client), mr
}

func TestRedisArtifactStoreRoundTrip(t *testing.T) {
	store, mr := newMiniredisStore(t)
	ctx := context.Background()
	keys := artifactKeys("sess-1")
	createdAt := time.Date(2026, 2, 10, 9, 0, 0, 123, time.UTC)

	require.NoError(t, store.Save(ctx, "sess-1", gmail.AuthorizationArtifact{Code: "abc123", State: "xyz", CreatedAt: createdAt}, time.Minute))

	code, err := mr.Get(keys.code)
	require.NoError(t, err)
	require.Equal(t, "abc123", code)
	state, err := mr.Get(keys.state)
	require.NoError(t, err)
	require.Equal(t, "xyz", state)
	created, err := mr.Get(keys.createdAt)
	require.NoError(t, err)
	require.Equal(t, strconv.FormatInt(createdAt.UnixNano(), 10), created)
	require.Equal(t, time.Minute, mr.TTL(keys.code))
	require.Equal(t, time.Minute, mr.TTL(keys.state))
	require.Equal(t, time.Minute, mr.TTL(keys.createdAt))

	got, err := store.Load(ctx, "sess-1")
	require.NoError(t, err)
	require.Equal(t, &gmail.AuthorizationArtifact{Code: "abc123", State: "xyz", CreatedAt: createdAt}, got)

	other, err := store.Load(ctx, "sess-2")
	require.NoError(t, err)
	require.Nil(t, other)
}

func TestRedisArtifactStoreDropsStaleState(t *testing.T) {
	store, mr := newMiniredisStore(t)
	ctx := context.Background()
	keys := artifactKeys("sess")

	require.NoError(t, store.Save(ctx, "sess", gmail.AuthorizationArtifact{Code: "first", State: "xyz", CreatedAt: time.Now()}, time.Minute))
	require.NoError(t, store.Save(ctx, "sess", gmail.AuthorizationArtifact{Code: "second"}, time.Minute))

	require.False(t, mr.Exists(keys.state))
	require.False(t, mr.Exists(keys.createdAt))

	got, err := store.Load(ctx, "sess")
	require.NoError(t, err)
	require.Equal(t, "second", got.Code)
	require.Empty(t, got.State)
	require.True(t, got.CreatedAt.IsZero())
}

func TestRedisArtifactStoreExpires(t *testing.T) {
	store, mr := newMiniredisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sess", gmail.AuthorizationArtifact{Code: "abc", State: "xyz", CreatedAt: time.Now()}, time.Minute))
	mr.FastForward(time.Minute + time.Second)

	got, err := store.Load(ctx, "sess")
	require.NoError(t, err)
	require.Nil(t, got)
	require.Empty(t, mr.Keys())
}

func TestRedisArtifactStoreClear(t *testing.T) {
	store, mr := newMiniredisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "sess", gmail.AuthorizationArtifact{Code: "abc", State: "xyz", CreatedAt: time.Now()}, time.Minute))
	require.NoError(t, store.Save(ctx, "keep", gmail.AuthorizationArtifact{Code: "def"}, time.Minute))
	require.NoError(t, store.Clear(ctx, "sess"))

	got, err := store.Load(ctx, "sess")
	require.NoError(t, err)
	require.Nil(t, got)
	require.Equal(t, []string{artifactKeys("keep").code}, mr.Keys())

	require.NoError(t, store.Clear(ctx, "missing"))
}

func TestRedisArtifactStoreRejectsCorruptTimestamp(t *testing.T) {
	store, mr := newMiniredisStore(t)
	keys := artifactKeys("sess")
	require.NoError(t, mr.Set(keys.code, "abc"))
	require.NoError(t, mr.Set(keys.createdAt, "yesterday"))

	_, err := store.Load(context.Background(), "sess")
	require.ErrorContains(t, err, "created_at")
}

func TestRedisArtifactStoreRejectsEmptyCode(t *testing.T) {
	store := unreachableRedis(t)
	err := store.Save(context.Background(), "sess", gmail.AuthorizationArtifact{Code: " "}, time.Minute)
	require.ErrorContains(t, err, "empty code")
}

func TestRedisArtifactStoreWrapsConnectionErrors(t *testing.T) {
	store := unreachableRedis(t)
	ctx := context.Background()

	require.ErrorContains(t, store.Save(ctx, "sess", gmail.AuthorizationArtifact{Code: "abc"}, time.Minute), "persist artifact")

	_, err := store.Load(ctx, "sess")
	require.ErrorContains(t, err, "load artifact")

	require.ErrorContains(t, store.Clear(ctx, "sess"), "clear artifact")
}
