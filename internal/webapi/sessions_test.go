package webapi

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	value, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(value, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if raw, ok := value.([]byte); ok {
		f.values[key] = string(raw)
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(f.values, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

func TestMemorySessionsExpire(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	sessions := NewMemorySessions(time.Hour)
	sessions.now = func() time.Time { return now }

	created, err := sessions.Create(ctx, SessionUser{ID: "u1"}, []ManagedGuild{{ID: "g1"}})
	require.NoError(t, err)
	assert.NotEmpty(t, created.Token)

	got, err := sessions.Get(ctx, created.Token)
	require.NoError(t, err)
	assert.True(t, got.CanManage("g1"))
	assert.False(t, got.CanManage("g2"))

	now = now.Add(time.Hour)
	_, err = sessions.Get(ctx, created.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisSessionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	sessions := NewRedisSessions(rdb, 2*time.Hour)

	created, err := sessions.Create(ctx, SessionUser{ID: "u1", Username: "alice"}, []ManagedGuild{{ID: "g1", Name: "Guild One"}})
	require.NoError(t, err)
	assert.Equal(t, 2*time.Hour, rdb.ttls[sessionKeyPrefix+created.Token])

	got, err := sessions.Get(ctx, created.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.User.Username)
	assert.True(t, got.CanManage("g1"))

	require.NoError(t, sessions.Delete(ctx, created.Token))
	_, err = sessions.Get(ctx, created.Token)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
