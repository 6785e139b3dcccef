package sessions

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStoreTest(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewRedisStore(rdb, ""), mr
}

func TestRedisStore_SaveTouch(t *testing.T) {
	ctx := context.Background()
	st, mr := newRedisStoreTest(t)

	require.NoError(t, st.Save(ctx, Session{Token: "tok", UserID: 5}, time.Minute))

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], DefaultRedisPrefix+":"))
	assert.NotContains(t, keys[0], "tok", "raw token must not appear in the key")

	now := time.Now()
	s, err := st.Touch(ctx, "tok", now, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(5), s.UserID)
	assert.Equal(t, "tok", s.Token)
	assert.Equal(t, now.Add(time.Minute), s.Expiration)
}

func TestRedisStore_SlidingRenewal(t *testing.T) {
	ctx := context.Background()
	st, mr := newRedisStoreTest(t)

	require.NoError(t, st.Save(ctx, Session{Token: "tok", UserID: 1}, time.Minute))

	// keep using it inside the window for longer than one timeout
	for i := 0; i < 5; i++ {
		mr.FastForward(40 * time.Second)
		_, err := st.Touch(ctx, "tok", time.Now(), time.Minute)
		require.NoError(t, err, "iteration %d", i)
	}

	mr.FastForward(61 * time.Second)
	_, err := st.Touch(ctx, "tok", time.Now(), time.Minute)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_Delete(t *testing.T) {
	ctx := context.Background()
	st, _ := newRedisStoreTest(t)
	require.NoError(t, st.Save(ctx, Session{Token: "tok", UserID: 1}, time.Minute))

	ok, err := st.Delete(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.Delete(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = st.Touch(ctx, "tok", time.Now(), time.Minute)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_CorruptEntryIsNotTrusted(t *testing.T) {
	ctx := context.Background()
	st, mr := newRedisStoreTest(t)
	require.NoError(t, mr.Set(st.key("tok"), "not-a-number"))

	_, err := st.Touch(ctx, "tok", time.Now(), time.Minute)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, mr.Exists(st.key("tok")))
}

func TestRedisStore_SaveSkipsNonPositiveTTL(t *testing.T) {
	ctx := context.Background()
	st, mr := newRedisStoreTest(t)
	require.NoError(t, st.Save(ctx, Session{Token: "tok"}, 0))
	assert.Empty(t, mr.Keys())
}

func TestRedisStore_Unavailable(t *testing.T) {
	ctx := context.Background()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	defer rdb.Close()
	st := NewRedisStore(rdb, "test")

	assert.ErrorIs(t, st.Save(ctx, Session{Token: "tok"}, time.Minute), ErrRedisUnavailable)
	_, err = st.Touch(ctx, "tok", time.Now(), time.Minute)
	assert.ErrorIs(t, err, ErrRedisUnavailable)
	assert.ErrorIs(t, st.Ping(ctx), ErrRedisUnavailable)
}
