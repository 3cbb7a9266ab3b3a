package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMiniredisLocker(t *testing.T, cfg RedisLockerConfig) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(client, cfg), mr
}

func TestRedisLockerBlocksContendingHolder(t *testing.T) {
	locker, mr := newMiniredisLocker(t, RedisLockerConfig{RetryInterval: 5 * time.Millisecond})

	unlock, err := locker.Lock(context.Background(), "project-1")
	require.NoError(t, err)
	assert.True(t, mr.Exists("lock:project-1"))

	acquired := make(chan func(), 1)
	go func() {
		next, err := locker.Lock(context.Background(), "project-1")
		if err == nil {
			acquired <- next
		}
	}()

	select {
	case <-acquired:
		t.Fatal("second holder acquired a held lock")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case next := <-acquired:
		next()
	case <-time.After(time.Second):
		t.Fatal("second holder never acquired the released lock")
	}
	assert.False(t, mr.Exists("lock:project-1"))
}

func TestRedisLockerGivesUpWhenContextEnds(t *testing.T) {
	locker, _ := newMiniredisLocker(t, RedisLockerConfig{RetryInterval: 5 * time.Millisecond})

	unlock, err := locker.Lock(context.Background(), "project-1")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "project-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotAcquired))

	other, err := locker.Lock(context.Background(), "project-2")
	require.NoError(t, err)
	other()
}

func TestRedisLockerLeaseExpires(t *testing.T) {
	locker, mr := newMiniredisLocker(t, RedisLockerConfig{TTL: time.Second, RetryInterval: 5 * time.Millisecond})

	_, err := locker.Lock(context.Background(), "project-1")
	require.NoError(t, err)
	assert.Equal(t, time.Second, mr.TTL("lock:project-1"))

	mr.FastForward(2 * time.Second)
	assert.False(t, mr.Exists("lock:project-1"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	unlock, err := locker.Lock(ctx, "project-1")
	require.NoError(t, err)
	unlock()
}

func TestRedisLockerReleaseOnlyDeletesOwnLease(t *testing.T) {
	locker, mr := newMiniredisLocker(t, RedisLockerConfig{TTL: time.Second, RetryInterval: 5 * time.Millisecond})

	stale, err := locker.Lock(context.Background(), "project-1")
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	current, err := locker.Lock(context.Background(), "project-1")
	require.NoError(t, err)
	token, err := mr.Get("lock:project-1")
	require.NoError(t, err)

	stale()
	got, err := mr.Get("lock:project-1")
	require.NoError(t, err)
	assert.Equal(t, token, got)

	current()
	assert.False(t, mr.Exists("lock:project-1"))
}
