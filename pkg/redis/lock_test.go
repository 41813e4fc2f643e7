package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockAcquireRelease(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}
	key := client.SaveLockKey("deal-1")

	first, err := NewLock(client, key, time.Minute)
	require.NoError(t, err)
	second, err := NewLock(client, key, time.Minute)
	require.NoError(t, err)

	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second owner must not acquire a held lock")

	// releasing a lock that was never owned is a no-op
	require.NoError(t, second.Release(ctx))
	_, err = client.Get(ctx, key)
	require.NoError(t, err)

	require.NoError(t, first.Release(ctx))
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockReleaseSkipsForeignOwner(t *testing.T) {
	ctx := context.Background()
	client := &Client{store: newMockCmdable()}

	lock, err := NewLock(client, "dd:lock:x", time.Minute)
	require.NoError(t, err)
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// lock expired and someone else took it
	require.NoError(t, client.Set(ctx, "dd:lock:x", "someone-else", time.Minute))
	require.NoError(t, lock.Release(ctx))

	owner, err := client.Get(ctx, "dd:lock:x")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", owner)
}

func TestNewLockValidation(t *testing.T) {
	_, err := NewLock(nil, "k", time.Second)
	require.Error(t, err)
	_, err = NewLock(&Client{}, "", time.Second)
	require.Error(t, err)

	lock, err := NewLock(&Client{}, "k", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultLockTTL, lock.ttl)
	assert.Equal(t, "k", lock.Key())
}
