package deals

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryLockClient struct {
	mu     sync.Mutex
	values map[string]string
}

func newMemoryLockClient() *memoryLockClient {
	return &memoryLockClient{values: map[string]string{}}
}

func (m *memoryLockClient) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	return true, nil
}

func (m *memoryLockClient) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryLockClient) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *memoryLockClient) SaveLockKey(dealKey string) string {
	return "dd:lock:deal_save:" + dealKey
}

func TestRedisSaveLocker(t *testing.T) {
	ctx := context.Background()
	client := newMemoryLockClient()
	locker := NewRedisSaveLocker(client, time.Minute)

	release, ok, err := locker.Acquire(ctx, "update:abc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, client.values, "dd:lock:deal_save:update:abc")

	_, ok, err = locker.Acquire(ctx, "update:abc")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = locker.Acquire(ctx, "update:other")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, release(ctx))
	assert.NotContains(t, client.values, "dd:lock:deal_save:update:abc")

	_, ok, err = locker.Acquire(ctx, "update:abc")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSaveGuardSharesInFlightResult(t *testing.T) {
	guard := &saveGuard{}
	gate := make(chan struct{})
	var runs atomic.Int32
	fn := func() (*DealDetail, error) {
		runs.Add(1)
		<-gate
		return &DealDetail{JobNumber: "JOB-1"}, nil
	}

	var wg sync.WaitGroup
	shared := make([]bool, 2)
	for i := range shared {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			detail, isShared, err := guard.do(context.Background(), "create:k", fn)
			assert.NoError(t, err)
			assert.Equal(t, "JOB-1", detail.JobNumber)
			shared[i] = isShared
		}(i)
	}
	require.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), runs.Load())
	assert.Equal(t, []bool{true, true}, shared)

	// the key is free again once the call resolved
	detail, _, err := guard.do(context.Background(), "create:k", func() (*DealDetail, error) {
		return &DealDetail{JobNumber: "JOB-2"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "JOB-2", detail.JobNumber)
}

func TestSaveGuardWaiterStopsOnCancel(t *testing.T) {
	guard := &saveGuard{}
	gate := make(chan struct{})
	defer close(gate)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, _, err := guard.do(ctx, "update:slow", func() (*DealDetail, error) {
		<-gate
		return &DealDetail{}, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGuardKeys(t *testing.T) {
	assert.Equal(t, "create:draft-1", createGuardKey(Payload{DraftKey: "draft-1"}))

	a := createGuardKey(Payload{Title: "Tint"})
	b := createGuardKey(Payload{Title: "Tint"})
	c := createGuardKey(Payload{Title: "Wrap"})
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Equal(t, "update:42", updateGuardKey("42"))
}
