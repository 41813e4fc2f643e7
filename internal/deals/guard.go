package deals

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"golang.org/x/sync/singleflight"

	pkgredis "github.com/angelmondragon/dealdesk-backend/pkg/redis"
)

// saveGuard coalesces concurrent saves that share a key: later callers wait for
// and receive the first call's result. The key is released once the call returns.
type saveGuard struct {
	group singleflight.Group
}

// do runs fn once per in-flight key. A caller whose ctx ends stops waiting, but the
// running save is left to finish.
func (g *saveGuard) do(ctx context.Context, key string, fn func() (*DealDetail, error)) (*DealDetail, bool, error) {
	ch := g.group.DoChan(key, func() (any, error) {
		return fn()
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		detail, _ := res.Val.(*DealDetail)
		return detail, res.Shared, res.Err
	}
}

func createGuardKey(p Payload) string {
	if p.DraftKey != "" {
		return "create:" + p.DraftKey
	}
	return "create:" + payloadHash(p)
}

func updateGuardKey(id string) string {
	return "update:" + id
}

func payloadHash(p Payload) string {
	raw, err := json.Marshal(p)
	if err != nil {
		return "unhashable"
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

type lockClient interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	SaveLockKey(dealKey string) string
}

// RedisSaveLocker guards saves across service instances with a Redis lock per key.
type RedisSaveLocker struct {
	client lockClient
	ttl    time.Duration
}

// NewRedisSaveLocker builds a locker on top of the shared redis client.
func NewRedisSaveLocker(client lockClient, ttl time.Duration) *RedisSaveLocker {
	return &RedisSaveLocker{client: client, ttl: ttl}
}

func (l *RedisSaveLocker) Acquire(ctx context.Context, key string) (func(context.Context) error, bool, error) {
	lock, err := pkgredis.NewLock(l.client, l.client.SaveLockKey(key), l.ttl)
	if err != nil {
		return nil, false, err
	}
	ok, err := lock.Acquire(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	return lock.Release, true, nil
}
