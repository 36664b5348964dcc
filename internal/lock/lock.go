// Package lock provides the mutual exclusion used to keep a single sweeper
// replica running at a time.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
)

// Locker acquires a named lock for at most ttl. Acquire reports false when
// another holder owns it. The returned release func is safe to call once.
type Locker interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (release func(), ok bool, err error)
}

// Nop always grants the lock. It is used for single-instance deployments.
type Nop struct{}

func (Nop) Acquire(context.Context, string, time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}

// releaseScript deletes the key only while it still holds our token, so an
// expired lock taken over by another replica is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker backed by SET NX PX.
type Redis struct {
	client redis.Cmdable
	prefix string
}

// NewRedis returns a Redis locker whose keys are namespaced by prefix.
func NewRedis(client redis.Cmdable, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) key(name string) string {
	return r.prefix + name
}

func (r *Redis) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	key := r.key(name)
	token := ulid.Make().String()

	ok, err := r.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		// The caller's context may already be done at release time.
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		releaseScript.Run(ctx, r.client, []string{key}, token)
	}
	return release, true, nil
}
