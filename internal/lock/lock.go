// Package lock provides Redis-backed distributed locking so only one
// engine process drives a given periodic task tick at a time.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DistributedLocker guards a named critical section across processes.
type DistributedLocker struct {
	client   *redis.Client
	workerID string
}

// NewDistributedLocker returns a locker identifying itself as
// workerID when it holds a lock.
func NewDistributedLocker(client *redis.Client, workerID string) *DistributedLocker {
	return &DistributedLocker{client: client, workerID: workerID}
}

// AcquireLock attempts to take the lock named key for ttl.
func (l *DistributedLocker) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	lockKey := fmt.Sprintf("lock:%s", key)

	acquired, err := l.client.SetNX(ctx, lockKey, l.workerID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("lock: acquire %s: %w", key, err)
	}
	return acquired, nil
}

// ReleaseLock releases key if this locker's workerID still holds it.
func (l *DistributedLocker) ReleaseLock(ctx context.Context, key string) error {
	lockKey := fmt.Sprintf("lock:%s", key)

	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)

	_, err := script.Run(ctx, l.client, []string{lockKey}, l.workerID).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("lock: release %s: %w", key, err)
	}
	return nil
}

// RefreshLock extends key's TTL if this locker's workerID still holds
// it.
func (l *DistributedLocker) RefreshLock(ctx context.Context, key string, ttl time.Duration) error {
	lockKey := fmt.Sprintf("lock:%s", key)

	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)

	_, err := script.Run(ctx, l.client, []string{lockKey}, l.workerID, ttl.Milliseconds()).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("lock: refresh %s: %w", key, err)
	}
	return nil
}
