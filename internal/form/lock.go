// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package form

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/mknursery/internal/platform/constants"
)

// DefaultLockTTL is how long a form instance stays claimed.
const DefaultLockTTL = 10 * time.Minute

// Locker claims form instances. Acquire reports false when the key is already held.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key string) error
}

// # Redis

// RedisLocker claims instances with SET NX PX, so every process sees the same claim.
type RedisLocker struct {
	client *redis.Client
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{client: client}
}

func (locker *RedisLocker) Acquire(context context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	acquired, err := locker.client.SetNX(context, constants.RedisPrefixFormLock+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis_form_lock_failed: %w", err)
	}
	return acquired, nil
}

func (locker *RedisLocker) Release(context context.Context, key string) error {
	if err := locker.client.Del(context, constants.RedisPrefixFormLock+key).Err(); err != nil {
		return fmt.Errorf("redis_form_unlock_failed: %w", err)
	}
	return nil
}

// # Memory

// MemoryLocker claims instances inside one process.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		held: make(map[string]time.Time),
		now:  time.Now,
	}
}

func (locker *MemoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}

	locker.mu.Lock()
	defer locker.mu.Unlock()

	now := locker.now()
	if expiresAt, ok := locker.held[key]; ok && now.Before(expiresAt) {
		return false, nil
	}

	// Expired claims are collected lazily.
	for other, expiresAt := range locker.held {
		if !now.Before(expiresAt) {
			delete(locker.held, other)
		}
	}
	locker.held[key] = now.Add(ttl)
	return true, nil
}

func (locker *MemoryLocker) Release(_ context.Context, key string) error {
	locker.mu.Lock()
	delete(locker.held, key)
	locker.mu.Unlock()
	return nil
}
