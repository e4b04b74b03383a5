/*
 * @module service/distributed_lock/memory_lock
 * @description 进程内内存锁实现，单实例部署或未配置Redis时的降级方案
 * @architecture 工具层 - 提供分布式锁能力
 * @documentReference ai_docs/distributed_lock_design.md
 * @stateFlow 获取锁 -> 执行检测 -> 释放锁/到期自动失效
 * @rules 与RedisLock行为一致：TryLock不等待，过期的锁可被再次获取
 * @dependencies sync, time
 * @refs redis_lock.go, service/init.go
 */

package distributed_lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockNotHeld 当前实例未持有锁
var ErrLockNotHeld = errors.New("锁不存在或已被其他实例持有")

// MemoryLock 进程内内存锁，实现 DistributedLock 接口
type MemoryLock struct {
	mu    sync.Mutex
	locks map[string]time.Time // key -> 过期时间
}

// NewMemoryLock 创建内存锁
func NewMemoryLock() *MemoryLock {
	return &MemoryLock{locks: make(map[string]time.Time)}
}

// TryLock 尝试获取锁，已被持有且未过期时返回false
func (m *MemoryLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if expireAt, ok := m.locks[key]; ok && time.Now().Before(expireAt) {
		return false, nil
	}
	m.locks[key] = time.Now().Add(ttl)
	return true, nil
}

// Unlock 释放锁
func (m *MemoryLock) Unlock(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, key)
	return nil
}

// Refresh 刷新锁的过期时间
func (m *MemoryLock) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.locks[key]; !ok {
		return ErrLockNotHeld
	}
	m.locks[key] = time.Now().Add(ttl)
	return nil
}

// IsLocked 检查锁是否存在且未过期
func (m *MemoryLock) IsLocked(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	expireAt, ok := m.locks[key]
	return ok && time.Now().Before(expireAt), nil
}
