package cache

import (
	"sync"
	"time"
)

// MemCache is a TTL-bounded in-memory cache backed by sync.Map. A background
// cleanup goroutine reaps expired items when NewMemCache is given a positive
// cleanupInterval. It backs the fixed-window request rate limiter.
type MemCache struct {
	items sync.Map
	stop  chan struct{}
	wg    sync.WaitGroup
}

type item struct {
	mu         sync.Mutex
	value      any
	expiration int64 // unix nano; 0 means no expiration
}

func NewMemCache(cleanupInterval time.Duration) *MemCache {
	m := &MemCache{
		stop: make(chan struct{}),
	}
	if cleanupInterval > 0 {
		m.wg.Add(1)
		go func() {
			ticker := time.NewTicker(cleanupInterval)
			defer ticker.Stop()
			defer m.wg.Done()
			for {
				select {
				case <-ticker.C:
					m.cleanup()
				case <-m.stop:
					return
				}
			}
		}()
	}
	return m
}

func (m *MemCache) Set(key string, value any, ttl time.Duration) {
	var exp int64
	if ttl > 0 {
		exp = time.Now().Add(ttl).UnixNano()
	}
	m.items.Store(key, &item{
		value:      value,
		expiration: exp,
	})
}

func (m *MemCache) Get(key string) (any, bool) {
	v, ok := m.items.Load(key)
	if !ok {
		return nil, false
	}
	it := v.(*item)
	if it.isExpired() {
		m.items.Delete(key)
		return nil, false
	}
	return it.value, true
}

func (m *MemCache) Delete(key string) {
	m.items.Delete(key)
}

func (m *MemCache) Exists(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Increment adds delta to the int64 counter at key, creating it with the
// given ttl if absent or expired. The window's expiration is fixed at first
// increment and never extended.
func (m *MemCache) Increment(key string, delta int64, ttl time.Duration) int64 {
	actual, _ := m.items.LoadOrStore(key, &item{value: int64(0)})
	it := actual.(*item)

	it.mu.Lock()
	defer it.mu.Unlock()

	if it.isExpired() || it.expiration == 0 {
		it.value = int64(0)
		it.expiration = 0
		if ttl > 0 {
			it.expiration = time.Now().Add(ttl).UnixNano()
		}
	}

	current, _ := it.value.(int64)
	current += delta
	it.value = current
	return current
}

func (m *MemCache) Close() {
	if m.stop == nil {
		return
	}
	close(m.stop)
	m.wg.Wait()
}

func (it *item) isExpired() bool {
	if it == nil || it.expiration == 0 {
		return false
	}
	return time.Now().UnixNano() > it.expiration
}

func (m *MemCache) cleanup() {
	now := time.Now().UnixNano()
	m.items.Range(func(k, v any) bool {
		it := v.(*item)
		if it.expiration != 0 && now > it.expiration {
			m.items.Delete(k)
		}
		return true
	})
}
