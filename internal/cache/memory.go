package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultMaxEntries bounds the in-process store.
const DefaultMaxEntries = 100

type entry struct {
	value     []byte
	createdAt time.Time
	expiresAt time.Time
}

// Memory is an in-process Store guarded by a RWMutex. Expired entries are
// never returned and are swept periodically. When full, expired entries go
// first, then the oldest by insertion time.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]entry
	maxEntries int
	now        func() time.Time

	stopCleanup chan struct{}
	closeOnce   sync.Once
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithMaxEntries caps the number of entries. n <= 0 disables the cap.
func WithMaxEntries(n int) MemoryOption {
	return func(m *Memory) { m.maxEntries = n }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(m *Memory) { m.now = now }
}

// NewMemory creates a Memory store and starts its sweeper.
// cleanupInterval <= 0 disables the sweeper.
func NewMemory(cleanupInterval time.Duration, opts ...MemoryOption) *Memory {
	m := &Memory{
		entries:     make(map[string]entry),
		maxEntries:  DefaultMaxEntries,
		now:         time.Now,
		stopCleanup: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}

	if cleanupInterval > 0 {
		go func() {
			ticker := time.NewTicker(cleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					m.evictExpired()
				case <-m.stopCleanup:
					return
				}
			}
		}()
	}
	return m
}

// Get implements Store. An entry read at or after its expiry is a miss.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok || !m.now().Before(e.expiresAt) {
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if _, exists := m.entries[key]; !exists && m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		m.makeRoomLocked(now)
	}
	m.entries[key] = entry{value: value, createdAt: now, expiresAt: now.Add(ttl)}
	return nil
}

// DeletePrefix implements Store.
func (m *Memory) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

// Clear implements Store.
func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]entry)
	return nil
}

// Len implements Store. Expired entries not yet swept are counted.
func (m *Memory) Len(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.entries), nil
}

// Close stops the sweeper. It is safe to call more than once.
func (m *Memory) Close() error {
	m.closeOnce.Do(func() { close(m.stopCleanup) })
	return nil
}

func (m *Memory) makeRoomLocked(now time.Time) {
	for key, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, key)
		}
	}
	for len(m.entries) >= m.maxEntries {
		var oldestKey string
		var oldest time.Time
		for key, e := range m.entries {
			if oldestKey == "" || e.createdAt.Before(oldest) {
				oldestKey, oldest = key, e.createdAt
			}
		}
		delete(m.entries, oldestKey)
	}
}

func (m *Memory) evictExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, e := range m.entries {
		if !now.Before(e.expiresAt) {
			delete(m.entries, key)
		}
	}
}
