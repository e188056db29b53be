package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryConfig configures a Memory cache.
type MemoryConfig struct {
	// TTL is the time-to-live of entries (0 = no expiry).
	TTL time.Duration

	// MaxEntries bounds the number of entries (0 = unlimited).
	MaxEntries int

	// Recorder receives hit, miss, eviction and size events (optional).
	Recorder Recorder

	// Name labels the cache in recorded events. Default: "memory".
	Name string

	// CleanupInterval overrides how often expired entries are swept.
	CleanupInterval time.Duration
}

type memoryEntry struct {
	entry          *Entry
	createdAt      time.Time
	expiresAt      time.Time // zero = no expiry
	lastAccessedAt time.Time
	accessCount    int64
}

// Memory is an in-process cache with TTL expiry and LRU eviction.
// When the cache is full, the least recently accessed entry is evicted.
type Memory struct {
	entries    map[string]*memoryEntry
	ttl        time.Duration
	maxEntries int
	recorder   Recorder
	name       string
	now        func() time.Time

	mu sync.RWMutex

	stopCh          chan struct{}
	closeOnce       sync.Once
	cleanupInterval time.Duration
}

// NewMemory creates a memory cache. A background goroutine removes expired
// entries every CleanupInterval, or every TTL/2 (at least every 10 seconds)
// when unset, until Close is called.
func NewMemory(cfg MemoryConfig) *Memory {
	cleanupInterval := time.Minute
	if cfg.TTL > 0 {
		cleanupInterval = max(cfg.TTL/2, 10*time.Second)
	}
	if cfg.CleanupInterval > 0 {
		cleanupInterval = cfg.CleanupInterval
	}
	if cfg.Name == "" {
		cfg.Name = "memory"
	}

	m := &Memory{
		entries:         make(map[string]*memoryEntry),
		ttl:             cfg.TTL,
		maxEntries:      cfg.MaxEntries,
		recorder:        recorderOrNop(cfg.Recorder),
		name:            cfg.Name,
		now:             time.Now,
		stopCh:          make(chan struct{}),
		cleanupInterval: cleanupInterval,
	}

	if cfg.TTL > 0 {
		go m.cleanupExpired()
	}

	return m
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) (*Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		m.recorder.RecordMiss(m.name)
		return nil, false, nil
	}

	now := m.now()
	if m.expired(e, now) {
		delete(m.entries, key)
		m.recorder.RecordEviction(m.name)
		m.recorder.RecordMiss(m.name)
		m.recorder.UpdateSize(m.name, len(m.entries))
		return nil, false, nil
	}

	e.lastAccessedAt = now
	e.accessCount++
	m.recorder.RecordHit(m.name)
	return copyEntry(e.entry), true, nil
}

// Set implements Store. If the cache is full, it evicts the least recently
// used entry first.
func (m *Memory) Set(_ context.Context, key string, entry *Entry) error {
	if entry == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.maxEntries > 0 && len(m.entries) >= m.maxEntries {
		if _, exists := m.entries[key]; !exists {
			m.evictLRU()
		}
	}

	now := m.now()
	var expiresAt time.Time
	if m.ttl > 0 {
		expiresAt = now.Add(m.ttl)
	}

	m.entries[key] = &memoryEntry{
		entry:          copyEntry(entry),
		createdAt:      now,
		expiresAt:      expiresAt,
		lastAccessedAt: now,
	}
	m.recorder.UpdateSize(m.name, len(m.entries))
	return nil
}

// Delete implements Store.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, key)
	m.recorder.UpdateSize(m.name, len(m.entries))
	return nil
}

// Len implements Store.
func (m *Memory) Len(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := m.now()
	live := 0
	for _, e := range m.entries {
		if !m.expired(e, now) {
			live++
		}
	}
	return live, nil
}

// Clear removes all entries.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[string]*memoryEntry)
	m.recorder.UpdateSize(m.name, 0)
}

// Close stops the background cleanup goroutine. Close is idempotent.
func (m *Memory) Close() error {
	m.closeOnce.Do(func() { close(m.stopCh) })
	return nil
}

func (m *Memory) expired(e *memoryEntry, now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// evictLRU evicts the least recently used entry.
// Must be called with write lock held.
func (m *Memory) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	for key, e := range m.entries {
		if oldestKey == "" || e.lastAccessedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.lastAccessedAt
		}
	}

	if oldestKey != "" {
		delete(m.entries, oldestKey)
		m.recorder.RecordEviction(m.name)
	}
}

// cleanupExpired runs until Close is called.
func (m *Memory) cleanupExpired() {
	ticker := time.NewTicker(m.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.removeExpired()
		case <-m.stopCh:
			return
		}
	}
}

// Purge removes expired entries and returns how many were deleted.
func (m *Memory) Purge(context.Context) (int, error) {
	return m.removeExpired(), nil
}

func (m *Memory) removeExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for key, e := range m.entries {
		if m.expired(e, now) {
			delete(m.entries, key)
			removed++
			m.recorder.RecordEviction(m.name)
		}
	}
	if removed > 0 {
		m.recorder.UpdateSize(m.name, len(m.entries))
	}
	return removed
}
