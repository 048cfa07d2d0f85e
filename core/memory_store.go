package core

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process implementation of Store.
// Expired entries are hidden on read and swept periodically in the background.
type MemoryStore struct {
	mu     sync.RWMutex
	store  map[string]memoryEntry
	logger Logger

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemoryStore creates a new in-memory store. A positive cleanupInterval
// starts a sweeper goroutine that runs until Close.
func NewMemoryStore(cleanupInterval time.Duration) *MemoryStore {
	m := &MemoryStore{
		store:  make(map[string]memoryEntry),
		logger: &NoOpLogger{},
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go m.sweep(cleanupInterval)
	} else {
		close(m.done)
	}
	return m
}

// SetLogger configures the logger for this memory store
func (m *MemoryStore) SetLogger(logger Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// Get retrieves a value from memory
func (m *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	entry, exists := m.store[key]
	m.mu.RUnlock()

	if !exists {
		m.logger.Debug("Store miss", map[string]interface{}{
			"operation": "store_get",
			"key":       key,
		})
		return "", nil
	}

	if entry.expired(time.Now()) {
		m.logger.Debug("Store entry expired", map[string]interface{}{
			"operation":  "store_get",
			"key":        key,
			"expired_at": entry.expiresAt.Format(time.RFC3339),
		})
		return "", nil
	}

	return entry.value, nil
}

// Set stores a value in memory with optional TTL
func (m *MemoryStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	m.mu.Lock()
	m.store[key] = entry
	m.mu.Unlock()

	m.logger.Debug("Store set", map[string]interface{}{
		"operation":  "store_set",
		"key":        key,
		"value_size": len(value),
		"ttl":        ttl.String(),
	})
	return nil
}

// Delete removes values from memory. Missing keys are ignored.
func (m *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	for _, key := range keys {
		delete(m.store, key)
	}
	m.mu.Unlock()

	m.logger.Debug("Store delete", map[string]interface{}{
		"operation": "store_delete",
		"keys":      len(keys),
	})
	return nil
}

// Exists checks if a live key exists in memory
func (m *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, exists := m.store[key]
	if !exists || entry.expired(time.Now()) {
		return false, nil
	}
	return true, nil
}

// Len reports the number of stored entries, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.store)
}

// Close stops the sweeper. It is safe to call more than once.
func (m *MemoryStore) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
	return nil
}

func (m *MemoryStore) sweep(interval time.Duration) {
	defer close(m.done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case now := <-ticker.C:
			m.removeExpired(now)
		}
	}
}

func (m *MemoryStore) removeExpired(now time.Time) {
	m.mu.Lock()
	removed := 0
	for key, entry := range m.store {
		if entry.expired(now) {
			delete(m.store, key)
			removed++
		}
	}
	m.mu.Unlock()

	if removed > 0 {
		m.logger.Debug("Store sweep", map[string]interface{}{
			"operation": "store_sweep",
			"removed":   removed,
		})
	}
}
