package kvstore

import (
	"context"
	"encoding/json"
	"sync"
)

// MemStore is an in-memory Store. It backs the synced area and tests.
type MemStore struct {
	mu        sync.RWMutex
	values    map[string]json.RawMessage
	listeners map[int]ChangeFunc
	nextID    int
	quota     int
}

// NewMemStore creates an empty in-memory store with the given per-value
// quota. A quota of zero disables the check.
func NewMemStore(quotaBytes int) *MemStore {
	return &MemStore{
		values:    make(map[string]json.RawMessage),
		listeners: make(map[int]ChangeFunc),
		quota:     quotaBytes,
	}
}

// Get implements Store.
func (m *MemStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.values[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return true, err
	}
	return true, nil
}

// Set implements Store.
func (m *MemStore) Set(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	if m.quota > 0 && len(raw) > m.quota {
		return ErrQuotaExceeded
	}
	m.mu.Lock()
	m.values[key] = raw
	m.mu.Unlock()
	m.notify(key)
	return nil
}

// Remove implements Store.
func (m *MemStore) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	_, existed := m.values[key]
	delete(m.values, key)
	m.mu.Unlock()
	if existed {
		m.notify(key)
	}
	return nil
}

// Clear implements Store.
func (m *MemStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	m.values = make(map[string]json.RawMessage)
	m.mu.Unlock()
	for _, k := range keys {
		m.notify(k)
	}
	return nil
}

// OnChange implements Store.
func (m *MemStore) OnChange(fn ChangeFunc) func() {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

func (m *MemStore) notify(key string) {
	m.mu.RLock()
	fns := make([]ChangeFunc, 0, len(m.listeners))
	for _, fn := range m.listeners {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()
	for _, fn := range fns {
		fn(key)
	}
}
