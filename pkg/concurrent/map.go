// Package concurrent provides small mutex-guarded collections.
package concurrent

import "sync"

// Map is a map guarded by a RWMutex.
type Map[K comparable, V any] struct {
	mu     sync.RWMutex
	values map[K]V
}

func NewMap[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		values: make(map[K]V),
	}
}

func (m *Map[K, V]) Load(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	val, ok := m.values[key]
	return val, ok
}

func (m *Map[K, V]) Store(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values[key] = value
}

// LoadOrCompute returns the value stored under key. If there is none, it
// stores and returns create(). create runs under the write lock, at most once
// per missing key. The boolean reports whether the value was already present.
func (m *Map[K, V]) LoadOrCompute(key K, create func() V) (V, bool) {
	m.mu.RLock()
	val, ok := m.values[key]
	m.mu.RUnlock()
	if ok {
		return val, true
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if val, ok := m.values[key]; ok {
		return val, true
	}
	val = create()
	m.values[key] = val
	return val, false
}

func (m *Map[K, V]) Delete(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.values, key)
}

func (m *Map[K, V]) Length() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.values)
}

// Range calls f for every entry until f returns false. f must not modify m.
func (m *Map[K, V]) Range(f func(key K, value V) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for k, v := range m.values {
		if !f(k, v) {
			break
		}
	}
}
