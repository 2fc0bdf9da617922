package source

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// memo shares the result of an expensive call between concurrent and
// recent callers using the same key. Errors are not remembered.
type memo[T any] struct {
	ttl time.Duration
	max int
	now func() time.Time

	group   singleflight.Group
	mu      sync.Mutex
	entries map[string]memoEntry[T]
}

type memoEntry[T any] struct {
	val T
	at  time.Time
}

func newMemo[T any](ttl time.Duration, max int) *memo[T] {
	return &memo[T]{ttl: ttl, max: max, now: time.Now, entries: make(map[string]memoEntry[T])}
}

func (m *memo[T]) do(key string, fn func() (T, error)) (T, error) {
	if v, ok := m.recall(key); ok {
		return v, nil
	}
	v, err, _ := m.group.Do(key, func() (any, error) {
		val, err := fn()
		if err != nil {
			return nil, err
		}
		m.remember(key, val)
		return val, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (m *memo[T]) recall(key string) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok || m.now().Sub(e.at) > m.ttl {
		var zero T
		return zero, false
	}
	return e.val, true
}

func (m *memo[T]) remember(key string, val T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if len(m.entries) >= m.max {
		for k, e := range m.entries {
			if now.Sub(e.at) > m.ttl {
				delete(m.entries, k)
			}
		}
		if len(m.entries) >= m.max {
			m.entries = make(map[string]memoEntry[T])
		}
	}
	m.entries[key] = memoEntry[T]{val: val, at: now}
}
