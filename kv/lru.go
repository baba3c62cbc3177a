package kv

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is a size bounded KVS, the least recently used entry is evicted first.
type LRU[K comparable, V any] struct {
	c *lru.Cache[K, V]
}

func NewLRU[K comparable, V any](size int) (*LRU[K, V], error) {
	c, err := lru.New[K, V](size)
	if err != nil {
		return nil, err
	}
	return &LRU[K, V]{c: c}, nil
}

var _ KVS[string, any] = (*LRU[string, any])(nil)

// Get implements KVS
func (l *LRU[K, V]) Get(key K) (V, bool) {
	return l.c.Get(key)
}

// Set implements KVS
func (l *LRU[K, V]) Set(key K, value V) {
	l.c.Add(key, value)
}

// Range walks entries from oldest to newest without touching their recency.
func (l *LRU[K, V]) Range(f func(key K, value V) bool) {
	for _, k := range l.c.Keys() {
		v, ok := l.c.Peek(k)
		if !ok {
			continue
		}
		if !f(k, v) {
			return
		}
	}
}

func (l *LRU[K, V]) Len() int {
	return l.c.Len()
}

func (l *LRU[K, V]) Flush() error { return nil }

func (l *LRU[K, V]) Close() error {
	l.c.Purge()
	return nil
}
