package utils

import (
	"sync/atomic"

	"github.com/hashicorp/golang-lru/v2"
)

type Cache[K comparable, T any] interface {
	Get(key K) (value T, ok bool)
	Set(key K, value T)
	Delete(key K)
	Clear()
	Stats() (hits, misses uint64)
}

// LRUCache is safe for concurrent use. Clear swaps the whole backing cache atomically.
type LRUCache[K comparable, T any] struct {
	values       atomic.Pointer[lru.Cache[K, T]]
	hits, misses atomic.Uint64
	size         int
}

func NewLRUCache[K comparable, T any](size int) *LRUCache[K, T] {
	c := &LRUCache[K, T]{
		size: size,
	}
	c.Clear()
	return c
}

func (c *LRUCache[K, T]) Get(key K) (value T, ok bool) {
	if value, ok = c.values.Load().Get(key); ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return value, ok
}

func (c *LRUCache[K, T]) Set(key K, value T) {
	c.values.Load().Add(key, value)
}

func (c *LRUCache[K, T]) Delete(key K) {
	c.values.Load().Remove(key)
}

func (c *LRUCache[K, T]) Len() int {
	return c.values.Load().Len()
}

func (c *LRUCache[K, T]) Clear() {
	cache, err := lru.New[K, T](c.size)
	if err != nil {
		panic(err)
	}
	c.values.Store(cache)
}

func (c *LRUCache[K, T]) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
