// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package cache provides bounded in-memory caches for values that are expensive to derive.
package cache

import (
	lru "github.com/hashicorp/golang-lru"
)

// LRU is a typed LRU cache over golang-lru. It is safe for concurrent use.
type LRU[K comparable, V any] struct {
	cache *lru.Cache
	stats Stats
}

// NewLRU creates a LRU cache holding at most maxSize entries.
// maxSize should be > 0, or an error returned.
func NewLRU[K comparable, V any](maxSize int) (*LRU[K, V], error) {
	c, err := lru.New(maxSize)
	if err != nil {
		return nil, err
	}
	return &LRU[K, V]{cache: c}, nil
}

func (l *LRU[K, V]) Get(key K) (V, bool) {
	if v, ok := l.cache.Get(key); ok {
		l.stats.Hit()
		return v.(V), true
	}
	l.stats.Miss()
	var zero V
	return zero, false
}

func (l *LRU[K, V]) Add(key K, value V) {
	l.cache.Add(key, value)
}

// GetOrLoad returns the cached value of key, computing and caching it on a miss.
func (l *LRU[K, V]) GetOrLoad(key K, load func(K) V) V {
	if v, ok := l.Get(key); ok {
		return v
	}
	v := load(key)
	l.Add(key, v)
	return v
}

func (l *LRU[K, V]) Len() int {
	return l.cache.Len()
}

// Stats returns the hit and miss counters.
func (l *LRU[K, V]) Stats() *Stats {
	return &l.stats
}
