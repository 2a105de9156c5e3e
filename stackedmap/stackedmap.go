// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stackedmap

// MapGetter reads the value for key from the underlying source.
type MapGetter[K comparable, V any] func(key K) (value V, exist bool, err error)

// StackedMap maintains maps in a stack.
// Each map inherits key/value of map that is at lower level.
// It acts as a map with save-restore/snapshot-revert manner.
type StackedMap[K comparable, V any] struct {
	src    MapGetter[K, V]
	levels []*level[K, V]
	// revs records, for every key, the stack levels that hold a value of it
	revs map[K][]int
}

type level[K comparable, V any] struct {
	kvs     map[K]V
	journal []JournalEntry[K, V]
}

// JournalEntry entry of journal.
type JournalEntry[K comparable, V any] struct {
	Key   K
	Value V
}

// New create an instance of StackedMap.
// src acts as source of data.
func New[K comparable, V any](src MapGetter[K, V]) *StackedMap[K, V] {
	return &StackedMap[K, V]{
		src:  src,
		revs: make(map[K][]int),
	}
}

// Depth returns depth of stack.
func (sm *StackedMap[K, V]) Depth() int {
	return len(sm.levels)
}

// Push pushes a new map on stack.
// It returns stack depth before push.
func (sm *StackedMap[K, V]) Push() int {
	sm.levels = append(sm.levels, &level[K, V]{kvs: make(map[K]V)})
	return len(sm.levels) - 1
}

// Pop pops the map at top of stack, reverting all Put operations since last Push.
func (sm *StackedMap[K, V]) Pop() {
	top := sm.levels[len(sm.levels)-1]
	for key := range top.kvs {
		revs := sm.revs[key]
		if len(revs) <= 1 {
			delete(sm.revs, key)
		} else {
			sm.revs[key] = revs[:len(revs)-1]
		}
	}
	sm.levels = sm.levels[:len(sm.levels)-1]
}

// PopTo pops maps until stack depth reaches depth.
func (sm *StackedMap[K, V]) PopTo(depth int) {
	for len(sm.levels) > depth {
		sm.Pop()
	}
}

// Get gets value for given key.
// The second return value indicates whether the given key is found.
func (sm *StackedMap[K, V]) Get(key K) (V, bool, error) {
	if revs, ok := sm.revs[key]; ok {
		return sm.levels[revs[len(revs)-1]].kvs[key], true, nil
	}
	return sm.src(key)
}

// Put puts key value into map at stack top.
// It will panic if stack is empty.
func (sm *StackedMap[K, V]) Put(key K, value V) {
	rev := len(sm.levels) - 1
	top := sm.levels[rev]
	if _, ok := top.kvs[key]; !ok {
		sm.revs[key] = append(sm.revs[key], rev)
	}
	top.kvs[key] = value
	top.journal = append(top.journal, JournalEntry[K, V]{Key: key, Value: value})
}

// Journal traverses journal entries of all Put operations, oldest first.
// The traversal stops when cb returns false.
func (sm *StackedMap[K, V]) Journal(cb func(key K, value V) bool) {
	for _, lvl := range sm.levels {
		for _, e := range lvl.journal {
			if !cb(e.Key, e.Value) {
				return
			}
		}
	}
}
