// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import (
	"slices"

	"github.com/qianbin/directcache"

	"github.com/enclavenet/enclave/kv"
)

// Store is a kv.Store that keeps recently read and written values in memory.
// Deleted keys are cached as empty values, which always fall through to the
// underlying store since empty values are never persisted.
type Store struct {
	kv.Store
	values *directcache.Cache
	stats  Stats
}

// NewStore wraps src with a value cache of about sizeBytes.
func NewStore(src kv.Store, sizeBytes int) *Store {
	return &Store{
		Store:  src,
		values: directcache.New(sizeBytes),
	}
}

// Get implements kv.Getter.
func (s *Store) Get(key []byte) ([]byte, error) {
	var val []byte
	if s.values.AdvGet(key, func(v []byte) {
		val = slices.Clone(v)
	}, false) && len(val) > 0 {
		s.stats.Hit()
		return val, nil
	}
	s.stats.Miss()

	val, err := s.Store.Get(key)
	if err != nil {
		return nil, err
	}
	_ = s.values.Set(key, val)
	return val, nil
}

// Has implements kv.Getter.
func (s *Store) Has(key []byte) (bool, error) {
	if s.values.AdvGet(key, func([]byte) {}, true) {
		if _, err := s.Get(key); err != nil {
			if s.IsNotFound(err) {
				return false, nil
			}
			return false, err
		}
		return true, nil
	}
	return s.Store.Has(key)
}

// Put implements kv.Putter.
func (s *Store) Put(key, val []byte) error {
	if err := s.Store.Put(key, val); err != nil {
		return err
	}
	_ = s.values.Set(key, val)
	return nil
}

// Delete implements kv.Putter.
func (s *Store) Delete(key []byte) error {
	if err := s.Store.Delete(key); err != nil {
		return err
	}
	_ = s.values.Set(key, nil)
	return nil
}

// Bulk returns a bulk writer that updates the cache once the batch is written.
func (s *Store) Bulk() kv.Bulk {
	return &bulk{Bulk: s.Store.Bulk(), store: s}
}

// Stats returns the hit and miss counters of reads.
func (s *Store) Stats() *Stats {
	return &s.stats
}

type pending struct {
	key, val []byte
}

type bulk struct {
	kv.Bulk
	store  *Store
	writes []pending
}

func (b *bulk) Put(key, val []byte) error {
	if err := b.Bulk.Put(key, val); err != nil {
		return err
	}
	b.writes = append(b.writes, pending{slices.Clone(key), slices.Clone(val)})
	return nil
}

func (b *bulk) Delete(key []byte) error {
	if err := b.Bulk.Delete(key); err != nil {
		return err
	}
	b.writes = append(b.writes, pending{slices.Clone(key), nil})
	return nil
}

func (b *bulk) Write() error {
	if err := b.Bulk.Write(); err != nil {
		return err
	}
	for _, w := range b.writes {
		_ = b.store.values.Set(w.key, w.val)
	}
	b.writes = b.writes[:0]
	return nil
}
