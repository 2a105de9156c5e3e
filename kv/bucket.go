// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

// Bucket provides logical bucket for kv store by prefixing every key.
type Bucket string

func (b Bucket) key(k []byte) []byte {
	return append(append(make([]byte, 0, len(b)+len(k)), b...), k...)
}

// limit returns the exclusive upper bound of all keys carrying the bucket prefix.
func (b Bucket) limit() []byte {
	limit := []byte(b)
	for i := len(limit) - 1; i >= 0; i-- {
		c := limit[i]
		if c < 0xff {
			out := make([]byte, i+1)
			copy(out, limit)
			out[i] = c + 1
			return out
		}
	}
	return nil
}

// NewGetter creates a bucket getter from the source getter.
func (b Bucket) NewGetter(src Getter) Getter {
	return &bucketGetter{b, src}
}

// NewPutter creates a bucket putter from the source putter.
func (b Bucket) NewPutter(src Putter) Putter {
	return &bucketPutter{b, src}
}

// NewStore creates a bucket store from the source store.
func (b Bucket) NewStore(src Store) Store {
	return &bucketStore{bucketGetter{b, src}, bucketPutter{b, src}, src}
}

type bucketGetter struct {
	b   Bucket
	src Getter
}

func (g *bucketGetter) Get(key []byte) ([]byte, error) { return g.src.Get(g.b.key(key)) }
func (g *bucketGetter) Has(key []byte) (bool, error)   { return g.src.Has(g.b.key(key)) }
func (g *bucketGetter) IsNotFound(err error) bool      { return g.src.IsNotFound(err) }

type bucketPutter struct {
	b   Bucket
	src Putter
}

func (p *bucketPutter) Put(key, val []byte) error { return p.src.Put(p.b.key(key), val) }
func (p *bucketPutter) Delete(key []byte) error   { return p.src.Delete(p.b.key(key)) }

type bucketBulk struct {
	bucketPutter
	bulk Bulk
}

func (b *bucketBulk) Len() int     { return b.bulk.Len() }
func (b *bucketBulk) Write() error { return b.bulk.Write() }

type bucketIterator struct {
	Iterator
	prefixLen int
}

// Key strips the bucket prefix.
func (it *bucketIterator) Key() []byte { return it.Iterator.Key()[it.prefixLen:] }

type bucketStore struct {
	bucketGetter
	bucketPutter
	src Store
}

func (s *bucketStore) IsNotFound(err error) bool { return s.src.IsNotFound(err) }

func (s *bucketStore) Bulk() Bulk {
	bulk := s.src.Bulk()
	return &bucketBulk{bucketPutter{s.bucketGetter.b, bulk}, bulk}
}

func (s *bucketStore) Iterate(r Range) Iterator {
	b := s.bucketGetter.b
	rng := Range{Start: b.key(r.Start)}
	if len(r.Limit) == 0 {
		rng.Limit = b.limit()
	} else {
		rng.Limit = b.key(r.Limit)
	}
	return &bucketIterator{s.src.Iterate(rng), len(b)}
}

// Close is a no-op, the source store owns the resources.
func (s *bucketStore) Close() error { return nil }
