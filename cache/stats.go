// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import "sync/atomic"

// Stats counts cache hits and misses.
type Stats struct {
	hit, miss atomic.Int64
}

// Hit records a hit.
func (cs *Stats) Hit() int64 { return cs.hit.Add(1) }

// Miss records a miss.
func (cs *Stats) Miss() int64 { return cs.miss.Add(1) }

// Counts returns the number of hits and misses, and the hit rate in [0, 1].
func (cs *Stats) Counts() (hit, miss int64, rate float64) {
	hit = cs.hit.Load()
	miss = cs.miss.Load()
	if lookups := hit + miss; lookups > 0 {
		rate = float64(hit) / float64(lookups)
	}
	return
}
