// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package store

import (
	"encoding/binary"
)

type Key interface {
	Bytes() []byte
}

// Uint64Key is a mapping key for numeric ids and timestamps.
type Uint64Key uint64

func (k Uint64Key) Bytes() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(k))
	return b[:]
}

// PairKey combines two keys into one, e.g. (pool id, staker).
type PairKey[A Key, B Key] struct {
	First  A
	Second B
}

func (k PairKey[A, B]) Bytes() []byte {
	first := k.First.Bytes()
	second := k.Second.Bytes()
	b := make([]byte, 0, 1+len(first)+len(second))
	// length prefix keeps (a|bc) and (ab|c) apart
	b = append(b, byte(len(first)))
	b = append(b, first...)
	return append(b, second...)
}
