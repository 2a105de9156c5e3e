// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package enclave

import (
	"encoding/binary"
	"hash"

	"golang.org/x/crypto/blake2b"
)

// Blake2b computes blake2b-256 checksum of the concatenation of data.
func Blake2b(data ...[]byte) (h Bytes32) {
	if len(data) == 1 {
		return blake2b.Sum256(data[0])
	}
	w := newBlake2b()
	for _, b := range data {
		w.Write(b)
	}
	w.Sum(h[:0])
	return
}

// Blake2bUint64 hashes a little endian u64 followed by data, the layout used for
// ids derived from (index, key) pairs.
func Blake2bUint64(n uint64, data ...[]byte) (h Bytes32) {
	var le [8]byte
	binary.LittleEndian.PutUint64(le[:], n)

	w := newBlake2b()
	w.Write(le[:])
	for _, b := range data {
		w.Write(b)
	}
	w.Sum(h[:0])
	return
}

func newBlake2b() hash.Hash {
	// only fails with an oversized key
	w, _ := blake2b.New256(nil)
	return w
}
