// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"bytes"
	"io"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/kv"
)

type change struct {
	key []byte
	val rlp.RawValue
}

// Stage abstracts the changes of a state, sorted by slot.
type Stage struct {
	changes []change
}

func newStage(m map[storageKey]rlp.RawValue) *Stage {
	changes := make([]change, 0, len(m))
	for k, v := range m {
		changes = append(changes, change{k.encode(), v})
	}
	sort.Slice(changes, func(i, j int) bool {
		return bytes.Compare(changes[i].key, changes[j].key) < 0
	})
	return &Stage{changes}
}

// Len returns the number of changed slots.
func (s *Stage) Len() int {
	return len(s.changes)
}

// Hash computes the digest of the change set.
func (s *Stage) Hash() enclave.Bytes32 {
	var buf bytes.Buffer
	for _, c := range s.changes {
		writeChange(&buf, c)
	}
	return enclave.Blake2b(buf.Bytes())
}

func writeChange(w io.Writer, c change) {
	w.Write(c.key)
	rlp.Encode(w, []byte(c.val))
}

// Commit writes all changes into putter. Empty values are deleted.
func (s *Stage) Commit(putter kv.Putter) error {
	for _, c := range s.changes {
		var err error
		if len(c.val) == 0 {
			err = putter.Delete(c.key)
		} else {
			err = putter.Put(c.key, c.val)
		}
		if err != nil {
			return &Error{err}
		}
	}
	return nil
}
