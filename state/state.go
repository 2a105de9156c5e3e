// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/kv"
	"github.com/enclavenet/enclave/stackedmap"
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.cause
}

type storageKey struct {
	addr enclave.Address
	key  enclave.Bytes32
}

func (k storageKey) encode() []byte {
	b := make([]byte, 0, len(k.addr)+len(k.key))
	return append(append(b, k.addr[:]...), k.key[:]...)
}

// State manages the module storage of one block.
type State struct {
	db kv.Getter
	sm *stackedmap.StackedMap[storageKey, rlp.RawValue]
}

// New create state object reading committed slots from db.
func New(db kv.Getter) *State {
	s := &State{db: db}
	s.sm = stackedmap.New(s.load)
	s.sm.Push()
	return s
}

func (s *State) load(key storageKey) (rlp.RawValue, bool, error) {
	raw, err := s.db.Get(key.encode())
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, true, nil
		}
		return nil, false, err
	}
	return raw, true, nil
}

// GetRawStorage returns storage value in rlp raw for given address and key.
func (s *State) GetRawStorage(addr enclave.Address, key enclave.Bytes32) (rlp.RawValue, error) {
	raw, _, err := s.sm.Get(storageKey{addr, key})
	if err != nil {
		return nil, &Error{err}
	}
	return raw, nil
}

// SetRawStorage set storage value in rlp raw. Empty raw deletes the slot.
func (s *State) SetRawStorage(addr enclave.Address, key enclave.Bytes32, raw rlp.RawValue) {
	s.sm.Put(storageKey{addr, key}, raw)
}

// EncodeStorage set storage value encoded by given enc method.
func (s *State) EncodeStorage(addr enclave.Address, key enclave.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage get and decode storage value.
// Error returned by dec will be passed through.
func (s *State) DecodeStorage(addr enclave.Address, key enclave.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
	// the base level always exists
	if s.sm.Depth() == 0 {
		s.sm.Push()
	}
}

// Stage makes a stage object to compute the digest of changes or commit them.
func (s *State) Stage() *Stage {
	changes := make(map[storageKey]rlp.RawValue)
	s.sm.Journal(func(k storageKey, v rlp.RawValue) bool {
		changes[k] = v
		return true
	})
	return newStage(changes)
}
