// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package store

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/enclavenet/enclave/enclave"
)

// Mapping is a key/value storage abstraction for builtins. Values are rlp encoded into one
// slot per key, the slot being blake2b(key || basePos).
type Mapping[K Key, V any] struct {
	context *Context
	basePos enclave.Bytes32
}

func NewMapping[K Key, V any](context *Context, pos enclave.Bytes32) *Mapping[K, V] {
	return &Mapping[K, V]{context: context, basePos: pos}
}

func (m *Mapping[K, V]) position(key K) enclave.Bytes32 {
	return enclave.Blake2b(key.Bytes(), m.basePos.Bytes())
}

// Get returns the value of key, or the zero value of V (nil for pointers) if absent.
func (m *Mapping[K, V]) Get(key K) (value V, err error) {
	err = m.context.state.DecodeStorage(m.context.address, m.position(key), func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &value)
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return value, nil
}

// Has reports whether key holds a value.
func (m *Mapping[K, V]) Has(key K) (bool, error) {
	raw, err := m.context.state.GetRawStorage(m.context.address, m.position(key))
	if err != nil {
		return false, err
	}
	return len(raw) > 0, nil
}

// Set stores value under key.
func (m *Mapping[K, V]) Set(key K, value V) error {
	return m.context.state.EncodeStorage(m.context.address, m.position(key), func() ([]byte, error) {
		return rlp.EncodeToBytes(value)
	})
}

// Delete clears the slot of key.
func (m *Mapping[K, V]) Delete(key K) {
	m.context.state.SetRawStorage(m.context.address, m.position(key), nil)
}
