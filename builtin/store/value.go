// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package store

import (
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/enclavenet/enclave/enclave"
)

// Value is a single rlp encoded storage slot.
type Value[V any] struct {
	context *Context
	pos     enclave.Bytes32
}

func NewValue[V any](context *Context, pos enclave.Bytes32) *Value[V] {
	return &Value[V]{context: context, pos: pos}
}

// Get returns the stored value, or the zero value of V if absent.
func (v *Value[V]) Get() (value V, err error) {
	err = v.context.state.DecodeStorage(v.context.address, v.pos, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &value)
	})
	return
}

func (v *Value[V]) Set(value V) error {
	return v.context.state.EncodeStorage(v.context.address, v.pos, func() ([]byte, error) {
		return rlp.EncodeToBytes(value)
	})
}

// Counter is a persisted uint64.
type Counter struct {
	*Value[uint64]
}

func NewCounter(context *Context, pos enclave.Bytes32) *Counter {
	return &Counter{NewValue[uint64](context, pos)}
}

// Next returns the current value and stores its successor.
func (c *Counter) Next() (uint64, error) {
	n, err := c.Get()
	if err != nil {
		return 0, err
	}
	return n, c.Set(n + 1)
}

// Add adds delta to the counter, saturating at zero.
func (c *Counter) Add(delta int64) (uint64, error) {
	n, err := c.Get()
	if err != nil {
		return 0, err
	}
	if delta < 0 && uint64(-delta) > n {
		n = 0
	} else {
		n = uint64(int64(n) + delta)
	}
	return n, c.Set(n)
}
