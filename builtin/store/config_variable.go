// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package store

import (
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/log"
)

var logger = log.WithContext("pkg", "store")

// ConfigVariable is a parameter with a default value that governance may override in storage.
type ConfigVariable[V any] struct {
	slot         enclave.Bytes32
	name         string
	defaultValue V
}

func NewConfigVariable[V any](name string, defaultValue V) *ConfigVariable[V] {
	return &ConfigVariable[V]{
		slot:         Slot(name),
		name:         name,
		defaultValue: defaultValue,
	}
}

func (c *ConfigVariable[V]) Name() string {
	return c.name
}

func (c *ConfigVariable[V]) Slot() enclave.Bytes32 {
	return c.slot
}

func (c *ConfigVariable[V]) Default() V {
	return c.defaultValue
}

// Get returns the overridden value stored under ctx, or the default.
func (c *ConfigVariable[V]) Get(ctx *Context) (V, error) {
	raw, err := ctx.state.GetRawStorage(ctx.address, c.slot)
	if err != nil {
		return c.defaultValue, err
	}
	if len(raw) == 0 {
		return c.defaultValue, nil
	}
	var value V
	if err := rlp.DecodeBytes(raw, &value); err != nil {
		logger.Warn("failed to decode config value", "name", c.name, "error", err)
		return c.defaultValue, errors.Wrapf(err, "config %s", c.name)
	}
	logger.Debug("config value overridden", "name", c.name, "value", value)
	return value, nil
}

// Set overrides the value under ctx.
func (c *ConfigVariable[V]) Set(ctx *Context, value V) error {
	return ctx.state.EncodeStorage(ctx.address, c.slot, func() ([]byte, error) {
		return rlp.EncodeToBytes(value)
	})
}

// Reset restores the default value.
func (c *ConfigVariable[V]) Reset(ctx *Context) {
	ctx.state.SetRawStorage(ctx.address, c.slot, nil)
}
