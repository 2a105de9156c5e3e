// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package store provides typed persistent storage for builtins on top of the world state.
package store

import (
	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/state"
)

// Context binds storage access to the account of one builtin.
type Context struct {
	address enclave.Address
	state   *state.State
}

func NewContext(address enclave.Address, state *state.State) *Context {
	return &Context{
		address: address,
		state:   state,
	}
}

func (c *Context) Address() enclave.Address {
	return c.address
}

func (c *Context) State() *state.State {
	return c.state
}

// Slot derives a storage position from a name, the way builtins lay out their maps.
func Slot(name string) enclave.Bytes32 {
	return enclave.BytesToBytes32([]byte(name))
}
