// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package builtin binds the builtin modules to one execution environment.
package builtin

import (
	"github.com/enclavenet/enclave/builtin/currency"
	"github.com/enclavenet/enclave/builtin/mining"
	"github.com/enclavenet/enclave/builtin/mq"
	"github.com/enclavenet/enclave/builtin/registry"
	"github.com/enclavenet/enclave/builtin/stakepool"
	"github.com/enclavenet/enclave/builtin/store"
	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/xenv"
)

// Module addresses. Each builtin keeps its storage under its own address.
var (
	CurrencyAddress  = enclave.BytesToAddress([]byte("currency"))
	RegistryAddress  = enclave.BytesToAddress([]byte("registry"))
	MiningAddress    = enclave.BytesToAddress([]byte("mining"))
	StakePoolAddress = enclave.BytesToAddress([]byte("stakepool"))
	RouterAddress    = enclave.BytesToAddress([]byte("router"))
)

// Options tunes the builtins.
type Options struct {
	// Strict enables the pool invariant checks after every mutation.
	Strict bool
}

// Builtins holds the builtin modules of one environment.
type Builtins struct {
	Env       *xenv.Environment
	Currency  *currency.Currency
	Registry  *registry.Registry
	Mining    *mining.Mining
	StakePool *stakepool.StakePool
	Router    *mq.Router
}

// New wires the builtins over env. The stake pool receives the mining callbacks, and mining
// updates are routed to the miner state machine.
func New(env *xenv.Environment, opts Options) *Builtins {
	cur := currency.New(CurrencyAddress, env)
	reg := registry.New(RegistryAddress, env)
	m := mining.New(MiningAddress, env, reg, cur)
	sp := stakepool.New(StakePoolAddress, env, cur, reg, m, stakepool.Options{Strict: opts.Strict})
	m.Subscribe(sp)

	router := mq.NewRouter(store.NewContext(RouterAddress, env.State()))
	router.Handle(mining.TopicMiningUpdate, m.HandleMessage)

	return &Builtins{
		Env:       env,
		Currency:  cur,
		Registry:  reg,
		Mining:    m,
		StakePool: sp,
		Router:    router,
	}
}

// OnFinalize runs the end of block hooks: the withdrawal expiry scan, then the heartbeat
// challenge.
func (b *Builtins) OnFinalize() error {
	if err := b.StakePool.OnFinalize(); err != nil {
		return err
	}
	return b.Mining.OnFinalize()
}
