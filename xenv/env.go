// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package xenv provides the explicit execution environment passed through builtin calls.
package xenv

import (
	"github.com/enclavenet/enclave/builtin/mq"
	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/state"
)

// BlockContext block context.
type BlockContext struct {
	Number uint32
	Time   uint64 // unix seconds
	Seed   enclave.Bytes32
}

// TransactionContext transaction context.
type TransactionContext struct {
	ID     enclave.Bytes32
	Origin enclave.Address
}

// Event is a typed record emitted by a builtin.
type Event interface {
	EventName() string
}

// Checkpoint marks a point the environment can revert to.
type Checkpoint struct {
	revision int
	events   int
	messages int
}

// Environment an env to execute builtin calls within one block.
type Environment struct {
	state    *state.State
	blockCtx *BlockContext
	txCtx    *TransactionContext
	events   []Event
	outbox   *mq.Outbox
}

// New create a new env.
func New(state *state.State, blockCtx *BlockContext) *Environment {
	return &Environment{
		state:    state,
		blockCtx: blockCtx,
		txCtx:    &TransactionContext{},
		outbox:   mq.NewOutbox(),
	}
}

func (env *Environment) State() *state.State                     { return env.state }
func (env *Environment) BlockContext() *BlockContext             { return env.blockCtx }
func (env *Environment) TransactionContext() *TransactionContext { return env.txCtx }
func (env *Environment) Outbox() *mq.Outbox                      { return env.outbox }

// Now returns the block time in unix seconds.
func (env *Environment) Now() uint64 {
	return env.blockCtx.Time
}

// SetTransactionContext replaces the context of the call being executed.
func (env *Environment) SetTransactionContext(txCtx *TransactionContext) {
	env.txCtx = txCtx
}

// Log records an event.
func (env *Environment) Log(ev Event) {
	env.events = append(env.events, ev)
}

// Events returns the events recorded so far, oldest first.
func (env *Environment) Events() []Event {
	return append([]Event(nil), env.events...)
}

// NewCheckpoint captures state, events and outbound messages.
func (env *Environment) NewCheckpoint() Checkpoint {
	return Checkpoint{
		revision: env.state.NewCheckpoint(),
		events:   len(env.events),
		messages: env.outbox.Len(),
	}
}

// RevertTo discards everything recorded after cp.
func (env *Environment) RevertTo(cp Checkpoint) {
	env.state.RevertTo(cp.revision)
	env.events = env.events[:cp.events]
	env.outbox.Truncate(cp.messages)
}
