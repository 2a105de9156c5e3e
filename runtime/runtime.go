// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package runtime executes the calls, messages and end of block hooks of one block.
package runtime

import (
	"time"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/enclavenet/enclave/builtin"
	"github.com/enclavenet/enclave/builtin/mq"
	"github.com/enclavenet/enclave/builtin/reverts"
	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/kv"
	"github.com/enclavenet/enclave/log"
	"github.com/enclavenet/enclave/metrics"
	"github.com/enclavenet/enclave/state"
	"github.com/enclavenet/enclave/tx"
	"github.com/enclavenet/enclave/xenv"
)

var logger = log.WithContext("pkg", "runtime")

var (
	metricCallDuration  = metrics.LazyLoadHistogram("runtime_call_duration_ms", metrics.BucketCallMs)
	metricRevertedCalls = metrics.LazyLoadCounterVec("runtime_reverted_calls_count", []string{"call", "reason"})
	metricBlockCalls    = metrics.LazyLoadGauge("runtime_block_calls")
)

// Options tunes the runtime.
type Options struct {
	// Strict enables the pool invariant checks after every mutation.
	Strict bool
}

// Runtime is to support call execution within one block. Every unit it runs is atomic: a
// revert rolls back its state changes, events and messages, and is recorded in the receipt.
// Any other error is fatal for the block.
type Runtime struct {
	state    *state.State
	env      *xenv.Environment
	builtins *builtin.Builtins

	calls uint32
}

// New create a Runtime object.
func New(st *state.State, blockCtx *xenv.BlockContext, opts Options) *Runtime {
	env := xenv.New(st, blockCtx)
	return &Runtime{
		state:    st,
		env:      env,
		builtins: builtin.New(env, builtin.Options{Strict: opts.Strict}),
	}
}

func (rt *Runtime) State() *state.State              { return rt.state }
func (rt *Runtime) BlockContext() *xenv.BlockContext { return rt.env.BlockContext() }
func (rt *Runtime) Builtins() *builtin.Builtins      { return rt.builtins }
func (rt *Runtime) Outbox() *mq.Outbox               { return rt.env.Outbox() }
func (rt *Runtime) Events() []xenv.Event             { return rt.env.Events() }
func (rt *Runtime) Environment() *xenv.Environment   { return rt.env }

// ExecuteCall applies call on behalf of origin.
func (rt *Runtime) ExecuteCall(origin enclave.Address, call tx.Call) (*tx.Receipt, error) {
	id, err := tx.ID(rt.env.BlockContext().Number, rt.calls, origin, call)
	if err != nil {
		return nil, err
	}
	rt.calls++
	metricBlockCalls().Set(int64(rt.calls))

	rt.env.SetTransactionContext(&xenv.TransactionContext{ID: id, Origin: origin})
	receipt, err := rt.execute(call.Name(), func() error {
		return call.Apply(rt.builtins, origin)
	})
	if err != nil {
		return nil, err
	}
	receipt.ID = id
	return receipt, nil
}

// DeliverMessage routes an inbound message to its handler.
func (rt *Runtime) DeliverMessage(msg mq.Message) (*tx.Receipt, error) {
	data, err := rlp.EncodeToBytes(&msg)
	if err != nil {
		return nil, errors.Wrap(err, "encode message")
	}
	id := enclave.Blake2b(data)

	rt.env.SetTransactionContext(&xenv.TransactionContext{ID: id})
	receipt, err := rt.execute("message:"+string(msg.Destination), func() error {
		return rt.builtins.Router.Dispatch(msg)
	})
	if err != nil {
		return nil, err
	}
	receipt.ID = id
	return receipt, nil
}

// Finalize runs the end of block hooks.
func (rt *Runtime) Finalize() (*tx.Receipt, error) {
	rt.env.SetTransactionContext(&xenv.TransactionContext{})
	return rt.execute("finalize", rt.builtins.OnFinalize)
}

// Commit writes the state changes of the block into putter and returns their digest.
func (rt *Runtime) Commit(putter kv.Putter) (enclave.Bytes32, error) {
	stage := rt.state.Stage()
	hash := stage.Hash()
	if err := stage.Commit(putter); err != nil {
		return enclave.Bytes32{}, errors.Wrap(err, "commit state")
	}
	logger.Debug("block committed", "number", rt.env.BlockContext().Number, "changes", stage.Len(), "hash", hash)
	return hash, nil
}

func (rt *Runtime) execute(name string, fn func() error) (*tx.Receipt, error) {
	start := time.Now()
	defer func() {
		metricCallDuration().Observe(time.Since(start).Milliseconds())
	}()

	cp := rt.env.NewCheckpoint()
	events := len(rt.env.Events())
	messages := rt.env.Outbox().Len()

	receipt := &tx.Receipt{Name: name}
	if err := fn(); err != nil {
		rt.env.RevertTo(cp)
		if !reverts.IsRevertErr(err) {
			logger.Error("execution aborted", "name", name, "err", err)
			return nil, errors.WithMessagef(err, "execute %s", name)
		}
		receipt.Revert(err)
		metricRevertedCalls().AddWithLabel(1, map[string]string{"call": name, "reason": receipt.Reason})
		logger.Debug("reverted", "name", name, "reason", receipt.Reason)
		return receipt, nil
	}
	receipt.Events = rt.env.Events()[events:]
	receipt.Messages = rt.env.Outbox().Messages()[messages:]
	return receipt, nil
}
