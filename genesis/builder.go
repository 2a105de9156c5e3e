// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/enclavenet/enclave/builtin"
	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/kv"
	"github.com/enclavenet/enclave/runtime"
	"github.com/enclavenet/enclave/state"
	"github.com/enclavenet/enclave/tx"
	"github.com/enclavenet/enclave/xenv"
)

// Builder helper to build the genesis state.
type Builder struct {
	timestamp uint64
	strict    bool

	stateProcs []func(b *builtin.Builtins) error
	calls      []tx.Signed
}

// Timestamp set timestamp.
func (b *Builder) Timestamp(t uint64) *Builder {
	b.timestamp = t
	return b
}

// Strict enables the pool invariant checks while building.
func (b *Builder) Strict(strict bool) *Builder {
	b.strict = strict
	return b
}

// State add a state process. State processes run before calls and bypass origin checks.
func (b *Builder) State(proc func(b *builtin.Builtins) error) *Builder {
	b.stateProcs = append(b.stateProcs, proc)
	return b
}

// Call add a call submitted by origin.
func (b *Builder) Call(call tx.Call, origin enclave.Address) *Builder {
	b.calls = append(b.calls, tx.Signed{Origin: origin, Call: call})
	return b
}

// Build builds the genesis state and commits it into db.
func (b *Builder) Build(db kv.Store) (*Genesis, error) {
	rt := runtime.New(state.New(db), &xenv.BlockContext{Time: b.timestamp}, runtime.Options{Strict: b.strict})

	for i, proc := range b.stateProcs {
		if err := proc(rt.Builtins()); err != nil {
			return nil, errors.Wrapf(err, "state process %d", i)
		}
	}

	var receipts tx.Receipts
	for i, c := range b.calls {
		receipt, err := rt.ExecuteCall(c.Origin, c.Call)
		if err != nil {
			return nil, errors.Wrapf(err, "call %d", i)
		}
		if receipt.Reverted {
			return nil, fmt.Errorf("call %d %s reverted: %s", i, c.Call.Name(), receipt.Reason)
		}
		receipts = append(receipts, receipt)
	}

	id, err := rt.Commit(db)
	if err != nil {
		return nil, err
	}
	return &Genesis{ID: id, Timestamp: b.timestamp, Receipts: receipts}, nil
}
