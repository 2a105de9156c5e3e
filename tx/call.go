// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package tx defines the calls accounts submit to the builtins, their scenario encoding and
// their receipts.
package tx

import (
	"sort"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/enclavenet/enclave/builtin"
	"github.com/enclavenet/enclave/builtin/reverts"
	"github.com/enclavenet/enclave/enclave"
)

// ErrBadOrigin is returned when a root only call is submitted by another account.
var ErrBadOrigin = reverts.New("BadOrigin")

// Call is one entry point invocation applied on behalf of an origin.
type Call interface {
	// Name is the identifier of the call in scenario files.
	Name() string
	// Apply runs the call against the builtins.
	Apply(b *builtin.Builtins, origin enclave.Address) error
}

var calls = map[string]func() Call{}

func register(fn func() Call) {
	name := fn().Name()
	if _, ok := calls[name]; ok {
		panic("duplicated call " + name)
	}
	calls[name] = fn
}

func init() {
	register(func() Call { return &CreatePool{} })
	register(func() Call { return &AddWorker{} })
	register(func() Call { return &RemoveWorker{} })
	register(func() Call { return &SetCap{} })
	register(func() Call { return &SetPayoutPref{} })
	register(func() Call { return &Contribute{} })
	register(func() Call { return &Withdraw{} })
	register(func() Call { return &ClaimRewards{} })
	register(func() Call { return &ClaimOwnerRewards{} })
	register(func() Call { return &StartMining{} })
	register(func() Call { return &StopMining{} })
	register(func() Call { return &ReclaimPoolWorker{} })
	register(func() Call { return &Reclaim{} })
	register(func() Call { return &Unbind{} })
	register(func() Call { return &SetCoolDownPeriod{} })
	register(func() Call { return &SetExpectedHeartbeatCount{} })
	register(func() Call { return &ForceHeartbeat{} })
	register(func() Call { return &RegisterWorker{} })
	register(func() Call { return &SetBenchmark{} })
	register(func() Call { return &SetGatekeeper{} })
	register(func() Call { return &Transfer{} })
}

// NewCall returns an empty call of the given name.
func NewCall(name string) (Call, error) {
	fn, ok := calls[name]
	if !ok {
		return nil, errors.Errorf("unknown call %q", name)
	}
	return fn(), nil
}

// Names returns the names of all calls in order.
func Names() []string {
	names := make([]string, 0, len(calls))
	for name := range calls {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ID derives the identifier of a call from its position in a block.
func ID(blockNumber uint32, index uint32, origin enclave.Address, call Call) (enclave.Bytes32, error) {
	data, err := rlp.EncodeToBytes([]any{blockNumber, index, origin, call.Name(), call})
	if err != nil {
		return enclave.Bytes32{}, errors.Wrap(err, "encode call")
	}
	return enclave.Blake2b(data), nil
}

func requireRoot(origin enclave.Address) error {
	if origin != enclave.RootAccount {
		return ErrBadOrigin
	}
	return nil
}
