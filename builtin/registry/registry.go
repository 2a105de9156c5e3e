// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package registry records the workers known to the chain, their operators and benchmarks.
package registry

import (
	"github.com/enclavenet/enclave/builtin/reverts"
	"github.com/enclavenet/enclave/builtin/store"
	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/xenv"
)

var (
	ErrWorkerNotFound     = reverts.New("WorkerNotFound")
	ErrDuplicateWorker    = reverts.New("DuplicateWorker")
	ErrNotWorkerOperator  = reverts.New("NotWorkerOperator")
	ErrInvalidBenchmark   = reverts.New("InvalidBenchmark")
	ErrGatekeeperNotFound = reverts.New("GatekeeperNotFound")
)

var (
	slotWorkers    = store.Slot("workers")
	slotGatekeeper = store.Slot("gatekeeper")
)

// WorkerInfo is the registered identity of a worker.
type WorkerInfo struct {
	Pubkey       enclave.WorkerPubkey
	Operator     enclave.Address
	HasOperator  bool
	InitialScore uint32
	HasScore     bool
}

// Registry is the worker registry builtin.
type Registry struct {
	env        *xenv.Environment
	workers    *store.Mapping[enclave.WorkerPubkey, *WorkerInfo]
	gatekeeper *store.Value[*enclave.WorkerPubkey]
}

func New(addr enclave.Address, env *xenv.Environment) *Registry {
	ctx := store.NewContext(addr, env.State())
	return &Registry{
		env:        env,
		workers:    store.NewMapping[enclave.WorkerPubkey, *WorkerInfo](ctx, slotWorkers),
		gatekeeper: store.NewValue[*enclave.WorkerPubkey](ctx, slotGatekeeper),
	}
}

// Register adds a worker operated by operator. A zero operator registers no operator.
func (r *Registry) Register(pubkey enclave.WorkerPubkey, operator enclave.Address) error {
	existing, err := r.workers.Get(pubkey)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrDuplicateWorker
	}
	info := &WorkerInfo{
		Pubkey:      pubkey,
		Operator:    operator,
		HasOperator: !operator.IsZero(),
	}
	if err := r.workers.Set(pubkey, info); err != nil {
		return err
	}
	r.env.Log(&WorkerRegistered{Pubkey: pubkey, Operator: operator})
	return nil
}

// SetBenchmark records the initial benchmark score of a worker.
func (r *Registry) SetBenchmark(pubkey enclave.WorkerPubkey, score uint32) error {
	if score == 0 {
		return ErrInvalidBenchmark
	}
	info, err := r.workers.Get(pubkey)
	if err != nil {
		return err
	}
	if info == nil {
		return ErrWorkerNotFound
	}
	info.InitialScore = score
	info.HasScore = true
	if err := r.workers.Set(pubkey, info); err != nil {
		return err
	}
	r.env.Log(&BenchmarkUpdated{Pubkey: pubkey, Score: score})
	return nil
}

// Get returns the worker record, nil if not registered.
func (r *Registry) Get(pubkey enclave.WorkerPubkey) (*WorkerInfo, error) {
	return r.workers.Get(pubkey)
}

func (r *Registry) WorkerExists(pubkey enclave.WorkerPubkey) (bool, error) {
	return r.workers.Has(pubkey)
}

// Benchmark returns the initial score of the worker, if recorded.
func (r *Registry) Benchmark(pubkey enclave.WorkerPubkey) (uint32, bool, error) {
	info, err := r.workers.Get(pubkey)
	if err != nil || info == nil {
		return 0, false, err
	}
	return info.InitialScore, info.HasScore, nil
}

// Operator returns the operator account of the worker, if any.
func (r *Registry) Operator(pubkey enclave.WorkerPubkey) (enclave.Address, bool, error) {
	info, err := r.workers.Get(pubkey)
	if err != nil || info == nil {
		return enclave.Address{}, false, err
	}
	return info.Operator, info.HasOperator, nil
}

// SetGatekeeper registers the worker that speaks as the gatekeeper.
func (r *Registry) SetGatekeeper(pubkey enclave.WorkerPubkey) error {
	ok, err := r.WorkerExists(pubkey)
	if err != nil {
		return err
	}
	if !ok {
		return ErrWorkerNotFound
	}
	return r.gatekeeper.Set(&pubkey)
}

// Gatekeeper returns the registered gatekeeper worker.
func (r *Registry) Gatekeeper() (enclave.WorkerPubkey, error) {
	gk, err := r.gatekeeper.Get()
	if err != nil {
		return enclave.WorkerPubkey{}, err
	}
	if gk == nil {
		return enclave.WorkerPubkey{}, ErrGatekeeperNotFound
	}
	return *gk, nil
}
