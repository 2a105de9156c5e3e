// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package mining

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/enclavenet/enclave/builtin/currency"
	"github.com/enclavenet/enclave/builtin/mq"
	"github.com/enclavenet/enclave/builtin/registry"
	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/lvldb"
	"github.com/enclavenet/enclave/state"
	"github.com/enclavenet/enclave/xenv"
)

var (
	operator = enclave.BytesToAddress([]byte("operator"))
	miner1   = enclave.BytesToAddress([]byte("miner1"))
	miner2   = enclave.BytesToAddress([]byte("miner2"))
	worker1  = enclave.BytesToWorkerPubkey([]byte{1})
	worker2  = enclave.BytesToWorkerPubkey([]byte{2})
	worker3  = enclave.BytesToWorkerPubkey([]byte{3})
)

type call struct {
	name    string
	worker  enclave.WorkerPubkey
	miner   enclave.Address
	forced  bool
	orig    *big.Int
	slashed *big.Int
	settle  []SettleInfo
}

// recorder captures every callback in order.
type recorder struct {
	calls []call
}

func (r *recorder) OnReward(settle []SettleInfo) error {
	r.calls = append(r.calls, call{name: "OnReward", settle: settle})
	return nil
}

func (r *recorder) OnUnbound(worker enclave.WorkerPubkey, forced bool) error {
	r.calls = append(r.calls, call{name: "OnUnbound", worker: worker, forced: forced})
	return nil
}

func (r *recorder) OnStopped(worker enclave.WorkerPubkey, orig, slashed *big.Int) error {
	r.calls = append(r.calls, call{name: "OnStopped", worker: worker, orig: orig, slashed: slashed})
	return nil
}

func (r *recorder) OnReclaim(miner enclave.Address, orig, slashed *big.Int) error {
	r.calls = append(r.calls, call{name: "OnReclaim", miner: miner, orig: orig, slashed: slashed})
	return nil
}

func (r *recorder) names() []string {
	names := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		names = append(names, c.name)
	}
	return names
}

type testEnv struct {
	env      *xenv.Environment
	mining   *Mining
	registry *registry.Registry
	currency *currency.Currency
	rec      *recorder
}

func newTestEnv(t *testing.T) *testEnv {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := xenv.New(state.New(db), &xenv.BlockContext{Number: 1, Time: 1000})
	reg := registry.New(enclave.BytesToAddress([]byte("registry")), env)
	cur := currency.New(enclave.BytesToAddress([]byte("currency")), env)
	m := New(enclave.BytesToAddress([]byte("mining")), env, reg, cur)
	rec := &recorder{}
	m.Subscribe(rec)

	// worker1 and worker2 are benchmarked, worker3 is not
	for _, w := range []enclave.WorkerPubkey{worker1, worker2, worker3} {
		require.NoError(t, reg.Register(w, operator))
	}
	require.NoError(t, reg.SetBenchmark(worker1, 1))
	require.NoError(t, reg.SetBenchmark(worker2, 1))

	return &testEnv{env: env, mining: m, registry: reg, currency: cur, rec: rec}
}

func (te *testEnv) setTime(ts uint64) {
	te.env.BlockContext().Time = ts
}

func (te *testEnv) minerState(t *testing.T, miner enclave.Address) MinerState {
	info, err := te.mining.Miner(miner)
	require.NoError(t, err)
	require.NotNil(t, info)
	return info.State
}

// workerEvents decodes the worker events published so far.
func (te *testEnv) workerEvents(t *testing.T) []WorkerEvent {
	var out []WorkerEvent
	for _, msg := range te.env.Outbox().Messages() {
		if msg.Destination != TopicWorkerEvent {
			continue
		}
		var ev WorkerEvent
		require.NoError(t, mq.Decode(msg, &ev))
		out = append(out, ev)
	}
	return out
}

func (te *testEnv) eventNames() []string {
	var names []string
	for _, ev := range te.env.Events() {
		names = append(names, ev.EventName())
	}
	return names
}
