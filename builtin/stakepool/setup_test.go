// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakepool

import (
	"fmt"
	"math/big"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/enclavenet/enclave/builtin/currency"
	"github.com/enclavenet/enclave/builtin/mining"
	"github.com/enclavenet/enclave/builtin/mq"
	"github.com/enclavenet/enclave/builtin/registry"
	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/fixed"
	"github.com/enclavenet/enclave/lvldb"
	"github.com/enclavenet/enclave/state"
	"github.com/enclavenet/enclave/xenv"
)

var (
	owner   = enclave.BytesToAddress([]byte("owner"))
	alice   = enclave.BytesToAddress([]byte("alice"))
	bob     = enclave.BytesToAddress([]byte("bob"))
	eve     = enclave.BytesToAddress([]byte("eve"))
	worker1 = enclave.BytesToWorkerPubkey([]byte{1})
	worker2 = enclave.BytesToWorkerPubkey([]byte{2})
	worker3 = enclave.BytesToWorkerPubkey([]byte{3})

	miningAddr = enclave.BytesToAddress([]byte("mining"))
)

// initialBalance is minted to every staker.
var initialBalance = enclave.Tokens(2000)

type testEnv struct {
	env      *xenv.Environment
	registry *registry.Registry
	currency *currency.Currency
	mining   *mining.Mining
	sp       *StakePool
	mark     int
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithOptions(t, Options{Strict: true})
}

func newTestEnvWithOptions(t *testing.T, opts Options) *testEnv {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := xenv.New(state.New(db), &xenv.BlockContext{Number: 1, Time: 1000})
	reg := registry.New(enclave.BytesToAddress([]byte("registry")), env)
	cur := currency.New(enclave.BytesToAddress([]byte("currency")), env)
	m := mining.New(miningAddr, env, reg, cur)
	sp := New(enclave.BytesToAddress([]byte("stakepool")), env, cur, reg, m, opts)
	m.Subscribe(sp)

	for _, who := range []enclave.Address{owner, alice, bob} {
		require.NoError(t, cur.Mint(who, initialBalance))
	}
	require.NoError(t, cur.Mint(miningAddr, enclave.Tokens(100000)))
	return &testEnv{env: env, registry: reg, currency: cur, mining: m, sp: sp}
}

// setupWorkers registers benchmarked workers operated by op.
func (te *testEnv) setupWorkers(t *testing.T, op enclave.Address, workers ...enclave.WorkerPubkey) {
	for _, w := range workers {
		require.NoError(t, te.registry.Register(w, op))
		require.NoError(t, te.registry.SetBenchmark(w, 1))
	}
}

// setupPool creates a pool of op with workers added.
func (te *testEnv) setupPool(t *testing.T, op enclave.Address, workers ...enclave.WorkerPubkey) uint64 {
	pid, err := te.sp.Create(op)
	require.NoError(t, err)
	for _, w := range workers {
		require.NoError(t, te.sp.AddWorker(op, pid, w))
	}
	return pid
}

func (te *testEnv) setTime(ts uint64) {
	te.env.BlockContext().Time = ts
}

func (te *testEnv) elapse(secs uint64) {
	te.env.BlockContext().Time += secs
}

func (te *testEnv) elapseCoolDown(t *testing.T) {
	period, err := te.mining.CoolDownPeriod()
	require.NoError(t, err)
	te.elapse(period + 1)
}

func (te *testEnv) pool(t *testing.T, pid uint64) *PoolInfo {
	pool, err := te.sp.Pool(pid)
	require.NoError(t, err)
	require.NotNil(t, pool)
	return pool
}

func (te *testEnv) staker(t *testing.T, pid uint64, who enclave.Address) *UserStakeInfo {
	staker, err := te.sp.Staker(pid, who)
	require.NoError(t, err)
	require.NotNil(t, staker)
	return staker
}

func (te *testEnv) ledger(t *testing.T, who enclave.Address) *big.Int {
	locked, err := te.sp.LedgerQuery(who)
	require.NoError(t, err)
	return locked
}

func (te *testEnv) currencyLock(t *testing.T, who enclave.Address) *big.Int {
	locked, err := te.currency.Locked(who)
	require.NoError(t, err)
	return locked
}

func (te *testEnv) miner(t *testing.T, miner enclave.Address) *mining.MinerInfo {
	info, err := te.mining.Miner(miner)
	require.NoError(t, err)
	require.NotNil(t, info)
	return info
}

// setV reports a new value of worker through the gatekeeper, without payout.
func (te *testEnv) setV(t *testing.T, worker enclave.WorkerPubkey, v fixed.Point) {
	require.NoError(t, te.mining.OnGatekeeperMessage(mq.GatekeeperOrigin(), &mining.MiningInfoUpdate{
		Settle: []mining.SettleInfo{{Pubkey: worker, V: v, Payout: fixed.Zero()}},
	}))
}

// scaleVe returns ve * num / den rounded up.
func scaleVe(ve fixed.Point, num, den int64) fixed.Point {
	bits := new(big.Int).Mul(ve.Bits(), big.NewInt(num))
	bits.Add(bits, big.NewInt(den-1))
	return fixed.FromBits(bits.Quo(bits, big.NewInt(den)))
}

// takeEvents returns the events of this package logged since the last call.
func (te *testEnv) takeEvents() []string {
	all := te.env.Events()
	pkg := reflect.TypeOf(PoolCreated{}).PkgPath()
	var out []string
	for _, ev := range all[te.mark:] {
		typ := reflect.TypeOf(ev)
		if typ.Kind() == reflect.Pointer {
			typ = typ.Elem()
		}
		if typ.PkgPath() == pkg {
			out = append(out, render(ev))
		}
	}
	te.mark = len(all)
	return out
}

func render(ev xenv.Event) string {
	return fmt.Sprintf("%s%v", ev.EventName(), ev)
}

func renderAll(evs ...xenv.Event) []string {
	out := make([]string, 0, len(evs))
	for _, ev := range evs {
		out = append(out, render(ev))
	}
	return out
}

func raw(n int64) *big.Int {
	return big.NewInt(n)
}

func bigEq(t *testing.T, expected, actual *big.Int) {
	t.Helper()
	require.Zero(t, expected.Cmp(actual), "expected %v, got %v", expected, actual)
}
