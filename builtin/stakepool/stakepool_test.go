// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakepool

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/enclavenet/enclave/builtin/mining"
	"github.com/enclavenet/enclave/builtin/mq"
	"github.com/enclavenet/enclave/builtin/reverts"
	"github.com/enclavenet/enclave/builtin/store"
	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/fixed"
)

func TestCreate(t *testing.T) {
	te := newTestEnv(t)

	pid, err := te.sp.Create(owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), pid)
	pid, err = te.sp.Create(owner)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), pid)
	require.NoError(t, te.sp.OnFinalize())

	assert.Equal(t, renderAll(
		&PoolCreated{Owner: owner, Pid: 0},
		&PoolCreated{Owner: owner, Pid: 1},
	), te.takeEvents())

	pool := te.pool(t, 0)
	assert.Equal(t, owner, pool.Owner)
	assert.Equal(t, enclave.Permill(0), pool.PayoutCommission)
	assert.False(t, pool.HasCap)
	assert.True(t, pool.RewardAcc.IsZero())
	for _, v := range []*big.Int{pool.OwnerReward, pool.TotalShares, pool.TotalStake, pool.FreeStake, pool.ReleasingStake} {
		assert.Zero(t, v.Sign())
	}
	assert.Empty(t, pool.Workers)
	assert.Empty(t, pool.WithdrawQueue)

	count, err := te.sp.PoolCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	missing, err := te.sp.Pool(5)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAddWorker(t *testing.T) {
	te := newTestEnv(t)
	require.NoError(t, te.registry.Register(worker1, owner))
	pid, err := te.sp.Create(owner)
	require.NoError(t, err)

	assert.ErrorIs(t, te.sp.AddWorker(owner, 1, worker2), ErrWorkerNotRegistered)
	assert.ErrorIs(t, te.sp.AddWorker(alice, pid, worker1), ErrUnauthorizedOperator)
	assert.ErrorIs(t, te.sp.AddWorker(owner, pid, worker1), ErrBenchmarkMissing)

	require.NoError(t, te.registry.SetBenchmark(worker1, 1))
	assert.ErrorIs(t, te.sp.AddWorker(owner, 100, worker1), ErrPoolDoesNotExist)
	alicePid, err := te.sp.Create(alice)
	require.NoError(t, err)
	assert.ErrorIs(t, te.sp.AddWorker(owner, alicePid, worker1), ErrUnauthorizedPoolOwner)

	te.takeEvents()
	require.NoError(t, te.sp.AddWorker(owner, pid, worker1))
	assert.Equal(t, renderAll(&PoolWorkerAdded{Pid: pid, Worker: worker1}), te.takeEvents())

	sub := SubAccount(pid, worker1)
	bound, ok, err := te.mining.WorkerBinding(worker1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, sub, bound)
	w, ok, err := te.mining.MinerBinding(sub)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, worker1, w)

	assigned, ok, err := te.sp.WorkerAssignment(worker1)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, pid, assigned)
	assigned, ok, err = te.sp.SubAccountAssignment(sub)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, pid, assigned)
	assert.Equal(t, []enclave.WorkerPubkey{worker1}, te.pool(t, pid).Workers)

	assert.ErrorIs(t, te.sp.AddWorker(owner, pid, worker1), ErrWorkerExists)

	// the worker is already bound to the miner of the first pool
	otherPid, err := te.sp.Create(owner)
	require.NoError(t, err)
	assert.ErrorIs(t, te.sp.AddWorker(owner, otherPid, worker1), ErrFailedToBindMinerAndWorker)
}

func TestRemoveWorker(t *testing.T) {
	te := newTestEnv(t)
	te.setupWorkers(t, owner, worker1, worker2, worker3)
	pid := te.setupPool(t, owner, worker1, worker2)
	otherPid := te.setupPool(t, owner, worker3)
	require.NoError(t, te.sp.Contribute(alice, pid, enclave.Tokens(100)))

	assert.ErrorIs(t, te.sp.RemoveWorker(owner, 9, worker1), ErrPoolDoesNotExist)
	assert.ErrorIs(t, te.sp.RemoveWorker(alice, pid, worker1), ErrUnauthorizedPoolOwner)
	assert.ErrorIs(t, te.sp.RemoveWorker(owner, pid, enclave.BytesToWorkerPubkey([]byte{9})), ErrWorkerDoesNotExist)
	assert.ErrorIs(t, te.sp.RemoveWorker(owner, pid, worker3), ErrWorkerInAnotherPool)
	assert.ErrorIs(t, te.sp.RemoveWorker(owner, otherPid, worker1), ErrWorkerInAnotherPool)

	// an idle worker is unbound right away
	require.NoError(t, te.sp.RemoveWorker(owner, pid, worker2))
	_, ok, err := te.mining.WorkerBinding(worker2)
	require.NoError(t, err)
	assert.False(t, ok)

	// a mining worker is stopped first and its stake comes back at reclaim
	require.NoError(t, te.sp.StartMining(owner, pid, worker1, enclave.Tokens(100)))
	te.takeEvents()
	require.NoError(t, te.sp.RemoveWorker(owner, pid, worker1))
	assert.Equal(t, renderAll(&PoolWorkerRemoved{Pid: pid, Worker: worker1}), te.takeEvents())

	sub := SubAccount(pid, worker1)
	assert.Equal(t, mining.MiningCoolingDown, te.miner(t, sub).State)
	pool := te.pool(t, pid)
	assert.Empty(t, pool.Workers)
	bigEq(t, enclave.Tokens(100), pool.ReleasingStake)
	bigEq(t, new(big.Int), pool.FreeStake)
	_, ok, err = te.sp.WorkerAssignment(worker1)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = te.sp.SubAccountAssignment(sub)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, te.sp.ReclaimPoolWorker(bob, pid, worker1), mining.ErrStillInCoolDown)
	te.elapseCoolDown(t)
	require.NoError(t, te.sp.ReclaimPoolWorker(bob, pid, worker1))
	pool = te.pool(t, pid)
	bigEq(t, enclave.Tokens(100), pool.FreeStake)
	bigEq(t, new(big.Int), pool.ReleasingStake)
	assert.Equal(t, mining.Ready, te.miner(t, sub).State)
}

func TestReAddCoolingWorker(t *testing.T) {
	te := newTestEnv(t)
	te.setupWorkers(t, owner, worker1)
	pid := te.setupPool(t, owner, worker1)
	require.NoError(t, te.sp.Contribute(alice, pid, enclave.Tokens(500)))
	require.NoError(t, te.sp.StartMining(owner, pid, worker1, enclave.Tokens(500)))
	require.NoError(t, te.sp.RemoveWorker(owner, pid, worker1))

	// the sub-account keeps cooling down until reclaimed
	sub := SubAccount(pid, worker1)
	assert.ErrorIs(t, te.sp.AddWorker(owner, pid, worker1), ErrFailedToBindMinerAndWorker)
	assert.Equal(t, mining.MiningCoolingDown, te.miner(t, sub).State)
	assert.Empty(t, te.pool(t, pid).Workers)

	te.elapseCoolDown(t)
	require.NoError(t, te.sp.ReclaimPoolWorker(bob, pid, worker1))
	pool := te.pool(t, pid)
	bigEq(t, enclave.Tokens(500), pool.FreeStake)
	bigEq(t, new(big.Int), pool.ReleasingStake)
	bigEq(t, enclave.Tokens(500), pool.TotalStake)

	// once reclaimed the worker can rejoin and mine again
	require.NoError(t, te.sp.AddWorker(owner, pid, worker1))
	require.NoError(t, te.sp.StartMining(owner, pid, worker1, enclave.Tokens(500)))
	require.NoError(t, te.sp.CheckPool(pid))
}

func TestStartMining(t *testing.T) {
	te := newTestEnv(t)
	pid, err := te.sp.Create(owner)
	require.NoError(t, err)
	assert.ErrorIs(t, te.sp.StartMining(owner, pid, worker1, new(big.Int)), ErrWorkerDoesNotExist)

	te.setupWorkers(t, owner, worker1, worker2)
	require.NoError(t, te.sp.AddWorker(owner, pid, worker1))
	require.NoError(t, te.sp.Contribute(owner, pid, enclave.Tokens(100)))

	assert.ErrorIs(t, te.sp.StartMining(owner, pid, worker1, new(big.Int)), mining.ErrInsufficientStake)
	assert.ErrorIs(t, te.sp.StartMining(owner, pid, worker1, enclave.Tokens(101)), ErrInsufficientFreeStake)
	assert.ErrorIs(t, te.sp.StartMining(alice, pid, worker1, enclave.Tokens(100)), ErrUnauthorizedPoolOwner)
	assert.ErrorIs(t, te.sp.StartMining(owner, pid, worker2, enclave.Tokens(100)), ErrWorkerDoesNotExist)
	assert.ErrorIs(t, te.sp.StartMining(owner, 7, worker1, enclave.Tokens(100)), ErrPoolDoesNotExist)

	require.NoError(t, te.sp.StartMining(owner, pid, worker1, enclave.Tokens(100)))
	online, err := te.mining.OnlineMiners()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), online)
	bigEq(t, new(big.Int), te.pool(t, pid).FreeStake)
	stake, err := te.mining.Stake(SubAccount(pid, worker1))
	require.NoError(t, err)
	bigEq(t, enclave.Tokens(100), stake)

	assert.ErrorIs(t, te.sp.StopMining(owner, pid, worker2), ErrWorkerDoesNotExist)
	require.NoError(t, te.sp.StopMining(owner, pid, worker1))
	assert.ErrorIs(t, te.sp.StopMining(owner, pid, worker1), mining.ErrMinerNotMining)
}

func TestBenchmarkMissing(t *testing.T) {
	te := newTestEnv(t)
	require.NoError(t, te.registry.Register(worker3, owner))
	pid, err := te.sp.Create(owner)
	require.NoError(t, err)
	require.NoError(t, te.sp.Contribute(owner, pid, enclave.Tokens(100)))
	te.takeEvents()

	assert.ErrorIs(t, te.sp.AddWorker(owner, pid, worker3), ErrBenchmarkMissing)
	pool := te.pool(t, pid)
	assert.Empty(t, pool.Workers)
	bigEq(t, enclave.Tokens(100), pool.FreeStake)
	bigEq(t, enclave.Tokens(100), te.ledger(t, owner))
	_, ok, err := te.mining.WorkerBinding(worker3)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, te.takeEvents())

	// a miner bound outside any pool cannot start either
	solo := enclave.BytesToAddress([]byte("solo"))
	require.NoError(t, te.mining.Bind(solo, worker3))
	assert.ErrorIs(t, te.mining.StartMining(solo, enclave.Tokens(10)), mining.ErrBenchmarkMissing)
	assert.Equal(t, mining.Ready, te.miner(t, solo).State)
	stake, err := te.mining.Stake(solo)
	require.NoError(t, err)
	assert.Zero(t, stake.Sign())
	online, err := te.mining.OnlineMiners()
	require.NoError(t, err)
	assert.Zero(t, online)
}

func TestForceUnbind(t *testing.T) {
	te := newTestEnv(t)
	te.setupWorkers(t, owner, worker1, worker2)
	pid0 := te.setupPool(t, owner, worker1)
	pid1 := te.setupPool(t, owner, worker2)
	require.NoError(t, te.sp.Contribute(owner, pid0, enclave.Tokens(100)))
	require.NoError(t, te.sp.Contribute(alice, pid1, enclave.Tokens(100)))

	// not mining: the operator unbinds and the worker leaves the pool
	sub0 := SubAccount(pid0, worker1)
	require.NoError(t, te.mining.Unbind(owner, sub0))
	_, ok, err := te.sp.WorkerAssignment(worker1)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = te.sp.SubAccountAssignment(sub0)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, te.pool(t, pid0).HasWorker(worker1))
	assert.Equal(t, mining.Ready, te.miner(t, sub0).State)

	// mining: the miner is stopped on the way out
	require.NoError(t, te.sp.StartMining(owner, pid1, worker2, enclave.Tokens(100)))
	sub1 := SubAccount(pid1, worker2)
	require.NoError(t, te.mining.Unbind(owner, sub1))
	_, ok, err = te.sp.WorkerAssignment(worker2)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = te.sp.SubAccountAssignment(sub1)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, te.pool(t, pid1).HasWorker(worker2))
	assert.Equal(t, mining.MiningCoolingDown, te.miner(t, sub1).State)
	bigEq(t, enclave.Tokens(100), te.pool(t, pid1).ReleasingStake)

	// the stake still finds its pool at reclaim
	te.elapseCoolDown(t)
	require.NoError(t, te.sp.ReclaimPoolWorker(bob, pid1, worker2))
	pool := te.pool(t, pid1)
	bigEq(t, enclave.Tokens(100), pool.FreeStake)
	bigEq(t, new(big.Int), pool.ReleasingStake)

	te.takeEvents()
	require.NoError(t, te.sp.Withdraw(alice, pid1, enclave.Tokens(100)))
	assert.Equal(t, renderAll(&Withdrawal{Pid: pid1, User: alice, Amount: enclave.Tokens(100)}), te.takeEvents())
	bigEq(t, new(big.Int), te.currencyLock(t, alice))
}

func TestPoolCap(t *testing.T) {
	te := newTestEnv(t)
	pid, err := te.sp.Create(owner)
	require.NoError(t, err)
	assert.False(t, te.pool(t, pid).HasCap)

	assert.ErrorIs(t, te.sp.SetCap(alice, 100, raw(1)), ErrPoolDoesNotExist)
	assert.ErrorIs(t, te.sp.SetCap(alice, pid, raw(1)), ErrUnauthorizedPoolOwner)

	te.takeEvents()
	require.NoError(t, te.sp.SetCap(owner, pid, enclave.Tokens(1000)))
	assert.Equal(t, renderAll(&PoolCapacitySet{Pid: pid, Cap: enclave.Tokens(1000)}), te.takeEvents())
	pool := te.pool(t, pid)
	assert.True(t, pool.HasCap)
	bigEq(t, enclave.Tokens(1000), pool.Cap)

	require.NoError(t, te.sp.Contribute(owner, pid, enclave.Tokens(100)))
	assert.ErrorIs(t, te.sp.SetCap(owner, pid, enclave.Tokens(99)), ErrInadequateCapacity)
	require.NoError(t, te.sp.Contribute(owner, pid, enclave.Tokens(900)))
	assert.ErrorIs(t, te.sp.Contribute(alice, pid, enclave.Tokens(900)), ErrStakeExceedsCapacity)
	assert.ErrorIs(t, te.sp.Contribute(alice, pid, enclave.Tokens(1)), ErrStakeExceedsCapacity)
}

func TestContribute(t *testing.T) {
	te := newTestEnv(t)
	pid0, err := te.sp.Create(owner)
	require.NoError(t, err)
	pid1, err := te.sp.Create(alice)
	require.NoError(t, err)

	require.NoError(t, te.sp.Contribute(owner, pid0, enclave.Tokens(1)))
	require.NoError(t, te.sp.Contribute(alice, pid0, enclave.Tokens(10)))
	require.NoError(t, te.sp.Contribute(owner, pid1, enclave.Tokens(100)))
	require.NoError(t, te.sp.Contribute(alice, pid1, enclave.Tokens(1000)))

	bigEq(t, enclave.Tokens(11), te.pool(t, pid0).TotalStake)
	bigEq(t, enclave.Tokens(1100), te.pool(t, pid1).TotalStake)
	bigEq(t, enclave.Tokens(101), te.ledger(t, owner))
	bigEq(t, enclave.Tokens(1010), te.ledger(t, alice))
	bigEq(t, enclave.Tokens(101), te.currencyLock(t, owner))
	bigEq(t, enclave.Tokens(1010), te.currencyLock(t, alice))

	stakers, err := te.sp.Stakers(pid0)
	require.NoError(t, err)
	assert.Equal(t, []enclave.Address{owner, alice}, stakers)

	assert.ErrorIs(t, te.sp.Contribute(owner, 100, enclave.Tokens(1)), ErrPoolDoesNotExist)
	assert.ErrorIs(t, te.sp.Contribute(owner, pid0, raw(1)), ErrInsufficientContribution)
	spare := new(big.Int).Sub(initialBalance, enclave.Tokens(101))
	assert.ErrorIs(t, te.sp.Contribute(owner, pid0, new(big.Int).Add(spare, raw(1))), ErrInsufficientBalance)
	require.NoError(t, te.sp.Contribute(owner, pid0, spare))

	// locked stake cannot be staked twice
	require.NoError(t, te.sp.Contribute(bob, pid0, initialBalance))
	assert.ErrorIs(t, te.sp.Contribute(bob, pid1, initialBalance), ErrInsufficientBalance)
}

func TestSlash(t *testing.T) {
	te := newTestEnv(t)
	te.setupWorkers(t, owner, worker1)
	pid := te.setupPool(t, owner, worker1)
	sub := SubAccount(pid, worker1)

	require.NoError(t, te.sp.Contribute(owner, pid, enclave.Tokens(100)))
	require.NoError(t, te.sp.Contribute(alice, pid, enclave.Tokens(400)))
	require.NoError(t, te.sp.StartMining(owner, pid, worker1, enclave.Tokens(500)))
	ve := te.miner(t, sub).Ve
	assert.Equal(t, "750.45", ve.String())

	// half of the value is lost before the miner stops
	te.takeEvents()
	te.setV(t, worker1, scaleVe(ve, 1, 2))
	require.NoError(t, te.sp.StopMining(owner, pid, worker1))
	te.elapseCoolDown(t)
	require.NoError(t, te.mining.Reclaim(sub))
	assert.Equal(t, renderAll(&PoolSlashed{Pid: pid, Amount: raw(250_000_000_000_000)}), te.takeEvents())

	pool := te.pool(t, pid)
	bigEq(t, raw(250_000_000_000_000), pool.TotalStake)
	staker1 := te.staker(t, pid, owner)
	staker2 := te.staker(t, pid, alice)
	require.NoError(t, te.sp.maybeSettleSlash(pool, staker1))
	require.NoError(t, te.sp.maybeSettleSlash(pool, staker2))
	require.NoError(t, te.sp.setStaker(pid, staker1))
	require.NoError(t, te.sp.setStaker(pid, staker2))
	assert.Equal(t, renderAll(
		&SlashSettled{Pid: pid, User: owner, Amount: raw(50_000_000_000_000)},
		&SlashSettled{Pid: pid, User: alice, Amount: raw(200_000_000_000_000)},
	), te.takeEvents())

	bigEq(t, enclave.Tokens(50), te.ledger(t, owner))
	bigEq(t, enclave.Tokens(200), te.ledger(t, alice))
	bigEq(t, enclave.Tokens(50), te.currencyLock(t, owner))
	bigEq(t, enclave.Tokens(200), te.currencyLock(t, alice))
	free, err := te.currency.FreeBalance(owner)
	require.NoError(t, err)
	bigEq(t, enclave.Tokens(1950), free)
	free, err = te.currency.FreeBalance(alice)
	require.NoError(t, err)
	bigEq(t, enclave.Tokens(1800), free)

	// settling twice changes nothing
	require.NoError(t, te.sp.maybeSettleSlash(pool, staker1))
	assert.Empty(t, te.takeEvents())

	// bob brings the pool back to 500, at half the share price
	require.NoError(t, te.sp.Contribute(bob, pid, new(big.Int).Add(enclave.Tokens(250), raw(1))))
	bigEq(t, raw(500_000_000_000_002), te.staker(t, pid, bob).Shares)
	require.NoError(t, te.sp.StartMining(owner, pid, worker1, enclave.Tokens(500)))
	te.takeEvents()
	te.setV(t, worker1, scaleVe(te.miner(t, sub).Ve, 1, 2))
	require.NoError(t, te.sp.StopMining(owner, pid, worker1))
	te.elapseCoolDown(t)
	require.NoError(t, te.mining.Reclaim(sub))
	assert.Equal(t, renderAll(&PoolSlashed{Pid: pid, Amount: raw(250_000_000_000_000)}), te.takeEvents())

	for _, who := range []enclave.Address{owner, alice, bob} {
		require.NoError(t, te.sp.Withdraw(who, pid, te.staker(t, pid, who).Shares))
	}
	assert.Equal(t, renderAll(
		&SlashSettled{Pid: pid, User: owner, Amount: raw(25_000_000_000_000)},
		&Withdrawal{Pid: pid, User: owner, Amount: raw(25_000_000_000_000)},
		&SlashSettled{Pid: pid, User: alice, Amount: raw(100_000_000_000_000)},
		&Withdrawal{Pid: pid, User: alice, Amount: raw(100_000_000_000_000)},
		&SlashSettled{Pid: pid, User: bob, Amount: raw(125_000_000_000_001)},
		&Withdrawal{Pid: pid, User: bob, Amount: raw(125_000_000_000_001)},
	), te.takeEvents())

	pool = te.pool(t, pid)
	assert.Zero(t, pool.TotalShares.Sign())
	assert.Zero(t, pool.TotalStake.Sign())
	for _, who := range []enclave.Address{owner, alice, bob} {
		assert.Zero(t, te.ledger(t, who).Sign())
		assert.Zero(t, te.currencyLock(t, who).Sign())
	}
}

func TestLockGrowsPastUsable(t *testing.T) {
	te := newTestEnv(t)
	pid, err := te.sp.Create(owner)
	require.NoError(t, err)
	require.NoError(t, te.sp.Contribute(alice, pid, enclave.Tokens(100)))
	require.NoError(t, te.currency.Transfer(alice, eve, enclave.Tokens(1900)))
	usable, err := te.currency.Usable(alice)
	require.NoError(t, err)
	assert.Zero(t, usable.Sign())

	// the share price ends up above the locked value
	pool := te.pool(t, pid)
	pool.TotalStake = new(big.Int).Add(pool.TotalStake, enclave.Tokens(1))
	staker := te.staker(t, pid, alice)
	require.NoError(t, te.sp.maybeSettleSlash(pool, staker))

	assert.Equal(t, 1, staker.Locked.Cmp(enclave.Tokens(100)))
	assert.True(t, staker.Locked.Cmp(enclave.Tokens(101)) <= 0)
	bigEq(t, staker.Locked, te.ledger(t, alice))
	bigEq(t, staker.Locked, te.currencyLock(t, alice))
	free, err := te.currency.FreeBalance(alice)
	require.NoError(t, err)
	bigEq(t, enclave.Tokens(100), free)
}

func TestBankruptPool(t *testing.T) {
	te := newTestEnv(t)
	te.setupWorkers(t, owner, worker1)
	pid := te.setupPool(t, owner, worker1)
	require.NoError(t, te.sp.Contribute(owner, pid, enclave.Tokens(100)))
	require.NoError(t, te.sp.StartMining(owner, pid, worker1, enclave.Tokens(100)))

	te.setV(t, worker1, fixed.Zero())
	require.NoError(t, te.sp.StopMining(owner, pid, worker1))
	te.elapseCoolDown(t)
	require.NoError(t, te.mining.Reclaim(SubAccount(pid, worker1)))

	pool := te.pool(t, pid)
	assert.True(t, pool.IsBankrupt())
	assert.ErrorIs(t, te.sp.Contribute(owner, pid, enclave.Tokens(10)), ErrPoolBankrupt)
	assert.ErrorIs(t, te.sp.Contribute(alice, pid, enclave.Tokens(10)), ErrPoolBankrupt)

	// dead shares are withdrawn for free and the pool accepts stake again
	te.takeEvents()
	require.NoError(t, te.sp.Withdraw(owner, pid, enclave.Tokens(100)))
	assert.Equal(t, renderAll(
		&SlashSettled{Pid: pid, User: owner, Amount: enclave.Tokens(100)},
		&Withdrawal{Pid: pid, User: owner, Amount: new(big.Int)},
	), te.takeEvents())
	assert.Zero(t, te.ledger(t, owner).Sign())
	free, err := te.currency.FreeBalance(owner)
	require.NoError(t, err)
	bigEq(t, enclave.Tokens(1900), free)

	require.NoError(t, te.sp.Contribute(alice, pid, enclave.Tokens(10)))
	bigEq(t, enclave.Tokens(10), te.staker(t, pid, alice).Shares)
}

func TestRewardManagement(t *testing.T) {
	te := newTestEnv(t)
	te.setupWorkers(t, owner, worker1)
	pid := te.setupPool(t, owner, worker1)

	require.NoError(t, te.sp.Contribute(owner, pid, enclave.Tokens(100)))
	require.NoError(t, te.sp.Contribute(alice, pid, enclave.Tokens(400)))
	pool := te.pool(t, pid)
	assert.True(t, pool.RewardAcc.IsZero())
	bigEq(t, enclave.Tokens(500), pool.TotalStake)

	reward := func(payout uint64) {
		require.NoError(t, te.sp.OnReward([]mining.SettleInfo{{
			Pubkey: worker1,
			V:      fixed.FromInt(1),
			Payout: fixed.FromInt(payout),
		}}))
	}

	reward(500)
	pool = te.pool(t, pid)
	assert.Zero(t, pool.RewardAcc.Cmp(fixed.FromInt(1)))
	bigEq(t, enclave.Tokens(100), pool.PendingReward(te.staker(t, pid, owner)))
	bigEq(t, enclave.Tokens(400), pool.PendingReward(te.staker(t, pid, alice)))

	te.takeEvents()
	require.NoError(t, te.sp.ClaimRewards(owner, pid, owner))
	assert.Equal(t, renderAll(&RewardsWithdrawn{Pid: pid, User: owner, Amount: enclave.Tokens(100)}), te.takeEvents())
	free, err := te.currency.FreeBalance(owner)
	require.NoError(t, err)
	bigEq(t, enclave.Tokens(2100), free)
	pool = te.pool(t, pid)
	staker1 := te.staker(t, pid, owner)
	assert.Zero(t, pool.RewardAcc.Cmp(fixed.FromInt(1)))
	bigEq(t, enclave.Tokens(100), staker1.RewardDebt)
	assert.Zero(t, pool.PendingReward(staker1).Sign())

	reward(500)
	pool = te.pool(t, pid)
	assert.Zero(t, pool.RewardAcc.Cmp(fixed.FromInt(2)))
	bigEq(t, enclave.Tokens(100), pool.PendingReward(te.staker(t, pid, owner)))
	bigEq(t, enclave.Tokens(800), pool.PendingReward(te.staker(t, pid, alice)))

	require.NoError(t, te.sp.ClaimRewards(alice, pid, alice))
	bigEq(t, enclave.Tokens(800), te.staker(t, pid, alice).RewardDebt)

	// contributing settles the pending reward first
	require.NoError(t, te.sp.Contribute(owner, pid, enclave.Tokens(300)))
	staker1 = te.staker(t, pid, owner)
	bigEq(t, enclave.Tokens(400), staker1.Shares)
	bigEq(t, enclave.Tokens(800), staker1.RewardDebt)
	bigEq(t, enclave.Tokens(100), staker1.AvailableRewards)

	reward(800)
	require.NoError(t, te.sp.ClaimRewards(owner, pid, owner))
	pool = te.pool(t, pid)
	assert.Zero(t, pool.RewardAcc.Cmp(fixed.FromInt(3)))
	assert.Zero(t, pool.PendingReward(te.staker(t, pid, owner)).Sign())
	bigEq(t, enclave.Tokens(400), pool.PendingReward(te.staker(t, pid, alice)))
	pending, err := te.sp.PendingReward(pid, alice)
	require.NoError(t, err)
	bigEq(t, enclave.Tokens(400), pending)

	te.takeEvents()
	require.NoError(t, te.sp.Withdraw(owner, pid, enclave.Tokens(400)))
	assert.Equal(t, renderAll(&Withdrawal{Pid: pid, User: owner, Amount: enclave.Tokens(400)}), te.takeEvents())
	staker1 = te.staker(t, pid, owner)
	assert.Zero(t, staker1.Shares.Sign())
	assert.Zero(t, staker1.RewardDebt.Sign())
	bigEq(t, enclave.Tokens(400), te.staker(t, pid, alice).Shares)
}

func TestPayoutCommission(t *testing.T) {
	te := newTestEnv(t)
	te.setupWorkers(t, owner, worker1)
	pid := te.setupPool(t, owner, worker1)

	assert.ErrorIs(t, te.sp.SetPayoutPref(owner, pid, 1_000_001), ErrInvalidCommission)
	assert.ErrorIs(t, te.sp.SetPayoutPref(alice, pid, 500_000), ErrUnauthorizedPoolOwner)
	te.takeEvents()
	require.NoError(t, te.sp.SetPayoutPref(owner, pid, 500_000))
	assert.Equal(t, renderAll(&PoolCommissionSet{Pid: pid, Commission: 500_000}), te.takeEvents())

	require.NoError(t, te.sp.Contribute(alice, pid, enclave.Tokens(100)))
	require.NoError(t, te.sp.OnReward([]mining.SettleInfo{{Pubkey: worker1, Payout: fixed.FromInt(10)}}))
	pool := te.pool(t, pid)
	bigEq(t, enclave.Tokens(5), pool.OwnerReward)
	bigEq(t, raw(4_999_999_999_999), pool.PendingReward(te.staker(t, pid, alice)))

	assert.ErrorIs(t, te.sp.ClaimOwnerRewards(alice, pid, alice), ErrUnauthorizedPoolOwner)
	te.takeEvents()
	require.NoError(t, te.sp.ClaimOwnerRewards(owner, pid, bob))
	assert.Equal(t, renderAll(&OwnerRewardsWithdrawn{Pid: pid, Owner: owner, Amount: enclave.Tokens(5)}), te.takeEvents())
	assert.Zero(t, te.pool(t, pid).OwnerReward.Sign())
	free, err := te.currency.FreeBalance(bob)
	require.NoError(t, err)
	bigEq(t, enclave.Tokens(2005), free)
}

func TestRewardOutsidePool(t *testing.T) {
	te := newTestEnv(t)
	te.setupWorkers(t, owner, worker1)
	pid := te.setupPool(t, owner, worker1)

	// unknown workers and pools without shares are skipped
	require.NoError(t, te.sp.OnReward([]mining.SettleInfo{
		{Pubkey: worker2, Payout: fixed.FromInt(10)},
		{Pubkey: worker1, Payout: fixed.FromInt(10)},
	}))
	pool := te.pool(t, pid)
	assert.True(t, pool.RewardAcc.IsZero())
	assert.Zero(t, pool.OwnerReward.Sign())

	require.NoError(t, te.sp.OnUnbound(worker2, false))
	require.NoError(t, te.sp.OnStopped(worker2, enclave.Tokens(1), new(big.Int)))
	require.NoError(t, te.sp.OnReclaim(alice, enclave.Tokens(1), new(big.Int)))
}

func TestRewardWhileCoolingDown(t *testing.T) {
	te := newTestEnv(t)
	te.setupWorkers(t, owner, worker1)
	pid := te.setupPool(t, owner, worker1)
	require.NoError(t, te.sp.Contribute(alice, pid, enclave.Tokens(500)))
	require.NoError(t, te.sp.StartMining(owner, pid, worker1, enclave.Tokens(500)))
	require.NoError(t, te.sp.StopMining(owner, pid, worker1))
	sub := SubAccount(pid, worker1)
	v := te.miner(t, sub).V

	// the payout settled after stop still belongs to the stakers
	require.NoError(t, te.mining.OnGatekeeperMessage(mq.GatekeeperOrigin(), &mining.MiningInfoUpdate{
		Settle: []mining.SettleInfo{{Pubkey: worker1, V: fixed.FromInt(1), Payout: fixed.FromInt(100)}},
	}))
	info := te.miner(t, sub)
	assert.Equal(t, mining.MiningCoolingDown, info.State)
	assert.Zero(t, v.Cmp(info.V))

	pending, err := te.sp.PendingReward(pid, alice)
	require.NoError(t, err)
	short := new(big.Int).Sub(enclave.Tokens(100), pending)
	assert.True(t, short.Sign() >= 0 && short.Cmp(raw(1)) <= 0, "pending %v", pending)
	require.NoError(t, te.sp.CheckPool(pid))

	// the frozen value keeps the stake whole
	te.elapseCoolDown(t)
	require.NoError(t, te.sp.ReclaimPoolWorker(bob, pid, worker1))
	pool := te.pool(t, pid)
	bigEq(t, enclave.Tokens(500), pool.FreeStake)
	bigEq(t, enclave.Tokens(500), pool.TotalStake)
	require.NoError(t, te.sp.CheckPool(pid))
}

func TestDrainedSubsidyPool(t *testing.T) {
	te := newTestEnv(t)
	te.setupWorkers(t, owner, worker1)
	pid := te.setupPool(t, owner, worker1)
	require.NoError(t, te.sp.Contribute(owner, pid, enclave.Tokens(100)))
	require.NoError(t, te.sp.OnReward([]mining.SettleInfo{{Pubkey: worker1, Payout: fixed.FromInt(500)}}))

	subsidy, err := te.currency.FreeBalance(miningAddr)
	require.NoError(t, err)
	require.NoError(t, te.currency.Transfer(miningAddr, eve, new(big.Int).Sub(subsidy, enclave.Tokens(1))))

	err = te.sp.ClaimRewards(owner, pid, owner)
	assert.ErrorIs(t, err, ErrInternalSubsidyPoolCannotWithdraw)
	assert.True(t, reverts.IsRevertErr(err))
	assert.ErrorIs(t, te.sp.ClaimRewards(alice, pid, alice), ErrPoolStakeNotFound)
}

func TestWithdraw(t *testing.T) {
	te := newTestEnv(t)
	te.setupWorkers(t, owner, worker1, worker2)
	pid := te.setupPool(t, owner, worker1, worker2)

	require.NoError(t, te.sp.Contribute(alice, pid, enclave.Tokens(1000)))
	require.NoError(t, te.sp.StartMining(owner, pid, worker1, enclave.Tokens(400)))
	require.NoError(t, te.sp.StartMining(owner, pid, worker2, enclave.Tokens(100)))
	bigEq(t, enclave.Tokens(1000), te.staker(t, pid, alice).Shares)
	bigEq(t, enclave.Tokens(1000), te.currencyLock(t, alice))

	assert.ErrorIs(t, te.sp.Withdraw(alice, pid, enclave.Tokens(9999)), ErrInvalidWithdrawalAmount)
	assert.ErrorIs(t, te.sp.Withdraw(alice, pid, new(big.Int)), ErrInvalidWithdrawalAmount)
	assert.ErrorIs(t, te.sp.Withdraw(bob, pid, enclave.Tokens(1)), ErrPoolStakeNotFound)

	// paid from the free stake right away
	require.NoError(t, te.sp.Withdraw(alice, pid, enclave.Tokens(499)))
	pool := te.pool(t, pid)
	bigEq(t, enclave.Tokens(1), pool.FreeStake)
	bigEq(t, enclave.Tokens(501), pool.TotalStake)
	bigEq(t, enclave.Tokens(501), te.staker(t, pid, alice).Shares)
	bigEq(t, enclave.Tokens(501), te.currencyLock(t, alice))

	// only one token is free, the other one waits
	te.takeEvents()
	require.NoError(t, te.sp.Withdraw(alice, pid, enclave.Tokens(2)))
	assert.Equal(t, renderAll(
		&Withdrawal{Pid: pid, User: alice, Amount: enclave.Tokens(1)},
		&WithdrawalQueued{Pid: pid, User: alice, Shares: enclave.Tokens(1)},
	), te.takeEvents())
	pool = te.pool(t, pid)
	bigEq(t, new(big.Int), pool.FreeStake)
	bigEq(t, enclave.Tokens(500), pool.TotalStake)
	bigEq(t, enclave.Tokens(500), te.staker(t, pid, alice).Shares)
	bigEq(t, enclave.Tokens(500), te.currencyLock(t, alice))
	require.Len(t, pool.WithdrawQueue, 1)
	assert.Equal(t, alice, pool.WithdrawQueue[0].User)
	bigEq(t, enclave.Tokens(1), pool.WithdrawQueue[0].Shares)
	assert.Equal(t, uint64(1000), pool.WithdrawQueue[0].StartTime)
	tss, err := te.sp.WithdrawalTimestamps()
	require.NoError(t, err)
	assert.Equal(t, []uint64{1000}, tss)
	pids, err := te.sp.WithdrawalQueuedPools(1000)
	require.NoError(t, err)
	assert.Equal(t, []uint64{pid}, pids)

	// a new contribution fulfils the queued request first
	require.NoError(t, te.sp.Contribute(owner, pid, enclave.Tokens(1)))
	assert.Equal(t, renderAll(
		&Withdrawal{Pid: pid, User: alice, Amount: enclave.Tokens(1)},
		&Contribution{Pid: pid, User: owner, Amount: enclave.Tokens(1)},
	), te.takeEvents())
	pool = te.pool(t, pid)
	bigEq(t, new(big.Int), pool.FreeStake)
	bigEq(t, enclave.Tokens(500), pool.TotalStake)
	assert.Empty(t, pool.WithdrawQueue)
	bigEq(t, enclave.Tokens(1), te.staker(t, pid, owner).Shares)
	bigEq(t, enclave.Tokens(499), te.staker(t, pid, alice).Shares)
	bigEq(t, enclave.Tokens(499), te.currencyLock(t, alice))

	require.NoError(t, te.sp.Withdraw(alice, pid, enclave.Tokens(199)))
	require.NoError(t, te.sp.Withdraw(owner, pid, enclave.Tokens(1)))
	pool = te.pool(t, pid)
	require.Len(t, pool.WithdrawQueue, 2)
	assert.Equal(t, alice, pool.WithdrawQueue[0].User)
	bigEq(t, enclave.Tokens(199), pool.WithdrawQueue[0].Shares)
	assert.Equal(t, owner, pool.WithdrawQueue[1].User)
	bigEq(t, enclave.Tokens(1), pool.WithdrawQueue[1].Shares)

	// worker2 returns 100 without loss, covering part of the first request only
	require.NoError(t, te.sp.StopMining(owner, pid, worker2))
	te.elapseCoolDown(t)
	te.takeEvents()
	require.NoError(t, te.sp.ReclaimPoolWorker(bob, pid, worker2))
	assert.Equal(t, renderAll(&Withdrawal{Pid: pid, User: alice, Amount: enclave.Tokens(100)}), te.takeEvents())
	pool = te.pool(t, pid)
	bigEq(t, enclave.Tokens(400), pool.TotalStake)
	bigEq(t, new(big.Int), pool.FreeStake)
	bigEq(t, enclave.Tokens(1), te.staker(t, pid, owner).Shares)
	bigEq(t, enclave.Tokens(399), te.staker(t, pid, alice).Shares)

	// worker1 lost a quarter of its value: 300 come back, 100 are slashed
	te.setV(t, worker1, scaleVe(te.miner(t, SubAccount(pid, worker1)).Ve, 3, 4))
	require.NoError(t, te.sp.StopMining(owner, pid, worker1))
	te.elapseCoolDown(t)
	te.takeEvents()
	require.NoError(t, te.sp.ReclaimPoolWorker(bob, pid, worker1))
	assert.Equal(t, renderAll(
		&PoolSlashed{Pid: pid, Amount: enclave.Tokens(100)},
		&SlashSettled{Pid: pid, User: alice, Amount: raw(99_750_000_000_000)},
		&Withdrawal{Pid: pid, User: alice, Amount: raw(74_250_000_000_000)},
		&SlashSettled{Pid: pid, User: owner, Amount: raw(250_000_000_000)},
		&Withdrawal{Pid: pid, User: owner, Amount: raw(750_000_000_000)},
	), te.takeEvents())

	pool = te.pool(t, pid)
	bigEq(t, enclave.Tokens(225), pool.TotalStake)
	bigEq(t, enclave.Tokens(225), pool.FreeStake)
	assert.Empty(t, pool.WithdrawQueue)
	assert.Zero(t, te.staker(t, pid, owner).Shares.Sign())
	bigEq(t, enclave.Tokens(300), te.staker(t, pid, alice).Shares)
	assert.Zero(t, te.currencyLock(t, owner).Sign())
	bigEq(t, enclave.Tokens(225), te.currencyLock(t, alice))
}

func TestWithdrawQueueOrder(t *testing.T) {
	te := newTestEnv(t)
	te.setupWorkers(t, owner, worker1)
	pid := te.setupPool(t, owner, worker1)
	require.NoError(t, te.sp.Contribute(alice, pid, enclave.Tokens(100)))
	require.NoError(t, te.sp.Contribute(bob, pid, enclave.Tokens(100)))
	require.NoError(t, te.sp.StartMining(owner, pid, worker1, enclave.Tokens(150)))

	te.takeEvents()
	require.NoError(t, te.sp.Withdraw(alice, pid, enclave.Tokens(100)))
	require.NoError(t, te.sp.Withdraw(bob, pid, enclave.Tokens(10)))
	// alice asks again for shares already queued
	require.NoError(t, te.sp.Withdraw(alice, pid, enclave.Tokens(50)))
	assert.Equal(t, renderAll(
		&Withdrawal{Pid: pid, User: alice, Amount: enclave.Tokens(50)},
		&WithdrawalQueued{Pid: pid, User: alice, Shares: enclave.Tokens(50)},
		&WithdrawalQueued{Pid: pid, User: bob, Shares: enclave.Tokens(10)},
		&WithdrawalQueued{Pid: pid, User: alice, Shares: enclave.Tokens(50)},
	), te.takeEvents())

	require.NoError(t, te.sp.StopMining(owner, pid, worker1))
	te.elapseCoolDown(t)
	require.NoError(t, te.sp.ReclaimPoolWorker(owner, pid, worker1))
	assert.Equal(t, renderAll(
		&Withdrawal{Pid: pid, User: alice, Amount: enclave.Tokens(50)},
		&Withdrawal{Pid: pid, User: bob, Amount: enclave.Tokens(10)},
	), te.takeEvents())

	pool := te.pool(t, pid)
	assert.Empty(t, pool.WithdrawQueue)
	bigEq(t, enclave.Tokens(90), pool.TotalStake)
	bigEq(t, enclave.Tokens(90), pool.FreeStake)
	assert.Zero(t, te.staker(t, pid, alice).Shares.Sign())
	bigEq(t, enclave.Tokens(90), te.staker(t, pid, bob).Shares)
}

func TestHasExpiredWithdrawal(t *testing.T) {
	base := func(releasing *big.Int) *PoolInfo {
		pool := newPool(0, owner)
		pool.TotalShares = enclave.Tokens(1000)
		pool.TotalStake = enclave.Tokens(900)
		pool.ReleasingStake = releasing
		pool.WithdrawQueue = []WithdrawInfo{
			{User: alice, Shares: enclave.Tokens(100), StartTime: 0},
			{User: bob, Shares: enclave.Tokens(200), StartTime: 100},
			{User: eve, Shares: enclave.Tokens(400), StartTime: 200},
		}
		return pool
	}

	pool := base(new(big.Int))
	assert.False(t, pool.HasExpiredWithdrawal(0, 100), "all in grace period")
	assert.False(t, pool.HasExpiredWithdrawal(100, 100), "still all in grace period")
	assert.True(t, pool.HasExpiredWithdrawal(101, 100), "first request expired")

	pool = base(enclave.Tokens(90))
	assert.False(t, pool.HasExpiredWithdrawal(101, 100), "first request covered")
	assert.True(t, pool.HasExpiredWithdrawal(201, 100), "second request expired")

	pool = base(new(big.Int).Sub(enclave.Tokens(630), raw(10)))
	assert.True(t, pool.HasExpiredWithdrawal(1000, 100), "not enough to cover all")

	pool = base(enclave.Tokens(630))
	assert.False(t, pool.HasExpiredWithdrawal(1000, 100), "enough stake")

	empty := newPool(1, owner)
	assert.False(t, empty.HasExpiredWithdrawal(1000, 100))
}

func TestForceWithdraw(t *testing.T) {
	te := newTestEnv(t)
	te.setupWorkers(t, owner, worker1)
	pid := te.setupPool(t, owner, worker1)
	sub := SubAccount(pid, worker1)

	require.NoError(t, te.sp.Contribute(alice, pid, enclave.Tokens(900)))
	require.NoError(t, te.sp.Contribute(bob, pid, enclave.Tokens(100)))
	require.NoError(t, te.sp.StartMining(owner, pid, worker1, enclave.Tokens(900)))
	// 100 paid at once, 800 queued
	require.NoError(t, te.sp.Withdraw(alice, pid, enclave.Tokens(900)))

	grace, err := GracePeriod.Get(te.sp.Context())
	require.NoError(t, err)
	te.elapse(grace)
	require.NoError(t, te.sp.OnFinalize())
	assert.True(t, te.miner(t, sub).State.IsMining(), "grace period not exceeded yet")

	te.elapse(1)
	te.takeEvents()
	require.NoError(t, te.sp.OnFinalize())
	assert.Equal(t, renderAll(&PoolForcedStop{Pid: pid, Workers: []enclave.WorkerPubkey{worker1}}), te.takeEvents())
	assert.Equal(t, mining.MiningCoolingDown, te.miner(t, sub).State)

	pool := te.pool(t, pid)
	bigEq(t, enclave.Tokens(900), pool.ReleasingStake)
	bigEq(t, enclave.Tokens(900), pool.TotalStake)
	staker := te.staker(t, pid, alice)
	bigEq(t, enclave.Tokens(800), staker.Locked)
	bigEq(t, enclave.Tokens(800), staker.Shares)
	tss, err := te.sp.WithdrawalTimestamps()
	require.NoError(t, err)
	assert.Empty(t, tss)

	te.elapseCoolDown(t)
	require.NoError(t, te.mining.Reclaim(sub))
	assert.Equal(t, mining.Ready, te.miner(t, sub).State)
	pool = te.pool(t, pid)
	bigEq(t, new(big.Int), pool.ReleasingStake)
	bigEq(t, enclave.Tokens(100), pool.TotalStake)
	staker = te.staker(t, pid, alice)
	assert.Zero(t, staker.Locked.Sign())
	assert.Zero(t, staker.Shares.Sign())
	assert.Zero(t, te.currencyLock(t, alice).Sign())
}

func TestWithdrawalIndex(t *testing.T) {
	te := newTestEnv(t)
	pid0, err := te.sp.Create(owner)
	require.NoError(t, err)
	pid1, err := te.sp.Create(owner)
	require.NoError(t, err)
	te.takeEvents()

	require.NoError(t, te.sp.maybeAddWithdrawQueue(1000, pid0))
	require.NoError(t, te.sp.maybeAddWithdrawQueue(1000, pid1))
	require.NoError(t, te.sp.maybeAddWithdrawQueue(1000, pid0))
	require.NoError(t, te.sp.maybeAddWithdrawQueue(2000, pid0))

	tss, err := te.sp.WithdrawalTimestamps()
	require.NoError(t, err)
	assert.Equal(t, []uint64{1000, 2000}, tss)
	pids, err := te.sp.WithdrawalQueuedPools(1000)
	require.NoError(t, err)
	assert.Equal(t, []uint64{pid0, pid1}, pids)

	// pools without an expired request are left alone and the bucket is dropped
	grace, err := GracePeriod.Get(te.sp.Context())
	require.NoError(t, err)
	require.NoError(t, te.sp.maybeForceWithdraw(1000+grace+1))
	tss, err = te.sp.WithdrawalTimestamps()
	require.NoError(t, err)
	assert.Equal(t, []uint64{2000}, tss)
	pids, err = te.sp.WithdrawalQueuedPools(1000)
	require.NoError(t, err)
	assert.Empty(t, pids)
	assert.Empty(t, te.takeEvents())
}

func TestFullProcedure(t *testing.T) {
	te := newTestEnv(t)
	te.setupWorkers(t, owner, worker1, worker2, worker3)

	pid0, err := te.sp.Create(owner)
	require.NoError(t, err)
	te.takeEvents()
	require.NoError(t, te.sp.SetPayoutPref(owner, pid0, 500_000))
	assert.Equal(t, renderAll(&PoolCommissionSet{Pid: pid0, Commission: 500_000}), te.takeEvents())
	require.NoError(t, te.sp.AddWorker(owner, pid0, worker1))
	require.NoError(t, te.sp.AddWorker(owner, pid0, worker2))
	pid1 := te.setupPool(t, owner, worker3)

	require.NoError(t, te.sp.SetCap(owner, pid0, enclave.Tokens(300)))
	require.NoError(t, te.sp.Contribute(owner, pid0, enclave.Tokens(100)))
	bigEq(t, enclave.Tokens(100), te.ledger(t, owner))
	require.NoError(t, te.sp.Contribute(owner, pid1, enclave.Tokens(300)))
	bigEq(t, enclave.Tokens(400), te.ledger(t, owner))
	bigEq(t, enclave.Tokens(100), te.pool(t, pid0).TotalStake)
	bigEq(t, enclave.Tokens(100), te.staker(t, pid0, owner).Shares)

	require.NoError(t, te.sp.Contribute(alice, pid0, enclave.Tokens(200)))
	bigEq(t, enclave.Tokens(300), te.pool(t, pid0).TotalStake)
	bigEq(t, enclave.Tokens(200), te.staker(t, pid0, alice).Shares)
	assert.ErrorIs(t, te.sp.Contribute(owner, pid0, enclave.Tokens(100)), ErrStakeExceedsCapacity)

	require.NoError(t, te.sp.StartMining(owner, pid0, worker1, enclave.Tokens(100)))
	require.NoError(t, te.sp.StartMining(owner, pid0, worker2, enclave.Tokens(100)))
	online, err := te.mining.OnlineMiners()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), online)

	require.NoError(t, te.sp.Withdraw(owner, pid0, enclave.Tokens(100)))
	bigEq(t, enclave.Tokens(300), te.ledger(t, owner))

	sub1 := SubAccount(pid0, worker1)
	sub2 := SubAccount(pid0, worker2)
	// worker1 keeps 90% of its value
	te.setV(t, worker1, te.miner(t, sub1).Ve.Mul(fixed.Ratio(9, 10)))

	require.NoError(t, te.sp.StopMining(owner, pid0, worker1))
	require.NoError(t, te.sp.StopMining(owner, pid0, worker2))
	online, err = te.mining.OnlineMiners()
	require.NoError(t, err)
	assert.Zero(t, online)
	assert.Equal(t, mining.MiningCoolingDown, te.miner(t, sub1).State)
	assert.Equal(t, mining.MiningCoolingDown, te.miner(t, sub2).State)

	te.elapseCoolDown(t)
	require.NoError(t, te.mining.Reclaim(sub1))
	require.NoError(t, te.mining.Reclaim(sub2))
	bigEq(t, raw(189_999_999_999_999), te.pool(t, pid0).FreeStake)

	te.takeEvents()
	require.NoError(t, te.sp.Withdraw(alice, pid0, enclave.Tokens(200)))
	assert.Equal(t, renderAll(
		&SlashSettled{Pid: pid0, User: alice, Amount: raw(10_000_000_000_002)},
		&Withdrawal{Pid: pid0, User: alice, Amount: raw(189_999_999_999_999)},
	), te.takeEvents())
	require.NoError(t, te.sp.Withdraw(owner, pid1, enclave.Tokens(300)))

	assert.Zero(t, te.ledger(t, owner).Sign())
	assert.Zero(t, te.ledger(t, alice).Sign())
	assert.Zero(t, te.currencyLock(t, owner).Sign())
	assert.Zero(t, te.currencyLock(t, alice).Sign())
	assert.Zero(t, te.pool(t, pid0).TotalStake.Sign())

	require.NoError(t, te.sp.RemoveWorker(owner, pid0, worker1))
	require.NoError(t, te.sp.RemoveWorker(owner, pid0, worker2))
	assert.Empty(t, te.pool(t, pid0).Workers)
	require.NoError(t, te.sp.CheckPool(pid0))
	require.NoError(t, te.sp.CheckPool(pid1))
}

func TestCheckPool(t *testing.T) {
	te := newTestEnv(t)
	pid, err := te.sp.Create(owner)
	require.NoError(t, err)
	require.NoError(t, te.sp.Contribute(alice, pid, enclave.Tokens(10)))
	require.NoError(t, te.sp.CheckPool(pid))

	pool := te.pool(t, pid)
	pool.TotalShares = new(big.Int).Add(pool.TotalShares, raw(1))
	pool.FreeStake = new(big.Int).Add(pool.FreeStake, raw(1))
	require.NoError(t, te.sp.setPool(pool))

	err = te.sp.CheckPool(pid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "staker shares")
	assert.Contains(t, err.Error(), "free stake")
	assert.Contains(t, err.Error(), "accounted stake")

	// strict mode turns the inconsistency into a fatal error
	err = te.sp.Contribute(bob, pid, enclave.Tokens(1))
	require.Error(t, err)
	assert.False(t, reverts.IsRevertErr(err))

	assert.ErrorIs(t, te.sp.CheckPool(42), ErrPoolDoesNotExist)

	// a cooling miner must be listed once and still be cooling down
	te.setupWorkers(t, owner, worker1, worker2)
	pid2 := te.setupPool(t, owner, worker1, worker2)
	require.NoError(t, te.sp.Contribute(owner, pid2, enclave.Tokens(100)))
	require.NoError(t, te.sp.StartMining(owner, pid2, worker1, enclave.Tokens(100)))
	require.NoError(t, te.sp.StopMining(owner, pid2, worker1))
	require.NoError(t, te.sp.CheckPool(pid2))

	sub1, sub2 := SubAccount(pid2, worker1), SubAccount(pid2, worker2)
	require.NoError(t, te.sp.coolingMiners.Set(store.Uint64Key(pid2), []enclave.Address{sub1, sub1}))
	err = te.sp.CheckPool(pid2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "listed twice")

	require.NoError(t, te.sp.stoppedMiners.Set(sub2, &stoppedMiner{Pid: pid2, Orig: new(big.Int), Slashed: new(big.Int)}))
	require.NoError(t, te.sp.coolingMiners.Set(store.Uint64Key(pid2), []enclave.Address{sub1, sub2}))
	err = te.sp.CheckPool(pid2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not cooling down")
}

func TestLenientMode(t *testing.T) {
	te := newTestEnvWithOptions(t, Options{})
	pid, err := te.sp.Create(owner)
	require.NoError(t, err)
	require.NoError(t, te.sp.Contribute(alice, pid, enclave.Tokens(10)))

	pool := te.pool(t, pid)
	pool.TotalShares = new(big.Int).Add(pool.TotalShares, raw(1))
	require.NoError(t, te.sp.setPool(pool))
	require.NoError(t, te.sp.Contribute(bob, pid, enclave.Tokens(1)))
	assert.Error(t, te.sp.CheckPool(pid))
}
