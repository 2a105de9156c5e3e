// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package stakepool implements pooled staking on top of the mining builtin. Stakers buy
// shares of a pool, the pool owner puts the stake to work on the pool's workers, and rewards,
// slashes and withdrawals are settled per share.
package stakepool

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/enclavenet/enclave/builtin/currency"
	"github.com/enclavenet/enclave/builtin/mining"
	"github.com/enclavenet/enclave/builtin/registry"
	"github.com/enclavenet/enclave/builtin/reverts"
	"github.com/enclavenet/enclave/builtin/store"
	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/log"
	"github.com/enclavenet/enclave/metrics"
	"github.com/enclavenet/enclave/xenv"
)

var logger = log.WithContext("pkg", "stakepool")

var (
	ErrWorkerNotRegistered               = reverts.New("WorkerNotRegistered")
	ErrBenchmarkMissing                  = reverts.New("BenchmarkMissing")
	ErrWorkerExists                      = reverts.New("WorkerExists")
	ErrWorkerDoesNotExist                = reverts.New("WorkerDoesNotExist")
	ErrWorkerInAnotherPool               = reverts.New("WorkerInAnotherPool")
	ErrUnauthorizedOperator              = reverts.New("UnauthorizedOperator")
	ErrUnauthorizedPoolOwner             = reverts.New("UnauthorizedPoolOwner")
	ErrInadequateCapacity                = reverts.New("InadequateCapacity")
	ErrStakeExceedsCapacity              = reverts.New("StakeExceedsCapacity")
	ErrPoolDoesNotExist                  = reverts.New("PoolDoesNotExist")
	ErrInsufficientContribution          = reverts.New("InsufficientContribution")
	ErrInsufficientBalance               = reverts.New("InsufficientBalance")
	ErrPoolStakeNotFound                 = reverts.New("PoolStakeNotFound")
	ErrInsufficientFreeStake             = reverts.New("InsufficientFreeStake")
	ErrInvalidWithdrawalAmount           = reverts.New("InvalidWithdrawalAmount")
	ErrInvalidCommission                 = reverts.New("InvalidCommission")
	ErrFailedToBindMinerAndWorker        = reverts.New("FailedToBindMinerAndWorker")
	ErrInternalSubsidyPoolCannotWithdraw = reverts.New("InternalSubsidyPoolCannotWithdraw")
	ErrPoolBankrupt                      = reverts.New("PoolBankrupt")
)

// LockID is the currency lock sized to the stake ledger of each staker.
const LockID currency.LockID = "enclv/sp"

var (
	MinContribution = store.NewConfigVariable("min-contribution", enclave.DefaultMinContribution)
	GracePeriod     = store.NewConfigVariable("grace-period", enclave.DefaultGracePeriod)
)

var (
	slotPools                 = store.Slot("pools")
	slotStakers               = store.Slot("stakers")
	slotStakerLists           = store.Slot("staker-lists")
	slotPoolCount             = store.Slot("pool-count")
	slotWorkerAssignments     = store.Slot("worker-assignments")
	slotSubAccountAssignments = store.Slot("sub-account-assignments")
	slotStakeLedger           = store.Slot("stake-ledger")
	slotQueuedPools           = store.Slot("withdrawal-queued-pools")
	slotTimestamps            = store.Slot("withdrawal-timestamps")
	slotStoppedMiners         = store.Slot("stopped-miners")
	slotCoolingMiners         = store.Slot("cooling-miners")
)

var (
	metricOperations       = metrics.LazyLoadCounterVec("stakepool_operations_count", []string{"op", "result"})
	metricForcedWithdrawal = metrics.LazyLoadCounter("stakepool_forced_withdrawals_count")
)

type stakerKey = store.PairKey[store.Uint64Key, enclave.Address]

// Options tunes a StakePool.
type Options struct {
	// Strict verifies the pool invariants after every mutation and turns violations into
	// fatal errors.
	Strict bool
}

// StakePool is the pooled staking builtin. It receives the lifecycle callbacks of mining.
type StakePool struct {
	env      *xenv.Environment
	ctx      *store.Context
	currency *currency.Currency
	registry *registry.Registry
	mining   *mining.Mining
	opts     Options

	pools                 *store.Mapping[store.Uint64Key, *PoolInfo]
	stakers               *store.Mapping[stakerKey, *UserStakeInfo]
	stakerLists           *store.Mapping[store.Uint64Key, []enclave.Address]
	poolCount             *store.Counter
	workerAssignments     *store.Mapping[enclave.WorkerPubkey, *uint64]
	subAccountAssignments *store.Mapping[enclave.Address, *uint64]
	stakeLedger           *store.Mapping[enclave.Address, *big.Int]
	queuedPools           *store.Mapping[store.Uint64Key, []uint64]
	timestamps            *store.Value[[]uint64]
	stoppedMiners         *store.Mapping[enclave.Address, *stoppedMiner]
	coolingMiners         *store.Mapping[store.Uint64Key, []enclave.Address]
}

func New(
	addr enclave.Address,
	env *xenv.Environment,
	cur *currency.Currency,
	reg *registry.Registry,
	m *mining.Mining,
	opts Options,
) *StakePool {
	ctx := store.NewContext(addr, env.State())
	return &StakePool{
		env:      env,
		ctx:      ctx,
		currency: cur,
		registry: reg,
		mining:   m,
		opts:     opts,

		pools:                 store.NewMapping[store.Uint64Key, *PoolInfo](ctx, slotPools),
		stakers:               store.NewMapping[stakerKey, *UserStakeInfo](ctx, slotStakers),
		stakerLists:           store.NewMapping[store.Uint64Key, []enclave.Address](ctx, slotStakerLists),
		poolCount:             store.NewCounter(ctx, slotPoolCount),
		workerAssignments:     store.NewMapping[enclave.WorkerPubkey, *uint64](ctx, slotWorkerAssignments),
		subAccountAssignments: store.NewMapping[enclave.Address, *uint64](ctx, slotSubAccountAssignments),
		stakeLedger:           store.NewMapping[enclave.Address, *big.Int](ctx, slotStakeLedger),
		queuedPools:           store.NewMapping[store.Uint64Key, []uint64](ctx, slotQueuedPools),
		timestamps:            store.NewValue[[]uint64](ctx, slotTimestamps),
		stoppedMiners:         store.NewMapping[enclave.Address, *stoppedMiner](ctx, slotStoppedMiners),
		coolingMiners:         store.NewMapping[store.Uint64Key, []enclave.Address](ctx, slotCoolingMiners),
	}
}

// Context returns the storage context of the builtin.
func (sp *StakePool) Context() *store.Context {
	return sp.ctx
}

// observe counts an entry point call by its outcome.
func observe(op string, err *error) {
	result := "ok"
	if *err != nil {
		if result = reverts.NameOf(*err); result == "" {
			result = "fatal"
		}
	}
	metricOperations().AddWithLabel(1, map[string]string{"op": op, "result": result})
}

// Pool returns the pool record, nil if it does not exist.
func (sp *StakePool) Pool(pid uint64) (*PoolInfo, error) {
	return sp.pools.Get(store.Uint64Key(pid))
}

// Staker returns the position of user in pool pid, nil if it has none.
func (sp *StakePool) Staker(pid uint64, user enclave.Address) (*UserStakeInfo, error) {
	return sp.stakers.Get(stakerKey{First: store.Uint64Key(pid), Second: user})
}

// Stakers returns every account that ever staked in pool pid.
func (sp *StakePool) Stakers(pid uint64) ([]enclave.Address, error) {
	return sp.stakerLists.Get(store.Uint64Key(pid))
}

func (sp *StakePool) PoolCount() (uint64, error) {
	return sp.poolCount.Get()
}

// WorkerAssignment returns the pool worker belongs to.
func (sp *StakePool) WorkerAssignment(worker enclave.WorkerPubkey) (uint64, bool, error) {
	pid, err := sp.workerAssignments.Get(worker)
	if err != nil || pid == nil {
		return 0, false, err
	}
	return *pid, true, nil
}

// SubAccountAssignment returns the pool the miner sub-account belongs to.
func (sp *StakePool) SubAccountAssignment(miner enclave.Address) (uint64, bool, error) {
	pid, err := sp.subAccountAssignments.Get(miner)
	if err != nil || pid == nil {
		return 0, false, err
	}
	return *pid, true, nil
}

// PendingReward returns the unsettled plus the claimable reward of user in pool pid.
func (sp *StakePool) PendingReward(pid uint64, user enclave.Address) (*big.Int, error) {
	pool, err := sp.Pool(pid)
	if err != nil || pool == nil {
		return new(big.Int), err
	}
	staker, err := sp.Staker(pid, user)
	if err != nil || staker == nil {
		return new(big.Int), err
	}
	return new(big.Int).Add(pool.PendingReward(staker), staker.AvailableRewards), nil
}

func (sp *StakePool) WithdrawalTimestamps() ([]uint64, error) {
	return sp.timestamps.Get()
}

func (sp *StakePool) WithdrawalQueuedPools(ts uint64) ([]uint64, error) {
	return sp.queuedPools.Get(store.Uint64Key(ts))
}

func (sp *StakePool) ensurePool(pid uint64) (*PoolInfo, error) {
	pool, err := sp.Pool(pid)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		return nil, ErrPoolDoesNotExist
	}
	return pool, nil
}

// mustPool loads a pool referenced by an index. A missing pool is an inconsistency.
func (sp *StakePool) mustPool(pid uint64) (*PoolInfo, error) {
	pool, err := sp.Pool(pid)
	if err != nil {
		return nil, err
	}
	if pool == nil {
		err := errors.Errorf("stake pool %d referenced but missing", pid)
		logger.Error("inconsistent stake pool index", "err", err)
		return nil, err
	}
	return pool, nil
}

func (sp *StakePool) setPool(pool *PoolInfo) error {
	return sp.pools.Set(store.Uint64Key(pool.Pid), pool)
}

func (sp *StakePool) setStaker(pid uint64, staker *UserStakeInfo) error {
	return sp.stakers.Set(stakerKey{First: store.Uint64Key(pid), Second: staker.User}, staker)
}

func (sp *StakePool) ensureOwner(pid uint64, who enclave.Address) (*PoolInfo, error) {
	pool, err := sp.ensurePool(pid)
	if err != nil {
		return nil, err
	}
	if pool.Owner != who {
		return nil, ErrUnauthorizedPoolOwner
	}
	return pool, nil
}

// Create creates an empty pool owned by owner.
func (sp *StakePool) Create(owner enclave.Address) (pid uint64, err error) {
	defer observe("create", &err)

	pid, err = sp.poolCount.Next()
	if err != nil {
		return 0, err
	}
	if err := sp.setPool(newPool(pid, owner)); err != nil {
		return 0, err
	}
	sp.env.Log(&PoolCreated{Owner: owner, Pid: pid})
	logger.Debug("pool created", "pid", pid, "owner", owner)
	return pid, nil
}

// AddWorker binds worker to the sub-account of pool pid. The owner must operate the worker.
func (sp *StakePool) AddWorker(owner enclave.Address, pid uint64, worker enclave.WorkerPubkey) (err error) {
	defer observe("add_worker", &err)

	info, err := sp.registry.Get(worker)
	if err != nil {
		return err
	}
	if info == nil {
		return ErrWorkerNotRegistered
	}
	if !info.HasOperator || info.Operator != owner {
		return ErrUnauthorizedOperator
	}
	if !info.HasScore {
		return ErrBenchmarkMissing
	}
	pool, err := sp.ensureOwner(pid, owner)
	if err != nil {
		return err
	}
	if pool.HasWorker(worker) {
		return ErrWorkerExists
	}

	miner := SubAccount(pid, worker)
	if err := sp.mining.Bind(miner, worker); err != nil {
		if reverts.IsRevertErr(err) {
			logger.Debug("bind failed", "pid", pid, "worker", worker, "err", err)
			return ErrFailedToBindMinerAndWorker
		}
		return err
	}

	pool.Workers = append(pool.Workers, worker)
	if err := sp.setPool(pool); err != nil {
		return err
	}
	if err := sp.workerAssignments.Set(worker, &pid); err != nil {
		return err
	}
	if err := sp.subAccountAssignments.Set(miner, &pid); err != nil {
		return err
	}
	sp.env.Log(&PoolWorkerAdded{Pid: pid, Worker: worker})
	logger.Debug("worker added", "pid", pid, "worker", worker, "miner", miner)
	return sp.afterMutation(pid)
}

// RemoveWorker unbinds worker from pool pid without notification. A mining worker is
// stopped first.
func (sp *StakePool) RemoveWorker(owner enclave.Address, pid uint64, worker enclave.WorkerPubkey) (err error) {
	defer observe("remove_worker", &err)

	if _, err := sp.ensureOwner(pid, owner); err != nil {
		return err
	}
	assigned, ok, err := sp.WorkerAssignment(worker)
	if err != nil {
		return err
	}
	if !ok {
		return ErrWorkerDoesNotExist
	}
	if assigned != pid {
		return ErrWorkerInAnotherPool
	}
	if err := sp.mining.UnbindMiner(SubAccount(pid, worker), false); err != nil {
		return err
	}
	if err := sp.removeWorkerFromPool(worker); err != nil {
		return err
	}
	return sp.afterMutation(pid)
}

// removeWorkerFromPool clears the pool membership and the assignment indices of worker.
func (sp *StakePool) removeWorkerFromPool(worker enclave.WorkerPubkey) error {
	pid, ok, err := sp.WorkerAssignment(worker)
	if err != nil {
		return err
	}
	if !ok {
		err := errors.Errorf("worker %v is not assigned to a pool", worker)
		logger.Error("inconsistent worker assignment", "err", err)
		return err
	}
	sp.workerAssignments.Delete(worker)
	sp.subAccountAssignments.Delete(SubAccount(pid, worker))

	pool, err := sp.Pool(pid)
	if err != nil {
		return err
	}
	if pool != nil {
		pool.removeWorker(worker)
		if err := sp.setPool(pool); err != nil {
			return err
		}
	}
	sp.env.Log(&PoolWorkerRemoved{Pid: pid, Worker: worker})
	logger.Debug("worker removed", "pid", pid, "worker", worker)
	return nil
}

// SetCap sets the hard cap of the pool. It cannot go below the current stake.
func (sp *StakePool) SetCap(owner enclave.Address, pid uint64, cap *big.Int) (err error) {
	defer observe("set_cap", &err)

	pool, err := sp.ensureOwner(pid, owner)
	if err != nil {
		return err
	}
	if pool.TotalStake.Cmp(cap) > 0 {
		return ErrInadequateCapacity
	}
	pool.Cap = new(big.Int).Set(cap)
	pool.HasCap = true
	if err := sp.setPool(pool); err != nil {
		return err
	}
	sp.env.Log(&PoolCapacitySet{Pid: pid, Cap: new(big.Int).Set(cap)})
	return nil
}

// SetPayoutPref sets the share of rewards the owner keeps.
func (sp *StakePool) SetPayoutPref(owner enclave.Address, pid uint64, commission enclave.Permill) (err error) {
	defer observe("set_payout_pref", &err)

	if !commission.Valid() {
		return ErrInvalidCommission
	}
	pool, err := sp.ensureOwner(pid, owner)
	if err != nil {
		return err
	}
	pool.PayoutCommission = commission
	if err := sp.setPool(pool); err != nil {
		return err
	}
	sp.env.Log(&PoolCommissionSet{Pid: pid, Commission: commission})
	return nil
}

// Contribute buys shares of pool pid for amount and locks amount on who.
func (sp *StakePool) Contribute(who enclave.Address, pid uint64, amount *big.Int) (err error) {
	defer observe("contribute", &err)

	minContribution, err := MinContribution.Get(sp.ctx)
	if err != nil {
		return err
	}
	if amount.Cmp(minContribution) < 0 {
		return ErrInsufficientContribution
	}
	free, err := sp.currency.FreeBalance(who)
	if err != nil {
		return err
	}
	locked, err := sp.LedgerQuery(who)
	if err != nil {
		return err
	}
	if saturatingSub(free, locked).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	pool, err := sp.ensurePool(pid)
	if err != nil {
		return err
	}
	if pool.HasCap && saturatingSub(pool.Cap, pool.TotalStake).Cmp(amount) < 0 {
		return ErrStakeExceedsCapacity
	}
	// pending slashes of a bankrupt pool cannot be told apart from new stake
	if pool.IsBankrupt() {
		return ErrPoolBankrupt
	}

	staker, err := sp.Staker(pid, who)
	if err != nil {
		return err
	}
	if staker != nil {
		pool.settleUserPendingReward(staker)
		if err := sp.maybeSettleSlash(pool, staker); err != nil {
			return err
		}
	} else {
		staker = newStaker(who)
		if err := sp.appendStaker(pid, who); err != nil {
			return err
		}
	}
	if err := sp.assertClean(pool, staker); err != nil {
		return err
	}
	pool.addStake(staker, amount)

	if err := sp.setStaker(pid, staker); err != nil {
		return err
	}
	if err := sp.ledgerAccrue(who, amount); err != nil {
		return err
	}
	if err := sp.tryProcessWithdrawQueue(pool); err != nil {
		return err
	}
	if err := sp.setPool(pool); err != nil {
		return err
	}
	sp.env.Log(&Contribution{Pid: pid, User: who, Amount: new(big.Int).Set(amount)})
	logger.Debug("contributed", "pid", pid, "staker", who, "amount", amount)
	return sp.afterMutation(pid)
}

func (sp *StakePool) appendStaker(pid uint64, who enclave.Address) error {
	list, err := sp.stakerLists.Get(store.Uint64Key(pid))
	if err != nil {
		return err
	}
	return sp.stakerLists.Set(store.Uint64Key(pid), append(list, who))
}

// Withdraw returns shares of pool pid to who. What the free stake cannot cover right away is
// queued; nothing jumps an already waiting queue.
func (sp *StakePool) Withdraw(who enclave.Address, pid uint64, shares *big.Int) (err error) {
	defer observe("withdraw", &err)

	staker, err := sp.Staker(pid, who)
	if err != nil {
		return err
	}
	if staker == nil {
		return ErrPoolStakeNotFound
	}
	if shares.Sign() <= 0 || shares.Cmp(staker.Shares) > 0 {
		return ErrInvalidWithdrawalAmount
	}
	pool, err := sp.ensurePool(pid)
	if err != nil {
		return err
	}

	if len(pool.WithdrawQueue) > 0 {
		if err := sp.enqueueWithdrawal(pool, who, shares); err != nil {
			return err
		}
	} else if err := sp.tryWithdraw(pool, staker, shares); err != nil {
		return err
	}

	if err := sp.setStaker(pid, staker); err != nil {
		return err
	}
	if err := sp.setPool(pool); err != nil {
		return err
	}
	return sp.afterMutation(pid)
}

// ClaimRewards pays the rewards of who in pool pid to target.
func (sp *StakePool) ClaimRewards(who enclave.Address, pid uint64, target enclave.Address) (err error) {
	defer observe("claim_rewards", &err)

	staker, err := sp.Staker(pid, who)
	if err != nil {
		return err
	}
	if staker == nil {
		return ErrPoolStakeNotFound
	}
	pool, err := sp.ensurePool(pid)
	if err != nil {
		return err
	}

	pool.settleUserPendingReward(staker)
	rewards := staker.AvailableRewards
	staker.AvailableRewards = new(big.Int)
	if err := sp.withdrawSubsidy(target, rewards); err != nil {
		return err
	}
	if err := sp.setStaker(pid, staker); err != nil {
		return err
	}
	sp.env.Log(&RewardsWithdrawn{Pid: pid, User: who, Amount: rewards})
	logger.Debug("rewards claimed", "pid", pid, "staker", who, "target", target, "amount", rewards)
	return nil
}

// ClaimOwnerRewards pays the commission accrued by the owner of pool pid to target.
func (sp *StakePool) ClaimOwnerRewards(owner enclave.Address, pid uint64, target enclave.Address) (err error) {
	defer observe("claim_owner_rewards", &err)

	pool, err := sp.ensureOwner(pid, owner)
	if err != nil {
		return err
	}
	rewards := pool.OwnerReward
	pool.OwnerReward = new(big.Int)
	if err := sp.withdrawSubsidy(target, rewards); err != nil {
		return err
	}
	if err := sp.setPool(pool); err != nil {
		return err
	}
	sp.env.Log(&OwnerRewardsWithdrawn{Pid: pid, Owner: owner, Amount: rewards})
	logger.Debug("owner rewards claimed", "pid", pid, "target", target, "amount", rewards)
	return nil
}

func (sp *StakePool) withdrawSubsidy(target enclave.Address, amount *big.Int) error {
	if err := sp.mining.WithdrawSubsidyPool(target, amount); err != nil {
		if reverts.IsRevertErr(err) {
			logger.Warn("subsidy pool cannot pay", "target", target, "amount", amount, "err", err)
			return ErrInternalSubsidyPoolCannotWithdraw
		}
		return err
	}
	return nil
}

// StartMining starts worker of pool pid with stake taken from the free stake.
func (sp *StakePool) StartMining(owner enclave.Address, pid uint64, worker enclave.WorkerPubkey, stake *big.Int) (err error) {
	defer observe("start_mining", &err)

	pool, err := sp.ensureOwner(pid, owner)
	if err != nil {
		return err
	}
	if pool.FreeStake.Cmp(stake) < 0 {
		return ErrInsufficientFreeStake
	}
	if !pool.HasWorker(worker) {
		return ErrWorkerDoesNotExist
	}
	if err := sp.mining.StartMining(SubAccount(pid, worker), stake); err != nil {
		return err
	}
	pool.FreeStake = new(big.Int).Sub(pool.FreeStake, stake)
	if err := sp.setPool(pool); err != nil {
		return err
	}
	logger.Debug("pool worker started", "pid", pid, "worker", worker, "stake", stake)
	return sp.afterMutation(pid)
}

// StopMining stops worker of pool pid. The releasing stake is booked by OnStopped.
func (sp *StakePool) StopMining(owner enclave.Address, pid uint64, worker enclave.WorkerPubkey) (err error) {
	defer observe("stop_mining", &err)

	pool, err := sp.ensureOwner(pid, owner)
	if err != nil {
		return err
	}
	if !pool.HasWorker(worker) {
		return ErrWorkerDoesNotExist
	}
	if err := sp.mining.StopMining(SubAccount(pid, worker)); err != nil {
		return err
	}
	return sp.afterMutation(pid)
}

// ReclaimPoolWorker reclaims the miner of worker in pool pid. Anyone may call it.
func (sp *StakePool) ReclaimPoolWorker(who enclave.Address, pid uint64, worker enclave.WorkerPubkey) (err error) {
	defer observe("reclaim_pool_worker", &err)

	if _, err := sp.ensurePool(pid); err != nil {
		return err
	}
	if err := sp.mining.Reclaim(SubAccount(pid, worker)); err != nil {
		return err
	}
	return sp.afterMutation(pid)
}
