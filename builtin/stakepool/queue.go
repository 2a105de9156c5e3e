// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakepool

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/enclavenet/enclave/builtin/reverts"
	"github.com/enclavenet/enclave/builtin/store"
	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/fixed"
)

// tryWithdraw pays as many of shares as the free stake covers and queues the rest.
func (sp *StakePool) tryWithdraw(pool *PoolInfo, staker *UserStakeInfo, shares *big.Int) error {
	pool.settleUserPendingReward(staker)

	freeShares := new(big.Int).Set(shares)
	if price, ok := pool.SharePrice(); ok && !price.IsZero() {
		freeShares = fixed.DivBalance(pool.FreeStake, price)
	}
	withdrawing := bigMin(freeShares, shares)
	queued := new(big.Int).Sub(shares, withdrawing)

	if withdrawing.Sign() > 0 {
		if err := sp.withdrawShares(pool, staker, withdrawing); err != nil {
			return err
		}
	}
	if queued.Sign() > 0 {
		if err := sp.enqueueWithdrawal(pool, staker.User, queued); err != nil {
			return err
		}
	}
	pool.resetPendingReward(staker)
	return nil
}

// withdrawShares settles the slash of staker, burns shares and releases the stake behind them.
func (sp *StakePool) withdrawShares(pool *PoolInfo, staker *UserStakeInfo, shares *big.Int) error {
	if err := sp.maybeSettleSlash(pool, staker); err != nil {
		return err
	}
	if err := sp.assertClean(pool, staker); err != nil {
		return err
	}
	locked := staker.Locked
	amount, ok := pool.removeStake(staker, shares)
	if !ok {
		err := errors.Errorf("pool %d cannot remove %v shares of %v", pool.Pid, shares, staker.User)
		logger.Error("inconsistent pool shares", "err", err)
		return err
	}
	// the rounding dust taken by the last shares was never locked
	if err := sp.ledgerReduce(staker.User, bigMin(amount, locked)); err != nil {
		return err
	}
	sp.env.Log(&Withdrawal{Pid: pool.Pid, User: staker.User, Amount: amount})
	logger.Debug("withdrawn", "pid", pool.Pid, "staker", staker.User, "shares", shares, "amount", amount)
	return nil
}

func (sp *StakePool) enqueueWithdrawal(pool *PoolInfo, who enclave.Address, shares *big.Int) error {
	now := sp.env.Now()
	pool.WithdrawQueue = append(pool.WithdrawQueue, WithdrawInfo{
		User:      who,
		Shares:    new(big.Int).Set(shares),
		StartTime: now,
	})
	if err := sp.maybeAddWithdrawQueue(now, pool.Pid); err != nil {
		return err
	}
	sp.env.Log(&WithdrawalQueued{Pid: pool.Pid, User: who, Shares: new(big.Int).Set(shares)})
	logger.Debug("withdrawal queued", "pid", pool.Pid, "staker", who, "shares", shares)
	return nil
}

// tryProcessWithdrawQueue fulfils queued requests in order while there is free stake. Requests
// larger than what their owner still holds are clamped.
func (sp *StakePool) tryProcessWithdrawQueue(pool *PoolInfo) error {
	price, ok := pool.SharePrice()
	if !ok || price.IsZero() {
		return nil
	}
	for pool.FreeStake.Sign() > 0 && len(pool.WithdrawQueue) > 0 {
		req := &pool.WithdrawQueue[0]
		staker, err := sp.Staker(pool.Pid, req.User)
		if err != nil {
			return err
		}
		if staker == nil {
			err := errors.Errorf("queued withdrawal of %v in pool %d has no stake", req.User, pool.Pid)
			logger.Error("inconsistent withdrawal queue", "err", err)
			return err
		}
		if staker.Shares.Sign() == 0 {
			pool.WithdrawQueue = pool.WithdrawQueue[1:]
			continue
		}

		withdrawing := bigMin(bigMin(fixed.DivBalance(pool.FreeStake, price), req.Shares), staker.Shares)
		if withdrawing.Sign() == 0 {
			// the free stake is worth less than one share
			break
		}
		pool.settleUserPendingReward(staker)
		if err := sp.withdrawShares(pool, staker, withdrawing); err != nil {
			return err
		}
		if err := sp.setStaker(pool.Pid, staker); err != nil {
			return err
		}

		req.Shares = new(big.Int).Sub(req.Shares, withdrawing)
		if req.Shares.Sign() == 0 || staker.Shares.Sign() == 0 {
			pool.WithdrawQueue = pool.WithdrawQueue[1:]
		}
	}
	if len(pool.WithdrawQueue) == 0 {
		pool.WithdrawQueue = nil
	}
	return nil
}

// maybeAddWithdrawQueue registers pid in the expiry index under ts.
func (sp *StakePool) maybeAddWithdrawQueue(ts uint64, pid uint64) error {
	tss, err := sp.timestamps.Get()
	if err != nil {
		return err
	}
	if len(tss) == 0 || tss[len(tss)-1] < ts {
		if err := sp.timestamps.Set(append(tss, ts)); err != nil {
			return err
		}
	}
	pids, err := sp.queuedPools.Get(store.Uint64Key(ts))
	if err != nil {
		return err
	}
	for _, p := range pids {
		if p == pid {
			return nil
		}
	}
	return sp.queuedPools.Set(store.Uint64Key(ts), append(pids, pid))
}

// OnFinalize runs the withdrawal expiry scan at the end of every block.
func (sp *StakePool) OnFinalize() error {
	return sp.maybeForceWithdraw(sp.env.Now())
}

// maybeForceWithdraw visits the timestamps older than the grace period and stops every worker
// of the pools whose queue cannot be funded in time.
func (sp *StakePool) maybeForceWithdraw(now uint64) error {
	grace, err := GracePeriod.Get(sp.ctx)
	if err != nil {
		return err
	}
	tss, err := sp.timestamps.Get()
	if err != nil {
		return err
	}

	expired := 0
	for ; expired < len(tss); expired++ {
		ts := tss[expired]
		if now <= ts || now-ts <= grace {
			break
		}
		pids, err := sp.queuedPools.Get(store.Uint64Key(ts))
		if err != nil {
			return err
		}
		if len(pids) == 0 {
			err := errors.Errorf("withdrawal timestamp %d has no queued pool", ts)
			logger.Error("inconsistent withdrawal index", "err", err)
			return err
		}
		for _, pid := range pids {
			pool, err := sp.mustPool(pid)
			if err != nil {
				return err
			}
			if !pool.HasExpiredWithdrawal(now, grace) {
				continue
			}
			if err := sp.forceStop(pool); err != nil {
				return err
			}
		}
		sp.queuedPools.Delete(store.Uint64Key(ts))
	}
	if expired == 0 {
		return nil
	}
	return sp.timestamps.Set(tss[expired:])
}

// forceStop stops every mining worker of pool. Workers that cannot be stopped are skipped.
func (sp *StakePool) forceStop(pool *PoolInfo) error {
	var stopped []enclave.WorkerPubkey
	for _, worker := range pool.Workers {
		cp := sp.env.NewCheckpoint()
		if err := sp.mining.StopMining(SubAccount(pool.Pid, worker)); err != nil {
			if !reverts.IsRevertErr(err) {
				return err
			}
			sp.env.RevertTo(cp)
			logger.Debug("worker not stopped", "pid", pool.Pid, "worker", worker, "err", err)
			continue
		}
		stopped = append(stopped, worker)
	}
	metricForcedWithdrawal().Add(1)
	sp.env.Log(&PoolForcedStop{Pid: pool.Pid, Workers: stopped})
	logger.Info("pool forced to stop", "pid", pool.Pid, "stopped", len(stopped))
	return sp.afterMutation(pool.Pid)
}
