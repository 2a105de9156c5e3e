// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakepool

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/enclavenet/enclave/builtin/mining"
	"github.com/enclavenet/enclave/builtin/store"
	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/fixed"
)

var _ mining.Callbacks = (*StakePool)(nil)

// OnReward splits the payout of every settled pool worker between the owner commission and
// the shares of the pool.
func (sp *StakePool) OnReward(settle []mining.SettleInfo) error {
	for _, s := range settle {
		pid, ok, err := sp.WorkerAssignment(s.Pubkey)
		if err != nil {
			return err
		}
		if !ok {
			logger.Warn("reward for a worker outside any pool, dropped", "worker", s.Pubkey)
			continue
		}
		pool, err := sp.mustPool(pid)
		if err != nil {
			return err
		}
		reward := fixed.MulBalance(enclave.Dollars, s.Payout)
		if reward.Sign() == 0 {
			continue
		}
		if pool.TotalShares.Sign() == 0 {
			logger.Warn("reward for a pool without shares, dropped", "pid", pid, "reward", reward)
			continue
		}
		commission := pool.PayoutCommission.Mul(reward)
		pool.OwnerReward = new(big.Int).Add(pool.OwnerReward, commission)
		pool.distributeReward(new(big.Int).Sub(reward, commission))
		if err := sp.setPool(pool); err != nil {
			return err
		}
		logger.Debug("pool rewarded", "pid", pid, "worker", s.Pubkey, "reward", reward, "commission", commission)
		if err := sp.afterMutation(pid); err != nil {
			return err
		}
	}
	return nil
}

// OnUnbound drops a worker unbound by its operator from its pool.
func (sp *StakePool) OnUnbound(worker enclave.WorkerPubkey, forced bool) error {
	if _, ok, err := sp.WorkerAssignment(worker); err != nil {
		return err
	} else if !ok {
		logger.Warn("unbound worker outside any pool", "worker", worker, "forced", forced)
		return nil
	}
	return sp.removeWorkerFromPool(worker)
}

// OnStopped books the stake a pool miner returns at reclaim as releasing.
func (sp *StakePool) OnStopped(worker enclave.WorkerPubkey, orig, slashed *big.Int) error {
	pid, ok, err := sp.WorkerAssignment(worker)
	if err != nil {
		return err
	}
	if !ok {
		logger.Debug("stopped worker outside any pool", "worker", worker)
		return nil
	}
	pool, err := sp.mustPool(pid)
	if err != nil {
		return err
	}
	returned := new(big.Int).Sub(orig, slashed)
	pool.ReleasingStake = new(big.Int).Add(pool.ReleasingStake, returned)
	if err := sp.setPool(pool); err != nil {
		return err
	}

	miner := SubAccount(pid, worker)
	if err := sp.stoppedMiners.Set(miner, &stoppedMiner{
		Pid:     pid,
		Orig:    new(big.Int).Set(orig),
		Slashed: new(big.Int).Set(slashed),
	}); err != nil {
		return err
	}
	cooling, err := sp.coolingMiners.Get(store.Uint64Key(pid))
	if err != nil {
		return err
	}
	return sp.coolingMiners.Set(store.Uint64Key(pid), append(cooling, miner))
}

// OnReclaim returns the stake of a reclaimed pool miner to the free stake and applies its
// slash to the pool.
func (sp *StakePool) OnReclaim(miner enclave.Address, orig, slashed *big.Int) error {
	rec, err := sp.stoppedMiners.Get(miner)
	if err != nil {
		return err
	}
	if rec == nil {
		logger.Debug("reclaimed miner outside any pool", "miner", miner)
		return nil
	}
	pool, err := sp.mustPool(rec.Pid)
	if err != nil {
		return err
	}
	returned := new(big.Int).Sub(orig, slashed)
	if pool.ReleasingStake.Cmp(returned) < 0 {
		err := errors.Errorf("pool %d releases %v but only %v is releasing", pool.Pid, returned, pool.ReleasingStake)
		logger.Error("inconsistent releasing stake", "err", err)
		return err
	}
	if slashed.Sign() > 0 {
		pool.slash(slashed)
		sp.env.Log(&PoolSlashed{Pid: pool.Pid, Amount: new(big.Int).Set(slashed)})
		logger.Info("pool slashed", "pid", pool.Pid, "miner", miner, "amount", slashed)
	}
	pool.FreeStake = new(big.Int).Add(pool.FreeStake, returned)
	pool.ReleasingStake = new(big.Int).Sub(pool.ReleasingStake, returned)

	sp.stoppedMiners.Delete(miner)
	if err := sp.removeCoolingMiner(pool.Pid, miner); err != nil {
		return err
	}
	if err := sp.tryProcessWithdrawQueue(pool); err != nil {
		return err
	}
	if err := sp.setPool(pool); err != nil {
		return err
	}
	return sp.afterMutation(pool.Pid)
}

func (sp *StakePool) removeCoolingMiner(pid uint64, miner enclave.Address) error {
	cooling, err := sp.coolingMiners.Get(store.Uint64Key(pid))
	if err != nil {
		return err
	}
	kept := cooling[:0]
	for _, m := range cooling {
		if m != miner {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		sp.coolingMiners.Delete(store.Uint64Key(pid))
		return nil
	}
	return sp.coolingMiners.Set(store.Uint64Key(pid), kept)
}
