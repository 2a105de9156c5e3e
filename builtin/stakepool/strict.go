// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakepool

import (
	"math/big"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/enclavenet/enclave/builtin/mining"
	"github.com/enclavenet/enclave/builtin/store"
	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/fixed"
)

// SharePrice returns the value of one share of pool pid, false if the pool has no share.
func (sp *StakePool) SharePrice(pid uint64) (fixed.Point, bool, error) {
	pool, err := sp.ensurePool(pid)
	if err != nil {
		return fixed.Zero(), false, err
	}
	price, ok := pool.SharePrice()
	return price, ok, nil
}

// CheckPool verifies the bookkeeping of pool pid against its stakers and miners. Every
// violation found is reported.
func (sp *StakePool) CheckPool(pid uint64) error {
	pool, err := sp.ensurePool(pid)
	if err != nil {
		return err
	}

	var result *multierror.Error
	fail := func(format string, args ...any) {
		result = multierror.Append(result, errors.Errorf("pool %d: "+format, append([]any{pid}, args...)...))
	}

	stakers, err := sp.Stakers(pid)
	if err != nil {
		return err
	}
	shares := new(big.Int)
	for _, user := range stakers {
		staker, err := sp.Staker(pid, user)
		if err != nil {
			return err
		}
		if staker == nil {
			fail("listed staker %v has no record", user)
			continue
		}
		shares.Add(shares, staker.Shares)
	}
	if shares.Cmp(pool.TotalShares) != 0 {
		fail("staker shares %v differ from total shares %v", shares, pool.TotalShares)
	}
	if pool.FreeStake.Cmp(pool.TotalStake) > 0 {
		fail("free stake %v exceeds total stake %v", pool.FreeStake, pool.TotalStake)
	}
	if pool.TotalShares.Sign() == 0 && pool.TotalStake.Sign() != 0 {
		fail("total stake %v left without shares", pool.TotalStake)
	}

	// free + releasing + mining + slashes pending reclaim
	accounted := new(big.Int).Add(pool.FreeStake, pool.ReleasingStake)
	for _, worker := range pool.Workers {
		miner := SubAccount(pid, worker)
		info, err := sp.mining.Miner(miner)
		if err != nil {
			return err
		}
		if info == nil || !info.State.IsMining() {
			continue
		}
		stake, err := sp.mining.Stake(miner)
		if err != nil {
			return err
		}
		accounted.Add(accounted, stake)
	}
	cooling, err := sp.coolingMiners.Get(store.Uint64Key(pid))
	if err != nil {
		return err
	}
	seen := make(map[enclave.Address]bool, len(cooling))
	for _, miner := range cooling {
		if seen[miner] {
			fail("cooling miner %v listed twice", miner)
			continue
		}
		seen[miner] = true
		rec, err := sp.stoppedMiners.Get(miner)
		if err != nil {
			return err
		}
		if rec == nil {
			fail("cooling miner %v has no stop record", miner)
			continue
		}
		info, err := sp.mining.Miner(miner)
		if err != nil {
			return err
		}
		if info == nil || info.State != mining.MiningCoolingDown {
			fail("cooling miner %v is not cooling down", miner)
		}
		accounted.Add(accounted, rec.Slashed)
	}
	if accounted.Cmp(pool.TotalStake) != 0 {
		fail("accounted stake %v differs from total stake %v", accounted, pool.TotalStake)
	}
	return result.ErrorOrNil()
}

func (sp *StakePool) afterMutation(pid uint64) error {
	if !sp.opts.Strict {
		return nil
	}
	if err := sp.CheckPool(pid); err != nil {
		logger.Error("pool check failed", "pid", pid, "err", err)
		return err
	}
	return nil
}

// assertClean requires the pending slash and reward of staker to be settled.
func (sp *StakePool) assertClean(pool *PoolInfo, staker *UserStakeInfo) error {
	if !sp.opts.Strict {
		return nil
	}
	if pending := pool.PendingReward(staker); pending.Sign() != 0 {
		return errors.Errorf("pool %d: staker %v has unsettled reward %v", pool.Pid, staker.User, pending)
	}
	if price, ok := pool.SharePrice(); ok {
		if value := fixed.MulBalance(staker.Shares, price); value.Cmp(staker.Locked) != 0 {
			return errors.Errorf("pool %d: staker %v locks %v but its shares are worth %v",
				pool.Pid, staker.User, staker.Locked, value)
		}
	}
	return nil
}
