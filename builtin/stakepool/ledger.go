// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakepool

import (
	"math/big"

	"github.com/enclavenet/enclave/enclave"
)

// LedgerQuery returns the stake of who locked across all pools.
func (sp *StakePool) LedgerQuery(who enclave.Address) (*big.Int, error) {
	locked, err := sp.stakeLedger.Get(who)
	if err != nil {
		return nil, err
	}
	if locked == nil {
		return new(big.Int), nil
	}
	return locked, nil
}

func (sp *StakePool) ledgerAccrue(who enclave.Address, amount *big.Int) error {
	locked, err := sp.LedgerQuery(who)
	if err != nil {
		return err
	}
	return sp.setLedger(who, new(big.Int).Add(locked, amount))
}

// ledgerReduce releases amount from the lock of who, stopping at zero.
func (sp *StakePool) ledgerReduce(who enclave.Address, amount *big.Int) error {
	locked, err := sp.LedgerQuery(who)
	if err != nil {
		return err
	}
	if locked.Cmp(amount) < 0 {
		logger.Warn("stake ledger underflow", "who", who, "locked", locked, "amount", amount)
	}
	return sp.setLedger(who, saturatingSub(locked, amount))
}

func (sp *StakePool) setLedger(who enclave.Address, locked *big.Int) error {
	if locked.Sign() == 0 {
		sp.stakeLedger.Delete(who)
		return sp.currency.RemoveLock(LockID, who)
	}
	if err := sp.stakeLedger.Set(who, locked); err != nil {
		return err
	}
	return sp.currency.SetLock(LockID, who, locked)
}

// maybeSettleSlash applies the pending slash of staker to its balance.
func (sp *StakePool) maybeSettleSlash(pool *PoolInfo, staker *UserStakeInfo) error {
	slashed, excess, ok := pool.settleSlash(staker)
	if !ok {
		return nil
	}
	if excess.Sign() > 0 {
		// minted shares are floored, which lifts the price a little above the locked value.
		// The lock follows the shares even when the balance cannot cover it; locks never move funds.
		usable, err := sp.currency.Usable(staker.User)
		if err != nil {
			return err
		}
		if usable.Cmp(excess) < 0 {
			logger.Warn("locked stake grew past the usable balance", "pid", pool.Pid, "staker", staker.User, "excess", excess, "usable", usable)
		} else {
			logger.Debug("locked stake grew on settlement", "pid", pool.Pid, "staker", staker.User, "excess", excess)
		}
		if err := sp.ledgerAccrue(staker.User, excess); err != nil {
			return err
		}
	}
	if slashed.Sign() == 0 {
		return nil
	}
	if _, err := sp.currency.Slash(staker.User, slashed); err != nil {
		return err
	}
	if err := sp.ledgerReduce(staker.User, slashed); err != nil {
		return err
	}
	sp.env.Log(&SlashSettled{Pid: pool.Pid, User: staker.User, Amount: slashed})
	logger.Debug("slash settled", "pid", pool.Pid, "staker", staker.User, "amount", slashed)
	return nil
}
