// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakepool

import (
	"math/big"

	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/fixed"
)

// PoolInfo is the record of a stake pool.
type PoolInfo struct {
	Pid   uint64
	Owner enclave.Address
	// PayoutCommission is the share of rewards kept by the owner. Zero when unset.
	PayoutCommission enclave.Permill
	OwnerReward      *big.Int
	Cap              *big.Int
	HasCap           bool
	RewardAcc        fixed.Point
	TotalShares      *big.Int
	TotalStake       *big.Int
	FreeStake        *big.Int
	ReleasingStake   *big.Int
	Workers          []enclave.WorkerPubkey
	WithdrawQueue    []WithdrawInfo
}

// UserStakeInfo is the position of a staker in one pool.
type UserStakeInfo struct {
	User             enclave.Address
	Locked           *big.Int
	Shares           *big.Int
	AvailableRewards *big.Int
	RewardDebt       *big.Int
}

// WithdrawInfo is a queued withdrawal. Shares is the unfulfilled remainder.
type WithdrawInfo struct {
	User      enclave.Address
	Shares    *big.Int
	StartTime uint64
}

// stoppedMiner is the stake of a pool miner between stop and reclaim.
type stoppedMiner struct {
	Pid     uint64
	Orig    *big.Int
	Slashed *big.Int
}

func newPool(pid uint64, owner enclave.Address) *PoolInfo {
	return &PoolInfo{
		Pid:            pid,
		Owner:          owner,
		OwnerReward:    new(big.Int),
		Cap:            new(big.Int),
		RewardAcc:      fixed.Zero(),
		TotalShares:    new(big.Int),
		TotalStake:     new(big.Int),
		FreeStake:      new(big.Int),
		ReleasingStake: new(big.Int),
	}
}

func newStaker(user enclave.Address) *UserStakeInfo {
	return &UserStakeInfo{
		User:             user,
		Locked:           new(big.Int),
		Shares:           new(big.Int),
		AvailableRewards: new(big.Int),
		RewardDebt:       new(big.Int),
	}
}

func bigMin(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return new(big.Int).Set(a)
	}
	return new(big.Int).Set(b)
}

// saturatingSub returns max(a-b, 0).
func saturatingSub(a, b *big.Int) *big.Int {
	r := new(big.Int).Sub(a, b)
	if r.Sign() < 0 {
		return r.SetInt64(0)
	}
	return r
}

// SharePrice returns total_stake / total_shares, false if the pool has no share.
func (p *PoolInfo) SharePrice() (fixed.Point, bool) {
	if p.TotalShares.Sign() == 0 {
		return fixed.Zero(), false
	}
	return fixed.FromBalance(p.TotalStake).Div(fixed.FromBalance(p.TotalShares))
}

// IsBankrupt reports whether all the stake behind existing shares was slashed.
func (p *PoolInfo) IsBankrupt() bool {
	return p.TotalShares.Sign() > 0 && p.TotalStake.Sign() == 0
}

func (p *PoolInfo) HasWorker(worker enclave.WorkerPubkey) bool {
	for _, w := range p.Workers {
		if w == worker {
			return true
		}
	}
	return false
}

func (p *PoolInfo) removeWorker(worker enclave.WorkerPubkey) {
	workers := p.Workers[:0]
	for _, w := range p.Workers {
		if w != worker {
			workers = append(workers, w)
		}
	}
	p.Workers = workers
}

// addStake mints shares for amount at the current price, or one share per unit when the pool
// has no share or a zero price.
func (p *PoolInfo) addStake(user *UserStakeInfo, amount *big.Int) {
	shares := new(big.Int).Set(amount)
	if price, ok := p.SharePrice(); ok && !price.IsZero() {
		shares = fixed.DivBalance(amount, price)
	}
	user.Shares = new(big.Int).Add(user.Shares, shares)
	user.Locked = new(big.Int).Add(user.Locked, amount)
	p.resetPendingReward(user)

	p.TotalShares = new(big.Int).Add(p.TotalShares, shares)
	p.TotalStake = new(big.Int).Add(p.TotalStake, amount)
	p.FreeStake = new(big.Int).Add(p.FreeStake, amount)
}

// removeStake burns shares of user and returns the stake released, capped by the free stake.
// It returns false and changes nothing if the shares are not available.
func (p *PoolInfo) removeStake(user *UserStakeInfo, shares *big.Int) (*big.Int, bool) {
	if p.TotalShares.Cmp(shares) < 0 || user.Shares.Cmp(shares) < 0 {
		return nil, false
	}
	price, ok := p.SharePrice()
	if !ok {
		return nil, false
	}
	var amount *big.Int
	if shares.Cmp(p.TotalShares) == 0 {
		// the last shares take the rounding dust with them
		amount = bigMin(p.TotalStake, p.FreeStake)
	} else {
		amount = bigMin(fixed.MulBalance(shares, price), p.FreeStake)
		if user.Locked.Cmp(amount) < 0 {
			return nil, false
		}
	}

	p.FreeStake = new(big.Int).Sub(p.FreeStake, amount)
	p.TotalStake = new(big.Int).Sub(p.TotalStake, amount)
	p.TotalShares = new(big.Int).Sub(p.TotalShares, shares)
	user.Shares = new(big.Int).Sub(user.Shares, shares)
	user.Locked = saturatingSub(user.Locked, amount)
	p.resetPendingReward(user)
	return amount, true
}

// slash removes amount from the stake without touching the shares. The loss is attributed
// to the stakers lazily by settleSlash.
func (p *PoolInfo) slash(amount *big.Int) {
	p.TotalStake = saturatingSub(p.TotalStake, amount)
}

// settleSlash re-prices the locked stake of user. It returns the amount lost, and the amount
// the position grew by when rounding lifted the price above the one it was locked at.
func (p *PoolInfo) settleSlash(user *UserStakeInfo) (slashed, excess *big.Int, ok bool) {
	price, ok := p.SharePrice()
	if !ok {
		return nil, nil, false
	}
	locked := user.Locked
	newLocked := fixed.MulBalance(user.Shares, price)
	user.Locked = newLocked
	return saturatingSub(locked, newLocked), saturatingSub(newLocked, locked), true
}

// PendingReward returns the reward user accrued since its last settlement.
func (p *PoolInfo) PendingReward(user *UserStakeInfo) *big.Int {
	return saturatingSub(fixed.MulBalance(user.Shares, p.RewardAcc), user.RewardDebt)
}

func (p *PoolInfo) resetPendingReward(user *UserStakeInfo) {
	user.RewardDebt = fixed.MulBalance(user.Shares, p.RewardAcc)
}

func (p *PoolInfo) settleUserPendingReward(user *UserStakeInfo) {
	pending := p.PendingReward(user)
	user.AvailableRewards = new(big.Int).Add(user.AvailableRewards, pending)
	p.resetPendingReward(user)
}

// distributeReward grows the value of every share by rewards / total_shares.
// The pool must have shares.
func (p *PoolInfo) distributeReward(rewards *big.Int) {
	perShare, _ := fixed.FromBalance(rewards).Div(fixed.FromBalance(p.TotalShares))
	p.RewardAcc = p.RewardAcc.Add(perShare)
}

// HasExpiredWithdrawal walks the queue in order, funding each request from the free and
// releasing stake. It reports whether the first request that cannot be funded is older than
// the grace period. Bankrupt pools and pools without shares never expire.
func (p *PoolInfo) HasExpiredWithdrawal(now, gracePeriod uint64) bool {
	price, ok := p.SharePrice()
	if !ok || price.IsZero() {
		return false
	}
	budget := new(big.Int).Add(p.FreeStake, p.ReleasingStake)
	for _, req := range p.WithdrawQueue {
		amount := fixed.MulBalance(req.Shares, price)
		if amount.Cmp(budget) > 0 {
			return now > req.StartTime && now-req.StartTime > gracePeriod
		}
		budget.Sub(budget, amount)
	}
	return false
}
