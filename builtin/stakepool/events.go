// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakepool

import (
	"math/big"

	"github.com/enclavenet/enclave/enclave"
)

type PoolCreated struct {
	Owner enclave.Address
	Pid   uint64
}

type PoolCommissionSet struct {
	Pid        uint64
	Commission enclave.Permill
}

type PoolCapacitySet struct {
	Pid uint64
	Cap *big.Int
}

type PoolWorkerAdded struct {
	Pid    uint64
	Worker enclave.WorkerPubkey
}

type PoolWorkerRemoved struct {
	Pid    uint64
	Worker enclave.WorkerPubkey
}

type Contribution struct {
	Pid    uint64
	User   enclave.Address
	Amount *big.Int
}

type Withdrawal struct {
	Pid    uint64
	User   enclave.Address
	Amount *big.Int
}

// WithdrawalQueued is logged when shares wait in the withdraw queue.
type WithdrawalQueued struct {
	Pid    uint64
	User   enclave.Address
	Shares *big.Int
}

type RewardsWithdrawn struct {
	Pid    uint64
	User   enclave.Address
	Amount *big.Int
}

type OwnerRewardsWithdrawn struct {
	Pid    uint64
	Owner  enclave.Address
	Amount *big.Int
}

type PoolSlashed struct {
	Pid    uint64
	Amount *big.Int
}

type SlashSettled struct {
	Pid    uint64
	User   enclave.Address
	Amount *big.Int
}

// PoolForcedStop is logged when an expired withdrawal stops every worker of a pool.
type PoolForcedStop struct {
	Pid     uint64
	Workers []enclave.WorkerPubkey
}

func (*PoolCreated) EventName() string           { return "PoolCreated" }
func (*PoolCommissionSet) EventName() string     { return "PoolCommissionSet" }
func (*PoolCapacitySet) EventName() string       { return "PoolCapacitySet" }
func (*PoolWorkerAdded) EventName() string       { return "PoolWorkerAdded" }
func (*PoolWorkerRemoved) EventName() string     { return "PoolWorkerRemoved" }
func (*Contribution) EventName() string          { return "Contribution" }
func (*Withdrawal) EventName() string            { return "Withdrawal" }
func (*WithdrawalQueued) EventName() string      { return "WithdrawalQueued" }
func (*RewardsWithdrawn) EventName() string      { return "RewardsWithdrawn" }
func (*OwnerRewardsWithdrawn) EventName() string { return "OwnerRewardsWithdrawn" }
func (*PoolSlashed) EventName() string           { return "PoolSlashed" }
func (*SlashSettled) EventName() string          { return "SlashSettled" }
func (*PoolForcedStop) EventName() string        { return "PoolForcedStop" }
