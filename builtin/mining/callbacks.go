// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package mining

import (
	"math/big"

	"github.com/enclavenet/enclave/enclave"
)

// Callbacks receives the lifecycle transitions of miners. The calls are made synchronously
// inside the transition that caused them; a returned error is fatal and aborts the unit.
//
// Calling order:
//   - OnStopped after a miner entered MiningCoolingDown, with the stake and the slash it will
//     suffer on reclaim.
//   - OnUnbound after the binding is removed, with forced set when the unbind stopped a mining
//     miner first (OnStopped then precedes it).
//   - OnReclaim after the miner returned to Ready, with the same stake and slash.
//   - OnReward after a settlement batch was applied to the miners.
type Callbacks interface {
	OnReward(settle []SettleInfo) error
	OnUnbound(worker enclave.WorkerPubkey, forced bool) error
	OnStopped(worker enclave.WorkerPubkey, orig, slashed *big.Int) error
	OnReclaim(miner enclave.Address, orig, slashed *big.Int) error
}

// NoopCallbacks ignores every notification. It is the subscriber of a fresh Mining.
type NoopCallbacks struct{}

func (NoopCallbacks) OnReward([]SettleInfo) error                               { return nil }
func (NoopCallbacks) OnUnbound(enclave.WorkerPubkey, bool) error                { return nil }
func (NoopCallbacks) OnStopped(enclave.WorkerPubkey, *big.Int, *big.Int) error { return nil }
func (NoopCallbacks) OnReclaim(enclave.Address, *big.Int, *big.Int) error      { return nil }
