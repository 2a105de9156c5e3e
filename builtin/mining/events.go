// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package mining

import (
	"math/big"

	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/fixed"
)

type CoolDownExpirationChanged struct {
	Period uint64
}

type MinerBound struct {
	Miner  enclave.Address
	Worker enclave.WorkerPubkey
}

type MinerUnbound struct {
	Miner  enclave.Address
	Worker enclave.WorkerPubkey
}

type MinerStarted struct {
	Miner enclave.Address
}

type MinerStopped struct {
	Miner enclave.Address
}

type MinerReclaimed struct {
	Miner   enclave.Address
	Orig    *big.Int
	Slashed *big.Int
}

type MinerEnterUnresponsive struct {
	Miner enclave.Address
}

type MinerExitUnresponsive struct {
	Miner enclave.Address
}

type MinerSettled struct {
	Miner  enclave.Address
	V      fixed.Point
	Payout fixed.Point
}

func (*CoolDownExpirationChanged) EventName() string { return "CoolDownExpirationChanged" }
func (*MinerBound) EventName() string                { return "MinerBound" }
func (*MinerUnbound) EventName() string              { return "MinerUnbound" }
func (*MinerStarted) EventName() string              { return "MinerStarted" }
func (*MinerStopped) EventName() string              { return "MinerStopped" }
func (*MinerReclaimed) EventName() string            { return "MinerReclaimed" }
func (*MinerEnterUnresponsive) EventName() string    { return "MinerEnterUnresponsive" }
func (*MinerExitUnresponsive) EventName() string     { return "MinerExitUnresponsive" }
func (*MinerSettled) EventName() string              { return "MinerSettled" }
