// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package mining

import (
	"fmt"
	"math/big"

	"github.com/enclavenet/enclave/builtin/mq"
	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/fixed"
)

// Message topics of the mining builtin.
const (
	TopicWorkerEvent        mq.Topic = "enclave/system/worker-event"
	TopicHeartbeatChallenge mq.Topic = "enclave/system/heartbeat-challenge"
	TopicMiningUpdate       mq.Topic = "enclave/mining/update"
)

// MinerState is the lifecycle state of a miner.
type MinerState uint8

const (
	Ready MinerState = iota
	MiningIdle
	MiningActive
	MiningUnresponsive
	MiningCoolingDown
)

// CanUnbind reports whether a miner in this state can be unbound without a forced stop.
func (s MinerState) CanUnbind() bool {
	return s == Ready || s == MiningCoolingDown
}

// IsMining reports whether the miner is online from the chain's point of view.
func (s MinerState) IsMining() bool {
	return s == MiningIdle || s == MiningActive || s == MiningUnresponsive
}

func (s MinerState) String() string {
	switch s {
	case Ready:
		return "Ready"
	case MiningIdle:
		return "MiningIdle"
	case MiningActive:
		return "MiningActive"
	case MiningUnresponsive:
		return "MiningUnresponsive"
	case MiningCoolingDown:
		return "MiningCoolingDown"
	default:
		return fmt.Sprintf("MinerState(%d)", uint8(s))
	}
}

type Benchmark struct {
	Iterations      uint64
	MiningStartTime uint64
}

// MinerInfo is the per-miner lifecycle record.
type MinerInfo struct {
	State         MinerState
	Ve            fixed.Point
	V             fixed.Point
	VUpdatedAt    uint64
	PInstant      uint64
	Benchmark     Benchmark
	CoolDownStart uint64
}

type WorkerStat struct {
	TotalReward *big.Int
}

// SettleInfo reports the value and payout of a worker, both fixed-point token amounts.
type SettleInfo struct {
	Pubkey enclave.WorkerPubkey
	V      fixed.Point
	Payout fixed.Point
}

// MiningInfoUpdate is the liveness and settlement batch sent by the gatekeeper.
type MiningInfoUpdate struct {
	BlockNumber uint32
	TimestampMs uint64
	Offline     []enclave.WorkerPubkey
	Recovered   []enclave.WorkerPubkey
	Settle      []SettleInfo
}

// IsEmpty reports whether the update carries nothing.
func (u *MiningInfoUpdate) IsEmpty() bool {
	return len(u.Offline) == 0 && len(u.Recovered) == 0 && len(u.Settle) == 0
}

type WorkerEventKind uint8

const (
	EventMiningStart WorkerEventKind = iota
	EventMiningStop
)

// WorkerEvent is published to the worker when its mining session starts or stops.
type WorkerEvent struct {
	Pubkey    enclave.WorkerPubkey
	Kind      WorkerEventKind
	SessionID uint32
	InitV     fixed.Point
}

// HeartbeatChallenge is broadcast once per block.
type HeartbeatChallenge struct {
	Seed         *big.Int
	OnlineTarget *big.Int
}
