// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"github.com/enclavenet/enclave/builtin"
	"github.com/enclavenet/enclave/enclave"
)

// CreatePool creates a stake pool owned by the origin.
type CreatePool struct{}

func (*CreatePool) Name() string { return "create_pool" }

func (*CreatePool) Apply(b *builtin.Builtins, origin enclave.Address) error {
	_, err := b.StakePool.Create(origin)
	return err
}

// AddWorker adds a registered worker to a pool and binds its sub-account.
type AddWorker struct {
	Pid    uint64               `yaml:"pid"`
	Worker enclave.WorkerPubkey `yaml:"worker"`
}

func (*AddWorker) Name() string { return "add_worker" }

func (c *AddWorker) Apply(b *builtin.Builtins, origin enclave.Address) error {
	return b.StakePool.AddWorker(origin, c.Pid, c.Worker)
}

// RemoveWorker removes a worker from a pool.
type RemoveWorker struct {
	Pid    uint64               `yaml:"pid"`
	Worker enclave.WorkerPubkey `yaml:"worker"`
}

func (*RemoveWorker) Name() string { return "remove_worker" }

func (c *RemoveWorker) Apply(b *builtin.Builtins, origin enclave.Address) error {
	return b.StakePool.RemoveWorker(origin, c.Pid, c.Worker)
}

// SetCap sets the maximal total stake of a pool.
type SetCap struct {
	Pid uint64 `yaml:"pid"`
	Cap Amount `yaml:"cap"`
}

func (*SetCap) Name() string { return "set_cap" }

func (c *SetCap) Apply(b *builtin.Builtins, origin enclave.Address) error {
	return b.StakePool.SetCap(origin, c.Pid, c.Cap.BigInt())
}

// SetPayoutPref sets the owner commission of a pool.
type SetPayoutPref struct {
	Pid        uint64          `yaml:"pid"`
	Commission enclave.Permill `yaml:"commission"`
}

func (*SetPayoutPref) Name() string { return "set_payout_pref" }

func (c *SetPayoutPref) Apply(b *builtin.Builtins, origin enclave.Address) error {
	return b.StakePool.SetPayoutPref(origin, c.Pid, c.Commission)
}

// Contribute stakes an amount into a pool.
type Contribute struct {
	Pid    uint64 `yaml:"pid"`
	Amount Amount `yaml:"amount"`
}

func (*Contribute) Name() string { return "contribute" }

func (c *Contribute) Apply(b *builtin.Builtins, origin enclave.Address) error {
	return b.StakePool.Contribute(origin, c.Pid, c.Amount.BigInt())
}

// Withdraw redeems shares of a pool, queueing what cannot be paid at once.
type Withdraw struct {
	Pid    uint64 `yaml:"pid"`
	Shares Amount `yaml:"shares"`
}

func (*Withdraw) Name() string { return "withdraw" }

func (c *Withdraw) Apply(b *builtin.Builtins, origin enclave.Address) error {
	return b.StakePool.Withdraw(origin, c.Pid, c.Shares.BigInt())
}

// ClaimRewards pays the pending rewards of the origin to target.
type ClaimRewards struct {
	Pid    uint64          `yaml:"pid"`
	Target enclave.Address `yaml:"target"`
}

func (*ClaimRewards) Name() string { return "claim_rewards" }

func (c *ClaimRewards) Apply(b *builtin.Builtins, origin enclave.Address) error {
	return b.StakePool.ClaimRewards(origin, c.Pid, c.Target)
}

// ClaimOwnerRewards pays the accumulated commission of a pool to target.
type ClaimOwnerRewards struct {
	Pid    uint64          `yaml:"pid"`
	Target enclave.Address `yaml:"target"`
}

func (*ClaimOwnerRewards) Name() string { return "claim_owner_rewards" }

func (c *ClaimOwnerRewards) Apply(b *builtin.Builtins, origin enclave.Address) error {
	return b.StakePool.ClaimOwnerRewards(origin, c.Pid, c.Target)
}

// StartMining starts a pool worker with stake taken from the free stake.
type StartMining struct {
	Pid    uint64               `yaml:"pid"`
	Worker enclave.WorkerPubkey `yaml:"worker"`
	Stake  Amount               `yaml:"stake"`
}

func (*StartMining) Name() string { return "start_mining" }

func (c *StartMining) Apply(b *builtin.Builtins, origin enclave.Address) error {
	return b.StakePool.StartMining(origin, c.Pid, c.Worker, c.Stake.BigInt())
}

// StopMining stops a pool worker.
type StopMining struct {
	Pid    uint64               `yaml:"pid"`
	Worker enclave.WorkerPubkey `yaml:"worker"`
}

func (*StopMining) Name() string { return "stop_mining" }

func (c *StopMining) Apply(b *builtin.Builtins, origin enclave.Address) error {
	return b.StakePool.StopMining(origin, c.Pid, c.Worker)
}

// ReclaimPoolWorker returns the stake of a cooled down pool worker.
type ReclaimPoolWorker struct {
	Pid    uint64               `yaml:"pid"`
	Worker enclave.WorkerPubkey `yaml:"worker"`
}

func (*ReclaimPoolWorker) Name() string { return "reclaim_pool_worker" }

func (c *ReclaimPoolWorker) Apply(b *builtin.Builtins, origin enclave.Address) error {
	return b.StakePool.ReclaimPoolWorker(origin, c.Pid, c.Worker)
}

// Reclaim returns the stake of a cooled down miner. Anyone may submit it.
type Reclaim struct {
	Miner enclave.Address `yaml:"miner"`
}

func (*Reclaim) Name() string { return "reclaim" }

func (c *Reclaim) Apply(b *builtin.Builtins, _ enclave.Address) error {
	return b.Mining.Reclaim(c.Miner)
}

// Unbind releases a miner from its worker on behalf of the worker operator.
type Unbind struct {
	Miner enclave.Address `yaml:"miner"`
}

func (*Unbind) Name() string { return "unbind" }

func (c *Unbind) Apply(b *builtin.Builtins, origin enclave.Address) error {
	return b.Mining.Unbind(origin, c.Miner)
}

// SetCoolDownPeriod changes the cool down period in seconds.
type SetCoolDownPeriod struct {
	Period uint64 `yaml:"period"`
}

func (*SetCoolDownPeriod) Name() string { return "set_cool_down_period" }

func (c *SetCoolDownPeriod) Apply(b *builtin.Builtins, origin enclave.Address) error {
	return b.Mining.SetCoolDownPeriod(origin, c.Period)
}

// SetExpectedHeartbeatCount changes the heartbeat count targeted per period.
type SetExpectedHeartbeatCount struct {
	Count uint64 `yaml:"count"`
}

func (*SetExpectedHeartbeatCount) Name() string { return "set_expected_heartbeat_count" }

func (c *SetExpectedHeartbeatCount) Apply(b *builtin.Builtins, origin enclave.Address) error {
	return b.Mining.SetExpectedHeartbeatCount(origin, c.Count)
}

// ForceHeartbeat publishes a challenge every online worker answers.
type ForceHeartbeat struct{}

func (*ForceHeartbeat) Name() string { return "force_heartbeat" }

func (*ForceHeartbeat) Apply(b *builtin.Builtins, origin enclave.Address) error {
	return b.Mining.ForceHeartbeat(origin)
}

// RegisterWorker registers a worker operated by the origin.
type RegisterWorker struct {
	Pubkey enclave.WorkerPubkey `yaml:"pubkey"`
}

func (*RegisterWorker) Name() string { return "register_worker" }

func (c *RegisterWorker) Apply(b *builtin.Builtins, origin enclave.Address) error {
	return b.Registry.Register(c.Pubkey, origin)
}

// SetBenchmark records the attested score of a worker.
type SetBenchmark struct {
	Pubkey enclave.WorkerPubkey `yaml:"pubkey"`
	Score  uint32               `yaml:"score"`
}

func (*SetBenchmark) Name() string { return "set_benchmark" }

func (c *SetBenchmark) Apply(b *builtin.Builtins, origin enclave.Address) error {
	if err := requireRoot(origin); err != nil {
		return err
	}
	return b.Registry.SetBenchmark(c.Pubkey, c.Score)
}

// SetGatekeeper appoints the worker trusted to send mining updates.
type SetGatekeeper struct {
	Pubkey enclave.WorkerPubkey `yaml:"pubkey"`
}

func (*SetGatekeeper) Name() string { return "set_gatekeeper" }

func (c *SetGatekeeper) Apply(b *builtin.Builtins, origin enclave.Address) error {
	if err := requireRoot(origin); err != nil {
		return err
	}
	return b.Registry.SetGatekeeper(c.Pubkey)
}

// Transfer moves usable balance of the origin to another account.
type Transfer struct {
	To     enclave.Address `yaml:"to"`
	Amount Amount          `yaml:"amount"`
}

func (*Transfer) Name() string { return "transfer" }

func (c *Transfer) Apply(b *builtin.Builtins, origin enclave.Address) error {
	return b.Currency.Transfer(origin, c.To, c.Amount.BigInt())
}
