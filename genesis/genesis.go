// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package genesis builds the initial state: endowments, registered workers, the gatekeeper
// and parameter overrides.
package genesis

import (
	"bytes"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/enclavenet/enclave/builtin"
	"github.com/enclavenet/enclave/builtin/mining"
	"github.com/enclavenet/enclave/builtin/stakepool"
	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/tx"
)

// Genesis is the result of a genesis build.
type Genesis struct {
	// ID is the digest of the genesis state.
	ID        enclave.Bytes32
	Timestamp uint64
	Receipts  tx.Receipts
}

// Config is the user customized genesis.
type Config struct {
	LaunchTime uint64                `yaml:"launch_time"`
	Accounts   []Account             `yaml:"accounts"`
	Subsidy    tx.Amount             `yaml:"subsidy"`
	Workers    []Worker              `yaml:"workers"`
	Gatekeeper *enclave.WorkerPubkey `yaml:"gatekeeper,omitempty"`
	Params     Params                `yaml:"params"`
}

// Account is an endowed account.
type Account struct {
	Address enclave.Address `yaml:"address"`
	Balance tx.Amount       `yaml:"balance"`
}

// Worker is a worker registered at genesis. A zero score leaves the benchmark unset.
type Worker struct {
	Pubkey   enclave.WorkerPubkey `yaml:"pubkey"`
	Operator enclave.Address      `yaml:"operator"`
	Score    uint32               `yaml:"score"`
}

// Params overrides parameter defaults. Unset fields keep the default.
type Params struct {
	CoolDownPeriod         *uint64    `yaml:"cool_down_period,omitempty"`
	ExpectedHeartbeatCount *uint64    `yaml:"expected_heartbeat_count,omitempty"`
	GracePeriod            *uint64    `yaml:"grace_period,omitempty"`
	MinStaking             *tx.Amount `yaml:"min_staking,omitempty"`
	MinContribution        *tx.Amount `yaml:"min_contribution,omitempty"`
}

// Load reads a config from a yaml file. Unknown fields are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes and validates a yaml config.
func Parse(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode genesis")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports every problem of the config at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	fail := func(format string, args ...any) {
		result = multierror.Append(result, fmt.Errorf(format, args...))
	}

	accounts := make(map[enclave.Address]bool)
	for _, a := range c.Accounts {
		if accounts[a.Address] {
			fail("account %v: duplicated", a.Address)
		}
		accounts[a.Address] = true
		if a.Balance.BigInt().Sign() < 1 {
			fail("account %v: balance must be positive", a.Address)
		}
		if a.Address == builtin.MiningAddress {
			fail("account %v: use subsidy to endow the mining account", a.Address)
		}
	}

	workers := make(map[enclave.WorkerPubkey]bool)
	for _, w := range c.Workers {
		if workers[w.Pubkey] {
			fail("worker %v: duplicated", w.Pubkey)
		}
		workers[w.Pubkey] = true
		if w.Operator.IsZero() {
			fail("worker %v: operator must be set", w.Pubkey)
		}
	}
	if c.Gatekeeper != nil && !workers[*c.Gatekeeper] {
		fail("gatekeeper %v: not a genesis worker", *c.Gatekeeper)
	}

	p := c.Params
	if p.ExpectedHeartbeatCount != nil && *p.ExpectedHeartbeatCount == 0 {
		fail("params: expected_heartbeat_count must be positive")
	}
	if p.MinStaking != nil && p.MinStaking.BigInt().Sign() < 1 {
		fail("params: min_staking must be positive")
	}
	if p.MinContribution != nil && p.MinContribution.BigInt().Sign() < 1 {
		fail("params: min_contribution must be positive")
	}
	return result.ErrorOrNil()
}

// Builder turns the config into a genesis builder.
func (c *Config) Builder() *Builder {
	builder := new(Builder).
		Timestamp(c.LaunchTime).
		State(func(b *builtin.Builtins) error {
			for _, a := range c.Accounts {
				if err := b.Currency.Mint(a.Address, a.Balance.BigInt()); err != nil {
					return err
				}
			}
			if c.Subsidy.BigInt().Sign() > 0 {
				if err := b.Currency.Mint(builtin.MiningAddress, c.Subsidy.BigInt()); err != nil {
					return err
				}
			}
			return c.Params.apply(b)
		})

	for _, w := range c.Workers {
		builder.Call(&tx.RegisterWorker{Pubkey: w.Pubkey}, w.Operator)
		if w.Score > 0 {
			builder.Call(&tx.SetBenchmark{Pubkey: w.Pubkey, Score: w.Score}, enclave.RootAccount)
		}
	}
	if c.Gatekeeper != nil {
		builder.Call(&tx.SetGatekeeper{Pubkey: *c.Gatekeeper}, enclave.RootAccount)
	}
	return builder
}

func (p *Params) apply(b *builtin.Builtins) error {
	if p.CoolDownPeriod != nil {
		if err := mining.CoolDownPeriod.Set(b.Mining.Context(), *p.CoolDownPeriod); err != nil {
			return err
		}
	}
	if p.ExpectedHeartbeatCount != nil {
		if err := mining.ExpectedHeartbeatCount.Set(b.Mining.Context(), *p.ExpectedHeartbeatCount); err != nil {
			return err
		}
	}
	if p.MinStaking != nil {
		if err := mining.MinStaking.Set(b.Mining.Context(), p.MinStaking.BigInt()); err != nil {
			return err
		}
	}
	if p.GracePeriod != nil {
		if err := stakepool.GracePeriod.Set(b.StakePool.Context(), *p.GracePeriod); err != nil {
			return err
		}
	}
	if p.MinContribution != nil {
		if err := stakepool.MinContribution.Set(b.StakePool.Context(), p.MinContribution.BigInt()); err != nil {
			return err
		}
	}
	return nil
}
