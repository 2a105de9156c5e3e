// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/tx"
)

// DevAccounts are the endowed accounts of the dev network.
var DevAccounts = []enclave.Address{
	enclave.BytesToAddress([]byte("alice")),
	enclave.BytesToAddress([]byte("bob")),
	enclave.BytesToAddress([]byte("charlie")),
}

// DevGatekeeper is the gatekeeper worker of the dev network.
var DevGatekeeper = enclave.BytesToWorkerPubkey([]byte("gatekeeper"))

// NewDevConfig returns the config of the dev network: three accounts holding 1M tokens each,
// a 10M token subsidy and one gatekeeper operated by root.
func NewDevConfig() *Config {
	cfg := &Config{
		LaunchTime: 1526400000,
		Subsidy:    tx.Tokens(10_000_000),
		Workers:    []Worker{{Pubkey: DevGatekeeper, Operator: enclave.RootAccount, Score: 1}},
		Gatekeeper: &DevGatekeeper,
	}
	for _, addr := range DevAccounts {
		cfg.Accounts = append(cfg.Accounts, Account{Address: addr, Balance: tx.Tokens(1_000_000)})
	}
	return cfg
}
