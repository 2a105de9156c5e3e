// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package registry

import (
	"github.com/enclavenet/enclave/enclave"
)

type WorkerRegistered struct {
	Pubkey   enclave.WorkerPubkey
	Operator enclave.Address
}

type BenchmarkUpdated struct {
	Pubkey enclave.WorkerPubkey
	Score  uint32
}

func (*WorkerRegistered) EventName() string { return "WorkerRegistered" }
func (*BenchmarkUpdated) EventName() string { return "BenchmarkUpdated" }
