// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package enclave

// Constants of the chain.
const (
	SecondsPerBlock uint32 = 12 // expected block interval in seconds

	DefaultCoolDownPeriod         uint64 = 7 * 24 * 3600 // seconds a stopped miner waits before reclaim
	DefaultGracePeriod            uint64 = 3 * 24 * 3600 // seconds a queued withdrawal may wait
	DefaultExpectedHeartbeatCount uint64 = 20
)

// DefaultMinStaking is the minimal stake to start a miner.
var DefaultMinStaking = Tokens(1)

// DefaultMinContribution is the minimal amount accepted by a pool contribution.
var DefaultMinContribution = Tokens(1)

// RootAccount is the governance origin allowed to change chain parameters.
var RootAccount = BytesToAddress([]byte("root"))
