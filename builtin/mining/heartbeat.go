// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package mining

import (
	"github.com/holiman/uint256"
)

var maxTarget = new(uint256.Int).SetAllOne()

// PowTarget computes the heartbeat target for numWorkers online miners so that about numTx
// heartbeats arrive per block, capped at two heartbeats per miner per hour.
// The ratio is computed in 32.32 fixed point, then scaled to 24 bits of MAX.
func PowTarget(numTx, numWorkers, secsPerBlock uint32) *uint256.Int {
	if numWorkers == 0 || secsPerBlock == 0 {
		return new(uint256.Int)
	}
	blocksPerHour := uint64(3600 / secsPerBlock)
	if blocksPerHour == 0 {
		blocksPerHour = 1
	}
	w := uint256.NewInt(uint64(numWorkers))

	// max_tx = workers * 2 / blocks_per_hour
	maxTx := new(uint256.Int).Lsh(new(uint256.Int).Mul(w, uint256.NewInt(2)), 32)
	maxTx.Div(maxTx, uint256.NewInt(blocksPerHour))

	targetTx := new(uint256.Int).Lsh(uint256.NewInt(uint64(numTx)), 32)
	if maxTx.Lt(targetTx) {
		targetTx = maxTx
	}

	// frac = (target_tx / workers) << 24, integer part
	ratio := new(uint256.Int).Div(targetTx, w)
	frac := ratio.Rsh(ratio, 8)

	target := new(uint256.Int).Rsh(maxTarget, 24)
	return target.Mul(target, frac)
}
