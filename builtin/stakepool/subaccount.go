// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakepool

import (
	"github.com/enclavenet/enclave/cache"
	"github.com/enclavenet/enclave/enclave"
)

var subAccountPrefix = []byte("spm/")

type subAccountKey struct {
	pid    uint64
	worker enclave.WorkerPubkey
}

var subAccounts = func() *cache.LRU[subAccountKey, enclave.Address] {
	c, err := cache.NewLRU[subAccountKey, enclave.Address](4096)
	if err != nil {
		panic(err)
	}
	return c
}()

// SubAccount derives the miner account of worker in pool pid:
// "spm/" followed by the first 28 bytes of blake2b256(le64(pid) || worker).
func SubAccount(pid uint64, worker enclave.WorkerPubkey) enclave.Address {
	return subAccounts.GetOrLoad(subAccountKey{pid, worker}, deriveSubAccount)
}

func deriveSubAccount(k subAccountKey) enclave.Address {
	h := enclave.Blake2bUint64(k.pid, k.worker.Bytes())
	var addr enclave.Address
	n := copy(addr[:], subAccountPrefix)
	copy(addr[n:], h[:])
	return addr
}
