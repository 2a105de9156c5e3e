// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package currency

import (
	"math/big"

	"github.com/enclavenet/enclave/enclave"
)

type Transfer struct {
	From   enclave.Address
	To     enclave.Address
	Amount *big.Int
}

type Slashed struct {
	Who    enclave.Address
	Amount *big.Int
}

func (*Transfer) EventName() string { return "Transfer" }
func (*Slashed) EventName() string  { return "Slashed" }
