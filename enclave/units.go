// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package enclave

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// TokenDecimals is the number of decimals of the native token.
const TokenDecimals = 12

// Dollars is the number of raw units in one token.
var Dollars = new(big.Int).Exp(big.NewInt(10), big.NewInt(TokenDecimals), nil)

// Tokens returns n whole tokens in raw units.
func Tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), Dollars)
}

// FormatBalance renders a raw amount as a token denominated decimal string.
func FormatBalance(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -TokenDecimals).String()
}

// ParseBalance parses a token denominated decimal string into raw units.
// Digits beyond the token precision are truncated.
func ParseBalance(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, err
	}
	return d.Shift(TokenDecimals).BigInt(), nil
}

// PermillDenominator is the denominator of Permill.
const PermillDenominator = 1_000_000

// Permill is a fraction in parts per million.
type Permill uint32

// Valid reports whether the fraction is at most one.
func (p Permill) Valid() bool {
	return p <= PermillDenominator
}

// Mul returns floor(amount * p).
func (p Permill) Mul(amount *big.Int) *big.Int {
	r := new(big.Int).Mul(amount, big.NewInt(int64(p)))
	return r.Quo(r, big.NewInt(PermillDenominator))
}
