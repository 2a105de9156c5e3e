// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package fixed implements the unsigned 64.64 fixed-point numbers used for share prices,
// reward accumulators and miner values.
package fixed

import (
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/shopspring/decimal"
)

// FracBits is the number of fractional bits of a Point.
const FracBits = 64

var (
	bigOne = big.NewInt(1)
	unit   = new(big.Int).Lsh(bigOne, FracBits)
	// decimal form of 2^64, used for rendering and parsing
	decUnit = decimal.NewFromBigInt(unit, 0)
)

// Point is a non-negative fixed-point number holding value*2^64 in bits.
// The zero value is 0.
type Point struct {
	bits *big.Int
}

// Zero returns the fixed-point zero.
func Zero() Point {
	return Point{new(big.Int)}
}

// FromInt returns n as a Point.
func FromInt(n uint64) Point {
	b := new(big.Int).SetUint64(n)
	return Point{b.Lsh(b, FracBits)}
}

// FromBits returns the Point whose bit pattern is bits.
func FromBits(bits *big.Int) Point {
	if bits == nil || bits.Sign() <= 0 {
		return Zero()
	}
	return Point{new(big.Int).Set(bits)}
}

// FromBalance converts a raw balance into a Point.
func FromBalance(amount *big.Int) Point {
	if amount == nil || amount.Sign() <= 0 {
		return Zero()
	}
	return Point{new(big.Int).Lsh(amount, FracBits)}
}

// Ratio returns a/b. It returns zero when b is zero.
func Ratio(a, b uint64) Point {
	if b == 0 {
		return Zero()
	}
	p, _ := FromInt(a).Div(FromInt(b))
	return p
}

// Parse parses a decimal string. Precision below 2^-64 is truncated.
func Parse(s string) (Point, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Point{}, err
	}
	return FromBits(d.Mul(decUnit).BigInt()), nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Point {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

func (p Point) raw() *big.Int {
	if p.bits == nil {
		return new(big.Int)
	}
	return p.bits
}

// Bits returns a copy of the bit pattern.
func (p Point) Bits() *big.Int {
	return new(big.Int).Set(p.raw())
}

// IsZero returns whether p is 0.
func (p Point) IsZero() bool {
	return p.raw().Sign() == 0
}

// Cmp compares p and q.
func (p Point) Cmp(q Point) int {
	return p.raw().Cmp(q.raw())
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{new(big.Int).Add(p.raw(), q.raw())}
}

// Sub returns p-q, saturating at zero.
func (p Point) Sub(q Point) Point {
	r := new(big.Int).Sub(p.raw(), q.raw())
	if r.Sign() < 0 {
		return Zero()
	}
	return Point{r}
}

// Mul returns p*q rounded down.
func (p Point) Mul(q Point) Point {
	r := new(big.Int).Mul(p.raw(), q.raw())
	return Point{r.Rsh(r, FracBits)}
}

// MulInt returns p*n.
func (p Point) MulInt(n uint64) Point {
	return Point{new(big.Int).Mul(p.raw(), new(big.Int).SetUint64(n))}
}

// Div returns p/q rounded down. ok is false if q is zero.
func (p Point) Div(q Point) (result Point, ok bool) {
	if q.IsZero() {
		return Zero(), false
	}
	r := new(big.Int).Lsh(p.raw(), FracBits)
	return Point{r.Quo(r, q.raw())}, true
}

// Floor returns the integer part of p.
func (p Point) Floor() *big.Int {
	return new(big.Int).Rsh(p.raw(), FracBits)
}

// Min returns the smaller of a and b.
func Min(a, b Point) Point {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// String renders p as a decimal number with up to 18 fractional digits.
func (p Point) String() string {
	return decimal.NewFromBigInt(p.raw(), 0).DivRound(decUnit, 18).String()
}

// MarshalText implements encoding.TextMarshaler.
func (p Point) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Point) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// EncodeRLP implements rlp.Encoder.
func (p Point) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, p.raw())
}

// DecodeRLP implements rlp.Decoder.
func (p *Point) DecodeRLP(s *rlp.Stream) error {
	bits, err := s.BigInt()
	if err != nil {
		return err
	}
	p.bits = bits
	return nil
}

// MulBalance returns floor(amount * price).
func MulBalance(amount *big.Int, price Point) *big.Int {
	r := new(big.Int).Mul(amount, price.raw())
	return r.Rsh(r, FracBits)
}

// DivBalance returns floor(amount / price). The price must not be zero.
func DivBalance(amount *big.Int, price Point) *big.Int {
	r := new(big.Int).Lsh(amount, FracBits)
	return r.Quo(r, price.raw())
}
