// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tx

import (
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/enclavenet/enclave/enclave"
)

// Amount is a balance held in raw units and written in tokens.
type Amount struct {
	raw *big.Int
}

// NewAmount returns an amount of raw units.
func NewAmount(raw *big.Int) Amount {
	return Amount{raw: new(big.Int).Set(raw)}
}

// Tokens returns an amount of n whole tokens.
func Tokens(n int64) Amount {
	return Amount{raw: enclave.Tokens(n)}
}

// BigInt returns a copy of the raw value.
func (a Amount) BigInt() *big.Int {
	if a.raw == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(a.raw)
}

func (a Amount) String() string {
	return enclave.FormatBalance(a.raw)
}

// MarshalText implements encoding.TextMarshaler.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(text []byte) error {
	v, err := enclave.ParseBalance(string(text))
	if err != nil {
		return errors.Wrapf(err, "invalid amount %q", text)
	}
	if v.Sign() < 0 {
		return errors.Errorf("negative amount %q", text)
	}
	a.raw = v
	return nil
}

// EncodeRLP implements rlp.Encoder.
func (a Amount) EncodeRLP(w io.Writer) error {
	return rlp.Encode(w, a.BigInt())
}

// DecodeRLP implements rlp.Decoder.
func (a *Amount) DecodeRLP(s *rlp.Stream) error {
	v, err := s.BigInt()
	if err != nil {
		return err
	}
	a.raw = v
	return nil
}
