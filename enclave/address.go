// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package enclave

import (
	"bytes"
	"errors"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// AddressLength length of address in bytes.
const AddressLength = 32

// Address identifies an account. Pool sub-accounts and module accounts share the same space.
type Address [AddressLength]byte

// String implements the stringer interface
func (a Address) String() string {
	return hexutil.Encode(a[:])
}

// Bytes returns byte slice form of address.
func (a Address) Bytes() []byte {
	return a[:]
}

// IsZero returns if the address is all zero.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Compare orders two addresses byte-wise.
func (a Address) Compare(other Address) int {
	return bytes.Compare(a[:], other[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAccount(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress convert string presented address into Address type.
func ParseAddress(s string) (Address, error) {
	var addr Address
	if err := decodeHex32(s, addr[:]); err != nil {
		return Address{}, err
	}
	return addr, nil
}

// ParseAccount parses either a hex address or an account name. A name maps to the address
// holding its bytes, so "root" is RootAccount.
func ParseAccount(s string) (Address, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return ParseAddress(s)
	}
	if s == "" || len(s) > AddressLength {
		return Address{}, errors.New("invalid account name")
	}
	return BytesToAddress([]byte(s)), nil
}

// MustParseAddress convert string presented address into Address type, panic on error.
func MustParseAddress(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// BytesToAddress converts bytes slice into address.
// If b is larger than address length, b will be cropped (from the left).
// If b is smaller than address length, b will be extended (from the left).
func BytesToAddress(b []byte) Address {
	return Address(leftPad32(b))
}

// WorkerPubkey is the public key identifying a remote worker.
type WorkerPubkey [32]byte

func (w WorkerPubkey) String() string {
	return hexutil.Encode(w[:])
}

// Bytes returns byte slice form of the key.
func (w WorkerPubkey) Bytes() []byte {
	return w[:]
}

// MarshalText implements encoding.TextMarshaler.
func (w WorkerPubkey) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (w *WorkerPubkey) UnmarshalText(text []byte) error {
	s := string(text)
	if !strings.HasPrefix(s, "0x") && len(s) > 0 && len(s) <= len(w) {
		*w = BytesToWorkerPubkey(text)
		return nil
	}
	parsed, err := ParseWorkerPubkey(s)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// ParseWorkerPubkey parses a hex encoded worker public key.
func ParseWorkerPubkey(s string) (WorkerPubkey, error) {
	var w WorkerPubkey
	if err := decodeHex32(s, w[:]); err != nil {
		return WorkerPubkey{}, err
	}
	return w, nil
}

// BytesToWorkerPubkey converts bytes slice into a worker key, padding from the left.
func BytesToWorkerPubkey(b []byte) WorkerPubkey {
	return WorkerPubkey(leftPad32(b))
}
