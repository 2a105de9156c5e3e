// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package reverts declares the user facing errors of builtins. A revert error rolls back the
// call that produced it and is reported in the receipt; any other error aborts the block.
package reverts

import (
	"errors"
)

type ErrRevert struct {
	name string
}

// New declares a revert error identified by name.
func New(name string) *ErrRevert {
	return &ErrRevert{name: name}
}

func (e *ErrRevert) Error() string {
	return e.name
}

// Name returns the identifier of the error.
func (e *ErrRevert) Name() string {
	return e.name
}

// Is reports whether target is a revert error with the same name, so errors decoded
// from receipts still match the declared sentinels.
func (e *ErrRevert) Is(target error) bool {
	t, ok := target.(*ErrRevert)
	return ok && t.name == e.name
}

func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var re *ErrRevert
	return errors.As(e, &re)
}

// NameOf returns the name of the revert error wrapped in err, or an empty string.
func NameOf(err error) string {
	var re *ErrRevert
	if errors.As(err, &re) {
		return re.name
	}
	return ""
}
