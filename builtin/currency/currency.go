// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package currency keeps account balances and the named locks placed on them.
package currency

import (
	"math/big"

	"github.com/enclavenet/enclave/builtin/reverts"
	"github.com/enclavenet/enclave/builtin/store"
	"github.com/enclavenet/enclave/enclave"
	"github.com/enclavenet/enclave/log"
	"github.com/enclavenet/enclave/xenv"
)

var logger = log.WithContext("pkg", "currency")

var (
	ErrInsufficientBalance = reverts.New("InsufficientBalance")
	ErrInvalidAmount       = reverts.New("InvalidAmount")
)

var (
	slotAccounts      = store.Slot("accounts")
	slotTotalIssuance = store.Slot("total-issuance")
)

// LockID names a lock. Locks with different ids overlap instead of adding up.
type LockID string

type lock struct {
	ID     LockID
	Amount *big.Int
}

type account struct {
	Balance *big.Int
	Locks   []lock
}

func (a *account) locked() *big.Int {
	locked := new(big.Int)
	for _, l := range a.Locks {
		if l.Amount.Cmp(locked) > 0 {
			locked.Set(l.Amount)
		}
	}
	return locked
}

func (a *account) usable() *big.Int {
	u := new(big.Int).Sub(a.Balance, a.locked())
	if u.Sign() < 0 {
		return u.SetInt64(0)
	}
	return u
}

// Currency is the custody builtin.
type Currency struct {
	env           *xenv.Environment
	accounts      *store.Mapping[enclave.Address, *account]
	totalIssuance *store.Value[*big.Int]
}

func New(addr enclave.Address, env *xenv.Environment) *Currency {
	ctx := store.NewContext(addr, env.State())
	return &Currency{
		env:           env,
		accounts:      store.NewMapping[enclave.Address, *account](ctx, slotAccounts),
		totalIssuance: store.NewValue[*big.Int](ctx, slotTotalIssuance),
	}
}

func (c *Currency) getAccount(who enclave.Address) (*account, error) {
	acc, err := c.accounts.Get(who)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		acc = &account{}
	}
	if acc.Balance == nil {
		acc.Balance = new(big.Int)
	}
	return acc, nil
}

func (c *Currency) setAccount(who enclave.Address, acc *account) error {
	if acc.Balance.Sign() == 0 && len(acc.Locks) == 0 {
		c.accounts.Delete(who)
		return nil
	}
	return c.accounts.Set(who, acc)
}

// FreeBalance returns the balance of who, locked funds included.
func (c *Currency) FreeBalance(who enclave.Address) (*big.Int, error) {
	acc, err := c.getAccount(who)
	if err != nil {
		return nil, err
	}
	return acc.Balance, nil
}

// Locked returns the largest lock on who.
func (c *Currency) Locked(who enclave.Address) (*big.Int, error) {
	acc, err := c.getAccount(who)
	if err != nil {
		return nil, err
	}
	return acc.locked(), nil
}

// Usable returns the part of the balance not covered by any lock.
func (c *Currency) Usable(who enclave.Address) (*big.Int, error) {
	acc, err := c.getAccount(who)
	if err != nil {
		return nil, err
	}
	return acc.usable(), nil
}

// TotalIssuance returns the sum of all balances.
func (c *Currency) TotalIssuance() (*big.Int, error) {
	total, err := c.totalIssuance.Get()
	if err != nil {
		return nil, err
	}
	if total == nil {
		return new(big.Int), nil
	}
	return total, nil
}

func (c *Currency) addIssuance(delta *big.Int) error {
	total, err := c.TotalIssuance()
	if err != nil {
		return err
	}
	return c.totalIssuance.Set(total.Add(total, delta))
}

// SetLock creates or replaces the lock id on who.
func (c *Currency) SetLock(id LockID, who enclave.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	acc, err := c.getAccount(who)
	if err != nil {
		return err
	}
	for i := range acc.Locks {
		if acc.Locks[i].ID == id {
			acc.Locks[i].Amount = new(big.Int).Set(amount)
			return c.setAccount(who, acc)
		}
	}
	acc.Locks = append(acc.Locks, lock{id, new(big.Int).Set(amount)})
	return c.setAccount(who, acc)
}

// RemoveLock drops the lock id from who.
func (c *Currency) RemoveLock(id LockID, who enclave.Address) error {
	acc, err := c.getAccount(who)
	if err != nil {
		return err
	}
	locks := acc.Locks[:0]
	for _, l := range acc.Locks {
		if l.ID != id {
			locks = append(locks, l)
		}
	}
	acc.Locks = locks
	return c.setAccount(who, acc)
}

// Slash burns up to amount from who, ignoring locks. It returns the amount removed.
func (c *Currency) Slash(who enclave.Address, amount *big.Int) (*big.Int, error) {
	acc, err := c.getAccount(who)
	if err != nil {
		return nil, err
	}
	removed := new(big.Int).Set(amount)
	if removed.Cmp(acc.Balance) > 0 {
		removed.Set(acc.Balance)
	}
	if removed.Sign() <= 0 {
		return new(big.Int), nil
	}
	acc.Balance = new(big.Int).Sub(acc.Balance, removed)
	if err := c.setAccount(who, acc); err != nil {
		return nil, err
	}
	if err := c.addIssuance(new(big.Int).Neg(removed)); err != nil {
		return nil, err
	}
	c.env.Log(&Slashed{Who: who, Amount: removed})
	logger.Debug("slashed", "who", who, "amount", removed)
	return removed, nil
}

// Transfer moves amount of usable balance from one account to another.
func (c *Currency) Transfer(from, to enclave.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	src, err := c.getAccount(from)
	if err != nil {
		return err
	}
	if src.usable().Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if from == to || amount.Sign() == 0 {
		c.env.Log(&Transfer{From: from, To: to, Amount: new(big.Int).Set(amount)})
		return nil
	}
	src.Balance = new(big.Int).Sub(src.Balance, amount)
	if err := c.setAccount(from, src); err != nil {
		return err
	}
	dst, err := c.getAccount(to)
	if err != nil {
		return err
	}
	dst.Balance = new(big.Int).Add(dst.Balance, amount)
	if err := c.setAccount(to, dst); err != nil {
		return err
	}
	c.env.Log(&Transfer{From: from, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// Mint creates amount on who.
func (c *Currency) Mint(who enclave.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	acc, err := c.getAccount(who)
	if err != nil {
		return err
	}
	acc.Balance = new(big.Int).Add(acc.Balance, amount)
	if err := c.setAccount(who, acc); err != nil {
		return err
	}
	return c.addIssuance(amount)
}
