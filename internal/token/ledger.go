// Package token provides an in-memory stake token with ERC20 semantics:
// balances, allowances, transfer and transferFrom.
package token

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

var (
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrOverflow              = errors.New("token: balance overflow")
)

// Ledger keeps balances for every holder. Spender is the account allowed to
// call Transfer on its own balance and TransferFrom on approved balances,
// which is the ArborVote escrow.
type Ledger struct {
	mu         sync.Mutex
	spender    common.Address
	balances   map[common.Address]*uint256.Int
	allowances map[common.Address]*uint256.Int
}

func NewLedger(spender common.Address) *Ledger {
	return &Ledger{
		spender:    spender,
		balances:   make(map[common.Address]*uint256.Int),
		allowances: make(map[common.Address]*uint256.Int),
	}
}

func (l *Ledger) Spender() common.Address {
	return l.spender
}

// Mint credits amount to holder out of thin air.
func (l *Ledger) Mint(holder common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.credit(holder, amount)
}

// Approve lets the spender move up to amount from owner.
func (l *Ledger) Approve(owner common.Address, amount *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.allowances[owner] = new(uint256.Int).Set(amount)
}

func (l *Ledger) Allowance(owner common.Address) *uint256.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if a, ok := l.allowances[owner]; ok {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int)
}

func (l *Ledger) BalanceOf(ctx context.Context, owner common.Address) (*uint256.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(uint256.Int).Set(l.balance(owner)), nil
}

// Transfer moves amount from the spender's own balance to to.
func (l *Ledger) Transfer(ctx context.Context, to common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(l.spender, to, amount)
}

// TransferFrom moves amount from from to to, consuming allowance.
func (l *Ledger) TransferFrom(ctx context.Context, from, to common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	allowance, ok := l.allowances[from]
	if !ok || allowance.Lt(amount) {
		return fmt.Errorf("%w: %s approved %s", ErrInsufficientAllowance, from.Hex(), allowanceString(allowance))
	}
	if err := l.move(from, to, amount); err != nil {
		return err
	}
	allowance.Sub(allowance, amount)
	return nil
}

func (l *Ledger) move(from, to common.Address, amount *uint256.Int) error {
	src := l.balance(from)
	if src.Lt(amount) {
		return fmt.Errorf("%w: %s holds %s", ErrInsufficientBalance, from.Hex(), src.Dec())
	}
	if from == to {
		return nil
	}
	if err := l.credit(to, amount); err != nil {
		return err
	}
	l.balances[from] = new(uint256.Int).Sub(src, amount)
	return nil
}

func (l *Ledger) credit(holder common.Address, amount *uint256.Int) error {
	sum, overflow := new(uint256.Int).AddOverflow(l.balance(holder), amount)
	if overflow {
		return ErrOverflow
	}
	l.balances[holder] = sum
	return nil
}

func (l *Ledger) balance(holder common.Address) *uint256.Int {
	if b, ok := l.balances[holder]; ok {
		return b
	}
	return new(uint256.Int)
}

func allowanceString(a *uint256.Int) string {
	if a == nil {
		return "0"
	}
	return a.Dec()
}
