// Package asset provides the fungible asset collaborator used by the ledger:
// an in-memory ERC20-style token, the native currency and its wrapped form,
// and a directory resolving asset identities to tokens.
package asset

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"stakingRewards/internal/engine"
	"stakingRewards/internal/fixedpoint"
	"stakingRewards/internal/model"
)

var (
	ErrInsufficientBalance   = errors.New("transfer amount exceeds balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInvalidRecipient      = errors.New("transfer to the zero address")
	ErrInvalidAmount         = errors.New("invalid token amount")
	ErrNotMinter             = errors.New("caller is not the minter")
	ErrUnknownAsset          = errors.New("unknown asset")
)

// Token is the fungible asset interface the ledger depends on. Mutating
// calls act on behalf of tx.Sender().
type Token interface {
	Address() common.Address
	Meta() model.TokenMeta
	TotalSupply() *big.Int
	BalanceOf(account common.Address) *big.Int
	Allowance(owner, spender common.Address) *big.Int
	Transfer(tx *engine.Tx, to common.Address, amount *big.Int) error
	TransferFrom(tx *engine.Tx, from, to common.Address, amount *big.Int) error
	Approve(tx *engine.Tx, spender common.Address, amount *big.Int) error
}

// MaxAllowance is treated as an unlimited approval.
var MaxAllowance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Ledger is an in-memory token with a single minter.
type Ledger struct {
	address common.Address
	meta    model.TokenMeta
	minter  common.Address
	state   ledgerState
}

// ledgerState values are replaced, never mutated in place, so snapshots may
// share them.
type ledgerState struct {
	totalSupply *big.Int
	balances    map[common.Address]*big.Int
	allowances  map[common.Address]map[common.Address]*big.Int
}

func NewLedger(address common.Address, name, symbol string, decimals uint8, minter common.Address) *Ledger {
	return &Ledger{
		address: address,
		meta: model.TokenMeta{
			Address:  address.Hex(),
			Decimals: decimals,
			Symbol:   symbol,
			Name:     name,
		},
		minter: minter,
		state: ledgerState{
			totalSupply: new(big.Int),
			balances:    make(map[common.Address]*big.Int),
			allowances:  make(map[common.Address]map[common.Address]*big.Int),
		},
	}
}

func (l *Ledger) Address() common.Address { return l.address }

func (l *Ledger) Meta() model.TokenMeta { return l.meta }

func (l *Ledger) Minter() common.Address { return l.minter }

func (l *Ledger) TotalSupply() *big.Int {
	return fixedpoint.Clone(l.state.totalSupply)
}

func (l *Ledger) BalanceOf(account common.Address) *big.Int {
	return fixedpoint.Clone(l.state.balances[account])
}

func (l *Ledger) Allowance(owner, spender common.Address) *big.Int {
	return fixedpoint.Clone(l.state.allowances[owner][spender])
}

func (l *Ledger) Transfer(tx *engine.Tx, to common.Address, amount *big.Int) error {
	return l.move(tx, tx.Sender(), to, amount)
}

func (l *Ledger) TransferFrom(tx *engine.Tx, from, to common.Address, amount *big.Int) error {
	if err := l.spendAllowance(from, tx.Sender(), amount); err != nil {
		return err
	}
	return l.move(tx, from, to, amount)
}

func (l *Ledger) Approve(tx *engine.Tx, spender common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	owner := tx.Sender()
	if l.state.allowances[owner] == nil {
		l.state.allowances[owner] = make(map[common.Address]*big.Int)
	}
	l.state.allowances[owner][spender] = new(big.Int).Set(amount)
	tx.Emit(model.Event{
		Contract: l.address.Hex(),
		Name:     model.EventApproval,
		Account:  owner.Hex(),
		Amount:   amount.String(),
		Data:     map[string]string{"spender": spender.Hex()},
	})
	return nil
}

// Mint creates amount new tokens for to. Only the minter may call it.
func (l *Ledger) Mint(tx *engine.Tx, to common.Address, amount *big.Int) error {
	if tx.Sender() != l.minter {
		return ErrNotMinter
	}
	if to == (common.Address{}) {
		return ErrInvalidRecipient
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	supply, err := fixedpoint.Add(l.state.totalSupply, amount)
	if err != nil {
		return fmt.Errorf("mint %s: %w", l.meta.Symbol, err)
	}
	l.state.totalSupply = supply
	l.credit(to, amount)
	tx.Emit(model.Event{
		Contract: l.address.Hex(),
		Name:     model.EventTransfer,
		Account:  to.Hex(),
		Amount:   amount.String(),
		Data:     map[string]string{"from": common.Address{}.Hex()},
	})
	return nil
}

// Burn destroys amount tokens held by from. Only the minter may call it.
func (l *Ledger) Burn(tx *engine.Tx, from common.Address, amount *big.Int) error {
	if tx.Sender() != l.minter {
		return ErrNotMinter
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if err := l.debit(from, amount); err != nil {
		return err
	}
	l.state.totalSupply = new(big.Int).Sub(l.state.totalSupply, amount)
	tx.Emit(model.Event{
		Contract: l.address.Hex(),
		Name:     model.EventTransfer,
		Account:  common.Address{}.Hex(),
		Amount:   amount.String(),
		Data:     map[string]string{"from": from.Hex()},
	})
	return nil
}

func (l *Ledger) move(tx *engine.Tx, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if to == (common.Address{}) {
		return ErrInvalidRecipient
	}
	if err := l.debit(from, amount); err != nil {
		return err
	}
	l.credit(to, amount)
	tx.Emit(model.Event{
		Contract: l.address.Hex(),
		Name:     model.EventTransfer,
		Account:  to.Hex(),
		Amount:   amount.String(),
		Data:     map[string]string{"from": from.Hex()},
	})
	return nil
}

func (l *Ledger) debit(from common.Address, amount *big.Int) error {
	balance := l.state.balances[from]
	if balance == nil || balance.Cmp(amount) < 0 {
		return fmt.Errorf("%s: %w", l.meta.Symbol, ErrInsufficientBalance)
	}
	remaining := new(big.Int).Sub(balance, amount)
	if remaining.Sign() == 0 {
		delete(l.state.balances, from)
		return nil
	}
	l.state.balances[from] = remaining
	return nil
}

func (l *Ledger) credit(to common.Address, amount *big.Int) {
	if amount.Sign() == 0 {
		return
	}
	l.state.balances[to] = new(big.Int).Add(fixedpoint.Clone(l.state.balances[to]), amount)
}

func (l *Ledger) spendAllowance(owner, spender common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	current := l.state.allowances[owner][spender]
	if current == nil || current.Cmp(amount) < 0 {
		return fmt.Errorf("%s: %w", l.meta.Symbol, ErrInsufficientAllowance)
	}
	if current.Cmp(MaxAllowance) == 0 {
		return nil
	}
	l.state.allowances[owner][spender] = new(big.Int).Sub(current, amount)
	return nil
}

func (l *Ledger) Snapshot() any {
	balances := make(map[common.Address]*big.Int, len(l.state.balances))
	for k, v := range l.state.balances {
		balances[k] = v
	}
	allowances := make(map[common.Address]map[common.Address]*big.Int, len(l.state.allowances))
	for owner, spenders := range l.state.allowances {
		inner := make(map[common.Address]*big.Int, len(spenders))
		for k, v := range spenders {
			inner[k] = v
		}
		allowances[owner] = inner
	}
	return ledgerState{
		totalSupply: l.state.totalSupply,
		balances:    balances,
		allowances:  allowances,
	}
}

func (l *Ledger) Restore(snapshot any) {
	l.state = snapshot.(ledgerState)
}
