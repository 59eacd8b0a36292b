package asset

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"stakingRewards/internal/engine"
	"stakingRewards/internal/model"
)

// NativeAddress is the conventional placeholder identity for the native currency.
var NativeAddress = common.HexToAddress("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE")

// NewNative returns the native currency ledger. Its minter is the zero address,
// so balances can only be seeded through Fund.
func NewNative(symbol string) *Ledger {
	return NewLedger(NativeAddress, symbol, symbol, 18, common.Address{})
}

// Fund credits native currency outside of any call. It is used to seed
// genesis balances.
func (l *Ledger) Fund(to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	l.state.totalSupply = new(big.Int).Add(l.state.totalSupply, amount)
	l.credit(to, amount)
	return nil
}

// WrappedNative is an ERC20 representation of the native currency.
type WrappedNative struct {
	*Ledger
	native *Ledger
}

func NewWrappedNative(address common.Address, name, symbol string, native *Ledger) *WrappedNative {
	return &WrappedNative{
		Ledger: NewLedger(address, name, symbol, 18, address),
		native: native,
	}
}

// Deposit takes amount of native currency from the caller and credits the
// same amount of wrapped tokens.
func (w *WrappedNative) Deposit(tx *engine.Tx, amount *big.Int) error {
	if err := w.native.Transfer(tx, w.address, amount); err != nil {
		return fmt.Errorf("deposit: %w", err)
	}
	if err := w.Ledger.Mint(tx.As(w.address), tx.Sender(), amount); err != nil {
		return fmt.Errorf("deposit: %w", err)
	}
	tx.Emit(model.Event{
		Contract: w.address.Hex(),
		Name:     "Deposit",
		Account:  tx.Sender().Hex(),
		Amount:   amount.String(),
	})
	return nil
}

// Withdraw burns amount of wrapped tokens from the caller and returns native currency.
func (w *WrappedNative) Withdraw(tx *engine.Tx, amount *big.Int) error {
	if err := w.Ledger.Burn(tx.As(w.address), tx.Sender(), amount); err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}
	if err := w.native.Transfer(tx.As(w.address), tx.Sender(), amount); err != nil {
		return fmt.Errorf("withdraw: %w", err)
	}
	tx.Emit(model.Event{
		Contract: w.address.Hex(),
		Name:     "Withdrawal",
		Account:  tx.Sender().Hex(),
		Amount:   amount.String(),
	})
	return nil
}

// Native returns the native currency ledger backing w.
func (w *WrappedNative) Native() *Ledger {
	return w.native
}
