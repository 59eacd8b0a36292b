// Package market implements the wrapped-share conversion collaborator: a token
// whose shares are minted against an underlying asset at an exchange rate.
package market

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"stakingRewards/internal/access"
	"stakingRewards/internal/asset"
	"stakingRewards/internal/engine"
	"stakingRewards/internal/fixedpoint"
	"stakingRewards/internal/model"
)

var (
	ErrMintRejected   = errors.New("mint rejected")
	ErrRedeemRejected = errors.New("redeem rejected")
	ErrInvalidRate    = errors.New("invalid exchange rate")
)

// Market converts an underlying asset into shares and back. ExchangeRate is
// the number of shares minted per unit of underlying, scaled by 1e18.
type Market interface {
	asset.Token
	Underlying() common.Address
	Mint(tx *engine.Tx, underlyingAmount *big.Int) (*big.Int, error)
	Redeem(tx *engine.Tx, shares *big.Int) (*big.Int, error)
	ExchangeRate() *big.Int
	SupplyRatePerPeriod() *big.Int
}

// ShareMarket is an in-memory Market with administratively set rates.
type ShareMarket struct {
	*asset.Ledger
	access.Ownable
	underlying asset.Token
	params     params
}

type params struct {
	exchangeRate *big.Int
	supplyRate   *big.Int
	mintPaused   bool
	redeemPaused bool
}

type snapshot struct {
	ledger any
	owner  access.Ownable
	params params
}

// NewShareMarket creates a market at address over underlying. admin may change rates.
func NewShareMarket(address common.Address, name, symbol string, decimals uint8, underlying asset.Token, exchangeRate *big.Int, admin common.Address) (*ShareMarket, error) {
	if !fixedpoint.IsPositive(exchangeRate) {
		return nil, ErrInvalidRate
	}
	return &ShareMarket{
		Ledger:     asset.NewLedger(address, name, symbol, decimals, address),
		Ownable:    access.NewOwnable(admin),
		underlying: underlying,
		params: params{
			exchangeRate: new(big.Int).Set(exchangeRate),
			supplyRate:   new(big.Int),
		},
	}, nil
}

func (m *ShareMarket) Underlying() common.Address {
	return m.underlying.Address()
}

func (m *ShareMarket) ExchangeRate() *big.Int {
	return fixedpoint.Clone(m.params.exchangeRate)
}

func (m *ShareMarket) SupplyRatePerPeriod() *big.Int {
	return fixedpoint.Clone(m.params.supplyRate)
}

// Mint pulls underlyingAmount from the caller and credits shares to the caller.
func (m *ShareMarket) Mint(tx *engine.Tx, underlyingAmount *big.Int) (*big.Int, error) {
	if m.params.mintPaused {
		return nil, fmt.Errorf("%w: minting paused", ErrMintRejected)
	}
	if !fixedpoint.IsPositive(underlyingAmount) {
		return nil, fmt.Errorf("%w: zero amount", ErrMintRejected)
	}
	shares, err := fixedpoint.MulDiv(underlyingAmount, m.params.exchangeRate, fixedpoint.ScaleBig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMintRejected, err)
	}
	if shares.Sign() == 0 {
		return nil, fmt.Errorf("%w: amount below one share", ErrMintRejected)
	}

	self := tx.As(m.Address())
	if err := m.underlying.TransferFrom(self, tx.Sender(), m.Address(), underlyingAmount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMintRejected, err)
	}
	if err := m.Ledger.Mint(self, tx.Sender(), shares); err != nil {
		return nil, err
	}
	tx.Emit(model.Event{
		Contract: m.Address().Hex(),
		Name:     model.EventMint,
		Account:  tx.Sender().Hex(),
		Asset:    m.Underlying().Hex(),
		Amount:   underlyingAmount.String(),
		Data:     map[string]string{"shares": shares.String()},
	})
	return shares, nil
}

// Redeem burns shares from the caller and returns the underlying amount.
func (m *ShareMarket) Redeem(tx *engine.Tx, shares *big.Int) (*big.Int, error) {
	if m.params.redeemPaused {
		return nil, fmt.Errorf("%w: redeeming paused", ErrRedeemRejected)
	}
	if !fixedpoint.IsPositive(shares) {
		return nil, fmt.Errorf("%w: zero amount", ErrRedeemRejected)
	}
	amount, err := fixedpoint.MulDiv(shares, fixedpoint.ScaleBig(), m.params.exchangeRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedeemRejected, err)
	}

	self := tx.As(m.Address())
	if err := m.Ledger.Burn(self, tx.Sender(), shares); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedeemRejected, err)
	}
	if err := m.underlying.Transfer(self, tx.Sender(), amount); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedeemRejected, err)
	}
	tx.Emit(model.Event{
		Contract: m.Address().Hex(),
		Name:     model.EventRedeem,
		Account:  tx.Sender().Hex(),
		Asset:    m.Underlying().Hex(),
		Amount:   amount.String(),
		Data:     map[string]string{"shares": shares.String()},
	})
	return amount, nil
}

// SetRates updates the exchange and supply rates. A nil value keeps the current one.
func (m *ShareMarket) SetRates(tx *engine.Tx, exchangeRate, supplyRate *big.Int) error {
	if err := m.OnlyOwner(tx); err != nil {
		return err
	}
	if exchangeRate != nil {
		if !fixedpoint.IsPositive(exchangeRate) {
			return ErrInvalidRate
		}
		m.params.exchangeRate = new(big.Int).Set(exchangeRate)
	}
	if supplyRate != nil {
		if supplyRate.Sign() < 0 {
			return ErrInvalidRate
		}
		m.params.supplyRate = new(big.Int).Set(supplyRate)
	}
	return nil
}

// SetPaused toggles minting and redeeming.
func (m *ShareMarket) SetPaused(tx *engine.Tx, mint, redeem bool) error {
	if err := m.OnlyOwner(tx); err != nil {
		return err
	}
	m.params.mintPaused = mint
	m.params.redeemPaused = redeem
	return nil
}

func (m *ShareMarket) Snapshot() any {
	return snapshot{ledger: m.Ledger.Snapshot(), owner: m.Ownable, params: m.params}
}

func (m *ShareMarket) Restore(state any) {
	s := state.(snapshot)
	m.Ledger.Restore(s.ledger)
	m.Ownable = s.owner
	m.params = s.params
}
