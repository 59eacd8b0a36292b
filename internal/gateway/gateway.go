// Package gateway lets stakers deposit an underlying asset into the matching
// reward pool, converting it to pool shares on the way in and back on the way
// out, and claim or exit across many pools in one call.
package gateway

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"stakingRewards/internal/access"
	"stakingRewards/internal/asset"
	"stakingRewards/internal/engine"
	"stakingRewards/internal/fixedpoint"
	"stakingRewards/internal/market"
	"stakingRewards/internal/model"
	"stakingRewards/internal/registry"
	"stakingRewards/internal/rewards"
)

var (
	ErrConversionFailed   = errors.New("mint failed")
	ErrRedeemFailed       = errors.New("redeem failed")
	ErrRedeemNativeFailed = errors.New("redeem native failed")
	ErrUnsupportedAsset   = errors.New("no pool for underlying asset")
	ErrNativeNotSupported = errors.New("native currency not supported")
	ErrValueMismatch      = errors.New("value does not match amount")
)

// Gateway is the aggregation entry point. Pools must list its address as helper.
type Gateway struct {
	address  common.Address
	registry *registry.Registry
	tokens   rewards.TokenResolver
	wrapped  *asset.WrappedNative
	owner    access.Ownable
}

// New creates a gateway over reg. wrapped may be nil when native currency
// is not used.
func New(address common.Address, reg *registry.Registry, tokens rewards.TokenResolver, wrapped *asset.WrappedNative, owner common.Address) *Gateway {
	return &Gateway{
		address:  address,
		registry: reg,
		tokens:   tokens,
		wrapped:  wrapped,
		owner:    access.NewOwnable(owner),
	}
}

func (g *Gateway) Address() common.Address { return g.address }
func (g *Gateway) Owner() common.Address   { return g.owner.Owner() }

// Stake converts amount of underlying from the caller into shares and stakes
// them in the matching pool on the caller's behalf.
func (g *Gateway) Stake(tx *engine.Tx, underlying common.Address, amount *big.Int) (*big.Int, error) {
	if !fixedpoint.IsPositive(amount) {
		return nil, rewards.ErrInvalidAmount
	}
	target, err := g.poolForUnderlying(underlying)
	if err != nil {
		return nil, err
	}
	token, err := g.tokens.Token(underlying)
	if err != nil {
		return nil, err
	}
	if err := token.TransferFrom(tx.As(g.address), tx.Sender(), g.address, amount); err != nil {
		return nil, fmt.Errorf("pull underlying: %w", err)
	}
	return g.mintAndStake(tx, target, token, amount)
}

// StakeNative stakes native currency sent with the call. The value must
// equal amount.
func (g *Gateway) StakeNative(tx *engine.Tx, amount *big.Int) (*big.Int, error) {
	if g.wrapped == nil {
		return nil, ErrNativeNotSupported
	}
	if !fixedpoint.IsPositive(amount) {
		return nil, rewards.ErrInvalidAmount
	}
	if tx.Value().Cmp(amount) != 0 {
		return nil, fmt.Errorf("%w: sent %s, amount %s", ErrValueMismatch, tx.Value(), amount)
	}
	target, err := g.poolForUnderlying(g.wrapped.Address())
	if err != nil {
		return nil, err
	}
	if err := g.wrapped.Deposit(tx.As(g.address), amount); err != nil {
		return nil, err
	}
	return g.mintAndStake(tx, target, g.wrapped, amount)
}

func (g *Gateway) mintAndStake(tx *engine.Tx, target poolMarket, underlying asset.Token, amount *big.Int) (*big.Int, error) {
	self := tx.As(g.address)
	if err := underlying.Approve(self, target.market.Address(), amount); err != nil {
		return nil, err
	}
	shares, err := target.market.Mint(self, amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversionFailed, err)
	}
	if err := target.market.Approve(self, target.pool.Address(), shares); err != nil {
		return nil, err
	}
	if err := target.pool.StakeFor(self, tx.Sender(), shares); err != nil {
		return nil, err
	}
	return shares, nil
}

// Unstake withdraws shares of the caller from pool, redeems them and sends
// the underlying, or native currency when asNative is set, to the caller.
func (g *Gateway) Unstake(tx *engine.Tx, pool common.Address, shares *big.Int, asNative bool) (*big.Int, error) {
	target, err := g.poolAt(pool)
	if err != nil {
		return nil, err
	}
	return g.unstake(tx, target, shares, asNative)
}

func (g *Gateway) unstake(tx *engine.Tx, target poolMarket, shares *big.Int, asNative bool) (*big.Int, error) {
	self := tx.As(g.address)
	if err := target.pool.WithdrawFor(self, tx.Sender(), shares); err != nil {
		return nil, err
	}
	amount, err := target.market.Redeem(self, shares)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedeemFailed, err)
	}

	if asNative {
		if g.wrapped == nil || target.market.Underlying() != g.wrapped.Address() {
			return nil, fmt.Errorf("%w: underlying is not wrapped native", ErrRedeemNativeFailed)
		}
		if err := g.wrapped.Withdraw(self, amount); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedeemNativeFailed, err)
		}
		if err := g.wrapped.Native().Transfer(self, tx.Sender(), amount); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedeemNativeFailed, err)
		}
		return amount, nil
	}

	token, err := g.tokens.Token(target.market.Underlying())
	if err != nil {
		return nil, err
	}
	if err := token.Transfer(self, tx.Sender(), amount); err != nil {
		return nil, fmt.Errorf("return underlying: %w", err)
	}
	return amount, nil
}

// ClaimRewards pays the caller's rewards from each listed pool.
func (g *Gateway) ClaimRewards(tx *engine.Tx, pools []common.Address) error {
	targets, err := g.resolve(pools)
	if err != nil {
		return err
	}
	return g.claim(tx, targets)
}

// ClaimAllRewards pays the caller's rewards from every live pool.
func (g *Gateway) ClaimAllRewards(tx *engine.Tx) error {
	return g.claim(tx, g.registry.Pools())
}

func (g *Gateway) claim(tx *engine.Tx, pools []*rewards.Pool) error {
	self := tx.As(g.address)
	for _, pool := range pools {
		if err := pool.GetReward(self, tx.Sender()); err != nil {
			return fmt.Errorf("claim %s: %w", pool.Address().Hex(), err)
		}
	}
	return nil
}

// Exit unstakes the caller's whole balance from each listed pool and then
// claims its rewards. Pools the caller has no balance in are only claimed.
func (g *Gateway) Exit(tx *engine.Tx, pools []common.Address, asNative bool) error {
	targets, err := g.resolve(pools)
	if err != nil {
		return err
	}
	return g.exit(tx, targets, asNative)
}

// ExitAll exits every live pool.
func (g *Gateway) ExitAll(tx *engine.Tx, asNative bool) error {
	return g.exit(tx, g.registry.Pools(), asNative)
}

type exitTarget struct {
	poolMarket
	balance *big.Int
}

// exit resolves a market only for pools holding a balance of the caller, so
// pools staking a plain token still pay out.
func (g *Gateway) exit(tx *engine.Tx, pools []*rewards.Pool, asNative bool) error {
	targets := make([]exitTarget, 0, len(pools))
	for _, pool := range pools {
		target := exitTarget{
			poolMarket: poolMarket{pool: pool},
			balance:    pool.BalanceOf(tx.Sender()),
		}
		if target.balance.Sign() > 0 {
			pm, err := g.withMarket(pool)
			if err != nil {
				return fmt.Errorf("exit %s: %w", pool.Address().Hex(), err)
			}
			target.poolMarket = pm
		}
		targets = append(targets, target)
	}

	self := tx.As(g.address)
	for _, target := range targets {
		if target.balance.Sign() > 0 {
			if _, err := g.unstake(tx, target.poolMarket, target.balance, asNative); err != nil {
				return fmt.Errorf("exit %s: %w", target.pool.Address().Hex(), err)
			}
		}
		if err := target.pool.GetReward(self, tx.Sender()); err != nil {
			return fmt.Errorf("exit %s: %w", target.pool.Address().Hex(), err)
		}
	}
	return nil
}

// Seize sends amount of an asset held by the gateway to the owner. Native
// currency is addressed by asset.NativeAddress.
func (g *Gateway) Seize(tx *engine.Tx, assetID common.Address, amount *big.Int) error {
	if err := g.owner.OnlyOwner(tx); err != nil {
		return err
	}
	var token asset.Token
	if assetID == asset.NativeAddress {
		if g.wrapped == nil {
			return ErrNativeNotSupported
		}
		token = g.wrapped.Native()
	} else {
		var err error
		if token, err = g.tokens.Token(assetID); err != nil {
			return err
		}
	}
	if err := token.Transfer(tx.As(g.address), g.Owner(), amount); err != nil {
		return fmt.Errorf("seize %s: %w", assetID.Hex(), err)
	}
	tx.Emit(model.Event{
		Contract: g.address.Hex(),
		Name:     model.EventSeized,
		Account:  g.Owner().Hex(),
		Asset:    assetID.Hex(),
		Amount:   amount.String(),
	})
	return nil
}

func (g *Gateway) TransferOwnership(tx *engine.Tx, newOwner common.Address) error {
	return g.owner.TransferOwnership(tx, g.address, newOwner)
}

func (g *Gateway) Snapshot() any {
	return g.owner
}

func (g *Gateway) Restore(snapshot any) {
	g.owner = snapshot.(access.Ownable)
}

type poolMarket struct {
	pool   *rewards.Pool
	market market.Market
}

// resolve maps pool addresses to live pools before anything is applied.
func (g *Gateway) resolve(addresses []common.Address) ([]*rewards.Pool, error) {
	out := make([]*rewards.Pool, 0, len(addresses))
	for _, address := range addresses {
		pool, ok := g.registry.PoolAt(address)
		if !ok {
			return nil, fmt.Errorf("%w: %s", registry.ErrPoolNotFound, address.Hex())
		}
		out = append(out, pool)
	}
	return out, nil
}

func (g *Gateway) poolAt(address common.Address) (poolMarket, error) {
	pool, ok := g.registry.PoolAt(address)
	if !ok {
		return poolMarket{}, fmt.Errorf("%w: %s", registry.ErrPoolNotFound, address.Hex())
	}
	return g.withMarket(pool)
}

func (g *Gateway) withMarket(pool *rewards.Pool) (poolMarket, error) {
	token, err := g.tokens.Token(pool.StakingAsset())
	if err != nil {
		return poolMarket{}, err
	}
	m, ok := token.(market.Market)
	if !ok {
		return poolMarket{}, fmt.Errorf("%w: %s is not a share market", ErrUnsupportedAsset, pool.StakingAsset().Hex())
	}
	return poolMarket{pool: pool, market: m}, nil
}

func (g *Gateway) poolForUnderlying(underlying common.Address) (poolMarket, error) {
	for _, pool := range g.registry.Pools() {
		target, err := g.withMarket(pool)
		if err != nil {
			continue
		}
		if target.market.Underlying() == underlying {
			return target, nil
		}
	}
	return poolMarket{}, fmt.Errorf("%w: %s", ErrUnsupportedAsset, underlying.Hex())
}
