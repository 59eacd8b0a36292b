// Package rewards implements a staking pool that streams several reward
// assets to its stakers in proportion to stake and time.
//
// Every stream keeps a scaled reward-per-stake accumulator. Each entry point
// that changes a balance or a rate first checkpoints all streams, so stakers
// are always settled at the rate that applied while they held their balance.
package rewards

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"stakingRewards/internal/access"
	"stakingRewards/internal/asset"
	"stakingRewards/internal/engine"
	"stakingRewards/internal/fixedpoint"
	"stakingRewards/internal/model"
)

// MaxRewardAssets bounds the streams of one pool. Every stake, withdraw and
// claim walks all of them.
const MaxRewardAssets = 16

// TokenResolver looks up reward assets by identity.
type TokenResolver interface {
	Token(address common.Address) (asset.Token, error)
}

// Pool is a multi-reward staking pool for one staking asset.
type Pool struct {
	address      common.Address
	stakingAsset asset.Token
	tokens       TokenResolver
	clock        engine.Clock
	state        poolState
}

type poolState struct {
	owner       access.Ownable
	helper      common.Address
	paused      bool
	totalStaked *big.Int
	balances    map[common.Address]*big.Int
	streams     []*Stream
}

// NewPool creates an empty pool at address owned by owner. helper may stake
// and withdraw on behalf of stakers; it may be the zero address.
func NewPool(address common.Address, stakingAsset asset.Token, tokens TokenResolver, clock engine.Clock, owner, helper common.Address) *Pool {
	return &Pool{
		address:      address,
		stakingAsset: stakingAsset,
		tokens:       tokens,
		clock:        clock,
		state: poolState{
			owner:       access.NewOwnable(owner),
			helper:      helper,
			totalStaked: new(big.Int),
			balances:    make(map[common.Address]*big.Int),
		},
	}
}

func (p *Pool) Address() common.Address      { return p.address }
func (p *Pool) StakingAsset() common.Address { return p.stakingAsset.Address() }
func (p *Pool) Owner() common.Address        { return p.state.owner.Owner() }
func (p *Pool) Helper() common.Address       { return p.state.helper }
func (p *Pool) Paused() bool                 { return p.state.paused }

func (p *Pool) TotalStaked() *big.Int {
	return fixedpoint.Clone(p.state.totalStaked)
}

func (p *Pool) BalanceOf(account common.Address) *big.Int {
	return fixedpoint.Clone(p.state.balances[account])
}

// RewardAssets lists reward assets in registration order.
func (p *Pool) RewardAssets() []common.Address {
	out := make([]common.Address, len(p.state.streams))
	for i, s := range p.state.streams {
		out[i] = s.rewardAsset
	}
	return out
}

// Stream returns the schedule of the stream paying rewardAsset.
func (p *Pool) Stream(rewardAsset common.Address) (StreamInfo, error) {
	s, err := p.stream(rewardAsset)
	if err != nil {
		return StreamInfo{}, err
	}
	return s.info(), nil
}

// RewardPerStake is the current scaled accumulator of a stream.
func (p *Pool) RewardPerStake(rewardAsset common.Address) (*big.Int, error) {
	s, err := p.stream(rewardAsset)
	if err != nil {
		return nil, err
	}
	rps, err := s.rewardPerStake(p.clock.Now(), p.state.totalStaked)
	if err != nil {
		return nil, err
	}
	return fixedpoint.Clone(rps), nil
}

// Earned is the amount of rewardAsset account could claim now.
func (p *Pool) Earned(rewardAsset, account common.Address) (*big.Int, error) {
	s, err := p.stream(rewardAsset)
	if err != nil {
		return nil, err
	}
	return p.earned(s, account, p.clock.Now())
}

func (p *Pool) earned(s *Stream, account common.Address, now uint64) (*big.Int, error) {
	rps, err := s.rewardPerStake(now, p.state.totalStaked)
	if err != nil {
		return nil, err
	}
	return s.earned(account, fixedpoint.Clone(p.state.balances[account]), rps)
}

// Stake deposits amount of the staking asset from the caller.
func (p *Pool) Stake(tx *engine.Tx, amount *big.Int) error {
	return p.stake(tx, tx.Sender(), amount)
}

// StakeFor credits account with amount paid by the caller. Only the owner or
// the helper may stake on behalf of others.
func (p *Pool) StakeFor(tx *engine.Tx, account common.Address, amount *big.Int) error {
	if err := p.onlyOwnerOrHelper(tx); err != nil {
		return err
	}
	if account == (common.Address{}) {
		return ErrInvalidAccount
	}
	return p.stake(tx, account, amount)
}

func (p *Pool) stake(tx *engine.Tx, account common.Address, amount *big.Int) error {
	if !fixedpoint.IsPositive(amount) {
		return ErrInvalidAmount
	}
	if p.state.paused {
		return ErrPaused
	}
	if err := p.checkpoint(tx.Now(), &account); err != nil {
		return err
	}
	total, err := fixedpoint.Add(p.state.totalStaked, amount)
	if err != nil {
		return fmt.Errorf("stake: %w", err)
	}
	p.state.totalStaked = total
	p.state.balances[account] = new(big.Int).Add(fixedpoint.Clone(p.state.balances[account]), amount)

	if err := p.stakingAsset.TransferFrom(tx.As(p.address), tx.Sender(), p.address, amount); err != nil {
		return fmt.Errorf("pull staking asset: %w", err)
	}
	tx.Emit(model.Event{
		Contract: p.address.Hex(),
		Name:     model.EventStaked,
		Account:  account.Hex(),
		Asset:    p.StakingAsset().Hex(),
		Amount:   amount.String(),
	})
	return nil
}

// Withdraw returns amount of the caller's stake.
func (p *Pool) Withdraw(tx *engine.Tx, amount *big.Int) error {
	return p.withdraw(tx, tx.Sender(), tx.Sender(), amount)
}

// WithdrawFor debits account and sends the staking asset to the helper, which
// must be the caller.
func (p *Pool) WithdrawFor(tx *engine.Tx, account common.Address, amount *big.Int) error {
	if p.state.helper == (common.Address{}) || tx.Sender() != p.state.helper {
		return fmt.Errorf("%w: %s", access.ErrUnauthorized, tx.Sender().Hex())
	}
	if account == (common.Address{}) {
		return ErrInvalidAccount
	}
	return p.withdraw(tx, account, tx.Sender(), amount)
}

func (p *Pool) withdraw(tx *engine.Tx, account, to common.Address, amount *big.Int) error {
	balance := fixedpoint.Clone(p.state.balances[account])
	if !fixedpoint.IsPositive(amount) || amount.Cmp(balance) > 0 {
		return ErrInvalidAmount
	}
	if err := p.checkpoint(tx.Now(), &account); err != nil {
		return err
	}
	p.state.totalStaked = new(big.Int).Sub(p.state.totalStaked, amount)
	if remaining := new(big.Int).Sub(balance, amount); remaining.Sign() == 0 {
		delete(p.state.balances, account)
	} else {
		p.state.balances[account] = remaining
	}

	if err := p.stakingAsset.Transfer(tx.As(p.address), to, amount); err != nil {
		return fmt.Errorf("return staking asset: %w", err)
	}
	tx.Emit(model.Event{
		Contract: p.address.Hex(),
		Name:     model.EventWithdrawn,
		Account:  account.Hex(),
		Asset:    p.StakingAsset().Hex(),
		Amount:   amount.String(),
	})
	return nil
}

// GetReward pays everything account has accrued. Anyone may trigger it; the
// rewards always go to account.
func (p *Pool) GetReward(tx *engine.Tx, account common.Address) error {
	if err := p.checkpoint(tx.Now(), &account); err != nil {
		return err
	}
	for _, s := range p.state.streams {
		owed := s.accrued[account]
		if !fixedpoint.IsPositive(owed) {
			continue
		}
		token, err := p.tokens.Token(s.rewardAsset)
		if err != nil {
			return err
		}
		delete(s.accrued, account)
		if err := token.Transfer(tx.As(p.address), account, owed); err != nil {
			return fmt.Errorf("pay reward %s: %w", s.rewardAsset.Hex(), err)
		}
		tx.Emit(model.Event{
			Contract: p.address.Hex(),
			Name:     model.EventRewardPaid,
			Account:  account.Hex(),
			Asset:    s.rewardAsset.Hex(),
			Amount:   owed.String(),
		})
	}
	return nil
}

// AddRewardsToken registers a new reward stream with the given period length.
func (p *Pool) AddRewardsToken(tx *engine.Tx, rewardAsset common.Address, duration uint64) error {
	if err := p.state.owner.OnlyOwner(tx); err != nil {
		return err
	}
	if _, err := p.stream(rewardAsset); err == nil {
		return fmt.Errorf("%w: %s", ErrRewardAssetAlreadySupported, rewardAsset.Hex())
	}
	if duration == 0 {
		return ErrInvalidDuration
	}
	if len(p.state.streams) >= MaxRewardAssets {
		return ErrTooManyRewardAssets
	}
	if _, err := p.tokens.Token(rewardAsset); err != nil {
		return err
	}
	p.state.streams = append(p.state.streams, newStream(rewardAsset, duration))
	tx.Emit(model.Event{
		Contract: p.address.Hex(),
		Name:     model.EventRewardAssetAdded,
		Asset:    rewardAsset.Hex(),
		Data:     map[string]string{"duration": fmt.Sprint(duration)},
	})
	return nil
}

// NotifyRewardAmount starts a new reward period for rewardAsset funded with
// amount plus whatever remains of the current period.
func (p *Pool) NotifyRewardAmount(tx *engine.Tx, rewardAsset common.Address, amount *big.Int) error {
	if err := p.state.owner.OnlyOwner(tx); err != nil {
		return err
	}
	s, err := p.stream(rewardAsset)
	if err != nil {
		return err
	}
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	if err := p.checkpoint(tx.Now(), nil); err != nil {
		return err
	}
	if err := s.notify(tx.Now(), amount); err != nil {
		return fmt.Errorf("notify reward amount: %w", err)
	}
	tx.Emit(model.Event{
		Contract: p.address.Hex(),
		Name:     model.EventRewardAdded,
		Asset:    rewardAsset.Hex(),
		Amount:   amount.String(),
		Data: map[string]string{
			"reward_rate":   s.rewardRate.String(),
			"period_finish": fmt.Sprint(s.periodFinish),
		},
	})
	return nil
}

// SetRewardsDuration changes the period length once the current period is over.
func (p *Pool) SetRewardsDuration(tx *engine.Tx, rewardAsset common.Address, duration uint64) error {
	if err := p.state.owner.OnlyOwner(tx); err != nil {
		return err
	}
	s, err := p.stream(rewardAsset)
	if err != nil {
		return err
	}
	if tx.Now() < s.periodFinish {
		return ErrPreviousPeriodNotComplete
	}
	if duration == 0 {
		return ErrInvalidDuration
	}
	s.duration = duration
	tx.Emit(model.Event{
		Contract: p.address.Hex(),
		Name:     model.EventRewardsDurationUpdated,
		Asset:    rewardAsset.Hex(),
		Data:     map[string]string{"duration": fmt.Sprint(duration)},
	})
	return nil
}

// RecoverToken sends amount of any asset except the staking asset to the owner.
// Reward assets are not protected.
func (p *Pool) RecoverToken(tx *engine.Tx, assetID common.Address, amount *big.Int) error {
	if err := p.state.owner.OnlyOwner(tx); err != nil {
		return err
	}
	if assetID == p.StakingAsset() {
		return ErrCannotRecoverStakingAsset
	}
	token, err := p.tokens.Token(assetID)
	if err != nil {
		return err
	}
	if err := token.Transfer(tx.As(p.address), p.Owner(), amount); err != nil {
		return fmt.Errorf("recover %s: %w", assetID.Hex(), err)
	}
	tx.Emit(model.Event{
		Contract: p.address.Hex(),
		Name:     model.EventRecovered,
		Account:  p.Owner().Hex(),
		Asset:    assetID.Hex(),
		Amount:   amount.String(),
	})
	return nil
}

func (p *Pool) Pause(tx *engine.Tx) error {
	if err := p.state.owner.OnlyOwner(tx); err != nil {
		return err
	}
	if p.state.paused {
		return ErrPaused
	}
	p.state.paused = true
	tx.Emit(model.Event{Contract: p.address.Hex(), Name: model.EventPaused, Account: tx.Sender().Hex()})
	return nil
}

func (p *Pool) Unpause(tx *engine.Tx) error {
	if err := p.state.owner.OnlyOwner(tx); err != nil {
		return err
	}
	if !p.state.paused {
		return ErrNotPaused
	}
	p.state.paused = false
	tx.Emit(model.Event{Contract: p.address.Hex(), Name: model.EventUnpaused, Account: tx.Sender().Hex()})
	return nil
}

// SetHelper replaces the account allowed to stake and withdraw for others.
func (p *Pool) SetHelper(tx *engine.Tx, helper common.Address) error {
	if err := p.state.owner.OnlyOwner(tx); err != nil {
		return err
	}
	p.state.helper = helper
	tx.Emit(model.Event{Contract: p.address.Hex(), Name: model.EventHelperUpdated, Account: helper.Hex()})
	return nil
}

func (p *Pool) TransferOwnership(tx *engine.Tx, newOwner common.Address) error {
	return p.state.owner.TransferOwnership(tx, p.address, newOwner)
}

func (p *Pool) onlyOwnerOrHelper(tx *engine.Tx) error {
	if p.state.helper != (common.Address{}) && tx.Sender() == p.state.helper {
		return nil
	}
	return p.state.owner.OnlyOwner(tx)
}

func (p *Pool) stream(rewardAsset common.Address) (*Stream, error) {
	for _, s := range p.state.streams {
		if s.rewardAsset == rewardAsset {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrRewardAssetNotSupported, rewardAsset.Hex())
}

// checkpoint settles every stream at now, and account when it is non-nil.
func (p *Pool) checkpoint(now uint64, account *common.Address) error {
	var balance *big.Int
	if account != nil {
		balance = fixedpoint.Clone(p.state.balances[*account])
	}
	for _, s := range p.state.streams {
		if err := s.checkpoint(now, p.state.totalStaked, account, balance); err != nil {
			return fmt.Errorf("checkpoint %s: %w", s.rewardAsset.Hex(), err)
		}
	}
	return nil
}
