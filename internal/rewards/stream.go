package rewards

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"stakingRewards/internal/fixedpoint"
)

// Stream accrues one reward asset to the stakers of a pool.
type Stream struct {
	rewardAsset          common.Address
	rewardRate           *big.Int
	duration             uint64
	periodFinish         uint64
	lastUpdateTime       uint64
	rewardPerStakeStored *big.Int
	paid                 map[common.Address]*big.Int
	accrued              map[common.Address]*big.Int
}

// StreamInfo is a read-only copy of a stream's schedule.
type StreamInfo struct {
	RewardAsset          common.Address
	RewardRate           *big.Int
	Duration             uint64
	PeriodFinish         uint64
	LastUpdateTime       uint64
	RewardPerStakeStored *big.Int
}

func newStream(rewardAsset common.Address, duration uint64) *Stream {
	return &Stream{
		rewardAsset:          rewardAsset,
		rewardRate:           new(big.Int),
		duration:             duration,
		rewardPerStakeStored: new(big.Int),
		paid:                 make(map[common.Address]*big.Int),
		accrued:              make(map[common.Address]*big.Int),
	}
}

func (s *Stream) info() StreamInfo {
	return StreamInfo{
		RewardAsset:          s.rewardAsset,
		RewardRate:           fixedpoint.Clone(s.rewardRate),
		Duration:             s.duration,
		PeriodFinish:         s.periodFinish,
		LastUpdateTime:       s.lastUpdateTime,
		RewardPerStakeStored: fixedpoint.Clone(s.rewardPerStakeStored),
	}
}

func (s *Stream) lastTimeRewardApplicable(now uint64) uint64 {
	return fixedpoint.Min(now, s.periodFinish)
}

// rewardPerStake projects the accumulator to now without storing it.
func (s *Stream) rewardPerStake(now uint64, totalStaked *big.Int) (*big.Int, error) {
	if totalStaked.Sign() == 0 {
		return s.rewardPerStakeStored, nil
	}
	effective := s.lastTimeRewardApplicable(now)
	if effective <= s.lastUpdateTime {
		return s.rewardPerStakeStored, nil
	}
	elapsed := new(big.Int).SetUint64(effective - s.lastUpdateTime)
	delta, err := fixedpoint.MulMulDiv(elapsed, s.rewardRate, fixedpoint.ScaleBig(), totalStaked)
	if err != nil {
		return nil, err
	}
	return fixedpoint.Add(s.rewardPerStakeStored, delta)
}

// earned is the amount owed to account given the projected accumulator.
func (s *Stream) earned(account common.Address, balance, rewardPerStake *big.Int) (*big.Int, error) {
	pending, err := fixedpoint.Sub(rewardPerStake, fixedpoint.Clone(s.paid[account]))
	if err != nil {
		return nil, err
	}
	owed, err := fixedpoint.MulDiv(balance, pending, fixedpoint.ScaleBig())
	if err != nil {
		return nil, err
	}
	return fixedpoint.Add(fixedpoint.Clone(s.accrued[account]), owed)
}

// checkpoint brings the accumulator up to now and, when account is non-nil,
// settles that account against it.
func (s *Stream) checkpoint(now uint64, totalStaked *big.Int, account *common.Address, balance *big.Int) error {
	rps, err := s.rewardPerStake(now, totalStaked)
	if err != nil {
		return err
	}
	s.rewardPerStakeStored = rps
	if effective := s.lastTimeRewardApplicable(now); effective > s.lastUpdateTime {
		s.lastUpdateTime = effective
	}
	if account == nil {
		return nil
	}
	owed, err := s.earned(*account, balance, rps)
	if err != nil {
		return err
	}
	s.setAccrued(*account, owed)
	s.paid[*account] = rps
	return nil
}

func (s *Stream) setAccrued(account common.Address, amount *big.Int) {
	if amount.Sign() == 0 {
		delete(s.accrued, account)
		return
	}
	s.accrued[account] = amount
}

// notify starts a new period funded with amount, rolling over what is left
// of the current one.
func (s *Stream) notify(now uint64, amount *big.Int) error {
	duration := new(big.Int).SetUint64(s.duration)
	funded := amount
	if now < s.periodFinish {
		remaining := new(big.Int).SetUint64(s.periodFinish - now)
		leftover, err := fixedpoint.Mul(remaining, s.rewardRate)
		if err != nil {
			return err
		}
		if funded, err = fixedpoint.Add(amount, leftover); err != nil {
			return err
		}
	}
	rate, err := fixedpoint.Div(funded, duration)
	if err != nil {
		return err
	}
	s.rewardRate = rate
	s.lastUpdateTime = now
	s.periodFinish = now + s.duration
	return nil
}

func (s *Stream) clone() *Stream {
	out := *s
	out.paid = make(map[common.Address]*big.Int, len(s.paid))
	for k, v := range s.paid {
		out.paid[k] = v
	}
	out.accrued = make(map[common.Address]*big.Int, len(s.accrued))
	for k, v := range s.accrued {
		out.accrued[k] = v
	}
	return &out
}
