package gateway

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"stakingRewards/internal/model"
	"stakingRewards/internal/rewards"
)

// UserStaked lists the account's balance in every live pool, in registry order.
func (g *Gateway) UserStaked(account common.Address) []model.StakedBalance {
	pools := g.registry.Pools()
	out := make([]model.StakedBalance, 0, len(pools))
	for _, pool := range pools {
		out = append(out, model.StakedBalance{
			StakingAsset: pool.StakingAsset().Hex(),
			Balance:      pool.BalanceOf(account),
		})
	}
	return out
}

// UserClaimableRewards sums what account can claim of each reward asset
// across all pools. Every requested asset is returned, zero when nothing
// is claimable.
func (g *Gateway) UserClaimableRewards(account common.Address, rewardAssets []common.Address) ([]model.ClaimableReward, error) {
	pools := g.registry.Pools()
	out := make([]model.ClaimableReward, 0, len(rewardAssets))
	for _, rewardAsset := range rewardAssets {
		meta, err := g.RewardTokenInfo(rewardAsset)
		if err != nil {
			return nil, err
		}
		total := new(big.Int)
		for _, pool := range pools {
			earned, err := pool.Earned(rewardAsset, account)
			if errors.Is(err, rewards.ErrRewardAssetNotSupported) {
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("earned %s: %w", pool.Address().Hex(), err)
			}
			total.Add(total, earned)
		}
		out = append(out, model.ClaimableReward{RewardToken: meta, Amount: total})
	}
	return out, nil
}

// RewardTokenInfo returns the metadata of a reward asset.
func (g *Gateway) RewardTokenInfo(rewardAsset common.Address) (model.TokenMeta, error) {
	token, err := g.tokens.Token(rewardAsset)
	if err != nil {
		return model.TokenMeta{}, err
	}
	return token.Meta(), nil
}

// StakingInfo summarizes every live pool with its market rates. The total
// supply is the pool's staked share supply. Pools staking a plain token
// report zero rates.
func (g *Gateway) StakingInfo() ([]model.StakingInfo, error) {
	pools := g.registry.Pools()
	out := make([]model.StakingInfo, 0, len(pools))
	for _, pool := range pools {
		info := model.StakingInfo{
			StakingAsset:            pool.StakingAsset().Hex(),
			TotalSupplyInUnderlying: pool.TotalStaked(),
			SupplyRatePerPeriod:     new(big.Int),
			ExchangeRate:            new(big.Int),
		}
		if target, err := g.withMarket(pool); err == nil {
			info.SupplyRatePerPeriod = target.market.SupplyRatePerPeriod()
			info.ExchangeRate = target.market.ExchangeRate()
		} else if !errors.Is(err, ErrUnsupportedAsset) {
			return nil, err
		}
		for _, rewardAsset := range pool.RewardAssets() {
			stream, err := pool.Stream(rewardAsset)
			if err != nil {
				return nil, err
			}
			info.RewardRates = append(info.RewardRates, model.RewardRate{
				RewardAsset: rewardAsset.Hex(),
				Rate:        stream.RewardRate,
			})
		}
		out = append(out, info)
	}
	return out, nil
}
