package model

import "math/big"

// StakedBalance is a user's balance in one pool.
type StakedBalance struct {
	StakingAsset string   `json:"staking_asset"`
	Balance      *big.Int `json:"balance"`
}

// ClaimableReward is the amount of one reward asset claimable across all pools.
type ClaimableReward struct {
	RewardToken TokenMeta `json:"reward_token"`
	Amount      *big.Int  `json:"amount"`
}

// RewardRate is the current emission rate of one stream.
type RewardRate struct {
	RewardAsset string   `json:"reward_asset"`
	Rate        *big.Int `json:"rate"`
}

// StakingInfo summarizes one pool with its share market.
type StakingInfo struct {
	StakingAsset            string       `json:"staking_asset"`
	TotalSupplyInUnderlying *big.Int     `json:"total_supply_in_underlying"`
	SupplyRatePerPeriod     *big.Int     `json:"supply_rate_per_period"`
	ExchangeRate            *big.Int     `json:"exchange_rate"`
	RewardRates             []RewardRate `json:"reward_rates"`
}
