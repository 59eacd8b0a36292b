package model

// PoolRecord is the persisted layout of one reward pool.
type PoolRecord struct {
	Address      string          `json:"address"`
	StakingAsset string          `json:"staking_asset"`
	Owner        string          `json:"owner"`
	Helper       string          `json:"helper,omitempty"`
	Paused       bool            `json:"paused"`
	TotalStaked  string          `json:"total_staked"`
	Balances     []BalanceRecord `json:"balances"`
	Streams      []StreamRecord  `json:"streams"`
}

// BalanceRecord is one staker position.
type BalanceRecord struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

// StreamRecord is the accrual state for one reward asset within a pool.
type StreamRecord struct {
	RewardAsset          string                `json:"reward_asset"`
	RewardRate           string                `json:"reward_rate"`
	Duration             uint64                `json:"duration"`
	PeriodFinish         uint64                `json:"period_finish"`
	LastUpdateTime       uint64                `json:"last_update_time"`
	RewardPerStakeStored string                `json:"reward_per_stake_stored"`
	Accounts             []StreamAccountRecord `json:"accounts"`
}

// StreamAccountRecord holds a staker's settlement checkpoint and unpaid rewards.
type StreamAccountRecord struct {
	Account        string `json:"account"`
	PaidCheckpoint string `json:"paid_checkpoint"`
	Accrued        string `json:"accrued"`
}

// RegistryRecord is the persisted registry index, in creation order.
type RegistryRecord struct {
	Address string              `json:"address"`
	Owner   string              `json:"owner"`
	Pools   []RegistryPoolEntry `json:"pools"`
}

// RegistryPoolEntry maps a staking asset to its pool.
type RegistryPoolEntry struct {
	Position     int    `json:"position"`
	StakingAsset string `json:"staking_asset"`
	Pool         string `json:"pool"`
}

// Snapshot is the full persisted ledger state.
type Snapshot struct {
	Time     uint64         `json:"time"`
	Registry RegistryRecord `json:"registry"`
	Pools    []PoolRecord   `json:"pools"`
}
