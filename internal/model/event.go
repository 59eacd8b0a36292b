package model

// Event names emitted by the ledger components.
const (
	EventStaked                 = "Staked"
	EventWithdrawn              = "Withdrawn"
	EventRewardPaid             = "RewardPaid"
	EventRewardAdded            = "RewardAdded"
	EventRewardAssetAdded       = "RewardAssetAdded"
	EventRewardsDurationUpdated = "RewardsDurationUpdated"
	EventRecovered              = "Recovered"
	EventPaused                 = "Paused"
	EventUnpaused               = "Unpaused"
	EventHelperUpdated          = "HelperUpdated"
	EventOwnershipTransferred   = "OwnershipTransferred"
	EventPoolCreated            = "PoolCreated"
	EventPoolRemoved            = "PoolRemoved"
	EventSeized                 = "Seized"
	EventTransfer               = "Transfer"
	EventApproval               = "Approval"
	EventMint                   = "Mint"
	EventRedeem                 = "Redeem"
)

// Event is a committed ledger event. Amounts are base-10 strings.
type Event struct {
	Seq      uint64            `json:"seq"`
	Time     uint64            `json:"time"`
	Op       string            `json:"op"`
	Contract string            `json:"contract"`
	Name     string            `json:"name"`
	Account  string            `json:"account,omitempty"`
	Asset    string            `json:"asset,omitempty"`
	Amount   string            `json:"amount,omitempty"`
	Data     map[string]string `json:"data,omitempty"`
}
