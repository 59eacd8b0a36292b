package model

// MarketRates are the live conversion figures of a share market.
type MarketRates struct {
	Market              string `json:"market"`
	Underlying          string `json:"underlying,omitempty"`
	ExchangeRate        string `json:"exchange_rate"`
	SupplyRatePerPeriod string `json:"supply_rate_per_period"`
	BlockNumber         uint64 `json:"block_number"`
}
