package model

// Operation is one replayable ledger call read from a JSONL scenario.
// Tokens, markets, pools and accounts are referenced by name or hex address.
type Operation struct {
	Line       int      `json:"-"`
	Time       uint64   `json:"time,omitempty"`
	Advance    uint64   `json:"advance,omitempty"`
	Op         string   `json:"op"`
	From       string   `json:"from,omitempty"`
	To         string   `json:"to,omitempty"`
	Name       string   `json:"name,omitempty"`
	Decimals   uint8    `json:"decimals,omitempty"`
	Token      string   `json:"token,omitempty"`
	Underlying string   `json:"underlying,omitempty"`
	Pool       string   `json:"pool,omitempty"`
	Pools      []string `json:"pools,omitempty"`
	Assets     []string `json:"assets,omitempty"`
	Amount     string   `json:"amount,omitempty"`
	Value      string   `json:"value,omitempty"`
	Duration   uint64   `json:"duration,omitempty"`
	Rate       string   `json:"rate,omitempty"`
	SupplyRate string   `json:"supply_rate,omitempty"`
	Native     bool     `json:"native,omitempty"`
	Source     string   `json:"source,omitempty"`
}

// OperationError records a rejected operation.
type OperationError struct {
	Line  int    `json:"line"`
	Op    string `json:"op"`
	From  string `json:"from,omitempty"`
	Time  uint64 `json:"time"`
	Error string `json:"error"`
}
