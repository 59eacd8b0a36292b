package replay

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"stakingRewards/internal/asset"
	"stakingRewards/internal/engine"
	"stakingRewards/internal/fixedpoint"
	"stakingRewards/internal/market"
	"stakingRewards/internal/model"
	"stakingRewards/internal/rewards"
)

const defaultDecimals = 18

// Apply executes one scenario operation. Deployments happen outside of any
// call; every other operation runs as a single engine call.
func (w *World) Apply(ctx context.Context, op model.Operation) error {
	switch op.Op {
	case "token":
		_, err := w.deployToken(op.Name, decimals(op.Decimals))
		return err
	case "wrapped_native":
		name := op.Name
		if name == "" {
			name = "W" + NativeSymbol
		}
		_, err := w.deployWrappedNative(name)
		return err
	case "market":
		return w.applyMarket(ctx, op)
	case "fund_native":
		amount, err := parseAmount(op.Amount)
		if err != nil {
			return err
		}
		return w.native.Fund(w.Address(op.To), amount)
	}

	from := w.sender(op)
	call := func(to common.Address, value *big.Int, fn func(tx *engine.Tx) error) error {
		return w.engine.Execute(ctx, op.Op, engine.Msg{From: from, To: to, Value: value}, fn)
	}

	switch op.Op {
	case "mint":
		ledger, ok := w.ledgers[op.Token]
		if !ok {
			return fmt.Errorf("%w: mintable token %q", ErrUnknownName, op.Token)
		}
		amount, err := parseAmount(op.Amount)
		if err != nil {
			return err
		}
		return call(ledger.Address(), nil, func(tx *engine.Tx) error {
			return ledger.Mint(tx, w.Address(op.To), amount)
		})
	case "transfer":
		token, amount, err := w.tokenAmount(op)
		if err != nil {
			return err
		}
		to, err := w.recipient(op)
		if err != nil {
			return err
		}
		return call(token.Address(), nil, func(tx *engine.Tx) error {
			return token.Transfer(tx, to, amount)
		})
	case "approve":
		token, err := w.Token(op.Token)
		if err != nil {
			return err
		}
		amount := asset.MaxAllowance
		if op.Amount != "max" {
			if amount, err = parseAmount(op.Amount); err != nil {
				return err
			}
		}
		spender, err := w.recipient(op)
		if err != nil {
			return err
		}
		return call(token.Address(), nil, func(tx *engine.Tx) error {
			return token.Approve(tx, spender, amount)
		})
	case "set_rates":
		m, ok := w.markets[op.Token]
		if !ok {
			return fmt.Errorf("%w: market %q", ErrUnknownName, op.Token)
		}
		exchangeRate, err := optionalAmount(op.Rate)
		if err != nil {
			return err
		}
		supplyRate, err := optionalAmount(op.SupplyRate)
		if err != nil {
			return err
		}
		return call(m.Address(), nil, func(tx *engine.Tx) error {
			return m.SetRates(tx, exchangeRate, supplyRate)
		})
	case "sync_rates":
		m, ok := w.markets[op.Token]
		if !ok {
			return fmt.Errorf("%w: market %q", ErrUnknownName, op.Token)
		}
		return w.syncRates(ctx, m, op.Source)
	case "create_pools":
		assets, err := w.assetAddresses(op.Assets)
		if err != nil {
			return err
		}
		helper := w.gatewayAddress
		if op.To != "" {
			helper = w.Address(op.To)
		}
		return call(w.registry.Address(), nil, func(tx *engine.Tx) error {
			_, err := w.registry.CreatePools(tx, assets, helper)
			return err
		})
	case "remove_pool":
		stakingAsset, err := w.assetAddress(firstNonEmpty(op.Pool, op.Token))
		if err != nil {
			return err
		}
		return call(w.registry.Address(), nil, func(tx *engine.Tx) error {
			return w.registry.RemovePool(tx, stakingAsset)
		})
	}

	if strings.HasPrefix(op.Op, "pool_") || isPoolOp(op.Op) {
		pool, err := w.Pool(op.Pool)
		if err != nil {
			return err
		}
		return call(pool.Address(), nil, func(tx *engine.Tx) error {
			return w.applyPool(tx, pool, op)
		})
	}

	// Registry and pool admin lines must not deploy the gateway, or a later
	// wrapped_native line would be rejected.
	switch {
	case op.Op == "seize" && op.To == registryName:
		assetID, amount, err := w.assetAmount(op)
		if err != nil {
			return err
		}
		return call(w.registry.Address(), nil, func(tx *engine.Tx) error {
			return w.registry.Seize(tx, assetID, amount)
		})
	case op.Op == "transfer_ownership" && op.Pool != "":
		pool, err := w.Pool(op.Pool)
		if err != nil {
			return err
		}
		return call(pool.Address(), nil, func(tx *engine.Tx) error {
			return pool.TransferOwnership(tx, w.Address(op.To))
		})
	case op.Op == "transfer_ownership" && op.Name == registryName:
		return call(w.registry.Address(), nil, func(tx *engine.Tx) error {
			return w.registry.TransferOwnership(tx, w.Address(op.To))
		})
	case !isGatewayOp(op.Op):
		return fmt.Errorf("%w: unknown op %q", ErrInvalidOperation, op.Op)
	}

	gw := w.Gateway()
	switch op.Op {
	case "stake":
		underlying, err := w.assetAddress(op.Token)
		if err != nil {
			return err
		}
		amount, err := parseAmount(op.Amount)
		if err != nil {
			return err
		}
		return call(gw.Address(), nil, func(tx *engine.Tx) error {
			_, err := gw.Stake(tx, underlying, amount)
			return err
		})
	case "stake_native":
		amount, err := parseAmount(op.Amount)
		if err != nil {
			return err
		}
		value := amount
		if op.Value != "" {
			if value, err = parseAmount(op.Value); err != nil {
				return err
			}
		}
		return call(gw.Address(), value, func(tx *engine.Tx) error {
			_, err := gw.StakeNative(tx, amount)
			return err
		})
	case "unstake":
		pool, err := w.Pool(op.Pool)
		if err != nil {
			return err
		}
		shares, err := parseAmount(op.Amount)
		if err != nil {
			return err
		}
		return call(gw.Address(), nil, func(tx *engine.Tx) error {
			_, err := gw.Unstake(tx, pool.Address(), shares, op.Native)
			return err
		})
	case "claim":
		pools, err := w.pools(op.Pools)
		if err != nil {
			return err
		}
		return call(gw.Address(), nil, func(tx *engine.Tx) error {
			return gw.ClaimRewards(tx, pools)
		})
	case "claim_all":
		return call(gw.Address(), nil, gw.ClaimAllRewards)
	case "exit":
		pools, err := w.pools(op.Pools)
		if err != nil {
			return err
		}
		return call(gw.Address(), nil, func(tx *engine.Tx) error {
			return gw.Exit(tx, pools, op.Native)
		})
	case "exit_all":
		return call(gw.Address(), nil, func(tx *engine.Tx) error {
			return gw.ExitAll(tx, op.Native)
		})
	case "seize":
		assetID, amount, err := w.assetAmount(op)
		if err != nil {
			return err
		}
		return call(gw.Address(), nil, func(tx *engine.Tx) error {
			return gw.Seize(tx, assetID, amount)
		})
	case "transfer_ownership":
		return call(gw.Address(), nil, func(tx *engine.Tx) error {
			return gw.TransferOwnership(tx, w.Address(op.To))
		})
	}

	return fmt.Errorf("%w: unknown op %q", ErrInvalidOperation, op.Op)
}

func isGatewayOp(name string) bool {
	switch name {
	case "stake", "stake_native", "unstake", "claim", "claim_all", "exit", "exit_all", "seize", "transfer_ownership":
		return true
	}
	return false
}

func isPoolOp(name string) bool {
	switch name {
	case "add_reward", "notify", "set_duration", "pause", "unpause", "recover", "get_reward", "set_helper":
		return true
	}
	return false
}

func (w *World) applyPool(tx *engine.Tx, pool *rewards.Pool, op model.Operation) error {
	switch op.Op {
	case "pool_stake":
		amount, err := parseAmount(op.Amount)
		if err != nil {
			return err
		}
		return pool.Stake(tx, amount)
	case "pool_withdraw":
		amount, err := parseAmount(op.Amount)
		if err != nil {
			return err
		}
		return pool.Withdraw(tx, amount)
	case "get_reward":
		account := tx.Sender()
		if op.To != "" {
			account = w.Address(op.To)
		}
		return pool.GetReward(tx, account)
	case "add_reward":
		rewardAsset, err := w.assetAddress(op.Token)
		if err != nil {
			return err
		}
		return pool.AddRewardsToken(tx, rewardAsset, op.Duration)
	case "notify":
		rewardAsset, amount, err := w.assetAmount(op)
		if err != nil {
			return err
		}
		return pool.NotifyRewardAmount(tx, rewardAsset, amount)
	case "set_duration":
		rewardAsset, err := w.assetAddress(op.Token)
		if err != nil {
			return err
		}
		return pool.SetRewardsDuration(tx, rewardAsset, op.Duration)
	case "pause":
		return pool.Pause(tx)
	case "unpause":
		return pool.Unpause(tx)
	case "recover":
		assetID, amount, err := w.assetAmount(op)
		if err != nil {
			return err
		}
		return pool.RecoverToken(tx, assetID, amount)
	case "set_helper":
		return pool.SetHelper(tx, w.Address(op.To))
	}
	return fmt.Errorf("%w: unknown pool op %q", ErrInvalidOperation, op.Op)
}

func (w *World) applyMarket(ctx context.Context, op model.Operation) error {
	exchangeRate, err := optionalAmount(op.Rate)
	if err != nil {
		return err
	}
	m, err := w.deployMarket(op.Name, op.Underlying, decimals(op.Decimals), exchangeRate)
	if err != nil {
		return err
	}
	if op.Source == "" {
		return nil
	}
	return w.syncRates(ctx, m, op.Source)
}

func (w *World) syncRates(ctx context.Context, m *market.ShareMarket, source string) error {
	if w.rates == nil {
		return ErrNoRateReader
	}
	if !common.IsHexAddress(source) {
		return fmt.Errorf("%w: source %q is not an address", ErrInvalidOperation, source)
	}
	_, err := market.SyncRates(ctx, w.engine, m, w.rates, common.HexToAddress(source))
	return err
}

// recipient is the pool named by op.Pool, or op.To otherwise.
func (w *World) recipient(op model.Operation) (common.Address, error) {
	if op.Pool == "" {
		return w.Address(op.To), nil
	}
	pool, err := w.Pool(op.Pool)
	if err != nil {
		return common.Address{}, err
	}
	return pool.Address(), nil
}

// sender defaults to the admin so setup lines can omit it.
func (w *World) sender(op model.Operation) common.Address {
	if op.From == "" {
		return w.admin
	}
	return w.Address(op.From)
}

func (w *World) tokenAmount(op model.Operation) (asset.Token, *big.Int, error) {
	token, err := w.Token(op.Token)
	if err != nil {
		return nil, nil, err
	}
	amount, err := parseAmount(op.Amount)
	if err != nil {
		return nil, nil, err
	}
	return token, amount, nil
}

func (w *World) assetAmount(op model.Operation) (common.Address, *big.Int, error) {
	addr, err := w.assetAddress(op.Token)
	if err != nil {
		return common.Address{}, nil, err
	}
	amount, err := parseAmount(op.Amount)
	if err != nil {
		return common.Address{}, nil, err
	}
	return addr, amount, nil
}

func parseAmount(input string) (*big.Int, error) {
	amount, ok := fixedpoint.ParseAmount(strings.TrimSpace(input))
	if !ok {
		return nil, fmt.Errorf("%w: amount %q", ErrInvalidOperation, input)
	}
	return amount, nil
}

// optionalAmount returns nil for an empty input.
func optionalAmount(input string) (*big.Int, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	return parseAmount(input)
}

func decimals(value uint8) uint8 {
	if value == 0 {
		return defaultDecimals
	}
	return value
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
