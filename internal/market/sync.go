package market

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"stakingRewards/internal/engine"
	"stakingRewards/internal/model"
)

// RateReader reads live share-market rates, e.g. from a chain RPC.
type RateReader interface {
	MarketRates(ctx context.Context, market common.Address) (model.MarketRates, error)
}

// SyncRates copies the live rates of source onto m through an admin call.
func SyncRates(ctx context.Context, e *engine.Engine, m *ShareMarket, reader RateReader, source common.Address) (model.MarketRates, error) {
	rates, err := reader.MarketRates(ctx, source)
	if err != nil {
		return model.MarketRates{}, fmt.Errorf("read rates %s: %w", source.Hex(), err)
	}
	exchangeRate, ok := new(big.Int).SetString(rates.ExchangeRate, 10)
	if !ok {
		return model.MarketRates{}, fmt.Errorf("invalid exchange rate: %s", rates.ExchangeRate)
	}
	supplyRate, ok := new(big.Int).SetString(rates.SupplyRatePerPeriod, 10)
	if !ok {
		return model.MarketRates{}, fmt.Errorf("invalid supply rate: %s", rates.SupplyRatePerPeriod)
	}

	err = e.Execute(ctx, "sync_rates", engine.Msg{From: m.Owner()}, func(tx *engine.Tx) error {
		return m.SetRates(tx, exchangeRate, supplyRate)
	})
	if err != nil {
		return model.MarketRates{}, err
	}
	return rates, nil
}
