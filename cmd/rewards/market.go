package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stakingRewards/internal/chain"
	"stakingRewards/internal/config"
	"stakingRewards/internal/erc20"
	"stakingRewards/internal/model"
)

type marketReport struct {
	Rates      model.MarketRates `json:"rates"`
	Market     model.TokenMeta   `json:"market"`
	Underlying model.TokenMeta   `json:"underlying"`
}

func runMarket(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadMarket(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	markets := make([]common.Address, 0, len(cfg.Markets))
	for _, input := range cfg.Markets {
		if !common.IsHexAddress(input) {
			return fmt.Errorf("invalid market address: %s", input)
		}
		markets = append(markets, common.HexToAddress(input))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	chainID, err := chainClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}

	block := cfg.Block
	if block == 0 {
		if block, err = chainClient.LatestBlockNumber(ctx); err != nil {
			return fmt.Errorf("get latest block: %w", err)
		}
	}

	blockTime, err := chainClient.BlockTimestamp(ctx, block)
	if err != nil {
		return fmt.Errorf("block timestamp %d: %w", block, err)
	}

	reader := erc20.NewReader(erc20.ReaderConfig{
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
		BlockNumber:  block,
	}, chainClient, logger)

	var out *json.Encoder
	if cfg.Out != "" {
		file, err := os.Create(cfg.Out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer file.Close()
		out = json.NewEncoder(file)
	}

	logger.Info("market read start", zap.String("chain_id", chainID.String()), zap.Uint64("block", block), zap.Uint64("block_time", blockTime), zap.Int("markets", len(markets)))

	for _, address := range markets {
		report, err := readMarket(ctx, reader, address)
		if err != nil {
			return err
		}
		logger.Info("market",
			zap.String("market", address.Hex()),
			zap.String("symbol", report.Market.Symbol),
			zap.String("underlying", report.Rates.Underlying),
			zap.String("underlying_symbol", report.Underlying.Symbol),
			zap.String("exchange_rate", report.Rates.ExchangeRate),
			zap.String("supply_rate", report.Rates.SupplyRatePerPeriod),
		)
		if out != nil {
			if err := out.Encode(report); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
		}
	}
	return nil
}

func readMarket(ctx context.Context, reader *erc20.Reader, address common.Address) (marketReport, error) {
	rates, err := reader.MarketRates(ctx, address)
	if err != nil {
		return marketReport{}, fmt.Errorf("market rates %s: %w", address.Hex(), err)
	}
	meta, err := reader.TokenMeta(ctx, address)
	if err != nil {
		return marketReport{}, fmt.Errorf("market metadata %s: %w", address.Hex(), err)
	}
	report := marketReport{Rates: rates, Market: meta}
	if common.IsHexAddress(rates.Underlying) {
		underlying, err := reader.TokenMeta(ctx, common.HexToAddress(rates.Underlying))
		if err != nil {
			return marketReport{}, fmt.Errorf("underlying metadata %s: %w", rates.Underlying, err)
		}
		report.Underlying = underlying
	}
	return report, nil
}
