package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"stakingRewards/internal/chain"
	"stakingRewards/internal/config"
	"stakingRewards/internal/engine"
	"stakingRewards/internal/erc20"
	"stakingRewards/internal/market"
	"stakingRewards/internal/replay"
	"stakingRewards/internal/storage"
	"stakingRewards/internal/storage/postgres"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	input, err := os.Open(cfg.Input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer input.Close()

	startTime := cfg.StartTime
	if startTime == 0 {
		startTime = uint64(time.Now().Unix())
	}
	clock := engine.NewManualClock(startTime)
	registry := prometheus.NewRegistry()
	e := engine.New(engine.Config{Clock: clock, Registry: registry, Logger: logger})

	var rates market.RateReader
	if cfg.RPCURL != "" {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()
		rates = erc20.NewReader(erc20.ReaderConfig{
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
		}, chainClient, logger)
	}

	sinks := []storage.Storage{storage.NewJsonlStorage(cfg.Out)}
	snapshots := make([]storage.SnapshotStore, 0, 2)
	if cfg.StateFile != "" {
		snapshots = append(snapshots, &storage.FileSnapshotStore{Path: cfg.StateFile})
	}

	var progress storage.StateStore
	if cfg.ProgressFile != "" {
		progress = &storage.FileStateStore{Path: cfg.ProgressFile}
	}

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, &storage.DBEventSink{Store: store, Logger: logger})
		snapshots = append(snapshots, store)
		if progress == nil {
			progress = &storage.DBStateStore{Store: store, Name: cfg.StateName}
		}
	}

	world := replay.NewWorld(e, clock, rates)
	runner := replay.NewRunner(replay.RunConfig{StopOnError: cfg.StopOnError}, world, sinks, progress, logger)

	logger.Info("replay start",
		zap.String("in", cfg.Input),
		zap.String("out", cfg.Out),
		zap.Uint64("start_time", startTime),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.Bool("rpc", rates != nil),
		zap.Bool("stop_on_error", cfg.StopOnError),
	)

	res, runErr := runner.Run(ctx, input)
	if res.Failed > 0 {
		logger.Warn("operations rejected", zap.Int("failed", res.Failed))
	}

	snapshot := world.Snapshot()
	for _, store := range snapshots {
		if err := store.SaveSnapshot(ctx, snapshot); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
	}
	logger.Info("snapshot saved", zap.Int("pools", len(snapshot.Pools)), zap.Int("targets", len(snapshots)))

	if cfg.MetricsOut != "" {
		if err := writeMetrics(cfg.MetricsOut, registry); err != nil {
			return err
		}
	}
	return runErr
}

func writeMetrics(path string, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create metrics file: %w", err)
	}
	defer file.Close()
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(file, mf); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
