package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "rewards",
		Short:        "Multi-reward staking ledger",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay a scenario of ledger operations",
		RunE:  runReplay,
	}

	replayCmd.Flags().String("in", "", "input operations JSONL")
	replayCmd.Flags().String("out", "./data/events.jsonl", "output events JSONL")
	replayCmd.Flags().String("state-file", "", "optional JSON snapshot of the final ledger state")
	replayCmd.Flags().String("progress-file", "", "optional local file for replay progress tracking")
	replayCmd.Flags().String("state-name", "replay", "progress key when tracking in Postgres")
	replayCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for events, state and progress")
	replayCmd.Flags().String("rpc", "", "RPC URL used to seed markets that name a source")
	replayCmd.Flags().String("start-time", "", "initial ledger time (unix seconds or RFC3339), default now")
	replayCmd.Flags().Bool("stop-on-error", false, "abort on the first rejected operation")
	replayCmd.Flags().Int("max-retries", 5, "maximum retry attempts for RPC reads")
	replayCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	replayCmd.Flags().String("metrics-out", "", "optional path for a Prometheus text dump of engine metrics")
	replayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(replayCmd)

	marketCmd := &cobra.Command{
		Use:   "market",
		Short: "Read live share-market rates and token metadata",
		RunE:  runMarket,
	}

	marketCmd.Flags().String("rpc", "", "RPC URL")
	marketCmd.Flags().StringSlice("market", nil, "share market addresses (comma-separated)")
	marketCmd.Flags().Uint64("block", 0, "block number to read at, 0 means latest")
	marketCmd.Flags().String("out", "", "optional output JSONL of market rates")
	marketCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	marketCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	marketCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(marketCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
