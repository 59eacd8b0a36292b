package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func replayFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("replay", pflag.ContinueOnError)
	flags.String("in", "", "")
	flags.String("out", "", "")
	flags.String("start-time", "", "")
	flags.Bool("stop-on-error", false, "")
	return flags
}

func TestLoadReplayFlagsAndDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	flags := replayFlags()
	if err := flags.Parse([]string{"--in", "scenario.jsonl", "--start-time", "100000", "--stop-on-error"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadReplay("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Input != "scenario.jsonl" || cfg.StartTime != 100000 || !cfg.StopOnError {
		t.Fatalf("flags not applied: %+v", cfg)
	}
	if cfg.StateName != "replay" || cfg.MaxRetries != 5 || cfg.RetryBackoff != 500*time.Millisecond || cfg.LogLevel != "info" {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
}

func TestLoadReplayEnvAndFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	path := filepath.Join(dir, "rewards.yaml")
	if err := os.WriteFile(path, []byte("in: from-file.jsonl\nstate-name: nightly\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("REWARDS_PG_DSN", "postgres://localhost/rewards")

	cfg, err := LoadReplay(path, replayFlags())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Input != "from-file.jsonl" || cfg.StateName != "nightly" {
		t.Fatalf("config file not applied: %+v", cfg)
	}
	if cfg.PGDSN != "postgres://localhost/rewards" {
		t.Fatalf("env not applied: %q", cfg.PGDSN)
	}
}

func TestLoadReplayRequiresInput(t *testing.T) {
	chdir(t, t.TempDir())
	if _, err := LoadReplay("", replayFlags()); err == nil {
		t.Fatalf("expected error without input")
	}
}

func TestLoadMarketSplitsList(t *testing.T) {
	chdir(t, t.TempDir())
	flags := pflag.NewFlagSet("market", pflag.ContinueOnError)
	flags.String("rpc", "", "")
	flags.StringSlice("market", nil, "")
	if err := flags.Parse([]string{"--rpc", "http://localhost:8545", "--market", "0x01, 0x02"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	cfg, err := LoadMarket("", flags)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Markets) != 2 || cfg.Markets[1] != "0x02" {
		t.Fatalf("markets mismatch: %v", cfg.Markets)
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		input string
		want  uint64
		err   bool
	}{
		{input: "", want: 0},
		{input: "100000", want: 100000},
		{input: "1970-01-02T00:00:00Z", want: 86400},
		{input: "yesterday", err: true},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.input)
		if tt.err {
			if err == nil {
				t.Fatalf("%q: expected error", tt.input)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("%q: got %d err %v", tt.input, got, err)
		}
	}
}
