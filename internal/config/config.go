package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "REWARDS"

// ReplayConfig holds settings for replaying a scenario through the ledger.
type ReplayConfig struct {
	Input        string
	Out          string
	StateFile    string
	ProgressFile string
	StateName    string
	PGDSN        string
	RPCURL       string
	StartTime    uint64
	StopOnError  bool
	MaxRetries   int
	RetryBackoff time.Duration
	MetricsOut   string
	LogLevel     string
}

// MarketConfig holds settings for reading live share markets.
type MarketConfig struct {
	RPCURL       string
	Markets      []string
	Block        uint64
	Out          string
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := load(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("out", "./data/events.jsonl")
		v.SetDefault("state-name", "replay")
		v.SetDefault("max-retries", 5)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	start, err := ParseTimestamp(v.GetString("start-time"))
	if err != nil {
		return ReplayConfig{}, fmt.Errorf("parse start-time: %w", err)
	}

	cfg := ReplayConfig{
		Input:        v.GetString("in"),
		Out:          v.GetString("out"),
		StateFile:    v.GetString("state-file"),
		ProgressFile: v.GetString("progress-file"),
		StateName:    v.GetString("state-name"),
		PGDSN:        v.GetString("pg-dsn"),
		RPCURL:       v.GetString("rpc"),
		StartTime:    start,
		StopOnError:  v.GetBool("stop-on-error"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		MetricsOut:   v.GetString("metrics-out"),
		LogLevel:     v.GetString("log-level"),
	}
	if cfg.Input == "" {
		return ReplayConfig{}, fmt.Errorf("input scenario is required")
	}
	return cfg, nil
}

// LoadMarket merges config file, environment variables, and flags into MarketConfig.
func LoadMarket(cfgFile string, flags *pflag.FlagSet) (MarketConfig, error) {
	v, err := load(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("max-retries", 5)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
	})
	if err != nil {
		return MarketConfig{}, err
	}

	cfg := MarketConfig{
		RPCURL:       v.GetString("rpc"),
		Markets:      getStringSlice(v, "market"),
		Block:        v.GetUint64("block"),
		Out:          v.GetString("out"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}
	if cfg.RPCURL == "" {
		return MarketConfig{}, fmt.Errorf("rpc url is required")
	}
	if len(cfg.Markets) == 0 {
		return MarketConfig{}, fmt.Errorf("at least one market is required")
	}
	return cfg, nil
}

func load(cfgFile string, flags *pflag.FlagSet, defaults func(v *viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	if defaults != nil {
		defaults(v)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}

	if isNumeric(input) {
		return strconv.ParseUint(input, 10, 64)
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return uint64(tm.Unix()), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		if len(typed) == 1 {
			return splitAndClean(typed[0])
		}
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
