// Package erc20 reads token metadata and share-market rates over eth_call.
package erc20

import (
	"bytes"
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"stakingRewards/internal/model"
)

// Caller is the subset of the chain client the reader needs.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// TokenMetaCache caches token metadata by address.
type TokenMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.TokenMeta
}

func NewTokenMetaCache() *TokenMetaCache {
	return &TokenMetaCache{data: make(map[common.Address]model.TokenMeta)}
}

func (c *TokenMetaCache) Get(address common.Address) (model.TokenMeta, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *TokenMetaCache) Set(address common.Address, meta model.TokenMeta) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// ReaderConfig controls retries of failed calls.
type ReaderConfig struct {
	MaxRetries   int
	RetryBackoff time.Duration
	// BlockNumber pins reads to a block; zero reads latest.
	BlockNumber uint64
}

// Reader fetches token metadata and market rates with retry.
type Reader struct {
	cfg    ReaderConfig
	caller Caller
	cache  *TokenMetaCache
	logger *zap.Logger
}

func NewReader(cfg ReaderConfig, caller Caller, logger *zap.Logger) *Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{cfg: cfg, caller: caller, cache: NewTokenMetaCache(), logger: logger}
}

// TokenMeta returns cached metadata or loads it from chain.
func (r *Reader) TokenMeta(ctx context.Context, token common.Address) (model.TokenMeta, error) {
	if meta, ok := r.cache.Get(token); ok {
		return meta, nil
	}
	var meta model.TokenMeta
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		meta, err = FetchTokenMeta(ctx, r.caller, token, r.blockNumber(), r.logger)
		if err != nil {
			r.logger.Warn("token metadata fetch failed", zap.String("token", token.Hex()), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return meta, err
	}
	r.cache.Set(token, meta)
	return meta, nil
}

// MarketRates reads the exchange rate, supply rate and underlying of a share market.
func (r *Reader) MarketRates(ctx context.Context, market common.Address) (model.MarketRates, error) {
	var rates model.MarketRates
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		rates, err = FetchMarketRates(ctx, r.caller, market, r.blockNumber())
		if err != nil {
			r.logger.Warn("market rates fetch failed", zap.String("market", market.Hex()), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return model.MarketRates{}, err
	}
	rates.BlockNumber = r.cfg.BlockNumber
	return rates, nil
}

func (r *Reader) blockNumber() *big.Int {
	if r.cfg.BlockNumber == 0 {
		return nil
	}
	return new(big.Int).SetUint64(r.cfg.BlockNumber)
}

func call(ctx context.Context, caller Caller, target common.Address, parsed abi.ABI, method string, block *big.Int) ([]interface{}, error) {
	data, err := parsed.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &target, Data: data}
	resp, err := caller.CallContract(ctx, msg, block)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := parsed.Unpack(method, resp)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

// FetchMarketRates loads the live rates of a share market.
func FetchMarketRates(ctx context.Context, caller Caller, market common.Address, block *big.Int) (model.MarketRates, error) {
	rates := model.MarketRates{Market: market.Hex()}
	if caller == nil {
		return rates, fmt.Errorf("chain client is nil")
	}
	parsed, err := MarketABI()
	if err != nil {
		return rates, fmt.Errorf("parse market abi: %w", err)
	}

	values, err := call(ctx, caller, market, parsed, "exchangeRateStored", block)
	if err != nil {
		return rates, err
	}
	exchangeRate, err := asBigInt(values[0])
	if err != nil {
		return rates, fmt.Errorf("exchange rate: %w", err)
	}
	rates.ExchangeRate = exchangeRate.String()

	values, err = call(ctx, caller, market, parsed, "supplyRatePerBlock", block)
	if err != nil {
		return rates, err
	}
	supplyRate, err := asBigInt(values[0])
	if err != nil {
		return rates, fmt.Errorf("supply rate: %w", err)
	}
	rates.SupplyRatePerPeriod = supplyRate.String()

	// Native-currency markets have no underlying() view.
	if values, err := call(ctx, caller, market, parsed, "underlying", block); err == nil {
		if underlying, err := asAddress(values[0]); err == nil {
			rates.Underlying = underlying.Hex()
		}
	}
	return rates, nil
}

// FetchTokenMeta loads token metadata via ERC20 calls. Symbol and name fall
// back to the bytes32 encoding used by older tokens.
func FetchTokenMeta(ctx context.Context, caller Caller, token common.Address, block *big.Int, logger *zap.Logger) (model.TokenMeta, error) {
	meta := model.TokenMeta{Address: token.Hex()}
	if caller == nil {
		return meta, fmt.Errorf("chain client is nil")
	}

	stringABI, err := erc20ABIStringInstance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 string abi: %w", err)
	}
	bytes32ABI, err := erc20ABIBytes32Instance()
	if err != nil {
		return meta, fmt.Errorf("parse erc20 bytes32 abi: %w", err)
	}

	values, err := call(ctx, caller, token, stringABI, "decimals", block)
	if err != nil {
		return meta, err
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return meta, err
	}
	meta.Decimals = decimals

	if values, err := call(ctx, caller, token, stringABI, "symbol", block); err == nil {
		if symbol, ok := values[0].(string); ok {
			meta.Symbol = symbol
		}
	} else if values, err := call(ctx, caller, token, bytes32ABI, "symbol", block); err == nil {
		if symbol, ok := bytes32ToString(values[0]); ok {
			meta.Symbol = symbol
		}
	} else if logger != nil {
		logger.Debug("symbol call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	if values, err := call(ctx, caller, token, stringABI, "name", block); err == nil {
		if name, ok := values[0].(string); ok {
			meta.Name = name
		}
	} else if values, err := call(ctx, caller, token, bytes32ABI, "name", block); err == nil {
		if name, ok := bytes32ToString(values[0]); ok {
			meta.Name = name
		}
	} else if logger != nil {
		logger.Debug("name call failed", zap.String("token", token.Hex()), zap.Error(err))
	}

	return meta, nil
}

func bytes32ToString(value interface{}) (string, bool) {
	switch v := value.(type) {
	case [32]byte:
		return string(bytes.TrimRight(v[:], "\x00")), true
	case []byte:
		return string(bytes.TrimRight(v, "\x00")), true
	default:
		return "", false
	}
}

func asAddress(value interface{}) (common.Address, error) {
	switch v := value.(type) {
	case common.Address:
		return v, nil
	case *common.Address:
		return *v, nil
	default:
		return common.Address{}, fmt.Errorf("unsupported address type %T", value)
	}
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
