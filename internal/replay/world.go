// Package replay rebuilds a ledger from a JSONL scenario of operations.
//
// A World owns every component of one ledger: the native currency, tokens,
// share markets, the pool registry and the aggregation gateway. Scenario
// lines refer to them by name; unknown names are treated as accounts and
// mapped to the last 20 bytes of keccak256(name).
package replay

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"stakingRewards/internal/asset"
	"stakingRewards/internal/engine"
	"stakingRewards/internal/fixedpoint"
	"stakingRewards/internal/gateway"
	"stakingRewards/internal/market"
	"stakingRewards/internal/model"
	"stakingRewards/internal/registry"
	"stakingRewards/internal/rewards"
)

const (
	// AdminName is the account that deploys every component.
	AdminName = "admin"
	// NativeSymbol names the native currency in scenarios.
	NativeSymbol = "ETH"

	gatewayName  = "gateway"
	registryName = "registry"
)

var (
	ErrUnknownName      = errors.New("unknown name")
	ErrNameTaken        = errors.New("name already defined")
	ErrGatewayDeployed  = errors.New("gateway already deployed")
	ErrNoRateReader     = errors.New("no rate reader configured")
	ErrInvalidOperation = errors.New("invalid operation")
)

// World is the set of ledger components a scenario acts on.
type World struct {
	engine   *engine.Engine
	clock    *engine.ManualClock
	rates    market.RateReader
	admin    common.Address
	tokens   *asset.Directory
	native   *asset.Ledger
	wrapped  *asset.WrappedNative
	ledgers  map[string]*asset.Ledger
	markets  map[string]*market.ShareMarket
	names    map[string]common.Address
	registry *registry.Registry

	gatewayAddress common.Address
	gateway        *gateway.Gateway
}

// NewWorld deploys the native currency and the pool registry. rates may be
// nil when no market is seeded from a live source.
func NewWorld(e *engine.Engine, clock *engine.ManualClock, rates market.RateReader) *World {
	w := &World{
		engine:  e,
		clock:   clock,
		rates:   rates,
		admin:   Account(AdminName),
		tokens:  asset.NewDirectory(),
		ledgers: make(map[string]*asset.Ledger),
		markets: make(map[string]*market.ShareMarket),
		names:   make(map[string]common.Address),
	}

	w.native = asset.NewNative(NativeSymbol)
	e.Track(w.native)
	e.SetNative(w.native)
	w.names[NativeSymbol] = asset.NativeAddress

	w.registry = registry.New(e.NewAddress(w.admin), w.tokens, clock, w.admin)
	e.Track(w.registry)
	w.gatewayAddress = e.NewAddress(w.admin)
	return w
}

// Account maps a scenario account name to an address. Hex addresses are
// used as they are.
func Account(name string) common.Address {
	name = strings.TrimSpace(name)
	if common.IsHexAddress(name) {
		return common.HexToAddress(name)
	}
	return common.BytesToAddress(crypto.Keccak256([]byte(name))[12:])
}

func (w *World) Admin() common.Address                  { return w.admin }
func (w *World) Registry() *registry.Registry           { return w.registry }
func (w *World) Tokens() *asset.Directory               { return w.tokens }
func (w *World) Native() *asset.Ledger                  { return w.native }
func (w *World) Market(name string) *market.ShareMarket { return w.markets[name] }

// Gateway returns the gateway, deploying it on first use.
func (w *World) Gateway() *gateway.Gateway {
	if w.gateway == nil {
		w.gateway = gateway.New(w.gatewayAddress, w.registry, w.tokens, w.wrapped, w.admin)
		w.engine.Track(w.gateway)
	}
	return w.gateway
}

// Snapshot returns the persisted view of the registry and its pools.
func (w *World) Snapshot() model.Snapshot {
	return w.registry.SnapshotRecord(w.clock.Now())
}

// Address resolves a component name, a hex address or an account name.
func (w *World) Address(name string) common.Address {
	name = strings.TrimSpace(name)
	if addr, ok := w.names[name]; ok {
		return addr
	}
	switch name {
	case gatewayName:
		return w.gatewayAddress
	case registryName:
		return w.registry.Address()
	}
	return Account(name)
}

// Token resolves an asset by name or address. The native currency is
// resolved too, although it is not part of the token directory.
func (w *World) Token(name string) (asset.Token, error) {
	addr, err := w.assetAddress(name)
	if err != nil {
		return nil, err
	}
	if addr == asset.NativeAddress {
		return w.native, nil
	}
	return w.tokens.Token(addr)
}

// Pool resolves a pool by its staking asset name or by pool address.
func (w *World) Pool(name string) (*rewards.Pool, error) {
	name = strings.TrimSpace(name)
	if common.IsHexAddress(name) {
		addr := common.HexToAddress(name)
		if pool, ok := w.registry.PoolAt(addr); ok {
			return pool, nil
		}
		if pool, ok := w.registry.Pool(addr); ok {
			return pool, nil
		}
		return nil, fmt.Errorf("%w: %s", registry.ErrPoolNotFound, name)
	}
	addr, ok := w.names[name]
	if !ok {
		return nil, fmt.Errorf("%w: pool %q", ErrUnknownName, name)
	}
	pool, ok := w.registry.Pool(addr)
	if !ok {
		return nil, fmt.Errorf("%w: %s", registry.ErrPoolNotFound, name)
	}
	return pool, nil
}

func (w *World) pools(names []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(names))
	for _, name := range names {
		pool, err := w.Pool(name)
		if err != nil {
			return nil, err
		}
		out = append(out, pool.Address())
	}
	return out, nil
}

func (w *World) assetAddress(name string) (common.Address, error) {
	name = strings.TrimSpace(name)
	if common.IsHexAddress(name) {
		return common.HexToAddress(name), nil
	}
	addr, ok := w.names[name]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: asset %q", ErrUnknownName, name)
	}
	return addr, nil
}

func (w *World) assetAddresses(names []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(names))
	for _, name := range names {
		addr, err := w.assetAddress(name)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func (w *World) define(name string, addr common.Address) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidOperation)
	}
	if _, ok := w.names[name]; ok || name == gatewayName || name == registryName {
		return fmt.Errorf("%w: %s", ErrNameTaken, name)
	}
	w.names[name] = addr
	return nil
}

// deployToken creates a mintable token owned by the admin.
func (w *World) deployToken(name string, decimals uint8) (*asset.Ledger, error) {
	if _, ok := w.names[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrNameTaken, name)
	}
	ledger := asset.NewLedger(w.engine.NewAddress(w.admin), name, name, decimals, w.admin)
	if err := w.define(name, ledger.Address()); err != nil {
		return nil, err
	}
	if err := w.tokens.Register(ledger); err != nil {
		return nil, err
	}
	w.engine.Track(ledger)
	w.ledgers[name] = ledger
	return ledger, nil
}

func (w *World) deployWrappedNative(name string) (*asset.WrappedNative, error) {
	if w.gateway != nil {
		return nil, ErrGatewayDeployed
	}
	if w.wrapped != nil {
		return nil, fmt.Errorf("%w: wrapped native", ErrNameTaken)
	}
	if _, ok := w.names[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrNameTaken, name)
	}
	wrapped := asset.NewWrappedNative(w.engine.NewAddress(w.admin), "Wrapped "+NativeSymbol, name, w.native)
	if err := w.define(name, wrapped.Address()); err != nil {
		return nil, err
	}
	if err := w.tokens.Register(wrapped); err != nil {
		return nil, err
	}
	w.engine.Track(wrapped)
	w.wrapped = wrapped
	return wrapped, nil
}

func (w *World) deployMarket(name, underlying string, decimals uint8, exchangeRate *big.Int) (*market.ShareMarket, error) {
	if _, ok := w.names[name]; ok {
		return nil, fmt.Errorf("%w: %s", ErrNameTaken, name)
	}
	token, err := w.Token(underlying)
	if err != nil {
		return nil, err
	}
	if exchangeRate == nil || exchangeRate.Sign() == 0 {
		exchangeRate = fixedpoint.ScaleBig()
	}
	m, err := market.NewShareMarket(w.engine.NewAddress(w.admin), name, name, decimals, token, exchangeRate, w.admin)
	if err != nil {
		return nil, err
	}
	if err := w.define(name, m.Address()); err != nil {
		return nil, err
	}
	if err := w.tokens.Register(m); err != nil {
		return nil, err
	}
	w.engine.Track(m)
	w.markets[name] = m
	return m, nil
}
