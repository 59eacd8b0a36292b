// Package registry indexes reward pools by staking asset and keeps them in
// creation order.
package registry

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"stakingRewards/internal/access"
	"stakingRewards/internal/engine"
	"stakingRewards/internal/model"
	"stakingRewards/internal/rewards"
)

var (
	ErrPoolAlreadyExists = errors.New("staking rewards contract already exist")
	ErrPoolNotFound      = errors.New("staking rewards contract not exist")
)

// Registry creates pools and keeps the ordered index of live ones.
type Registry struct {
	address common.Address
	tokens  rewards.TokenResolver
	clock   engine.Clock
	state   state
}

type state struct {
	owner access.Ownable
	pools map[common.Address]*rewards.Pool
	order []common.Address
}

func New(address common.Address, tokens rewards.TokenResolver, clock engine.Clock, owner common.Address) *Registry {
	return &Registry{
		address: address,
		tokens:  tokens,
		clock:   clock,
		state: state{
			owner: access.NewOwnable(owner),
			pools: make(map[common.Address]*rewards.Pool),
		},
	}
}

func (r *Registry) Address() common.Address { return r.address }
func (r *Registry) Owner() common.Address   { return r.state.owner.Owner() }

// CreatePools creates one pool per staking asset, owned by the caller, with
// helper allowed to stake and withdraw for stakers. The whole batch fails if
// any asset is already indexed or repeated.
func (r *Registry) CreatePools(tx *engine.Tx, stakingAssets []common.Address, helper common.Address) ([]*rewards.Pool, error) {
	if err := r.state.owner.OnlyOwner(tx); err != nil {
		return nil, err
	}
	seen := make(map[common.Address]struct{}, len(stakingAssets))
	for _, a := range stakingAssets {
		if _, ok := r.state.pools[a]; ok {
			return nil, fmt.Errorf("%w: %s", ErrPoolAlreadyExists, a.Hex())
		}
		if _, ok := seen[a]; ok {
			return nil, fmt.Errorf("%w: %s", ErrPoolAlreadyExists, a.Hex())
		}
		seen[a] = struct{}{}
	}

	created := make([]*rewards.Pool, 0, len(stakingAssets))
	for _, a := range stakingAssets {
		token, err := r.tokens.Token(a)
		if err != nil {
			return nil, fmt.Errorf("create pool: %w", err)
		}
		pool := rewards.NewPool(tx.NewAddress(r.address), token, r.tokens, r.clock, tx.Sender(), helper)
		tx.Track(pool)
		r.state.pools[a] = pool
		r.state.order = append(r.state.order, a)
		created = append(created, pool)
		tx.Emit(model.Event{
			Contract: r.address.Hex(),
			Name:     model.EventPoolCreated,
			Asset:    a.Hex(),
			Data:     map[string]string{"pool": pool.Address().Hex()},
		})
	}
	return created, nil
}

// RemovePool drops the pool of stakingAsset from the index. Later pools keep
// their relative order.
func (r *Registry) RemovePool(tx *engine.Tx, stakingAsset common.Address) error {
	if err := r.state.owner.OnlyOwner(tx); err != nil {
		return err
	}
	pool, ok := r.state.pools[stakingAsset]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPoolNotFound, stakingAsset.Hex())
	}
	delete(r.state.pools, stakingAsset)
	order := make([]common.Address, 0, len(r.state.order)-1)
	for _, a := range r.state.order {
		if a != stakingAsset {
			order = append(order, a)
		}
	}
	r.state.order = order
	tx.Emit(model.Event{
		Contract: r.address.Hex(),
		Name:     model.EventPoolRemoved,
		Asset:    stakingAsset.Hex(),
		Data:     map[string]string{"pool": pool.Address().Hex()},
	})
	return nil
}

// Pool returns the live pool for stakingAsset.
func (r *Registry) Pool(stakingAsset common.Address) (*rewards.Pool, bool) {
	pool, ok := r.state.pools[stakingAsset]
	return pool, ok
}

// PoolAt returns the pool at address among live pools.
func (r *Registry) PoolAt(address common.Address) (*rewards.Pool, bool) {
	for _, a := range r.state.order {
		if pool := r.state.pools[a]; pool.Address() == address {
			return pool, true
		}
	}
	return nil, false
}

// Pools returns live pools in creation order.
func (r *Registry) Pools() []*rewards.Pool {
	out := make([]*rewards.Pool, len(r.state.order))
	for i, a := range r.state.order {
		out[i] = r.state.pools[a]
	}
	return out
}

func (r *Registry) PoolCount() int {
	return len(r.state.order)
}

// Seize sends amount of an asset held by the registry to the owner.
func (r *Registry) Seize(tx *engine.Tx, assetID common.Address, amount *big.Int) error {
	if err := r.state.owner.OnlyOwner(tx); err != nil {
		return err
	}
	token, err := r.tokens.Token(assetID)
	if err != nil {
		return err
	}
	if err := token.Transfer(tx.As(r.address), r.Owner(), amount); err != nil {
		return fmt.Errorf("seize %s: %w", assetID.Hex(), err)
	}
	tx.Emit(model.Event{
		Contract: r.address.Hex(),
		Name:     model.EventSeized,
		Account:  r.Owner().Hex(),
		Asset:    assetID.Hex(),
		Amount:   amount.String(),
	})
	return nil
}

func (r *Registry) TransferOwnership(tx *engine.Tx, newOwner common.Address) error {
	return r.state.owner.TransferOwnership(tx, r.address, newOwner)
}

// Record returns the persisted index in creation order.
func (r *Registry) Record() model.RegistryRecord {
	rec := model.RegistryRecord{
		Address: r.address.Hex(),
		Owner:   r.Owner().Hex(),
		Pools:   make([]model.RegistryPoolEntry, len(r.state.order)),
	}
	for i, a := range r.state.order {
		rec.Pools[i] = model.RegistryPoolEntry{
			Position:     i,
			StakingAsset: a.Hex(),
			Pool:         r.state.pools[a].Address().Hex(),
		}
	}
	return rec
}

// SnapshotRecord returns the full ledger state reachable from the registry.
func (r *Registry) SnapshotRecord(now uint64) model.Snapshot {
	snap := model.Snapshot{Time: now, Registry: r.Record()}
	for _, pool := range r.Pools() {
		snap.Pools = append(snap.Pools, pool.Record())
	}
	return snap
}

func (r *Registry) Snapshot() any {
	s := state{
		owner: r.state.owner,
		pools: make(map[common.Address]*rewards.Pool, len(r.state.pools)),
		order: append([]common.Address(nil), r.state.order...),
	}
	for k, v := range r.state.pools {
		s.pools[k] = v
	}
	return s
}

func (r *Registry) Restore(snapshot any) {
	s := snapshot.(state)
	r.state = state{
		owner: s.owner,
		pools: make(map[common.Address]*rewards.Pool, len(s.pools)),
		order: append([]common.Address(nil), s.order...),
	}
	for k, v := range s.pools {
		r.state.pools[k] = v
	}
}
