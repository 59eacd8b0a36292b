package engine

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"stakingRewards/internal/model"
)

// Tx is the execution context of one ledger call. Sub-calls into other
// components share the same Tx state through As.
type Tx struct {
	ctx    context.Context
	op     string
	origin common.Address
	sender common.Address
	value  *big.Int
	now    uint64
	state  *txState
}

type txState struct {
	engine *Engine
	events []model.Event
}

// Context returns the context the call was started with.
func (tx *Tx) Context() context.Context {
	return tx.ctx
}

// Op returns the name of the entry point being executed.
func (tx *Tx) Op() string {
	return tx.op
}

// Origin is the account that started the call.
func (tx *Tx) Origin() common.Address {
	return tx.origin
}

// Sender is the immediate caller.
func (tx *Tx) Sender() common.Address {
	return tx.sender
}

// Value is the native amount sent with this frame.
func (tx *Tx) Value() *big.Int {
	if tx.value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(tx.value)
}

// Now is the call timestamp. It is fixed for the whole call.
func (tx *Tx) Now() uint64 {
	return tx.now
}

// As returns a frame for a sub-call made by caller.
func (tx *Tx) As(caller common.Address) *Tx {
	return &Tx{
		ctx:    tx.ctx,
		op:     tx.op,
		origin: tx.origin,
		sender: caller,
		value:  new(big.Int),
		now:    tx.now,
		state:  tx.state,
	}
}

// Emit records an event. Events are delivered only if the call commits.
func (tx *Tx) Emit(ev model.Event) {
	tx.state.events = append(tx.state.events, ev)
}

// Track registers a component created during the call. It is dropped again
// if the call rolls back.
func (tx *Tx) Track(j Journaled) {
	tx.state.engine.tracked = append(tx.state.engine.tracked, j)
}

// NewAddress derives a fresh contract address for a component created by deployer.
func (tx *Tx) NewAddress(deployer common.Address) common.Address {
	return tx.state.engine.nextAddress(deployer)
}
