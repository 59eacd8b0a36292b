// Package engine runs ledger calls one at a time, each as an all-or-nothing unit.
//
// Every component that holds state registers itself with Track. Before a call
// runs, the engine snapshots all tracked components; if the call returns an
// error, every snapshot is restored and components created during the call
// are forgotten. Events emitted during a call reach the sinks only after commit.
package engine

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"stakingRewards/internal/model"
)

var ErrNativeNotConfigured = errors.New("native currency not configured")

// Journaled is implemented by every stateful ledger component.
type Journaled interface {
	Snapshot() any
	Restore(snapshot any)
}

// EventSink receives committed events in order.
type EventSink interface {
	PutEvents(events []model.Event) error
}

// ValueTransferer moves native currency attached to a call.
type ValueTransferer interface {
	Transfer(tx *Tx, to common.Address, amount *big.Int) error
}

// Msg describes an external call: From calls To, attaching Value of native currency.
type Msg struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

// Config holds engine dependencies.
type Config struct {
	Clock    Clock
	Registry prometheus.Registerer
	Logger   *zap.Logger
}

// Engine is the serialized execution substrate shared by all ledger components.
type Engine struct {
	mu      sync.Mutex
	clock   Clock
	tracked []Journaled
	sinks   []EventSink
	native  ValueTransferer
	nonces  map[common.Address]uint64
	seq     uint64
	metrics *Metrics
	logger  *zap.Logger
}

func New(cfg Config) *Engine {
	clock := cfg.Clock
	if clock == nil {
		clock = SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Engine{
		clock:   clock,
		nonces:  make(map[common.Address]uint64),
		metrics: NewMetrics(reg),
		logger:  logger,
	}
}

// Now returns the engine clock time.
func (e *Engine) Now() uint64 {
	return e.clock.Now()
}

// Track registers a component created outside of any call.
func (e *Engine) Track(j Journaled) {
	e.mu.Lock()
	e.tracked = append(e.tracked, j)
	e.mu.Unlock()
}

// AddSink registers a committed-event sink.
func (e *Engine) AddSink(sink EventSink) {
	e.mu.Lock()
	e.sinks = append(e.sinks, sink)
	e.mu.Unlock()
}

// SetNative installs the native currency used for call values.
func (e *Engine) SetNative(native ValueTransferer) {
	e.mu.Lock()
	e.native = native
	e.mu.Unlock()
}

// NewAddress derives a contract address for deployer outside of any call.
func (e *Engine) NewAddress(deployer common.Address) common.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nextAddress(deployer)
}

func (e *Engine) nextAddress(deployer common.Address) common.Address {
	nonce := e.nonces[deployer]
	e.nonces[deployer] = nonce + 1
	return crypto.CreateAddress(deployer, nonce)
}

// Execute runs fn as one atomic call on behalf of msg.From.
func (e *Engine) Execute(ctx context.Context, op string, msg Msg, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	timer := prometheus.NewTimer(e.metrics.callDuration.WithLabelValues(op))
	defer timer.ObserveDuration()

	snap := e.snapshot()
	tx := &Tx{
		ctx:    ctx,
		op:     op,
		origin: msg.From,
		sender: msg.From,
		value:  new(big.Int),
		now:    e.clock.Now(),
		state:  &txState{engine: e},
	}
	if msg.Value != nil {
		tx.value.Set(msg.Value)
	}

	err := e.run(tx, msg, fn)
	if err != nil {
		e.restore(snap)
		e.metrics.callsTotal.WithLabelValues(op, "rollback").Inc()
		e.logger.Debug("call rolled back",
			zap.String("op", op),
			zap.String("from", msg.From.Hex()),
			zap.Uint64("time", tx.now),
			zap.Error(err),
		)
		return err
	}

	e.metrics.callsTotal.WithLabelValues(op, "commit").Inc()
	e.deliver(tx)
	return nil
}

// View runs a read-only function under the engine lock.
func (e *Engine) View(fn func() error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn()
}

func (e *Engine) run(tx *Tx, msg Msg, fn func(tx *Tx) error) error {
	if tx.value.Sign() > 0 {
		if e.native == nil {
			return ErrNativeNotConfigured
		}
		if err := e.native.Transfer(tx, msg.To, tx.value); err != nil {
			return fmt.Errorf("send value: %w", err)
		}
	}
	return fn(tx)
}

type engineSnapshot struct {
	tracked int
	states  []any
	nonces  map[common.Address]uint64
}

func (e *Engine) snapshot() engineSnapshot {
	states := make([]any, len(e.tracked))
	for i, j := range e.tracked {
		states[i] = j.Snapshot()
	}
	nonces := make(map[common.Address]uint64, len(e.nonces))
	for k, v := range e.nonces {
		nonces[k] = v
	}
	return engineSnapshot{tracked: len(e.tracked), states: states, nonces: nonces}
}

func (e *Engine) restore(snap engineSnapshot) {
	for i := len(e.tracked) - 1; i >= snap.tracked; i-- {
		e.tracked[i] = nil
	}
	e.tracked = e.tracked[:snap.tracked]
	for i, j := range e.tracked {
		j.Restore(snap.states[i])
	}
	e.nonces = snap.nonces
}

func (e *Engine) deliver(tx *Tx) {
	events := tx.state.events
	if len(events) == 0 {
		return
	}
	for i := range events {
		e.seq++
		events[i].Seq = e.seq
		events[i].Time = tx.now
		events[i].Op = tx.op
		e.metrics.eventsTotal.WithLabelValues(events[i].Name).Inc()
	}
	for _, sink := range e.sinks {
		if err := sink.PutEvents(events); err != nil {
			e.logger.Warn("event sink failed", zap.String("op", tx.op), zap.Int("events", len(events)), zap.Error(err))
		}
	}
}
