package replay

import (
	"context"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stakingRewards/internal/engine"
	"stakingRewards/internal/model"
	"stakingRewards/internal/storage"
)

const poolScenario = `
{"op":"token","name":"STK"}
{"op":"token","name":"RWD"}
{"op":"mint","token":"STK","to":"alice","amount":"1000000000000000000"}
{"op":"mint","token":"RWD","to":"admin","amount":"604800"}
{"op":"create_pools","assets":["STK"]}
{"op":"add_reward","pool":"STK","token":"RWD","duration":604800}
{"op":"transfer","token":"RWD","pool":"STK","amount":"604800"}
{"op":"notify","pool":"STK","token":"RWD","amount":"604800"}
{"op":"approve","from":"alice","token":"STK","pool":"STK","amount":"max"}
{"op":"pool_stake","from":"alice","pool":"STK","amount":"1000000000000000000"}
{"op":"get_reward","from":"alice","pool":"STK","advance":100}
`

const gatewayScenario = `
{"op":"token","name":"TK"}
{"op":"token","name":"RWD"}
{"op":"market","name":"iTK","underlying":"TK","rate":"2000000000000000000"}
{"op":"mint","token":"TK","to":"alice","amount":"2000000000000000000"}
{"op":"mint","token":"RWD","to":"admin","amount":"604800"}
{"op":"create_pools","assets":["iTK"]}
{"op":"add_reward","pool":"iTK","token":"RWD","duration":604800}
{"op":"transfer","token":"RWD","pool":"iTK","amount":"604800"}
{"op":"notify","pool":"iTK","token":"RWD","amount":"604800"}
{"op":"approve","from":"alice","token":"TK","to":"gateway","amount":"max"}
{"op":"stake","from":"alice","token":"TK","amount":"2000000000000000000"}
{"op":"claim","from":"alice","pools":["iTK"],"advance":100}
{"op":"exit_all","from":"alice"}
`

type memorySink struct {
	events []model.Event
}

func (s *memorySink) PutEvents(events []model.Event) error {
	s.events = append(s.events, events...)
	return nil
}

type memoryProgress struct {
	line  uint64
	saved bool
}

func (p *memoryProgress) Load(ctx context.Context) (uint64, bool, error) {
	return p.line, p.saved, nil
}

func (p *memoryProgress) Save(ctx context.Context, line uint64) error {
	p.line = line
	p.saved = true
	return nil
}

type staticReader struct {
	rates model.MarketRates
}

func (r staticReader) MarketRates(ctx context.Context, market common.Address) (model.MarketRates, error) {
	return r.rates, nil
}

func newWorld(rates staticReader) *World {
	clock := engine.NewManualClock(100000)
	e := engine.New(engine.Config{Clock: clock})
	if rates.rates.ExchangeRate == "" {
		return NewWorld(e, clock, nil)
	}
	return NewWorld(e, clock, rates)
}

func run(t *testing.T, w *World, cfg RunConfig, scenario string, sink *memorySink, progress storage.StateStore) Result {
	t.Helper()
	var sinks []storage.Storage
	if sink != nil {
		sinks = append(sinks, sink)
	}
	res, err := NewRunner(cfg, w, sinks, progress, nil).Run(context.Background(), strings.NewReader(scenario))
	require.NoError(t, err)
	return res
}

func balance(t *testing.T, w *World, token, account string) string {
	t.Helper()
	tk, err := w.Token(token)
	require.NoError(t, err)
	return tk.BalanceOf(w.Address(account)).String()
}

func TestAccountNames(t *testing.T) {
	assert.Equal(t, common.BytesToAddress(crypto.Keccak256([]byte("alice"))[12:]), Account("alice"))
	hex := "0x000000000000000000000000000000000000a11c"
	assert.Equal(t, common.HexToAddress(hex), Account(hex))
	assert.NotEqual(t, Account("alice"), Account("bob"))
}

func TestReplayPoolScenario(t *testing.T) {
	w := newWorld(staticReader{})
	sink := &memorySink{}
	res := run(t, w, RunConfig{}, poolScenario, sink, nil)

	assert.Equal(t, 11, res.Total)
	assert.Equal(t, 11, res.Applied)
	assert.Zero(t, res.Failed)
	assert.Equal(t, uint64(100100), w.clock.Now())

	// one reward unit per second for the only staker
	assert.Equal(t, "100", balance(t, w, "RWD", "alice"))

	pool, err := w.Pool("STK")
	require.NoError(t, err)
	rwd, err := w.Token("RWD")
	require.NoError(t, err)
	assert.Equal(t, "604700", rwd.BalanceOf(pool.Address()).String())
	assert.Equal(t, "1000000000000000000", pool.TotalStaked().String())

	snap := w.Snapshot()
	require.Len(t, snap.Pools, 1)
	assert.Equal(t, pool.Address().Hex(), snap.Pools[0].Address)

	var paid bool
	for _, ev := range sink.events {
		if ev.Name == model.EventRewardPaid {
			paid = true
			assert.Equal(t, "100", ev.Amount)
			assert.Equal(t, uint64(100100), ev.Time)
		}
	}
	assert.True(t, paid)
}

func TestReplayGatewayScenario(t *testing.T) {
	w := newWorld(staticReader{})
	res := run(t, w, RunConfig{}, gatewayScenario, nil, nil)
	require.Zero(t, res.Failed, "errors: %+v", res.Errors)

	assert.Equal(t, "100", balance(t, w, "RWD", "alice"))
	assert.Equal(t, "2000000000000000000", balance(t, w, "TK", "alice"))

	pool, err := w.Pool("iTK")
	require.NoError(t, err)
	assert.Zero(t, pool.TotalStaked().Sign())
	assert.Equal(t, w.Address("gateway"), pool.Helper())
}

func TestReplayCountsRejectedOperations(t *testing.T) {
	w := newWorld(staticReader{})
	scenario := `{"op":"token","name":"STK"}
not json
{"op":"mint","from":"mallory","token":"STK","to":"mallory","amount":"1"}
{"op":"launch"}
{"op":"mint","token":"STK","to":"alice","amount":"5"}
`
	res := run(t, w, RunConfig{}, scenario, nil, nil)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 2, res.Applied)
	assert.Equal(t, 3, res.Failed)
	require.Len(t, res.Errors, 3)
	assert.Equal(t, 2, res.Errors[0].Line)
	assert.Equal(t, "mint", res.Errors[1].Op)
	assert.Equal(t, 4, res.Errors[2].Line)
	assert.Equal(t, "5", balance(t, w, "STK", "alice"))
}

func TestReplayStopOnError(t *testing.T) {
	w := newWorld(staticReader{})
	scenario := `{"op":"token","name":"STK"}
{"op":"mint","from":"mallory","token":"STK","to":"mallory","amount":"1"}
{"op":"mint","token":"STK","to":"alice","amount":"5"}
`
	res, err := NewRunner(RunConfig{StopOnError: true}, w, nil, nil, nil).Run(context.Background(), strings.NewReader(scenario))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, "0", balance(t, w, "STK", "alice"))
}

func TestReplayResumeSkipsDeliveredEvents(t *testing.T) {
	full := &memorySink{}
	run(t, newWorld(staticReader{}), RunConfig{}, poolScenario, full, nil)

	lines := strings.Split(strings.TrimSpace(poolScenario), "\n")
	head := strings.Join(lines[:8], "\n")

	progress := &memoryProgress{}
	first := &memorySink{}
	run(t, newWorld(staticReader{}), RunConfig{}, head, first, progress)
	assert.Equal(t, uint64(8), progress.line)

	second := &memorySink{}
	w := newWorld(staticReader{})
	res := run(t, w, RunConfig{}, strings.TrimSpace(poolScenario), second, progress)
	assert.Equal(t, 8, res.Replayed)
	assert.Equal(t, uint64(11), progress.line)

	combined := append(append([]model.Event{}, first.events...), second.events...)
	require.Len(t, combined, len(full.events))
	for i := range full.events {
		assert.Equal(t, full.events[i].Seq, combined[i].Seq)
		assert.Equal(t, full.events[i].Name, combined[i].Name)
	}
	assert.Equal(t, "100", balance(t, w, "RWD", "alice"))
}

func TestReplayMarketFromSource(t *testing.T) {
	source := "0x0000000000000000000000000000000000c0ffee"
	w := newWorld(staticReader{rates: model.MarketRates{
		Market:              source,
		ExchangeRate:        "1150000000000000000",
		SupplyRatePerPeriod: "1000",
	}})
	scenario := `{"op":"token","name":"TK"}
{"op":"market","name":"iTK","underlying":"TK","source":"` + source + `"}
{"op":"set_rates","token":"iTK","supply_rate":"2000"}
`
	res := run(t, w, RunConfig{}, scenario, nil, nil)
	require.Zero(t, res.Failed, "errors: %+v", res.Errors)

	m := w.Market("iTK")
	require.NotNil(t, m)
	assert.Equal(t, "1150000000000000000", m.ExchangeRate().String())
	assert.Equal(t, "2000", m.SupplyRatePerPeriod().String())
}

func TestReplayMarketSourceNeedsReader(t *testing.T) {
	w := newWorld(staticReader{})
	err := w.Apply(context.Background(), model.Operation{Op: "token", Name: "TK"})
	require.NoError(t, err)
	err = w.Apply(context.Background(), model.Operation{Op: "market", Name: "iTK", Underlying: "TK", Source: "0x0000000000000000000000000000000000c0ffee"})
	assert.ErrorIs(t, err, ErrNoRateReader)
}

func TestWrappedNativeAfterGateway(t *testing.T) {
	w := newWorld(staticReader{})
	w.Gateway()
	err := w.Apply(context.Background(), model.Operation{Op: "wrapped_native"})
	assert.ErrorIs(t, err, ErrGatewayDeployed)
}

func TestRegistryAdminLeavesGatewayUndeployed(t *testing.T) {
	w := newWorld(staticReader{})
	scenario := `{"op":"token","name":"STK"}
{"op":"mint","token":"STK","to":"registry","amount":"7"}
{"op":"seize","token":"STK","to":"registry","amount":"7"}
{"op":"transfer_ownership","name":"registry","to":"bob"}
{"op":"launch"}
{"op":"wrapped_native"}
`
	res := run(t, w, RunConfig{}, scenario, nil, nil)
	assert.Equal(t, 5, res.Applied)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "launch", res.Errors[0].Op)

	assert.Nil(t, w.gateway)
	assert.NotNil(t, w.wrapped)
	assert.Equal(t, "7", balance(t, w, "STK", "admin"))
	assert.Equal(t, w.Address("bob"), w.Registry().Owner())
}
