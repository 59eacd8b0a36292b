package rewards

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stakingRewards/internal/access"
	"stakingRewards/internal/asset"
	"stakingRewards/internal/engine"
	"stakingRewards/internal/model"
)

const sevenDays = 86400 * 7

var (
	admin  = common.HexToAddress("0x000000000000000000000000000000000000ad01")
	user1  = common.HexToAddress("0x0000000000000000000000000000000000000a01")
	user2  = common.HexToAddress("0x0000000000000000000000000000000000000a02")
	helper = common.HexToAddress("0x00000000000000000000000000000000000000e1")
)

func toWei(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

type fixture struct {
	engine   *engine.Engine
	clock    *engine.ManualClock
	staking  *asset.Ledger
	reward1  *asset.Ledger
	reward2  *asset.Ledger
	random   *asset.Ledger
	pool     *Pool
	recorder *recorder
}

type recorder struct {
	events []model.Event
}

func (r *recorder) PutEvents(events []model.Event) error {
	r.events = append(r.events, events...)
	return nil
}

func (r *recorder) named(name string) []model.Event {
	var out []model.Event
	for _, ev := range r.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := engine.NewManualClock(1)
	e := engine.New(engine.Config{Clock: clock})
	rec := &recorder{}
	e.AddSink(rec)
	dir := asset.NewDirectory()

	token := func(symbol string) *asset.Ledger {
		l := asset.NewLedger(e.NewAddress(admin), symbol, symbol, 18, admin)
		e.Track(l)
		require.NoError(t, dir.Register(l))
		return l
	}
	f := &fixture{
		engine:   e,
		clock:    clock,
		staking:  token("STK"),
		reward1:  token("RW1"),
		reward2:  token("RW2"),
		random:   token("RND"),
		recorder: rec,
	}
	f.pool = NewPool(e.NewAddress(admin), f.staking, dir, clock, admin, helper)
	e.Track(f.pool)

	for _, l := range []*asset.Ledger{f.staking, f.reward1, f.reward2, f.random} {
		f.do(t, admin, func(tx *engine.Tx) error { return l.Mint(tx, admin, toWei(1000)) })
	}
	for _, u := range []common.Address{user1, user2, helper} {
		f.do(t, admin, func(tx *engine.Tx) error { return f.staking.Transfer(tx, u, toWei(100)) })
		f.do(t, u, func(tx *engine.Tx) error { return f.staking.Approve(tx, f.pool.Address(), toWei(100)) })
	}
	f.do(t, admin, func(tx *engine.Tx) error { return f.staking.Approve(tx, f.pool.Address(), toWei(100)) })
	return f
}

func (f *fixture) call(from common.Address, fn func(tx *engine.Tx) error) error {
	return f.engine.Execute(context.Background(), "test", engine.Msg{From: from}, fn)
}

func (f *fixture) do(t *testing.T, from common.Address, fn func(tx *engine.Tx) error) {
	t.Helper()
	require.NoError(t, f.call(from, fn))
}

func (f *fixture) earned(t *testing.T, reward *asset.Ledger, account common.Address) string {
	t.Helper()
	v, err := f.pool.Earned(reward.Address(), account)
	require.NoError(t, err)
	return v.String()
}

// fundRewards registers both reward tokens, funds the pool and starts
// periods of 10 and 50 tokens at t=100000.
func (f *fixture) fundRewards(t *testing.T) {
	t.Helper()
	f.clock.Set(100000)
	f.do(t, admin, func(tx *engine.Tx) error { return f.pool.AddRewardsToken(tx, f.reward1.Address(), sevenDays) })
	f.do(t, admin, func(tx *engine.Tx) error { return f.pool.AddRewardsToken(tx, f.reward2.Address(), sevenDays) })
	f.do(t, admin, func(tx *engine.Tx) error { return f.reward1.Transfer(tx, f.pool.Address(), toWei(100)) })
	f.do(t, admin, func(tx *engine.Tx) error { return f.reward2.Transfer(tx, f.pool.Address(), toWei(100)) })
	f.do(t, admin, func(tx *engine.Tx) error { return f.pool.NotifyRewardAmount(tx, f.reward1.Address(), toWei(10)) })
	f.do(t, admin, func(tx *engine.Tx) error { return f.pool.NotifyRewardAmount(tx, f.reward2.Address(), toWei(50)) })
}

func (f *fixture) stake(t *testing.T, from common.Address, n int64) {
	t.Helper()
	f.do(t, from, func(tx *engine.Tx) error { return f.pool.Stake(tx, toWei(n)) })
}

func (f *fixture) claimBoth(t *testing.T) {
	t.Helper()
	f.do(t, user1, func(tx *engine.Tx) error { return f.pool.GetReward(tx, user1) })
	f.do(t, user2, func(tx *engine.Tx) error { return f.pool.GetReward(tx, user2) })
}

func TestStake(t *testing.T) {
	t.Run("stakes successfully", func(t *testing.T) {
		f := newFixture(t)
		f.stake(t, user1, 10)
		f.stake(t, user2, 20)

		assert.Equal(t, toWei(30), f.pool.TotalStaked())
		assert.Equal(t, toWei(10), f.pool.BalanceOf(user1))
		assert.Equal(t, toWei(20), f.pool.BalanceOf(user2))
		assert.Equal(t, toWei(30), f.staking.BalanceOf(f.pool.Address()))
		assert.Len(t, f.recorder.named(model.EventStaked), 2)
	})

	t.Run("fails when paused", func(t *testing.T) {
		f := newFixture(t)
		f.do(t, admin, func(tx *engine.Tx) error { return f.pool.Pause(tx) })
		err := f.call(user1, func(tx *engine.Tx) error { return f.pool.Stake(tx, toWei(10)) })
		require.ErrorIs(t, err, ErrPaused)
	})

	t.Run("fails for invalid amount", func(t *testing.T) {
		f := newFixture(t)
		err := f.call(user1, func(tx *engine.Tx) error { return f.pool.Stake(tx, new(big.Int)) })
		require.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("fails without allowance and leaves no balance", func(t *testing.T) {
		f := newFixture(t)
		err := f.call(user1, func(tx *engine.Tx) error { return f.pool.Stake(tx, toWei(101)) })
		require.ErrorIs(t, err, asset.ErrInsufficientAllowance)
		assert.Equal(t, 0, f.pool.TotalStaked().Sign())
		assert.Equal(t, 0, f.pool.BalanceOf(user1).Sign())
	})
}

func TestStakeFor(t *testing.T) {
	t.Run("owner stakes for users", func(t *testing.T) {
		f := newFixture(t)
		f.do(t, admin, func(tx *engine.Tx) error { return f.pool.StakeFor(tx, user1, toWei(10)) })
		f.do(t, admin, func(tx *engine.Tx) error { return f.pool.StakeFor(tx, user2, toWei(20)) })

		assert.Equal(t, toWei(30), f.pool.TotalStaked())
		assert.Equal(t, toWei(10), f.pool.BalanceOf(user1))
		assert.Equal(t, toWei(20), f.pool.BalanceOf(user2))
		assert.Equal(t, toWei(670), f.staking.BalanceOf(admin))
	})

	t.Run("helper pays", func(t *testing.T) {
		f := newFixture(t)
		f.do(t, helper, func(tx *engine.Tx) error { return f.pool.StakeFor(tx, user1, toWei(10)) })
		assert.Equal(t, toWei(10), f.pool.BalanceOf(user1))
		assert.Equal(t, toWei(90), f.staking.BalanceOf(helper))
		assert.Equal(t, toWei(100), f.staking.BalanceOf(user1))
	})

	t.Run("fails for stranger", func(t *testing.T) {
		f := newFixture(t)
		err := f.call(user2, func(tx *engine.Tx) error { return f.pool.StakeFor(tx, user1, toWei(10)) })
		require.ErrorIs(t, err, access.ErrUnauthorized)
	})

	t.Run("fails when paused", func(t *testing.T) {
		f := newFixture(t)
		f.do(t, admin, func(tx *engine.Tx) error { return f.pool.Pause(tx) })
		err := f.call(admin, func(tx *engine.Tx) error { return f.pool.StakeFor(tx, user1, toWei(10)) })
		require.ErrorIs(t, err, ErrPaused)
	})

	t.Run("fails for invalid amount", func(t *testing.T) {
		f := newFixture(t)
		err := f.call(admin, func(tx *engine.Tx) error { return f.pool.StakeFor(tx, user1, new(big.Int)) })
		require.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("fails for invalid account", func(t *testing.T) {
		f := newFixture(t)
		err := f.call(admin, func(tx *engine.Tx) error { return f.pool.StakeFor(tx, common.Address{}, toWei(10)) })
		require.ErrorIs(t, err, ErrInvalidAccount)
	})
}

func TestWithdraw(t *testing.T) {
	t.Run("withdraws successfully", func(t *testing.T) {
		f := newFixture(t)
		f.stake(t, user1, 10)
		f.do(t, user1, func(tx *engine.Tx) error { return f.pool.Withdraw(tx, toWei(10)) })

		assert.Equal(t, 0, f.pool.TotalStaked().Sign())
		assert.Equal(t, 0, f.pool.BalanceOf(user1).Sign())
		assert.Equal(t, toWei(100), f.staking.BalanceOf(user1))
	})

	t.Run("fails for invalid amount", func(t *testing.T) {
		f := newFixture(t)
		err := f.call(user1, func(tx *engine.Tx) error { return f.pool.Withdraw(tx, new(big.Int)) })
		require.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("fails above balance", func(t *testing.T) {
		f := newFixture(t)
		f.stake(t, user1, 10)
		err := f.call(user1, func(tx *engine.Tx) error { return f.pool.Withdraw(tx, toWei(11)) })
		require.ErrorIs(t, err, ErrInvalidAmount)
		assert.Equal(t, toWei(10), f.pool.BalanceOf(user1))
	})

	t.Run("helper withdraws for user", func(t *testing.T) {
		f := newFixture(t)
		f.stake(t, user1, 10)
		f.do(t, helper, func(tx *engine.Tx) error { return f.pool.WithdrawFor(tx, user1, toWei(4)) })
		assert.Equal(t, toWei(6), f.pool.BalanceOf(user1))
		assert.Equal(t, toWei(104), f.staking.BalanceOf(helper))

		err := f.call(admin, func(tx *engine.Tx) error { return f.pool.WithdrawFor(tx, user1, toWei(1)) })
		require.ErrorIs(t, err, access.ErrUnauthorized)
	})

	t.Run("withdraw and claim still work while paused", func(t *testing.T) {
		f := newFixture(t)
		f.fundRewards(t)
		f.stake(t, user1, 10)
		f.clock.Advance(3600)
		f.do(t, admin, func(tx *engine.Tx) error { return f.pool.Pause(tx) })

		err := f.call(user1, func(tx *engine.Tx) error { return f.pool.Stake(tx, toWei(1)) })
		require.ErrorIs(t, err, ErrPaused)

		owed := f.earned(t, f.reward1, user1)
		f.do(t, user1, func(tx *engine.Tx) error { return f.pool.Withdraw(tx, toWei(4)) })
		assert.Equal(t, toWei(6), f.pool.BalanceOf(user1))
		assert.Equal(t, toWei(94), f.staking.BalanceOf(user1))

		f.do(t, user1, func(tx *engine.Tx) error { return f.pool.GetReward(tx, user1) })
		assert.Equal(t, owed, f.reward1.BalanceOf(user1).String())
		assert.True(t, f.reward1.BalanceOf(user1).Sign() > 0)
		assert.Equal(t, "0", f.earned(t, f.reward1, user1))
		assert.True(t, f.pool.Paused())
	})
}

func TestGetReward(t *testing.T) {
	t.Run("gets rewards successfully", func(t *testing.T) {
		f := newFixture(t)
		f.fundRewards(t)
		f.stake(t, user1, 10)
		f.stake(t, user2, 20)
		f.clock.Set(101000)

		assert.Equal(t, "5511463844797000", f.earned(t, f.reward1, user1))
		assert.Equal(t, "11022927689594000", f.earned(t, f.reward1, user2))
		assert.Equal(t, "27557319223985660", f.earned(t, f.reward2, user1))
		assert.Equal(t, "55114638447971320", f.earned(t, f.reward2, user2))

		f.claimBoth(t)
		assert.Equal(t, "5511463844797000", f.reward1.BalanceOf(user1).String())
		assert.Equal(t, "11022927689594000", f.reward1.BalanceOf(user2).String())
		assert.Equal(t, "27557319223985660", f.reward2.BalanceOf(user1).String())
		assert.Equal(t, "55114638447971320", f.reward2.BalanceOf(user2).String())
		assert.Equal(t, "0", f.earned(t, f.reward1, user1))
		assert.Len(t, f.recorder.named(model.EventRewardPaid), 4)
	})

	t.Run("with balance change", func(t *testing.T) {
		f := newFixture(t)
		f.fundRewards(t)
		f.stake(t, user1, 10)
		f.stake(t, user2, 20)
		f.clock.Set(101000)
		f.stake(t, user1, 10)
		f.clock.Set(102500)

		f.claimBoth(t)
		assert.Equal(t, "17912257495590240", f.reward1.BalanceOf(user1).String())
		assert.Equal(t, "23423721340387240", f.reward1.BalanceOf(user2).String())
		assert.Equal(t, "89561287477953400", f.reward2.BalanceOf(user1).String())
		assert.Equal(t, "117118606701939060", f.reward2.BalanceOf(user2).String())
	})

	t.Run("with reward rate change", func(t *testing.T) {
		f := newFixture(t)
		f.fundRewards(t)
		f.stake(t, user1, 10)
		f.stake(t, user2, 20)
		f.clock.Set(101000)
		f.do(t, admin, func(tx *engine.Tx) error { return f.pool.NotifyRewardAmount(tx, f.reward1.Address(), toWei(20)) })
		f.clock.Set(102500)

		f.claimBoth(t)
		assert.Equal(t, "30299381841213000", f.reward1.BalanceOf(user1).String())
		assert.Equal(t, "60598763682426000", f.reward1.BalanceOf(user2).String())
	})

	t.Run("anyone may trigger a payout to the account", func(t *testing.T) {
		f := newFixture(t)
		f.fundRewards(t)
		f.stake(t, user1, 10)
		f.clock.Set(100000 + sevenDays + 1)

		f.do(t, user2, func(tx *engine.Tx) error { return f.pool.GetReward(tx, user1) })
		assert.Equal(t, 0, f.reward1.BalanceOf(user2).Sign())
		assert.True(t, f.reward1.BalanceOf(user1).Sign() > 0)
	})

	t.Run("no-op without rewards", func(t *testing.T) {
		f := newFixture(t)
		f.do(t, user1, func(tx *engine.Tx) error { return f.pool.GetReward(tx, user1) })
		assert.Empty(t, f.recorder.named(model.EventRewardPaid))
	})

	t.Run("emission stops at period finish", func(t *testing.T) {
		f := newFixture(t)
		f.fundRewards(t)
		f.stake(t, user1, 10)
		f.clock.Set(100000 + sevenDays)
		atFinish := f.earned(t, f.reward1, user1)
		f.clock.Set(100000 + 2*sevenDays)
		assert.Equal(t, atFinish, f.earned(t, f.reward1, user1))

		info, err := f.pool.Stream(f.reward1.Address())
		require.NoError(t, err)
		paid := new(big.Int).Mul(info.RewardRate, big.NewInt(sevenDays))
		assert.Equal(t, paid.String(), atFinish)
	})
}

func TestNotifyRewardAmount(t *testing.T) {
	setup := func(t *testing.T) *fixture {
		f := newFixture(t)
		f.clock.Set(100000)
		f.do(t, admin, func(tx *engine.Tx) error { return f.pool.AddRewardsToken(tx, f.reward1.Address(), sevenDays) })
		return f
	}

	t.Run("notifies the reward amount", func(t *testing.T) {
		f := setup(t)
		f.do(t, admin, func(tx *engine.Tx) error { return f.pool.NotifyRewardAmount(tx, f.reward1.Address(), toWei(10)) })
		info, err := f.pool.Stream(f.reward1.Address())
		require.NoError(t, err)
		assert.Equal(t, "16534391534391", info.RewardRate.String())
		assert.Equal(t, uint64(100000), info.LastUpdateTime)
		assert.Equal(t, uint64(100000+sevenDays), info.PeriodFinish)

		f.clock.Set(101000)
		f.do(t, admin, func(tx *engine.Tx) error { return f.pool.NotifyRewardAmount(tx, f.reward1.Address(), toWei(20)) })
		info, err = f.pool.Stream(f.reward1.Address())
		require.NoError(t, err)
		assert.Equal(t, "49575835992832", info.RewardRate.String())
		assert.Equal(t, uint64(101000), info.LastUpdateTime)
		assert.Equal(t, uint64(101000+sevenDays), info.PeriodFinish)
	})

	t.Run("fails for unsupported reward token", func(t *testing.T) {
		f := setup(t)
		err := f.call(admin, func(tx *engine.Tx) error { return f.pool.NotifyRewardAmount(tx, f.reward2.Address(), toWei(10)) })
		require.ErrorIs(t, err, ErrRewardAssetNotSupported)
	})

	t.Run("fails for non-admin", func(t *testing.T) {
		f := setup(t)
		err := f.call(user1, func(tx *engine.Tx) error { return f.pool.NotifyRewardAmount(tx, f.reward1.Address(), toWei(10)) })
		require.ErrorIs(t, err, access.ErrUnauthorized)
	})
}

func TestRecoverToken(t *testing.T) {
	tests := []struct {
		name    string
		asset   func(f *fixture) *asset.Ledger
		from    common.Address
		wantErr error
	}{
		{name: "recovers random token", asset: func(f *fixture) *asset.Ledger { return f.random }, from: admin},
		{name: "recovers rewards token", asset: func(f *fixture) *asset.Ledger { return f.reward1 }, from: admin},
		{name: "fails for staking token", asset: func(f *fixture) *asset.Ledger { return f.staking }, from: admin, wantErr: ErrCannotRecoverStakingAsset},
		{name: "fails for non-admin", asset: func(f *fixture) *asset.Ledger { return f.random }, from: user1, wantErr: access.ErrUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			token := tt.asset(f)
			f.do(t, admin, func(tx *engine.Tx) error { return token.Transfer(tx, f.pool.Address(), toWei(100)) })
			before := token.BalanceOf(admin)

			err := f.call(tt.from, func(tx *engine.Tx) error { return f.pool.RecoverToken(tx, token.Address(), toWei(100)) })
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, toWei(100), new(big.Int).Sub(token.BalanceOf(admin), before))
		})
	}
}

func TestSetRewardsDuration(t *testing.T) {
	const twoWeeks = 86400 * 14

	t.Run("sets duration after period ends", func(t *testing.T) {
		f := newFixture(t)
		f.clock.Set(100000)
		f.do(t, admin, func(tx *engine.Tx) error { return f.pool.AddRewardsToken(tx, f.reward1.Address(), sevenDays) })
		f.do(t, admin, func(tx *engine.Tx) error { return f.pool.SetRewardsDuration(tx, f.reward1.Address(), twoWeeks) })
		info, err := f.pool.Stream(f.reward1.Address())
		require.NoError(t, err)
		assert.Equal(t, uint64(twoWeeks), info.Duration)
	})

	t.Run("fails for unsupported reward token", func(t *testing.T) {
		f := newFixture(t)
		err := f.call(admin, func(tx *engine.Tx) error { return f.pool.SetRewardsDuration(tx, f.reward1.Address(), twoWeeks) })
		require.ErrorIs(t, err, ErrRewardAssetNotSupported)
	})

	t.Run("fails while previous period runs", func(t *testing.T) {
		f := newFixture(t)
		f.fundRewards(t)
		f.clock.Set(100000 + sevenDays - 1)
		err := f.call(admin, func(tx *engine.Tx) error { return f.pool.SetRewardsDuration(tx, f.reward1.Address(), twoWeeks) })
		require.ErrorIs(t, err, ErrPreviousPeriodNotComplete)

		f.clock.Set(100000 + sevenDays)
		f.do(t, admin, func(tx *engine.Tx) error { return f.pool.SetRewardsDuration(tx, f.reward1.Address(), twoWeeks) })
	})

	t.Run("fails for zero duration", func(t *testing.T) {
		f := newFixture(t)
		f.do(t, admin, func(tx *engine.Tx) error { return f.pool.AddRewardsToken(tx, f.reward1.Address(), sevenDays) })
		err := f.call(admin, func(tx *engine.Tx) error { return f.pool.SetRewardsDuration(tx, f.reward1.Address(), 0) })
		require.ErrorIs(t, err, ErrInvalidDuration)
	})

	t.Run("fails for non-admin", func(t *testing.T) {
		f := newFixture(t)
		f.do(t, admin, func(tx *engine.Tx) error { return f.pool.AddRewardsToken(tx, f.reward1.Address(), sevenDays) })
		err := f.call(user1, func(tx *engine.Tx) error { return f.pool.SetRewardsDuration(tx, f.reward1.Address(), twoWeeks) })
		require.ErrorIs(t, err, access.ErrUnauthorized)
	})
}

func TestAddRewardsToken(t *testing.T) {
	f := newFixture(t)
	f.do(t, admin, func(tx *engine.Tx) error { return f.pool.AddRewardsToken(tx, f.reward1.Address(), sevenDays) })
	assert.Equal(t, []common.Address{f.reward1.Address()}, f.pool.RewardAssets())

	err := f.call(admin, func(tx *engine.Tx) error { return f.pool.AddRewardsToken(tx, f.reward1.Address(), sevenDays) })
	require.ErrorIs(t, err, ErrRewardAssetAlreadySupported)

	err = f.call(user1, func(tx *engine.Tx) error { return f.pool.AddRewardsToken(tx, f.reward2.Address(), sevenDays) })
	require.ErrorIs(t, err, access.ErrUnauthorized)

	err = f.call(admin, func(tx *engine.Tx) error { return f.pool.AddRewardsToken(tx, f.reward2.Address(), 0) })
	require.ErrorIs(t, err, ErrInvalidDuration)
}

func TestRewardPerStakeNeverDecreases(t *testing.T) {
	f := newFixture(t)
	f.fundRewards(t)
	f.stake(t, user1, 10)

	prev := new(big.Int)
	steps := []func(){
		func() { f.stake(t, user2, 50) },
		func() { f.do(t, user1, func(tx *engine.Tx) error { return f.pool.Withdraw(tx, toWei(10)) }) },
		func() { f.do(t, user2, func(tx *engine.Tx) error { return f.pool.Withdraw(tx, toWei(50)) }) },
		func() { f.stake(t, user1, 1) },
		func() {
			f.do(t, admin, func(tx *engine.Tx) error { return f.pool.NotifyRewardAmount(tx, f.reward1.Address(), toWei(5)) })
		},
	}
	for i, step := range steps {
		f.clock.Advance(777)
		step()
		rps, err := f.pool.RewardPerStake(f.reward1.Address())
		require.NoError(t, err)
		require.True(t, rps.Cmp(prev) >= 0, "step %d decreased accumulator", i)
		prev = rps

		sum := new(big.Int)
		for _, u := range []common.Address{user1, user2, helper, admin} {
			sum.Add(sum, f.pool.BalanceOf(u))
		}
		require.Equal(t, sum.String(), f.pool.TotalStaked().String(), "step %d total diverged from balances", i)
	}
}

func TestFailedCallRestoresStreams(t *testing.T) {
	f := newFixture(t)
	f.fundRewards(t)
	f.stake(t, user1, 10)
	f.clock.Set(101000)
	before := f.pool.Record()

	err := f.call(user1, func(tx *engine.Tx) error {
		if err := f.pool.GetReward(tx, user1); err != nil {
			return err
		}
		return f.pool.Withdraw(tx, toWei(11))
	})
	require.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, before, f.pool.Record())
	assert.Equal(t, 0, f.reward1.BalanceOf(user1).Sign())
}

func TestOwnershipAndHelper(t *testing.T) {
	f := newFixture(t)
	f.do(t, admin, func(tx *engine.Tx) error { return f.pool.SetHelper(tx, user2) })
	assert.Equal(t, user2, f.pool.Helper())

	f.do(t, admin, func(tx *engine.Tx) error { return f.pool.TransferOwnership(tx, user1) })
	assert.Equal(t, user1, f.pool.Owner())
	err := f.call(admin, func(tx *engine.Tx) error { return f.pool.Pause(tx) })
	require.ErrorIs(t, err, access.ErrUnauthorized)

	f.do(t, user1, func(tx *engine.Tx) error { return f.pool.Pause(tx) })
	assert.True(t, f.pool.Paused())
	f.do(t, user1, func(tx *engine.Tx) error { return f.pool.Unpause(tx) })
	err = f.call(user1, func(tx *engine.Tx) error { return f.pool.Unpause(tx) })
	require.ErrorIs(t, err, ErrNotPaused)
}

func TestRecord(t *testing.T) {
	f := newFixture(t)
	f.fundRewards(t)
	f.stake(t, user2, 20)
	f.stake(t, user1, 10)

	rec := f.pool.Record()
	assert.Equal(t, f.pool.Address().Hex(), rec.Address)
	assert.Equal(t, toWei(30).String(), rec.TotalStaked)
	require.Len(t, rec.Balances, 2)
	assert.Equal(t, user1.Hex(), rec.Balances[0].Account)
	require.Len(t, rec.Streams, 2)
	assert.Equal(t, f.reward1.Address().Hex(), rec.Streams[0].RewardAsset)
	assert.Equal(t, "16534391534391", rec.Streams[0].RewardRate)
	assert.Len(t, rec.Streams[0].Accounts, 2)
}
