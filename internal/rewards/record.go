package rewards

import (
	"bytes"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"

	"stakingRewards/internal/model"
)

// Record returns the persisted form of the pool. Accounts are ordered by address.
func (p *Pool) Record() model.PoolRecord {
	rec := model.PoolRecord{
		Address:      p.address.Hex(),
		StakingAsset: p.StakingAsset().Hex(),
		Owner:        p.Owner().Hex(),
		Paused:       p.state.paused,
		TotalStaked:  p.state.totalStaked.String(),
		Balances:     make([]model.BalanceRecord, 0, len(p.state.balances)),
		Streams:      make([]model.StreamRecord, 0, len(p.state.streams)),
	}
	if p.state.helper != (common.Address{}) {
		rec.Helper = p.state.helper.Hex()
	}
	for _, account := range sortedAccounts(p.state.balances) {
		rec.Balances = append(rec.Balances, model.BalanceRecord{
			Account: account.Hex(),
			Amount:  p.state.balances[account].String(),
		})
	}
	for _, s := range p.state.streams {
		rec.Streams = append(rec.Streams, s.record())
	}
	return rec
}

func (s *Stream) record() model.StreamRecord {
	rec := model.StreamRecord{
		RewardAsset:          s.rewardAsset.Hex(),
		RewardRate:           s.rewardRate.String(),
		Duration:             s.duration,
		PeriodFinish:         s.periodFinish,
		LastUpdateTime:       s.lastUpdateTime,
		RewardPerStakeStored: s.rewardPerStakeStored.String(),
	}
	seen := make(map[common.Address]*big.Int, len(s.paid)+len(s.accrued))
	for account := range s.paid {
		seen[account] = nil
	}
	for account := range s.accrued {
		seen[account] = nil
	}
	for _, account := range sortedAccounts(seen) {
		paid := "0"
		if v := s.paid[account]; v != nil {
			paid = v.String()
		}
		accrued := "0"
		if v := s.accrued[account]; v != nil {
			accrued = v.String()
		}
		rec.Accounts = append(rec.Accounts, model.StreamAccountRecord{
			Account:        account.Hex(),
			PaidCheckpoint: paid,
			Accrued:        accrued,
		})
	}
	return rec
}

func sortedAccounts(m map[common.Address]*big.Int) []common.Address {
	out := make([]common.Address, 0, len(m))
	for account := range m {
		out = append(out, account)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Bytes(), out[j].Bytes()) < 0
	})
	return out
}

func (p *Pool) Snapshot() any {
	state := p.state
	state.balances = make(map[common.Address]*big.Int, len(p.state.balances))
	for k, v := range p.state.balances {
		state.balances[k] = v
	}
	state.streams = make([]*Stream, len(p.state.streams))
	for i, s := range p.state.streams {
		state.streams[i] = s.clone()
	}
	return state
}

// Restore reinstates a snapshot. The snapshot is cloned again so it can be
// restored more than once.
func (p *Pool) Restore(snapshot any) {
	saved := snapshot.(poolState)
	p.state = saved
	p.state.balances = make(map[common.Address]*big.Int, len(saved.balances))
	for k, v := range saved.balances {
		p.state.balances[k] = v
	}
	p.state.streams = make([]*Stream, len(saved.streams))
	for i, s := range saved.streams {
		p.state.streams[i] = s.clone()
	}
}
