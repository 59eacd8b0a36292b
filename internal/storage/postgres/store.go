package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"stakingRewards/internal/model"
)

// Store provides Postgres persistence for ledger state and events.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the ledger tables when they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// InsertEvents appends committed events. Re-inserting a sequence number is a no-op.
func (s *Store) InsertEvents(ctx context.Context, events []model.Event) error {
	if len(events) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(`
			INSERT INTO ledger_events (seq, ts, op, contract, name, account, asset, amount, data)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (seq) DO NOTHING
		`,
			int64(ev.Seq),
			int64(ev.Time),
			ev.Op,
			ev.Contract,
			ev.Name,
			ev.Account,
			ev.Asset,
			nullableNumeric(ev.Amount),
			ev.Data,
		)
	}
	return sendBatch(ctx, s.pool, batch, len(events))
}

// SaveSnapshot replaces the stored ledger state with snapshot in one transaction.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot model.Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := upsertRegistry(ctx, tx, snapshot.Registry); err != nil {
		return err
	}
	if err := upsertPools(ctx, tx, snapshot.Pools); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func upsertRegistry(ctx context.Context, tx pgx.Tx, reg model.RegistryRecord) error {
	if _, err := tx.Exec(ctx, `DELETE FROM registry_pools WHERE registry = $1`, reg.Address); err != nil {
		return fmt.Errorf("clear registry: %w", err)
	}
	if len(reg.Pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, entry := range reg.Pools {
		batch.Queue(`
			INSERT INTO registry_pools (registry, position, staking_asset, pool_address, updated_at)
			VALUES ($1, $2, $3, $4, now())
		`, reg.Address, entry.Position, entry.StakingAsset, entry.Pool)
	}
	return sendBatch(ctx, tx, batch, len(reg.Pools))
}

func upsertPools(ctx context.Context, tx pgx.Tx, pools []model.PoolRecord) error {
	if len(pools) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	queued := 0
	for _, pool := range pools {
		batch.Queue(`
			INSERT INTO reward_pools (pool_address, staking_asset, owner, helper, paused, total_staked, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now(), now())
			ON CONFLICT (pool_address)
			DO UPDATE SET
				owner = EXCLUDED.owner,
				helper = EXCLUDED.helper,
				paused = EXCLUDED.paused,
				total_staked = EXCLUDED.total_staked,
				updated_at = now()
		`, pool.Address, pool.StakingAsset, pool.Owner, pool.Helper, pool.Paused, pool.TotalStaked)
		batch.Queue(`DELETE FROM reward_balances WHERE pool_address = $1`, pool.Address)
		batch.Queue(`DELETE FROM reward_stream_accounts WHERE pool_address = $1`, pool.Address)
		queued += 3

		for _, bal := range pool.Balances {
			batch.Queue(`
				INSERT INTO reward_balances (pool_address, account, amount)
				VALUES ($1, $2, $3)
			`, pool.Address, bal.Account, bal.Amount)
			queued++
		}
		for _, stream := range pool.Streams {
			batch.Queue(`
				INSERT INTO reward_streams (
					pool_address, reward_asset, reward_rate, duration_seconds, period_finish,
					last_update_time, reward_per_stake_stored, updated_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, now())
				ON CONFLICT (pool_address, reward_asset)
				DO UPDATE SET
					reward_rate = EXCLUDED.reward_rate,
					duration_seconds = EXCLUDED.duration_seconds,
					period_finish = EXCLUDED.period_finish,
					last_update_time = EXCLUDED.last_update_time,
					reward_per_stake_stored = EXCLUDED.reward_per_stake_stored,
					updated_at = now()
			`,
				pool.Address,
				stream.RewardAsset,
				stream.RewardRate,
				int64(stream.Duration),
				int64(stream.PeriodFinish),
				int64(stream.LastUpdateTime),
				stream.RewardPerStakeStored,
			)
			queued++
			for _, acct := range stream.Accounts {
				batch.Queue(`
					INSERT INTO reward_stream_accounts (pool_address, reward_asset, account, paid_checkpoint, accrued)
					VALUES ($1, $2, $3, $4, $5)
				`, pool.Address, stream.RewardAsset, acct.Account, acct.PaidCheckpoint, acct.Accrued)
				queued++
			}
		}
	}
	return sendBatch(ctx, tx, batch, queued)
}

type batchSender interface {
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

func sendBatch(ctx context.Context, sender batchSender, batch *pgx.Batch, n int) error {
	br := sender.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func nullableNumeric(v string) any {
	if v == "" {
		return nil
	}
	return v
}

// LoadState returns the last applied line for a name.
func (s *Store) LoadState(ctx context.Context, name string) (uint64, bool, error) {
	if name == "" {
		return 0, false, fmt.Errorf("state name required")
	}
	var line int64
	row := s.pool.QueryRow(ctx, `SELECT last_line FROM replay_state WHERE name=$1`, name)
	if err := row.Scan(&line); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(line), true, nil
}

// SaveState upserts the last applied line for a name.
func (s *Store) SaveState(ctx context.Context, name string, line uint64) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO replay_state (name, last_line, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (name) DO UPDATE
		SET last_line = EXCLUDED.last_line, updated_at = now()
	`, name, int64(line))
	return err
}
