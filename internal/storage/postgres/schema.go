package postgres

const schema = `
CREATE TABLE IF NOT EXISTS ledger_events (
	seq       BIGINT PRIMARY KEY,
	ts        BIGINT NOT NULL,
	op        TEXT NOT NULL,
	contract  TEXT NOT NULL,
	name      TEXT NOT NULL,
	account   TEXT NOT NULL DEFAULT '',
	asset     TEXT NOT NULL DEFAULT '',
	amount    NUMERIC(78, 0),
	data      JSONB
);

CREATE TABLE IF NOT EXISTS registry_pools (
	registry      TEXT NOT NULL,
	position      INTEGER NOT NULL,
	staking_asset TEXT NOT NULL,
	pool_address  TEXT NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (registry, position)
);

CREATE TABLE IF NOT EXISTS reward_pools (
	pool_address  TEXT PRIMARY KEY,
	staking_asset TEXT NOT NULL,
	owner         TEXT NOT NULL,
	helper        TEXT NOT NULL DEFAULT '',
	paused        BOOLEAN NOT NULL,
	total_staked  NUMERIC(78, 0) NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS reward_balances (
	pool_address TEXT NOT NULL,
	account      TEXT NOT NULL,
	amount       NUMERIC(78, 0) NOT NULL,
	PRIMARY KEY (pool_address, account)
);

CREATE TABLE IF NOT EXISTS reward_streams (
	pool_address            TEXT NOT NULL,
	reward_asset            TEXT NOT NULL,
	reward_rate             NUMERIC(78, 0) NOT NULL,
	duration_seconds        BIGINT NOT NULL,
	period_finish           BIGINT NOT NULL,
	last_update_time        BIGINT NOT NULL,
	reward_per_stake_stored NUMERIC(78, 0) NOT NULL,
	updated_at              TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (pool_address, reward_asset)
);

CREATE TABLE IF NOT EXISTS reward_stream_accounts (
	pool_address    TEXT NOT NULL,
	reward_asset    TEXT NOT NULL,
	account         TEXT NOT NULL,
	paid_checkpoint NUMERIC(78, 0) NOT NULL,
	accrued         NUMERIC(78, 0) NOT NULL,
	PRIMARY KEY (pool_address, reward_asset, account)
);

CREATE TABLE IF NOT EXISTS replay_state (
	name       TEXT PRIMARY KEY,
	last_line  BIGINT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
`
