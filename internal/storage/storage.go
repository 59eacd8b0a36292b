package storage

import (
	"context"

	"stakingRewards/internal/model"
)

// Storage is a sink for committed ledger events.
type Storage interface {
	PutEvents(events []model.Event) error
}

// SnapshotStore persists the full ledger state.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot model.Snapshot) error
}

// StateStore persists the last applied scenario line.
type StateStore interface {
	Load(ctx context.Context) (uint64, bool, error)
	Save(ctx context.Context, line uint64) error
}
