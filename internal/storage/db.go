package storage

import (
	"context"
	"time"

	"go.uber.org/zap"

	"stakingRewards/internal/model"
	"stakingRewards/internal/storage/postgres"
)

// DBStateStore keeps replay progress in the replay_state table.
type DBStateStore struct {
	Store *postgres.Store
	Name  string
}

func (s *DBStateStore) Load(ctx context.Context) (uint64, bool, error) {
	if s == nil || s.Store == nil {
		return 0, false, nil
	}
	return s.Store.LoadState(ctx, s.Name)
}

func (s *DBStateStore) Save(ctx context.Context, line uint64) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveState(ctx, s.Name, line)
}

// DBEventSink writes committed events to postgres. The engine calls sinks
// without a context, so each batch gets its own timeout.
type DBEventSink struct {
	Store   *postgres.Store
	Timeout time.Duration
	Logger  *zap.Logger
}

func (s *DBEventSink) PutEvents(events []model.Event) error {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Store.InsertEvents(ctx, events); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Debug("events stored", zap.Int("events", len(events)))
	}
	return nil
}
